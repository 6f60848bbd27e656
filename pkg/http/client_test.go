package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "req-1", r.Header.Get(HeaderRequestID))
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var in map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]int{"double": in["n"] * 2})
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithHeader("X-Api-Key", "secret"))
	var out map[string]int
	ctx := ContextWithRequestID(context.Background(), "req-1")
	require.NoError(t, c.DoJSON(ctx, http.MethodPost, srv.URL, map[string]int{"n": 21}, &out))
	require.Equal(t, 42, out["double"])
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get(HeaderRequestID))
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient().DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusServiceUnavailable, se.Code)
	require.Equal(t, "overloaded", se.Body)
	require.True(t, se.Temporary())
	require.False(t, (&StatusError{Code: http.StatusBadRequest}).Temporary())
}
