package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	require.Equal(t, 8080, c.Server.Port)
	require.Equal(t, 60, c.Sequence.WindowSize)
	require.Equal(t, 7, c.Sequence.ForecastHorizon)
	require.Equal(t, 0.2, c.Sequence.TestRatio)
	require.Equal(t, 0.0, c.Sequence.FeatureRange.Min)
	require.Equal(t, 1.0, c.Sequence.FeatureRange.Max)
	require.Equal(t, ModelBackendBaseline, c.Model.Backend)
	require.Equal(t, int64(42), c.Model.Seed)
	require.Equal(t, []int{64, 64}, c.Model.Units)
	require.Equal(t, []int{20, 50}, c.Forecast.SMAPeriods)
	require.Equal(t, 10*time.Minute, c.Forecast.CacheTTL)
	require.Equal(t, 60, c.Forecast.MinRows, "min rows follows the window size")
	require.Equal(t, "stockcast.forecasts", c.Kafka.Topic)
	require.Equal(t, -1, c.Kafka.RequiredAcks)
	require.False(t, c.Kafka.Enabled)
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
sequence:
  window_size: 30
  forecast_horizon: 5
  test_ratio: 0.25
forecast:
  min_rows: 45
model:
  backend: http
  service_url: http://model:8000
  units: [32]
`))
	require.NoError(t, err)
	require.Equal(t, 30, c.Sequence.WindowSize)
	require.Equal(t, 5, c.Sequence.ForecastHorizon)
	require.Equal(t, 0.25, c.Sequence.TestRatio)
	require.Equal(t, 45, c.Forecast.MinRows)
	require.Equal(t, []int{32}, c.Model.Units)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing env":      "sequence:\n  window_size: 5\n",
		"test ratio":       "environment: x\nsequence:\n  test_ratio: 1.5\n",
		"negative horizon": "environment: x\nsequence:\n  forecast_horizon: -1\n",
		"inverted range":   "environment: x\nsequence:\n  feature_range:\n    min: 2\n    max: 1\n",
		"min rows":         "environment: x\nforecast:\n  min_rows: 10\n",
		"backend":          "environment: x\nmodel:\n  backend: onnx\n",
		"http needs url":   "environment: x\nmodel:\n  backend: http\n",
		"kafka brokers":    "environment: x\nkafka:\n  enabled: true\n",
		"bad yaml":         "environment: [x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: dev\n"), 0o600))

	t.Chdir(dir)
	t.Setenv("STOCKCAST_ENV", "staging")
	t.Setenv("MODEL_SERVICE_URL", "http://lstm:8000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	require.Equal(t, "staging", c.Environment)
	require.Equal(t, ModelBackendHTTP, c.Model.Backend)
	require.Equal(t, "http://lstm:8000", c.Model.ServiceURL)
	require.True(t, c.Kafka.Enabled)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	require.True(t, c.Redis.Enabled)
	require.False(t, c.ClickHouse.Enabled)
}

func TestLoadSampleConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "development", c.Environment)
	require.Equal(t, 60, c.Forecast.MinRows)
}
