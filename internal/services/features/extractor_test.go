package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
)

func series(closes ...float64) []models.PricePoint {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestLogReturns(t *testing.T) {
	rets := LogReturns(series(100, 110, 0, 121))
	require.Len(t, rets, 3)
	require.InDelta(t, math.Log(1.1), rets[0], 1e-12)
	require.Equal(t, 0.0, rets[1])
	require.Equal(t, 0.0, rets[2])
	require.Nil(t, LogReturns(series(1)))
}

func TestAnnualizedVolatility(t *testing.T) {
	require.InDelta(t, 0.0, AnnualizedVolatility([]float64{0.01, 0.01, 0.01}, 0), 1e-12)
	require.Equal(t, 0.0, AnnualizedVolatility([]float64{0.01}, 0))

	// sample stddev of {0.01, -0.01} is sqrt(2)*0.01
	want := math.Sqrt(2) * 0.01 * math.Sqrt(TradingDaysPerYear)
	require.InDelta(t, want, AnnualizedVolatility([]float64{0.5, 0.01, -0.01}, 2), 1e-12)
}

func TestMovingAveragesTail(t *testing.T) {
	pts := series(1, 2, 3, 4, 5, 6)
	lines := MovingAverages(pts, []int{2, 3, 50}, 3)
	require.Len(t, lines, 2)

	require.Equal(t, "SMA2", lines[0].Name)
	require.Len(t, lines[0].Points, 3)
	require.InDelta(t, 3.5, lines[0].Points[0].Value, 1e-12)
	require.InDelta(t, 5.5, lines[0].Points[2].Value, 1e-12)
	require.Equal(t, pts[3].Date, lines[0].Points[0].Date)

	require.Equal(t, "SMA3", lines[1].Name)
	require.InDelta(t, 5.0, lines[1].Points[2].Value, 1e-12)
}

func TestMovingAveragesShortSeries(t *testing.T) {
	lines := MovingAverages(series(1, 2, 3), []int{3}, 100)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Points, 1)
	require.InDelta(t, 2.0, lines[0].Points[0].Value, 1e-12)
}
