package features

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"StockCast/internal/domain/models"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// LogReturns returns ln(C_t / C_{t-1}) for consecutive points. A pair with a
// non-positive close contributes 0. Fewer than two points yield nil.
func LogReturns(points []models.PricePoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, len(points)-1)
	for i := range out {
		prev, cur := points[i].Close, points[i+1].Close
		if prev > 0 && cur > 0 {
			out[i] = math.Log(cur / prev)
		}
	}
	return out
}

// AnnualizedVolatility is the sample standard deviation of the last window
// returns scaled by sqrt(TradingDaysPerYear). window <= 0 uses every return.
// It is 0 when fewer than two returns are available.
func AnnualizedVolatility(returns []float64, window int) float64 {
	if window > 0 && window < len(returns) {
		returns = returns[len(returns)-window:]
	}
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
}

// MovingAverages returns one SMA line per period over points, restricted to
// the last `tail` dates. Periods longer than the series are skipped.
func MovingAverages(points []models.PricePoint, periods []int, tail int) []models.ChartSeries {
	if len(points) == 0 {
		return nil
	}
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	start := 0
	if tail > 0 && tail < len(points) {
		start = len(points) - tail
	}

	out := make([]models.ChartSeries, 0, len(periods))
	for _, period := range periods {
		if period < 2 || period > len(closes) {
			continue
		}
		sma := talib.Sma(closes, period)
		from := start
		if from < period-1 {
			from = period - 1
		}
		line := models.ChartSeries{
			Name:   fmt.Sprintf("SMA%d", period),
			Points: make([]models.ChartPoint, 0, len(points)-from),
		}
		for i := from; i < len(points); i++ {
			line.Points = append(line.Points, models.ChartPoint{Date: points[i].Date, Value: sma[i]})
		}
		out = append(out, line)
	}
	return out
}
