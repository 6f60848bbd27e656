package sequence_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"StockCast/internal/services/sequence"
)

// ramp returns [1, 2, ..., n].
func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

type ScalerSuite struct {
	suite.Suite
}

// TestFitTransformBounds checks min maps to the lower bound and max to the upper.
func (s *ScalerSuite) TestFitTransformBounds() {
	in := []float64{10, 20, 15, 30}
	out, sc, err := sequence.FitTransformSeries(in, sequence.DefaultFeatureRange())
	require.NoError(s.T(), err)
	require.Len(s.T(), out, len(in))
	require.InDelta(s.T(), 0.0, out[0], 1e-12)
	require.InDelta(s.T(), 0.5, out[1], 1e-12)
	require.InDelta(s.T(), 0.25, out[2], 1e-12)
	require.InDelta(s.T(), 1.0, out[3], 1e-12)
	require.Equal(s.T(), 10.0, sc.DataMin())
	require.Equal(s.T(), 30.0, sc.DataMax())
	require.False(s.T(), sc.Degenerate())
}

// TestInputNotMutated verifies fitting leaves the caller's slice untouched.
func (s *ScalerSuite) TestInputNotMutated() {
	in := []float64{3, 1, 2}
	_, _, err := sequence.FitTransformSeries(in, sequence.DefaultFeatureRange())
	require.NoError(s.T(), err)
	require.Equal(s.T(), []float64{3, 1, 2}, in)
}

// TestRoundTrip checks inverse(fit(v)) == v within 1e-9.
func (s *ScalerSuite) TestRoundTrip() {
	inputs := [][]float64{
		{4533.90, 4521.15, 4600.00, 4498.75},
		{-5, 0, 5, 1e6},
		{0.001, 0.002},
		ramp(500),
	}
	ranges := []sequence.FeatureRange{
		sequence.DefaultFeatureRange(),
		{Min: -1, Max: 1},
		{Min: 10, Max: 250},
	}
	for _, rng := range ranges {
		for _, in := range inputs {
			norm, sc, err := sequence.FitTransformSeries(in, rng)
			require.NoError(s.T(), err)
			for _, v := range norm {
				require.GreaterOrEqual(s.T(), v, rng.Min-1e-12)
				require.LessOrEqual(s.T(), v, rng.Max+1e-12)
			}
			back := sequence.InverseTransform(sc, norm)
			for i := range in {
				require.InDelta(s.T(), in[i], back[i], 1e-9)
			}
		}
	}
}

// TestDegenerateSeries maps a constant series to the lower bound without error.
func (s *ScalerSuite) TestDegenerateSeries() {
	rng := sequence.FeatureRange{Min: 0.25, Max: 1}
	out, sc, err := sequence.FitTransformSeries([]float64{42, 42, 42}, rng)
	require.NoError(s.T(), err)
	for _, v := range out {
		require.Equal(s.T(), 0.25, v)
		require.False(s.T(), math.IsNaN(v) || math.IsInf(v, 0))
	}
	require.True(s.T(), sc.Degenerate())
	require.ErrorIs(s.T(), sc.RequireNonDegenerate(), sequence.ErrDegenerateSeries)
	require.Equal(s.T(), []float64{42, 42}, sequence.InverseTransform(sc, []float64{0.25, 0.9}))
}

// TestSinglePoint is the smallest valid input and is degenerate.
func (s *ScalerSuite) TestSinglePoint() {
	out, sc, err := sequence.FitTransformSeries([]float64{7}, sequence.DefaultFeatureRange())
	require.NoError(s.T(), err)
	require.Equal(s.T(), []float64{0}, out)
	require.True(s.T(), sc.Degenerate())
}

// TestFitErrors covers empty input, bad ranges and non-finite values.
func (s *ScalerSuite) TestFitErrors() {
	_, _, err := sequence.FitTransformSeries(nil, sequence.DefaultFeatureRange())
	require.ErrorIs(s.T(), err, sequence.ErrInsufficientData)

	_, _, err = sequence.FitTransformSeries([]float64{1, 2}, sequence.FeatureRange{Min: 1, Max: 1})
	require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)

	_, _, err = sequence.FitTransformSeries([]float64{1, math.NaN()}, sequence.DefaultFeatureRange())
	require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)

	_, _, err = sequence.FitTransformSeries([]float64{1, math.Inf(1)}, sequence.DefaultFeatureRange())
	require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)
}

// TestExtremeSpan covers finite inputs whose max-min overflows float64.
func (s *ScalerSuite) TestExtremeSpan() {
	in := []float64{-1e308, 0, 1e308, math.MaxFloat64}
	for _, rng := range []sequence.FeatureRange{sequence.DefaultFeatureRange(), {Min: -1, Max: 1}} {
		norm, sc, err := sequence.FitTransformSeries(in, rng)
		require.NoError(s.T(), err)
		for _, v := range norm {
			require.False(s.T(), math.IsNaN(v) || math.IsInf(v, 0))
			require.GreaterOrEqual(s.T(), v, rng.Min)
			require.LessOrEqual(s.T(), v, rng.Max)
		}
		require.Equal(s.T(), rng.Min, norm[0])
		require.Equal(s.T(), rng.Max, norm[3])

		back := sequence.InverseTransform(sc, norm)
		for i := range in {
			require.False(s.T(), math.IsNaN(back[i]) || math.IsInf(back[i], 0))
			require.InDelta(s.T(), in[i], back[i], 1e294)
		}
	}
}

// TestNewScaler restores a scaler from stored bounds.
func (s *ScalerSuite) TestNewScaler() {
	sc, err := sequence.NewScaler(100, 200, sequence.DefaultFeatureRange())
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 150.0, sc.Inverse(0.5), 1e-12)

	_, err = sequence.NewScaler(200, 100, sequence.DefaultFeatureRange())
	require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)
}

func TestScalerSuite(t *testing.T) {
	suite.Run(t, new(ScalerSuite))
}

type WindowsSuite struct {
	suite.Suite
}

// TestConcreteScenario is the 70-point, 60/7, 0.2 example.
func (s *WindowsSuite) TestConcreteScenario() {
	series := ramp(70)
	ex, err := sequence.BuildWindows(series, 60, 7)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 3, ex.Len())
	require.Equal(s.T(), ramp(60), ex.Windows[0])
	require.Equal(s.T(), []float64{61, 62, 63, 64, 65, 66, 67}, ex.Targets[0])
	require.Equal(s.T(), []int{60, 61, 62}, ex.Anchors)

	split, err := sequence.TrainTestSplitChronological(ex.Windows, ex.Targets, 0.2)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 2, split.Index)
	require.Equal(s.T(), 2, split.TrainLen())
	require.Equal(s.T(), 1, split.EvalLen())
	require.Equal(s.T(), ex.Windows[2], split.EvalWindows[0])
}

// TestCountAndAdjacency checks the example count law and that each target
// starts right after its window ends.
func (s *WindowsSuite) TestCountAndAdjacency() {
	for _, tc := range []struct{ L, w, h int }{
		{10, 3, 2}, {20, 1, 1}, {100, 60, 7}, {9, 4, 4},
	} {
		series := ramp(tc.L)
		ex, err := sequence.BuildWindows(series, tc.w, tc.h)
		require.NoError(s.T(), err)
		require.Equal(s.T(), tc.L-tc.w-tc.h, ex.Len())
		require.Len(s.T(), ex.Targets, ex.Len())
		for k := 0; k < ex.Len(); k++ {
			require.Len(s.T(), ex.Windows[k], tc.w)
			require.Len(s.T(), ex.Targets[k], tc.h)
			// ramp values equal position+1, so adjacency is a +1 step
			require.Equal(s.T(), ex.Windows[k][tc.w-1]+1, ex.Targets[k][0])
			if k > 0 {
				require.Equal(s.T(), ex.Windows[k-1][0]+1, ex.Windows[k][0])
			}
		}
	}
}

// TestBoundaryInsufficient rejects len == window + horizon.
func (s *WindowsSuite) TestBoundaryInsufficient() {
	_, err := sequence.BuildWindows(ramp(67), 60, 7)
	require.ErrorIs(s.T(), err, sequence.ErrInsufficientData)

	var ide *sequence.InsufficientDataError
	require.True(s.T(), errors.As(err, &ide))
	require.Equal(s.T(), 68, ide.Required)
	require.Equal(s.T(), 67, ide.Got)
	require.Contains(s.T(), err.Error(), "68")

	ex, err := sequence.BuildWindows(ramp(68), 60, 7)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, ex.Len())
}

// TestInvalidParameters rejects non-positive window sizes and horizons.
func (s *WindowsSuite) TestInvalidParameters() {
	_, err := sequence.BuildWindows(ramp(10), 0, 2)
	require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)
	_, err = sequence.BuildWindows(ramp(10), 2, -1)
	require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)
}

// TestWindowsDoNotAlias ensures examples are copies of the source.
func (s *WindowsSuite) TestWindowsDoNotAlias() {
	series := ramp(10)
	ex, err := sequence.BuildWindows(series, 3, 2)
	require.NoError(s.T(), err)
	series[0] = -100
	require.Equal(s.T(), 1.0, ex.Windows[0][0])
}

func TestWindowsSuite(t *testing.T) {
	suite.Run(t, new(WindowsSuite))
}

type SplitSuite struct {
	suite.Suite
}

// TestChronologicalCover checks train then eval anchors reconstruct the
// original order with no gaps or duplicates.
func (s *SplitSuite) TestChronologicalCover() {
	ex, err := sequence.BuildWindows(ramp(200), 20, 5)
	require.NoError(s.T(), err)

	for _, ratio := range []float64{0.01, 0.1, 0.2, 0.5, 0.9, 0.99} {
		split, err := sequence.TrainTestSplitChronological(ex.Windows, ex.Targets, ratio)
		require.NoError(s.T(), err)
		require.GreaterOrEqual(s.T(), split.TrainLen(), 1)
		require.GreaterOrEqual(s.T(), split.EvalLen(), 1)
		require.Equal(s.T(), ex.Len(), split.TrainLen()+split.EvalLen())

		joined := append(append([][]float64{}, split.TrainWindows...), split.EvalWindows...)
		for k := range joined {
			require.Equal(s.T(), ex.Windows[k], joined[k])
		}
	}
}

// TestClamp keeps both partitions non-empty for tiny sets.
func (s *SplitSuite) TestClamp() {
	w := [][]float64{{1}, {2}}
	t := [][]float64{{2}, {3}}

	split, err := sequence.TrainTestSplitChronological(w, t, 0.99)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, split.Index)

	split, err = sequence.TrainTestSplitChronological(w, t, 0.01)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, split.Index)
}

// TestSplitAppendDoesNotClobberEval guards the capped train slices.
func (s *SplitSuite) TestSplitAppendDoesNotClobberEval() {
	w := [][]float64{{1}, {2}, {3}, {4}}
	t := [][]float64{{2}, {3}, {4}, {5}}
	split, err := sequence.TrainTestSplitChronological(w, t, 0.5)
	require.NoError(s.T(), err)
	_ = append(split.TrainWindows, []float64{99})
	require.Equal(s.T(), []float64{3}, split.EvalWindows[0])
}

// TestSplitErrors covers bad ratios, mismatched lengths and too few examples.
func (s *SplitSuite) TestSplitErrors() {
	w := [][]float64{{1}, {2}, {3}}
	t := [][]float64{{2}, {3}, {4}}
	for _, r := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, err := sequence.TrainTestSplitChronological(w, t, r)
		require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)
	}

	_, err := sequence.TrainTestSplitChronological(w, t[:2], 0.2)
	require.ErrorIs(s.T(), err, sequence.ErrInvalidRange)

	_, err = sequence.TrainTestSplitChronological(w[:1], t[:1], 0.2)
	require.ErrorIs(s.T(), err, sequence.ErrInsufficientData)
}

func TestSplitSuite(t *testing.T) {
	suite.Run(t, new(SplitSuite))
}
