package usecase

import (
	"context"
	"fmt"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/dataset"
	"StockCast/internal/services/sequence"
	applogger "StockCast/pkg/logger"
)

// PrepareParams are the windowing parameters of one preparation run.
type PrepareParams struct {
	WindowSize      int
	Horizon         int
	TestRatio       float64
	IncludeExamples bool
}

// Preparer scales, windows and splits a close series into supervised
// training data.
type Preparer struct {
	rng     sequence.FeatureRange
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewPreparer(rng sequence.FeatureRange, metrics domrepo.Metrics) *Preparer {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Preparer{rng: rng, metrics: metrics, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (p *Preparer) SetLogger(l *applogger.Logger) { p.l = l }

// Prepare fits the scaler on the full series, builds sliding windows and
// splits them chronologically.
func (p *Preparer) Prepare(ctx context.Context, series models.PriceSeries, params PrepareParams) (*models.PreparedDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized, scaler, err := sequence.FitTransformSeries(series.Closes(), p.rng)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	ex, err := sequence.BuildWindows(normalized, params.WindowSize, params.Horizon)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	split, err := sequence.TrainTestSplitChronological(ex.Windows, ex.Targets, params.TestRatio)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}

	rng := scaler.Range()
	w, h := params.WindowSize, params.Horizon
	out := &models.PreparedDataset{
		WindowSize: w,
		Horizon:    h,
		TestRatio:  params.TestRatio,
		Examples:   ex.Len(),
		SplitIndex: split.Index,
		Scaler: models.ScalerBounds{
			DataMin:  scaler.DataMin(),
			DataMax:  scaler.DataMax(),
			RangeMin: rng.Min,
			RangeMax: rng.Max,
		},
		XTrain:    models.Shape{split.TrainLen(), w, 1},
		YTrain:    models.Shape{split.TrainLen(), h},
		XTest:     models.Shape{split.EvalLen(), w, 1},
		YTest:     models.Shape{split.EvalLen(), h},
		FirstDate: series.Points[ex.Anchors[0]].Date,
		SplitDate: series.Points[ex.Anchors[split.Index]].Date,
	}
	if params.IncludeExamples {
		out.TrainWindows = split.TrainWindows
		out.TrainTargets = split.TrainTargets
		out.EvalWindows = split.EvalWindows
		out.EvalTargets = split.EvalTargets
	}

	p.metrics.RecordExamples(ex.Len())
	p.l.Info("dataset prepared",
		applogger.String("symbol", series.Symbol),
		applogger.Int("rows", series.Len()),
		applogger.Ints("x_train", out.XTrain),
		applogger.Ints("y_train", out.YTrain),
		applogger.Ints("x_test", out.XTest),
		applogger.Ints("y_test", out.YTest),
	)
	if scaler.Degenerate() {
		p.l.Warn("constant close series, all windows are flat", applogger.String("symbol", series.Symbol))
	}
	return out, nil
}

// Summary previews a cleaned series.
func (p *Preparer) Summary(series models.PriceSeries, report models.CleanReport, tail int) models.SeriesSummary {
	return dataset.Summarize(series, report, tail)
}
