package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"StockCast/internal/di"
	"StockCast/internal/domain/models"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/services/dataset"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional config file; defaults apply when empty")
		window     = flag.Int("window", 0, "window size (overrides config)")
		horizon    = flag.Int("horizon", 0, "forecast horizon (overrides config)")
		testRatio  = flag.Float64("test-ratio", 0, "evaluation share in (0,1) (overrides config)")
		opts       runOptions
	)
	flag.StringVar(&opts.CSVPath, "csv", "", "price CSV with Date and Close columns")
	flag.StringVar(&opts.Symbol, "symbol", "", "ticker recorded with the series")
	flag.BoolVar(&opts.Examples, "examples", false, "include windows and targets in the output")
	flag.BoolVar(&opts.Forecast, "forecast", false, "also forecast the next horizon business days")
	flag.BoolVar(&opts.Ingest, "ingest", false, "store the cleaned closes in ClickHouse under -symbol")
	flag.Parse()

	if opts.CSVPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := applyOverrides(cfg, *window, *horizon, *testRatio); err != nil {
		log.Fatalf("invalid parameters: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatalf("prepare: %v", err)
	}
}

type runOptions struct {
	CSVPath  string
	Symbol   string
	Examples bool
	Forecast bool
	Ingest   bool
}

// applyOverrides replaces config values with positive flag values and
// revalidates. A min_rows derived from the window follows the new window and
// is never left below it.
func applyOverrides(cfg *config.Config, window, horizon int, testRatio float64) error {
	if window > 0 {
		if cfg.Forecast.MinRows == cfg.Sequence.WindowSize {
			cfg.Forecast.MinRows = window
		}
		cfg.Sequence.WindowSize = window
	}
	if horizon > 0 {
		cfg.Sequence.ForecastHorizon = horizon
	}
	if testRatio > 0 {
		cfg.Sequence.TestRatio = testRatio
	}
	if cfg.Forecast.MinRows < cfg.Sequence.WindowSize {
		cfg.Forecast.MinRows = cfg.Sequence.WindowSize
	}
	return cfg.Validate()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse([]byte("environment: cli\n"))
	}
	return config.LoadWithEnv(path)
}

type output struct {
	Summary  interface{} `json:"summary"`
	Dataset  interface{} `json:"dataset"`
	Forecast interface{} `json:"forecast,omitempty"`
}

func run(ctx context.Context, cfg *config.Config, opts runOptions, stdout io.Writer) error {
	// stdout carries the JSON result
	cfg.Log.Output = "stderr"
	l, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.CSVPath)
	if err != nil {
		return err
	}
	defer f.Close()

	series, report, err := dataset.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.CSVPath, err)
	}
	series.Symbol = opts.Symbol
	l.Info("csv loaded",
		applogger.String("file", opts.CSVPath),
		applogger.Int("rows", report.Rows),
		applogger.Int("dropped", report.DroppedRows),
		applogger.Int("duplicates", report.DuplicateRows),
	)

	rng, err := di.ProvideFeatureRange(cfg)
	if err != nil {
		return err
	}
	preparer := di.ProvidePreparer(rng, nil, l)

	out := output{Summary: preparer.Summary(series, report, 5)}
	out.Dataset, err = preparer.Prepare(ctx, series, usecase.PrepareParams{
		WindowSize:      cfg.Sequence.WindowSize,
		Horizon:         cfg.Sequence.ForecastHorizon,
		TestRatio:       cfg.Sequence.TestRatio,
		IncludeExamples: opts.Examples,
	})
	if err != nil {
		return err
	}

	if opts.Forecast {
		p, err := di.ProvidePredictor(cfg, rng, nil, l)
		if err != nil {
			return err
		}
		fc, err := usecase.NewForecaster(usecase.ForecastConfig{
			WindowSize:    cfg.Sequence.WindowSize,
			Horizon:       cfg.Sequence.ForecastHorizon,
			MinRows:       cfg.Forecast.MinRows,
			HistoryPoints: cfg.Forecast.HistoryPoints,
			FeatureRange:  rng,
			SMAPeriods:    cfg.Forecast.SMAPeriods,
		}, p)
		if err != nil {
			return err
		}
		fc.SetLogger(l)
		if out.Forecast, err = fc.Forecast(ctx, series); err != nil {
			return err
		}
	}

	if opts.Ingest {
		if err := ingestSeries(ctx, cfg, l, series); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func ingestSeries(ctx context.Context, cfg *config.Config, l *applogger.Logger, series models.PriceSeries) error {
	if series.Symbol == "" {
		return fmt.Errorf("-ingest needs -symbol")
	}
	cfg.ClickHouse.Enabled = true
	ch, err := di.ProvideClickHouseClient(cfg, l)
	if err != nil {
		return err
	}
	defer ch.Close()

	store := internalrepo.NewCHPriceStore(ch)
	store.SetLogger(l)
	if err := store.StoreDailyCloses(ctx, series); err != nil {
		return err
	}
	l.Info("closes stored", applogger.String("symbol", series.Symbol), applogger.Int("rows", series.Len()))
	return nil
}
