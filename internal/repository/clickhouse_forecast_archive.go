package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

// CHForecastArchive appends completed forecasts to ClickHouse.
type CHForecastArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHForecastArchive(ch *pkgch.Client) *CHForecastArchive {
	return &CHForecastArchive{db: ch.DB(), table: ch.Database() + "." + forecastsTable}
}

// SetLogger injects a structured logger.
func (a *CHForecastArchive) SetLogger(l *applogger.Logger) { a.l = l }

func (a *CHForecastArchive) SaveForecast(ctx context.Context, r *models.ForecastResult) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, symbol, model, generated_at, last_date, last_close,
        window_size, horizon, data_min, data_max, forecast_dates, forecast_prices)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.table)
	if _, err := a.db.ExecContext(ctx, q, forecastArgs(r)...); err != nil {
		if a.l != nil {
			a.l.Error("clickhouse save_forecast error",
				applogger.String("table", a.table),
				applogger.String("id", r.ID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save forecast: %w", err)
	}
	return nil
}

func forecastArgs(r *models.ForecastResult) []interface{} {
	dates := make([]time.Time, len(r.Forecast))
	prices := make([]float64, len(r.Forecast))
	for i, p := range r.Forecast {
		dates[i] = p.Date
		prices[i] = p.Price
	}
	return []interface{}{
		r.ID,
		r.Symbol,
		r.Model,
		r.GeneratedAt,
		r.LastDate,
		r.LastClose,
		uint32(r.WindowSize),
		uint32(r.Horizon),
		r.Scaler.DataMin,
		r.Scaler.DataMax,
		dates,
		prices,
	}
}

var _ domrepo.ForecastArchive = (*CHForecastArchive)(nil)
