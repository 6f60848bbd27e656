package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

const insertChunkSize = 2000

// CHPriceStore reads and writes daily closes in ClickHouse.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client) *CHPriceStore {
	return &CHPriceStore{db: ch.DB(), table: ch.Database() + "." + pricesTable}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

// GetDailyCloses returns the most recent limit closes for symbol in
// ascending date order. FINAL collapses re-ingested dates.
func (s *CHPriceStore) GetDailyCloses(ctx context.Context, symbol string, limit int) (models.PriceSeries, error) {
	start := time.Now()
	series := models.PriceSeries{Symbol: symbol}

	q := fmt.Sprintf(`
        SELECT date, close
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		s.logError("clickhouse daily_closes query error", symbol, err)
		return series, fmt.Errorf("get daily closes: %w", err)
	}
	defer rows.Close()

	points := make([]models.PricePoint, 0, limit)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			s.logError("clickhouse daily_closes scan error", symbol, err)
			return series, fmt.Errorf("scan close: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse daily_closes rows error", symbol, err)
		return series, fmt.Errorf("rows: %w", err)
	}

	reversePoints(points)
	series.Points = points
	if s.l != nil {
		s.l.Info("clickhouse daily_closes ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(points)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return series, nil
}

// StoreDailyCloses inserts series in chunks of multi-row VALUES.
func (s *CHPriceStore) StoreDailyCloses(ctx context.Context, series models.PriceSeries) error {
	if series.Symbol == "" {
		return fmt.Errorf("store daily closes: symbol is required")
	}
	for start := 0; start < len(series.Points); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(series.Points) {
			end = len(series.Points)
		}
		q, args := buildPriceInsert(s.table, series.Symbol, series.Points[start:end])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logError("clickhouse daily_closes insert error", series.Symbol, err)
			return fmt.Errorf("insert daily closes: %w", err)
		}
	}
	return nil
}

func buildPriceInsert(table, symbol string, points []models.PricePoint) (string, []interface{}) {
	values := make([]string, len(points))
	args := make([]interface{}, 0, len(points)*3)
	for i, p := range points {
		values[i] = "(?, ?, ?)"
		args = append(args, symbol, p.Date, p.Close)
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, close) VALUES %s", table, strings.Join(values, ","))
	return q, args
}

func reversePoints(ps []models.PricePoint) {
	for i, j := 0, len(ps)-1; i < j; i, j = i+1, j-1 {
		ps[i], ps[j] = ps[j], ps[i]
	}
}

func (s *CHPriceStore) logError(msg, symbol string, err error) {
	if s.l != nil {
		s.l.Error(msg,
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

var (
	_ domrepo.PriceStore  = (*CHPriceStore)(nil)
	_ domrepo.PriceWriter = (*CHPriceStore)(nil)
)
