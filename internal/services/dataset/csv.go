package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/features"
	"StockCast/pkg/util"
)

var (
	// ErrMissingColumns means the header lacks a date or close column.
	ErrMissingColumns = errors.New("csv must contain 'Date' and 'Close' columns (case-insensitive)")
	// ErrNoRows means no row survived cleaning.
	ErrNoRows = errors.New("no valid rows after cleaning")
	// ErrInvalidCSV wraps reader failures.
	ErrInvalidCSV = errors.New("could not read csv")
)

const (
	dateColumn  = "date"
	closeColumn = "close"
)

// ReadCSV reads a price file with at least Date and Close columns. Header
// names are matched case-insensitively after trimming. Rows with an
// unparseable date or close are dropped, the rest are sorted by date, and for
// repeated dates the later row wins.
func ReadCSV(r io.Reader) (models.PriceSeries, models.CleanReport, error) {
	var report models.CleanReport

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.PriceSeries{}, report, fmt.Errorf("%w: empty file", ErrInvalidCSV)
		}
		return models.PriceSeries{}, report, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	dateIdx, closeIdx := columnIndex(header)
	if dateIdx < 0 || closeIdx < 0 {
		return models.PriceSeries{}, report, ErrMissingColumns
	}

	points := make([]models.PricePoint, 0, 1024)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.PriceSeries{}, report, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		report.TotalRows++

		if dateIdx >= len(rec) || closeIdx >= len(rec) {
			report.DroppedRows++
			continue
		}
		d, ok := util.ParseDate(rec[dateIdx])
		if !ok {
			report.DroppedRows++
			continue
		}
		c, ok := ParseClose(rec[closeIdx])
		if !ok {
			report.DroppedRows++
			continue
		}
		points = append(points, models.PricePoint{Date: util.TruncateDay(d), Close: c})
	}

	points, dups := sortDedup(points)
	report.DuplicateRows = dups
	report.Rows = len(points)
	if len(points) == 0 {
		return models.PriceSeries{}, report, ErrNoRows
	}
	return models.PriceSeries{Points: points}, report, nil
}

// ParseClose parses a close price such as "4,533.90" or " $12.5 ".
func ParseClose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimLeft(s, "$₹€£ ")
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func columnIndex(header []string) (dateIdx, closeIdx int) {
	dateIdx, closeIdx = -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch name {
		case dateColumn:
			if dateIdx < 0 {
				dateIdx = i
			}
		case closeColumn:
			if closeIdx < 0 {
				closeIdx = i
			}
		}
	}
	return dateIdx, closeIdx
}

// sortDedup orders points by date and keeps the last row for each date.
func sortDedup(points []models.PricePoint) ([]models.PricePoint, int) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	out := points[:0]
	dups := 0
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			dups++
			continue
		}
		out = append(out, p)
	}
	return out, dups
}

// Summarize builds a preview of a cleaned series.
func Summarize(s models.PriceSeries, report models.CleanReport, tail int) models.SeriesSummary {
	sum := models.SeriesSummary{Symbol: s.Symbol, Rows: s.Len(), Report: report}
	if s.Len() == 0 {
		return sum
	}
	sum.FirstDate = s.Points[0].Date
	last, _ := s.Last()
	sum.LastDate = last.Date
	sum.LastClose = last.Close
	closes := s.Closes()
	sum.MinClose, sum.MaxClose = floats.Min(closes), floats.Max(closes)
	sum.Volatility = features.AnnualizedVolatility(features.LogReturns(s.Points), 0)
	sum.Tail = s.Tail(tail)
	return sum
}
