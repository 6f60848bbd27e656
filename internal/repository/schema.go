package repository

import "fmt"

const (
	pricesTable    = "daily_prices"
	forecastsTable = "forecasts"
)

// Schema returns idempotent DDL for the price and forecast tables in db.
func Schema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            symbol LowCardinality(String),
            date Date,
            close Float64,
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at) ORDER BY (symbol, date)`, db, pricesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            id String,
            symbol LowCardinality(String),
            model LowCardinality(String),
            generated_at DateTime64(3),
            last_date Date,
            last_close Float64,
            window_size UInt32,
            horizon UInt32,
            data_min Float64,
            data_max Float64,
            forecast_dates Array(Date),
            forecast_prices Array(Float64)
        ) ENGINE = MergeTree ORDER BY (symbol, generated_at)`, db, forecastsTable),
	}
}
