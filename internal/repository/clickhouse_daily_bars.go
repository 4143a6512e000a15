package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"StockTracker/internal/domain/models"
	pkgch "StockTracker/pkg/clickhouse"
	applogger "StockTracker/pkg/logger"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CHDailyBars implements HistoricalSource over a ClickHouse daily-bars table.
type CHDailyBars struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

// NewCHDailyBars creates the source. table may be qualified ("db.table").
func NewCHDailyBars(ch *pkgch.Client, table string, l *applogger.Logger) (*CHDailyBars, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHDailyBars{ch: ch, db: ch.DB(), table: table, l: l, now: time.Now}, nil
}

// Schema returns the DDL for the daily-bars table.
func (s *CHDailyBars) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            day    Date,
            symbol LowCardinality(String),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, day)
    `, s.table)}
}

// Name implements HistoricalSource.
func (s *CHDailyBars) Name() string { return "clickhouse" }

// Close releases the connection pool.
func (s *CHDailyBars) Close() error { return s.ch.Close() }

// FetchHistorical reads bars for symbol within period. An empty result is ErrDataUnavailable.
func (s *CHDailyBars) FetchHistorical(ctx context.Context, symbol, period string) (*models.PriceSeries, error) {
	p, err := models.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("historical %s: %w", symbol, err)
	}
	start := time.Now()
	since := p.Since(s.now())
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}

	const qtpl = `
        SELECT day, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND day >= ?
        ORDER BY day ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, since)
	if err != nil {
		s.l.Error("clickhouse daily_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("historical %s: %w: %v", symbol, models.ErrDataUnavailable, err)
	}
	defer rows.Close()

	bars := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("historical %s: scan bar: %w", symbol, err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("historical %s: rows: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("historical %s: %w: no rows in %s", symbol, models.ErrDataUnavailable, s.table)
	}

	s.l.Debug("clickhouse daily_bars ok",
		applogger.String("symbol", symbol),
		applogger.String("period", string(p)),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return &models.PriceSeries{
		Symbol:    symbol,
		Source:    s.Name(),
		Interval:  "1d",
		Bars:      models.NormalizeBars(bars),
		FetchedAt: s.now(),
	}, nil
}
