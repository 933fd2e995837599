package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"PriceLens/internal/model"
)

// PostgresStore persists observations and summary history to PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger

	Now func() time.Time
}

const (
	pingAttempts = 10
	pingInterval = 2 * time.Second
)

// NewPostgresStore opens a connection, waits for the server to answer and
// runs schema migrations. Cancelling ctx stops the wait.
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := waitForPing(ctx, db, pingAttempts, pingInterval, logger); err != nil {
		db.Close()
		return nil, err
	}

	ps := &PostgresStore{db: db, logger: logger, Now: time.Now}
	if err := ps.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	logger.Info("postgres store ready")
	return ps, nil
}

// pinger is the part of *sql.DB used while waiting for the server.
type pinger interface {
	PingContext(ctx context.Context) error
}

func waitForPing(ctx context.Context, db pinger, attempts int, interval time.Duration, logger *zap.Logger) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("postgres: ping: %w", ctxErr)
		}
		logger.Warn("postgres not ready", zap.Int("attempt", i+1), zap.Error(err))
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("postgres: ping failed after %d attempts: %w", attempts, err)
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, pgSchema)
	return err
}

// Prices are stored as DOUBLE PRECISION to read back exactly what was
// written, matching the SQLite REAL column.
const pgSchema = `
		CREATE TABLE IF NOT EXISTS observations (
			id          TEXT PRIMARY KEY,
			product     TEXT          NOT NULL,
			price       DOUBLE PRECISION NOT NULL,
			shop        TEXT          NOT NULL DEFAULT '',
			reporter_id TEXT          NOT NULL DEFAULT '',
			category    TEXT          NOT NULL DEFAULT '',
			area        TEXT          NOT NULL DEFAULT '',
			image_url   TEXT          NOT NULL DEFAULT '',
			observed_at TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_obs_product_ts  ON observations(product, observed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_obs_reporter_ts ON observations(reporter_id, observed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_obs_product_area ON observations(product, area);

		CREATE TABLE IF NOT EXISTS summary_snapshots (
			id              SERIAL PRIMARY KEY,
			recorded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			product         TEXT        NOT NULL,
			median_price    DOUBLE PRECISION,
			average_price   DOUBLE PRECISION,
			sample_size     INTEGER,
			raw_count       INTEGER,
			confidence      TEXT,
			trend_direction TEXT,
			trend_percent   DOUBLE PRECISION,
			window_days     INTEGER,
			degraded        BOOLEAN,
			reason          TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_product ON summary_snapshots(product, recorded_at);
	`

const pgColumns = `id, product, price, shop, reporter_id, category, area, image_url, observed_at`

func (ps *PostgresStore) FetchObservations(ctx context.Context, product, area string, windowDays, limit int) ([]model.PriceObservation, error) {
	q := `SELECT ` + pgColumns + ` FROM observations WHERE product = $1`
	args := []any{product}
	if area != "" {
		args = append(args, area)
		q += fmt.Sprintf(` AND area = $%d`, len(args))
	}
	if windowDays > 0 {
		args = append(args, windowStart(ps.Now(), windowDays))
		q += fmt.Sprintf(` AND observed_at >= $%d`, len(args))
	}
	q += ` ORDER BY observed_at DESC, id`
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return ps.query(ctx, q, args...)
}

func (ps *PostgresStore) FetchByReporter(ctx context.Context, reporterID string, limit int) ([]model.PriceObservation, error) {
	q := `SELECT ` + pgColumns + ` FROM observations WHERE reporter_id = $1 ORDER BY observed_at DESC, id`
	args := []any{reporterID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	return ps.query(ctx, q, args...)
}

func (ps *PostgresStore) query(ctx context.Context, q string, args ...any) ([]model.PriceObservation, error) {
	rows, err := ps.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query observations: %w", err)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var o model.PriceObservation
		if err := rows.Scan(&o.ID, &o.Product, &o.Price, &o.Shop, &o.ReporterID,
			&o.Category, &o.Area, &o.ImageURL, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if !model.ValidPrice(o.Price) {
			continue
		}
		o.ObservedAt = o.ObservedAt.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Add(ctx context.Context, obs *model.PriceObservation) error {
	if err := prepare(obs, ps.Now()); err != nil {
		return err
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	start, end := dayBounds(obs.ObservedAt)
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT 1 FROM observations
			WHERE reporter_id = $1 AND shop = $2 AND product = $3
			  AND observed_at >= $4 AND observed_at < $5)`,
		obs.ReporterID, obs.Shop, obs.Product, start, end,
	).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: check duplicate: %w", err)
	}
	if exists {
		return ErrDuplicateReport
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO observations (`+pgColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		obs.ID, obs.Product, obs.Price, obs.Shop, obs.ReporterID,
		obs.Category, obs.Area, obs.ImageURL, obs.ObservedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert observation: %w", err)
	}
	return tx.Commit()
}

func (ps *PostgresStore) RecordSummary(ctx context.Context, s model.AggregateSummary) error {
	var dir string
	var pct float64
	if s.Trend != nil {
		dir, pct = string(s.Trend.Direction), s.Trend.Percent
	}
	_, err := ps.db.ExecContext(ctx, `INSERT INTO summary_snapshots
		(product, median_price, average_price, sample_size, raw_count,
		 confidence, trend_direction, trend_percent, window_days, degraded, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		s.Product, s.MedianPrice, s.AveragePrice, s.SampleSize, s.RawCount,
		string(s.Confidence), dir, pct, s.WindowDays, s.Degraded, string(s.Reason),
	)
	if err != nil {
		return fmt.Errorf("postgres: record summary: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
