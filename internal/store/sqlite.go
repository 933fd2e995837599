package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"PriceLens/internal/model"
)

// SQLiteStore persists observations and summary history to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger

	Now func() time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers aggregate while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger, Now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			id          TEXT PRIMARY KEY,
			product     TEXT NOT NULL,
			price       REAL NOT NULL,
			shop        TEXT NOT NULL DEFAULT '',
			reporter_id TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			area        TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL DEFAULT '',
			observed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_product_ts ON observations(product, observed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_reporter_ts ON observations(reporter_id, observed_at)`,

		`CREATE TABLE IF NOT EXISTS summary_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			product         TEXT NOT NULL,
			median_price    REAL,
			average_price   REAL,
			sample_size     INTEGER,
			raw_count       INTEGER,
			confidence      TEXT,
			trend_direction TEXT,
			trend_percent   REAL,
			window_days     INTEGER,
			degraded        INTEGER,
			reason          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_product_ts ON summary_snapshots(product, timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

const sqliteColumns = `id, product, price, shop, reporter_id, category, area, image_url, observed_at`

func (s *SQLiteStore) FetchObservations(ctx context.Context, product, area string, windowDays, limit int) ([]model.PriceObservation, error) {
	q := `SELECT ` + sqliteColumns + ` FROM observations WHERE product = ? AND price > 0`
	args := []any{product}
	if area != "" {
		q += ` AND area = ?`
		args = append(args, area)
	}
	if windowDays > 0 {
		q += ` AND observed_at >= ?`
		args = append(args, windowStart(s.Now(), windowDays).UnixMilli())
	}
	q += ` ORDER BY observed_at DESC, id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, q, args...)
}

func (s *SQLiteStore) FetchByReporter(ctx context.Context, reporterID string, limit int) ([]model.PriceObservation, error) {
	q := `SELECT ` + sqliteColumns + ` FROM observations WHERE reporter_id = ? AND price > 0 ORDER BY observed_at DESC, id`
	args := []any{reporterID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, q, args...)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]model.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query observations: %w", err)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var o model.PriceObservation
		var ts int64
		if err := rows.Scan(&o.ID, &o.Product, &o.Price, &o.Shop, &o.ReporterID,
			&o.Category, &o.Area, &o.ImageURL, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan observation: %w", err)
		}
		o.ObservedAt = time.UnixMilli(ts).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Add(ctx context.Context, obs *model.PriceObservation) error {
	if err := prepare(obs, s.Now()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	start, end := dayBounds(obs.ObservedAt)
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations
		WHERE reporter_id = ? AND shop = ? AND product = ? AND observed_at >= ? AND observed_at < ?`,
		obs.ReporterID, obs.Shop, obs.Product, start.UnixMilli(), end.UnixMilli(),
	).Scan(&n); err != nil {
		return fmt.Errorf("sqlite: check duplicate: %w", err)
	}
	if n > 0 {
		return ErrDuplicateReport
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO observations (`+sqliteColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		obs.ID, obs.Product, obs.Price, obs.Shop, obs.ReporterID,
		obs.Category, obs.Area, obs.ImageURL, obs.ObservedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("sqlite: insert observation: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordSummary(ctx context.Context, sum model.AggregateSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dir string
	var pct float64
	if sum.Trend != nil {
		dir, pct = string(sum.Trend.Direction), sum.Trend.Percent
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO summary_snapshots
		(timestamp, product, median_price, average_price, sample_size, raw_count,
		 confidence, trend_direction, trend_percent, window_days, degraded, reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.Now().Unix(), sum.Product, sum.MedianPrice, sum.AveragePrice, sum.SampleSize, sum.RawCount,
		string(sum.Confidence), dir, pct, sum.WindowDays, sum.Degraded, string(sum.Reason),
	)
	return err
}

// CountSnapshots returns how many summaries were recorded for product.
func (s *SQLiteStore) CountSnapshots(ctx context.Context, product string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summary_snapshots WHERE product = ?`, product).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i > 0 {
		return stmt[:i]
	}
	return stmt
}
