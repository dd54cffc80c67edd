// Package repository persists intake run records and the geocode cache.
// A DSN starting with postgres:// opens PostgreSQL through pgx; anything
// else is treated as a SQLite file path.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dellqs/qsintake/internal/geocode"
)

// Store wraps the SQL database used for run history and geocode caching.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// RunRecord is one persisted intake run.
type RunRecord struct {
	ProjectID        string
	InputPath        string
	ProjectType      string
	Status           string
	Recommendation   string
	CompletenessPct  float64
	TotalDocuments   int
	TotalDrawings    int
	WarningCount     int
	ErrorCount       int
	ProcessingTimeMS int64
	CreatedAt        time.Time
}

// Open connects and ensures the schema exists.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, driver: driver, logger: logger}
	if err := s.initSchema(driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("store.open.ok", "driver", driver)
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema(driver string) error {
	if driver == "sqlite" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("set WAL mode: %w", err)
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS intake_runs (
			project_id         TEXT NOT NULL,
			input_path         TEXT NOT NULL,
			project_type       TEXT NOT NULL,
			status             TEXT NOT NULL,
			recommendation     TEXT NOT NULL,
			completeness_pct   REAL NOT NULL,
			total_documents    INTEGER NOT NULL,
			total_drawings     INTEGER NOT NULL,
			warning_count      INTEGER NOT NULL,
			error_count        INTEGER NOT NULL,
			processing_time_ms INTEGER NOT NULL,
			created_at         TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intake_runs_project ON intake_runs(project_id)`,
		`CREATE TABLE IF NOT EXISTS geocode_cache (
			cache_key  TEXT PRIMARY KEY,
			location   TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $N for the pgx driver. Queries are
// written in SQLite style since that is the default backend.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveRun records one completed intake run.
func (s *Store) SaveRun(ctx context.Context, rec RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO intake_runs (
			project_id, input_path, project_type, status, recommendation,
			completeness_pct, total_documents, total_drawings,
			warning_count, error_count, processing_time_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ProjectID, rec.InputPath, rec.ProjectType, rec.Status, rec.Recommendation,
		rec.CompletenessPct, rec.TotalDocuments, rec.TotalDrawings,
		rec.WarningCount, rec.ErrorCount, rec.ProcessingTimeMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert intake run: %w", err)
	}
	s.logger.Info("store.run.saved", "project_id", rec.ProjectID)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT project_id, input_path, project_type, status, recommendation,
			completeness_pct, total_documents, total_drawings,
			warning_count, error_count, processing_time_ms, created_at
		FROM intake_runs ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query intake runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ProjectID, &rec.InputPath, &rec.ProjectType, &rec.Status, &rec.Recommendation,
			&rec.CompletenessPct, &rec.TotalDocuments, &rec.TotalDrawings,
			&rec.WarningCount, &rec.ErrorCount, &rec.ProcessingTimeMS, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan intake run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GeocodeCache adapts the store to the geocode.Cache interface so hits
// survive across runs. Lookup errors degrade to cache misses.
type GeocodeCache struct {
	store *Store
}

func (s *Store) GeocodeCache() *GeocodeCache { return &GeocodeCache{store: s} }

func (c *GeocodeCache) Get(key string) (*geocode.Location, bool) {
	var raw string
	err := c.store.db.QueryRow(
		c.store.rebind(`SELECT location FROM geocode_cache WHERE cache_key = ?`), key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.store.logger.Warn("store.geocode_cache.get.failed", "key", key, "error", err)
		return nil, false
	}
	var loc geocode.Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		c.store.logger.Warn("store.geocode_cache.decode.failed", "key", key, "error", err)
		return nil, false
	}
	return &loc, true
}

func (c *GeocodeCache) Put(key string, loc *geocode.Location) {
	raw, err := json.Marshal(loc)
	if err != nil {
		c.store.logger.Warn("store.geocode_cache.encode.failed", "key", key, "error", err)
		return
	}
	_, err = c.store.db.Exec(
		c.store.rebind(`INSERT INTO geocode_cache (cache_key, location, created_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET location = excluded.location, created_at = excluded.created_at`),
		key, string(raw), time.Now().UTC(),
	)
	if err != nil {
		c.store.logger.Warn("store.geocode_cache.put.failed", "key", key, "error", err)
	}
}
