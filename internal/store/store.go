// Package store persists per-user provider settings and the session history.
// It runs on SQLite (pure Go) for local use and on PostgreSQL through pgx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"unityarchitect/internal/llm"
	"unityarchitect/internal/models"
)

var ErrNotFound = errors.New("not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ai_configs (
		user_id       TEXT PRIMARY KEY,
		provider_type TEXT NOT NULL,
		model_name    TEXT NOT NULL DEFAULT '',
		api_key       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		session_id    TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		title         TEXT NOT NULL,
		intent        TEXT NOT NULL,
		original_code TEXT NOT NULL,
		ai_suggestion TEXT NOT NULL,
		smells        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS history_user_created ON history (user_id, created_at)`,
}

// Store is safe for concurrent use.
type Store struct {
	db       *sql.DB
	driver   string
	defaults models.ProviderConfig
}

type Option func(*Store)

// WithDefaultConfig sets the provider settings returned for users without a row.
func WithDefaultConfig(cfg models.ProviderConfig) Option {
	return func(s *Store) { s.defaults = cfg }
}

// Open connects to the database and creates missing tables.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
	case DriverPostgres, "pgx":
		driver, sqlDriver = DriverPostgres, "pgx"
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", driver, err)
	}

	s := &Store{
		db:       db,
		driver:   driver,
		defaults: models.ProviderConfig{Kind: models.KindLocalModel, ModelName: llm.DefaultOllamaModel},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logrus.Infof("Storage ready (%s)", driver)
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
