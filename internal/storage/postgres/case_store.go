// Package postgres provides a Postgres-backed case store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "cases"

// Config controls the Postgres connection pool used for case rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// EnsureSchema creates the table when it does not exist.
	EnsureSchema bool
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// CaseStore appends case rows to a single table. Orders are stored as JSONB
// using the same field names as the document store.
type CaseStore struct {
	pool  execCloser
	table string
	now   func() time.Time
}

// NewCaseStore creates a Postgres-backed CaseStore using the provided config.
func NewCaseStore(ctx context.Context, cfg Config) (*CaseStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &CaseStore{pool: pool, table: table, now: time.Now}
	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewCaseStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewCaseStoreWithPool(pool execCloser, table string) (*CaseStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &CaseStore{pool: pool, table: table, now: time.Now}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the case table if it is missing.
func (s *CaseStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id         UUID PRIMARY KEY,
	case_info  TEXT NOT NULL,
	parties    TEXT NOT NULL,
	status     TEXT NOT NULL,
	next_date  TEXT NOT NULL,
	orders     JSONB NOT NULL,
	crawled_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *CaseStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// Insert appends one case row.
func (s *CaseStore) Insert(ctx context.Context, record crawler.CaseRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("case store is not configured")
	}
	if record.CaseInfo == "" {
		return fmt.Errorf("case_info is required")
	}
	orders := record.Orders
	if orders == nil {
		orders = []crawler.OrderRecord{}
	}
	ordersJSON, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate row id: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	case_info,
	parties,
	status,
	next_date,
	orders,
	crawled_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)`, s.table)

	args := []any{
		id.String(),
		record.CaseInfo,
		record.Parties,
		record.Status,
		record.NextHearingDate,
		ordersJSON,
		s.now().UTC(),
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}
