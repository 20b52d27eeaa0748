// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onionwatch/onionwatch/internal/tracker"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool behind a store. MaxConns must
// cover the verifier worker pool so no probe ever starves waiting for a
// connection.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// dbPool is the subset of pgxpool.Pool the stores use; pgxmock satisfies it.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

func newPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
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
	return pool, nil
}

// LinkStore persists liveness state in Postgres.
type LinkStore struct {
	pool  dbPool
	table string
}

// NewLinkStore connects a pool and ensures the links table exists.
func NewLinkStore(ctx context.Context, cfg Config) (*LinkStore, error) {
	table := cfg.Table
	if table == "" {
		table = "onion_links"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &LinkStore{pool: pool, table: table}
	if err := s.Init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewLinkStoreWithPool constructs a store from an existing pool (primarily
// for testing). Init is not called.
func NewLinkStoreWithPool(pool dbPool, table string) (*LinkStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "onion_links"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &LinkStore{pool: pool, table: table}, nil
}

// Init creates the links table if absent.
func (s *LinkStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	last_seen TIMESTAMPTZ
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create links table: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *LinkStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordProbe upserts the probe outcome in one statement. The conflict branch
// overwrites status unconditionally but keeps the stored last_seen when the
// outcome is dead, so the last-known-alive time survives.
func (s *LinkStore) RecordProbe(ctx context.Context, address string, alive bool, observedAt time.Time) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	status := tracker.StatusDead
	var lastSeen *time.Time
	if alive {
		status = tracker.StatusAlive
		seen := observedAt.UTC()
		lastSeen = &seen
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (url, status, last_seen)
VALUES ($1, $2, $3)
ON CONFLICT (url) DO UPDATE SET
	status = EXCLUDED.status,
	last_seen = CASE
		WHEN EXCLUDED.status = 'alive' THEN EXCLUDED.last_seen
		ELSE %[1]s.last_seen
	END`, s.table)
	if _, err := s.pool.Exec(ctx, query, address, string(status), lastSeen); err != nil {
		return fmt.Errorf("record probe: %w", err)
	}
	return nil
}

// GetLink fetches one record by address.
func (s *LinkStore) GetLink(ctx context.Context, address string) (tracker.LinkRecord, bool, error) {
	query := fmt.Sprintf(`SELECT url, status, last_seen FROM %s WHERE url = $1`, s.table)
	var (
		rec      tracker.LinkRecord
		status   string
		lastSeen *time.Time
	)
	err := s.pool.QueryRow(ctx, query, address).Scan(&rec.Address, &status, &lastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return tracker.LinkRecord{}, false, nil
	}
	if err != nil {
		return tracker.LinkRecord{}, false, fmt.Errorf("select link: %w", err)
	}
	rec.Status = tracker.Status(status)
	rec.LastSeen = lastSeen
	return rec, true, nil
}

// ListAlive enumerates alive addresses in stable order.
func (s *LinkStore) ListAlive(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT url FROM %s WHERE status = $1 ORDER BY url`, s.table)
	rows, err := s.pool.Query(ctx, query, string(tracker.StatusAlive))
	if err != nil {
		return nil, fmt.Errorf("select alive links: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan alive link: %w", err)
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alive links: %w", err)
	}
	return addresses, nil
}

// DeleteDeadBefore removes dead rows never seen alive or last seen before
// cutoff, returning the number deleted.
func (s *LinkStore) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`
DELETE FROM %s
WHERE status = $1 AND (last_seen IS NULL OR last_seen < $2)`, s.table)
	tag, err := s.pool.Exec(ctx, query, string(tracker.StatusDead), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete dead links: %w", err)
	}
	return tag.RowsAffected(), nil
}
