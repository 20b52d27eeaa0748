package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onionwatch/onionwatch/internal/tracker"
)

// FilterStore persists keyword match records in Postgres.
type FilterStore struct {
	pool  dbPool
	table string
}

// NewFilterStore connects a pool and ensures the filter table exists.
func NewFilterStore(ctx context.Context, cfg Config) (*FilterStore, error) {
	table := cfg.Table
	if table == "" {
		table = "filtered_links"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &FilterStore{pool: pool, table: table}
	if err := s.Init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewFilterStoreWithPool constructs a store from an existing pool (primarily
// for testing). Init is not called.
func NewFilterStoreWithPool(pool dbPool, table string) (*FilterStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "filtered_links"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &FilterStore{pool: pool, table: table}, nil
}

// Init creates the filter table if absent.
func (s *FilterStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	matched_keywords TEXT[] NOT NULL DEFAULT '{}',
	context_snippet TEXT NOT NULL DEFAULT ''
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create filter table: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *FilterStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertMatch replaces the full row for the address; a rescan always reflects
// the latest page content.
func (s *FilterStore) UpsertMatch(ctx context.Context, record tracker.FilterRecord) error {
	if record.Address == "" {
		return fmt.Errorf("address is required")
	}
	if len(record.MatchedKeywords) == 0 {
		return fmt.Errorf("matched keywords are required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, title, matched_keywords, context_snippet)
VALUES ($1, $2, $3, $4)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	matched_keywords = EXCLUDED.matched_keywords,
	context_snippet = EXCLUDED.context_snippet`, s.table)
	_, err := s.pool.Exec(ctx, query,
		record.Address, record.Title, record.MatchedKeywords, record.ContextSnippet)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

// GetMatch fetches one match record by address.
func (s *FilterStore) GetMatch(ctx context.Context, address string) (tracker.FilterRecord, bool, error) {
	query := fmt.Sprintf(`
SELECT url, title, matched_keywords, context_snippet FROM %s WHERE url = $1`, s.table)
	var rec tracker.FilterRecord
	err := s.pool.QueryRow(ctx, query, address).
		Scan(&rec.Address, &rec.Title, &rec.MatchedKeywords, &rec.ContextSnippet)
	if errors.Is(err, pgx.ErrNoRows) {
		return tracker.FilterRecord{}, false, nil
	}
	if err != nil {
		return tracker.FilterRecord{}, false, fmt.Errorf("select match: %w", err)
	}
	return rec, true, nil
}
