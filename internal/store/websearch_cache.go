package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry/websearch"
)

// Get implements websearch.Cache, reporting a miss once the stored row is
// older than maxAge.
func (db *DB) Get(ctx context.Context, key string, maxAge time.Duration) ([]websearch.Result, bool, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT results, created_at FROM websearch_cache WHERE cache_key = ?`, key)

	var results string
	var createdAt int64
	err := row.Scan(&results, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if maxAge > 0 && time.Since(time.Unix(createdAt, 0).UTC()) > maxAge {
		return nil, false, nil
	}

	var out []websearch.Result
	if err := json.Unmarshal([]byte(results), &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Put implements websearch.Cache, overwriting any prior entry under key.
func (db *DB) Put(ctx context.Context, key, query, provider string, results []websearch.Result) error {
	if results == nil {
		results = []websearch.Result{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO websearch_cache (cache_key, query, provider, results, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			query = excluded.query,
			provider = excluded.provider,
			results = excluded.results,
			created_at = excluded.created_at`,
		key, query, provider, string(b), time.Now().UTC().Unix())
	return err
}
