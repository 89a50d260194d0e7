// Package cache is the SQLite-backed section cache and run ledger.
// Sections are keyed by the content hash of the inputs that produced
// them; a hit means the documented code is unchanged and costs nothing.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sunprojectca/DocGen/internal/types"
)

// DefaultPath is the cache database location relative to the repo root.
const DefaultPath = ".docgen/docgen.db"

// Cache wraps the SQLite database.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path. The special
// path ":memory:" creates an in-memory database for tests.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GetSection looks up a cached section by content hash. A miss returns
// (nil, nil). Hits bump the section's hit counter.
func (c *Cache) GetSection(ctx context.Context, contentHash string) (*types.DocSection, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT content_hash, kind, path, title, markdown, model,
		       input_tokens, output_tokens, created_at
		FROM sections WHERE content_hash = ?`, contentHash)

	var s types.DocSection
	err := row.Scan(&s.ContentHash, &s.Kind, &s.Path, &s.Title, &s.Markdown,
		&s.Model, &s.InputTokens, &s.OutputTokens, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read section: %w", err)
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE sections SET hits = hits + 1 WHERE content_hash = ?`, contentHash); err != nil {
		return nil, fmt.Errorf("failed to record cache hit: %w", err)
	}

	s.FromCache = true
	return &s, nil
}

// PutSection stores a generated section, replacing any previous entry for
// the same content hash.
func (c *Cache) PutSection(ctx context.Context, s *types.DocSection) error {
	if s.ContentHash == "" {
		return fmt.Errorf("section has no content hash")
	}

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sections
		(content_hash, kind, path, title, markdown, model, input_tokens, output_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ContentHash, s.Kind, s.Path, s.Title, s.Markdown, s.Model,
		s.InputTokens, s.OutputTokens, createdAt)
	if err != nil {
		return fmt.Errorf("failed to store section: %w", err)
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Sections    int   `json:"sections"`
	TotalHits   int64 `json:"total_hits"`
	TotalBytes  int64 `json:"total_bytes"`
	TokensSaved int64 `json:"tokens_saved"` // hits × section token cost
}

// GetStats returns cache statistics.
func (c *Cache) GetStats(ctx context.Context) (*Stats, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(hits), 0),
		       COALESCE(SUM(LENGTH(markdown)), 0),
		       COALESCE(SUM(hits * (input_tokens + output_tokens)), 0)
		FROM sections`)

	var s Stats
	if err := row.Scan(&s.Sections, &s.TotalHits, &s.TotalBytes, &s.TokensSaved); err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return &s, nil
}

// Purge deletes all cached sections and returns how many were removed.
// The run ledger is preserved.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM sections`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `VACUUM`); err != nil {
		return n, fmt.Errorf("purged %d sections but vacuum failed: %w", n, err)
	}
	return n, nil
}

// StartRun inserts a run in the running state.
func (c *Cache) StartRun(ctx context.Context, run *types.Run) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, repo_path, started_at, status)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.RepoPath, run.StartedAt.UTC(), types.RunRunning)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun updates a run's terminal state and counters.
func (c *Cache) FinishRun(ctx context.Context, run *types.Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, files_scanned = ?,
		       packages = ?, sections_new = ?, sections_cached = ?,
		       input_tokens = ?, output_tokens = ?, cost_usd = ?, error = ?
		WHERE id = ?`,
		finished, run.Status, run.FilesScanned, run.Packages,
		run.SectionsNew, run.SectionsCache, run.InputTokens,
		run.OutputTokens, run.CostUSD, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to verify run update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (c *Cache) ListRuns(ctx context.Context, limit int) ([]*types.Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, repo_path, started_at, finished_at, status,
		       files_scanned, packages, sections_new, sections_cached,
		       input_tokens, output_tokens, cost_usd, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*types.Run
	for rows.Next() {
		var (
			r        types.Run
			finished sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.RepoPath, &r.StartedAt, &finished, &r.Status,
			&r.FilesScanned, &r.Packages, &r.SectionsNew, &r.SectionsCache,
			&r.InputTokens, &r.OutputTokens, &r.CostUSD, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// GetConfig reads a value from the cache's config table. Missing keys
// return "".
func (c *Cache) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read config %s: %w", key, err)
	}
	return value, nil
}

// SetConfig writes a value to the cache's config table.
func (c *Cache) SetConfig(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write config %s: %w", key, err)
	}
	return nil
}
