package knowledge

// tracker.go records which local documents are already indexed.
//
// Each ingested file is tracked in the kb_files table by content hash and
// size. Re-running ingestion only re-embeds files whose content changed,
// which keeps repeated runs cheap.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FileState is a tracked document in the kb_files table.
type FileState struct {
	Path      string
	SHA256    string
	Size      int64
	IndexedAt time.Time
}

// Tracker persists ingestion state in the kb_files table.
//
// Tracker is safe for concurrent use by multiple goroutines.
type Tracker struct {
	pool *pgxpool.Pool
}

// NewTracker creates a Tracker backed by the given pool.
func NewTracker(pool *pgxpool.Pool) *Tracker {
	return &Tracker{pool: pool}
}

// Changed reports whether the file at path needs (re-)indexing: it is
// unknown, or its hash or size differs from the recorded state.
func (t *Tracker) Changed(ctx context.Context, path, sha256 string, size int64) (bool, error) {
	var recordedSHA string
	var recordedSize int64
	err := t.pool.QueryRow(ctx,
		`SELECT sha256, size FROM kb_files WHERE path = $1`, path,
	).Scan(&recordedSHA, &recordedSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking tracked file %s: %w", path, err)
	}
	return recordedSHA != sha256 || recordedSize != size, nil
}

// Record upserts the tracked state for a file after successful indexing.
func (t *Tracker) Record(ctx context.Context, path, sha256 string, size int64) error {
	_, err := t.pool.Exec(ctx,
		`INSERT INTO kb_files (path, sha256, size, indexed_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (path) DO UPDATE
		 SET sha256 = EXCLUDED.sha256, size = EXCLUDED.size, indexed_at = now()`,
		path, sha256, size,
	)
	if err != nil {
		return fmt.Errorf("recording tracked file %s: %w", path, err)
	}
	return nil
}

// Forget removes the tracked state for a file. Unknown paths are not an error.
func (t *Tracker) Forget(ctx context.Context, path string) error {
	if _, err := t.pool.Exec(ctx, `DELETE FROM kb_files WHERE path = $1`, path); err != nil {
		return fmt.Errorf("forgetting tracked file %s: %w", path, err)
	}
	return nil
}

// List returns all tracked files ordered by path.
func (t *Tracker) List(ctx context.Context) ([]FileState, error) {
	rows, err := t.pool.Query(ctx,
		`SELECT path, sha256, size, indexed_at FROM kb_files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing tracked files: %w", err)
	}
	defer rows.Close()

	var files []FileState
	for rows.Next() {
		var f FileState
		if err := rows.Scan(&f.Path, &f.SHA256, &f.Size, &f.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning tracked file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracked files: %w", err)
	}
	return files, nil
}
