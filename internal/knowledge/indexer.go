package knowledge

// indexer.go implements local document ingestion.
//
// Walks a documents directory, chunks each supported file, and writes the
// chunks to the vector store through the Genkit DocStore. A file lock
// guards against concurrent ingestion runs, and the kb_files tracker skips
// files whose content has not changed since the last run.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/firebase/genkit/go/ai"
	"github.com/gofrs/flock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIngestLocked is returned when another ingestion run holds the lock.
var ErrIngestLocked = errors.New("knowledge: ingestion already in progress")

// supportedExtensions are the document types the indexer reads.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// MaxFileSize is the largest document the indexer will read. Chunking keeps
// individual embeddings small, so this only bounds memory per file.
const MaxFileSize = 2 << 20 // 2MB

// lockFileName is created inside the documents directory during ingestion.
const lockFileName = ".ingest.lock"

// lockRetryInterval is how often an ingestion run re-tries the file lock.
const lockRetryInterval = 500 * time.Millisecond

// DocIndexer writes documents to the vector store.
// Satisfied by *postgresql.DocStore.
type DocIndexer interface {
	Index(ctx context.Context, docs []*ai.Document) error
}

// ChangeTracker decides whether a file needs re-indexing.
// Satisfied by *Tracker.
type ChangeTracker interface {
	Changed(ctx context.Context, path, sha256 string, size int64) (bool, error)
	Record(ctx context.Context, path, sha256 string, size int64) error
}

// Execer runs statements against the database.
// Satisfied by *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// IndexResult summarizes an ingestion run.
type IndexResult struct {
	FilesAdded    int
	FilesSkipped  int
	FilesFailed   int
	ChunksIndexed int
	TotalSize     int64
	Duration      time.Duration
}

// Indexer ingests local documents into the vector store.
type Indexer struct {
	docStore DocIndexer
	tracker  ChangeTracker
	db       Execer
	splitter *Splitter
	logger   *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(docStore DocIndexer, tracker ChangeTracker, db Execer, splitter *Splitter, logger *slog.Logger) (*Indexer, error) {
	if docStore == nil {
		return nil, errors.New("doc store is required")
	}
	if tracker == nil {
		return nil, errors.New("tracker is required")
	}
	if db == nil {
		return nil, errors.New("db is required")
	}
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{docStore: docStore, tracker: tracker, db: db, splitter: splitter, logger: logger}, nil
}

// IndexDirectory ingests every supported file under dir, recursively.
// Unchanged files are skipped; changed files are re-indexed by deleting their
// previous chunks first. Per-file failures are counted, not fatal.
// Returns ErrIngestLocked when another run holds the ingestion lock.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (*IndexResult, error) {
	start := time.Now()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	if info, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("documents directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("documents directory: %s is not a directory", absDir)
	}

	lock := flock.New(filepath.Join(absDir, lockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return nil, ErrIngestLocked
	}
	defer func() {
		_ = lock.Unlock()
	}()

	result := &IndexResult{}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			result.FilesSkipped++
			return nil
		}

		added, chunks, size, err := idx.indexFile(ctx, path)
		switch {
		case err != nil:
			idx.logger.Warn("indexing file failed", "path", path, "error", err)
			result.FilesFailed++
		case !added:
			result.FilesSkipped++
		default:
			result.FilesAdded++
			result.ChunksIndexed += chunks
			result.TotalSize += size
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absDir, err)
	}

	result.Duration = time.Since(start)
	idx.logger.Info("ingestion complete",
		"added", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"chunks", result.ChunksIndexed,
		"duration", result.Duration)
	return result, nil
}

// IndexFile ingests a single document regardless of its tracked state
// being fresh. Returns the number of chunks written.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}
	if !supportedExtensions[strings.ToLower(filepath.Ext(absPath))] {
		return 0, fmt.Errorf("unsupported file type: %s", filepath.Ext(absPath))
	}
	_, chunks, _, err := idx.indexFile(ctx, absPath)
	if err != nil {
		return 0, err
	}
	return chunks, nil
}

// indexFile reads, chunks, and stores one file.
// Returns added=false when the tracker reports the file unchanged.
func (idx *Indexer) indexFile(ctx context.Context, path string) (added bool, chunks int, size int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, 0, fmt.Errorf("stat: %w", err)
	}
	if info.Size() > MaxFileSize {
		return false, 0, 0, fmt.Errorf("file %s (%d bytes) exceeds limit (%d bytes)", filepath.Base(path), info.Size(), MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, 0, 0, fmt.Errorf("read: %w", err)
	}

	sum := sha256.Sum256(content)
	shaHex := hex.EncodeToString(sum[:])

	changed, err := idx.tracker.Changed(ctx, path, shaHex, info.Size())
	if err != nil {
		return false, 0, 0, err
	}
	if !changed {
		return false, 0, 0, nil
	}

	text := string(content)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		text, err = extractHTMLText(content)
		if err != nil {
			return false, 0, 0, fmt.Errorf("extracting html text: %w", err)
		}
	}

	pieces := idx.splitter.Split(text)
	if len(pieces) == 0 {
		// Empty files are tracked so they are not re-visited every run.
		if err := idx.tracker.Record(ctx, path, shaHex, info.Size()); err != nil {
			return false, 0, 0, err
		}
		return true, 0, info.Size(), nil
	}

	docID := generateDocID("file", path)
	docs := make([]*ai.Document, len(pieces))
	now := time.Now().Format(time.RFC3339)
	for i, piece := range pieces {
		docs[i] = ai.DocumentFromText(piece, map[string]any{
			"id":           docID + ":" + strconv.Itoa(i),
			"source_type":  SourceTypeFile,
			"file_path":    path,
			"file_name":    filepath.Base(path),
			"chunk":        i,
			"total_chunks": len(pieces),
			"sha256":       shaHex,
			"indexed_at":   now,
		})
	}

	// Delete-then-insert: the Genkit DocStore only supports INSERT, and the
	// chunk count may have changed since the last run.
	if err := deleteChunks(ctx, idx.db, docID); err != nil {
		return false, 0, 0, err
	}
	if err := idx.docStore.Index(ctx, docs); err != nil {
		return false, 0, 0, fmt.Errorf("indexing chunks: %w", err)
	}
	if err := idx.tracker.Record(ctx, path, shaHex, info.Size()); err != nil {
		return false, 0, 0, err
	}

	idx.logger.Debug("file indexed", "path", path, "chunks", len(docs))
	return true, len(docs), info.Size(), nil
}

// deleteChunks removes all stored chunks belonging to a document ID.
func deleteChunks(ctx context.Context, db Execer, docID string) error {
	_, err := db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 OR id LIKE $2`,
		docID, docID+":%")
	if err != nil {
		return fmt.Errorf("deleting stale chunks: %w", err)
	}
	return nil
}

// Stats returns per-source-type chunk counts from the documents table.
func Stats(ctx context.Context, pool *pgxpool.Pool) (map[string]int, error) {
	rows, err := pool.Query(ctx,
		`SELECT COALESCE(source_type, ''), count(*) FROM documents GROUP BY source_type`)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sourceType string
		var n int
		if err := rows.Scan(&sourceType, &n); err != nil {
			return nil, fmt.Errorf("scanning document count: %w", err)
		}
		counts[sourceType] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document counts: %w", err)
	}
	return counts, nil
}

// extractHTMLText strips markup and returns the readable text of a page.
func extractHTMLText(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// generateDocID derives a stable document ID from a source identifier.
func generateDocID(kind, source string) string {
	sum := sha256.Sum256([]byte(source))
	return kind + ":" + hex.EncodeToString(sum[:16])
}
