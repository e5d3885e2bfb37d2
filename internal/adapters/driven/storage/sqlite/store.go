// Package sqlite implements the index store on a single SQLite file.
//
// The whole index is one snapshot: Rebuild writes a fresh database next to
// the live one and renames it into place, so readers see either the old
// snapshot or the new one, never a half-built index.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/psimdev/atlas-assistant/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Snapshot metadata keys.
const (
	metaFreshness = "freshness"
	metaBuiltAt   = "built_at"
	metaDims      = "dimensions"
)

// dbFile is the snapshot file name inside the data directory.
const dbFile = "index.db"

// Store is the SQLite-backed index snapshot.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB // nil until a snapshot exists
	path string
}

// NewStore opens the index store in dataDir. If dataDir is empty, defaults
// to ~/.atlas/data. A missing snapshot is not an error; the store reports
// Exists() == false until the first Rebuild.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".atlas", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", domain.ErrStorageFault, err)
	}

	s := &Store{path: filepath.Join(dataDir, dbFile)}
	if _, err := os.Stat(s.path); err == nil {
		db, err := open(s.path)
		if err != nil {
			return nil, err
		}
		s.db = db
	}
	return s, nil
}

// open opens an existing or new snapshot database and applies migrations.
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrStorageFault, err)
	}
	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %v", domain.ErrStorageFault, err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a snapshot has been built.
func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Rebuild atomically replaces the snapshot. The new database is built at a
// temporary path and renamed over the live one only once fully written.
func (s *Store) Rebuild(ctx context.Context, chunks []domain.Chunk, freshness time.Time) error {
	tmp := fmt.Sprintf("%s.rebuild-%d", s.path, os.Getpid())
	defer os.Remove(tmp)

	db, err := open(tmp)
	if err != nil {
		return err
	}
	if err := writeSnapshot(ctx, db, chunks, freshness); err != nil {
		db.Close()
		return err
	}
	// Close flushes the WAL into the main file before the swap.
	if err := db.Close(); err != nil {
		return fmt.Errorf("%w: closing temp snapshot: %v", domain.ErrStorageFault, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: swapping snapshot: %v", domain.ErrStorageFault, err)
	}
	live, err := open(s.path)
	if err != nil {
		return err
	}
	s.db = live
	return nil
}

// writeSnapshot fills a fresh database with chunks and metadata.
func writeSnapshot(ctx context.Context, db *sql.DB, chunks []domain.Chunk, freshness time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrStorageFault, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, start_offset, position, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %v", domain.ErrStorageFault, err)
	}
	defer stmt.Close()

	dims := 0
	for _, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Offset, c.Position,
			c.Content, float32SliceToBytes(c.Embedding)); err != nil {
			return fmt.Errorf("%w: saving chunk %s: %v", domain.ErrStorageFault, c.ID, err)
		}
	}

	meta := map[string]string{
		metaFreshness: freshness.UTC().Format(time.RFC3339Nano),
		metaBuiltAt:   time.Now().UTC().Format(time.RFC3339Nano),
		metaDims:      fmt.Sprintf("%d", dims),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("%w: saving metadata: %v", domain.ErrStorageFault, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing snapshot: %v", domain.ErrStorageFault, err)
	}
	return nil
}

// Search returns up to k chunks by descending cosine similarity to the
// query vector, ties broken by insertion order. An absent snapshot yields
// an empty result.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil || len(query) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, content, embedding FROM chunks ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", domain.ErrStorageFault, err)
	}
	defer rows.Close()

	type scored struct {
		chunk domain.ScoredChunk
		order int
	}
	var all []scored
	order := 0
	for rows.Next() {
		var docID, content string
		var blob []byte
		if err := rows.Scan(&docID, &content, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %v", domain.ErrStorageFault, err)
		}
		embedding := bytesToFloat32Slice(blob)
		all = append(all, scored{
			chunk: domain.ScoredChunk{
				Content:    content,
				DocumentID: docID,
				Score:      cosineSimilarity(query, embedding),
			},
			order: order,
		})
		order++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading chunks: %v", domain.ErrStorageFault, err)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].chunk.Score != all[j].chunk.Score {
			return all[i].chunk.Score > all[j].chunk.Score
		}
		return all[i].order < all[j].order
	})

	if k > len(all) {
		k = len(all)
	}
	results := make([]domain.ScoredChunk, k)
	for i := range results {
		results[i] = all[i].chunk
	}
	return results, nil
}

// FreshnessMarker returns the max source modification time recorded at
// build time, zero when no snapshot exists.
func (s *Store) FreshnessMarker(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return time.Time{}, nil
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM snapshot_meta WHERE key = ?`, metaFreshness).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reading freshness: %v", domain.ErrStorageFault, err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parsing freshness %q: %v", domain.ErrStorageFault, value, err)
	}
	return t, nil
}

// Count returns the number of chunks in the snapshot.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", domain.ErrStorageFault, err)
	}
	return n, nil
}

// Snapshot returns the snapshot description, for status output.
func (s *Store) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	freshness, err := s.FreshnessMarker(ctx)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{Chunks: count, Freshness: freshness}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db != nil {
		var value string
		err := s.db.QueryRowContext(ctx,
			`SELECT value FROM snapshot_meta WHERE key = ?`, metaBuiltAt).Scan(&value)
		if err == nil {
			if t, parseErr := time.Parse(time.RFC3339Nano, value); parseErr == nil {
				snap.BuiltAt = t
			}
		}
	}
	return snap, nil
}

// migrate runs all pending migrations.
func migrate(db *sql.DB, fsys embed.FS) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec(
			`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes the cosine of the angle between two vectors,
// zero when either is empty or their lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
