// Package store provides SQLite-backed persistence for documents,
// cached content transformations, and chat history.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ragtutor/internal/adapter/store/migrations"
	"ragtutor/internal/domain"
)

// SQLiteStore is the unified metadata store. The transformation cache
// relies on SQLite's native upsert (INSERT ... ON CONFLICT DO UPDATE)
// for concurrency correctness: concurrent puts for the same key
// resolve last-write-wins at the storage layer, no caller-side lock.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the metadata database at path and
// applies pending migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// WAL mode for concurrent readers alongside a writer.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *SQLiteStore) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
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
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// PutDocument stores or replaces a document wholesale.
func (s *SQLiteStore) PutDocument(ctx context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is empty", domain.ErrValidation)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, raw_text, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw_text = excluded.raw_text,
			updated_at = excluded.updated_at
	`, doc.ID, doc.RawText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, raw_text FROM documents WHERE id = ?`, id)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.RawText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all stored documents ordered by ID.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, raw_text FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.RawText); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ==================== Transformation Cache ====================

// Get returns the cached transformation for key, or domain.ErrNotFound
// on a miss. A miss is normal control flow, not a failure.
func (s *SQLiteStore) Get(ctx context.Context, key domain.TransformKey) (domain.TransformEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT value, created_at FROM transform_cache
		WHERE document_id = ? AND kind = ? AND parameter = ?
	`, key.DocumentID, string(key.Kind), key.Parameter)

	entry := domain.TransformEntry{Key: key}
	if err := row.Scan(&entry.Value, &entry.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TransformEntry{}, domain.ErrNotFound
		}
		return domain.TransformEntry{}, fmt.Errorf("reading cache entry: %w", err)
	}
	return entry, nil
}

// Put stores the value unconditionally. A single upsert statement, so
// racing regenerations for the same key settle last-write-wins without
// a version conflict.
func (s *SQLiteStore) Put(ctx context.Context, key domain.TransformKey, value string) error {
	if key.DocumentID == "" || key.Kind == "" {
		return fmt.Errorf("%w: incomplete cache key", domain.ErrValidation)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transform_cache (document_id, kind, parameter, value, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id, kind, parameter) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at
	`, key.DocumentID, string(key.Kind), key.Parameter, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// ==================== Chat History ====================

// SaveExchange records an answered question.
func (s *SQLiteStore) SaveExchange(ctx context.Context, rec domain.ChatRecord) (int64, error) {
	sources := rec.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return 0, fmt.Errorf("marshalling sources: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (question, answer, sources, created_at)
		VALUES (?, ?, ?, ?)
	`, rec.Question, rec.Answer, string(sourcesJSON), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("saving exchange: %w", err)
	}
	return res.LastInsertId()
}

// RecentExchanges returns saved exchanges, most recent first.
func (s *SQLiteStore) RecentExchanges(ctx context.Context, limit int) ([]domain.ChatRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, answer, sources, created_at
		FROM chat_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	var records []domain.ChatRecord
	for rows.Next() {
		var rec domain.ChatRecord
		var sourcesJSON string
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &sourcesJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &rec.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
