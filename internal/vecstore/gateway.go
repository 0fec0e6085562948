// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vecstore persists embedded documents in SQLite and serves
// nearest-neighbour queries over them. One process-wide Gateway is
// constructed at startup and injected wherever storage is needed; the
// underlying database handle opens lazily on first use.
package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// Record is one stored document: a deterministic id within a collection,
// its vector, both text renderings, and flat filterable metadata.
type Record struct {
	ID          string
	Collection  string
	Vector      []float32
	EmbedText   string
	DisplayText string
	Metadata    map[string]any
}

// Gateway is the single entry point to the vector database.
type Gateway struct {
	cfg types.StoreConfig
	log *zap.Logger

	mu sync.Mutex
	db atomic.Pointer[sql.DB]
}

// NewGateway builds a Gateway. The database file is not touched until the
// first operation.
func NewGateway(cfg types.StoreConfig, log *zap.Logger) *Gateway {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 100 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{cfg: cfg, log: log}
}

// Close releases the database handle if it was ever opened.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if db := g.db.Swap(nil); db != nil {
		return db.Close()
	}
	return nil
}

// handle returns the open database, opening and migrating it on first call.
// Double-checked so the common path is a single atomic load.
func (g *Gateway) handle() (*sql.DB, error) {
	if db := g.db.Load(); db != nil {
		return db, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if db := g.db.Load(); db != nil {
		return db, nil
	}

	db, err := sql.Open("sqlite3", g.cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, faults.Permanent(err, "opening vector store at %s", g.cfg.Path)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, faults.Permanent(err, "creating vector store schema")
	}

	g.log.Debug("vector store opened", zap.String("path", g.cfg.Path))
	g.db.Store(db)
	return db, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			vector TEXT NOT NULL,
			embed_text TEXT NOT NULL,
			display_text TEXT NOT NULL,
			metadata TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// transientPatterns match sqlite failures worth retrying. Everything else
// is treated as permanent.
var transientPatterns = []string{
	"database is locked",
	"database table is locked",
	"busy",
	"connection",
}

func isTransientSQL(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// withRetry runs op, retrying transient sqlite failures with exponential
// backoff up to the configured attempt count.
func (g *Gateway) withRetry(ctx context.Context, what string, op func(*sql.DB) error) error {
	db, err := g.handle()
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := op(db)
		if err == nil {
			return nil
		}
		if !isTransientSQL(err) {
			return faults.Permanent(err, "%s", what)
		}
		lastErr = err

		if attempt >= g.cfg.MaxRetries {
			return faults.Transient(lastErr, "%s: retries exhausted", what)
		}

		backoff := g.cfg.RetryBaseDelay << attempt
		g.log.Debug("transient store failure, backing off",
			zap.String("op", what), zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Upsert writes one record, fully replacing any existing record with the
// same collection and id. Re-ingesting identical ids therefore never grows
// the store.
func (g *Gateway) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" || rec.Collection == "" {
		return faults.Validation("record requires a collection and an id")
	}
	if len(rec.Vector) == 0 {
		return faults.Validation("record %s has no vector", rec.ID)
	}

	vectorJSON, err := json.Marshal(rec.Vector)
	if err != nil {
		return faults.Permanent(err, "encoding vector for %s", rec.ID)
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return faults.Permanent(err, "encoding metadata for %s", rec.ID)
	}

	return g.withRetry(ctx, "upserting "+rec.ID, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO documents (collection, id, vector, embed_text, display_text, metadata)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(collection, id) DO UPDATE SET
				vector=excluded.vector, embed_text=excluded.embed_text,
				display_text=excluded.display_text, metadata=excluded.metadata`,
			rec.Collection, rec.ID, string(vectorJSON),
			rec.EmbedText, rec.DisplayText, string(metaJSON),
		)
		return err
	})
}

// Get returns the stored records for the given ids within a collection, in
// the order found. Missing ids are silently absent from the result.
func (g *Gateway) Get(ctx context.Context, collection string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	var records []Record
	err := g.withRetry(ctx, "fetching records", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, vector, embed_text, display_text, metadata
			 FROM documents WHERE collection = ? AND id IN (`+placeholders+`)`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			rec, err := scanRecord(rows, collection)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// List returns every record in a collection ordered by id.
func (g *Gateway) List(ctx context.Context, collection string) ([]Record, error) {
	var records []Record
	err := g.withRetry(ctx, "listing "+collection, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, vector, embed_text, display_text, metadata
			 FROM documents WHERE collection = ? ORDER BY id`, collection)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			rec, err := scanRecord(rows, collection)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records in a collection.
func (g *Gateway) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := g.withRetry(ctx, "counting "+collection, func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT count(*) FROM documents WHERE collection = ?`, collection,
		).Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Clear removes every record in a collection.
func (g *Gateway) Clear(ctx context.Context, collection string) error {
	return g.withRetry(ctx, "clearing "+collection, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ?`, collection)
		return err
	})
}

func scanRecord(rows *sql.Rows, collection string) (Record, error) {
	var rec Record
	var vectorJSON, metaJSON string
	if err := rows.Scan(&rec.ID, &vectorJSON, &rec.EmbedText, &rec.DisplayText, &metaJSON); err != nil {
		return Record{}, err
	}
	rec.Collection = collection
	if err := json.Unmarshal([]byte(vectorJSON), &rec.Vector); err != nil {
		return Record{}, fmt.Errorf("decoding vector for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
		return Record{}, fmt.Errorf("decoding metadata for %s: %w", rec.ID, err)
	}
	return rec, nil
}
