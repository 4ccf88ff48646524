/*
Package store defines the document-store contract and its backends.

This file implements PGStore, a Client backed by PostgreSQL. Documents live as
JSONB rows in a single table created by an embedded goose migration. Shallow
merges use the JSONB concatenation operator, atomic updates take a row lock
inside a transaction, and change notifications ride on LISTEN/NOTIFY with the
collection name as payload.
*/
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"geochat/internal/pkg/logx"
	"geochat/internal/pkg/randx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// notifyChannel is the LISTEN/NOTIFY channel carrying collection names.
const notifyChannel = "geochat_doc_changes"

// PGStore is a Client backed by a PostgreSQL connection pool.
type PGStore struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	closed bool
}

// NewPGStore initializes the connection pool, runs pending migrations, and
// returns a ready store.
func NewPGStore(dsn string) (*PGStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &PGStore{pool: pool}, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// notifyChange publishes the collection name to listeners. A failed NOTIFY is
// logged only; the write already committed.
func (s *PGStore) notifyChange(ctx context.Context, collection string) {
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		logx.Warn("Failed to publish change notification.", "collection", collection, "error", err.Error())
	}
}

// Get implements Client.
func (s *PGStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var data json.RawMessage

	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)

	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("postgres get: %w", err)
	}

	return Document{ID: id, Data: data}, nil
}

// Add implements Client. The identity is store-generated.
func (s *PGStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := randx.DocID()
	if err := s.Put(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Put implements Client with overwrite semantics.
func (s *PGStore) Put(ctx context.Context, collection, id string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, encoded,
	)
	if err != nil {
		return fmt.Errorf("postgres put: %w", err)
	}

	s.notifyChange(ctx, collection)
	return nil
}

// Merge implements Client. The JSONB || operator gives exactly the contract's
// shallow-merge: named top-level fields replaced, everything else preserved.
func (s *PGStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`,
		collection, id, encoded,
	)
	if err != nil {
		return fmt.Errorf("postgres merge: %w", err)
	}

	s.notifyChange(ctx, collection)
	return nil
}

// Delete implements Client. Deleting an absent document is success.
func (s *PGStore) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}

	if tag.RowsAffected() > 0 {
		s.notifyChange(ctx, collection)
	}
	return nil
}

// Find implements Client. Filtering, ordering, and the limit are pushed down
// to SQL over the JSONB body.
func (s *PGStore) Find(ctx context.Context, q Query) ([]Document, error) {
	query := `SELECT id, data FROM documents WHERE collection = $1`
	args := []any{q.Collection}

	if q.Field != "" {
		args = append(args, q.Field, q.Equals)
		query += fmt.Sprintf(` AND data->>$%d = $%d`, len(args)-1, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		direction := "ASC"
		if q.Descending {
			direction = "DESC"
		}
		query += fmt.Sprintf(` ORDER BY data->>$%d %s`, len(args), direction)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres find: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("postgres find: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres find: %w", err)
	}

	return docs, nil
}

// Update implements Client. The SELECT ... FOR UPDATE row lock holds off
// concurrent writers until fn's result commits.
func (s *PGStore) Update(ctx context.Context, collection, id string, fn UpdateFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}
	defer tx.Rollback(ctx)

	var current json.RawMessage
	err = tx.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		collection, id,
	).Scan(&current)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}

	replacement, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE documents SET data = $3, updated_at = now() WHERE collection = $1 AND id = $2`,
		collection, id, replacement,
	); err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}

	s.notifyChange(ctx, collection)
	return nil
}

// Subscribe implements Client. A dedicated pooled connection LISTENs for
// change payloads and re-queries when its collection is named.
func (s *PGStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres subscribe: %w", err)
	}

	if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("postgres subscribe: %w", err)
	}

	initial, err := s.Find(ctx, q)
	if err != nil {
		conn.Release()
		return nil, err
	}

	subCtx, cancelCtx := context.WithCancel(context.Background())
	var once sync.Once

	go func() {
		defer conn.Release()

		fn(initial)

		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					logx.Error(err, "Subscription listener failed.", "collection", q.Collection)
				}
				return
			}

			if notification.Payload != q.Collection {
				continue
			}

			snap, err := s.Find(subCtx, q)
			if err != nil {
				logx.Warn("Subscription re-query failed; keeping previous snapshot.",
					"collection", q.Collection, "error", err.Error())
				continue
			}
			fn(snap)
		}
	}()

	cancel := func() {
		once.Do(cancelCtx)
	}

	return cancel, nil
}

// Close implements Client.
func (s *PGStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.pool.Close()
	return nil
}
