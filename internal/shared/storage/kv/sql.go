package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type dialect struct {
	name   string
	get    string
	put    string
	delete string
}

var postgresDialect = dialect{
	name: "postgres",
	get:  `SELECT value FROM kv_slots WHERE namespace = $1 AND slot_key = $2`,
	put: `
INSERT INTO kv_slots (namespace, slot_key, value, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (namespace, slot_key) DO UPDATE SET
  value = EXCLUDED.value,
  updated_at = EXCLUDED.updated_at`,
	delete: `DELETE FROM kv_slots WHERE namespace = $1 AND slot_key = $2`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	get:  `SELECT value FROM kv_slots WHERE namespace = ? AND slot_key = ?`,
	put: `
INSERT INTO kv_slots (namespace, slot_key, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, slot_key) DO UPDATE SET
  value = excluded.value,
  updated_at = excluded.updated_at`,
	delete: `DELETE FROM kv_slots WHERE namespace = ? AND slot_key = ?`,
}

// SQLStore implements Store over a kv_slots table.
type SQLStore struct {
	DB      *sql.DB
	dialect dialect
	now     func() time.Time
}

// NewPostgresStore returns a Store backed by the kv_slots table created by migrations.
func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db, dialect: postgresDialect, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, s.dialect.get, namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *SQLStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx, s.dialect.put, namespace, key, value, s.now().UTC())
	return err
}

func (s *SQLStore) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.DB.ExecContext(ctx, s.dialect.delete, namespace, key)
	return err
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
