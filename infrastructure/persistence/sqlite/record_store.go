// Package sqlite provides a RecordStore backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a second connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// RecordStore keeps one namespace of JSON encoded records
type RecordStore[T ports.Record] struct {
	db    *sql.DB
	store string
	now   func() time.Time
}

// NewRecordStore creates a store over an opened, migrated database
func NewRecordStore[T ports.Record](db *sql.DB, namespace string) *RecordStore[T] {
	return &RecordStore[T]{db: db, store: namespace, now: time.Now}
}

// Get returns the record stored under key
func (s *RecordStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE store = ? AND key = ?`, s.store, key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	rec, err := decode[T](data)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// GetAll returns records in insertion order
func (s *RecordStore[T]) GetAll(ctx context.Context, limit int) ([]T, error) {
	query := `SELECT data FROM records WHERE store = ? ORDER BY rowid`
	args := []interface{}{s.store}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryRecords(ctx, query, args...)
}

// Add inserts a new record
func (s *RecordStore[T]) Add(ctx context.Context, record T, description string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM records WHERE store = ? AND key = ?`, s.store, record.GetID(),
		).Scan(&exists)
		if err == nil {
			return pkgerrors.NewConflict(fmt.Sprintf("record %s already exists", record.GetID()))
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check record: %w", err)
		}
		return s.write(ctx, tx, record, description)
	})
}

// Put inserts or replaces a record
func (s *RecordStore[T]) Put(ctx context.Context, record T, description string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.write(ctx, tx, record, description)
	})
}

// Delete removes a record
func (s *RecordStore[T]) Delete(ctx context.Context, key string, description string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE store = ? AND key = ?`, s.store, key)
		if err != nil {
			return fmt.Errorf("failed to delete record %s: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		deleted = true
		if _, err := tx.ExecContext(ctx, `DELETE FROM record_indexes WHERE store = ? AND key = ?`, s.store, key); err != nil {
			return fmt.Errorf("failed to delete indexes of %s: %w", key, err)
		}
		return s.appendVersion(ctx, tx, key, nil, description)
	})
	return deleted, err
}

// SearchByIndex returns records in key order whose index value matches
func (s *RecordStore[T]) SearchByIndex(ctx context.Context, index, value string, limit int) ([]T, error) {
	query := `SELECT r.data FROM record_indexes i
		JOIN records r ON r.store = i.store AND r.key = i.key
		WHERE i.store = ? AND i.idx = ? AND i.value = ?
		ORDER BY r.key`
	args := []interface{}{s.store, index, value}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryRecords(ctx, query, args...)
}

// History returns every version of key, oldest first
func (s *RecordStore[T]) History(ctx context.Context, key string) ([]ports.Version[T], error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, data, description, changed_at, deleted FROM record_versions
		WHERE store = ? AND key = ? ORDER BY version`, s.store, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", key, err)
	}
	defer rows.Close()

	var versions []ports.Version[T]
	for rows.Next() {
		var (
			v         ports.Version[T]
			data      sql.NullString
			changedAt string
			deleted   int
		)
		if err := rows.Scan(&v.Version, &data, &v.Description, &changedAt, &deleted); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		if data.Valid {
			rec, err := decode[T](data.String)
			if err != nil {
				return nil, err
			}
			v.Record = &rec
		}
		v.ChangedAt, err = time.Parse(time.RFC3339Nano, changedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse version time: %w", err)
		}
		v.Deleted = deleted == 1
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *RecordStore[T]) write(ctx context.Context, tx *sql.Tx, record T, description string) error {
	key := record.GetID()
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (store, key, data) VALUES (?, ?, ?)
		ON CONFLICT (store, key) DO UPDATE SET data = excluded.data`,
		s.store, key, string(data),
	); err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_indexes WHERE store = ? AND key = ?`, s.store, key); err != nil {
		return fmt.Errorf("failed to clear indexes of %s: %w", key, err)
	}
	for index, value := range record.IndexValues() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_indexes (store, key, idx, value) VALUES (?, ?, ?, ?)`,
			s.store, key, index, value,
		); err != nil {
			return fmt.Errorf("failed to index %s: %w", key, err)
		}
	}

	encoded := string(data)
	return s.appendVersion(ctx, tx, key, &encoded, description)
}

func (s *RecordStore[T]) appendVersion(ctx context.Context, tx *sql.Tx, key string, data *string, description string) error {
	deleted := 0
	if data == nil {
		deleted = 1
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO record_versions (store, key, version, data, description, changed_at, deleted)
		SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, ?, ?, ?
		FROM record_versions WHERE store = ? AND key = ?`,
		s.store, key, data, description, s.now().UTC().Format(time.RFC3339Nano), deleted, s.store, key,
	)
	if err != nil {
		return fmt.Errorf("failed to append version of %s: %w", key, err)
	}
	return nil
}

func (s *RecordStore[T]) queryRecords(ctx context.Context, query string, args ...interface{}) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decode[T](data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *RecordStore[T]) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func decode[T any](data string) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return rec, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}
