// Package sqlitestore persists argstore snapshots in SQLite. Each namespace
// owns a metadata row, one row per record and one row per argument holding
// the JSON encoded value.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-argstore"
	"github.com/goliatone/go-argstore/pkg/state"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on snapshots.updated_at
const currentSchemaVersion = 1

// Store implements state.Store on top of SQLite with WAL mode.
type Store struct {
	db *sql.DB
}

var _ state.Store = (*Store)(nil)

// Open creates or opens a SQLite database at path and applies pragmas and
// migrations. It is safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: connect to database: %w", err)
	}

	// SQLite supports a single writer; pragmas such as foreign_keys are per
	// connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Load reads the snapshot stored for ref. JSON numbers decode as float64.
func (s *Store) Load(ctx context.Context, ref state.Ref) (argstore.Snapshot, state.Meta, bool, error) {
	if _, err := ref.Identifier(); err != nil {
		return nil, state.Meta{}, false, err
	}

	meta, ok, err := s.loadMeta(ctx, ref.Namespace)
	if err != nil || !ok {
		return nil, state.Meta{}, ok, err
	}

	snapshot, err := s.loadSnapshot(ctx, ref.Namespace)
	if err != nil {
		return nil, state.Meta{}, false, err
	}
	return snapshot, meta, true, nil
}

// Save replaces the snapshot stored for ref in a single transaction and
// assigns a fresh ETag. The ETag precondition is read inside the same
// transaction, so a concurrent writer either commits first and fails the check
// or is rejected by SQLite.
func (s *Store) Save(ctx context.Context, ref state.Ref, snapshot argstore.Snapshot, meta state.Meta) (state.Meta, error) {
	if _, err := ref.Identifier(); err != nil {
		return state.Meta{}, err
	}

	stored := meta
	stored.ETag = uuid.NewString()
	if stored.SnapshotID == "" {
		stored.SnapshotID = uuid.NewString()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	extra, err := json.Marshal(stored.Extra)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: encode extra: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	if err := checkETag(ctx, tx, ref.Namespace, meta.ETag); err != nil {
		return state.Meta{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (namespace, snapshot_id, etag, updated_at, extra)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			etag = excluded.etag,
			updated_at = excluded.updated_at,
			extra = excluded.extra
	`, ref.Namespace, stored.SnapshotID, stored.ETag, stored.UpdatedAt.Format(time.RFC3339Nano), string(extra)); err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: write snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE namespace = ?`, ref.Namespace); err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: clear records: %w", err)
	}

	for key, record := range snapshot {
		if _, err := tx.ExecContext(ctx, `INSERT INTO records (namespace, func_key) VALUES (?, ?)`, ref.Namespace, key); err != nil {
			return state.Meta{}, fmt.Errorf("sqlitestore: write record %s: %w", key, err)
		}
		for name, value := range record {
			encoded, err := json.Marshal(value)
			if err != nil {
				return state.Meta{}, fmt.Errorf("sqlitestore: encode %s.%s: %w", key, name, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO args (namespace, func_key, name, value) VALUES (?, ?, ?, ?)
			`, ref.Namespace, key, name, string(encoded)); err != nil {
				return state.Meta{}, fmt.Errorf("sqlitestore: write arg %s.%s: %w", key, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return stored, nil
}

func checkETag(ctx context.Context, tx *sql.Tx, namespace, expected string) error {
	if expected == "" {
		return nil
	}
	var current state.Meta
	err := tx.QueryRowContext(ctx, `SELECT etag FROM snapshots WHERE namespace = ?`, namespace).Scan(&current.ETag)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("sqlitestore: read etag: %w", err)
	}
	return state.CheckETag(expected, current, exists)
}

// Namespaces lists stored namespaces, most recently updated first.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT namespace FROM snapshots ORDER BY updated_at DESC, namespace`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list namespaces: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var namespace string
		if err := rows.Scan(&namespace); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan namespace: %w", err)
		}
		out = append(out, namespace)
	}
	return out, rows.Err()
}

// loadSnapshot reads records before arguments; each query's rows are closed
// before the next one runs since the pool holds a single connection.
func (s *Store) loadSnapshot(ctx context.Context, namespace string) (argstore.Snapshot, error) {
	snapshot := argstore.Snapshot{}
	if err := s.loadRecords(ctx, namespace, snapshot); err != nil {
		return nil, err
	}
	if err := s.loadArgs(ctx, namespace, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Store) loadRecords(ctx context.Context, namespace string, snapshot argstore.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT func_key FROM records WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("sqlitestore: load records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("sqlitestore: scan record: %w", err)
		}
		snapshot[key] = argstore.Record{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlitestore: load records: %w", err)
	}
	return nil
}

func (s *Store) loadArgs(ctx context.Context, namespace string, snapshot argstore.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT func_key, name, value FROM args WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("sqlitestore: load args: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, name, raw string
		if err := rows.Scan(&key, &name, &raw); err != nil {
			return fmt.Errorf("sqlitestore: scan arg: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("sqlitestore: decode %s.%s: %w", key, name, err)
		}
		record, ok := snapshot[key]
		if !ok {
			record = argstore.Record{}
			snapshot[key] = record
		}
		record[name] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlitestore: load args: %w", err)
	}
	return nil
}

func (s *Store) loadMeta(ctx context.Context, namespace string) (state.Meta, bool, error) {
	var (
		meta      state.Meta
		updatedAt string
		extra     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, etag, updated_at, extra FROM snapshots WHERE namespace = ?
	`, namespace).Scan(&meta.SnapshotID, &meta.ETag, &updatedAt, &extra)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Meta{}, false, nil
	}
	if err != nil {
		return state.Meta{}, false, fmt.Errorf("sqlitestore: load snapshot: %w", err)
	}
	if meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return state.Meta{}, false, fmt.Errorf("sqlitestore: parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(extra), &meta.Extra); err != nil {
		return state.Meta{}, false, fmt.Errorf("sqlitestore: decode extra: %w", err)
	}
	return meta, true, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_snapshots_updated_at ON snapshots(updated_at)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
