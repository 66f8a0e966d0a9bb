package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

const stateBucket = "estimates"

type dialect struct {
	driver string
	ddl    string
	upsert string
	query  string
}

var (
	sqliteDialect = dialect{
		driver: "sqlite",
		ddl: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
		upsert: `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		query:  `SELECT payload FROM state WHERE bucket = ?`,
	}
	postgresDialect = dialect{
		driver: "pgx",
		ddl: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
		upsert: `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		query:  `SELECT payload FROM state WHERE bucket = $1`,
	}
)

// SQLStore keeps the state as one JSON row in a state table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
}

// NewSQLiteStore opens (and creates) a SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = "estimator.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps sqlite from reporting SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect)
}

// NewPostgresStore connects to Postgres through the pgx driver.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		dsn = "postgres://localhost/estimator?sslmode=disable"
	}
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, d.ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Load(ctx context.Context) (State, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.dialect.query, stateBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Empty(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("select state: %w", err)
	}
	return decode(payload)
}

func (s *SQLStore) Save(ctx context.Context, state State) (retErr error) {
	data, err := encode(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, s.dialect.upsert, stateBucket, data); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return tx.Commit()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Close() error { return s.db.Close() }
