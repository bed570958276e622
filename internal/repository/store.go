package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateCode = errors.New("short code already exists")
	ErrDuplicateUser = errors.New("user already exists")
)

// Store persists mappings, users and click events. It is safe for
// concurrent use.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database and applies pending migrations.
// Supported drivers are "sqlite3" and "postgres".
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite3":
		return openSQLite(dsn)
	case "postgres":
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func openSQLite(path string) (*Store, error) {
	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !inMemory {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open("sqlite3", sqliteDSN(path, inMemory))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite migrations: %w", err)
	}
	if err := migrateUp(driver, "sqlite3"); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, driver: "sqlite3"}, nil
}

func sqliteDSN(path string, inMemory bool) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if !inMemory {
		params += "&_journal_mode=WAL"
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func openPostgres(dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init postgres migrations: %w", err)
	}
	if err := migrateUp(driver, "postgres"); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, driver: "postgres"}, nil
}

func migrateUp(driver database.Driver, dialect string) error {
	source, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	// m.Close would close the shared *sql.DB, so only the source is released
	defer source.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Driver returns the SQL dialect in use
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, rolling back on error
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
