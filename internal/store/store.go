package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrCartLineNotFound  = errors.New("cart line not found")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNegativeStock     = errors.New("stock cannot be negative")
	ErrInvalidQuantity   = errors.New("quantity must be a positive number")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrMigrationFailed   = errors.New("migration failed")
)

// dialect holds the DDL fragments that differ between drivers
type dialect struct {
	name      string
	autoID    string
	bigint    string
	money     string
	timestamp string
	lockRow   string
}

var dialects = map[string]dialect{
	DriverPostgres: {
		name:      DriverPostgres,
		autoID:    "BIGSERIAL PRIMARY KEY",
		bigint:    "BIGINT",
		money:     "NUMERIC(12,2)",
		timestamp: "TIMESTAMPTZ",
		lockRow:   " FOR UPDATE",
	},
	// SQLite serialises writers; row locks are not supported.
	DriverSQLite: {
		name:      DriverSQLite,
		autoID:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		bigint:    "INTEGER",
		money:     "REAL",
		timestamp: "DATETIME",
		lockRow:   "",
	},
}

type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// NewStore opens the database and verifies the connection
func NewStore(driver, databaseURL string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// one connection keeps ":memory:" databases alive and matches SQLite's single writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, dialect: d}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Driver returns the driver name the store was opened with
func (s *Store) Driver() string {
	return s.dialect.name
}

// inTx runs fn inside a transaction, committing only when fn succeeds
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), "no such table")
	}
	return false
}

func isUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42703"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), "no such column")
	}
	return false
}

// queryErr tags errors caused by a schema older than the code expects
func queryErr(err error) error {
	if err != nil && isUndefinedColumn(err) {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return err
}
