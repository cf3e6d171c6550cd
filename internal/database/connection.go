package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"lodyland/pkg/logger"
)

// DB represents a database connection with additional functionality
type DB struct {
	*sql.DB
	path     string
	logger   *logger.ColoredLogger
	migrator *Migrator
}

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	MigrateOnStart  bool
}

// DefaultConfig returns a default database configuration
func DefaultConfig(dataDir string) *Config {
	return &Config{
		Path:            filepath.Join(dataDir, "lodyland.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: 5 * time.Minute,
		BusyTimeout:     10 * time.Second,
		MigrateOnStart:  true,
	}
}

// dsn builds the sqlite3 connection string. Every transaction takes the
// write lock at BEGIN so read-check-write sequences serialize.
func (c *Config) dsn() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = 10 * time.Second
	}
	return fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate",
		c.Path, busy.Milliseconds())
}

// NewConnection creates a new database connection
func NewConnection(config *Config) (*DB, error) {
	log := logger.DatabaseLogger

	if err := ensureDir(filepath.Dir(config.Path)); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator, err := NewMigrator(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	db := &DB{
		DB:       sqlDB,
		path:     config.Path,
		logger:   log,
		migrator: migrator,
	}

	if config.MigrateOnStart {
		if err := db.migrator.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	log.Info("Connected to SQLite database: %s", config.Path)
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.DB != nil {
		db.logger.Info("Closing database connection")
		return db.DB.Close()
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrator returns the schema migrator
func (db *DB) Migrator() *Migrator {
	return db.migrator
}

// Health checks database health
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// WithTx runs fn inside one transaction with repositories bound to it.
// fn's error rolls the transaction back and is returned unchanged.
func (db *DB) WithTx(ctx context.Context, fn func(*Repository) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(NewRepository(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetDatabaseSize returns page based size information
func (db *DB) GetDatabaseSize(ctx context.Context) (map[string]int64, error) {
	sizes := make(map[string]int64)
	var pageCount, pageSize int64

	if err := db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}

	sizes["total_size"] = pageCount * pageSize
	sizes["page_count"] = pageCount
	sizes["page_size"] = pageSize
	if info, err := os.Stat(db.path + "-wal"); err == nil {
		sizes["wal_size"] = info.Size()
	}
	return sizes, nil
}

// ensureDir creates a directory if it doesn't exist
func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
