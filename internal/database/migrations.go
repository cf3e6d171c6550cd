package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"lodyland/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded schema step, named NNN_description.sql
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus reports whether a known migration has been applied
type MigrationStatus struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// Migrator applies the embedded migrations in version order
type Migrator struct {
	db         *sql.DB
	migrations []Migration
	logger     *logger.ColoredLogger
}

// NewMigrator parses the embedded migration set
func NewMigrator(db *sql.DB) (*Migrator, error) {
	migrations, err := parseMigrations(migrationFiles)
	if err != nil {
		return nil, err
	}
	return &Migrator{
		db:         db,
		migrations: migrations,
		logger:     logger.NewComponentLogger("MIGRATE", logger.ColorBrightBlue),
	}, nil
}

func parseMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(files))
	seen := make(map[int]string)
	for _, file := range files {
		base := strings.TrimSuffix(path.Base(file), ".sql")
		num, name, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected NNN_name.sql", file)
		}
		version, err := strconv.Atoi(num)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: invalid version %q", file, num)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by %s and %s", version, prev, file)
		}
		seen[version] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

// Version returns the highest applied migration, 0 for an empty database
func (m *Migrator) Version(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Latest returns the newest embedded migration version
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// Migrate applies every migration newer than the current version, each in
// its own transaction
func (m *Migrator) Migrate(ctx context.Context) error {
	current, err := m.Version(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		m.logger.Info("Applied migration %d: %s", mig.Version, mig.Name)
		applied++
	}
	if applied == 0 {
		m.logger.Debug("Schema up to date at version %d", current)
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		mig.Version, mig.Name, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// Status lists every embedded migration with its applied time, if any
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan schema_migrations: %w", err)
		}
		applied[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, len(m.migrations))
	for i, mig := range m.migrations {
		out[i] = MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			at := at
			out[i].Applied = true
			out[i].AppliedAt = &at
		}
	}
	return out, nil
}
