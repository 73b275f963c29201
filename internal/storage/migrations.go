package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Migration is one versioned schema change. Statements are per dialect because
// postgres and sqlite disagree on timestamp types.
type Migration struct {
	Version     int
	Description string
	Statements  map[Dialect][]string
}

// Checksum identifies the statements of a dialect so edited migrations are detected
func (m Migration) Checksum(dialect Dialect) string {
	sum := sha256.Sum256([]byte(strings.Join(m.Statements[dialect], ";\n")))
	return hex.EncodeToString(sum[:])
}

const strategiesColumns = `
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	product_description TEXT NOT NULL DEFAULT '',
	selected_model TEXT NOT NULL DEFAULT '',
	ideal_user TEXT,
	outcomes TEXT,
	challenges TEXT,
	solutions TEXT,
	features TEXT,
	user_journey TEXT,
	analysis_results TEXT,
	pricing_strategy TEXT,
	share_id TEXT NOT NULL UNIQUE,
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	edit_token_hash TEXT NOT NULL,`

// Migrations lists every schema change in version order
var Migrations = []Migration{
	{
		Version:     1,
		Description: "create strategies table",
		Statements: map[Dialect][]string{
			DialectPostgres: {
				`CREATE TABLE IF NOT EXISTS strategies (` + strategiesColumns + `
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
				`CREATE INDEX IF NOT EXISTS idx_strategies_created_at ON strategies (created_at DESC)`,
			},
			DialectSQLite: {
				`CREATE TABLE IF NOT EXISTS strategies (` + strategiesColumns + `
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
				`CREATE INDEX IF NOT EXISTS idx_strategies_created_at ON strategies (created_at DESC)`,
			},
		},
	},
	{
		Version:     2,
		Description: "index public strategies",
		Statements: map[Dialect][]string{
			DialectPostgres: {`CREATE INDEX IF NOT EXISTS idx_strategies_public ON strategies (is_public, created_at DESC)`},
			DialectSQLite:   {`CREATE INDEX IF NOT EXISTS idx_strategies_public ON strategies (is_public, created_at DESC)`},
		},
	},
}

// MigrationResult reports one applied migration
type MigrationResult struct {
	Version       int
	Description   string
	ExecutionTime time.Duration
}

// Migrate applies every pending migration, each in its own transaction.
// An applied migration whose checksum changed is an error.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) ([]MigrationResult, error) {
	applied, err := appliedChecksums(ctx, db)
	if err != nil {
		return nil, err
	}

	var results []MigrationResult
	for _, m := range Migrations {
		checksum := m.Checksum(dialect)
		if existing, ok := applied[m.Version]; ok {
			if existing != checksum {
				return results, fmt.Errorf("migration %d checksum mismatch: database has %s", m.Version, existing)
			}
			continue
		}

		start := time.Now()
		if err := applyMigration(ctx, db, dialect, m, checksum); err != nil {
			return results, err
		}
		results = append(results, MigrationResult{
			Version:       m.Version,
			Description:   m.Description,
			ExecutionTime: time.Since(start),
		})
	}
	return results, nil
}

// MigrationStatus reports whether one migration is applied
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
	// Drifted is set when the applied statements differ from the current ones
	Drifted bool
}

// Status lists every migration with its state in the database
func Status(ctx context.Context, db *sql.DB, dialect Dialect) ([]MigrationStatus, error) {
	applied, err := appliedChecksums(ctx, db)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(Migrations))
	for _, m := range Migrations {
		existing, ok := applied[m.Version]
		statuses = append(statuses, MigrationStatus{
			Version:     m.Version,
			Description: m.Description,
			Applied:     ok,
			Drifted:     ok && existing != m.Checksum(dialect),
		})
	}
	return statuses, nil
}

func appliedChecksums(ctx context.Context, db *sql.DB) (map[int]string, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]string)
	for rows.Next() {
		var version int
		var checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, dialect Dialect, m Migration, checksum string) error {
	statements, ok := m.Statements[dialect]
	if !ok {
		return fmt.Errorf("migration %d has no statements for %s", m.Version, dialect)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, checksum, applied_at) VALUES ($1, $2, $3, $4)`,
		m.Version, m.Description, checksum, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	return tx.Commit()
}
