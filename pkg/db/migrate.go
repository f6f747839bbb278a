/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/healthchecker/pkg/logger"
)

const migrationsTable = "schema_migrations"

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

type migration struct {
	version    string
	name       string
	statements []string
}

// pendingMigrations lists the .up.sql files under dir that are not yet applied, in order.
func pendingMigrations(dir string, applied map[string]struct{}) ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	pending := make([]migration, 0, len(names))

	for _, name := range names {
		version := strings.SplitN(name, "_", 2)[0]
		if _, ok := applied[version]; ok {
			continue
		}

		content, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		pending = append(pending, migration{
			version:    version,
			name:       name,
			statements: splitSQLStatements(string(content)),
		})
	}

	return pending, nil
}

// RunPostgresMigrations applies embedded PostgreSQL migrations that have not run yet.
func RunPostgresMigrations(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: migrations: acquire connection: %w", ErrStoreUnavailable, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("%w: create tracking table: %w", ErrFailedToInit, err)
	}

	applied := make(map[string]struct{})

	rows, err := conn.Query(ctx, `SELECT version FROM `+migrationsTable)
	if err != nil {
		return fmt.Errorf("%w: list applied versions: %w", ErrFailedToInit, err)
	}

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scan applied version: %w", ErrFailedToInit, err)
		}

		applied[version] = struct{}{}
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate applied versions: %w", ErrFailedToInit, err)
	}

	pending, err := pendingMigrations("migrations/postgres", applied)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	for _, m := range pending {
		log.Info().Str("migration", m.name).Msg("applying migration")

		for idx, stmt := range m.statements {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%w: statement %d in %s: %w", ErrFailedToInit, idx+1, m.name, err)
			}
		}

		if _, err := conn.Exec(ctx, `INSERT INTO `+migrationsTable+` (version) VALUES ($1)`, m.version); err != nil {
			return fmt.Errorf("%w: record %s: %w", ErrFailedToInit, m.name, err)
		}
	}

	return nil
}

// runSQLiteMigrations applies the embedded SQLite migrations inside one transaction each.
func runSQLiteMigrations(ctx context.Context, db *sql.DB, log logger.Logger) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("%w: create tracking table: %w", ErrFailedToInit, err)
	}

	applied := make(map[string]struct{})

	rows, err := db.QueryContext(ctx, `SELECT version FROM `+migrationsTable)
	if err != nil {
		return fmt.Errorf("%w: list applied versions: %w", ErrFailedToInit, err)
	}

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			_ = rows.Close()
			return fmt.Errorf("%w: scan applied version: %w", ErrFailedToInit, err)
		}

		applied[version] = struct{}{}
	}

	_ = rows.Close()

	pending, err := pendingMigrations("migrations/sqlite", applied)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	for _, m := range pending {
		log.Info().Str("migration", m.name).Msg("applying migration")

		if err := applySQLiteMigration(ctx, db, m); err != nil {
			return err
		}
	}

	return nil
}

func applySQLiteMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin %s: %w", ErrFailedToInit, m.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	for idx, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: statement %d in %s: %w", ErrFailedToInit, idx+1, m.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO `+migrationsTable+` (version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("%w: record %s: %w", ErrFailedToInit, m.name, err)
	}

	return tx.Commit()
}

// splitSQLStatements splits a migration file on top-level semicolons,
// dropping -- comments and honouring quoted strings.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      byte
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}

		current.Reset()
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch {
		case quote != 0:
			current.WriteByte(ch)

			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
			current.WriteByte(ch)
		case ch == '-' && i+1 < len(content) && content[i+1] == '-':
			for i < len(content) && content[i] != '\n' {
				i++
			}

			current.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			current.WriteByte(ch)
		}
	}

	flush()

	return statements
}
