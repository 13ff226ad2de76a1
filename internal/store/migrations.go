package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all goramble tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS expansions (
		id             TEXT PRIMARY KEY,
		source         TEXT NOT NULL DEFAULT '',
		content_hash   TEXT NOT NULL DEFAULT '',
		instance_count INTEGER NOT NULL DEFAULT 0,
		warnings       TEXT NOT NULL DEFAULT '[]',
		created_at     TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS instances (
		expansion_id TEXT NOT NULL REFERENCES expansions(id) ON DELETE CASCADE,
		id           TEXT NOT NULL,
		idx          INTEGER NOT NULL,
		application  TEXT NOT NULL,
		workload     TEXT NOT NULL,
		experiment   TEXT NOT NULL,
		name         TEXT NOT NULL,
		body         TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		PRIMARY KEY (expansion_id, id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_expansions_content_hash ON expansions(content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_instances_id ON instances(id)`,
	`CREATE INDEX IF NOT EXISTS idx_instances_scope ON instances(application, workload)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "expansions",
		column:   "failures",
		alterSQL: "ALTER TABLE expansions ADD COLUMN failures TEXT NOT NULL DEFAULT '[]'",
	},
}

// migrate executes all schema DDL statements and alter migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}
	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
