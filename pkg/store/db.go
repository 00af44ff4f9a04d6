// Package store persists canonical procurement invoices and the import
// ledger in a single SQLite database, and serves the read queries the API
// layer exposes. The pipeline is the only writer; WAL mode lets the query
// layer read concurrently while an import is in progress.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at path with WAL journaling
// and a busy timeout, and wraps it with bun. debug enables verbose query
// logging.
func Open(path string, debug bool) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.Exec(`
        PRAGMA synchronous = NORMAL;
        PRAGMA foreign_keys = ON;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return db, nil
}

// Init creates the invoice and ledger tables and their query indexes.
func Init(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Invoice)(nil),
		(*ImportRecord)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	// Indexes back the filter predicates of the query service.
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_invoices_tositepaiva ON invoices(tositepaiva DESC)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_vuosi ON invoices(vuosi)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_toimittaja ON invoices(toimittaja_nimi)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_kategoria ON invoices(hankintakategoria)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_yksikko ON invoices(hankintayksikko)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_sektori ON invoices(sektori)",
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
