// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descstore

import (
	"context"
	"database/sql"
	"fmt"

	// Register the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore creates a PostgreSQL based Store over a migrated
// database.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s, err := newSQLStore(db, newDialect("postgres", dollarBinds))
	if err != nil {
		return nil, err
	}

	return &PostgresStore{sqlStore: s}, nil
}

// OpenPostgresStore connects to the database at dsn, applies the
// migrations and returns the store. The caller closes it.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore,
	error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, newError(ErrDatabase, "open postgres database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, newError(ErrDatabase, "connect to postgres", err)
	}

	if err := ApplyPostgresMigrations(db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	return NewPostgresStore(db)
}
