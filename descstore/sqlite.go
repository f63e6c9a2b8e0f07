// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descstore

import (
	"database/sql"
	"fmt"

	// Register the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite implementation of the Store interface.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore creates a SQLite based Store over a migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s, err := newSQLStore(db, newDialect("sqlite", questionBinds))
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{sqlStore: s}, nil
}

// sqliteDSN returns the connection string for the database file with
// foreign keys, WAL journaling, immediate transaction locking and a busy
// timeout.
func sqliteDSN(path string) string {
	dsn := path + "?_pragma=foreign_keys=on"
	dsn += "&_pragma=journal_mode=WAL"
	dsn += "&_txlock=immediate"
	dsn += "&_pragma=busy_timeout=5000"

	return dsn
}

// OpenSQLiteStore opens the database file at path, creating it if needed,
// applies the migrations and returns the store. The caller closes it.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, newError(ErrDatabase, "open sqlite database", err)
	}

	if err := ApplySQLiteMigrations(db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return NewSQLiteStore(db)
}
