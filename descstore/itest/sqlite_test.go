// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build itest && !test_db_postgres

package itest

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcdesc/descstore"
	"github.com/stretchr/testify/require"
)

// NewTestStore opens a migrated SQLite store in a temporary directory. Each
// test gets its own database file.
func NewTestStore(t *testing.T) descstore.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := descstore.OpenSQLiteStore(dbPath)
	require.NoError(t, err, "failed to open sqlite store")

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
