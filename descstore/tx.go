// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// execInTx runs f in a transaction. The transaction is committed when f
// succeeds and rolled back otherwise.
func execInTx(ctx context.Context, db *sql.DB, f func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return newError(ErrDatabase, "begin transaction", err)
	}

	if err := f(tx); err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return newError(ErrDatabase, "commit transaction", err)
	}

	return nil
}
