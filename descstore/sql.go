// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	insertPairQuery = `INSERT INTO descriptor_pairs (name, network,
external_descriptor, internal_descriptor, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`

	selectPairQuery = `SELECT name, network, external_descriptor,
internal_descriptor, created_at FROM descriptor_pairs WHERE name = ?`

	listPairsQuery = `SELECT name, network, external_descriptor,
internal_descriptor, created_at FROM descriptor_pairs ORDER BY name`

	deletePairQuery = `DELETE FROM descriptor_pairs WHERE name = ?`
)

// dialect holds the per backend query text.
type dialect struct {
	name string

	insertPair string
	selectPair string
	listPairs  string
	deletePair string
}

// newDialect builds a dialect from the shared queries. The rebind function
// rewrites the ? placeholders into the backend's bind syntax.
func newDialect(name string, rebind func(string) string) dialect {
	return dialect{
		name:       name,
		insertPair: rebind(insertPairQuery),
		selectPair: rebind(selectPairQuery),
		listPairs:  rebind(listPairsQuery),
		deletePair: rebind(deletePairQuery),
	}
}

// questionBinds keeps ? placeholders.
func questionBinds(q string) string {
	return q
}

// dollarBinds rewrites ? placeholders into $1, $2, ...
func dollarBinds(q string) string {
	var (
		b strings.Builder
		n int
	)
	for _, r := range q {
		if r != '?' {
			b.WriteRune(r)
			continue
		}

		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

// sqlStore implements Store over database/sql.
type sqlStore struct {
	db      *sql.DB
	dialect dialect

	// now returns the creation time of new pairs.
	now func() time.Time
}

// A compile-time check to ensure that sqlStore implements the Store
// interface.
var _ Store = (*sqlStore)(nil)

func newSQLStore(db *sql.DB, d dialect) (*sqlStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	return &sqlStore{db: db, dialect: d, now: time.Now}, nil
}

// PutDescriptorPair validates the pair and writes it.
func (s *sqlStore) PutDescriptorPair(ctx context.Context,
	pair DescriptorPair) error {

	if err := ValidatePair(pair); err != nil {
		return err
	}

	createdAt := s.now().Unix()

	err := execInTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx, s.dialect.insertPair, pair.Name, pair.Network,
			pair.External, pair.Internal, createdAt,
		)
		if err != nil {
			return newError(ErrDatabase, "insert descriptor pair",
				err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return newError(ErrDatabase, "insert descriptor pair",
				err)
		}
		if n == 0 {
			return ErrPairExists
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Debugf("Stored descriptor pair %q on %s", pair.Name,
		pair.Network)

	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPair(row rowScanner) (DescriptorPair, error) {
	var (
		pair      DescriptorPair
		createdAt int64
	)
	err := row.Scan(
		&pair.Name, &pair.Network, &pair.External, &pair.Internal,
		&createdAt,
	)
	if err != nil {
		return DescriptorPair{}, err
	}
	pair.CreatedAt = time.Unix(createdAt, 0)

	return pair, nil
}

// GetDescriptorPair returns the pair with the name.
func (s *sqlStore) GetDescriptorPair(ctx context.Context,
	name string) (DescriptorPair, error) {

	row := s.db.QueryRowContext(ctx, s.dialect.selectPair, name)
	pair, err := scanPair(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return DescriptorPair{}, ErrPairNotFound

	case err != nil:
		return DescriptorPair{}, newError(
			ErrDatabase, "select descriptor pair", err,
		)
	}

	return pair, nil
}

// ListDescriptorPairs returns all pairs ordered by name.
func (s *sqlStore) ListDescriptorPairs(
	ctx context.Context) ([]DescriptorPair, error) {

	rows, err := s.db.QueryContext(ctx, s.dialect.listPairs)
	if err != nil {
		return nil, newError(ErrDatabase, "list descriptor pairs", err)
	}
	defer rows.Close()

	var pairs []DescriptorPair
	for rows.Next() {
		pair, err := scanPair(rows)
		if err != nil {
			return nil, newError(
				ErrDatabase, "scan descriptor pair", err,
			)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(ErrDatabase, "list descriptor pairs", err)
	}

	return pairs, nil
}

// DeleteDescriptorPair removes the pair with the name.
func (s *sqlStore) DeleteDescriptorPair(ctx context.Context,
	name string) error {

	res, err := s.db.ExecContext(ctx, s.dialect.deletePair, name)
	if err != nil {
		return newError(ErrDatabase, "delete descriptor pair", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return newError(ErrDatabase, "delete descriptor pair", err)
	}
	if n == 0 {
		return ErrPairNotFound
	}

	log.Debugf("Deleted descriptor pair %q", name)

	return nil
}

// Close closes the underlying database.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
