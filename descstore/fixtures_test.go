// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descstore

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcdesc/descriptor"
	"github.com/stretchr/testify/require"
)

const hardened = hdkeychain.HardenedKeyStart

// testNow is the creation time stamped on pairs written by test stores.
var testNow = time.Unix(1_700_000_000, 0)

// accountKey returns the "[fingerprint/48'/0'/0'/2']xpub" expression of the
// seed byte.
func accountKey(t *testing.T, seed byte) string {
	t.Helper()

	master, err := hdkeychain.NewMaster(
		bytes.Repeat([]byte{seed}, 32), &chaincfg.MainNetParams,
	)
	require.NoError(t, err)

	masterPub, err := master.ECPubKey()
	require.NoError(t, err)
	fp := btcutil.Hash160(masterPub.SerializeCompressed())[:4]

	account := master
	for _, step := range []uint32{48, 0, 0, 2} {
		account, err = account.Derive(step + hardened)
		require.NoError(t, err)
	}

	xpub, err := account.Neuter()
	require.NoError(t, err)

	return fmt.Sprintf("[%s/48'/0'/0'/2']%s", hex.EncodeToString(fp),
		xpub.String())
}

// multisigDesc returns the checksummed 2-of-2 descriptor of the seeds on
// the chain.
func multisigDesc(t *testing.T, chain string, seedA, seedB byte) string {
	t.Helper()

	desc, err := descriptor.AddChecksum(fmt.Sprintf(
		"wsh(sortedmulti(2,%s/%s/*,%s/%s/*))", accountKey(t, seedA),
		chain, accountKey(t, seedB), chain,
	))
	require.NoError(t, err)

	return desc
}

// newTestPair returns a valid bitcoin pair of the 2-of-2 wallet of the
// seeds.
func newTestPair(t *testing.T, name string, seedA,
	seedB byte) DescriptorPair {

	t.Helper()

	return DescriptorPair{
		Name:     name,
		Network:  "bitcoin",
		External: multisigDesc(t, "0", seedA, seedB),
		Internal: multisigDesc(t, "1", seedA, seedB),
	}
}

// newTestStore opens a migrated SQLite store in a temporary directory with
// a fixed clock.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "desc.db"))
	require.NoError(t, err)
	store.now = func() time.Time { return testNow }

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
