// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcdesc/psbtutil"
	"github.com/stretchr/testify/require"
)

const hardened = hdkeychain.HardenedKeyStart

// accountPath is the origin path of every test key.
var accountPath = []uint32{48 + hardened, 0 + hardened, 0 + hardened,
	2 + hardened}

// testKey is a deterministic BIP32 key with its account xpub.
type testKey struct {
	master      *hdkeychain.ExtendedKey
	account     *hdkeychain.ExtendedKey
	xpub        string
	xprv        string
	fingerprint []byte
}

// newTestKey derives the test key of the seed byte on mainnet.
func newTestKey(t *testing.T, seed byte) *testKey {
	t.Helper()

	master, err := hdkeychain.NewMaster(
		bytes.Repeat([]byte{seed}, 32), &chaincfg.MainNetParams,
	)
	require.NoError(t, err)

	masterPub, err := master.ECPubKey()
	require.NoError(t, err)

	account := master
	for _, step := range accountPath {
		account, err = account.Derive(step)
		require.NoError(t, err)
	}

	xpub, err := account.Neuter()
	require.NoError(t, err)

	return &testKey{
		master:  master,
		account: xpub,
		xpub:    xpub.String(),
		xprv:    account.String(),
		fingerprint: btcutil.Hash160(
			masterPub.SerializeCompressed(),
		)[:4],
	}
}

// origin returns the key origin prefix of the account key.
func (k *testKey) origin() string {
	return fmt.Sprintf("[%s/48'/0'/0'/2']", hex.EncodeToString(
		k.fingerprint,
	))
}

// expr returns the key expression with the key path, e.g. "/0/*".
func (k *testKey) expr(keyPath string) string {
	return k.origin() + k.xpub + keyPath
}

// pubAt returns the compressed public key at account/chain/index.
func (k *testKey) pubAt(t *testing.T, chain, index uint32) []byte {
	t.Helper()

	child, err := k.account.Derive(chain)
	require.NoError(t, err)
	child, err = child.Derive(index)
	require.NoError(t, err)

	pub, err := child.ECPubKey()
	require.NoError(t, err)

	return pub.SerializeCompressed()
}

// derivation returns the psbt derivation of account/chain/index.
func (k *testKey) derivation(t *testing.T, chain,
	index uint32) *psbt.Bip32Derivation {

	t.Helper()

	fp, err := psbtutil.FingerprintToUint32(k.fingerprint)
	require.NoError(t, err)

	path := append([]uint32{}, accountPath...)
	path = append(path, chain, index)

	return &psbt.Bip32Derivation{
		PubKey:               k.pubAt(t, chain, index),
		MasterKeyFingerprint: fp,
		Bip32Path:            path,
	}
}

// withChecksum appends the checksum to the descriptor.
func withChecksum(t *testing.T, desc string) string {
	t.Helper()

	d, err := AddChecksum(desc)
	require.NoError(t, err)

	return d
}
