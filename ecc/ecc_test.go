// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ecc

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

// scalar returns a 32 byte big endian scalar holding v.
func scalar(v byte) []byte {
	s := make([]byte, 32)
	s[31] = v

	return s
}

// TestPointFromScalarAndAdd checks that 1*G + 2*G == 3*G and that tweaking
// 1*G by 2 yields the same point.
func TestPointFromScalarAndAdd(t *testing.T) {
	t.Parallel()

	b := Secp256k1()

	g1, err := b.PointFromScalar(scalar(1), true)
	require.NoError(t, err)
	g2, err := b.PointFromScalar(scalar(2), true)
	require.NoError(t, err)
	g3, err := b.PointFromScalar(scalar(3), true)
	require.NoError(t, err)

	sum, err := b.PointAdd(g1, g2, true)
	require.NoError(t, err)
	require.Equal(t, g3, sum)

	tweaked, err := b.PointAddScalar(g1, scalar(2), true)
	require.NoError(t, err)
	require.Equal(t, g3, tweaked)
}

// TestPointAddInfinity checks that P + (-P) is rejected.
func TestPointAddInfinity(t *testing.T) {
	t.Parallel()

	b := Secp256k1()

	g1, err := b.PointFromScalar(scalar(1), true)
	require.NoError(t, err)

	// Negating a compressed point only flips the parity byte.
	neg := bytes.Clone(g1)
	neg[0] ^= 0x01

	_, err = b.PointAdd(g1, neg, true)
	require.ErrorIs(t, err, ErrPointAtInfinity)
}

// TestPointCompress checks compression round trips.
func TestPointCompress(t *testing.T) {
	t.Parallel()

	b := Secp256k1()

	compressed, err := b.PointFromScalar(scalar(7), true)
	require.NoError(t, err)
	require.Len(t, compressed, btcec.PubKeyBytesLenCompressed)
	require.True(t, b.IsPoint(compressed))

	uncompressed, err := b.PointCompress(compressed, false)
	require.NoError(t, err)
	require.Len(t, uncompressed, secp256k1.PubKeyBytesLenUncompressed)
	require.True(t, b.IsPoint(uncompressed))

	again, err := b.PointCompress(uncompressed, true)
	require.NoError(t, err)
	require.Equal(t, compressed, again)
}

// TestInvalidInputs checks that malformed points and scalars are rejected.
func TestInvalidInputs(t *testing.T) {
	t.Parallel()

	b := Secp256k1()

	require.False(t, b.IsPoint(nil))

	// The x coordinate is above the field prime.
	overflow := append([]byte{0x02}, bytes.Repeat([]byte{0xff}, 32)...)
	require.False(t, b.IsPoint(overflow))

	// A valid point with its parity byte replaced.
	badPrefix, err := b.PointFromScalar(scalar(7), true)
	require.NoError(t, err)
	badPrefix[0] = 0x05
	require.False(t, b.IsPoint(badPrefix))

	require.False(t, b.IsPoint(make([]byte, 32)))

	_, err = b.PointFromScalar(make([]byte, 32), true)
	require.ErrorIs(t, err, ErrInvalidScalar)

	_, err = b.PointFromScalar(bytes.Repeat([]byte{0xff}, 32), true)
	require.ErrorIs(t, err, ErrInvalidScalar)

	_, err = b.PointCompress([]byte{0x04}, true)
	require.ErrorIs(t, err, ErrInvalidPoint)
}

// TestSchnorr checks that signatures made by the backend verify against the
// x-only key and fail for a different message.
func TestSchnorr(t *testing.T) {
	t.Parallel()

	b := Secp256k1()

	priv := scalar(42)
	pub, err := b.PointFromScalar(priv, true)
	require.NoError(t, err)

	hash := sha256.Sum256([]byte("btcdesc"))
	sig, err := b.SignSchnorr(hash[:], priv)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	require.True(t, b.VerifySchnorr(hash[:], pub[1:], sig))

	other := sha256.Sum256([]byte("other"))
	require.False(t, b.VerifySchnorr(other[:], pub[1:], sig))
	require.False(t, b.VerifySchnorr(hash[:], pub[1:], sig[:63]))
}
