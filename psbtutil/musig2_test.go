// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbtutil

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// xOnly returns the x-only serialization of a deterministic key.
func xOnly(seed byte) []byte {
	return testPubKey(seed)[1:]
}

// TestMusig2Participants checks the participants record layout and its
// validation.
func TestMusig2Participants(t *testing.T) {
	t.Parallel()

	p := &Musig2Participants{
		TapOutputKey:       xOnly(10),
		TapInternalKey:     xOnly(11),
		ParticipantPubKeys: [2][]byte{testPubKey(1), testPubKey(2)},
	}

	kv, err := EncodeMusig2Participants(p)
	require.NoError(t, err)
	require.Equal(t, Musig2ParticipantPubKeys, kv.Key.Subtype)
	require.Len(t, kv.Key.KeyData, 64)
	require.Len(t, kv.Value, 66)

	decoded, err := DecodeMusig2Participants(kv)
	require.NoError(t, err)
	require.Equal(t, p, decoded)

	// Duplicate participants are rejected.
	dup := *p
	dup.ParticipantPubKeys[1] = dup.ParticipantPubKeys[0]
	_, err = EncodeMusig2Participants(&dup)
	require.ErrorIs(t, err, ErrInvalidMusig2Record)

	// Truncated key data is rejected.
	kv.Key.KeyData = kv.Key.KeyData[:63]
	_, err = DecodeMusig2Participants(kv)
	require.ErrorIs(t, err, ErrInvalidMusig2Record)
	require.ErrorContains(t, err, "invalid keydata size 63")
}

// TestMusig2PubNonce checks the nonce record layout.
func TestMusig2PubNonce(t *testing.T) {
	t.Parallel()

	n := &Musig2PubNonceRecord{
		ParticipantPubKey: testPubKey(1),
		TapOutputKey:      xOnly(10),
	}
	copy(n.PubNonce[:], bytes.Repeat([]byte{0x02}, musig2.PubNonceSize))

	kv, err := EncodeMusig2PubNonce(n)
	require.NoError(t, err)
	require.Len(t, kv.Key.KeyData, 65)

	decoded, err := DecodeMusig2PubNonce(kv)
	require.NoError(t, err)
	require.Equal(t, n, decoded)

	kv.Value = kv.Value[:65]
	_, err = DecodeMusig2PubNonce(kv)
	require.ErrorIs(t, err, ErrInvalidMusig2Record)

	_, err = DecodeMusig2Participants(kv)
	require.ErrorIs(t, err, ErrInvalidMusig2Record)
}

// TestMusig2PartialSig checks partial signatures with and without a sighash
// byte.
func TestMusig2PartialSig(t *testing.T) {
	t.Parallel()

	sig := bytes.Repeat([]byte{0x01}, 32)

	tests := []struct {
		name    string
		sighash fn.Option[byte]
		size    int
	}{
		{name: "default sighash", sighash: fn.None[byte](), size: 32},
		{name: "explicit sighash", sighash: fn.Some(byte(0x01)), size: 33},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := &Musig2PartialSigRecord{
				ParticipantPubKey: testPubKey(1),
				TapOutputKey:      xOnly(10),
				PartialSig:        sig,
				Sighash:           tc.sighash,
			}

			kv, err := EncodeMusig2PartialSig(s)
			require.NoError(t, err)
			require.Len(t, kv.Value, tc.size)

			decoded, err := DecodeMusig2PartialSig(kv)
			require.NoError(t, err)
			require.Equal(t, s, decoded)
		})
	}

	// A scalar above the curve order is not a partial signature.
	_, err := EncodeMusig2PartialSig(&Musig2PartialSigRecord{
		ParticipantPubKey: testPubKey(1),
		TapOutputKey:      xOnly(10),
		PartialSig:        bytes.Repeat([]byte{0xff}, 32),
	})
	require.ErrorIs(t, err, ErrInvalidMusig2Record)
}

// TestZecConsensusBranchID checks the global branch id record.
func TestZecConsensusBranchID(t *testing.T) {
	t.Parallel()

	packet := newTestPacket(t, 1)

	id, err := GetZecConsensusBranchID(packet)
	require.NoError(t, err)
	require.True(t, id.IsNone())

	SetZecConsensusBranchID(packet, 0xc2d6d0b4)
	SetZecConsensusBranchID(packet, 0x4dec4df0)
	require.Len(t, packet.Unknowns, 1)

	id, err = GetZecConsensusBranchID(packet)
	require.NoError(t, err)
	require.Equal(t, fn.Some(uint32(0x4dec4df0)), id)
}
