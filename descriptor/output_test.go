// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcdesc/network"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestCreateOutputDescriptorIndex checks the index requirement of ranged
// descriptors.
func TestCreateOutputDescriptorIndex(t *testing.T) {
	t.Parallel()

	key := newTestKey(t, 1)
	ranged := withChecksum(t, fmt.Sprintf("wpkh(%s)", key.expr("/0/*")))
	fixed := withChecksum(t, fmt.Sprintf("wpkh(%s)", key.expr("/0/5")))

	_, err := CreateOutputDescriptor(OutputParams{
		Descriptor: ranged,
		Network:    network.Bitcoin,
	})
	require.ErrorIs(t, err, ErrIndexRequired)

	out, err := CreateOutputDescriptor(OutputParams{
		Descriptor: fixed,
		Network:    network.Bitcoin,
	})
	require.NoError(t, err)
	require.True(t, out.Index().IsNone())
	require.Equal(t, fixed, out.Descriptor())

	// A wildcard that is not the last element still needs an index.
	_, err = CreateOutputDescriptor(OutputParams{
		Descriptor:       fmt.Sprintf("wpkh(%s)", key.expr("/*/0")),
		Network:          network.Bitcoin,
		ChecksumOptional: true,
	})
	require.ErrorIs(t, err, ErrIndexRequired)
}

// TestCreateOutputDescriptorIsolation checks that outputs built from the
// same inputs are distinct but equal, and do not share script buffers.
func TestCreateOutputDescriptorIsolation(t *testing.T) {
	t.Parallel()

	// Arrange.
	a := newTestKey(t, 1).expr("/0/*")
	b := newTestKey(t, 2).expr("/0/*")
	p := OutputParams{
		Descriptor: withChecksum(t, fmt.Sprintf(
			"wsh(multi(2,%s,%s))", a, b,
		)),
		Network: network.Bitcoin,
		Index:   fn.Some[uint32](11),
	}

	// Act.
	first, err := CreateOutputDescriptor(p)
	require.NoError(t, err)
	second, err := CreateOutputDescriptor(p)
	require.NoError(t, err)

	// Assert.
	require.NotSame(t, first, second)
	require.NotSame(t, first.Expand(), second.Expand())
	require.Equal(t, first.ScriptPubKey(), second.ScriptPubKey())
	require.Equal(t, first.WitnessScript(), second.WitnessScript())
	require.Equal(t, first.Address().EncodeAddress(),
		second.Address().EncodeAddress())

	ws := first.WitnessScript()
	ws[0] ^= 0xff
	require.Equal(t, second.WitnessScript(), first.WitnessScript())
	require.Equal(t, uint32(11), first.Index().UnwrapOr(0))
}

// TestBarePubKeyOutput checks that a pk() output pays a bare pubkey script
// while its address is the public key address.
func TestBarePubKeyOutput(t *testing.T) {
	t.Parallel()

	// Arrange.
	pub := newTestKey(t, 1).pubAt(t, 0, 0)

	// Act.
	out, err := CreateOutputDescriptor(OutputParams{
		Descriptor:       fmt.Sprintf("pk(%x)", pub),
		Network:          network.Bitcoin,
		ChecksumOptional: true,
	})
	require.NoError(t, err)

	// Assert.
	require.Equal(t, txscript.PubKeyTy,
		txscript.GetScriptClass(out.ScriptPubKey()))

	addr, ok := out.Address().(*btcutil.AddressPubKey)
	require.True(t, ok)
	require.Equal(t, pub, addr.ScriptAddress())

	pkh, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(pub), network.Bitcoin.Params,
	)
	require.NoError(t, err)
	require.Equal(t, pkh.EncodeAddress(), out.Address().EncodeAddress())
}
