// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcdesc/network"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// multisigWallet is a 2-of-2 wallet with external and internal chains.
type multisigWallet struct {
	keyA, keyB *testKey
	external   string
	internal   string
}

func newMultisigWallet(t *testing.T) *multisigWallet {
	t.Helper()

	keyA, keyB := newTestKey(t, 1), newTestKey(t, 2)
	desc := func(chain string) string {
		return withChecksum(t, fmt.Sprintf("wsh(sortedmulti(2,%s,%s))",
			keyA.expr("/"+chain+"/*"), keyB.expr("/"+chain+"/*")))
	}

	return &multisigWallet{
		keyA:     keyA,
		keyB:     keyB,
		external: desc("0"),
		internal: desc("1"),
	}
}

// output returns the output of the wallet descriptor at the index.
func (w *multisigWallet) output(t *testing.T, desc string,
	index uint32) *Output {

	t.Helper()

	out, err := CreateOutputDescriptor(OutputParams{
		Descriptor: desc,
		Network:    network.Bitcoin,
		Index:      fn.Some(index),
	})
	require.NoError(t, err)

	return out
}

// input returns a psbt input spending the wallet output on the chain at the
// index.
func (w *multisigWallet) input(t *testing.T, chain,
	index uint32) psbt.PInput {

	t.Helper()

	desc := w.external
	if chain == 1 {
		desc = w.internal
	}
	out := w.output(t, desc, index)

	return psbt.PInput{
		WitnessUtxo:   wire.NewTxOut(10_000, out.ScriptPubKey()),
		RedeemScript:  out.RedeemScript(),
		WitnessScript: out.WitnessScript(),
		Bip32Derivation: []*psbt.Bip32Derivation{
			w.keyA.derivation(t, chain, index),
			w.keyB.derivation(t, chain, index),
		},
	}
}

// TestGetMatchingOutputDescriptor checks first-match selection over
// candidates with and without expansions.
func TestGetMatchingOutputDescriptor(t *testing.T) {
	t.Parallel()

	w := newMultisigWallet(t)
	input := w.input(t, 1, 7)

	candidates, err := ExpandDescriptors(ExpandDescriptorsParams{
		Descriptors: []string{w.external, w.internal},
		Network:     network.Bitcoin,
	})
	require.NoError(t, err)

	unexpanded := []DescriptorWithExpansion{
		{Descriptor: w.external},
		{Descriptor: w.internal},
	}

	for name, cands := range map[string][]DescriptorWithExpansion{
		"expanded":   candidates,
		"unexpanded": unexpanded,
	} {
		cands := cands
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// Act.
			m, err := GetMatchingOutputDescriptor(MatchParams{
				Input:      &input,
				Candidates: cands,
				Network:    network.Bitcoin,
			})

			// Assert.
			require.NoError(t, err)
			require.Equal(t, w.internal, m.Descriptor)
			require.Equal(t, fn.Some[uint32](7), m.Index)
			require.NotNil(t, m.Expansion)
			require.True(t, m.Expansion.IsRanged)
			require.Equal(t, input.WitnessScript,
				m.Output.WitnessScript())
		})
	}
}

// TestGetMatchingOutputDescriptorFailures checks the hard failures of the
// matcher.
func TestGetMatchingOutputDescriptorFailures(t *testing.T) {
	t.Parallel()

	w := newMultisigWallet(t)
	pub := w.keyA.pubAt(t, 0, 0)
	single := fmt.Sprintf("wpkh(%x)", pub)

	// Derivations that resolve the wildcard but no scripts.
	stripped := w.input(t, 0, 4)
	stripped.RedeemScript = nil
	stripped.WitnessScript = nil

	// The witness script of index 7 with derivations claiming index 8.
	tampered := w.input(t, 0, 7)
	tampered.Bip32Derivation = w.input(t, 0, 8).Bip32Derivation

	tests := []struct {
		name       string
		input      psbt.PInput
		candidates []string
		network    *network.Network
		wantErr    error
	}{
		{
			name:       "input without scripts",
			input:      psbt.PInput{},
			candidates: []string{w.external},
			wantErr:    ErrInputMissingScripts,
		},
		{
			name:       "input with derivations only",
			input:      stripped,
			candidates: []string{w.external, w.internal},
			wantErr:    ErrInputMissingScripts,
		},
		{
			name:       "candidate without scripts",
			input:      w.input(t, 0, 3),
			candidates: []string{single, w.external},
			wantErr:    ErrOutputMissingScripts,
		},
		{
			name:       "no candidate",
			input:      tampered,
			candidates: []string{w.external, w.internal},
			wantErr:    ErrNoMatchingDescriptor,
		},
		{
			name:       "empty candidates",
			input:      w.input(t, 0, 3),
			candidates: nil,
			wantErr:    ErrNoMatchingDescriptor,
		},
		{
			name:       "unsupported network",
			input:      w.input(t, 0, 3),
			candidates: []string{w.external},
			network:    network.Litecoin,
			wantErr:    ErrUnsupportedNetwork,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange.
			n := tc.network
			if n == nil {
				n = network.Bitcoin
			}
			cands := make([]DescriptorWithExpansion, 0,
				len(tc.candidates))
			for _, d := range tc.candidates {
				cands = append(cands, DescriptorWithExpansion{
					Descriptor: d,
				})
			}

			// Act.
			_, err := GetMatchingOutputDescriptor(MatchParams{
				Input:      &tc.input,
				Candidates: cands,
				Network:    n,
			})

			// Assert.
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// TestGetOutputDescriptors checks matching of every packet input.
func TestGetOutputDescriptors(t *testing.T) {
	t.Parallel()

	w := newMultisigWallet(t)
	packet := newTestPacket(t, w.input(t, 0, 2), w.input(t, 1, 9))

	matches, err := GetOutputDescriptors(
		packet, []string{w.external, w.internal}, network.Bitcoin,
	)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, w.external, matches[0].Descriptor)
	require.Equal(t, fn.Some[uint32](2), matches[0].Index)
	require.Equal(t, w.internal, matches[1].Descriptor)
	require.Equal(t, fn.Some[uint32](9), matches[1].Index)

	packet.Inputs[1].WitnessScript = nil
	packet.Inputs[1].RedeemScript = nil
	_, err = GetOutputDescriptors(
		packet, []string{w.external, w.internal}, network.Bitcoin,
	)
	require.ErrorIs(t, err, ErrInputMissingScripts)
}

// TestGetMatchingOutputDescriptorFirstMatch checks that the first of two
// candidates producing the same scripts wins.
func TestGetMatchingOutputDescriptorFirstMatch(t *testing.T) {
	t.Parallel()

	w := newMultisigWallet(t)
	input := w.input(t, 0, 2)
	unchecked := w.external[:len(w.external)-9]

	for _, order := range [][]string{
		{unchecked, w.external},
		{w.external, unchecked},
	} {
		m, err := GetMatchingOutputDescriptor(MatchParams{
			Input: &input,
			Candidates: []DescriptorWithExpansion{
				{Descriptor: order[0]},
				{Descriptor: order[1]},
			},
			Network: network.Bitcoin,
		})
		require.NoError(t, err)
		require.Equal(t, order[0], m.Descriptor)

		// Matching is stateless.
		again, err := GetMatchingOutputDescriptor(MatchParams{
			Input: &input,
			Candidates: []DescriptorWithExpansion{
				{Descriptor: order[0]},
				{Descriptor: order[1]},
			},
			Network: network.Bitcoin,
		})
		require.NoError(t, err)
		require.Equal(t, m.Descriptor, again.Descriptor)
		require.Equal(t, m.Index, again.Index)
	}
}
