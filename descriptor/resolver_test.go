// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcdesc/network"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestFindWildcardPathMatch checks the path comparison.
func TestFindWildcardPathMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		paths    []string
		wildcard string
		want     fn.Option[string]
	}{
		{
			name: "second path matches",
			paths: []string{
				"m/48'/0'/0'/2'/1/7", "m/48'/0'/0'/2'/0/7",
			},
			wildcard: "m/48h/0h/0h/2h/0/*",
			want:     fn.Some("m/48'/0'/0'/2'/0/7"),
		},
		{
			name:     "hardened wildcard",
			paths:    []string{"m/0/3'"},
			wildcard: "m/0/*'",
			want:     fn.Some("m/0/3'"),
		},
		{
			name:     "different prefix",
			paths:    []string{"m/1/3"},
			wildcard: "m/0/*",
			want:     fn.None[string](),
		},
		{
			name:     "unparsable path",
			paths:    []string{"m/x/3", "m/0/3"},
			wildcard: "m/0/*",
			want:     fn.Some("m/0/3"),
		},
		{
			name:     "no paths",
			wildcard: "m/0/*",
			want:     fn.None[string](),
		},
	}

	for _, tc := range tests {
		got := FindWildcardPathMatch(tc.paths, tc.wildcard)
		require.Equal(t, tc.want, got, tc.name)
	}
}

// TestGetValueForDescriptorWildcardIndex checks index resolution from
// BIP32 derivations.
func TestGetValueForDescriptorWildcardIndex(t *testing.T) {
	t.Parallel()

	keyA, keyB := newTestKey(t, 1), newTestKey(t, 2)
	expand := func(desc string) *Expansion {
		x, err := ExpandDescriptor(ExpandParams{
			Descriptor:       desc,
			Network:          network.Bitcoin,
			ChecksumOptional: true,
		})
		require.NoError(t, err)

		return x
	}

	ranged := expand(fmt.Sprintf("wsh(multi(2,%s,%s))",
		keyA.expr("/0/5"), keyB.expr("/1/*")))
	fixed := expand(fmt.Sprintf("wpkh(%s)", keyA.expr("/0/5")))

	tests := []struct {
		name      string
		expansion *Expansion
		derivs    []*psbt.Bip32Derivation
		want      fn.Option[uint32]
		wantErr   error
	}{
		{
			name:      "not ranged",
			expansion: fixed,
			want:      fn.None[uint32](),
		},
		{
			name:      "resolved from the wildcard key",
			expansion: ranged,
			derivs: []*psbt.Bip32Derivation{
				keyA.derivation(t, 0, 5),
				keyB.derivation(t, 1, 42),
			},
			want: fn.Some[uint32](42),
		},
		{
			name:      "no derivations",
			expansion: ranged,
			wantErr:   ErrMissingWildcardData,
		},
		{
			name:      "fingerprint of another key",
			expansion: ranged,
			derivs: []*psbt.Bip32Derivation{
				keyA.derivation(t, 1, 42),
			},
			wantErr: ErrWildcardIndexNotFound,
		},
		{
			name:      "other chain",
			expansion: ranged,
			derivs: []*psbt.Bip32Derivation{
				keyB.derivation(t, 0, 42),
			},
			wantErr: ErrWildcardIndexNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			input := &psbt.PInput{Bip32Derivation: tc.derivs}
			got, err := GetValueForDescriptorWildcardIndex(
				input, tc.expansion,
			)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestFindValueOfWildcardRawKey checks that keys without BIP32 data cannot
// resolve a wildcard.
func TestFindValueOfWildcardRawKey(t *testing.T) {
	t.Parallel()

	key := newTestKey(t, 1)
	pub := key.pubAt(t, 0, 0)
	x, err := ExpandDescriptor(ExpandParams{
		Descriptor:       fmt.Sprintf("wpkh(%x)", pub),
		Network:          network.Bitcoin,
		ChecksumOptional: true,
	})
	require.NoError(t, err)

	input := &psbt.PInput{
		Bip32Derivation: []*psbt.Bip32Derivation{
			key.derivation(t, 0, 0),
		},
	}
	_, err = FindValueOfWildcard(input, x.Keys[0])
	require.ErrorIs(t, err, ErrMissingWildcardData)

	require.True(t, FindKeyWithBip32WildcardPath(x.Keys).IsNone())
}
