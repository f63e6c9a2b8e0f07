// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcdesc/network"
	"github.com/stretchr/testify/require"
)

// expandKey expands wpkh(expr) and returns its key.
func expandKey(t *testing.T, expr string) *KeyInfo {
	t.Helper()

	x, err := ExpandDescriptor(ExpandParams{
		Descriptor:       fmt.Sprintf("wpkh(%s)", expr),
		Network:          network.Bitcoin,
		ChecksumOptional: true,
	})
	require.NoError(t, err)
	require.Len(t, x.Keys, 1)

	return x.Keys[0]
}

// TestAssertDescriptorKey checks each key policy rule and its override.
func TestAssertDescriptorKey(t *testing.T) {
	t.Parallel()

	key := newTestKey(t, 1)
	xprv := func(keyPath string) string {
		return key.origin() + key.xprv + keyPath
	}

	tests := []struct {
		name    string
		expr    string
		params  AssertKeyParams
		wantErr error
	}{
		{
			name: "ranged xpub",
			expr: key.expr("/0/*"),
		},
		{
			name:    "xprv",
			expr:    xprv("/0/*"),
			wantErr: ErrPrivateKeyNotAllowed,
		},
		{
			name:   "xprv allowed",
			expr:   xprv("/0/*"),
			params: AssertKeyParams{AllowPrivateKeys: true},
		},
		{
			name:   "xprv with hardened path",
			expr:   xprv("/0'/*"),
			params: AssertKeyParams{AllowPrivateKeys: true},
		},
		{
			name:    "xpub with hardened path",
			expr:    key.expr("/0'/*"),
			wantErr: ErrXpubHardenedKeyPath,
		},
		{
			name: "xpub with hardened path allowed",
			expr: key.expr("/0h/*"),
			params: AssertKeyParams{
				AllowXpubHardenedKeyPath: true,
			},
		},
		{
			name:    "two wildcards",
			expr:    key.expr("/*/*"),
			wantErr: ErrMultipleWildcards,
		},
		{
			name: "two wildcards with overrides",
			expr: key.expr("/*/*"),
			params: AssertKeyParams{
				AllowKeyPathWithoutWildcardIndex: true,
			},
			wantErr: ErrMultipleWildcards,
		},
		{
			name:    "no wildcard",
			expr:    key.expr("/0/5"),
			wantErr: ErrMissingWildcard,
		},
		{
			name: "no wildcard allowed",
			expr: key.expr("/0/5"),
			params: AssertKeyParams{
				AllowKeyPathWithoutWildcardIndex: true,
			},
		},
		{
			name:    "wildcard not last",
			expr:    key.expr("/*/0"),
			wantErr: ErrWildcardNotLast,
		},
		{
			name:    "hardened wildcard on xpub",
			expr:    key.expr("/0/*'"),
			wantErr: ErrXpubHardenedKeyPath,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange.
			p := tc.params
			p.Key = expandKey(t, tc.expr)

			// Act.
			err := AssertDescriptorKey(p)

			// Assert.
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

// TestAssertDescriptorKeys checks that a single bad key fails the batch
// regardless of its position.
func TestAssertDescriptorKeys(t *testing.T) {
	t.Parallel()

	good := expandKey(t, newTestKey(t, 1).expr("/0/*"))
	bad := expandKey(t, newTestKey(t, 2).expr("/0/5"))

	require.NoError(t, AssertDescriptorKeys(
		[]*KeyInfo{good, good}, AssertKeyParams{},
	))
	require.ErrorIs(t, AssertDescriptorKeys(
		[]*KeyInfo{bad, good}, AssertKeyParams{},
	), ErrMissingWildcard)
	require.ErrorIs(t, AssertDescriptorKeys(
		[]*KeyInfo{good, bad}, AssertKeyParams{},
	), ErrMissingWildcard)
	require.NoError(t, AssertDescriptorKeys(nil, AssertKeyParams{}))
}

// TestAssertMiniscript checks the sanity gate.
func TestAssertMiniscript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ms      string
		wantErr bool
	}{
		{ms: "multi(2,@0,@1)"},
		{ms: "and_v(v:pk(@0),pk(@1))"},
		{ms: "and_v(v:pk(@0),older(144))"},
		{ms: "or_d(pk(@0),and_v(v:pk(@1),older(1000)))"},
		{ms: "older(144)", wantErr: true},
		{ms: "pk_k(@0)", wantErr: true},
		{ms: "and_v(pk(@0))", wantErr: true},
		{ms: "unknown(@0)", wantErr: true},
	}

	for _, tc := range tests {
		err := AssertMiniscript(tc.ms)
		if tc.wantErr {
			require.ErrorIs(t, err, ErrInvalidMiniscript, tc.ms)
			continue
		}
		require.NoError(t, err, tc.ms)
	}
}

// TestAssertDescriptor checks the composition of expansion, key policy
// and miniscript checks.
func TestAssertDescriptor(t *testing.T) {
	t.Parallel()

	a := newTestKey(t, 1).expr("/0/*")
	b := newTestKey(t, 2).expr("/0/*")
	pub := newTestKey(t, 3).pubAt(t, 0, 0)
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pub), &chaincfg.MainNetParams,
	)
	require.NoError(t, err)

	tests := []struct {
		name    string
		params  AssertDescriptorParams
		wantErr error
	}{
		{
			name: "wsh multi",
			params: AssertDescriptorParams{
				Descriptor: withChecksum(t, fmt.Sprintf(
					"wsh(multi(2,%s,%s))", a, b,
				)),
			},
		},
		{
			name: "checksum required by default",
			params: AssertDescriptorParams{
				Descriptor: fmt.Sprintf("wsh(multi(2,%s,%s))",
					a, b),
			},
			wantErr: ErrMissingChecksum,
		},
		{
			name: "wpkh is not miniscript",
			params: AssertDescriptorParams{
				Descriptor: withChecksum(t, fmt.Sprintf(
					"wpkh(%s)", a,
				)),
			},
			wantErr: ErrNonMiniscriptNotAllowed,
		},
		{
			name: "wpkh allowed",
			params: AssertDescriptorParams{
				Descriptor: withChecksum(t, fmt.Sprintf(
					"wpkh(%s)", a,
				)),
				AllowNonMiniscript: true,
			},
		},
		{
			name: "addr has no keys",
			params: AssertDescriptorParams{
				Descriptor: withChecksum(t, fmt.Sprintf(
					"addr(%s)", addr.EncodeAddress(),
				)),
				AllowNonMiniscript: true,
			},
			wantErr: ErrNoKeysNotAllowed,
		},
		{
			name: "addr allowed",
			params: AssertDescriptorParams{
				Descriptor: withChecksum(t, fmt.Sprintf(
					"addr(%s)", addr.EncodeAddress(),
				)),
				AllowWithNoKey:     true,
				AllowNonMiniscript: true,
			},
		},
		{
			name: "insane miniscript",
			params: AssertDescriptorParams{
				Descriptor:       "wsh(older(144))",
				ChecksumOptional: true,
				AllowWithNoKey:   true,
			},
			wantErr: ErrInvalidMiniscript,
		},
		{
			name: "bad key fails before miniscript",
			params: AssertDescriptorParams{
				Descriptor: fmt.Sprintf("wsh(multi(2,%s,%s/0/1))",
					a, newTestKey(t, 4).xpub),
				ChecksumOptional: true,
			},
			wantErr: ErrMissingWildcard,
		},
		{
			name: "miniscript in p2sh",
			params: AssertDescriptorParams{
				Descriptor: fmt.Sprintf(
					"sh(and_v(v:pk(%s),pk(%s)))", a, b,
				),
				ChecksumOptional: true,
			},
			wantErr: ErrMiniscriptInP2SH,
		},
		{
			name: "miniscript in p2sh allowed",
			params: AssertDescriptorParams{
				Descriptor: fmt.Sprintf(
					"sh(and_v(v:pk(%s),pk(%s)))", a, b,
				),
				ChecksumOptional:      true,
				AllowMiniscriptInP2SH: true,
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := tc.params
			p.Network = network.Bitcoin

			err := AssertDescriptor(p)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	err = AssertDescriptor(AssertDescriptorParams{
		Descriptor: withChecksum(t, fmt.Sprintf("wpkh(%s)", a)),
		Network:    network.Dogecoin,
	})
	require.ErrorIs(t, err, ErrUnsupportedNetwork)
}
