// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miniscript

import (
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

// testKeys returns n distinct compressed public keys named K0..Kn-1.
func testKeys(t *testing.T, n int) map[string][]byte {
	t.Helper()

	keys := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		var secret [32]byte
		secret[31] = byte(i + 1)
		_, pub := btcec.PrivKeyFromBytes(secret[:])
		keys[fmt.Sprintf("K%d", i)] = pub.SerializeCompressed()
	}

	return keys
}

// lookup resolves the test key names.
func lookup(keys map[string][]byte) func(string) ([]byte, error) {
	return func(id string) ([]byte, error) {
		return keys[id], nil
	}
}

// TestScript checks compiled scripts of common fragments.
func TestScript(t *testing.T) {
	t.Parallel()

	keys := testKeys(t, 2)
	a, b := keys["K0"], keys["K1"]

	tests := []struct {
		name       string
		miniscript string
		want       *txscript.ScriptBuilder
	}{
		{
			name:       "pk",
			miniscript: "pk(K0)",
			want: txscript.NewScriptBuilder().AddData(a).
				AddOp(txscript.OP_CHECKSIG),
		},
		{
			name:       "pkh",
			miniscript: "pkh(K0)",
			want: txscript.NewScriptBuilder().
				AddOp(txscript.OP_DUP).
				AddOp(txscript.OP_HASH160).
				AddData(btcutil.Hash160(a)).
				AddOp(txscript.OP_EQUALVERIFY).
				AddOp(txscript.OP_CHECKSIG),
		},
		{
			name:       "multi",
			miniscript: "multi(2,K0,K1)",
			want: txscript.NewScriptBuilder().AddInt64(2).
				AddData(a).AddData(b).AddInt64(2).
				AddOp(txscript.OP_CHECKMULTISIG),
		},
		{
			name:       "collapsed verify",
			miniscript: "and_v(v:pk(K0),pk(K1))",
			want: txscript.NewScriptBuilder().AddData(a).
				AddOp(txscript.OP_CHECKSIGVERIFY).AddData(b).
				AddOp(txscript.OP_CHECKSIG),
		},
		{
			name:       "relative timelock",
			miniscript: "and_v(v:pk(K0),older(144))",
			want: txscript.NewScriptBuilder().AddData(a).
				AddOp(txscript.OP_CHECKSIGVERIFY).AddInt64(144).
				AddOp(txscript.OP_CHECKSEQUENCEVERIFY),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange.
			want, err := tc.want.Script()
			require.NoError(t, err)

			ast, err := Parse(tc.miniscript)
			require.NoError(t, err)
			require.NoError(t, ast.IsSane())
			require.NoError(t, ast.ApplyVars(lookup(keys)))

			// Act.
			script, err := ast.Script()

			// Assert.
			require.NoError(t, err)
			require.Equal(t, want, script)
			require.Len(t, script, ast.scriptLen)
		})
	}
}

// TestParseErrors checks that malformed expressions are rejected.
func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		miniscript string
	}{
		{name: "unknown fragment", miniscript: "foo(K0)"},
		{name: "unbalanced", miniscript: "pk(K0))"},
		{name: "argument count", miniscript: "and_v(v:pk(K0))"},
		{name: "threshold above keys", miniscript: "multi(3,K0,K1)"},
		{name: "zero timelock", miniscript: "older(0)"},
		{name: "wrong child type", miniscript: "and_v(pk(K0),pk(K1))"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(tc.miniscript)
			require.Error(t, err)
		})
	}
}

// TestIsSane checks the top level and sanity rules.
func TestIsSane(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		miniscript string
		wantErr    string
	}{
		{
			name:       "verify at top level",
			miniscript: "v:pk(K0)",
			wantErr:    "expected to have type B",
		},
		{
			name:       "no signature",
			miniscript: "older(144)",
			wantErr:    "does not need signature",
		},
		{
			name:       "sane",
			miniscript: "or_d(pk(K0),and_v(v:pk(K1),older(144)))",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ast, err := Parse(tc.miniscript)
			require.NoError(t, err)

			err = ast.IsSane()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

// pkhChain returns and_v(v:pkh(K0),and_v(...,pkh(Kn-1))), whose script
// holds 4 ops per key.
func pkhChain(n int) string {
	var b strings.Builder
	for i := 0; i < n-1; i++ {
		fmt.Fprintf(&b, "and_v(v:pkh(K%d),", i)
	}
	fmt.Fprintf(&b, "pkh(K%d)", n-1)
	b.WriteString(strings.Repeat(")", n-1))

	return b.String()
}

// TestOpCount checks op counting against the consensus limit.
func TestOpCount(t *testing.T) {
	t.Parallel()

	// Arrange: 50 keys use 200 ops, 51 keys use 204.
	ok, err := Parse(pkhChain(50))
	require.NoError(t, err)
	tooMany, err := Parse(pkhChain(51))
	require.NoError(t, err)

	// Act + Assert.
	require.Equal(t, 200, ok.maxOpCount())
	require.NoError(t, ok.IsSane())

	require.Equal(t, 204, tooMany.maxOpCount())
	require.ErrorContains(t, tooMany.IsSane(), "consensus limit")

	// Executed multisig keys count towards the limit.
	multi, err := Parse("multi(2,K0,K1,K2)")
	require.NoError(t, err)
	require.Equal(t, 4, multi.maxOpCount())

	thresh, err := Parse("thresh(2,pk(K0),s:pk(K1),s:pk(K2))")
	require.NoError(t, err)
	require.Equal(t, 8, thresh.maxOpCount())
}

// TestApplyVars checks key lookups and duplicate detection.
func TestApplyVars(t *testing.T) {
	t.Parallel()

	keys := testKeys(t, 1)

	ast, err := Parse("multi(1,K0,K1)")
	require.NoError(t, err)
	keys["K1"] = keys["K0"]
	require.ErrorContains(t, ast.ApplyVars(lookup(keys)), "duplicate key")

	ast, err = Parse("pk(K0)")
	require.NoError(t, err)
	err = ast.ApplyVars(func(string) ([]byte, error) {
		return []byte{0x02}, nil
	})
	require.ErrorContains(t, err, "expected to be of size 33")

	ast, err = Parse("pk(K0)")
	require.NoError(t, err)
	_, err = ast.Script()
	require.ErrorContains(t, err, "empty key")
}
