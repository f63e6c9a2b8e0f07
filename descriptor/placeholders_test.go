// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExpandNonKeyLocks checks timelock and hash substitution.
func TestExpandNonKeyLocks(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("ab", 32)
	short := strings.Repeat("cd", 20)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "timelocks",
			in:   "and_v(v:pk(@0),and_v(v:older(10),after(500)))",
			want: "and_v(v:pk(@0),and_v(v:older(#0),after(#1)))",
		},
		{
			name: "hashes",
			in: "and_v(v:sha256(" + hash + "),hash256(" + hash +
				"))",
			want: "and_v(v:sha256($0),hash256($1))",
		},
		{
			name: "separate counters",
			in: "or_d(pk(@0),and_v(v:sha256(" + hash +
				"),older(144)))",
			want: "or_d(pk(@0),and_v(v:sha256($0),older(#0)))",
		},
		{
			name: "short hashes are kept",
			in:   "and_v(v:hash160(" + short + "),pk(@0))",
			want: "and_v(v:hash160(" + short + "),pk(@0))",
		},
		{
			name: "keys only",
			in:   "multi(2,@0,@1)",
			want: "multi(2,@0,@1)",
		},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, ExpandNonKeyLocks(tc.in), tc.name)
	}
}

// TestAssertDescriptorPlaceholders checks the placeholder format.
func TestAssertDescriptorPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		phs     []string
		prefix  byte
		wantErr bool
	}{
		{
			name:   "keys",
			phs:    []string{"@0", "@1", "@10", "@1"},
			prefix: KeyPlaceholder,
		},
		{
			name:   "timelocks",
			phs:    []string{"#0", "#7"},
			prefix: TimelockPlaceholder,
		},
		{
			name:   "hashes",
			phs:    []string{"$0", "$12"},
			prefix: HashPlaceholder,
		},
		{
			name:    "leading zero",
			phs:     []string{"@0", "@01"},
			prefix:  KeyPlaceholder,
			wantErr: true,
		},
		{
			name:    "wrong prefix",
			phs:     []string{"#0"},
			prefix:  KeyPlaceholder,
			wantErr: true,
		},
		{
			name:    "no number",
			phs:     []string{"$"},
			prefix:  HashPlaceholder,
			wantErr: true,
		},
		{
			name:    "unknown prefix",
			phs:     []string{"%0"},
			prefix:  '%',
			wantErr: true,
		},
		{
			name:   "empty",
			prefix: KeyPlaceholder,
		},
	}

	for _, tc := range tests {
		err := AssertDescriptorPlaceholders(tc.phs, tc.prefix)
		if tc.wantErr {
			require.ErrorIs(t, err, ErrInvalidPlaceholder, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
	}
}
