// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcdesc/network"
)

// AssertKeyParams are the parameters of AssertDescriptorKey.
type AssertKeyParams struct {
	// Key is the key to check.
	Key *KeyInfo

	// AllowPrivateKeys accepts keys that expose a private key.
	AllowPrivateKeys bool

	// AllowXpubHardenedKeyPath accepts a hardened key path on a key
	// without private key.
	AllowXpubHardenedKeyPath bool

	// AllowKeyPathWithoutWildcardIndex accepts key paths that have no
	// wildcard.
	AllowKeyPathWithoutWildcardIndex bool
}

// AssertDescriptorKey checks the key against the descriptor key policy.
func AssertDescriptorKey(p AssertKeyParams) error {
	k := p.Key
	private := k.HasPrivateKey()

	if private && !p.AllowPrivateKeys {
		// The expression is not echoed since it holds the private key.
		return fmt.Errorf("%w: key %s", ErrPrivateKeyNotAllowed, k.ID)
	}

	if !private && !p.AllowXpubHardenedKeyPath && IsHardenedPath(k.KeyPath) {
		return fmt.Errorf("%w: %s", ErrXpubHardenedKeyPath,
			k.KeyExpression)
	}

	wildcards := strings.Count(k.KeyPath, "*")
	switch {
	case wildcards > 1:
		return fmt.Errorf("%w: %s", ErrMultipleWildcards,
			k.KeyExpression)

	case wildcards == 0 && !p.AllowKeyPathWithoutWildcardIndex:
		return fmt.Errorf("%w: %s", ErrMissingWildcard, k.KeyExpression)

	case wildcards == 1 && !EndsWithWildcard(k.KeyPath):
		return fmt.Errorf("%w: %s", ErrWildcardNotLast, k.KeyExpression)
	}

	return nil
}

// AssertDescriptorKeys applies AssertDescriptorKey to every key. The first
// violation is returned.
func AssertDescriptorKeys(keys []*KeyInfo, p AssertKeyParams) error {
	for _, k := range keys {
		p.Key = k
		if err := AssertDescriptorKey(p); err != nil {
			return err
		}
	}

	return nil
}

// AssertMiniscript checks that the expanded miniscript parses and is sane.
func AssertMiniscript(expandedMiniscript string) error {
	ast, err := parseMiniscript(expandedMiniscript)
	if err != nil {
		return err
	}

	if err := ast.IsSane(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMiniscript, err)
	}

	return nil
}

// AssertDescriptorParams are the parameters of AssertDescriptor.
type AssertDescriptorParams struct {
	Descriptor string
	Network    *network.Network

	AllowPrivateKeys                 bool
	AllowXpubHardenedKeyPath         bool
	AllowKeyPathWithoutWildcardIndex bool

	// AllowWithNoKey accepts descriptors without keys, e.g. addr().
	AllowWithNoKey bool

	// AllowNonMiniscript accepts descriptors without a miniscript body,
	// e.g. wpkh() or sh(sortedmulti()).
	AllowNonMiniscript bool

	AllowMiniscriptInP2SH bool
	ChecksumOptional      bool
}

// AssertDescriptor expands the descriptor and checks its keys and its
// miniscript.
func AssertDescriptor(p AssertDescriptorParams) error {
	x, err := ExpandDescriptor(ExpandParams{
		Descriptor:            p.Descriptor,
		Network:               p.Network,
		ChecksumOptional:      p.ChecksumOptional,
		AllowMiniscriptInP2SH: p.AllowMiniscriptInP2SH,
	})
	if err != nil {
		return err
	}

	if x.ExpansionMap() != nil {
		err := AssertDescriptorKeys(x.Keys, AssertKeyParams{
			AllowPrivateKeys:         p.AllowPrivateKeys,
			AllowXpubHardenedKeyPath: p.AllowXpubHardenedKeyPath,
			AllowKeyPathWithoutWildcardIndex: p.
				AllowKeyPathWithoutWildcardIndex,
		})
		if err != nil {
			return err
		}
	} else if !p.AllowWithNoKey {
		return ErrNoKeysNotAllowed
	}

	if x.ExpandedMiniscript != "" {
		return AssertMiniscript(x.ExpandedMiniscript)
	}
	if !p.AllowNonMiniscript {
		return ErrNonMiniscriptNotAllowed
	}

	return nil
}
