// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcdesc/network"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// IsAddrDescriptor reports whether the descriptor is an addr() descriptor.
func IsAddrDescriptor(desc string) bool {
	return strings.HasPrefix(desc, "addr(")
}

// DifferenceParams are the parameters of
// AssertDifferenceForInternalExternal.
type DifferenceParams struct {
	DescriptorA string
	DescriptorB string
	Network     *network.Network
}

// keyExprWithoutKeyPath strips the key path from the key expression.
func keyExprWithoutKeyPath(k *KeyInfo) string {
	return strings.TrimSuffix(k.KeyExpression, k.KeyPath)
}

// AssertDifferenceForInternalExternal checks that two descriptors are the
// same policy over the same keys that differ only in key paths, and that
// they do not produce the same address. It is meant for external and
// internal descriptor pairs of a wallet.
func AssertDifferenceForInternalExternal(p DifferenceParams) error {
	if err := AssertDescriptorSupport(p.Network); err != nil {
		return err
	}

	if IsAddrDescriptor(p.DescriptorA) || IsAddrDescriptor(p.DescriptorB) {
		return ErrAddrDescriptor
	}

	expand := func(desc string) (*Expansion, error) {
		return ExpandDescriptor(ExpandParams{
			Descriptor:            desc,
			Network:               p.Network,
			ChecksumOptional:      true,
			AllowMiniscriptInP2SH: true,
		})
	}

	a, err := expand(p.DescriptorA)
	if err != nil {
		return err
	}
	b, err := expand(p.DescriptorB)
	if err != nil {
		return err
	}

	if a.ExpansionMap() == nil || b.ExpansionMap() == nil {
		return ErrNoKeys
	}
	if a.ExpandedExpression != b.ExpandedExpression {
		return fmt.Errorf("%w: %s and %s", ErrExpressionMismatch,
			a.ExpandedExpression, b.ExpandedExpression)
	}
	if a.IsRanged != b.IsRanged {
		return ErrRangeMismatch
	}
	if len(a.Keys) != len(b.Keys) {
		return fmt.Errorf("%w: %d and %d", ErrKeyCountMismatch,
			len(a.Keys), len(b.Keys))
	}

	keysB := b.ExpansionMap()
	for _, ka := range a.Keys {
		kb, ok := keysB[ka.ID]
		if !ok || keyExprWithoutKeyPath(ka) != keyExprWithoutKeyPath(kb) {
			return fmt.Errorf("%w: %s", ErrKeyMismatch, ka.ID)
		}
	}

	addrA, err := firstAddress(p.DescriptorA, a, p.Network)
	if err != nil {
		return err
	}
	addrB, err := firstAddress(p.DescriptorB, b, p.Network)
	if err != nil {
		return err
	}

	if addrA.EncodeAddress() == addrB.EncodeAddress() {
		return fmt.Errorf("%w: both produce %s", ErrSameDescriptor,
			addrA.EncodeAddress())
	}

	return nil
}

// firstAddress returns the address of the expansion, or of the descriptor
// at index 0 when the expansion has no payment.
func firstAddress(desc string, x *Expansion,
	n *network.Network) (btcutil.Address, error) {

	if x.Payment != nil {
		return x.Payment.Address, nil
	}

	out, err := CreateOutputDescriptor(OutputParams{
		Descriptor:            desc,
		Network:               n,
		Index:                 fn.Some[uint32](0),
		ChecksumOptional:      true,
		AllowMiniscriptInP2SH: true,
	})
	if err != nil {
		return nil, err
	}

	return out.Address(), nil
}
