// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package descstore persists the external and internal descriptors of
// wallets. Every pair is validated with the descriptor package before it is
// written, so a stored pair is always usable for address derivation and PSBT
// input matching.
package descstore

import (
	"context"
	"time"

	"github.com/btcsuite/btcdesc/descriptor"
	"github.com/btcsuite/btcdesc/network"
)

// DescriptorPair is the descriptor pair of one wallet.
type DescriptorPair struct {
	// Name identifies the wallet.
	Name string

	// Network is the canonical network name, see network.ByName.
	Network string

	// External is the checksummed receive descriptor.
	External string

	// Internal is the checksummed change descriptor.
	Internal string

	// CreatedAt is set by the store when the pair is written.
	CreatedAt time.Time
}

// Store is a registry of descriptor pairs.
type Store interface {
	// PutDescriptorPair validates and writes a new pair. ErrPairExists
	// is returned if the name or the external descriptor is taken.
	PutDescriptorPair(ctx context.Context, pair DescriptorPair) error

	// GetDescriptorPair returns the pair with the name or
	// ErrPairNotFound.
	GetDescriptorPair(ctx context.Context, name string) (DescriptorPair,
		error)

	// ListDescriptorPairs returns all pairs ordered by name.
	ListDescriptorPairs(ctx context.Context) ([]DescriptorPair, error)

	// DeleteDescriptorPair removes the pair with the name or returns
	// ErrPairNotFound.
	DeleteDescriptorPair(ctx context.Context, name string) error
}

// ValidatePair checks the pair the way PutDescriptorPair does before
// writing it. Both descriptors must carry checksums, must not contain
// private keys and must be ranged over a single trailing wildcard. Together
// they must form an external and internal pair over the same keys.
func ValidatePair(pair DescriptorPair) error {
	if pair.Name == "" {
		return ErrEmptyName
	}

	n, err := network.ByName(pair.Network)
	if err != nil {
		return newError(ErrInvalidPair, "invalid network", err)
	}

	for _, desc := range []string{pair.External, pair.Internal} {
		err := descriptor.AssertDescriptor(
			descriptor.AssertDescriptorParams{
				Descriptor:         desc,
				Network:            n,
				AllowNonMiniscript: true,
			},
		)
		if err != nil {
			return newError(ErrInvalidPair, "invalid descriptor",
				err)
		}
	}

	err = descriptor.AssertDifferenceForInternalExternal(
		descriptor.DifferenceParams{
			DescriptorA: pair.External,
			DescriptorB: pair.Internal,
			Network:     n,
		},
	)
	if err != nil {
		return newError(ErrInvalidPair, "invalid descriptor pair", err)
	}

	return nil
}
