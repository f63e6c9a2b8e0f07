// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcdesc/network"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// OutputParams are the parameters of CreateOutputDescriptor.
type OutputParams struct {
	Descriptor string
	Network    *network.Network

	// Index is required for ranged descriptors.
	Index fn.Option[uint32]

	ChecksumOptional      bool
	AllowMiniscriptInP2SH bool
}

// Output is a descriptor bound to an index. Its scripts are computed at
// construction and never change.
type Output struct {
	descriptor string
	index      fn.Option[uint32]
	expansion  *Expansion
}

// CreateOutputDescriptor builds an Output using the default backend.
func CreateOutputDescriptor(p OutputParams) (*Output, error) {
	return defaultFactory.CreateOutputDescriptor(p)
}

// CreateOutputDescriptor expands the descriptor at the index. Each call
// returns a new Output that shares nothing with earlier ones.
func (f *Factory) CreateOutputDescriptor(p OutputParams) (*Output, error) {
	x, err := f.ExpandDescriptor(ExpandParams{
		Descriptor:            p.Descriptor,
		Network:               p.Network,
		Index:                 p.Index,
		ChecksumOptional:      p.ChecksumOptional,
		AllowMiniscriptInP2SH: p.AllowMiniscriptInP2SH,
	})
	if err != nil {
		return nil, err
	}

	if x.Payment == nil || (x.IsRanged && p.Index.IsNone()) {
		return nil, fmt.Errorf("%w: %s", ErrIndexRequired,
			x.ExpandedExpression)
	}

	return &Output{
		descriptor: p.Descriptor,
		index:      p.Index,
		expansion:  x,
	}, nil
}

// Descriptor returns the descriptor the output was built from.
func (o *Output) Descriptor() string {
	return o.descriptor
}

// Index returns the index the output is bound to.
func (o *Output) Index() fn.Option[uint32] {
	return o.index
}

// Address returns the address of the output. For a bare pk() output this is
// a *btcutil.AddressPubKey, whose EncodeAddress yields the P2PKH form of the
// key. Use ScriptPubKey for the pay-to-pubkey script actually being paid.
func (o *Output) Address() btcutil.Address {
	return o.expansion.Payment.Address
}

// ScriptPubKey returns a copy of the output script.
func (o *Output) ScriptPubKey() []byte {
	return bytes.Clone(o.expansion.Payment.ScriptPubKey)
}

// RedeemScript returns a copy of the p2sh redeem script, or nil.
func (o *Output) RedeemScript() []byte {
	return bytes.Clone(o.expansion.Payment.RedeemScript)
}

// WitnessScript returns a copy of the p2wsh witness script, or nil.
func (o *Output) WitnessScript() []byte {
	return bytes.Clone(o.expansion.Payment.WitnessScript)
}

// Expand returns the expansion at the bound index. Its keys carry derived
// public keys. The result must not be modified.
func (o *Output) Expand() *Expansion {
	return o.expansion
}

// ScriptType classifies the produced scripts. It fails for addr() outputs
// whose script is not one of the known types.
func (o *Output) ScriptType() (ScriptType, error) {
	return scriptTypeOf(o.expansion.Payment)
}
