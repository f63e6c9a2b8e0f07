// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package descriptor expands bitcoin output descriptors into keys, scripts
// and addresses, validates descriptor policies and matches PSBT inputs to
// the descriptors they spend from.
package descriptor

import (
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcdesc/ecc"
	"github.com/btcsuite/btcdesc/network"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Factory expands descriptors with an injected curve backend. A Factory
// holds no mutable state and is safe for concurrent use.
type Factory struct {
	ecc ecc.Backend
}

// NewFactory returns a Factory using the given backend.
func NewFactory(backend ecc.Backend) *Factory {
	return &Factory{ecc: backend}
}

// defaultFactory backs the package level functions.
var defaultFactory = NewFactory(ecc.Secp256k1())

// IsDescriptorSupported reports whether descriptors can be used on the
// network. Only the bitcoin family is supported.
func IsDescriptorSupported(n *network.Network) bool {
	return n != nil && n.Mainnet() == network.Bitcoin
}

// AssertDescriptorSupport returns ErrUnsupportedNetwork unless descriptors
// are supported on the network.
func AssertDescriptorSupport(n *network.Network) error {
	if !IsDescriptorSupported(n) {
		return fmt.Errorf("%w: got %v", ErrUnsupportedNetwork, n)
	}

	return nil
}

// outputKind is the top level form of a descriptor.
type outputKind uint8

const (
	kindAddr outputKind = iota
	kindPk
	kindPkh
	kindWpkh
	kindShWpkh
	kindSh
	kindWsh
	kindShWsh
)

// Payment is the concrete output of an expansion.
type Payment struct {
	// Address is the address of the output. For pk() it is the public
	// key address, which encodes as P2PKH. ScriptPubKey holds the bare
	// pay-to-pubkey script.
	Address btcutil.Address

	// ScriptPubKey is the output script.
	ScriptPubKey []byte

	// RedeemScript is the p2sh redeem script, nil if not p2sh.
	RedeemScript []byte

	// WitnessScript is the p2wsh witness script, nil if not p2wsh.
	WitnessScript []byte
}

// Expansion is the parsed form of a descriptor.
type Expansion struct {
	// Keys holds the keys in order of appearance. Keys[i].ID is "@i".
	Keys []*KeyInfo

	// ExpandedExpression is the checksum-free descriptor with every key
	// replaced by its placeholder.
	ExpandedExpression string

	// ExpandedMiniscript is the miniscript body with keys replaced by
	// placeholders. It is empty for descriptors without miniscript.
	ExpandedMiniscript string

	// IsRanged is true iff a key path ends in a wildcard.
	IsRanged bool

	// Payment is the output of the descriptor. It is nil while a key
	// needs an index that was not given.
	Payment *Payment

	kind        outputKind
	script      *node
	sortedMulti bool
}

// ExpansionMap returns the keys indexed by placeholder. It returns nil for
// descriptors without keys.
func (x *Expansion) ExpansionMap() map[string]*KeyInfo {
	if len(x.Keys) == 0 {
		return nil
	}

	m := make(map[string]*KeyInfo, len(x.Keys))
	for _, k := range x.Keys {
		m[k.ID] = k
	}

	return m
}

// keyByID returns the key with the placeholder, or nil.
func (x *Expansion) keyByID(id string) *KeyInfo {
	for _, k := range x.Keys {
		if k.ID == id {
			return k
		}
	}

	return nil
}

// ExpandParams are the parameters of ExpandDescriptor.
type ExpandParams struct {
	// Descriptor is the descriptor to expand.
	Descriptor string

	// Network must be a bitcoin family network.
	Network *network.Network

	// Index replaces the wildcard of ranged keys.
	Index fn.Option[uint32]

	// ChecksumOptional accepts descriptors without a checksum. A present
	// checksum is always verified.
	ChecksumOptional bool

	// AllowMiniscriptInP2SH accepts miniscript other than multi directly
	// under sh().
	AllowMiniscriptInP2SH bool
}

// ExpandDescriptorsParams are the parameters of ExpandDescriptors.
type ExpandDescriptorsParams struct {
	Descriptors           []string
	Network               *network.Network
	Index                 fn.Option[uint32]
	ChecksumOptional      bool
	AllowMiniscriptInP2SH bool
}

// DescriptorWithExpansion pairs a descriptor with its expansion. Candidate
// lists passed to the matcher may leave Expansion nil.
type DescriptorWithExpansion struct {
	Descriptor string
	Expansion  *Expansion
}

// ExpandDescriptor expands a descriptor using the default backend.
func ExpandDescriptor(p ExpandParams) (*Expansion, error) {
	return defaultFactory.ExpandDescriptor(p)
}

// ExpandDescriptors expands descriptors using the default backend.
func ExpandDescriptors(
	p ExpandDescriptorsParams) ([]DescriptorWithExpansion, error) {

	return defaultFactory.ExpandDescriptors(p)
}

// ExpandDescriptors expands every descriptor with the same options. The
// result preserves the input order.
func (f *Factory) ExpandDescriptors(
	p ExpandDescriptorsParams) ([]DescriptorWithExpansion, error) {

	if err := AssertDescriptorSupport(p.Network); err != nil {
		return nil, err
	}

	out := make([]DescriptorWithExpansion, 0, len(p.Descriptors))
	for _, desc := range p.Descriptors {
		x, err := f.ExpandDescriptor(ExpandParams{
			Descriptor:            desc,
			Network:               p.Network,
			Index:                 p.Index,
			ChecksumOptional:      p.ChecksumOptional,
			AllowMiniscriptInP2SH: p.AllowMiniscriptInP2SH,
		})
		if err != nil {
			return nil, err
		}

		out = append(out, DescriptorWithExpansion{
			Descriptor: desc,
			Expansion:  x,
		})
	}

	return out, nil
}

// ExpandDescriptor parses the descriptor into an Expansion. The payment is
// computed when every key can be derived, i.e. the descriptor is not ranged
// or Index is set.
func (f *Factory) ExpandDescriptor(p ExpandParams) (*Expansion, error) {
	if err := AssertDescriptorSupport(p.Network); err != nil {
		return nil, err
	}

	if idx := p.Index.UnwrapOr(0); idx >= hdkeychain.HardenedKeyStart {
		return nil, fmt.Errorf("%w: %d is hardened", ErrInvalidIndex,
			idx)
	}

	body, err := splitChecksum(p.Descriptor, p.ChecksumOptional)
	if err != nil {
		return nil, err
	}

	tree, err := parseExpr(body)
	if err != nil {
		return nil, err
	}

	e := &expander{
		params: p,
		keys: &keyParser{
			factory: f,
			params:  p.Network.Params,
			index:   p.Index,
		},
	}
	x, err := e.expand(tree)
	if err != nil {
		return nil, err
	}

	log.Tracef("Expanded descriptor %s: %v", body,
		newLogClosure(func() string {
			return spew.Sdump(x.Keys)
		}))

	return x, nil
}

// expander carries the state of one expansion.
type expander struct {
	params ExpandParams
	keys   *keyParser
	infos  []*KeyInfo
}

// key parses the leaf n as a key and replaces it with its placeholder.
func (e *expander) key(n *node) error {
	if !n.isLeaf() {
		return fmt.Errorf("%w: expected a key, got %s", ErrInvalidKey,
			n)
	}

	id := "@" + strconv.Itoa(len(e.infos))
	info, err := e.keys.parse(n.name, id)
	if err != nil {
		return err
	}

	e.infos = append(e.infos, info)
	n.name = id

	return nil
}

// single checks that n has exactly one argument and returns it.
func single(n *node) (*node, error) {
	if len(n.args) != 1 {
		return nil, fmt.Errorf("%w: %s expects 1 argument, got %d",
			ErrMalformedDescriptor, n.name, len(n.args))
	}

	return n.args[0], nil
}

func (e *expander) expand(tree *node) (*Expansion, error) {
	x := &Expansion{}

	arg, err := single(tree)
	if err != nil {
		return nil, err
	}

	switch tree.name {
	case "addr":
		return e.expandAddr(tree, arg)

	case "pk", "pkh", "wpkh":
		x.kind = map[string]outputKind{
			"pk": kindPk, "pkh": kindPkh, "wpkh": kindWpkh,
		}[tree.name]
		err = e.key(arg)

	case "sh":
		switch arg.name {
		case "wpkh":
			x.kind = kindShWpkh
			var inner *node
			if inner, err = single(arg); err == nil {
				err = e.key(inner)
			}

		case "wsh":
			x.kind = kindShWsh
			var inner *node
			if inner, err = single(arg); err == nil {
				err = e.script(x, inner, true)
			}

		default:
			x.kind = kindSh
			err = e.script(x, arg, false)
		}

	case "wsh":
		x.kind = kindWsh
		err = e.script(x, arg, true)

	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedExpression, tree.name)
	}
	if err != nil {
		return nil, err
	}

	x.Keys = e.infos
	x.ExpandedExpression = tree.String()
	for _, k := range x.Keys {
		if EndsWithWildcard(k.KeyPath) {
			x.IsRanged = true
		}
	}

	for _, k := range x.Keys {
		if k.PubKey == nil {
			return x, nil
		}
	}

	x.Payment, err = x.buildPayment(e.params.Network.Params)
	if err != nil {
		return nil, err
	}

	return x, nil
}

// expandAddr handles addr(ADDR).
func (e *expander) expandAddr(tree, arg *node) (*Expansion, error) {
	if !arg.isLeaf() {
		return nil, fmt.Errorf("%w: addr expects an address",
			ErrMalformedDescriptor)
	}

	params := e.params.Network.Params
	addr, err := btcutil.DecodeAddress(arg.name, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("%w: address %s", ErrKeyNetworkMismatch,
			arg.name)
	}

	spk, err := payToAddrScript(addr)
	if err != nil {
		return nil, err
	}

	return &Expansion{
		ExpandedExpression: tree.String(),
		Payment: &Payment{
			Address:      addr,
			ScriptPubKey: spk,
		},
		kind: kindAddr,
	}, nil
}

// script handles the script argument of sh() and wsh(): sortedmulti or a
// miniscript expression.
func (e *expander) script(x *Expansion, n *node, segwit bool) error {
	x.script = n

	if n.name == "sortedmulti" {
		x.sortedMulti = true
		if len(n.args) < 2 {
			return fmt.Errorf("%w: sortedmulti needs a threshold "+
				"and keys", ErrInvalidMultisig)
		}
		for _, arg := range n.args[1:] {
			if err := e.key(arg); err != nil {
				return err
			}
		}

		return nil
	}

	if !segwit && !e.params.AllowMiniscriptInP2SH &&
		n.fragment() != "multi" {

		return fmt.Errorf("%w: %s", ErrMiniscriptInP2SH, n.name)
	}

	err := n.walk(func(c *node) error {
		var keyArgs []*node
		switch c.fragment() {
		case "pk", "pkh", "pk_k", "pk_h":
			keyArgs = c.args[:min(1, len(c.args))]

		case "multi":
			if len(c.args) > 1 {
				keyArgs = c.args[1:]
			}
		}

		for _, arg := range keyArgs {
			if err := e.key(arg); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	x.ExpandedMiniscript = n.String()

	// Reject malformed miniscript at expansion time, sanity is checked
	// separately by AssertMiniscript.
	if _, err := parseMiniscript(x.ExpandedMiniscript); err != nil {
		return err
	}

	return nil
}
