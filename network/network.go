// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package network defines the UTXO networks known to btcdesc. Each network
// carries the chaincfg parameters used for address and key encoding and a
// link to the mainnet of its family.
package network

import (
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg"
)

// ErrUnknownNetwork is returned when a network name cannot be resolved.
var ErrUnknownNetwork = errors.New("unknown network")

// Network describes a UTXO network.
type Network struct {
	// Name is the canonical name of the network, e.g. "bitcoin" or
	// "testnet".
	Name string

	// Params holds the address and extended key encoding constants.
	Params *chaincfg.Params

	// mainnet points to the mainnet of the family. It is nil for mainnets.
	mainnet *Network
}

// Mainnet returns the mainnet of the network's family. For a mainnet it
// returns the network itself.
func (n *Network) Mainnet() *Network {
	if n.mainnet == nil {
		return n
	}

	return n.mainnet
}

// IsMainnet reports whether the network is the mainnet of its family.
func (n *Network) IsMainnet() bool {
	return n.mainnet == nil
}

// String returns the name of the network.
func (n *Network) String() string {
	return n.Name
}

// forkParams returns a copy of the bitcoin mainnet params with the given
// name and address prefixes. Only the fields used for encoding are changed.
func forkParams(base *chaincfg.Params, name string, pkh, sh, wif byte,
	hrp string) *chaincfg.Params {

	p := *base
	p.Name = name
	p.PubKeyHashAddrID = pkh
	p.ScriptHashAddrID = sh
	p.PrivateKeyID = wif
	p.Bech32HRPSegwit = hrp

	return &p
}

var (
	// Bitcoin is bitcoin mainnet.
	Bitcoin = &Network{Name: "bitcoin", Params: &chaincfg.MainNetParams}

	// Testnet is bitcoin testnet3.
	Testnet = &Network{
		Name: "testnet", Params: &chaincfg.TestNet3Params,
		mainnet: Bitcoin,
	}

	// Regtest is the bitcoin regression test network.
	Regtest = &Network{
		Name: "regtest", Params: &chaincfg.RegressionNetParams,
		mainnet: Bitcoin,
	}

	// Signet is the default bitcoin signet.
	Signet = &Network{
		Name: "signet", Params: &chaincfg.SigNetParams,
		mainnet: Bitcoin,
	}

	// BitcoinCash is bitcoin cash mainnet. Only legacy address prefixes
	// are modeled.
	BitcoinCash = &Network{
		Name: "bitcoincash",
		Params: forkParams(
			&chaincfg.MainNetParams, "bitcoincash", 0x00, 0x05,
			0x80, "",
		),
	}

	// BitcoinCashTestnet is bitcoin cash testnet.
	BitcoinCashTestnet = &Network{
		Name: "bitcoincashTestnet",
		Params: forkParams(
			&chaincfg.TestNet3Params, "bitcoincashTestnet", 0x6f,
			0xc4, 0xef, "",
		),
		mainnet: BitcoinCash,
	}

	// Litecoin is litecoin mainnet.
	Litecoin = &Network{
		Name: "litecoin",
		Params: forkParams(
			&chaincfg.MainNetParams, "litecoin", 0x30, 0x32, 0xb0,
			"ltc",
		),
	}

	// LitecoinTestnet is litecoin testnet.
	LitecoinTestnet = &Network{
		Name: "litecoinTest",
		Params: forkParams(
			&chaincfg.TestNet3Params, "litecoinTest", 0x6f, 0x3a,
			0xef, "tltc",
		),
		mainnet: Litecoin,
	}

	// Dogecoin is dogecoin mainnet.
	Dogecoin = &Network{
		Name: "dogecoin",
		Params: forkParams(
			&chaincfg.MainNetParams, "dogecoin", 0x1e, 0x16, 0x9e,
			"",
		),
	}

	// Zcash is zcash mainnet. Zcash uses two-byte address prefixes; only
	// the trailing byte is kept since the params are never used to encode
	// zcash addresses.
	Zcash = &Network{
		Name: "zcash",
		Params: forkParams(
			&chaincfg.MainNetParams, "zcash", 0xb8, 0xbd, 0x80, "",
		),
	}
)

// all lists every known network.
var all = []*Network{
	Bitcoin, Testnet, Regtest, Signet, BitcoinCash, BitcoinCashTestnet,
	Litecoin, LitecoinTestnet, Dogecoin, Zcash,
}

// All returns every known network.
func All() []*Network {
	out := make([]*Network, len(all))
	copy(out, all)

	return out
}

// Names returns the sorted names of all known networks.
func Names() []string {
	names := make([]string, 0, len(all))
	for _, n := range all {
		names = append(names, n.Name)
	}
	sort.Strings(names)

	return names
}

// ByName resolves a network from its name.
func ByName(name string) (*Network, error) {
	for _, n := range all {
		if n.Name == name {
			return n, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
}
