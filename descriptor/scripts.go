// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"slices"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcdesc/internal/miniscript"
)

const (
	// maxScriptElementSize is the largest p2sh redeem script.
	maxScriptElementSize = txscript.MaxScriptElementSize

	// maxMultisigKeys is the largest key count of a sortedmulti.
	maxMultisigKeys = 20

	// maxP2SHMultisigKeys is the largest key count of a sortedmulti
	// directly under sh().
	maxP2SHMultisigKeys = 15
)

// parseMiniscript parses an expanded miniscript body.
func parseMiniscript(ms string) (*miniscript.AST, error) {
	ast, err := miniscript.Parse(ms)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMiniscript, err)
	}

	return ast, nil
}

// payToAddrScript wraps txscript.PayToAddrScript.
func payToAddrScript(addr btcutil.Address) ([]byte, error) {
	spk, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}

	return spk, nil
}

// compressedKey returns an error unless pub is a 33 byte key.
func compressedKey(k *KeyInfo) error {
	if len(k.PubKey) != btcec.PubKeyBytesLenCompressed {
		return fmt.Errorf("%w: %s", ErrUncompressedKey, k.KeyExpression)
	}

	return nil
}

// buildPayment derives the addresses and scripts of an expansion whose
// keys all have public keys.
func (x *Expansion) buildPayment(params *chaincfg.Params) (*Payment,
	error) {

	var (
		p    = &Payment{}
		addr btcutil.Address
		err  error
	)

	switch x.kind {
	case kindPk:
		addr, err = btcutil.NewAddressPubKey(x.Keys[0].PubKey, params)

	case kindPkh:
		addr, err = btcutil.NewAddressPubKeyHash(
			btcutil.Hash160(x.Keys[0].PubKey), params,
		)

	case kindWpkh:
		if err := compressedKey(x.Keys[0]); err != nil {
			return nil, err
		}
		addr, err = btcutil.NewAddressWitnessPubKeyHash(
			btcutil.Hash160(x.Keys[0].PubKey), params,
		)

	case kindShWpkh:
		if err := compressedKey(x.Keys[0]); err != nil {
			return nil, err
		}
		var wpkh btcutil.Address
		wpkh, err = btcutil.NewAddressWitnessPubKeyHash(
			btcutil.Hash160(x.Keys[0].PubKey), params,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		if p.RedeemScript, err = payToAddrScript(wpkh); err != nil {
			return nil, err
		}
		addr, err = btcutil.NewAddressScriptHash(p.RedeemScript, params)

	case kindSh:
		if p.RedeemScript, err = x.compileScript(params, false); err != nil {
			return nil, err
		}
		if len(p.RedeemScript) > maxScriptElementSize {
			return nil, fmt.Errorf("%w: redeem script is %d bytes",
				ErrScriptTooLarge, len(p.RedeemScript))
		}
		addr, err = btcutil.NewAddressScriptHash(p.RedeemScript, params)

	case kindWsh, kindShWsh:
		if p.WitnessScript, err = x.compileScript(params, true); err != nil {
			return nil, err
		}
		h := sha256.Sum256(p.WitnessScript)
		addr, err = btcutil.NewAddressWitnessScriptHash(h[:], params)
		if err != nil || x.kind == kindWsh {
			break
		}

		if p.RedeemScript, err = payToAddrScript(addr); err != nil {
			return nil, err
		}
		addr, err = btcutil.NewAddressScriptHash(p.RedeemScript, params)

	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnsupportedExpression,
			x.kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	p.Address = addr
	if p.ScriptPubKey, err = payToAddrScript(addr); err != nil {
		return nil, err
	}

	return p, nil
}

// compileScript builds the script below sh() or wsh().
func (x *Expansion) compileScript(params *chaincfg.Params,
	segwit bool) ([]byte, error) {

	if x.sortedMulti {
		return x.sortedMultiScript(params, segwit)
	}

	ast, err := parseMiniscript(x.ExpandedMiniscript)
	if err != nil {
		return nil, err
	}

	err = ast.ApplyVars(func(id string) ([]byte, error) {
		k := x.keyByID(id)
		if k == nil {
			return nil, nil
		}

		return k.PubKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMiniscript, err)
	}

	script, err := ast.Script()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMiniscript, err)
	}

	return script, nil
}

// sortedMultiScript builds a CHECKMULTISIG script with lexicographically
// sorted keys.
func (x *Expansion) sortedMultiScript(params *chaincfg.Params,
	segwit bool) ([]byte, error) {

	args := x.script.args
	threshold, err := strconv.Atoi(args[0].name)
	if err != nil {
		return nil, fmt.Errorf("%w: threshold %q", ErrInvalidMultisig,
			args[0].name)
	}

	limit := maxMultisigKeys
	if !segwit {
		limit = maxP2SHMultisigKeys
	}

	n := len(args) - 1
	if threshold < 1 || threshold > n || n > limit {
		return nil, fmt.Errorf("%w: %d of %d keys", ErrInvalidMultisig,
			threshold, n)
	}

	pubs := make([][]byte, 0, n)
	for _, arg := range args[1:] {
		k := x.keyByID(arg.name)
		if segwit {
			if err := compressedKey(k); err != nil {
				return nil, err
			}
		}
		pubs = append(pubs, k.PubKey)
	}
	slices.SortFunc(pubs, bytes.Compare)

	addrs := make([]*btcutil.AddressPubKey, 0, n)
	for _, pub := range pubs {
		a, err := btcutil.NewAddressPubKey(pub, params)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		addrs = append(addrs, a)
	}

	script, err := txscript.MultiSigScript(addrs, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMultisig, err)
	}

	return script, nil
}
