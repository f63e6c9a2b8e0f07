// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/txscript"
)

// ScriptType is the output script family of a descriptor.
type ScriptType string

const (
	ScriptTypeP2PK       ScriptType = "p2pk"
	ScriptTypeP2PKH      ScriptType = "p2pkh"
	ScriptTypeP2WPKH     ScriptType = "p2wpkh"
	ScriptTypeP2SHP2WPKH ScriptType = "p2shP2wpkh"
	ScriptTypeP2SH       ScriptType = "p2sh"
	ScriptTypeP2WSH      ScriptType = "p2wsh"
	ScriptTypeP2SHP2WSH  ScriptType = "p2shP2wsh"
)

// scriptTypePrefixes is ordered so nested forms come before sh(.
var scriptTypePrefixes = []struct {
	prefix string
	typ    ScriptType
}{
	{"pk(", ScriptTypeP2PK},
	{"pkh(", ScriptTypeP2PKH},
	{"wpkh(", ScriptTypeP2WPKH},
	{"sh(wpkh(", ScriptTypeP2SHP2WPKH},
	{"sh(wsh(", ScriptTypeP2SHP2WSH},
	{"sh(", ScriptTypeP2SH},
	{"wsh(", ScriptTypeP2WSH},
}

// ParseScriptType classifies a descriptor by its leading syntax.
func ParseScriptType(desc string) (ScriptType, error) {
	for _, p := range scriptTypePrefixes {
		if strings.HasPrefix(desc, p.prefix) {
			return p.typ, nil
		}
	}

	return "", fmt.Errorf("%w: %.16s", ErrUnknownScriptType, desc)
}

// scriptTypeOf classifies produced scripts.
func scriptTypeOf(p *Payment) (ScriptType, error) {
	class := txscript.GetScriptClass(p.ScriptPubKey)
	switch {
	case class == txscript.PubKeyTy:
		return ScriptTypeP2PK, nil

	case class == txscript.PubKeyHashTy:
		return ScriptTypeP2PKH, nil

	case class == txscript.WitnessV0PubKeyHashTy:
		return ScriptTypeP2WPKH, nil

	case class == txscript.WitnessV0ScriptHashTy:
		return ScriptTypeP2WSH, nil

	case class == txscript.ScriptHashTy && p.WitnessScript != nil:
		return ScriptTypeP2SHP2WSH, nil

	case class == txscript.ScriptHashTy &&
		txscript.IsPayToWitnessPubKeyHash(p.RedeemScript):

		return ScriptTypeP2SHP2WPKH, nil

	case class == txscript.ScriptHashTy && p.RedeemScript != nil:
		return ScriptTypeP2SH, nil
	}

	return "", fmt.Errorf("%w: script class %v", ErrUnknownScriptType,
		class)
}
