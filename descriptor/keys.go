// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// originRE matches a key origin, e.g. [d34db33f/48'/0'/0'/2'].
	originRE = regexp.MustCompile(`^\[([[:xdigit:]]{8})((?:/\d+['hH]?)*)\]`)

	// pathElemRE matches one key path element, including wildcards.
	pathElemRE = regexp.MustCompile(`^(\d+|\*)(['hH]?)$`)

	// wildcardRE matches a path ending in a wildcard.
	wildcardRE = regexp.MustCompile(`\*['hH]?$`)

	// hardenedRE matches any hardened marker.
	hardenedRE = regexp.MustCompile(`['hH]`)
)

// KeyMaterial is the key behind a key expression. It is one of *RawPubKey,
// *WIFKey, *ExtendedPubKey or *ExtendedPrivKey.
type KeyMaterial interface {
	isKeyMaterial()
}

// RawPubKey is a hex encoded public key.
type RawPubKey struct {
	PubKey []byte
}

// WIFKey is a WIF encoded private key.
type WIFKey struct {
	WIF *btcutil.WIF
}

// ExtendedPubKey is a BIP32 extended public key.
type ExtendedPubKey struct {
	Key *hdkeychain.ExtendedKey
}

// ExtendedPrivKey is a BIP32 extended private key.
type ExtendedPrivKey struct {
	Key *hdkeychain.ExtendedKey
}

func (*RawPubKey) isKeyMaterial()       {}
func (*WIFKey) isKeyMaterial()          {}
func (*ExtendedPubKey) isKeyMaterial()  {}
func (*ExtendedPrivKey) isKeyMaterial() {}

// hasPrivateKey reports whether the material exposes a private key.
func hasPrivateKey(m KeyMaterial) bool {
	switch m.(type) {
	case *WIFKey, *ExtendedPrivKey:
		return true

	default:
		return false
	}
}

// extendedKey returns the BIP32 key of extended material.
func extendedKey(m KeyMaterial) fn.Option[*hdkeychain.ExtendedKey] {
	switch k := m.(type) {
	case *ExtendedPubKey:
		return fn.Some(k.Key)

	case *ExtendedPrivKey:
		return fn.Some(k.Key)

	default:
		return fn.None[*hdkeychain.ExtendedKey]()
	}
}

// KeyInfo is one key of an expansion.
type KeyInfo struct {
	// ID is the placeholder of the key in the expanded expression, "@0",
	// "@1" and so on in order of appearance.
	ID string

	// KeyExpression is the key as written in the descriptor, including
	// its origin and key path.
	KeyExpression string

	// MasterFingerprint is the fingerprint of the origin, or of the
	// extended key itself when there is no origin. It is nil for raw and
	// WIF keys without origin.
	MasterFingerprint []byte

	// OriginPath is the origin derivation, e.g. "/48'/0'/0'/2'".
	OriginPath string

	// KeyPath is the derivation below the key as written, e.g. "/0/*".
	KeyPath string

	// Path is "m" followed by the origin path and the key path. When the
	// index is known the wildcard is replaced by it. It is empty for keys
	// without origin and key path.
	Path string

	// PubKey is the derived public key. It is nil for a key path with a
	// wildcard when no index is known.
	PubKey []byte

	// Material is the parsed key.
	Material KeyMaterial
}

// HasPrivateKey reports whether the key exposes a private key.
func (k *KeyInfo) HasPrivateKey() bool {
	return hasPrivateKey(k.Material)
}

// EndsWithWildcard reports whether the path ends in *, *' or *h.
func EndsWithWildcard(path string) bool {
	return wildcardRE.MatchString(path)
}

// IsHardenedPath reports whether the path has any hardened element.
func IsHardenedPath(path string) bool {
	return hardenedRE.MatchString(path)
}

// SanitizeHardenedMarker rewrites the h and H hardened markers to '.
func SanitizeHardenedMarker(path string) string {
	return strings.NewReplacer("h", "'", "H", "'").Replace(path)
}

// parsePathElems parses "/a/b'/..." into derivation indices. A wildcard is
// replaced by index, which must then be present.
func parsePathElems(path string, index fn.Option[uint32]) ([]uint32,
	error) {

	if path == "" {
		return nil, nil
	}

	elems := strings.Split(strings.TrimPrefix(path, "/"), "/")
	steps := make([]uint32, 0, len(elems))
	for _, e := range elems {
		m := pathElemRE.FindStringSubmatch(e)
		if m == nil {
			return nil, fmt.Errorf("%w: invalid path element %q",
				ErrInvalidKey, e)
		}

		var step uint32
		if m[1] == "*" {
			i, err := index.UnwrapOrErr(ErrIndexRequired)
			if err != nil {
				return nil, err
			}
			step = i
		} else {
			v, err := strconv.ParseUint(m[1], 10, 31)
			if err != nil {
				return nil, fmt.Errorf("%w: path element %q out "+
					"of range", ErrInvalidKey, e)
			}
			step = uint32(v)
		}

		if m[2] != "" {
			step += hdkeychain.HardenedKeyStart
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// checkPath validates the syntax of a key path without deriving.
func checkPath(path string) error {
	_, err := parsePathElems(path, fn.Some[uint32](0))
	return err
}

// keyParser turns key expressions into KeyInfo values for one network.
type keyParser struct {
	factory *Factory
	params  *chaincfg.Params
	index   fn.Option[uint32]
}

// parse parses a key expression. id is the placeholder assigned to it.
func (p *keyParser) parse(expr, id string) (*KeyInfo, error) {
	info := &KeyInfo{
		ID:            id,
		KeyExpression: expr,
	}

	body := expr
	if strings.HasPrefix(expr, "[") {
		m := originRE.FindStringSubmatch(expr)
		if m == nil {
			return nil, fmt.Errorf("%w: malformed origin in %q",
				ErrInvalidKey, expr)
		}

		fp, err := hex.DecodeString(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		info.MasterFingerprint = fp
		info.OriginPath = m[2]
		body = expr[len(m[0]):]
	}

	keyStr, keyPath, _ := strings.Cut(body, "/")
	if keyPath != "" || strings.HasSuffix(body, "/") {
		keyPath = "/" + keyPath
	}
	info.KeyPath = keyPath

	if err := checkPath(keyPath); err != nil {
		return nil, fmt.Errorf("%w in %q", err, expr)
	}

	switch {
	case isHexPubKey(keyStr):
		if err := p.parseRawPubKey(info, keyStr); err != nil {
			return nil, err
		}

	case isExtendedKey(keyStr):
		if err := p.parseExtendedKey(info, keyStr); err != nil {
			return nil, err
		}

	default:
		if err := p.parseWIF(info, keyStr); err != nil {
			return nil, err
		}
	}

	if info.OriginPath != "" || info.KeyPath != "" ||
		extendedKey(info.Material).IsSome() {

		info.Path = "m" + info.OriginPath +
			substituteWildcard(info.KeyPath, p.index)
	}

	return info, nil
}

// substituteWildcard replaces the wildcard with the index, if known.
func substituteWildcard(path string, index fn.Option[uint32]) string {
	if index.IsNone() {
		return path
	}

	i := strconv.FormatUint(uint64(index.UnwrapOr(0)), 10)

	return strings.ReplaceAll(path, "*", i)
}

func isHexPubKey(s string) bool {
	if len(s) != 2*btcec.PubKeyBytesLenCompressed &&
		len(s) != 2*secp256k1.PubKeyBytesLenUncompressed {

		return false
	}
	_, err := hex.DecodeString(s)

	return err == nil
}

func isExtendedKey(s string) bool {
	return len(s) > 4 && (s[1:4] == "pub" || s[1:4] == "prv")
}

func (p *keyParser) parseRawPubKey(info *KeyInfo, keyStr string) error {
	if info.KeyPath != "" {
		return fmt.Errorf("%w: key path on a raw public key %q",
			ErrInvalidKey, info.KeyExpression)
	}

	pub, _ := hex.DecodeString(keyStr)
	if !p.factory.ecc.IsPoint(pub) {
		return fmt.Errorf("%w: invalid public key %s", ErrInvalidKey,
			keyStr)
	}

	info.Material = &RawPubKey{PubKey: pub}
	info.PubKey = pub

	return nil
}

func (p *keyParser) parseWIF(info *KeyInfo, keyStr string) error {
	if info.KeyPath != "" {
		return fmt.Errorf("%w: key path on a WIF key", ErrInvalidKey)
	}

	wif, err := btcutil.DecodeWIF(keyStr)
	if err != nil {
		// The expression is not echoed since it may be a private key.
		return fmt.Errorf("%w: unrecognized key encoding",
			ErrInvalidKey)
	}
	if !wif.IsForNet(p.params) {
		return fmt.Errorf("%w: WIF key for %s", ErrKeyNetworkMismatch,
			p.params.Name)
	}

	pub, err := p.factory.ecc.PointFromScalar(
		wif.PrivKey.Serialize(), wif.CompressPubKey,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	info.Material = &WIFKey{WIF: wif}
	info.PubKey = pub

	return nil
}

func (p *keyParser) parseExtendedKey(info *KeyInfo, keyStr string) error {
	key, err := hdkeychain.NewKeyFromString(keyStr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if !key.IsForNet(p.params) {
		return fmt.Errorf("%w: extended key for %s",
			ErrKeyNetworkMismatch, p.params.Name)
	}

	if key.IsPrivate() {
		info.Material = &ExtendedPrivKey{Key: key}
	} else {
		info.Material = &ExtendedPubKey{Key: key}
	}

	if info.MasterFingerprint == nil {
		pub, err := key.ECPubKey()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		info.MasterFingerprint = btcutil.Hash160(
			pub.SerializeCompressed(),
		)[:4]
	}

	// Without an index a ranged key has no public key yet.
	steps, err := parsePathElems(info.KeyPath, p.index)
	if err != nil {
		if p.index.IsNone() && strings.Contains(info.KeyPath, "*") {
			return nil
		}

		return fmt.Errorf("%w in %q", err, info.KeyExpression)
	}

	child := key
	for _, step := range steps {
		child, err = child.Derive(step)
		if err != nil {
			return fmt.Errorf("%w: derive %s: %v", ErrInvalidKey,
				info.KeyPath, err)
		}
	}

	pub, err := child.ECPubKey()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	info.PubKey = pub.SerializeCompressed()

	return nil
}
