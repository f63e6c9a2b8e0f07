// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import "errors"

var (
	// ErrUnsupportedNetwork is returned by every entry point when the
	// network does not belong to the bitcoin family.
	ErrUnsupportedNetwork = errors.New("descriptors are supported only " +
		"for bitcoin")

	// ErrMissingChecksum is returned when a checksum is required but the
	// descriptor has none.
	ErrMissingChecksum = errors.New("missing descriptor checksum")

	// ErrInvalidChecksum is returned when the checksum suffix does not
	// match the descriptor.
	ErrInvalidChecksum = errors.New("invalid descriptor checksum")

	// ErrInvalidCharacter is returned when a descriptor contains a
	// character outside the descriptor character set.
	ErrInvalidCharacter = errors.New("invalid descriptor character")

	// ErrMalformedDescriptor is returned when a descriptor cannot be
	// parsed into an expression tree.
	ErrMalformedDescriptor = errors.New("malformed descriptor")

	// ErrUnsupportedExpression is returned for syntactically valid
	// descriptors whose top level form is not handled, e.g. tr().
	ErrUnsupportedExpression = errors.New("unsupported descriptor " +
		"expression")

	// ErrInvalidKey is returned when a key expression cannot be parsed.
	ErrInvalidKey = errors.New("invalid key expression")

	// ErrKeyNetworkMismatch is returned when a key or address is encoded
	// for another network.
	ErrKeyNetworkMismatch = errors.New("key is not for the network")

	// ErrUncompressedKey is returned when an uncompressed key is used in a
	// segwit context.
	ErrUncompressedKey = errors.New("uncompressed keys are not allowed " +
		"in segwit scripts")

	// ErrMiniscriptInP2SH is returned for miniscript directly under sh()
	// unless explicitly allowed.
	ErrMiniscriptInP2SH = errors.New("miniscript in p2sh is not allowed")

	// ErrInvalidMultisig is returned for multi and sortedmulti expressions
	// with an invalid threshold or key count.
	ErrInvalidMultisig = errors.New("invalid multisig expression")

	// ErrScriptTooLarge is returned when a p2sh redeem script exceeds the
	// push limit.
	ErrScriptTooLarge = errors.New("script is too large")

	// ErrPrivateKeyNotAllowed is returned when a key carries a private key
	// and private keys are not allowed.
	ErrPrivateKeyNotAllowed = errors.New("descriptor with a private key " +
		"is not supported")

	// ErrXpubHardenedKeyPath is returned when a public-only key has a
	// hardened key path and this is not allowed.
	ErrXpubHardenedKeyPath = errors.New("descriptor with a hardened key " +
		"path for extended public key is not supported")

	// ErrMultipleWildcards is returned when a key path has more than one
	// wildcard.
	ErrMultipleWildcards = errors.New("descriptor key path should have " +
		"at most 1 wildcard index")

	// ErrMissingWildcard is returned when a key path has no wildcard and
	// one is required.
	ErrMissingWildcard = errors.New("descriptor key path should have " +
		"wildcard index")

	// ErrWildcardNotLast is returned when the wildcard is not the last key
	// path element.
	ErrWildcardNotLast = errors.New("if wildcard index is used in the " +
		"descriptor key path, it should be the last index")

	// ErrNoKeysNotAllowed is returned by AssertDescriptor for descriptors
	// without keys unless explicitly allowed.
	ErrNoKeysNotAllowed = errors.New("descriptor without keys is not " +
		"supported")

	// ErrNonMiniscriptNotAllowed is returned by AssertDescriptor for
	// descriptors without a miniscript body unless explicitly allowed.
	ErrNonMiniscriptNotAllowed = errors.New("descriptor without " +
		"miniscript is not supported")

	// ErrInvalidMiniscript is returned when a miniscript cannot be parsed
	// or is not sane.
	ErrInvalidMiniscript = errors.New("invalid miniscript")

	// ErrInvalidPlaceholder is returned when a placeholder does not match
	// the expanded placeholder format.
	ErrInvalidPlaceholder = errors.New("placeholder does not match the " +
		"expanded placeholder format")

	// ErrUnknownScriptType is returned when a descriptor or script cannot
	// be classified.
	ErrUnknownScriptType = errors.New("unknown script type")

	// ErrIndexRequired is returned when an output is created from a
	// ranged descriptor without an index.
	ErrIndexRequired = errors.New("index is required for ranged " +
		"descriptors")

	// ErrInvalidIndex is returned for a hardened derivation index.
	ErrInvalidIndex = errors.New("invalid derivation index")

	// ErrInputMissingScripts is returned by the matcher when the input has
	// neither a redeem script nor a witness script.
	ErrInputMissingScripts = errors.New("psbt input is missing both " +
		"redeemScript and witnessScript")

	// ErrOutputMissingScripts is returned by the matcher when a candidate
	// has neither a redeem script nor a witness script.
	ErrOutputMissingScripts = errors.New("output descriptor is missing " +
		"both redeemScript and witnessScript")

	// ErrNoMatchingDescriptor is returned when no candidate matches the
	// scripts of an input.
	ErrNoMatchingDescriptor = errors.New("no matching output descriptor " +
		"found")

	// ErrMissingWildcardData is returned when the wildcard key or the
	// input lack the data needed to resolve the wildcard.
	ErrMissingWildcardData = errors.New("missing required data to find " +
		"wildcard value")

	// ErrMissingWildcardKey is returned when a ranged expansion has no key
	// with a wildcard path.
	ErrMissingWildcardKey = errors.New("missing key with wildcard path")

	// ErrWildcardIndexNotFound is returned when no derivation of the input
	// matches the wildcard path.
	ErrWildcardIndexNotFound = errors.New("missing index value")

	// ErrInputIndexOutOfRange is returned when a psbt input index is not
	// within the packet.
	ErrInputIndexOutOfRange = errors.New("input index out of range")

	// ErrAddrDescriptor is returned by the differ for addr() descriptors.
	ErrAddrDescriptor = errors.New("address descriptors are not " +
		"supported")

	// ErrNoKeys is returned by the differ when a descriptor has no keys.
	ErrNoKeys = errors.New("descriptor without key locks")

	// ErrExpressionMismatch is returned by the differ when the key-erased
	// expressions differ.
	ErrExpressionMismatch = errors.New("descriptors do not match")

	// ErrRangeMismatch is returned by the differ when only one descriptor
	// is ranged.
	ErrRangeMismatch = errors.New("wildcard index mismatch")

	// ErrKeyCountMismatch is returned by the differ when the descriptors
	// have a different number of keys.
	ErrKeyCountMismatch = errors.New("number of keys does not match")

	// ErrKeyMismatch is returned by the differ when two keys differ in
	// more than their key path.
	ErrKeyMismatch = errors.New("keys do not match")

	// ErrSameDescriptor is returned by the differ when both descriptors
	// produce the same address.
	ErrSameDescriptor = errors.New("descriptors are the same")
)
