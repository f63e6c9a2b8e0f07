// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcdesc/psbtutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// FindKeyWithBip32WildcardPath returns the first key whose key path ends in
// a wildcard.
func FindKeyWithBip32WildcardPath(keys []*KeyInfo) fn.Option[*KeyInfo] {
	for _, k := range keys {
		if EndsWithWildcard(k.KeyPath) {
			return fn.Some(k)
		}
	}

	return fn.None[*KeyInfo]()
}

// FindWildcardPathMatch returns the first of paths equal to the wildcard
// path once its wildcard is replaced by the last index of the candidate.
// Both sides are compared without their "m/" prefix and with ' as the
// hardened marker.
func FindWildcardPathMatch(paths []string,
	wildcardPath string) fn.Option[string] {

	template := strings.TrimPrefix(
		SanitizeHardenedMarker(wildcardPath), "m/",
	)
	for _, path := range paths {
		steps, err := psbtutil.ParseBip32Path(path)
		if err != nil {
			continue
		}
		index, err := psbtutil.GetIndexValueOfBip32Path(steps)
		if err != nil {
			continue
		}

		want := strings.ReplaceAll(
			template, "*", strconv.FormatUint(uint64(index), 10),
		)
		if want == strings.TrimPrefix(path, "m/") {
			return fn.Some(path)
		}
	}

	return fn.None[string]()
}

// wildcardTemplate is the full path of the key with its wildcard kept.
func wildcardTemplate(k *KeyInfo) string {
	return "m" + k.OriginPath + k.KeyPath
}

// FindValueOfWildcard returns the index that reproduces one of the input's
// derivations of the key. Only derivations with the key's master
// fingerprint are considered.
func FindValueOfWildcard(input *psbt.PInput,
	key *KeyInfo) (fn.Option[uint32], error) {

	if extendedKey(key.Material).IsNone() || key.Path == "" ||
		len(input.Bip32Derivation) == 0 {

		return fn.None[uint32](), ErrMissingWildcardData
	}

	derivations := psbtutil.FilterByMasterFingerprint(
		input.Bip32Derivation, key.MasterFingerprint,
	)
	paths := make([]string, 0, len(derivations))
	for _, d := range derivations {
		paths = append(paths, psbtutil.FormatBip32Path(d.Bip32Path))
	}

	match := FindWildcardPathMatch(paths, wildcardTemplate(key))
	if match.IsNone() {
		return fn.None[uint32](), nil
	}

	steps, err := psbtutil.ParseBip32Path(match.UnwrapOr(""))
	if err != nil {
		return fn.None[uint32](), err
	}
	index, err := psbtutil.GetIndexValueOfBip32Path(steps)
	if err != nil {
		return fn.None[uint32](), err
	}

	return fn.Some(index), nil
}

// GetValueForDescriptorWildcardIndex resolves the wildcard index of a ranged
// expansion from the BIP32 derivations of the input. It returns None for
// expansions that are not ranged.
func GetValueForDescriptorWildcardIndex(input *psbt.PInput,
	x *Expansion) (fn.Option[uint32], error) {

	if !x.IsRanged {
		return fn.None[uint32](), nil
	}

	if x.ExpansionMap() == nil {
		return fn.None[uint32](), fmt.Errorf("%w: no keys",
			ErrMissingWildcardKey)
	}

	key, err := FindKeyWithBip32WildcardPath(x.Keys).UnwrapOrErr(
		ErrMissingWildcardKey,
	)
	if err != nil {
		return fn.None[uint32](), err
	}

	index, err := FindValueOfWildcard(input, key)
	if err != nil {
		return fn.None[uint32](), err
	}
	if index.IsNone() {
		return index, fmt.Errorf("%w: key %s", ErrWildcardIndexNotFound,
			key.KeyExpression)
	}

	index.WhenSome(func(i uint32) {
		log.Debugf("Resolved wildcard index %d for key %s", i, key.ID)
	})

	return index, nil
}
