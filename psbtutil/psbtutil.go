// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package psbtutil holds the PSBT helpers shared by the descriptor engine
// and the wallet signing layer: the BitGo proprietary key-value codec,
// signature bookkeeping, MuSig2 records and BIP32 derivation helpers.
package psbtutil

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// psbtMagic is the 5 byte prefix of every serialized PSBT.
var psbtMagic = []byte{0x70, 0x73, 0x62, 0x74, 0xff}

var (
	// ErrInputFinalized is returned when an operation needs the partial
	// signature bookkeeping of an input that is already finalized.
	ErrInputFinalized = errors.New("input is already finalized")

	// ErrEmptyBip32Path is returned when a derivation path has no
	// elements.
	ErrEmptyBip32Path = errors.New("empty bip32 path")

	// ErrInvalidBip32Path is returned when a textual derivation path
	// cannot be parsed.
	ErrInvalidBip32Path = errors.New("invalid bip32 path")

	// ErrInvalidFingerprint is returned when a master key fingerprint is
	// not 4 bytes.
	ErrInvalidFingerprint = errors.New("invalid master key fingerprint")
)

// IsPsbt reports whether data starts with the PSBT magic bytes.
func IsPsbt(data []byte) bool {
	return len(data) >= len(psbtMagic) &&
		bytes.Equal(data[:len(psbtMagic)], psbtMagic)
}

// IsPsbtHex reports whether the hex string starts with the hex encoded PSBT
// magic bytes. Malformed or short input yields false.
func IsPsbtHex(s string) bool {
	const prefixLen = 10
	if len(s) < prefixLen {
		return false
	}

	prefix, err := hex.DecodeString(s[:prefixLen])
	if err != nil {
		return false
	}

	return IsPsbt(prefix)
}

// IsPsbtInputFinalized reports whether the input carries a final scriptSig
// or final witness.
func IsPsbtInputFinalized(input *psbt.PInput) bool {
	return len(input.FinalScriptSig) > 0 ||
		len(input.FinalScriptWitness) > 0
}

// GetPsbtInputSignatureCount returns the number of signatures on a
// non-finalized input. Only one of the ECDSA partial signatures, the taproot
// script path signatures and the MuSig2 partial signatures is populated for
// a given input type, so the maximum of the three is the count.
func GetPsbtInputSignatureCount(input *psbt.PInput) (int, error) {
	if IsPsbtInputFinalized(input) {
		return 0, ErrInputFinalized
	}

	musig2Sigs, err := GetPsbtInputProprietaryKeyVals(
		input, &ProprietaryKeySearch{
			Identifier: PsbtProprietaryIdentifier,
			Subtype:    fn.Some(Musig2PartialSig),
		},
	)
	if err != nil {
		return 0, err
	}

	return max(
		len(input.PartialSigs), len(input.TaprootScriptSpendSig),
		len(musig2Sigs),
	), nil
}

// FingerprintToUint32 converts a 4 byte master key fingerprint into the
// representation used by psbt.Bip32Derivation.
func FingerprintToUint32(fingerprint []byte) (uint32, error) {
	if len(fingerprint) != 4 {
		return 0, fmt.Errorf("%w: %x", ErrInvalidFingerprint,
			fingerprint)
	}

	// The psbt package reads the fingerprint bytes as little endian.
	return binary.LittleEndian.Uint32(fingerprint), nil
}

// FingerprintFromUint32 is the inverse of FingerprintToUint32.
func FingerprintFromUint32(fingerprint uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, fingerprint)

	return b
}

// FilterByMasterFingerprint returns the derivations whose master key
// fingerprint equals the given 4 byte fingerprint.
func FilterByMasterFingerprint(derivations []*psbt.Bip32Derivation,
	fingerprint []byte) []*psbt.Bip32Derivation {

	fp, err := FingerprintToUint32(fingerprint)
	if err != nil {
		return nil
	}

	var filtered []*psbt.Bip32Derivation
	for _, d := range derivations {
		if d.MasterKeyFingerprint == fp {
			filtered = append(filtered, d)
		}
	}

	return filtered
}

// GetIndexValueOfBip32Path returns the last element of the path with the
// hardened offset removed.
func GetIndexValueOfBip32Path(path []uint32) (uint32, error) {
	if len(path) == 0 {
		return 0, ErrEmptyBip32Path
	}

	last := path[len(path)-1]
	if last >= hdkeychain.HardenedKeyStart {
		last -= hdkeychain.HardenedKeyStart
	}

	return last, nil
}

// FormatBip32Path renders a derivation path as "m/48'/0'/0'/2'/0/3".
func FormatBip32Path(path []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, p := range path {
		b.WriteByte('/')
		if p >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(
				uint64(p-hdkeychain.HardenedKeyStart), 10,
			))
			b.WriteByte('\'')

			continue
		}
		b.WriteString(strconv.FormatUint(uint64(p), 10))
	}

	return b.String()
}

// ParseBip32Path parses a path such as "m/48'/0'/0'/2'/0/3" or "0/3". The
// hardened markers ', h and H are accepted.
func ParseBip32Path(s string) ([]uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "m"), "/")
	if s == "" {
		return nil, nil
	}

	elems := strings.Split(s, "/")
	path := make([]uint32, 0, len(elems))
	for _, e := range elems {
		num := strings.TrimRight(e, "'hH")
		if len(e)-len(num) > 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBip32Path, s)
		}

		v, err := strconv.ParseUint(num, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidBip32Path,
				s, err)
		}

		idx := uint32(v)
		if num != e {
			idx += hdkeychain.HardenedKeyStart
		}
		path = append(path, idx)
	}

	return path, nil
}
