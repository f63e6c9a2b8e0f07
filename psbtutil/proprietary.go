// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbtutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ProprietaryKeyType is the BIP-174 key type reserved for proprietary
// key-value pairs.
const ProprietaryKeyType byte = 0xfc

// PsbtProprietaryIdentifier is the identifier under which all BitGo
// proprietary key-values are stored.
const PsbtProprietaryIdentifier = "BITGO"

// ProprietaryKeySubtype is the subtype of a BitGo proprietary key.
type ProprietaryKeySubtype uint64

const (
	// ZecConsensusBranchID carries the zcash consensus branch id of the
	// transaction.
	ZecConsensusBranchID ProprietaryKeySubtype = 0x00

	// Musig2ParticipantPubKeys carries the two participant keys of a
	// MuSig2 key path spend.
	Musig2ParticipantPubKeys ProprietaryKeySubtype = 0x01

	// Musig2PubNonce carries a participant's public nonce.
	Musig2PubNonce ProprietaryKeySubtype = 0x02

	// Musig2PartialSig carries a participant's partial signature.
	Musig2PartialSig ProprietaryKeySubtype = 0x03
)

// String returns a human readable name of the subtype.
func (s ProprietaryKeySubtype) String() string {
	switch s {
	case ZecConsensusBranchID:
		return "ZEC_CONSENSUS_BRANCH_ID"
	case Musig2ParticipantPubKeys:
		return "MUSIG2_PARTICIPANT_PUB_KEYS"
	case Musig2PubNonce:
		return "MUSIG2_PUB_NONCE"
	case Musig2PartialSig:
		return "MUSIG2_PARTIAL_SIG"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint64(s))
	}
}

var (
	// ErrNotProprietaryKey is returned when an unknown key does not start
	// with the proprietary key type.
	ErrNotProprietaryKey = errors.New("not a proprietary key")

	// ErrMalformedProprietaryKey is returned when a proprietary key cannot
	// be decoded.
	ErrMalformedProprietaryKey = errors.New("malformed proprietary key")

	// ErrInvalidKeySearch is returned when a search filter specifies key
	// data without a subtype.
	ErrInvalidKeySearch = errors.New("invalid proprietary key search " +
		"filter combination. subtype is required")

	// ErrKeyValueNotFound is returned when a key-value to update does not
	// exist.
	ErrKeyValueNotFound = errors.New("proprietary key-value not found")
)

// ProprietaryKey is a decoded BIP-174 proprietary key.
type ProprietaryKey struct {
	// Identifier namespaces the key, e.g. "BITGO".
	Identifier string

	// Subtype selects the record type within the identifier namespace.
	Subtype ProprietaryKeySubtype

	// KeyData is any additional key material.
	KeyData []byte
}

// ProprietaryKeyValue is a proprietary key together with its value.
type ProprietaryKeyValue struct {
	Key   ProprietaryKey
	Value []byte
}

// ProprietaryKeySearch filters proprietary key-values. Subtype narrows the
// identifier match and KeyData, when non-nil, narrows the subtype match.
// KeyData without Subtype is rejected with ErrInvalidKeySearch.
type ProprietaryKeySearch struct {
	Identifier string
	Subtype    fn.Option[ProprietaryKeySubtype]
	KeyData    []byte
}

// validate checks the filter combination.
func (s *ProprietaryKeySearch) validate() error {
	if s != nil && s.Subtype.IsNone() && s.KeyData != nil {
		return ErrInvalidKeySearch
	}

	return nil
}

// matches reports whether key satisfies the search. A nil search matches
// everything.
func (s *ProprietaryKeySearch) matches(key *ProprietaryKey) bool {
	if s == nil {
		return true
	}
	if s.Identifier != key.Identifier {
		return false
	}

	if s.Subtype.IsNone() {
		return true
	}
	if s.Subtype.UnwrapOr(0) != key.Subtype {
		return false
	}

	return s.KeyData == nil || bytes.Equal(s.KeyData, key.KeyData)
}

// EncodeProprietaryKey serializes a proprietary key including the leading
// key type byte, as stored in psbt.Unknown.Key.
func EncodeProprietaryKey(key *ProprietaryKey) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ProprietaryKeyType)

	// Writing to a bytes.Buffer never fails.
	_ = wire.WriteVarInt(&buf, 0, uint64(len(key.Identifier)))
	buf.WriteString(key.Identifier)
	_ = wire.WriteVarInt(&buf, 0, uint64(key.Subtype))
	buf.Write(key.KeyData)

	return buf.Bytes()
}

// DecodeProprietaryKey parses a serialized proprietary key including the
// leading key type byte.
func DecodeProprietaryKey(key []byte) (*ProprietaryKey, error) {
	if len(key) == 0 || key[0] != ProprietaryKeyType {
		return nil, fmt.Errorf("%w: %x", ErrNotProprietaryKey, key)
	}

	r := bytes.NewReader(key[1:])
	idLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: identifier length: %v",
			ErrMalformedProprietaryKey, err)
	}
	if idLen > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: identifier length %d exceeds key",
			ErrMalformedProprietaryKey, idLen)
	}

	identifier := make([]byte, idLen)
	if _, err := io.ReadFull(r, identifier); err != nil {
		return nil, fmt.Errorf("%w: identifier: %v",
			ErrMalformedProprietaryKey, err)
	}

	subtype, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: subtype: %v",
			ErrMalformedProprietaryKey, err)
	}

	keyData := make([]byte, r.Len())
	_, _ = io.ReadFull(r, keyData)

	return &ProprietaryKey{
		Identifier: string(identifier),
		Subtype:    ProprietaryKeySubtype(subtype),
		KeyData:    keyData,
	}, nil
}

// isProprietary reports whether u uses the proprietary key type. Other
// unknowns belong to standard fields this psbt package does not model.
func isProprietary(u *psbt.Unknown) bool {
	return len(u.Key) > 0 && u.Key[0] == ProprietaryKeyType
}

// GetProprietaryKeyVals decodes the proprietary entries among unknowns and
// returns those matching the search. A nil search returns all of them.
// Unknowns of any other key type are skipped.
func GetProprietaryKeyVals(unknowns []*psbt.Unknown,
	search *ProprietaryKeySearch) ([]ProprietaryKeyValue, error) {

	if err := search.validate(); err != nil {
		return nil, err
	}

	var keyVals []ProprietaryKeyValue
	for _, u := range unknowns {
		if !isProprietary(u) {
			continue
		}

		key, err := DecodeProprietaryKey(u.Key)
		if err != nil {
			return nil, err
		}

		if !search.matches(key) {
			continue
		}

		keyVals = append(keyVals, ProprietaryKeyValue{
			Key:   *key,
			Value: u.Value,
		})
	}

	return keyVals, nil
}

// GetPsbtInputProprietaryKeyVals returns the proprietary key-values of the
// input that match the search.
func GetPsbtInputProprietaryKeyVals(input *psbt.PInput,
	search *ProprietaryKeySearch) ([]ProprietaryKeyValue, error) {

	return GetProprietaryKeyVals(input.Unknowns, search)
}

// DeleteProprietaryKeyValuesFromUnknownKeyValues returns unknowns without
// the proprietary entries matching the search. A nil search deletes every
// proprietary entry. Unknowns of any other key type are always kept. The
// input slice is not modified.
func DeleteProprietaryKeyValuesFromUnknownKeyValues(unknowns []*psbt.Unknown,
	search *ProprietaryKeySearch) ([]*psbt.Unknown, error) {

	if err := search.validate(); err != nil {
		return nil, err
	}

	kept := make([]*psbt.Unknown, 0, len(unknowns))
	for _, u := range unknowns {
		if !isProprietary(u) {
			kept = append(kept, u)
			continue
		}

		key, err := DecodeProprietaryKey(u.Key)
		if err != nil {
			return nil, err
		}

		if search.matches(key) {
			continue
		}
		kept = append(kept, u)
	}

	return kept, nil
}

// UpdateProprietaryKeyValuesToUnknownKeyValues replaces the value of the
// entry whose encoded key equals the key of kv. It fails with
// ErrKeyValueNotFound when there is no such entry.
func UpdateProprietaryKeyValuesToUnknownKeyValues(kv ProprietaryKeyValue,
	unknowns []*psbt.Unknown) error {

	key := EncodeProprietaryKey(&kv.Key)
	for i, u := range unknowns {
		if bytes.Equal(u.Key, key) {
			unknowns[i] = &psbt.Unknown{Key: key, Value: kv.Value}
			return nil
		}
	}

	return fmt.Errorf("%w: identifier=%s subtype=%v keydata=%x",
		ErrKeyValueNotFound, kv.Key.Identifier, kv.Key.Subtype,
		kv.Key.KeyData)
}

// AddProprietaryKeyValToInput appends a proprietary key-value to the input.
func AddProprietaryKeyValToInput(input *psbt.PInput, kv ProprietaryKeyValue) {
	input.Unknowns = append(input.Unknowns, &psbt.Unknown{
		Key:   EncodeProprietaryKey(&kv.Key),
		Value: kv.Value,
	})
}

// AddOrUpdateProprietaryKeyValToInput replaces the value of an existing
// entry with the same key, or appends a new one.
func AddOrUpdateProprietaryKeyValToInput(input *psbt.PInput,
	kv ProprietaryKeyValue) {

	err := UpdateProprietaryKeyValuesToUnknownKeyValues(kv, input.Unknowns)
	if errors.Is(err, ErrKeyValueNotFound) {
		AddProprietaryKeyValToInput(input, kv)
	}
}

// DeleteProprietaryKeyVals removes the input's proprietary key-values that
// match the search.
func DeleteProprietaryKeyVals(input *psbt.PInput,
	search *ProprietaryKeySearch) error {

	if len(input.Unknowns) == 0 {
		return search.validate()
	}

	kept, err := DeleteProprietaryKeyValuesFromUnknownKeyValues(
		input.Unknowns, search,
	)
	if err != nil {
		return err
	}

	log.Tracef("Deleted %d proprietary key-values from input",
		len(input.Unknowns)-len(kept))

	input.Unknowns = kept

	return nil
}
