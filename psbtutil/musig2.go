// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbtutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// xOnlyKeySize is the size of a taproot output or internal key.
	xOnlyKeySize = schnorr.PubKeyBytesLen

	// partialSigSize is the size of a MuSig2 partial signature without a
	// sighash byte.
	partialSigSize = 32
)

// ErrInvalidMusig2Record is returned when a MuSig2 key-value has an
// unexpected key data or value size, or carries an invalid key.
var ErrInvalidMusig2Record = errors.New("invalid musig2 record")

// Musig2Participants binds the two cosigner keys to the taproot output they
// aggregate into.
type Musig2Participants struct {
	TapOutputKey       []byte
	TapInternalKey     []byte
	ParticipantPubKeys [2][]byte
}

// Musig2PubNonceRecord is a participant's public nonce for one taproot
// output.
type Musig2PubNonceRecord struct {
	ParticipantPubKey []byte
	TapOutputKey      []byte
	PubNonce          [musig2.PubNonceSize]byte
}

// Musig2PartialSigRecord is a participant's partial signature for one
// taproot output. Sighash is only present for non-default sighash types.
type Musig2PartialSigRecord struct {
	ParticipantPubKey []byte
	TapOutputKey      []byte
	PartialSig        []byte
	Sighash           fn.Option[byte]
}

func checkSize(what string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: invalid %s size %d", ErrInvalidMusig2Record,
			what, got)
	}

	return nil
}

func checkXOnly(what string, key []byte) error {
	if err := checkSize(what, len(key), xOnlyKeySize); err != nil {
		return err
	}
	if _, err := schnorr.ParsePubKey(key); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMusig2Record, what, err)
	}

	return nil
}

func checkCompressed(what string, key []byte) error {
	err := checkSize(what, len(key), btcec.PubKeyBytesLenCompressed)
	if err != nil {
		return err
	}
	if _, err := btcec.ParsePubKey(key); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMusig2Record, what, err)
	}

	return nil
}

// EncodeMusig2Participants validates p and returns its key-value.
func EncodeMusig2Participants(
	p *Musig2Participants) (ProprietaryKeyValue, error) {

	if err := checkXOnly("tap output key", p.TapOutputKey); err != nil {
		return ProprietaryKeyValue{}, err
	}
	if err := checkXOnly("tap internal key", p.TapInternalKey); err != nil {
		return ProprietaryKeyValue{}, err
	}

	var value bytes.Buffer
	for _, key := range p.ParticipantPubKeys {
		err := checkCompressed("participant pubkey", key)
		if err != nil {
			return ProprietaryKeyValue{}, err
		}
		value.Write(key)
	}

	if bytes.Equal(p.ParticipantPubKeys[0], p.ParticipantPubKeys[1]) {
		return ProprietaryKeyValue{}, fmt.Errorf("%w: duplicate "+
			"participant pubkeys", ErrInvalidMusig2Record)
	}

	keyData := make([]byte, 0, 2*xOnlyKeySize)
	keyData = append(keyData, p.TapOutputKey...)
	keyData = append(keyData, p.TapInternalKey...)

	return ProprietaryKeyValue{
		Key: ProprietaryKey{
			Identifier: PsbtProprietaryIdentifier,
			Subtype:    Musig2ParticipantPubKeys,
			KeyData:    keyData,
		},
		Value: value.Bytes(),
	}, nil
}

// DecodeMusig2Participants parses a participants key-value.
func DecodeMusig2Participants(
	kv ProprietaryKeyValue) (*Musig2Participants, error) {

	if kv.Key.Subtype != Musig2ParticipantPubKeys {
		return nil, fmt.Errorf("%w: unexpected subtype %v",
			ErrInvalidMusig2Record, kv.Key.Subtype)
	}

	err := checkSize("keydata", len(kv.Key.KeyData), 2*xOnlyKeySize)
	if err != nil {
		return nil, err
	}
	err = checkSize(
		"participant keys", len(kv.Value),
		2*btcec.PubKeyBytesLenCompressed,
	)
	if err != nil {
		return nil, err
	}

	p := &Musig2Participants{
		TapOutputKey:   kv.Key.KeyData[:xOnlyKeySize],
		TapInternalKey: kv.Key.KeyData[xOnlyKeySize:],
		ParticipantPubKeys: [2][]byte{
			kv.Value[:btcec.PubKeyBytesLenCompressed],
			kv.Value[btcec.PubKeyBytesLenCompressed:],
		},
	}

	// Re-encoding runs the key checks.
	if _, err := EncodeMusig2Participants(p); err != nil {
		return nil, err
	}

	return p, nil
}

// nonceKeyData is the key data shared by the nonce and partial signature
// records.
func nonceKeyData(participant, tapOutputKey []byte) ([]byte, error) {
	if err := checkCompressed("participant pubkey", participant); err != nil {
		return nil, err
	}
	if err := checkXOnly("tap output key", tapOutputKey); err != nil {
		return nil, err
	}

	keyData := make([]byte, 0, len(participant)+len(tapOutputKey))
	keyData = append(keyData, participant...)

	return append(keyData, tapOutputKey...), nil
}

// splitNonceKeyData is the inverse of nonceKeyData.
func splitNonceKeyData(keyData []byte) ([]byte, []byte, error) {
	err := checkSize(
		"keydata", len(keyData),
		btcec.PubKeyBytesLenCompressed+xOnlyKeySize,
	)
	if err != nil {
		return nil, nil, err
	}

	return keyData[:btcec.PubKeyBytesLenCompressed],
		keyData[btcec.PubKeyBytesLenCompressed:], nil
}

// EncodeMusig2PubNonce validates n and returns its key-value.
func EncodeMusig2PubNonce(n *Musig2PubNonceRecord) (ProprietaryKeyValue,
	error) {

	keyData, err := nonceKeyData(n.ParticipantPubKey, n.TapOutputKey)
	if err != nil {
		return ProprietaryKeyValue{}, err
	}

	return ProprietaryKeyValue{
		Key: ProprietaryKey{
			Identifier: PsbtProprietaryIdentifier,
			Subtype:    Musig2PubNonce,
			KeyData:    keyData,
		},
		Value: bytes.Clone(n.PubNonce[:]),
	}, nil
}

// DecodeMusig2PubNonce parses a public nonce key-value.
func DecodeMusig2PubNonce(kv ProprietaryKeyValue) (*Musig2PubNonceRecord,
	error) {

	if kv.Key.Subtype != Musig2PubNonce {
		return nil, fmt.Errorf("%w: unexpected subtype %v",
			ErrInvalidMusig2Record, kv.Key.Subtype)
	}

	participant, tapOutputKey, err := splitNonceKeyData(kv.Key.KeyData)
	if err != nil {
		return nil, err
	}
	if err := checkSize("pub nonce", len(kv.Value),
		musig2.PubNonceSize); err != nil {

		return nil, err
	}

	n := &Musig2PubNonceRecord{
		ParticipantPubKey: participant,
		TapOutputKey:      tapOutputKey,
	}
	copy(n.PubNonce[:], kv.Value)

	if _, err := nonceKeyData(participant, tapOutputKey); err != nil {
		return nil, err
	}

	return n, nil
}

// EncodeMusig2PartialSig validates s and returns its key-value.
func EncodeMusig2PartialSig(s *Musig2PartialSigRecord) (ProprietaryKeyValue,
	error) {

	keyData, err := nonceKeyData(s.ParticipantPubKey, s.TapOutputKey)
	if err != nil {
		return ProprietaryKeyValue{}, err
	}

	if err := checkSize("partial sig", len(s.PartialSig),
		partialSigSize); err != nil {

		return ProprietaryKeyValue{}, err
	}

	var sig musig2.PartialSignature
	if err := sig.Decode(bytes.NewReader(s.PartialSig)); err != nil {
		return ProprietaryKeyValue{}, fmt.Errorf("%w: partial sig: %v",
			ErrInvalidMusig2Record, err)
	}

	value := bytes.Clone(s.PartialSig)
	s.Sighash.WhenSome(func(b byte) {
		value = append(value, b)
	})

	return ProprietaryKeyValue{
		Key: ProprietaryKey{
			Identifier: PsbtProprietaryIdentifier,
			Subtype:    Musig2PartialSig,
			KeyData:    keyData,
		},
		Value: value,
	}, nil
}

// DecodeMusig2PartialSig parses a partial signature key-value. The value is
// 32 bytes, or 33 when a sighash byte is appended.
func DecodeMusig2PartialSig(
	kv ProprietaryKeyValue) (*Musig2PartialSigRecord, error) {

	if kv.Key.Subtype != Musig2PartialSig {
		return nil, fmt.Errorf("%w: unexpected subtype %v",
			ErrInvalidMusig2Record, kv.Key.Subtype)
	}

	participant, tapOutputKey, err := splitNonceKeyData(kv.Key.KeyData)
	if err != nil {
		return nil, err
	}

	s := &Musig2PartialSigRecord{
		ParticipantPubKey: participant,
		TapOutputKey:      tapOutputKey,
		Sighash:           fn.None[byte](),
	}
	switch len(kv.Value) {
	case partialSigSize:
		s.PartialSig = kv.Value

	case partialSigSize + 1:
		s.PartialSig = kv.Value[:partialSigSize]
		s.Sighash = fn.Some(kv.Value[partialSigSize])

	default:
		return nil, fmt.Errorf("%w: invalid partial sig size %d",
			ErrInvalidMusig2Record, len(kv.Value))
	}

	if _, err := EncodeMusig2PartialSig(s); err != nil {
		return nil, err
	}

	return s, nil
}

// EncodeZecConsensusBranchID returns the key-value carrying a zcash
// consensus branch id.
func EncodeZecConsensusBranchID(branchID uint32) ProprietaryKeyValue {
	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, branchID)

	return ProprietaryKeyValue{
		Key: ProprietaryKey{
			Identifier: PsbtProprietaryIdentifier,
			Subtype:    ZecConsensusBranchID,
		},
		Value: value,
	}
}

// SetZecConsensusBranchID adds or replaces the branch id in the global
// unknowns of the packet.
func SetZecConsensusBranchID(packet *psbt.Packet, branchID uint32) {
	kv := EncodeZecConsensusBranchID(branchID)
	err := UpdateProprietaryKeyValuesToUnknownKeyValues(kv, packet.Unknowns)
	if err == nil {
		return
	}

	packet.Unknowns = append(packet.Unknowns, &psbt.Unknown{
		Key:   EncodeProprietaryKey(&kv.Key),
		Value: kv.Value,
	})
}

// GetZecConsensusBranchID returns the branch id stored in the global
// unknowns of the packet, if any.
func GetZecConsensusBranchID(packet *psbt.Packet) (fn.Option[uint32], error) {
	kvs, err := GetProprietaryKeyVals(
		packet.Unknowns, &ProprietaryKeySearch{
			Identifier: PsbtProprietaryIdentifier,
			Subtype:    fn.Some(ZecConsensusBranchID),
		},
	)
	if err != nil {
		return fn.None[uint32](), err
	}

	switch len(kvs) {
	case 0:
		return fn.None[uint32](), nil

	case 1:
		if len(kvs[0].Value) != 4 {
			return fn.None[uint32](), fmt.Errorf("%w: invalid "+
				"consensus branch id size %d",
				ErrMalformedProprietaryKey, len(kvs[0].Value))
		}

		return fn.Some(binary.LittleEndian.Uint32(kvs[0].Value)), nil

	default:
		return fn.None[uint32](), fmt.Errorf("%w: found %d consensus "+
			"branch ids", ErrMalformedProprietaryKey, len(kvs))
	}
}
