// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbtutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrInvalidInputIndex is returned when an input index is outside the
	// packet.
	ErrInvalidInputIndex = errors.New("invalid input index")

	// ErrMissingUtxo is returned when an input carries neither a witness
	// nor a non-witness utxo.
	ErrMissingUtxo = errors.New("input is missing its utxo")

	// ErrNonWitnessUtxoRequired is returned when a non-segwit input has no
	// full previous transaction and the unsafe override is not active.
	ErrNonWitnessUtxoRequired = errors.New("non-segwit input requires " +
		"a non-witness utxo")

	// ErrPrevTxMismatch is returned when the non-witness utxo does not
	// hash to the outpoint spent by the input.
	ErrPrevTxMismatch = errors.New("non-witness utxo does not match " +
		"the spent outpoint")

	// ErrDuplicateSignature is returned when the input already carries a
	// partial signature for the same public key.
	ErrDuplicateSignature = errors.New("duplicate partial signature")
)

// Psbt wraps a packet together with the unsafe non-segwit override. The
// override relaxes the rule that non-segwit inputs must carry the full
// previous transaction.
type Psbt struct {
	// Packet is the wrapped, caller owned packet.
	Packet *psbt.Packet

	unsafeSignNonSegwit bool
}

// NewPsbt wraps the packet with the override disabled.
func NewPsbt(packet *psbt.Packet) *Psbt {
	return &Psbt{Packet: packet}
}

// UnsafeSignNonSegwit reports whether the override is currently active.
func (p *Psbt) UnsafeSignNonSegwit() bool {
	return p.unsafeSignNonSegwit
}

// WithUnsafeNonSegwit sets the override to unsafe for the duration of f. The
// previous value is restored on every exit path of f, including a panic.
func WithUnsafeNonSegwit(p *Psbt, unsafe bool, f func() error) error {
	prev := p.unsafeSignNonSegwit
	p.unsafeSignNonSegwit = unsafe
	defer func() {
		p.unsafeSignNonSegwit = prev
	}()

	return f()
}

// input returns the input at idx together with its unsigned tx input.
func (p *Psbt) input(idx int) (*psbt.PInput, *wire.TxIn, error) {
	if idx < 0 || idx >= len(p.Packet.Inputs) ||
		idx >= len(p.Packet.UnsignedTx.TxIn) {

		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidInputIndex, idx)
	}

	return &p.Packet.Inputs[idx], p.Packet.UnsignedTx.TxIn[idx], nil
}

// isSegwitInput reports whether the input spends a witness program, either
// directly or nested in p2sh.
func isSegwitInput(in *psbt.PInput) bool {
	switch {
	case len(in.WitnessScript) > 0:
		return true

	case len(in.RedeemScript) > 0:
		return txscript.IsWitnessProgram(in.RedeemScript)

	case in.WitnessUtxo != nil:
		return txscript.IsWitnessProgram(in.WitnessUtxo.PkScript)
	}

	return false
}

// InputPrevOut returns the output spent by the input at idx. A non-segwit
// input must carry its full previous transaction unless the unsafe override
// is active, in which case its witness utxo is accepted.
func (p *Psbt) InputPrevOut(idx int) (*wire.TxOut, error) {
	in, txIn, err := p.input(idx)
	if err != nil {
		return nil, err
	}

	if in.NonWitnessUtxo != nil {
		prevHash := in.NonWitnessUtxo.TxHash()
		if !prevHash.IsEqual(&txIn.PreviousOutPoint.Hash) {
			return nil, fmt.Errorf("%w: input %d has %v, want %v",
				ErrPrevTxMismatch, idx, prevHash,
				txIn.PreviousOutPoint.Hash)
		}

		outIdx := txIn.PreviousOutPoint.Index
		if int(outIdx) >= len(in.NonWitnessUtxo.TxOut) {
			return nil, fmt.Errorf("%w: input %d spends output %d",
				ErrPrevTxMismatch, idx, outIdx)
		}

		return in.NonWitnessUtxo.TxOut[outIdx], nil
	}

	if in.WitnessUtxo == nil {
		return nil, fmt.Errorf("%w: input %d", ErrMissingUtxo, idx)
	}

	if !isSegwitInput(in) && !p.unsafeSignNonSegwit {
		return nil, fmt.Errorf("%w: input %d",
			ErrNonWitnessUtxoRequired, idx)
	}

	return in.WitnessUtxo, nil
}

// AddPartialSignature records an ECDSA signature of pubKey on the input at
// idx. The spent output must be resolvable under the current override.
func (p *Psbt) AddPartialSignature(idx int, pubKey, sig []byte) error {
	if _, err := p.InputPrevOut(idx); err != nil {
		return err
	}

	in := &p.Packet.Inputs[idx]
	if IsPsbtInputFinalized(in) {
		return fmt.Errorf("%w: input %d", ErrInputFinalized, idx)
	}

	if _, err := btcec.ParsePubKey(pubKey); err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}

	for _, ps := range in.PartialSigs {
		if bytes.Equal(ps.PubKey, pubKey) {
			return fmt.Errorf("%w: input %d pubkey %x",
				ErrDuplicateSignature, idx, pubKey)
		}
	}

	in.PartialSigs = append(in.PartialSigs, &psbt.PartialSig{
		PubKey:    pubKey,
		Signature: sig,
	})

	log.Debugf("Added partial signature of %x to input %d", pubKey, idx)

	return nil
}
