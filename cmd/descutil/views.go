// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btcdesc/descriptor"
	"github.com/btcsuite/btcdesc/descstore"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// keyView is the printed form of a descriptor key.
type keyView struct {
	ID                string `json:"id"`
	KeyExpression     string `json:"key_expression"`
	MasterFingerprint string `json:"master_fingerprint,omitempty"`
	OriginPath        string `json:"origin_path,omitempty"`
	KeyPath           string `json:"key_path,omitempty"`
	Path              string `json:"path,omitempty"`
	PubKey            string `json:"pubkey,omitempty"`
}

// expansionView is the printed form of an expansion.
type expansionView struct {
	ExpandedExpression string    `json:"expanded_expression"`
	ExpandedMiniscript string    `json:"expanded_miniscript,omitempty"`
	IsRanged           bool      `json:"is_ranged"`
	ScriptType         string    `json:"script_type,omitempty"`
	Keys               []keyView `json:"keys"`
	Address            string    `json:"address,omitempty"`
	ScriptPubKey       string    `json:"script_pubkey,omitempty"`
	RedeemScript       string    `json:"redeem_script,omitempty"`
	WitnessScript      string    `json:"witness_script,omitempty"`
}

func newExpansionView(desc string,
	x *descriptor.Expansion) expansionView {

	v := expansionView{
		ExpandedExpression: x.ExpandedExpression,
		ExpandedMiniscript: x.ExpandedMiniscript,
		IsRanged:           x.IsRanged,
		Keys:               make([]keyView, 0, len(x.Keys)),
	}

	if st, err := descriptor.ParseScriptType(desc); err == nil {
		v.ScriptType = string(st)
	}

	for _, k := range x.Keys {
		v.Keys = append(v.Keys, keyView{
			ID:                k.ID,
			KeyExpression:     k.KeyExpression,
			MasterFingerprint: hex.EncodeToString(k.MasterFingerprint),
			OriginPath:        k.OriginPath,
			KeyPath:           k.KeyPath,
			Path:              k.Path,
			PubKey:            hex.EncodeToString(k.PubKey),
		})
	}

	if p := x.Payment; p != nil {
		v.Address = p.Address.EncodeAddress()
		v.ScriptPubKey = hex.EncodeToString(p.ScriptPubKey)
		v.RedeemScript = hex.EncodeToString(p.RedeemScript)
		v.WitnessScript = hex.EncodeToString(p.WitnessScript)
	}

	return v
}

// signerView is the printed form of a key of a parsed input.
type signerView struct {
	KeyID     string `json:"key_id"`
	PubKey    string `json:"pubkey"`
	Path      string `json:"path,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// inputView is the printed form of a parsed psbt input.
type inputView struct {
	Input          int          `json:"input"`
	Descriptor     string       `json:"descriptor"`
	Index          *uint32      `json:"index,omitempty"`
	ScriptType     string       `json:"script_type"`
	Address        string       `json:"address"`
	RedeemScript   string       `json:"redeem_script,omitempty"`
	WitnessScript  string       `json:"witness_script,omitempty"`
	Signers        []signerView `json:"signers"`
	SignatureCount int          `json:"signature_count"`
	Finalized      bool         `json:"finalized"`
	Locktime       uint32       `json:"locktime"`
	Sequence       uint32       `json:"sequence"`
}

// optionPtr returns the value of the option or nil.
func optionPtr(o fn.Option[uint32]) *uint32 {
	var p *uint32
	o.WhenSome(func(v uint32) {
		p = &v
	})

	return p
}

func newInputView(idx int, in *descriptor.ParsedPsbtInput) inputView {
	v := inputView{
		Input:         idx,
		Descriptor:    in.Descriptor,
		Index:         optionPtr(in.Index),
		ScriptType:    string(in.ScriptType),
		RedeemScript:  hex.EncodeToString(in.Scripts.RedeemScript),
		WitnessScript: hex.EncodeToString(in.Scripts.WitnessScript),
		Signers:       make([]signerView, 0, len(in.ExtendedKeyInfos)),
		Locktime:      in.Timelocks.Locktime,
		Sequence:      in.Timelocks.Sequence,
	}
	if in.Address != nil {
		v.Address = in.Address.EncodeAddress()
	}

	for _, info := range in.ExtendedKeyInfos {
		v.Signers = append(v.Signers, signerView{
			KeyID:     info.KeyID,
			PubKey:    hex.EncodeToString(info.PubKey),
			Path:      info.Path,
			Signature: hex.EncodeToString(info.Signature),
		})
	}

	return v
}

// pairView is the printed form of a stored descriptor pair.
type pairView struct {
	Name      string `json:"name"`
	Network   string `json:"network"`
	External  string `json:"external"`
	Internal  string `json:"internal"`
	CreatedAt string `json:"created_at"`
}

func newPairView(p descstore.DescriptorPair) pairView {
	return pairView{
		Name:      p.Name,
		Network:   p.Network,
		External:  p.External,
		Internal:  p.Internal,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
