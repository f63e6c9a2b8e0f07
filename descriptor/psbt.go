// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcdesc/network"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// Scripts are the redeem and witness scripts of a matched output.
type Scripts struct {
	RedeemScript  []byte
	WitnessScript []byte
}

// ExtendedKeyInfo is a key of the matched output with its partial
// signature, if the input has one.
type ExtendedKeyInfo struct {
	KeyID  string
	PubKey []byte
	Path   string

	// Signature is nil while the key has not signed.
	Signature []byte
}

// Timelocks are the lock time of the transaction and the sequence of the
// input.
type Timelocks struct {
	Locktime uint32
	Sequence uint32
}

// ParsedPsbtInput is a psbt input described by its matching descriptor.
type ParsedPsbtInput struct {
	Descriptor       string
	Index            fn.Option[uint32]
	ScriptType       ScriptType
	Address          btcutil.Address
	Scripts          Scripts
	ExtendedKeyInfos []ExtendedKeyInfo
	Timelocks        Timelocks
}

// ParseInputParams are the parameters of ParsePsbtInputWithDescriptor.
type ParseInputParams struct {
	Packet     *psbt.Packet
	InputIndex int
	Candidates []DescriptorWithExpansion
	Network    *network.Network
}

// ParseParams are the parameters of ParsePsbtWithDescriptor.
type ParseParams struct {
	Packet      *psbt.Packet
	Descriptors []string
	Network     *network.Network
}

// ParsePsbtInputWithDescriptor matches one input against the candidates
// and describes it.
func ParsePsbtInputWithDescriptor(p ParseInputParams) (*ParsedPsbtInput,
	error) {

	if p.InputIndex < 0 || p.InputIndex >= len(p.Packet.Inputs) ||
		p.InputIndex >= len(p.Packet.UnsignedTx.TxIn) {

		return nil, fmt.Errorf("%w: %d", ErrInputIndexOutOfRange,
			p.InputIndex)
	}
	input := &p.Packet.Inputs[p.InputIndex]

	m, err := GetMatchingOutputDescriptor(MatchParams{
		Input:      input,
		Candidates: p.Candidates,
		Network:    p.Network,
	})
	if err != nil {
		return nil, err
	}

	scriptType, err := ParseScriptType(m.Descriptor)
	if err != nil {
		return nil, err
	}

	return &ParsedPsbtInput{
		Descriptor: m.Descriptor,
		Index:      m.Index,
		ScriptType: scriptType,
		Address:    m.Output.Address(),
		Scripts: Scripts{
			RedeemScript:  m.Output.RedeemScript(),
			WitnessScript: m.Output.WitnessScript(),
		},
		ExtendedKeyInfos: extendedKeyInfos(input, m.Output),
		Timelocks: Timelocks{
			Locktime: p.Packet.UnsignedTx.LockTime,
			Sequence: p.Packet.UnsignedTx.TxIn[p.InputIndex].Sequence,
		},
	}, nil
}

// extendedKeyInfos pairs every key of the output with the partial
// signature made by it.
func extendedKeyInfos(input *psbt.PInput, out *Output) []ExtendedKeyInfo {
	keys := out.Expand().Keys
	infos := make([]ExtendedKeyInfo, 0, len(keys))
	for _, k := range keys {
		info := ExtendedKeyInfo{
			KeyID:  k.ID,
			PubKey: k.PubKey,
			Path:   k.Path,
		}
		for _, sig := range input.PartialSigs {
			if bytes.Equal(sig.PubKey, k.PubKey) {
				info.Signature = sig.Signature
				break
			}
		}
		infos = append(infos, info)
	}

	return infos
}

// ParsePsbtWithDescriptor expands the descriptors once and parses every
// input concurrently. The result is in input order.
func ParsePsbtWithDescriptor(ctx context.Context,
	p ParseParams) ([]*ParsedPsbtInput, error) {

	candidates, err := ExpandDescriptors(ExpandDescriptorsParams{
		Descriptors:           p.Descriptors,
		Network:               p.Network,
		ChecksumOptional:      true,
		AllowMiniscriptInP2SH: true,
	})
	if err != nil {
		return nil, err
	}

	parsed := make([]*ParsedPsbtInput, len(p.Packet.Inputs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range p.Packet.Inputs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			in, err := ParsePsbtInputWithDescriptor(ParseInputParams{
				Packet:     p.Packet,
				InputIndex: i,
				Candidates: candidates,
				Network:    p.Network,
			})
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			parsed[i] = in

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return parsed, nil
}
