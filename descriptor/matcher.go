// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcdesc/network"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// MatchParams are the parameters of GetMatchingOutputDescriptor.
type MatchParams struct {
	// Input is the psbt input to match.
	Input *psbt.PInput

	// Candidates are tried in order. Expansions may be nil, in which case
	// every candidate is expanded again.
	Candidates []DescriptorWithExpansion

	Network *network.Network
}

// MatchedOutput is the candidate whose scripts match an input.
type MatchedOutput struct {
	// Descriptor is the matching candidate.
	Descriptor string

	// Expansion is the index-free expansion of the candidate.
	Expansion *Expansion

	// Output is the candidate bound to Index.
	Output *Output

	// Index is the resolved wildcard index, None if not ranged.
	Index fn.Option[uint32]
}

// hasExpansions reports whether every candidate carries an expansion.
func hasExpansions(candidates []DescriptorWithExpansion) bool {
	for _, c := range candidates {
		if c.Expansion == nil {
			return false
		}
	}

	return true
}

// scriptsMatch compares the scripts of the input with those of the output.
// Each of the redeem and witness scripts matches when both sides lack it or
// both carry the same bytes. The input must carry at least one script.
func scriptsMatch(input *psbt.PInput, out *Output) (bool, error) {
	redeem, witness := out.RedeemScript(), out.WitnessScript()

	if redeem == nil && witness == nil {
		return false, fmt.Errorf("%w: %s", ErrOutputMissingScripts,
			out.Descriptor())
	}

	half := func(a, b []byte) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}

		return bytes.Equal(a, b)
	}

	return half(input.RedeemScript, redeem) &&
		half(input.WitnessScript, witness), nil
}

// matchCandidate binds the candidate to the input's wildcard index and
// compares scripts. A wildcard that none of the input's derivations
// reproduce is not a match.
func matchCandidate(input *psbt.PInput, c DescriptorWithExpansion,
	n *network.Network) fn.Result[fn.Option[*MatchedOutput]] {

	none := fn.Ok(fn.None[*MatchedOutput]())

	index, err := GetValueForDescriptorWildcardIndex(input, c.Expansion)
	switch {
	case errors.Is(err, ErrWildcardIndexNotFound):
		log.Tracef("Candidate %s: %v", c.Descriptor, err)
		return none

	case err != nil:
		return fn.Err[fn.Option[*MatchedOutput]](err)
	}

	// Inputs may spend legacy outputs with miniscript under sh().
	out, err := CreateOutputDescriptor(OutputParams{
		Descriptor:            c.Descriptor,
		Network:               n,
		Index:                 index,
		ChecksumOptional:      true,
		AllowMiniscriptInP2SH: true,
	})
	if err != nil {
		return fn.Err[fn.Option[*MatchedOutput]](err)
	}

	ok, err := scriptsMatch(input, out)
	if err != nil {
		return fn.Err[fn.Option[*MatchedOutput]](err)
	}
	if !ok {
		return none
	}

	return fn.Ok(fn.Some(&MatchedOutput{
		Descriptor: c.Descriptor,
		Expansion:  c.Expansion,
		Output:     out,
		Index:      index,
	}))
}

// GetMatchingOutputDescriptor returns the first candidate whose scripts at
// the input's wildcard index equal the input's redeem and witness scripts.
// An input without either script fails with ErrInputMissingScripts before
// any candidate is looked at.
//
// A ranged candidate whose wildcard none of the input's derivations
// reproduce is skipped as a non-match rather than failing the whole search,
// so inputs of another wallet branch fall through to the next candidate.
// Missing derivation data altogether is still an error.
func GetMatchingOutputDescriptor(p MatchParams) (*MatchedOutput, error) {
	if err := AssertDescriptorSupport(p.Network); err != nil {
		return nil, err
	}

	if p.Input.RedeemScript == nil && p.Input.WitnessScript == nil {
		return nil, ErrInputMissingScripts
	}

	candidates := p.Candidates
	if !hasExpansions(candidates) {
		descs := make([]string, 0, len(candidates))
		for _, c := range candidates {
			descs = append(descs, c.Descriptor)
		}

		var err error
		candidates, err = ExpandDescriptors(ExpandDescriptorsParams{
			Descriptors:           descs,
			Network:               p.Network,
			ChecksumOptional:      true,
			AllowMiniscriptInP2SH: true,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, c := range candidates {
		res, err := matchCandidate(p.Input, c, p.Network).Unpack()
		if err != nil {
			return nil, err
		}

		if m, err := res.UnwrapOrErr(ErrNoMatchingDescriptor); err == nil {
			log.Debugf("Input matched descriptor %s", c.Descriptor)
			return m, nil
		}
	}

	return nil, ErrNoMatchingDescriptor
}

// GetOutputDescriptors matches every input of the packet against the
// descriptors. The descriptors must carry checksums.
func GetOutputDescriptors(packet *psbt.Packet, descriptors []string,
	n *network.Network) ([]*MatchedOutput, error) {

	candidates, err := ExpandDescriptors(ExpandDescriptorsParams{
		Descriptors:           descriptors,
		Network:               n,
		AllowMiniscriptInP2SH: true,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]*MatchedOutput, 0, len(packet.Inputs))
	for i := range packet.Inputs {
		m, err := GetMatchingOutputDescriptor(MatchParams{
			Input:      &packet.Inputs[i],
			Candidates: candidates,
			Network:    n,
		})
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		matches = append(matches, m)
	}

	return matches, nil
}
