// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcdesc/descriptor"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// errInvalidRange is returned for index and count flags outside the
// derivation range.
var errInvalidRange = errors.New("invalid index range")

// descriptorArg is the positional descriptor argument.
type descriptorArg struct {
	Descriptor string `positional-arg-name:"descriptor"`
}

// optionalIndex converts an index flag where -1 means unset.
func optionalIndex(i int64) (fn.Option[uint32], error) {
	switch {
	case i == -1:
		return fn.None[uint32](), nil

	case i < 0 || i > math.MaxUint32:
		return fn.None[uint32](), fmt.Errorf("%w: %d", errInvalidRange,
			i)
	}

	return fn.Some(uint32(i)), nil
}

// expandCmd prints the expansion of a descriptor.
type expandCmd struct {
	Index               int64 `long:"index" description:"Index substituted for key path wildcards, -1 for none" default:"-1"`
	ChecksumOptional    bool  `long:"checksum-optional" description:"Accept descriptors without a checksum"`
	AllowMiniscriptP2SH bool  `long:"allow-miniscript-p2sh" description:"Accept miniscript directly under sh()"`

	Args descriptorArg `positional-args:"yes" required:"yes"`

	app *app
}

// Execute runs the expand command.
func (c *expandCmd) Execute(_ []string) error {
	index, err := optionalIndex(c.Index)
	if err != nil {
		return err
	}

	x, err := descriptor.ExpandDescriptor(descriptor.ExpandParams{
		Descriptor:            c.Args.Descriptor,
		Network:               c.app.cfg.net,
		Index:                 index,
		ChecksumOptional:      c.ChecksumOptional,
		AllowMiniscriptInP2SH: c.AllowMiniscriptP2SH,
	})
	if err != nil {
		return err
	}

	return printJSON(c.app.out, newExpansionView(c.Args.Descriptor, x))
}

// validateCmd checks a descriptor against the key and miniscript policies.
type validateCmd struct {
	AllowPrivateKeys                 bool `long:"allow-private-keys" description:"Accept keys with private key material"`
	AllowXpubHardenedKeyPath         bool `long:"allow-xpub-hardened-path" description:"Accept hardened steps after an xpub"`
	AllowKeyPathWithoutWildcardIndex bool `long:"allow-fixed-path" description:"Accept key paths without a wildcard"`
	AllowWithNoKey                   bool `long:"allow-no-key" description:"Accept descriptors without keys"`
	AllowNonMiniscript               bool `long:"allow-non-miniscript" description:"Accept descriptors without a miniscript body"`
	AllowMiniscriptP2SH              bool `long:"allow-miniscript-p2sh" description:"Accept miniscript directly under sh()"`
	ChecksumOptional                 bool `long:"checksum-optional" description:"Accept descriptors without a checksum"`

	Args descriptorArg `positional-args:"yes" required:"yes"`

	app *app
}

// Execute runs the validate command.
func (c *validateCmd) Execute(_ []string) error {
	err := descriptor.AssertDescriptor(descriptor.AssertDescriptorParams{
		Descriptor:                       c.Args.Descriptor,
		Network:                          c.app.cfg.net,
		AllowPrivateKeys:                 c.AllowPrivateKeys,
		AllowXpubHardenedKeyPath:         c.AllowXpubHardenedKeyPath,
		AllowKeyPathWithoutWildcardIndex: c.AllowKeyPathWithoutWildcardIndex,
		AllowWithNoKey:                   c.AllowWithNoKey,
		AllowNonMiniscript:               c.AllowNonMiniscript,
		AllowMiniscriptInP2SH:            c.AllowMiniscriptP2SH,
		ChecksumOptional:                 c.ChecksumOptional,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.app.out, "valid")

	return err
}

// addressCmd derives the addresses of a descriptor.
type addressCmd struct {
	Index               int64 `long:"index" description:"First derivation index" default:"0"`
	Count               int64 `long:"count" description:"Number of addresses" default:"1"`
	ChecksumOptional    bool  `long:"checksum-optional" description:"Accept descriptors without a checksum"`
	AllowMiniscriptP2SH bool  `long:"allow-miniscript-p2sh" description:"Accept miniscript directly under sh()"`

	Args descriptorArg `positional-args:"yes" required:"yes"`

	app *app
}

// Execute runs the address command.
func (c *addressCmd) Execute(_ []string) error {
	if c.Index < 0 || c.Index > math.MaxUint32 || c.Count < 1 ||
		c.Count > math.MaxUint32-c.Index+1 {

		return fmt.Errorf("%w: index %d count %d", errInvalidRange,
			c.Index, c.Count)
	}

	for i := c.Index; i < c.Index+c.Count; i++ {
		out, err := descriptor.CreateOutputDescriptor(
			descriptor.OutputParams{
				Descriptor:            c.Args.Descriptor,
				Network:               c.app.cfg.net,
				Index:                 fn.Some(uint32(i)),
				ChecksumOptional:      c.ChecksumOptional,
				AllowMiniscriptInP2SH: c.AllowMiniscriptP2SH,
			},
		)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(c.app.out, "%d %s\n", i,
			out.Address().EncodeAddress())
		if err != nil {
			return err
		}

		// A descriptor without wildcard has a single address.
		if !out.Expand().IsRanged {
			break
		}
	}

	return nil
}

// checkPairCmd checks an external and internal descriptor pair.
type checkPairCmd struct {
	Args struct {
		External string `positional-arg-name:"external"`
		Internal string `positional-arg-name:"internal"`
	} `positional-args:"yes" required:"yes"`

	app *app
}

// Execute runs the checkpair command.
func (c *checkPairCmd) Execute(_ []string) error {
	err := descriptor.AssertDifferenceForInternalExternal(
		descriptor.DifferenceParams{
			DescriptorA: c.Args.External,
			DescriptorB: c.Args.Internal,
			Network:     c.app.cfg.net,
		},
	)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.app.out, "valid pair")

	return err
}
