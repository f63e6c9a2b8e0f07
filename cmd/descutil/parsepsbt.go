// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcdesc/descriptor"
	"github.com/btcsuite/btcdesc/psbtutil"
	"golang.org/x/term"
)

var (
	// errNoPsbt is returned when neither --psbt nor stdin carries a
	// packet.
	errNoPsbt = errors.New("no psbt given, use --psbt or pipe it to " +
		"stdin")

	// errNoDescriptors is returned when parsepsbt has nothing to match
	// inputs against.
	errNoDescriptors = errors.New("no descriptors given, use " +
		"--descriptor or --wallet")
)

// parsePsbtCmd describes the inputs of a psbt.
type parsePsbtCmd struct {
	Psbt        string   `long:"psbt" description:"PSBT as base64 or hex, read from stdin when omitted"`
	Descriptors []string `long:"descriptor" description:"Candidate descriptor, may be repeated"`
	Wallet      string   `long:"wallet" description:"Name of a stored descriptor pair to use as candidates"`

	app *app
}

// decodePsbt parses a binary, hex or base64 encoded packet.
func decodePsbt(raw []byte) (*psbt.Packet, error) {
	if psbtutil.IsPsbt(raw) {
		return psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	}

	s := strings.TrimSpace(string(raw))
	if psbtutil.IsPsbtHex(s) {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode psbt hex: %w", err)
		}

		return psbt.NewFromRawBytes(bytes.NewReader(b), false)
	}

	return psbt.NewFromRawBytes(strings.NewReader(s), true)
}

// readPsbt returns the raw packet from the flag or from a piped stdin.
func (c *parsePsbtCmd) readPsbt() ([]byte, error) {
	if c.Psbt != "" {
		return []byte(c.Psbt), nil
	}

	stdin := c.app.stdin
	if stdin == nil || term.IsTerminal(int(stdin.Fd())) {
		return nil, errNoPsbt
	}

	raw, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errNoPsbt
	}

	return raw, nil
}

// candidates returns the descriptors given on the command line followed by
// the stored pair of the wallet, if any.
func (c *parsePsbtCmd) candidates() ([]string, error) {
	descs := append([]string{}, c.Descriptors...)

	if c.Wallet != "" {
		store, closeStore, err := c.app.cfg.openStore(c.app.ctx)
		if err != nil {
			return nil, err
		}
		defer closeStore()

		pair, err := store.GetDescriptorPair(c.app.ctx, c.Wallet)
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", c.Wallet, err)
		}
		if pair.Network != c.app.cfg.net.Name {
			return nil, fmt.Errorf("wallet %q is on %s", c.Wallet,
				pair.Network)
		}

		descs = append(descs, pair.External, pair.Internal)
	}

	if len(descs) == 0 {
		return nil, errNoDescriptors
	}

	return descs, nil
}

// Execute runs the parsepsbt command.
func (c *parsePsbtCmd) Execute(_ []string) error {
	descs, err := c.candidates()
	if err != nil {
		return err
	}

	raw, err := c.readPsbt()
	if err != nil {
		return err
	}

	packet, err := decodePsbt(raw)
	if err != nil {
		return fmt.Errorf("invalid psbt: %w", err)
	}

	parsed, err := descriptor.ParsePsbtWithDescriptor(
		c.app.ctx, descriptor.ParseParams{
			Packet:      packet,
			Descriptors: descs,
			Network:     c.app.cfg.net,
		},
	)
	if err != nil {
		return err
	}

	views := make([]inputView, 0, len(parsed))
	for i, in := range parsed {
		v := newInputView(i, in)

		input := &packet.Inputs[i]
		v.Finalized = psbtutil.IsPsbtInputFinalized(input)
		if !v.Finalized {
			v.SignatureCount, err = psbtutil.
				GetPsbtInputSignatureCount(input)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
		}

		views = append(views, v)
	}
	log.Debugf("Parsed %d psbt inputs against %d descriptors",
		len(views), len(descs))

	return printJSON(c.app.out, views)
}
