// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// descutil expands, validates and stores output descriptors and describes
// PSBT inputs with the descriptors that produced them.
package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
)

// app is the state shared by every command.
type app struct {
	ctx   context.Context
	cfg   *config
	out   io.Writer
	stdin *os.File
}

// newParser builds the command line parser over the shared state. Options
// are loaded and logging is started before the selected command runs.
func newParser(a *app) *flags.Parser {
	parser := flags.NewParser(a.cfg, flags.Default)

	parser.AddCommand("expand", "Expand a descriptor",
		"Print the keys, expressions and scripts of a descriptor.",
		&expandCmd{app: a})
	parser.AddCommand("validate", "Validate a descriptor",
		"Check a descriptor against the key and miniscript policies.",
		&validateCmd{app: a})
	parser.AddCommand("address", "Derive addresses",
		"Print the addresses of a descriptor over a range of indices.",
		&addressCmd{app: a})
	parser.AddCommand("checkpair", "Check an external/internal pair",
		"Check that two descriptors are the receive and change "+
			"descriptors of one wallet.",
		&checkPairCmd{app: a})
	parser.AddCommand("parsepsbt", "Describe PSBT inputs",
		"Match every input of a PSBT against descriptors and print "+
			"its keys, signatures and timelocks.",
		&parsePsbtCmd{app: a})

	store, _ := parser.AddCommand("store", "Manage stored descriptor pairs",
		"Put, get, list and delete wallet descriptor pairs.",
		&struct{}{})
	store.AddCommand("put", "Store a descriptor pair",
		"Validate and store the external and internal descriptors "+
			"of a wallet.", &storePutCmd{app: a})
	store.AddCommand("get", "Show a descriptor pair",
		"Print the stored descriptor pair of a wallet.",
		&storeGetCmd{app: a})
	store.AddCommand("list", "List descriptor pairs",
		"Print all stored descriptor pairs.", &storeListCmd{app: a})
	store.AddCommand("delete", "Delete a descriptor pair",
		"Remove the descriptor pair of a wallet.",
		&storeDeleteCmd{app: a})

	parser.CommandHandler = func(cmd flags.Commander,
		args []string) error {

		if cmd == nil {
			return nil
		}

		if err := a.cfg.load(); err != nil {
			return err
		}

		return cmd.Execute(args)
	}

	return parser
}

// run parses the arguments and executes the selected command.
func run(ctx context.Context, args []string, out io.Writer,
	stdin *os.File) error {

	defer func() {
		if logRotator != nil {
			logRotator.Close()
			logRotator = nil
		}
	}()

	a := &app{
		ctx:   ctx,
		cfg:   defaultConfig(),
		out:   out,
		stdin: stdin,
	}

	_, err := newParser(a).ParseArgs(args)

	return err
}

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stdin)
	if err == nil {
		return
	}

	// The parser has already printed the error.
	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		return
	}

	os.Exit(1)
}
