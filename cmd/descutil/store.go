// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/btcsuite/btcdesc/descstore"
)

// nameArg is the positional wallet name argument.
type nameArg struct {
	Name string `positional-arg-name:"name"`
}

// withStore opens the configured store, runs f on it and closes it.
func (a *app) withStore(f func(descstore.Store) error) error {
	store, closeStore, err := a.cfg.openStore(a.ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return f(store)
}

// storePutCmd stores a descriptor pair on the configured network.
type storePutCmd struct {
	Args struct {
		Name     string `positional-arg-name:"name"`
		External string `positional-arg-name:"external"`
		Internal string `positional-arg-name:"internal"`
	} `positional-args:"yes" required:"yes"`

	app *app
}

// Execute runs the store put command.
func (c *storePutCmd) Execute(_ []string) error {
	return c.app.withStore(func(s descstore.Store) error {
		err := s.PutDescriptorPair(c.app.ctx, descstore.DescriptorPair{
			Name:     c.Args.Name,
			Network:  c.app.cfg.net.Name,
			External: c.Args.External,
			Internal: c.Args.Internal,
		})
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(c.app.out, "stored %s\n", c.Args.Name)

		return err
	})
}

// storeGetCmd prints a stored descriptor pair.
type storeGetCmd struct {
	Args nameArg `positional-args:"yes" required:"yes"`

	app *app
}

// Execute runs the store get command.
func (c *storeGetCmd) Execute(_ []string) error {
	return c.app.withStore(func(s descstore.Store) error {
		pair, err := s.GetDescriptorPair(c.app.ctx, c.Args.Name)
		if err != nil {
			return err
		}

		return printJSON(c.app.out, newPairView(pair))
	})
}

// storeListCmd prints every stored descriptor pair.
type storeListCmd struct {
	app *app
}

// Execute runs the store list command.
func (c *storeListCmd) Execute(_ []string) error {
	return c.app.withStore(func(s descstore.Store) error {
		pairs, err := s.ListDescriptorPairs(c.app.ctx)
		if err != nil {
			return err
		}

		views := make([]pairView, 0, len(pairs))
		for _, p := range pairs {
			views = append(views, newPairView(p))
		}

		return printJSON(c.app.out, views)
	})
}

// storeDeleteCmd removes a stored descriptor pair.
type storeDeleteCmd struct {
	Args nameArg `positional-args:"yes" required:"yes"`

	app *app
}

// Execute runs the store delete command.
func (c *storeDeleteCmd) Execute(_ []string) error {
	return c.app.withStore(func(s descstore.Store) error {
		err := s.DeleteDescriptorPair(c.app.ctx, c.Args.Name)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(c.app.out, "deleted %s\n", c.Args.Name)

		return err
	})
}
