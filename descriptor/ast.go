// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"strings"
)

// node is an element of a descriptor expression tree. Leaves are keys,
// numbers, hashes and addresses; inner nodes are script fragments such as
// wsh, multi or and_v, possibly prefixed with miniscript wrappers.
type node struct {
	name string
	args []*node
}

// isLeaf reports whether the node has no arguments.
func (n *node) isLeaf() bool {
	return len(n.args) == 0
}

// fragment returns the node name without its miniscript wrappers, e.g.
// "pk" for "v:pk".
func (n *node) fragment() string {
	if i := strings.LastIndexByte(n.name, ':'); i != -1 {
		return n.name[i+1:]
	}

	return n.name
}

// String renders the tree back into descriptor syntax.
func (n *node) String() string {
	var b strings.Builder
	n.render(&b)

	return b.String()
}

func (n *node) render(b *strings.Builder) {
	b.WriteString(n.name)
	if n.isLeaf() {
		return
	}

	b.WriteByte('(')
	for i, arg := range n.args {
		if i > 0 {
			b.WriteByte(',')
		}
		arg.render(b)
	}
	b.WriteByte(')')
}

// walk calls f for every node in depth first, left to right order.
func (n *node) walk(f func(*node) error) error {
	if err := f(n); err != nil {
		return err
	}
	for _, arg := range n.args {
		if err := arg.walk(f); err != nil {
			return err
		}
	}

	return nil
}

// exprParser is a recursive descent parser over the descriptor grammar
// name(arg,arg,...). Key expressions never contain '(', ')' or ',' so they
// parse as leaves.
type exprParser struct {
	s   string
	pos int
}

// parseExpr parses a checksum-free descriptor into a tree.
func parseExpr(s string) (*node, error) {
	p := &exprParser{s: s}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.pos != len(s) {
		return nil, fmt.Errorf("%w: unexpected %q at position %d",
			ErrMalformedDescriptor, s[p.pos:], p.pos)
	}

	return n, nil
}

func (p *exprParser) expr() (*node, error) {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("(),", rune(p.s[p.pos])) {
		p.pos++
	}

	name := p.s[start:p.pos]
	if name == "" {
		return nil, fmt.Errorf("%w: empty expression at position %d",
			ErrMalformedDescriptor, start)
	}

	n := &node{name: name}
	if p.pos == len(p.s) || p.s[p.pos] != '(' {
		return n, nil
	}
	p.pos++

	for {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		n.args = append(n.args, arg)

		if p.pos == len(p.s) {
			return nil, fmt.Errorf("%w: unbalanced parentheses in %s",
				ErrMalformedDescriptor, name)
		}

		c := p.s[p.pos]
		p.pos++
		switch c {
		case ',':
			continue

		case ')':
			return n, nil

		default:
			return nil, fmt.Errorf("%w: unexpected %q at position %d",
				ErrMalformedDescriptor, c, p.pos-1)
		}
	}
}
