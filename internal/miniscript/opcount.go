// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miniscript

import "fmt"

// maxInt is an op count that may be unavailable, e.g. the dissatisfaction
// of a fragment that cannot be dissatisfied.
type maxInt struct {
	valid bool
	value int
}

func some(v int) maxInt {
	return maxInt{valid: true, value: v}
}

// plus adds two counts. The sum is only valid if both are.
func (m maxInt) plus(o maxInt) maxInt {
	if !m.valid || !o.valid {
		return maxInt{}
	}

	return some(m.value + o.value)
}

// or picks the larger of the valid counts.
func (m maxInt) or(o maxInt) maxInt {
	switch {
	case !m.valid:
		return o
	case !o.valid:
		return m
	case o.value > m.value:
		return o
	default:
		return m
	}
}

// ops tracks the non-push opcodes of a fragment: count is the number in the
// script itself, sat and dsat the number of executed OP_CHECKMULTISIG keys
// added by the worst case satisfaction and dissatisfaction.
type ops struct {
	count int
	sat   maxInt
	dsat  maxInt
}

// computeOpCount computes the op counts of a node from its children. It
// runs after deSugar, so only core fragments and the a, s, c, d, v, j and n
// wrappers remain.
func computeOpCount(node *AST) (*AST, error) {
	var (
		none = maxInt{}
		zero = some(0)
		sub  = func(i int) ops {
			return node.args[i].opCount
		}
	)

	switch node.identifier {
	case f_0:
		node.opCount = ops{count: 0, sat: none, dsat: zero}

	case f_1:
		node.opCount = ops{count: 0, sat: zero, dsat: none}

	case f_pk_k:
		node.opCount = ops{count: 0, sat: zero, dsat: zero}

	case f_pk_h:
		node.opCount = ops{count: 3, sat: zero, dsat: zero}

	case f_older, f_after:
		node.opCount = ops{count: 1, sat: zero, dsat: none}

	case f_sha256, f_ripemd160, f_hash256, f_hash160:
		node.opCount = ops{count: 4, sat: zero, dsat: none}

	case f_and_v:
		x, y := sub(0), sub(1)
		node.opCount = ops{
			count: x.count + y.count,
			sat:   x.sat.plus(y.sat),
			dsat:  none,
		}

	case f_and_b:
		x, y := sub(0), sub(1)
		node.opCount = ops{
			count: 1 + x.count + y.count,
			sat:   x.sat.plus(y.sat),
			dsat:  x.dsat.plus(y.dsat),
		}

	case f_or_b:
		x, z := sub(0), sub(1)
		node.opCount = ops{
			count: 1 + x.count + z.count,
			sat:   x.sat.plus(z.dsat).or(z.sat.plus(x.dsat)),
			dsat:  x.dsat.plus(z.dsat),
		}

	case f_or_d:
		x, z := sub(0), sub(1)
		node.opCount = ops{
			count: 3 + x.count + z.count,
			sat:   x.sat.or(z.sat.plus(x.dsat)),
			dsat:  x.dsat.plus(z.dsat),
		}

	case f_or_c:
		x, z := sub(0), sub(1)
		node.opCount = ops{
			count: 2 + x.count + z.count,
			sat:   x.sat.or(z.sat.plus(x.dsat)),
			dsat:  none,
		}

	case f_or_i:
		x, z := sub(0), sub(1)
		node.opCount = ops{
			count: 3 + x.count + z.count,
			sat:   x.sat.or(z.sat),
			dsat:  x.dsat.or(z.dsat),
		}

	case f_andor:
		x, y, z := sub(0), sub(1), sub(2)
		node.opCount = ops{
			count: 3 + x.count + y.count + z.count,
			sat:   y.sat.plus(x.sat).or(x.dsat.plus(z.sat)),
			dsat:  x.dsat.plus(z.dsat),
		}

	case f_multi:
		n := some(len(node.args) - 1)
		node.opCount = ops{count: 1, sat: n, dsat: n}

	case f_thresh:
		// sats[j] is the worst case with exactly j satisfied subs.
		count := 0
		sats := []maxInt{zero}
		for _, arg := range node.args[1:] {
			s := arg.opCount
			count += s.count + 1

			next := make([]maxInt, 0, len(sats)+1)
			next = append(next, sats[0].plus(s.dsat))
			for j := 1; j < len(sats); j++ {
				next = append(next, sats[j].plus(s.dsat).or(
					sats[j-1].plus(s.sat),
				))
			}
			next = append(next, sats[len(sats)-1].plus(s.sat))
			sats = next
		}

		k := int(node.args[0].num)
		node.opCount = ops{count: count, sat: sats[k], dsat: sats[0]}

	case f_wrap_a:
		x := sub(0)
		node.opCount = ops{count: 2 + x.count, sat: x.sat, dsat: x.dsat}

	case f_wrap_s, f_wrap_c, f_wrap_n:
		x := sub(0)
		node.opCount = ops{count: 1 + x.count, sat: x.sat, dsat: x.dsat}

	case f_wrap_d:
		x := sub(0)
		node.opCount = ops{count: 3 + x.count, sat: x.sat, dsat: zero}

	case f_wrap_j:
		x := sub(0)
		node.opCount = ops{count: 4 + x.count, sat: x.sat, dsat: zero}

	case f_wrap_v:
		x := sub(0)
		count := x.count
		if !node.args[0].props.canCollapseVerify {
			count++
		}
		node.opCount = ops{count: count, sat: x.sat, dsat: none}

	default:
		return nil, fmt.Errorf("unknown identifier: %s",
			node.identifier)
	}

	return node, nil
}
