// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"
	"sort"

	"droidworks/dex"
)

// RegState is a method's abstract register file at one program point: one
// Type per register, plus a result-register slot for move-result-style
// continuations.
type RegState struct {
	Regs   []Type
	Result Type
}

// Clone returns a deep-enough copy of s for independent mutation.
func (s RegState) Clone() RegState {
	regs := make([]Type, len(s.Regs))
	copy(regs, s.Regs)
	return RegState{Regs: regs, Result: s.Result}
}

// Merge combines s with other using combine (Meet32/Meet64-derived per
// register width, chosen by the caller), returning the merged state and
// whether it differs from s (used by the worklist to decide whether a
// successor needs re-visiting).
func (s RegState) Merge(other RegState, combine func(a, b Type) Type) (RegState, bool) {
	if s.Regs == nil {
		return other.Clone(), true
	}
	changed := false
	out := s.Clone()
	for i := range out.Regs {
		if i >= len(other.Regs) {
			continue
		}
		merged := combine(out.Regs[i], other.Regs[i])
		if !typeEqual(merged, out.Regs[i]) {
			changed = true
		}
		out.Regs[i] = merged
	}
	return out, changed
}

func typeEqual(a, b Type) bool {
	if a.Kind != b.Kind || a.ArrayDim != b.ArrayDim || a.ArrayElem != b.ArrayElem {
		return false
	}
	if len(a.Object) != len(b.Object) {
		return false
	}
	for i := range a.Object {
		if a.Object[i] != b.Object[i] {
			return false
		}
	}
	return true
}

// Transfer is a per-instruction abstract transfer function: given the
// incoming state at a block and one instruction within it, returns the
// outgoing state, or a *TypeError if the instruction's type obligations
// are violated.
type Transfer func(r *Repo, in *dex.Instruction, state RegState) (RegState, error)

// runWorklist is the fixed-point engine shared by ForwardTypecheck and
// BackwardTypecheck: a standard iterative worklist over the CFG's blocks,
// breaking ties in address order so results are deterministic across runs.
func runWorklist(
	r *Repo,
	method string,
	cfg *CFG,
	forward bool,
	entry RegState,
	transfer Transfer,
	successors func(addr dex.Addr) []dex.Addr,
) (map[dex.Addr]RegState, error) {
	states := make(map[dex.Addr]RegState, len(cfg.Order))

	roots := cfg.Order
	if !forward {
		roots = reverseAddrs(cfg.Order)
	}
	if len(roots) == 0 {
		return states, nil
	}

	entryAddr := roots[0]
	states[entryAddr] = entry
	if !forward {
		// every block ending in a return instruction is a method exit, so
		// each one starts the backward pass from the exit state
		for _, a := range cfg.Order {
			if b := cfg.Blocks[a]; b != nil && len(b.Instructions) > 0 &&
				matchPrefix(b.Instructions[len(b.Instructions)-1].Op.Mnemonic, "return") {
				states[a] = entry.Clone()
			}
		}
	}

	queue := append([]dex.Addr(nil), cfg.Order...)
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })
	inQueue := make(map[dex.Addr]bool, len(queue))
	for _, a := range queue {
		inQueue[a] = true
	}

	push := func(a dex.Addr) {
		if inQueue[a] {
			return
		}
		inQueue[a] = true
		// keep the queue address-ordered so processing order stays
		// deterministic regardless of discovery order
		idx := sort.Search(len(queue), func(i int) bool { return queue[i] >= a })
		queue = append(queue, 0)
		copy(queue[idx+1:], queue[idx:])
		queue[idx] = a
	}

	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]
		inQueue[addr] = false

		state, ok := states[addr]
		if !ok {
			continue
		}

		block := cfg.Blocks[addr]
		if block == nil {
			continue
		}
		cur := state.Clone()
		insns := block.Instructions
		if !forward {
			insns = reverseInsns(insns)
		}
		for _, in := range insns {
			next, err := transfer(r, in, cur)
			if err != nil {
				return nil, err
			}
			cur = next
		}

		for _, succ := range successors(addr) {
			existing, has := states[succ]
			var merged RegState
			var changed bool
			if !has {
				merged, changed = cur.Clone(), true
			} else {
				combine := func(a, b Type) Type {
					if is64(a.Kind) || is64(b.Kind) {
						return Meet64(a, b)
					}
					return Meet32(a, b)
				}
				merged, changed = existing.Merge(cur, combine)
			}
			if changed || !has {
				states[succ] = merged
				push(succ)
			}
		}
	}

	return states, nil
}

func reverseAddrs(in []dex.Addr) []dex.Addr {
	out := make([]dex.Addr, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func reverseInsns(in []*dex.Instruction) []*dex.Instruction {
	out := make([]*dex.Instruction, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// ForwardTypecheck runs the forward dataflow pass over cfg starting from
// entry (typically derived from the method's declared parameter types),
// applying the forward per-opcode transfer functions in transfers_forward.go.
func ForwardTypecheck(r *Repo, method string, cfg *CFG, entry RegState) (map[dex.Addr]RegState, error) {
	successors := func(addr dex.Addr) []dex.Addr {
		var out []dex.Addr
		for _, e := range cfg.Out[addr] {
			out = append(out, e.To)
		}
		return out
	}
	return runWorklist(r, method, cfg, true, entry, forwardTransfer, successors)
}

// BackwardTypecheck runs the backward dataflow pass over cfg, propagating
// use obligations from each instruction back to its definitions, applying
// the transfer functions in transfers_backward.go.
func BackwardTypecheck(r *Repo, method string, cfg *CFG, exit RegState) (map[dex.Addr]RegState, error) {
	predecessors := func(addr dex.Addr) []dex.Addr {
		var out []dex.Addr
		for _, e := range cfg.In[addr] {
			out = append(out, e.From)
		}
		return out
	}
	return runWorklist(r, method, cfg, false, exit, backwardTransfer, predecessors)
}

// EntryReached validates the backward pass's computed pre-state at a
// method's entry block against the register layout its declared parameter
// types actually populate. The backward pass propagates every use
// obligation from the body all the way back to entry; if one of those
// obligations is stronger than what the signature actually supplies in an
// "ins" register, the method can never be entered without a type conflict,
// and that's reported here rather than silently dropped at the worklist's
// root.
func EntryReached(r *Repo, cfg *CFG, entry RegState, backward map[dex.Addr]RegState) error {
	if len(cfg.Order) == 0 {
		return nil
	}
	entryAddr := cfg.Order[0]
	required, ok := backward[entryAddr]
	if !ok {
		return nil
	}
	for i, have := range entry.Regs {
		if i >= len(required.Regs) {
			continue
		}
		want := required.Regs[i]
		if want.Kind == Top {
			continue
		}
		if !IsSubtypeOf(r, have, want) {
			return &TypeError{
				Kind:   IncompatibleStates,
				Addr:   uint32(entryAddr),
				Detail: fmt.Sprintf("register v%d: declared parameter type %s does not satisfy entry obligation %s", i, kindName(have.Kind), kindName(want.Kind)),
			}
		}
	}
	return nil
}
