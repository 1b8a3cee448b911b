// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import "droidworks/dex"

// VerifyResult is the outcome of running both typecheck passes over a
// method.
type VerifyResult struct {
	CFG      *CFG
	Forward  map[dex.Addr]RegState
	Backward map[dex.Addr]RegState
}

// VerifyMethod builds the CFG for a method and runs both the forward and
// backward typecheck passes over it, seeding the forward entry state from
// the method's declared parameter types and the backward exit state from
// its declared return type. This is the top-level entry point for
// end-to-end method verification.
func VerifyMethod(r *Repo, dexIdx int, m *dex.MethodID, ci *dex.CodeItem) (*VerifyResult, error) {
	c := r.Dex(dexIdx)
	if c == nil {
		return nil, &RepoError{Op: "verify_method", Subject: "unknown dex"}
	}
	sig, err := c.MethodSignature(m)
	if err != nil {
		return nil, err
	}

	cfg, err := BuildCFG(r, sig, ci)
	if err != nil {
		return nil, err
	}

	entry, err := entryState(c, m, ci)
	if err != nil {
		return nil, err
	}
	forward, err := ForwardTypecheck(r, sig, cfg, entry)
	if err != nil {
		return nil, err
	}

	exit, err := exitState(c, m)
	if err != nil {
		return nil, err
	}
	backward, err := BackwardTypecheck(r, sig, cfg, exit)
	if err != nil {
		return nil, err
	}
	if err := EntryReached(r, cfg, entry, backward); err != nil {
		return nil, err
	}

	return &VerifyResult{CFG: cfg, Forward: forward, Backward: backward}, nil
}

// entryState types the method's incoming registers: the "ins" registers
// (the last InsSize registers of the frame) take the declared parameter
// types, in order, a wide (J/D) parameter filling a register pair, with an
// implicit "this" reference prepended for non-static methods (recognized by
// InsSize exceeding the parameters' register count); every other register
// starts Top (unanalyzed).
func entryState(c *dex.Container, m *dex.MethodID, ci *dex.CodeItem) (RegState, error) {
	ci.Mu.RLock()
	regCount := int(ci.RegistersSize)
	insCount := int(ci.InsSize)
	ci.Mu.RUnlock()

	regs := make([]Type, regCount)
	for i := range regs {
		regs[i] = TypeTop
	}

	proto, err := m.ProtoIdx.Resolve(c)
	if err != nil {
		return RegState{}, err
	}

	paramTypes := make([]Type, 0, len(proto.Parameters)+1)
	for _, p := range proto.Parameters {
		desc, err := p.Resolve(c)
		if err != nil {
			continue
		}
		paramTypes = append(paramTypes, typeFromDescriptor(desc))
		if desc == "J" || desc == "D" {
			paramTypes = append(paramTypes, TypeTop) // high half of the pair
		}
	}
	cls, err := m.ClassIdx.Resolve(c)
	if err == nil && len(paramTypes) < insCount {
		paramTypes = append([]Type{{Kind: ObjectKind, Object: []string{cls}}}, paramTypes...)
	}

	start := regCount - insCount
	for i, t := range paramTypes {
		idx := start + i
		if idx >= 0 && idx < regCount {
			regs[idx] = t
		}
	}

	return RegState{Regs: regs}, nil
}

// exitState seeds the backward pass with the method's declared return type,
// held in the state's Result slot (the exit state has no registers of its
// own); backwardTransfer takes it as the obligation on the operand register
// of return/return-wide/return-object.
func exitState(c *dex.Container, m *dex.MethodID) (RegState, error) {
	proto, err := m.ProtoIdx.Resolve(c)
	if err != nil {
		return RegState{}, err
	}
	ret, err := proto.ReturnTypeIdx.Resolve(c)
	if err != nil {
		return RegState{}, err
	}
	return RegState{Result: typeFromDescriptor(ret)}, nil
}
