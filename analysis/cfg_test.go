// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"testing"

	"droidworks/dex"
)

// branchingInsns builds:
//
//	@0  const/4 v0, #0
//	@2  if-eqz v0, +6   -> @8
//	@6  goto +6         -> @12
//	@8  return-void
//	@10 nop
//	@12 return-void
//
// exercising a conditional branch, an unconditional jump and a sequential
// fallthrough in one method body.
func branchingInsns() []*dex.Instruction {
	return []*dex.Instruction{
		{Addr: 0, Op: dex.LookupOpcode(0x12), Regs: []uint16{0}, Lit: 0},
		{Addr: 2, Op: dex.LookupOpcode(0x38), Regs: []uint16{0}, BranchOffset: 6},
		{Addr: 6, Op: dex.LookupOpcode(0x28), BranchOffset: 6},
		{Addr: 8, Op: dex.LookupOpcode(0x0e)},
		{Addr: 10, Op: dex.LookupOpcode(0x00)},
		{Addr: 12, Op: dex.LookupOpcode(0x0e)},
	}
}

func TestBuildCFGLeadersAndEdges(t *testing.T) {
	r, _, m, ci := newFooBarFixture(t, branchingInsns())
	sig, err := r.Dex(0).MethodSignature(m)
	if err != nil {
		t.Fatalf("MethodSignature: %v", err)
	}

	cfg, err := BuildCFG(r, sig, ci)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}

	wantLeaders := []dex.Addr{0, 6, 8, 10, 12}
	if len(cfg.Order) != len(wantLeaders) {
		t.Fatalf("got %d leaders %v, want %v", len(cfg.Order), cfg.Order, wantLeaders)
	}
	for i, want := range wantLeaders {
		if cfg.Order[i] != want {
			t.Errorf("leader[%d] = %#x, want %#x", i, cfg.Order[i], want)
		}
	}

	hasEdge := func(from, to dex.Addr, kind EdgeKind) bool {
		for _, e := range cfg.Out[from] {
			if e.To == to && e.Kind == kind {
				return true
			}
		}
		return false
	}
	if !hasEdge(0, 8, EdgeIfTrue) {
		t.Error("missing if-eqz true edge 0 -> 8")
	}
	if !hasEdge(0, 6, EdgeIfFalse) {
		t.Error("missing if-eqz false edge 0 -> 6")
	}
	if !hasEdge(6, 12, EdgeJmp) {
		t.Error("missing goto edge 6 -> 12")
	}
	if !hasEdge(10, 12, EdgeSequence) {
		t.Error("missing fallthrough edge 10 -> 12")
	}
	if len(cfg.Out[8]) != 0 {
		t.Errorf("block 8 (return-void) should have no successors, got %v", cfg.Out[8])
	}
	if len(cfg.Out[12]) != 0 {
		t.Errorf("block 12 (return-void) should have no successors, got %v", cfg.Out[12])
	}
}

// TestBuildCFGDivTryCatch builds a minimal try-region around a div-int
// instruction (div-int can throw ArithmeticException on a zero divisor) with
// both a typed handler and a catch-all, and checks BuildCFG produces the
// div's own success edge alongside both exceptional edges out of its block.
func TestBuildCFGDivTryCatch(t *testing.T) {
	insns := []*dex.Instruction{
		{Addr: 0, Op: dex.LookupOpcode(0x93), Regs: []uint16{0, 1, 2}}, // div-int v0, v1, v2
		{Addr: 4, Op: dex.LookupOpcode(0x0e)},                          // return-void
		{Addr: 6, Op: dex.LookupOpcode(0x0e)},                          // typed catch handler
		{Addr: 8, Op: dex.LookupOpcode(0x0e)},                          // catch-all handler
	}
	ci := &dex.CodeItem{
		Instructions: insns,
		Tries: []dex.TryItem{
			{StartAddr: 0, InsnCount: 4, HandlerIdx: 0},
		},
		Handlers: []dex.CatchHandlerList{
			{
				Handlers:     []dex.CatchHandler{{TypeIdx: 0, Addr: 6}},
				HasCatchAll:  true,
				CatchAllAddr: 8,
			},
		},
	}

	cfg, err := BuildCFG(nil, "test", ci)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}

	hasEdge := func(from, to dex.Addr, kind EdgeKind) bool {
		for _, e := range cfg.Out[from] {
			if e.To == to && e.Kind == kind {
				return true
			}
		}
		return false
	}
	if !hasEdge(0, 4, EdgeDivSuccess) {
		t.Error("missing div-int success edge 0 -> 4")
	}
	if !hasEdge(0, 6, EdgeCatch) {
		t.Error("missing typed catch edge 0 -> 6")
	}
	if !hasEdge(0, 8, EdgeCatchAll) {
		t.Error("missing catch-all edge 0 -> 8")
	}
}

func TestBuildCFGRejectsEmptyBody(t *testing.T) {
	r, _, m, ci := newFooBarFixture(t, []*dex.Instruction{{Addr: 0, Op: dex.LookupOpcode(0x0e)}})
	sig, _ := r.Dex(0).MethodSignature(m)

	ci.Mu.Lock()
	ci.Instructions = nil
	ci.Mu.Unlock()

	if _, err := BuildCFG(r, sig, ci); err == nil {
		t.Fatal("expected error building a CFG for a body with no instructions")
	}
}
