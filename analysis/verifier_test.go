// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"testing"

	"droidworks/dex"
)

func TestVerifyMethodBranching(t *testing.T) {
	r, dexIdx, m, ci := newFooBarFixture(t, branchingInsns())

	res, err := VerifyMethod(r, dexIdx, m, ci)
	if err != nil {
		t.Fatalf("VerifyMethod: %v", err)
	}
	if res.CFG == nil {
		t.Fatal("VerifyResult.CFG is nil")
	}
	// block 0xa (the nop after the first return-void) has no predecessor,
	// so the forward pass never reaches it and records no state for it.
	if want := len(res.CFG.Order) - 1; len(res.Forward) != want {
		t.Errorf("forward states for %d blocks, want %d", len(res.Forward), want)
	}
	if len(res.Backward) != len(res.CFG.Order) {
		t.Errorf("backward states for %d blocks, want %d", len(res.Backward), len(res.CFG.Order))
	}

	entry, ok := res.Forward[0]
	if !ok {
		t.Fatal("no forward state recorded at entry block")
	}
	// register 1 holds "this" (InsSize=1, non-static): entryState seeds it
	// with the declared owning class, which forwardTransfer never touches
	// here, so it should still read back as Foo.
	this := entry.Regs[1]
	if this.Kind != ObjectKind || len(this.Object) != 1 || this.Object[0] != "Lcom/example/Foo;" {
		t.Errorf("register 1 (this) = %+v, want ObjectKind Lcom/example/Foo;", this)
	}
}

// TestVerifyMethodNullReceiverInvoke loads a definitely-null value into the
// receiver register and then calls invoke-virtual on it, which the forward
// pass must catch directly (a backward obligation check alone can't: with
// nothing further downstream demanding a type from that register, there's no
// conflicting demand to compare against).
func TestVerifyMethodNullReceiverInvoke(t *testing.T) {
	insns := []*dex.Instruction{
		{Addr: 0, Op: dex.LookupOpcode(0x12), Regs: []uint16{1}, Lit: 0},     // const/4 v1, #0
		{Addr: 2, Op: dex.LookupOpcode(0x6e), Regs: []uint16{1}, ArgCount: 1, PoolIndex: 0}, // invoke-virtual {v1}, Foo.bar()V
		{Addr: 8, Op: dex.LookupOpcode(0x0e)},                                // return-void
	}
	r, dexIdx, m, ci := newFooBarFixture(t, insns)

	_, err := VerifyMethod(r, dexIdx, m, ci)
	if err == nil {
		t.Fatal("expected a type error invoking a virtual method on a definitely-null receiver")
	}
	te, ok := err.(*TypeError)
	if !ok {
		t.Fatalf("got error of type %T, want *TypeError: %v", err, err)
	}
	if te.Kind != ExpectedClass {
		t.Errorf("error kind = %v, want ExpectedClass", te.Kind)
	}
}

func TestVerifyMethodStraightLine(t *testing.T) {
	insns := []*dex.Instruction{
		{Addr: 0, Op: dex.LookupOpcode(0x12), Regs: []uint16{0}, Lit: 0}, // const/4 v0, #0
		{Addr: 2, Op: dex.LookupOpcode(0x0e)},                           // return-void
	}
	r, dexIdx, m, ci := newFooBarFixture(t, insns)

	res, err := VerifyMethod(r, dexIdx, m, ci)
	if err != nil {
		t.Fatalf("VerifyMethod: %v", err)
	}
	if len(res.CFG.Order) != 1 {
		t.Fatalf("got %d blocks for straight-line code, want 1", len(res.CFG.Order))
	}
	// the only edge in a single-block method is const/4's own intra-block
	// fallthrough, folded to a self-loop since return-void isn't a leader.
	for _, e := range res.CFG.Out[res.CFG.Order[0]] {
		if e.From != e.To {
			t.Errorf("unexpected cross-block edge %+v in single-block CFG", e)
		}
	}
}
