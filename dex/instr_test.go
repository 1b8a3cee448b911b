// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"bytes"
	"testing"
)

// roundTrip round-trips an instruction through Encode/Decode and
// asserts the size matches what was written.
func roundTrip(t *testing.T, inst *Instruction) *Instruction {
	t.Helper()
	buf := EncodeInstruction(inst)
	if uint32(len(buf)) != inst.Size() {
		t.Fatalf("%s: encoded %d bytes, Size() = %d", inst.Mnemonic(), len(buf), inst.Size())
	}
	got, err := DecodeInstruction(buf, inst.Addr)
	if err != nil {
		t.Fatalf("%s: decode failed: %v", inst.Mnemonic(), err)
	}
	return got
}

func TestInstructionRoundTripByFormat(t *testing.T) {
	tests := []*Instruction{
		{Addr: 0, Op: LookupOpcode(0x00)},                                                 // nop, 10x
		{Addr: 0, Op: LookupOpcode(0x01), Regs: []uint16{1, 2}},                            // move, 12x
		{Addr: 0, Op: LookupOpcode(0x12), Regs: []uint16{3}, Lit: -5},                      // const/4, 11n
		{Addr: 0, Op: LookupOpcode(0x0a), Regs: []uint16{7}},                               // move-result, 11x
		{Addr: 0, Op: LookupOpcode(0x28), BranchOffset: 10},                                // goto, 10t
		{Addr: 0, Op: LookupOpcode(0x29), BranchOffset: -200},                              // goto/16, 20t
		{Addr: 0, Op: LookupOpcode(0x02), Regs: []uint16{4, 300}},                          // move/from16, 22x
		{Addr: 0, Op: LookupOpcode(0x38), Regs: []uint16{9}, BranchOffset: 40},             // if-eqz, 21t
		{Addr: 0, Op: LookupOpcode(0x13), Regs: []uint16{2}, Lit: -1000},                   // const/16, 21s
		{Addr: 0, Op: LookupOpcode(0x15), Regs: []uint16{2}, Lit: int64(0x1234) << 16},     // const/high16, 21h
		{Addr: 0, Op: LookupOpcode(0x19), Regs: []uint16{2}, Lit: int64(0x1234) << 48},     // const-wide/high16, 21h
		{Addr: 0, Op: LookupOpcode(0x1a), Regs: []uint16{0}, PoolIndex: 0xBEEF},            // const-string, 21c
		{Addr: 0, Op: LookupOpcode(0x2d), Regs: []uint16{1, 2, 3}},                         // cmpl-float, 23x
		{Addr: 0, Op: LookupOpcode(0x32), Regs: []uint16{1, 2}, BranchOffset: -20},         // if-eq, 22t
		{Addr: 0, Op: LookupOpcode(0x20), Regs: []uint16{1, 2}, PoolIndex: 0x55},           // instance-of, 22c
		{Addr: 0, Op: LookupOpcode(0x2a), BranchOffset: 1 << 20},                           // goto/32, 30t
		{Addr: 0, Op: LookupOpcode(0x03), Regs: []uint16{1000, 2000}},                      // move/16, 32x
		{Addr: 0, Op: LookupOpcode(0x14), Regs: []uint16{1}, Lit: -123456},                 // const, 31i
		{Addr: 0, Op: LookupOpcode(0x26), Regs: []uint16{1}, BranchOffset: 1 << 17},        // fill-array-data, 31t
		{Addr: 0, Op: LookupOpcode(0x1b), Regs: []uint16{1}, PoolIndex: 0x10203},           // const-string/jumbo, 31c
		{Addr: 0, Op: LookupOpcode(0x6e), Regs: []uint16{1, 2, 3}, ArgCount: 3, PoolIndex: 9}, // invoke-virtual, 35c
		{Addr: 0, Op: LookupOpcode(0x74), RangeStart: 5, RangeCount: 4, PoolIndex: 11},     // invoke-virtual/range, 3rc
		{Addr: 0, Op: LookupOpcode(0xfa), Regs: []uint16{1, 2}, ArgCount: 2, PoolIndex: 7, ProtoIndex: 3}, // invoke-polymorphic, 45cc
		{Addr: 0, Op: LookupOpcode(0xfb), RangeStart: 2, RangeCount: 3, PoolIndex: 8, ProtoIndex: 1},      // invoke-polymorphic/range, 4rcc
		{Addr: 0, Op: LookupOpcode(0x18), Regs: []uint16{1}, Lit: -9999999999},             // const-wide, 51l
	}

	for _, want := range tests {
		t.Run(want.Mnemonic(), func(t *testing.T) {
			got := roundTrip(t, want)
			if got.Mnemonic() != want.Mnemonic() {
				t.Errorf("mnemonic: got %s, want %s", got.Mnemonic(), want.Mnemonic())
			}
			if !equalU16(got.Regs, want.Regs) {
				t.Errorf("regs: got %v, want %v", got.Regs, want.Regs)
			}
			if got.Lit != want.Lit {
				t.Errorf("lit: got %d, want %d", got.Lit, want.Lit)
			}
			if got.BranchOffset != want.BranchOffset {
				t.Errorf("branch offset: got %d, want %d", got.BranchOffset, want.BranchOffset)
			}
			if got.PoolIndex != want.PoolIndex {
				t.Errorf("pool index: got %#x, want %#x", got.PoolIndex, want.PoolIndex)
			}
			if got.ProtoIndex != want.ProtoIndex {
				t.Errorf("proto index: got %#x, want %#x", got.ProtoIndex, want.ProtoIndex)
			}
			if got.RangeStart != want.RangeStart || got.RangeCount != want.RangeCount {
				t.Errorf("range: got [%d,+%d), want [%d,+%d)", got.RangeStart, got.RangeCount, want.RangeStart, want.RangeCount)
			}
		})
	}
}

func equalU16(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDecodeInstructionTruncated(t *testing.T) {
	// move-wide/16 is a 32x, 6 bytes; give it only 4.
	buf := []byte{0x06, 0x00, 0x01, 0x00}
	if _, err := DecodeInstruction(buf, 0); err == nil {
		t.Fatal("expected BadInstructionSize error for truncated stream")
	}
}

func TestPatchInstructionsPadsWithNop(t *testing.T) {
	// Original stream: two nops (4 bytes). Replace with a single nop and
	// confirm the remaining 2 bytes are padded with further nop.
	orig := make([]byte, 4)
	repl := []*Instruction{{Addr: 0, Op: LookupOpcode(0x00)}}
	out, err := PatchInstructions(orig, 0, 4, repl)
	if err != nil {
		t.Fatalf("PatchInstructions failed: %v", err)
	}
	if !bytes.Equal(out, make([]byte, 4)) {
		t.Errorf("expected all-zero nop-padded stream, got %v", out)
	}
}

func TestPatchInstructionsRejectsOverflow(t *testing.T) {
	orig := make([]byte, 2)
	// goto/32 needs 6 bytes, doesn't fit in the 2-byte span.
	repl := []*Instruction{{Addr: 0, Op: LookupOpcode(0x2a), BranchOffset: 100}}
	if _, err := PatchInstructions(orig, 0, 2, repl); err == nil {
		t.Fatal("expected error when replacement exceeds original span")
	}
}
