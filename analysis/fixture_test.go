// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"encoding/binary"
	"testing"

	"droidworks/dex"
)

// buildMethodDex assembles a complete, minimal dex image defining a single
// class ("Lcom/example/Foo;") with one public instance method ("bar", no
// args, void return) whose body is the given instruction stream. It extends
// the dex package's own buildMinimalDex fixture pattern (string/type pools
// only) with proto/method pools, a class_def_item, a class_data_item and a
// real code_item, since CodeItem.Instructions can only be populated by
// dex.Parse itself — there is no exported constructor package analysis could
// call directly. No map_list is emitted; class_data_item and code_item are
// both offset-addressed directly from the class_def_item and never require
// walking the map, matching what dex.Parse itself does.
func buildMethodDex(t *testing.T, insns []*dex.Instruction) []byte {
	t.Helper()

	buf := make([]byte, dex.HeaderSize)
	putU32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	appendU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	appendU16 := func(v uint16) {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], v)
		buf = append(buf, b[:]...)
	}
	// appendUleb128Fixed5 always emits exactly 5 bytes (the max width a
	// uint32 ever needs), forcing the continuation bit on the first four
	// regardless of v's magnitude. Used for the class_data_item's code_off
	// field, whose true value (a forward reference to the code_item that
	// follows) isn't known until after the class_data_item's own size is
	// fixed; ReadUleb128 doesn't require canonical (minimal-width) encoding,
	// so a fixed-width placeholder can be patched in place afterward.
	appendUleb128Fixed5 := func(v uint32) int {
		at := len(buf)
		buf = append(buf,
			byte(v&0x7f)|0x80,
			byte((v>>7)&0x7f)|0x80,
			byte((v>>14)&0x7f)|0x80,
			byte((v>>21)&0x7f)|0x80,
			byte((v>>28)&0x7f),
		)
		return at
	}
	patchUleb128Fixed5 := func(at int, v uint32) {
		buf[at+0] = byte(v&0x7f) | 0x80
		buf[at+1] = byte((v>>7)&0x7f) | 0x80
		buf[at+2] = byte((v>>14)&0x7f) | 0x80
		buf[at+3] = byte((v>>21)&0x7f) | 0x80
		buf[at+4] = byte((v >> 28) & 0x7f)
	}

	strs := []string{"Lcom/example/Foo;", "V", "bar"}
	strDataOff := make([]uint32, len(strs))
	for i, s := range strs {
		strDataOff[i] = uint32(len(buf))
		body, count := dex.EncodeMutf8(s)
		buf = append(buf, dex.AppendUleb128(nil, uint32(count))...)
		buf = append(buf, body...)
	}

	stringIdsOff := uint32(len(buf))
	for _, off := range strDataOff {
		appendU32(off)
	}

	typeIdsOff := uint32(len(buf))
	appendU32(0) // type 0: Foo
	appendU32(1) // type 1: V

	protoIdsOff := uint32(len(buf))
	appendU32(1) // shorty_idx: "V"
	appendU32(1) // return_type_idx: V
	appendU32(0) // parameters_off: none

	methodIdsOff := uint32(len(buf))
	appendU16(0) // class_idx: Foo
	appendU16(0) // proto_idx
	appendU32(2) // name_idx: "bar"

	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}

	// class_data_item: 0 static fields, 0 instance fields, 0 direct
	// methods, 1 virtual method (bar is public, non-static, non-private).
	classDataOff := uint32(len(buf))
	buf = append(buf, dex.AppendUleb128(nil, 0)...) // static_fields_size
	buf = append(buf, dex.AppendUleb128(nil, 0)...) // instance_fields_size
	buf = append(buf, dex.AppendUleb128(nil, 0)...) // direct_methods_size
	buf = append(buf, dex.AppendUleb128(nil, 1)...) // virtual_methods_size
	buf = append(buf, dex.AppendUleb128(nil, 0)...) // method_idx_diff (method 0)
	buf = append(buf, dex.AppendUleb128(nil, uint32(dex.AccPublic))...) // access_flags
	codeOffPatchAt := appendUleb128Fixed5(0)                           // code_off placeholder

	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	codeOff := uint32(len(buf))

	var rawInsns []byte
	for _, in := range insns {
		rawInsns = append(rawInsns, dex.EncodeInstruction(in)...)
	}
	appendU16(2) // registers_size
	appendU16(1) // ins_size (just "this")
	appendU16(0) // outs_size
	appendU16(0) // tries_size
	appendU32(0) // debug_info_off
	appendU32(uint32(len(rawInsns) / 2)) // insns_size (code units)
	buf = append(buf, rawInsns...)

	patchUleb128Fixed5(codeOffPatchAt, codeOff)

	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	classDefsOff := uint32(len(buf))
	appendU32(0)                      // class_idx: Foo
	appendU32(uint32(dex.AccPublic))  // access_flags
	appendU32(dex.NoIndexSentinel)    // superclass_idx: none
	appendU32(0)                      // interfaces_off
	appendU32(dex.NoIndexSentinel)    // source_file_idx: none
	appendU32(0)                      // annotations_off
	appendU32(classDataOff)           // class_data_off
	appendU32(0)                      // static_values_off

	copy(buf[0:4], dex.Magic[:])
	copy(buf[4:8], []byte{'0', '3', '5', 0})
	putU32(36, dex.HeaderSize)
	putU32(40, dex.LittleEndianTag)
	putU32(56, uint32(len(strs)))
	putU32(60, stringIdsOff)
	putU32(64, 2)
	putU32(68, typeIdsOff)
	putU32(72, 1)
	putU32(76, protoIdsOff)
	putU32(88, 1)
	putU32(92, methodIdsOff)
	putU32(96, 1)
	putU32(100, classDefsOff)
	putU32(32, uint32(len(buf)))

	return buf
}

// newFooBarFixture parses buildMethodDex's output and returns a Repo with
// it registered, plus the bar() MethodID/CodeItem pair to drive CFG and
// verifier tests against.
func newFooBarFixture(t *testing.T, insns []*dex.Instruction) (*Repo, int, *dex.MethodID, *dex.CodeItem) {
	t.Helper()
	c, err := dex.Parse(buildMethodDex(t, insns))
	if err != nil {
		t.Fatalf("Parse fixture failed: %v", err)
	}

	r := NewRepo()
	dexIdx := r.DexCount()
	if err := r.RegisterDex(c, false); err != nil {
		t.Fatalf("RegisterDex failed: %v", err)
	}
	r.CloseHierarchy()

	cd, _, err := r.GetClassByName("Lcom/example/Foo;")
	if err != nil {
		t.Fatalf("GetClassByName failed: %v", err)
	}
	em := cd.ClassData.VirtualMethods[0]
	method, err := em.MethodIdx.Resolve(c)
	if err != nil {
		t.Fatalf("resolve method: %v", err)
	}
	ci := c.CodeItems[dex.Offset(em.CodeOff)]
	if ci == nil {
		t.Fatal("fixture built no code_item")
	}
	return r, dexIdx, method, ci
}

// buildHierarchyDex assembles a two-class dex with no methods at all:
// "Lcom/example/Base;" and "Lcom/example/Derived;" extends Base. Used by
// hierarchy tests that only need class_def_item's superclass linkage, not a
// code_item.
func buildHierarchyDex() []byte {
	buf := make([]byte, dex.HeaderSize)
	putU32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	appendU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}

	strs := []string{"Lcom/example/Base;", "Lcom/example/Derived;"}
	strDataOff := make([]uint32, len(strs))
	for i, s := range strs {
		strDataOff[i] = uint32(len(buf))
		body, count := dex.EncodeMutf8(s)
		buf = append(buf, dex.AppendUleb128(nil, uint32(count))...)
		buf = append(buf, body...)
	}

	stringIdsOff := uint32(len(buf))
	for _, off := range strDataOff {
		appendU32(off)
	}

	typeIdsOff := uint32(len(buf))
	appendU32(0) // type 0: Base
	appendU32(1) // type 1: Derived

	classDefsOff := uint32(len(buf))
	appendU32(0)                     // class_idx: Base
	appendU32(uint32(dex.AccPublic)) // access_flags
	appendU32(dex.NoIndexSentinel)   // superclass_idx: none
	appendU32(0)                     // interfaces_off
	appendU32(dex.NoIndexSentinel)   // source_file_idx
	appendU32(0)                     // annotations_off
	appendU32(0)                     // class_data_off
	appendU32(0)                     // static_values_off

	appendU32(1)                     // class_idx: Derived
	appendU32(uint32(dex.AccPublic)) // access_flags
	appendU32(0)                     // superclass_idx: Base
	appendU32(0)                     // interfaces_off
	appendU32(dex.NoIndexSentinel)   // source_file_idx
	appendU32(0)                     // annotations_off
	appendU32(0)                     // class_data_off
	appendU32(0)                     // static_values_off

	copy(buf[0:4], dex.Magic[:])
	copy(buf[4:8], []byte{'0', '3', '5', 0})
	putU32(36, dex.HeaderSize)
	putU32(40, dex.LittleEndianTag)
	putU32(56, uint32(len(strs)))
	putU32(60, stringIdsOff)
	putU32(64, 2)
	putU32(68, typeIdsOff)
	putU32(96, 2)
	putU32(100, classDefsOff)
	putU32(32, uint32(len(buf)))
	return buf
}
