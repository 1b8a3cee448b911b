// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"encoding/binary"
	"testing"
)

// buildMinimalDex assembles a header_item plus a string pool and type pool
// referencing it, with every other pool empty (sizes/offsets zero) and no
// map_list (MapOff left 0, which parseMapList treats as "absent"). Used to
// exercise Parse without a real classes.dex fixture, since none ships with
// this module's retrieval pack.
func buildMinimalDex(strs []string) []byte {
	buf := make([]byte, HeaderSize)

	stringDataOff := make([]uint32, len(strs))
	for i, s := range strs {
		stringDataOff[i] = uint32(len(buf))
		body, count := EncodeMutf8(s)
		buf = append(buf, AppendUleb128(nil, uint32(count))...)
		buf = append(buf, body...)
	}

	stringIdsOff := uint32(len(buf))
	for _, off := range stringDataOff {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], off)
		buf = append(buf, b[:]...)
	}

	typeIdsOff := uint32(len(buf))
	for i := range strs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(i))
		buf = append(buf, b[:]...)
	}

	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[36:], HeaderSize)
	binary.LittleEndian.PutUint32(buf[40:], LittleEndianTag)
	binary.LittleEndian.PutUint32(buf[56:], uint32(len(strs)))
	binary.LittleEndian.PutUint32(buf[60:], stringIdsOff)
	binary.LittleEndian.PutUint32(buf[64:], uint32(len(strs)))
	binary.LittleEndian.PutUint32(buf[68:], typeIdsOff)
	binary.LittleEndian.PutUint32(buf[32:], uint32(len(buf)))
	return buf
}

func TestParseMinimalDex(t *testing.T) {
	strs := []string{"Lcom/example/Foo;", "I", "V"}
	c, err := Parse(buildMinimalDex(strs))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(c.Strings) != len(strs) {
		t.Fatalf("got %d strings, want %d", len(c.Strings), len(strs))
	}
	for i, s := range strs {
		if c.Strings[i] != s {
			t.Errorf("Strings[%d] = %q, want %q", i, c.Strings[i], s)
		}
	}
	if len(c.Types) != len(strs) {
		t.Fatalf("got %d types, want %d", len(c.Types), len(strs))
	}
	desc, err := c.Types[0].DescriptorIdx.Resolve(c)
	if err != nil || desc != "Lcom/example/Foo;" {
		t.Errorf("Types[0] descriptor = (%q, %v), want Lcom/example/Foo;", desc, err)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := buildMinimalDex(nil)
	buf[0] = 'X'
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error for corrupted magic")
	}
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	if _, err := Parse(make([]byte, HeaderSize-1)); err == nil {
		t.Fatal("expected error for truncated header")
	}
}
