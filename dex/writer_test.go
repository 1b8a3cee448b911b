// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "testing"

func TestWriteParseRoundTrip(t *testing.T) {
	strs := []string{"Lcom/example/Foo;", "I", "V", "café"}
	c, err := Parse(buildMinimalDex(strs))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out, err := c.Write(true)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	c2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse of written dex failed: %v", err)
	}

	if len(c2.Strings) != len(strs) {
		t.Fatalf("got %d strings after round trip, want %d", len(c2.Strings), len(strs))
	}
	for i, s := range strs {
		if c2.Strings[i] != s {
			t.Errorf("Strings[%d] = %q, want %q", i, c2.Strings[i], s)
		}
	}
	if len(c2.Types) != len(strs) {
		t.Fatalf("got %d types after round trip, want %d", len(c2.Types), len(strs))
	}

	if c2.Header.Checksum == 0 {
		t.Error("recomputeChecksums=true left Checksum zero")
	}
	if int(c2.Header.FileSize) != len(out) {
		t.Errorf("FileSize = %d, want %d", c2.Header.FileSize, len(out))
	}
}

func TestWriteEmptyContainer(t *testing.T) {
	c := NewContainer()
	copy(c.Header.Magic[:4], Magic[:])
	copy(c.Header.Magic[4:], []byte{'0', '3', '5', 0})

	out, err := c.Write(true)
	if err != nil {
		t.Fatalf("Write of empty container failed: %v", err)
	}
	if _, err := Parse(out); err != nil {
		t.Fatalf("re-Parse of empty written dex failed: %v", err)
	}
}
