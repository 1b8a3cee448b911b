// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "testing"

func TestUleb128RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   uint32
	}{
		{"zero", 0},
		{"one-byte-max", 0x7f},
		{"two-byte-min", 0x80},
		{"mid", 0x3fff},
		{"large", 0xffffffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := AppendUleb128(nil, tt.in)
			got, n, err := ReadUleb128(buf, 0)
			if err != nil {
				t.Fatalf("ReadUleb128(%#x) failed: %v", tt.in, err)
			}
			if got != tt.in {
				t.Errorf("ReadUleb128(%#x) = %#x, want %#x", tt.in, got, tt.in)
			}
			if int(n) != len(buf) {
				t.Errorf("ReadUleb128(%#x) consumed %d bytes, want %d", tt.in, n, len(buf))
			}
			if SizeUleb128(tt.in) != len(buf) {
				t.Errorf("SizeUleb128(%#x) = %d, want %d", tt.in, SizeUleb128(tt.in), len(buf))
			}
		})
	}
}

func TestUleb128p1Absent(t *testing.T) {
	buf := AppendUleb128p1(nil, -1)
	got, _, err := ReadUleb128p1(buf, 0)
	if err != nil {
		t.Fatalf("ReadUleb128p1(-1) failed: %v", err)
	}
	if got != -1 {
		t.Errorf("ReadUleb128p1(-1) round-trip = %d, want -1", got)
	}
}

func TestSleb128RoundTrip(t *testing.T) {
	tests := []int32{0, 1, -1, 63, -64, 64, -65, 1000000, -1000000}
	for _, in := range tests {
		buf := AppendSleb128(nil, in)
		got, n, err := ReadSleb128(buf, 0)
		if err != nil {
			t.Fatalf("ReadSleb128(%d) failed: %v", in, err)
		}
		if got != in {
			t.Errorf("ReadSleb128(%d) = %d, want %d", in, got, in)
		}
		if int(n) != len(buf) {
			t.Errorf("ReadSleb128(%d) consumed %d bytes, want %d", in, n, len(buf))
		}
	}
}
