// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "testing"

func TestMutf8RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"ascii", "onCreate"},
		{"embedded-nul", "a\x00b"},
		{"two-byte", "café"},
		{"three-byte", "日本語"},
		{"supplementary", "😀"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, count := EncodeMutf8(tt.in)
			// strip the trailing NUL terminator before decoding, matching
			// how the reader locates a string_data_item's body
			got, err := DecodeMutf8(body[:len(body)-1], count)
			if err != nil {
				t.Fatalf("DecodeMutf8(%q) failed: %v", tt.in, err)
			}
			if got != tt.in {
				t.Errorf("round trip %q got %q", tt.in, got)
			}
		})
	}
}

func TestDecodeMutf8InvalidContinuation(t *testing.T) {
	_, err := DecodeMutf8([]byte{0xC0}, 1)
	if err == nil {
		t.Fatal("expected error for truncated two-byte sequence")
	}
}
