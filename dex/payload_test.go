// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"bytes"
	"testing"
)

// TestPackedSwitchPayloadRoundTrip encodes a packed-switch payload, decodes
// it back out of the wire bytes at a non-zero offset (mimicking its actual
// placement after the switch instruction that references it), and checks
// the re-encoded bytes match byte for byte.
func TestPackedSwitchPayloadRoundTrip(t *testing.T) {
	want := &PackedSwitchPayload{
		FirstKey: -3,
		Targets:  []int32{4, 10, -6, 0},
	}
	encoded := EncodePackedSwitchPayload(want)
	if uint32(len(encoded)) != want.Size() {
		t.Fatalf("encoded %d bytes, Size() = %d", len(encoded), want.Size())
	}

	// place the payload after some leading filler bytes, as it would sit
	// after the switch instruction in a real instruction stream.
	buf := append([]byte{0, 0, 0, 0}, encoded...)

	got, err := DecodePackedSwitchPayload(buf, 4)
	if err != nil {
		t.Fatalf("DecodePackedSwitchPayload: %v", err)
	}
	if got.FirstKey != want.FirstKey {
		t.Errorf("first key: got %d, want %d", got.FirstKey, want.FirstKey)
	}
	if len(got.Targets) != len(want.Targets) {
		t.Fatalf("targets: got %d entries, want %d", len(got.Targets), len(want.Targets))
	}
	for i := range want.Targets {
		if got.Targets[i] != want.Targets[i] {
			t.Errorf("target[%d]: got %d, want %d", i, got.Targets[i], want.Targets[i])
		}
	}

	reencoded := EncodePackedSwitchPayload(got)
	if !bytes.Equal(reencoded, encoded) {
		t.Errorf("re-encoded bytes differ:\ngot  %x\nwant %x", reencoded, encoded)
	}
}

// TestSparseSwitchPayloadRoundTrip mirrors the packed-switch case for the
// key/target-pair encoding.
func TestSparseSwitchPayloadRoundTrip(t *testing.T) {
	want := &SparseSwitchPayload{
		Keys:    []int32{-100, 0, 50},
		Targets: []int32{8, 16, 24},
	}
	encoded := EncodeSparseSwitchPayload(want)
	if uint32(len(encoded)) != want.Size() {
		t.Fatalf("encoded %d bytes, Size() = %d", len(encoded), want.Size())
	}

	got, err := DecodeSparseSwitchPayload(encoded, 0)
	if err != nil {
		t.Fatalf("DecodeSparseSwitchPayload: %v", err)
	}
	reencoded := EncodeSparseSwitchPayload(got)
	if !bytes.Equal(reencoded, encoded) {
		t.Errorf("re-encoded bytes differ:\ngot  %x\nwant %x", reencoded, encoded)
	}
}

// TestFillArrayDataPayloadRoundTripOddPad exercises the trailing pad byte
// EncodeFillArrayDataPayload adds when ElementWidth*count is odd.
func TestFillArrayDataPayloadRoundTripOddPad(t *testing.T) {
	want := &FillArrayDataPayload{ElementWidth: 1, Data: []byte{1, 2, 3}}
	encoded := EncodeFillArrayDataPayload(want)
	if uint32(len(encoded)) != want.Size() {
		t.Fatalf("encoded %d bytes, Size() = %d", len(encoded), want.Size())
	}
	if len(encoded)%2 != 0 {
		t.Fatalf("encoded length %d is not even", len(encoded))
	}

	got, err := DecodeFillArrayDataPayload(encoded, 0)
	if err != nil {
		t.Fatalf("DecodeFillArrayDataPayload: %v", err)
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Errorf("data: got %v, want %v", got.Data, want.Data)
	}
}
