// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apksig

import (
	"errors"
	"testing"
)

func TestParseSignerBlockMalformed(t *testing.T) {
	_, err := ParseSignerBlock([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for non-DER input")
	}
	var apkErr *Error
	if !errors.As(err, &apkErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apkErr.Kind != ErrMalformedBlock {
		t.Errorf("Kind = %v, want ErrMalformedBlock", apkErr.Kind)
	}
}
