// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"strings"
	"unicode/utf16"
)

// DecodeMutf8 decodes a Modified UTF-8 byte body into the logical UTF-16
// code-unit sequence the string represents. utf16Count is the code-unit
// count recorded in the string_id_item (the item's uleb128 prefix); it is
// used only to preallocate and is not itself validated against the decoded
// length by this function (nor by the reader).
//
// Modified UTF-8 differs from standard UTF-8 in two ways: the NUL code
// point is encoded as the two-byte sequence C0 80 instead of a single zero
// byte, and supplementary characters (code points above U+FFFF) are encoded
// as a surrogate pair of 3-byte sequences rather than a single 4-byte
// sequence. Neither variant is something the standard library's utf8/utf16
// packages can decode directly, so this is hand-rolled per the wire format.
func DecodeMutf8(body []byte, utf16Count int) (string, error) {
	units := make([]uint16, 0, utf16Count)
	i := 0
	for i < len(body) {
		b0 := body[i]
		switch {
		case b0 == 0x00:
			// A raw NUL byte terminates the string body in the on-disk
			// encoding; callers pass the body without the terminator, but
			// tolerate one defensively.
			i++
		case b0&0x80 == 0x00:
			units = append(units, uint16(b0))
			i++
		case b0&0xE0 == 0xC0:
			if i+1 >= len(body) {
				return "", newParseError(ErrInvalidMutf8, "string_data_item", uint32(i), nil)
			}
			b1 := body[i+1]
			if b1&0xC0 != 0x80 {
				return "", newParseError(ErrInvalidMutf8, "string_data_item", uint32(i), nil)
			}
			cp := (uint16(b0&0x1F) << 6) | uint16(b1&0x3F)
			units = append(units, cp)
			i += 2
		case b0&0xF0 == 0xE0:
			if i+2 >= len(body) {
				return "", newParseError(ErrInvalidMutf8, "string_data_item", uint32(i), nil)
			}
			b1, b2 := body[i+1], body[i+2]
			if b1&0xC0 != 0x80 || b2&0xC0 != 0x80 {
				return "", newParseError(ErrInvalidMutf8, "string_data_item", uint32(i), nil)
			}
			cp := (uint16(b0&0x0F) << 12) | (uint16(b1&0x3F) << 6) | uint16(b2&0x3F)
			units = append(units, cp)
			i += 3
		default:
			return "", newParseError(ErrInvalidMutf8, "string_data_item", uint32(i), nil)
		}
	}
	return string(utf16.Decode(units)), nil
}

// EncodeMutf8 encodes a Go string (treated as a UTF-16 code-unit sequence)
// into its Modified UTF-8 byte body plus the NUL terminator, and returns
// the code-unit count to be stored in the owning string_id_item.
func EncodeMutf8(s string) (body []byte, utf16Count int) {
	units := utf16.Encode([]rune(s))
	var b strings.Builder
	b.Grow(len(units))
	for _, u := range units {
		switch {
		case u == 0:
			b.WriteByte(0xC0)
			b.WriteByte(0x80)
		case u <= 0x7F:
			b.WriteByte(byte(u))
		case u <= 0x7FF:
			b.WriteByte(0xC0 | byte(u>>6))
			b.WriteByte(0x80 | byte(u&0x3F))
		default:
			b.WriteByte(0xE0 | byte(u>>12))
			b.WriteByte(0x80 | byte((u>>6)&0x3F))
			b.WriteByte(0x80 | byte(u&0x3F))
		}
	}
	out := append([]byte(b.String()), 0x00)
	return out, len(units)
}
