// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// ReadUleb128 reads an unsigned LEB128 value starting at buf[off] and
// returns the value and the offset of the byte following it.
func ReadUleb128(buf []byte, off uint32) (uint32, uint32, error) {
	var result uint32
	var shift uint
	for {
		if int(off) >= len(buf) {
			return 0, off, newParseError(ErrStructure, "uleb128", off, nil)
		}
		b := buf[off]
		off++
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 35 {
			return 0, off, newParseError(ErrStructure, "uleb128", off, nil)
		}
	}
	return result, off, nil
}

// ReadUleb128p1 reads the uleb128+1 variant used for optional indices: the
// wire value is the logical value plus one, with zero meaning "absent"
// (represented here as -1).
func ReadUleb128p1(buf []byte, off uint32) (int32, uint32, error) {
	v, next, err := ReadUleb128(buf, off)
	if err != nil {
		return 0, next, err
	}
	return int32(v) - 1, next, nil
}

// ReadSleb128 reads a signed LEB128 value starting at buf[off].
func ReadSleb128(buf []byte, off uint32) (int32, uint32, error) {
	var result int32
	var shift uint
	var b byte
	for {
		if int(off) >= len(buf) {
			return 0, off, newParseError(ErrStructure, "sleb128", off, nil)
		}
		b = buf[off]
		off++
		result |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift > 35 {
			return 0, off, newParseError(ErrStructure, "sleb128", off, nil)
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, off, nil
}

// AppendUleb128 appends the unsigned LEB128 encoding of v to buf.
func AppendUleb128(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			break
		}
	}
	return buf
}

// AppendUleb128p1 appends the uleb128+1 encoding of v (v == -1 encodes as
// wire value 0, meaning "absent").
func AppendUleb128p1(buf []byte, v int32) []byte {
	return AppendUleb128(buf, uint32(v+1))
}

// AppendSleb128 appends the signed LEB128 encoding of v to buf.
func AppendSleb128(buf []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf = append(buf, b)
			break
		}
		buf = append(buf, b|0x80)
	}
	return buf
}

// SizeUleb128 returns the encoded byte length of v without allocating.
func SizeUleb128(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// SizeSleb128 returns the encoded byte length of v without allocating.
func SizeSleb128(v int32) int {
	return len(AppendSleb128(nil, v))
}
