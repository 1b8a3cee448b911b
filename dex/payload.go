// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "encoding/binary"

// Payload identifier tags, the first code unit of each payload pseudo-instruction.
const (
	packedSwitchIdent   = 0x0100
	sparseSwitchIdent   = 0x0200
	fillArrayDataIdent  = 0x0300
)

// PackedSwitchPayload is the payload referenced by a packed-switch
// instruction: a contiguous run of keys starting at FirstKey, one target
// per key. Targets are code-unit offsets relative to the referring
// instruction's address, resolved to absolute Addr by the CFG builder.
type PackedSwitchPayload struct {
	Addr     Addr
	FirstKey int32
	Targets  []int32 // signed, in 16-bit code units, relative to the referring switch instruction
}

// Size returns the encoded byte length.
func (p PackedSwitchPayload) Size() uint32 { return 8 + uint32(len(p.Targets))*4 }

// SparseSwitchPayload is the payload referenced by a sparse-switch
// instruction: parallel key/target arrays, sorted by key on the wire.
type SparseSwitchPayload struct {
	Addr    Addr
	Keys    []int32
	Targets []int32
}

// Size returns the encoded byte length.
func (p SparseSwitchPayload) Size() uint32 { return 4 + uint32(len(p.Keys))*8 }

// FillArrayDataPayload is the payload referenced by fill-array-data: raw
// element bytes, ElementWidth bytes each.
type FillArrayDataPayload struct {
	Addr         Addr
	ElementWidth uint16
	Data         []byte // ElementWidth * element count bytes
}

// Size returns the encoded byte length, including the trailing pad byte
// needed to keep the payload an even number of bytes when ElementWidth is
// odd and the element count is odd.
func (p FillArrayDataPayload) Size() uint32 {
	n := 8 + uint32(len(p.Data))
	if n%2 != 0 {
		n++
	}
	return n
}

// DecodePackedSwitchPayload decodes the payload at byte offset off within
// buf. off must be 2-byte aligned and tagged with packedSwitchIdent.
func DecodePackedSwitchPayload(buf []byte, off uint32) (*PackedSwitchPayload, error) {
	if int(off)+8 > len(buf) {
		return nil, newParseError(ErrStructure, "packed_switch_payload", off, nil)
	}
	ident := binary.LittleEndian.Uint16(buf[off:])
	if ident != packedSwitchIdent {
		return nil, newParseError(ErrInstructionNotFound, "packed_switch_payload", off, nil)
	}
	size := binary.LittleEndian.Uint16(buf[off+2:])
	firstKey := int32(binary.LittleEndian.Uint32(buf[off+4:]))
	p := &PackedSwitchPayload{Addr: Addr(off), FirstKey: firstKey, Targets: make([]int32, size)}
	pos := off + 8
	for i := 0; i < int(size); i++ {
		if int(pos)+4 > len(buf) {
			return nil, newParseError(ErrStructure, "packed_switch_payload", pos, nil)
		}
		p.Targets[i] = int32(binary.LittleEndian.Uint32(buf[pos:]))
		pos += 4
	}
	return p, nil
}

// DecodeSparseSwitchPayload decodes the payload at byte offset off within buf.
func DecodeSparseSwitchPayload(buf []byte, off uint32) (*SparseSwitchPayload, error) {
	if int(off)+4 > len(buf) {
		return nil, newParseError(ErrStructure, "sparse_switch_payload", off, nil)
	}
	ident := binary.LittleEndian.Uint16(buf[off:])
	if ident != sparseSwitchIdent {
		return nil, newParseError(ErrInstructionNotFound, "sparse_switch_payload", off, nil)
	}
	size := binary.LittleEndian.Uint16(buf[off+2:])
	p := &SparseSwitchPayload{Addr: Addr(off), Keys: make([]int32, size), Targets: make([]int32, size)}
	pos := off + 4
	for i := 0; i < int(size); i++ {
		p.Keys[i] = int32(binary.LittleEndian.Uint32(buf[pos:]))
		pos += 4
	}
	for i := 0; i < int(size); i++ {
		p.Targets[i] = int32(binary.LittleEndian.Uint32(buf[pos:]))
		pos += 4
	}
	return p, nil
}

// DecodeFillArrayDataPayload decodes the payload at byte offset off within buf.
func DecodeFillArrayDataPayload(buf []byte, off uint32) (*FillArrayDataPayload, error) {
	if int(off)+8 > len(buf) {
		return nil, newParseError(ErrStructure, "fill_array_data_payload", off, nil)
	}
	ident := binary.LittleEndian.Uint16(buf[off:])
	if ident != fillArrayDataIdent {
		return nil, newParseError(ErrInstructionNotFound, "fill_array_data_payload", off, nil)
	}
	width := binary.LittleEndian.Uint16(buf[off+2:])
	count := binary.LittleEndian.Uint32(buf[off+4:])
	dataLen := uint32(width) * count
	start := off + 8
	if int(start)+int(dataLen) > len(buf) {
		return nil, newParseError(ErrStructure, "fill_array_data_payload", start, nil)
	}
	data := make([]byte, dataLen)
	copy(data, buf[start:start+dataLen])
	return &FillArrayDataPayload{Addr: Addr(off), ElementWidth: width, Data: data}, nil
}

// EncodePackedSwitchPayload serializes p to its wire form.
func EncodePackedSwitchPayload(p *PackedSwitchPayload) []byte {
	out := make([]byte, 8, p.Size())
	binary.LittleEndian.PutUint16(out[0:], packedSwitchIdent)
	binary.LittleEndian.PutUint16(out[2:], uint16(len(p.Targets)))
	binary.LittleEndian.PutUint32(out[4:], uint32(p.FirstKey))
	for _, t := range p.Targets {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(t))
		out = append(out, b[:]...)
	}
	return out
}

// EncodeSparseSwitchPayload serializes p to its wire form.
func EncodeSparseSwitchPayload(p *SparseSwitchPayload) []byte {
	out := make([]byte, 4, p.Size())
	binary.LittleEndian.PutUint16(out[0:], sparseSwitchIdent)
	binary.LittleEndian.PutUint16(out[2:], uint16(len(p.Keys)))
	for _, k := range p.Keys {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(k))
		out = append(out, b[:]...)
	}
	for _, t := range p.Targets {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(t))
		out = append(out, b[:]...)
	}
	return out
}

// EncodeFillArrayDataPayload serializes p to its wire form, padding to an
// even length with a trailing zero byte if needed.
func EncodeFillArrayDataPayload(p *FillArrayDataPayload) []byte {
	out := make([]byte, 8, p.Size())
	binary.LittleEndian.PutUint16(out[0:], fillArrayDataIdent)
	binary.LittleEndian.PutUint16(out[2:], p.ElementWidth)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(p.Data))/uint32(max16(p.ElementWidth, 1)))
	out = append(out, p.Data...)
	if len(out)%2 != 0 {
		out = append(out, 0)
	}
	return out
}

func max16(a, b uint16) uint16 {
	if a > b {
		return a
	}
	return b
}
