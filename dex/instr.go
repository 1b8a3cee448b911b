// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "encoding/binary"

// Instruction is a single decoded Dalvik instruction, labeled with its own
// byte address within the owning code item. Which of the fields below are
// meaningful is determined by Op.Format.
type Instruction struct {
	Addr Addr
	Op   OpInfo

	// Regs holds the instruction's register operands in the order they
	// are documented for its format (e.g. 23x: [vAA, vBB, vCC];
	// 22c: [vA, vB]; 35c/45cc: [vC, vD, vE, vF, vG] truncated to ArgCount).
	Regs []uint16

	// RangeStart/RangeCount describe a register range for 3rc/4rcc
	// formats: registers RangeStart .. RangeStart+RangeCount-1.
	RangeStart uint16
	RangeCount uint16

	// ArgCount is the invoke argument count for 35c/45cc (0-5).
	ArgCount uint16

	// Lit carries the instruction's immediate operand for formats that
	// have one (11n, 21s, 21h, 21t's sibling 22s/22b, 31i, 31t's raw
	// offset is kept separately in BranchOffset, 51l).
	Lit int64

	// BranchOffset is the signed branch/payload-reference displacement in
	// bytes (already scaled from the wire's 16-bit-unit count) for 10t,
	// 20t, 21t, 22t, 30t, 31t formats.
	BranchOffset int32

	// PoolIndex is the index operand for c/cc formats, meaningful against
	// Op.Pool.
	PoolIndex uint32

	// ProtoIndex is the second index operand of 45cc/4rcc (the call-site
	// prototype).
	ProtoIndex uint32
}

// Mnemonic returns the instruction's opcode mnemonic.
func (i *Instruction) Mnemonic() string { return i.Op.Mnemonic }

// CanThrow reports whether this opcode may raise an exception.
func (i *Instruction) CanThrow() bool { return i.Op.CanThrow }

// Size returns the instruction's wire size in bytes.
func (i *Instruction) Size() uint32 {
	sz, _ := i.Op.Format.fixedSize()
	return sz
}

// NextAddr returns the address of the instruction immediately following
// this one in the code stream.
func (i *Instruction) NextAddr() Addr {
	return i.Addr.Offset(int32(i.Size()))
}

func u16(buf []byte, off uint32) uint16 { return binary.LittleEndian.Uint16(buf[off:]) }
func u32(buf []byte, off uint32) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

// DecodeInstruction decodes one instruction from buf at byte offset addr.
// buf is the full code_item instruction stream (insns); addr must be
// 2-byte aligned. Returns a BadInstructionSize ParseError if the format's
// declared size would run past the end of buf.
func DecodeInstruction(buf []byte, addr Addr) (*Instruction, error) {
	off := uint32(addr)
	if int(off) >= len(buf) {
		return nil, newParseError(ErrInstructionNotFound, "instruction", off, nil)
	}
	opByte := buf[off]
	info := LookupOpcode(opByte)
	size, _ := info.Format.fixedSize()
	if int(off)+int(size) > len(buf) {
		return nil, newParseError(ErrBadInstructionSize, info.Mnemonic, off, nil)
	}

	inst := &Instruction{Addr: addr, Op: info}
	unit0 := u16(buf, off)
	hi0 := byte(unit0 >> 8)

	switch info.Format {
	case Fmt10x:
		// no operands

	case Fmt12x:
		inst.Regs = []uint16{uint16(hi0 & 0x0F), uint16(hi0 >> 4)}

	case Fmt11n:
		a := uint16(hi0 & 0x0F)
		lit := int8(hi0) >> 4 // sign-extend the top nibble
		inst.Regs = []uint16{a}
		inst.Lit = int64(lit)

	case Fmt11x:
		inst.Regs = []uint16{uint16(hi0)}

	case Fmt10t:
		inst.BranchOffset = int32(int8(hi0)) * 2

	case Fmt20t:
		inst.BranchOffset = int32(int16(u16(buf, off+2))) * 2

	case Fmt22x:
		inst.Regs = []uint16{uint16(hi0), u16(buf, off+2)}

	case Fmt21t:
		inst.Regs = []uint16{uint16(hi0)}
		inst.BranchOffset = int32(int16(u16(buf, off+2))) * 2

	case Fmt21s:
		inst.Regs = []uint16{uint16(hi0)}
		inst.Lit = int64(int16(u16(buf, off+2)))

	case Fmt21h:
		inst.Regs = []uint16{uint16(hi0)}
		v := int16(u16(buf, off+2))
		if info.Mnemonic == "const-wide/high16" {
			inst.Lit = int64(v) << 48
		} else {
			inst.Lit = int64(int32(v) << 16)
		}

	case Fmt21c:
		inst.Regs = []uint16{uint16(hi0)}
		inst.PoolIndex = uint32(u16(buf, off+2))

	case Fmt23x:
		unit1 := u16(buf, off+2)
		inst.Regs = []uint16{uint16(hi0), uint16(unit1 & 0xFF), uint16(unit1 >> 8)}

	case Fmt22b:
		unit1 := u16(buf, off+2)
		inst.Regs = []uint16{uint16(hi0), uint16(unit1 & 0xFF)}
		inst.Lit = int64(int8(unit1 >> 8))

	case Fmt22t:
		a := uint16(hi0 & 0x0F)
		b := uint16(hi0 >> 4)
		inst.Regs = []uint16{a, b}
		inst.BranchOffset = int32(int16(u16(buf, off+2))) * 2

	case Fmt22s:
		a := uint16(hi0 & 0x0F)
		b := uint16(hi0 >> 4)
		inst.Regs = []uint16{a, b}
		inst.Lit = int64(int16(u16(buf, off+2)))

	case Fmt22c:
		a := uint16(hi0 & 0x0F)
		b := uint16(hi0 >> 4)
		inst.Regs = []uint16{a, b}
		inst.PoolIndex = uint32(u16(buf, off+2))

	case Fmt30t:
		lo := u16(buf, off+2)
		hi := u16(buf, off+4)
		inst.BranchOffset = int32(uint32(lo)|uint32(hi)<<16) * 2

	case Fmt32x:
		inst.Regs = []uint16{u16(buf, off+2), u16(buf, off+4)}

	case Fmt31i:
		inst.Regs = []uint16{uint16(hi0)}
		lo := u16(buf, off+2)
		hi := u16(buf, off+4)
		inst.Lit = int64(int32(uint32(lo) | uint32(hi)<<16))

	case Fmt31t:
		inst.Regs = []uint16{uint16(hi0)}
		lo := u16(buf, off+2)
		hi := u16(buf, off+4)
		inst.BranchOffset = int32(uint32(lo)|uint32(hi)<<16) * 2

	case Fmt31c:
		inst.Regs = []uint16{uint16(hi0)}
		lo := u16(buf, off+2)
		hi := u16(buf, off+4)
		inst.PoolIndex = uint32(lo) | uint32(hi)<<16

	case Fmt35c:
		argCount := uint16(hi0 >> 4)
		g := uint16(hi0 & 0x0F)
		poolIdx := u16(buf, off+2)
		fedc := u16(buf, off+4)
		c := fedc & 0x0F
		d := (fedc >> 4) & 0x0F
		e := (fedc >> 8) & 0x0F
		f := (fedc >> 12) & 0x0F
		inst.ArgCount = argCount
		inst.PoolIndex = uint32(poolIdx)
		inst.Regs = []uint16{c, d, e, f, g}[:argCount]

	case Fmt3rc:
		count := uint16(hi0)
		poolIdx := u16(buf, off+2)
		first := u16(buf, off+4)
		inst.RangeStart = first
		inst.RangeCount = count
		inst.PoolIndex = uint32(poolIdx)

	case Fmt45cc:
		argCount := uint16(hi0 >> 4)
		g := uint16(hi0 & 0x0F)
		methodIdx := u16(buf, off+2)
		fedc := u16(buf, off+4)
		c := fedc & 0x0F
		d := (fedc >> 4) & 0x0F
		e := (fedc >> 8) & 0x0F
		f := (fedc >> 12) & 0x0F
		protoIdx := u16(buf, off+6)
		inst.ArgCount = argCount
		inst.PoolIndex = uint32(methodIdx)
		inst.ProtoIndex = uint32(protoIdx)
		inst.Regs = []uint16{c, d, e, f, g}[:argCount]

	case Fmt4rcc:
		count := uint16(hi0)
		methodIdx := u16(buf, off+2)
		first := u16(buf, off+4)
		protoIdx := u16(buf, off+6)
		inst.RangeStart = first
		inst.RangeCount = count
		inst.PoolIndex = uint32(methodIdx)
		inst.ProtoIndex = uint32(protoIdx)

	case Fmt51l:
		inst.Regs = []uint16{uint16(hi0)}
		var lit uint64
		for i := 0; i < 4; i++ {
			lit |= uint64(u16(buf, off+2+uint32(i)*2)) << (16 * i)
		}
		inst.Lit = int64(lit)

	default:
		return nil, newParseError(ErrBadInstructionSize, info.Mnemonic, off, nil)
	}

	return inst, nil
}

// EncodeInstruction serializes inst back to its wire form. The caller is
// responsible for placing the result at inst.Addr within the code stream.
func EncodeInstruction(inst *Instruction) []byte {
	size := inst.Size()
	out := make([]byte, size)
	out[0] = inst.Op.Opcode

	switch inst.Op.Format {
	case Fmt10x:

	case Fmt12x:
		out[1] = byte(inst.Regs[0]&0x0F) | byte(inst.Regs[1]<<4)

	case Fmt11n:
		out[1] = byte(inst.Regs[0]&0x0F) | (byte(inst.Lit&0x0F) << 4)

	case Fmt11x:
		out[1] = byte(inst.Regs[0])

	case Fmt10t:
		out[1] = byte(int8(inst.BranchOffset / 2))

	case Fmt20t:
		binary.LittleEndian.PutUint16(out[2:], uint16(int16(inst.BranchOffset/2)))

	case Fmt22x:
		out[1] = byte(inst.Regs[0])
		binary.LittleEndian.PutUint16(out[2:], inst.Regs[1])

	case Fmt21t:
		out[1] = byte(inst.Regs[0])
		binary.LittleEndian.PutUint16(out[2:], uint16(int16(inst.BranchOffset/2)))

	case Fmt21s:
		out[1] = byte(inst.Regs[0])
		binary.LittleEndian.PutUint16(out[2:], uint16(int16(inst.Lit)))

	case Fmt21h:
		out[1] = byte(inst.Regs[0])
		if inst.Op.Mnemonic == "const-wide/high16" {
			binary.LittleEndian.PutUint16(out[2:], uint16(inst.Lit>>48))
		} else {
			binary.LittleEndian.PutUint16(out[2:], uint16(inst.Lit>>16))
		}

	case Fmt21c:
		out[1] = byte(inst.Regs[0])
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.PoolIndex))

	case Fmt23x:
		out[1] = byte(inst.Regs[0])
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.Regs[1])|uint16(inst.Regs[2])<<8)

	case Fmt22b:
		out[1] = byte(inst.Regs[0])
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.Regs[1])|uint16(byte(inst.Lit))<<8)

	case Fmt22t:
		out[1] = byte(inst.Regs[0]&0x0F) | byte(inst.Regs[1]<<4)
		binary.LittleEndian.PutUint16(out[2:], uint16(int16(inst.BranchOffset/2)))

	case Fmt22s:
		out[1] = byte(inst.Regs[0]&0x0F) | byte(inst.Regs[1]<<4)
		binary.LittleEndian.PutUint16(out[2:], uint16(int16(inst.Lit)))

	case Fmt22c:
		out[1] = byte(inst.Regs[0]&0x0F) | byte(inst.Regs[1]<<4)
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.PoolIndex))

	case Fmt30t:
		v := uint32(inst.BranchOffset / 2)
		binary.LittleEndian.PutUint16(out[2:], uint16(v))
		binary.LittleEndian.PutUint16(out[4:], uint16(v>>16))

	case Fmt32x:
		binary.LittleEndian.PutUint16(out[2:], inst.Regs[0])
		binary.LittleEndian.PutUint16(out[4:], inst.Regs[1])

	case Fmt31i:
		out[1] = byte(inst.Regs[0])
		v := uint32(inst.Lit)
		binary.LittleEndian.PutUint16(out[2:], uint16(v))
		binary.LittleEndian.PutUint16(out[4:], uint16(v>>16))

	case Fmt31t:
		out[1] = byte(inst.Regs[0])
		v := uint32(inst.BranchOffset / 2)
		binary.LittleEndian.PutUint16(out[2:], uint16(v))
		binary.LittleEndian.PutUint16(out[4:], uint16(v>>16))

	case Fmt31c:
		out[1] = byte(inst.Regs[0])
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.PoolIndex))
		binary.LittleEndian.PutUint16(out[4:], uint16(inst.PoolIndex>>16))

	case Fmt35c:
		regs := append([]uint16{0, 0, 0, 0, 0}, inst.Regs...)[:5]
		if len(inst.Regs) < 5 {
			copy(regs, inst.Regs)
		}
		c, d, e, f, g := regs[0], regs[1], regs[2], regs[3], regs[4]
		out[1] = byte(g&0x0F) | byte(inst.ArgCount<<4)
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.PoolIndex))
		binary.LittleEndian.PutUint16(out[4:], c|d<<4|e<<8|f<<12)

	case Fmt3rc:
		out[1] = byte(inst.RangeCount)
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.PoolIndex))
		binary.LittleEndian.PutUint16(out[4:], inst.RangeStart)

	case Fmt45cc:
		regs := make([]uint16, 5)
		copy(regs, inst.Regs)
		c, d, e, f, g := regs[0], regs[1], regs[2], regs[3], regs[4]
		out[1] = byte(g&0x0F) | byte(inst.ArgCount<<4)
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.PoolIndex))
		binary.LittleEndian.PutUint16(out[4:], c|d<<4|e<<8|f<<12)
		binary.LittleEndian.PutUint16(out[6:], uint16(inst.ProtoIndex))

	case Fmt4rcc:
		out[1] = byte(inst.RangeCount)
		binary.LittleEndian.PutUint16(out[2:], uint16(inst.PoolIndex))
		binary.LittleEndian.PutUint16(out[4:], inst.RangeStart)
		binary.LittleEndian.PutUint16(out[6:], uint16(inst.ProtoIndex))

	case Fmt51l:
		out[1] = byte(inst.Regs[0])
		v := uint64(inst.Lit)
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint16(out[2+i*2:], uint16(v>>(16*i)))
		}
	}

	return out
}

// PatchInstructions replaces the instructions at [start, end) of a code
// item's instruction stream with a new sequence. The new sequence must fit
// within the old span so all other intra-method addresses are preserved;
// the remainder is padded with nop.
func PatchInstructions(buf []byte, start, end uint32, replacement []*Instruction) ([]byte, error) {
	oldSpan := end - start
	var encoded []byte
	for _, inst := range replacement {
		encoded = append(encoded, EncodeInstruction(inst)...)
	}
	if uint32(len(encoded)) > oldSpan {
		return nil, newParseError(ErrBadInstructionSize, "patch", start, nil)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	copy(out[start:], encoded)
	for i := start + uint32(len(encoded)); i < end; i += 2 {
		binary.LittleEndian.PutUint16(out[i:], 0) // nop
	}
	return out, nil
}
