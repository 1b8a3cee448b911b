// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// Format identifies the bit layout of an instruction, per the Dalvik
// executable instruction format table. The name matches the upstream
// convention: a count of 16-bit code units, a register count, then a
// letter classifying the
// operand shape (x = no explicit operand beyond registers/none, c = pool
// index, t = branch target, s/h/i/l = signed/high/int/long immediate,
// b = byte immediate).
type Format string

// Instruction formats used by the opcode table below.
const (
	Fmt10x  Format = "10x"  // op
	Fmt12x  Format = "12x"  // op vA, vB
	Fmt11n  Format = "11n"  // op vA, #+B (4-bit literal)
	Fmt11x  Format = "11x"  // op vAA
	Fmt10t  Format = "10t"  // op +AA (8-bit branch)
	Fmt20t  Format = "20t"  // op +AAAA (16-bit branch)
	Fmt22x  Format = "22x"  // op vAA, vBBBB
	Fmt21t  Format = "21t"  // op vAA, +BBBB
	Fmt21s  Format = "21s"  // op vAA, #+BBBB
	Fmt21h  Format = "21h"  // op vAA, #+BBBB0000[...]
	Fmt21c  Format = "21c"  // op vAA, pool@BBBB
	Fmt23x  Format = "23x"  // op vAA, vBB, vCC
	Fmt22b  Format = "22b"  // op vAA, vBB, #+CC
	Fmt22t  Format = "22t"  // op vA, vB, +CCCC
	Fmt22s  Format = "22s"  // op vA, vB, #+CCCC
	Fmt22c  Format = "22c"  // op vA, vB, pool@CCCC
	Fmt30t  Format = "30t"  // op +AAAAAAAA (32-bit branch)
	Fmt32x  Format = "32x"  // op vAAAA, vBBBB
	Fmt31i  Format = "31i"  // op vAA, #+BBBBBBBB
	Fmt31t  Format = "31t"  // op vAA, +BBBBBBBB (payload reference)
	Fmt31c  Format = "31c"  // op vAA, pool@BBBBBBBB
	Fmt35c  Format = "35c"  // op {vC,vD,vE,vF,vG}, pool@BBBB
	Fmt3rc  Format = "3rc"  // op {vCCCC .. vNNNN}, pool@BBBB
	Fmt45cc Format = "45cc" // op {vC..vG}, method@BBBB, proto@HHHH
	Fmt4rcc Format = "4rcc" // op {vCCCC..vNNNN}, method@BBBB, proto@HHHH
	Fmt51l  Format = "51l"  // op vAA, #+BBBBBBBBBBBBBBBB (64-bit literal)

	// Pseudo-formats for the three payload kinds, which are not ordinary
	// instructions: they are reached only via a referring
	// switch/fill-array-data instruction, never by linear decode.
	FmtPackedSwitchPayload Format = "packed-switch-payload"
	FmtSparseSwitchPayload Format = "sparse-switch-payload"
	FmtFillArrayDataPayload Format = "fill-array-data-payload"
)

// fixedSize returns the wire size in bytes (always a multiple of 2) for
// every format except the three payload pseudo-formats, whose size depends
// on their own encoded length and must be computed from the decoded
// payload instead.
func (f Format) fixedSize() (uint32, bool) {
	units := f.unitCount()
	if units == 0 {
		return 0, false
	}
	return units * 2, true
}

func (f Format) unitCount() uint32 {
	switch f {
	case Fmt10x, Fmt12x, Fmt11n, Fmt11x, Fmt10t:
		return 1
	case Fmt20t, Fmt22x, Fmt21t, Fmt21s, Fmt21h, Fmt21c, Fmt23x, Fmt22b, Fmt22t, Fmt22s, Fmt22c:
		return 2
	case Fmt30t, Fmt32x, Fmt31i, Fmt31t, Fmt31c, Fmt35c, Fmt3rc:
		return 3
	case Fmt45cc, Fmt4rcc:
		return 4
	case Fmt51l:
		return 5
	}
	return 0
}

// PoolKind identifies which pool an instruction's pool-index operand
// addresses, when its format carries one.
type PoolKind int

// Pool kinds an instruction's index operand may resolve against.
const (
	PoolNone PoolKind = iota
	PoolString
	PoolType
	PoolField
	PoolMethod
	PoolProto
	PoolCallSite
	PoolMethodHandle
)
