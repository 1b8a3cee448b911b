// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// OpInfo is the per-opcode metadata needed to decode and classify an
// instruction: mnemonic, format (hence wire size and field layout) and
// can-throw flag. Rather than one Go type per opcode variant (~230 of
// them), this is a single data table indexed by opcode byte. A single
// Instruction struct (instr.go) then carries whichever operand fields its
// format implies.
type OpInfo struct {
	Opcode   byte
	Mnemonic string
	Format   Format
	CanThrow bool
	Pool     PoolKind
}

// unusedOp marks an opcode byte with no defined meaning in any released
// Dalvik bytecode version.
func unusedOp(op byte) OpInfo {
	return OpInfo{Opcode: op, Mnemonic: "unused", Format: Fmt10x, CanThrow: false}
}

// opcodeTable is indexed by opcode byte (0x00-0xff). Built once in init().
var opcodeTable [256]OpInfo

func op(code byte, mnemonic string, format Format, canThrow bool, pool PoolKind) OpInfo {
	return OpInfo{Opcode: code, Mnemonic: mnemonic, Format: format, CanThrow: canThrow, Pool: pool}
}

func init() {
	for i := range opcodeTable {
		opcodeTable[i] = unusedOp(byte(i))
	}

	entries := []OpInfo{
		op(0x00, "nop", Fmt10x, false, PoolNone),
		op(0x01, "move", Fmt12x, false, PoolNone),
		op(0x02, "move/from16", Fmt22x, false, PoolNone),
		op(0x03, "move/16", Fmt32x, false, PoolNone),
		op(0x04, "move-wide", Fmt12x, false, PoolNone),
		op(0x05, "move-wide/from16", Fmt22x, false, PoolNone),
		op(0x06, "move-wide/16", Fmt32x, false, PoolNone),
		op(0x07, "move-object", Fmt12x, false, PoolNone),
		op(0x08, "move-object/from16", Fmt22x, false, PoolNone),
		op(0x09, "move-object/16", Fmt32x, false, PoolNone),
		op(0x0a, "move-result", Fmt11x, false, PoolNone),
		op(0x0b, "move-result-wide", Fmt11x, false, PoolNone),
		op(0x0c, "move-result-object", Fmt11x, false, PoolNone),
		op(0x0d, "move-exception", Fmt11x, false, PoolNone),
		op(0x0e, "return-void", Fmt10x, false, PoolNone),
		op(0x0f, "return", Fmt11x, false, PoolNone),
		op(0x10, "return-wide", Fmt11x, false, PoolNone),
		op(0x11, "return-object", Fmt11x, false, PoolNone),
		op(0x12, "const/4", Fmt11n, false, PoolNone),
		op(0x13, "const/16", Fmt21s, false, PoolNone),
		op(0x14, "const", Fmt31i, false, PoolNone),
		op(0x15, "const/high16", Fmt21h, false, PoolNone),
		op(0x16, "const-wide/16", Fmt21s, false, PoolNone),
		op(0x17, "const-wide/32", Fmt31i, false, PoolNone),
		op(0x18, "const-wide", Fmt51l, false, PoolNone),
		op(0x19, "const-wide/high16", Fmt21h, false, PoolNone),
		op(0x1a, "const-string", Fmt21c, true, PoolString),
		op(0x1b, "const-string/jumbo", Fmt31c, true, PoolString),
		op(0x1c, "const-class", Fmt21c, true, PoolType),
		op(0x1d, "monitor-enter", Fmt11x, true, PoolNone),
		op(0x1e, "monitor-exit", Fmt11x, true, PoolNone),
		op(0x1f, "check-cast", Fmt21c, true, PoolType),
		op(0x20, "instance-of", Fmt22c, true, PoolType),
		op(0x21, "array-length", Fmt12x, true, PoolNone),
		op(0x22, "new-instance", Fmt21c, true, PoolType),
		op(0x23, "new-array", Fmt22c, true, PoolType),
		op(0x24, "filled-new-array", Fmt35c, true, PoolType),
		op(0x25, "filled-new-array/range", Fmt3rc, true, PoolType),
		op(0x26, "fill-array-data", Fmt31t, false, PoolNone),
		op(0x27, "throw", Fmt11x, true, PoolNone),
		op(0x28, "goto", Fmt10t, false, PoolNone),
		op(0x29, "goto/16", Fmt20t, false, PoolNone),
		op(0x2a, "goto/32", Fmt30t, false, PoolNone),
		op(0x2b, "packed-switch", Fmt31t, false, PoolNone),
		op(0x2c, "sparse-switch", Fmt31t, false, PoolNone),
		op(0x2d, "cmpl-float", Fmt23x, false, PoolNone),
		op(0x2e, "cmpg-float", Fmt23x, false, PoolNone),
		op(0x2f, "cmpl-double", Fmt23x, false, PoolNone),
		op(0x30, "cmpg-double", Fmt23x, false, PoolNone),
		op(0x31, "cmp-long", Fmt23x, false, PoolNone),
		op(0x32, "if-eq", Fmt22t, false, PoolNone),
		op(0x33, "if-ne", Fmt22t, false, PoolNone),
		op(0x34, "if-lt", Fmt22t, false, PoolNone),
		op(0x35, "if-ge", Fmt22t, false, PoolNone),
		op(0x36, "if-gt", Fmt22t, false, PoolNone),
		op(0x37, "if-le", Fmt22t, false, PoolNone),
		op(0x38, "if-eqz", Fmt21t, false, PoolNone),
		op(0x39, "if-nez", Fmt21t, false, PoolNone),
		op(0x3a, "if-ltz", Fmt21t, false, PoolNone),
		op(0x3b, "if-gez", Fmt21t, false, PoolNone),
		op(0x3c, "if-gtz", Fmt21t, false, PoolNone),
		op(0x3d, "if-lez", Fmt21t, false, PoolNone),
		// 0x3e-0x43 unused.
		op(0x44, "aget", Fmt23x, true, PoolNone),
		op(0x45, "aget-wide", Fmt23x, true, PoolNone),
		op(0x46, "aget-object", Fmt23x, true, PoolNone),
		op(0x47, "aget-boolean", Fmt23x, true, PoolNone),
		op(0x48, "aget-byte", Fmt23x, true, PoolNone),
		op(0x49, "aget-char", Fmt23x, true, PoolNone),
		op(0x4a, "aget-short", Fmt23x, true, PoolNone),
		op(0x4b, "aput", Fmt23x, true, PoolNone),
		op(0x4c, "aput-wide", Fmt23x, true, PoolNone),
		op(0x4d, "aput-object", Fmt23x, true, PoolNone),
		op(0x4e, "aput-boolean", Fmt23x, true, PoolNone),
		op(0x4f, "aput-byte", Fmt23x, true, PoolNone),
		op(0x50, "aput-char", Fmt23x, true, PoolNone),
		op(0x51, "aput-short", Fmt23x, true, PoolNone),
		op(0x52, "iget", Fmt22c, true, PoolField),
		op(0x53, "iget-wide", Fmt22c, true, PoolField),
		op(0x54, "iget-object", Fmt22c, true, PoolField),
		op(0x55, "iget-boolean", Fmt22c, true, PoolField),
		op(0x56, "iget-byte", Fmt22c, true, PoolField),
		op(0x57, "iget-char", Fmt22c, true, PoolField),
		op(0x58, "iget-short", Fmt22c, true, PoolField),
		op(0x59, "iput", Fmt22c, true, PoolField),
		op(0x5a, "iput-wide", Fmt22c, true, PoolField),
		op(0x5b, "iput-object", Fmt22c, true, PoolField),
		op(0x5c, "iput-boolean", Fmt22c, true, PoolField),
		op(0x5d, "iput-byte", Fmt22c, true, PoolField),
		op(0x5e, "iput-char", Fmt22c, true, PoolField),
		op(0x5f, "iput-short", Fmt22c, true, PoolField),
		op(0x60, "sget", Fmt21c, true, PoolField),
		op(0x61, "sget-wide", Fmt21c, true, PoolField),
		op(0x62, "sget-object", Fmt21c, true, PoolField),
		op(0x63, "sget-boolean", Fmt21c, true, PoolField),
		op(0x64, "sget-byte", Fmt21c, true, PoolField),
		op(0x65, "sget-char", Fmt21c, true, PoolField),
		op(0x66, "sget-short", Fmt21c, true, PoolField),
		op(0x67, "sput", Fmt21c, true, PoolField),
		op(0x68, "sput-wide", Fmt21c, true, PoolField),
		op(0x69, "sput-object", Fmt21c, true, PoolField),
		op(0x6a, "sput-boolean", Fmt21c, true, PoolField),
		op(0x6b, "sput-byte", Fmt21c, true, PoolField),
		op(0x6c, "sput-char", Fmt21c, true, PoolField),
		op(0x6d, "sput-short", Fmt21c, true, PoolField),
		op(0x6e, "invoke-virtual", Fmt35c, true, PoolMethod),
		op(0x6f, "invoke-super", Fmt35c, true, PoolMethod),
		op(0x70, "invoke-direct", Fmt35c, true, PoolMethod),
		op(0x71, "invoke-static", Fmt35c, true, PoolMethod),
		op(0x72, "invoke-interface", Fmt35c, true, PoolMethod),
		// 0x73 unused.
		op(0x74, "invoke-virtual/range", Fmt3rc, true, PoolMethod),
		op(0x75, "invoke-super/range", Fmt3rc, true, PoolMethod),
		op(0x76, "invoke-direct/range", Fmt3rc, true, PoolMethod),
		op(0x77, "invoke-static/range", Fmt3rc, true, PoolMethod),
		op(0x78, "invoke-interface/range", Fmt3rc, true, PoolMethod),
		// 0x79-0x7a unused.
		op(0x7b, "neg-int", Fmt12x, false, PoolNone),
		op(0x7c, "not-int", Fmt12x, false, PoolNone),
		op(0x7d, "neg-long", Fmt12x, false, PoolNone),
		op(0x7e, "not-long", Fmt12x, false, PoolNone),
		op(0x7f, "neg-float", Fmt12x, false, PoolNone),
		op(0x80, "neg-double", Fmt12x, false, PoolNone),
		op(0x81, "int-to-long", Fmt12x, false, PoolNone),
		op(0x82, "int-to-float", Fmt12x, false, PoolNone),
		op(0x83, "int-to-double", Fmt12x, false, PoolNone),
		op(0x84, "long-to-int", Fmt12x, false, PoolNone),
		op(0x85, "long-to-float", Fmt12x, false, PoolNone),
		op(0x86, "long-to-double", Fmt12x, false, PoolNone),
		op(0x87, "float-to-int", Fmt12x, false, PoolNone),
		op(0x88, "float-to-long", Fmt12x, false, PoolNone),
		op(0x89, "float-to-double", Fmt12x, false, PoolNone),
		op(0x8a, "double-to-int", Fmt12x, false, PoolNone),
		op(0x8b, "double-to-long", Fmt12x, false, PoolNone),
		op(0x8c, "double-to-float", Fmt12x, false, PoolNone),
		op(0x8d, "int-to-byte", Fmt12x, false, PoolNone),
		op(0x8e, "int-to-char", Fmt12x, false, PoolNone),
		op(0x8f, "int-to-short", Fmt12x, false, PoolNone),
		op(0x90, "add-int", Fmt23x, false, PoolNone),
		op(0x91, "sub-int", Fmt23x, false, PoolNone),
		op(0x92, "mul-int", Fmt23x, false, PoolNone),
		op(0x93, "div-int", Fmt23x, true, PoolNone),
		op(0x94, "rem-int", Fmt23x, true, PoolNone),
		op(0x95, "and-int", Fmt23x, false, PoolNone),
		op(0x96, "or-int", Fmt23x, false, PoolNone),
		op(0x97, "xor-int", Fmt23x, false, PoolNone),
		op(0x98, "shl-int", Fmt23x, false, PoolNone),
		op(0x99, "shr-int", Fmt23x, false, PoolNone),
		op(0x9a, "ushr-int", Fmt23x, false, PoolNone),
		op(0x9b, "add-long", Fmt23x, false, PoolNone),
		op(0x9c, "sub-long", Fmt23x, false, PoolNone),
		op(0x9d, "mul-long", Fmt23x, false, PoolNone),
		op(0x9e, "div-long", Fmt23x, true, PoolNone),
		op(0x9f, "rem-long", Fmt23x, true, PoolNone),
		op(0xa0, "and-long", Fmt23x, false, PoolNone),
		op(0xa1, "or-long", Fmt23x, false, PoolNone),
		op(0xa2, "xor-long", Fmt23x, false, PoolNone),
		op(0xa3, "shl-long", Fmt23x, false, PoolNone),
		op(0xa4, "shr-long", Fmt23x, false, PoolNone),
		op(0xa5, "ushr-long", Fmt23x, false, PoolNone),
		op(0xa6, "add-float", Fmt23x, false, PoolNone),
		op(0xa7, "sub-float", Fmt23x, false, PoolNone),
		op(0xa8, "mul-float", Fmt23x, false, PoolNone),
		op(0xa9, "div-float", Fmt23x, false, PoolNone),
		op(0xaa, "rem-float", Fmt23x, false, PoolNone),
		op(0xab, "add-double", Fmt23x, false, PoolNone),
		op(0xac, "sub-double", Fmt23x, false, PoolNone),
		op(0xad, "mul-double", Fmt23x, false, PoolNone),
		op(0xae, "div-double", Fmt23x, false, PoolNone),
		op(0xaf, "rem-double", Fmt23x, false, PoolNone),
		op(0xb0, "add-int/2addr", Fmt12x, false, PoolNone),
		op(0xb1, "sub-int/2addr", Fmt12x, false, PoolNone),
		op(0xb2, "mul-int/2addr", Fmt12x, false, PoolNone),
		op(0xb3, "div-int/2addr", Fmt12x, true, PoolNone),
		op(0xb4, "rem-int/2addr", Fmt12x, true, PoolNone),
		op(0xb5, "and-int/2addr", Fmt12x, false, PoolNone),
		op(0xb6, "or-int/2addr", Fmt12x, false, PoolNone),
		op(0xb7, "xor-int/2addr", Fmt12x, false, PoolNone),
		op(0xb8, "shl-int/2addr", Fmt12x, false, PoolNone),
		op(0xb9, "shr-int/2addr", Fmt12x, false, PoolNone),
		op(0xba, "ushr-int/2addr", Fmt12x, false, PoolNone),
		op(0xbb, "add-long/2addr", Fmt12x, false, PoolNone),
		op(0xbc, "sub-long/2addr", Fmt12x, false, PoolNone),
		op(0xbd, "mul-long/2addr", Fmt12x, false, PoolNone),
		op(0xbe, "div-long/2addr", Fmt12x, true, PoolNone),
		op(0xbf, "rem-long/2addr", Fmt12x, true, PoolNone),
		op(0xc0, "and-long/2addr", Fmt12x, false, PoolNone),
		op(0xc1, "or-long/2addr", Fmt12x, false, PoolNone),
		op(0xc2, "xor-long/2addr", Fmt12x, false, PoolNone),
		op(0xc3, "shl-long/2addr", Fmt12x, false, PoolNone),
		op(0xc4, "shr-long/2addr", Fmt12x, false, PoolNone),
		op(0xc5, "ushr-long/2addr", Fmt12x, false, PoolNone),
		op(0xc6, "add-float/2addr", Fmt12x, false, PoolNone),
		op(0xc7, "sub-float/2addr", Fmt12x, false, PoolNone),
		op(0xc8, "mul-float/2addr", Fmt12x, false, PoolNone),
		op(0xc9, "div-float/2addr", Fmt12x, false, PoolNone),
		op(0xca, "rem-float/2addr", Fmt12x, false, PoolNone),
		op(0xcb, "add-double/2addr", Fmt12x, false, PoolNone),
		op(0xcc, "sub-double/2addr", Fmt12x, false, PoolNone),
		op(0xcd, "mul-double/2addr", Fmt12x, false, PoolNone),
		op(0xce, "div-double/2addr", Fmt12x, false, PoolNone),
		op(0xcf, "rem-double/2addr", Fmt12x, false, PoolNone),
		op(0xd0, "add-int/lit16", Fmt22s, false, PoolNone),
		op(0xd1, "rsub-int", Fmt22s, false, PoolNone),
		op(0xd2, "mul-int/lit16", Fmt22s, false, PoolNone),
		op(0xd3, "div-int/lit16", Fmt22s, true, PoolNone),
		op(0xd4, "rem-int/lit16", Fmt22s, true, PoolNone),
		op(0xd5, "and-int/lit16", Fmt22s, false, PoolNone),
		op(0xd6, "or-int/lit16", Fmt22s, false, PoolNone),
		op(0xd7, "xor-int/lit16", Fmt22s, false, PoolNone),
		op(0xd8, "add-int/lit8", Fmt22b, false, PoolNone),
		op(0xd9, "rsub-int/lit8", Fmt22b, false, PoolNone),
		op(0xda, "mul-int/lit8", Fmt22b, false, PoolNone),
		op(0xdb, "div-int/lit8", Fmt22b, true, PoolNone),
		op(0xdc, "rem-int/lit8", Fmt22b, true, PoolNone),
		op(0xdd, "and-int/lit8", Fmt22b, false, PoolNone),
		op(0xde, "or-int/lit8", Fmt22b, false, PoolNone),
		op(0xdf, "xor-int/lit8", Fmt22b, false, PoolNone),
		op(0xe0, "shl-int/lit8", Fmt22b, false, PoolNone),
		op(0xe1, "shr-int/lit8", Fmt22b, false, PoolNone),
		op(0xe2, "ushr-int/lit8", Fmt22b, false, PoolNone),
		// 0xe3-0xf9 unused.
		op(0xfa, "invoke-polymorphic", Fmt45cc, true, PoolMethod),
		op(0xfb, "invoke-polymorphic/range", Fmt4rcc, true, PoolMethod),
		op(0xfc, "invoke-custom", Fmt35c, true, PoolCallSite),
		op(0xfd, "invoke-custom/range", Fmt3rc, true, PoolCallSite),
		op(0xfe, "const-method-handle", Fmt21c, false, PoolMethodHandle),
		op(0xff, "const-method-type", Fmt21c, false, PoolProto),
	}

	for _, e := range entries {
		opcodeTable[e.Opcode] = e
	}
}

// LookupOpcode returns the metadata for opcode byte b.
func LookupOpcode(b byte) OpInfo { return opcodeTable[b] }
