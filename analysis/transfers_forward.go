// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"

	"droidworks/dex"
)

func ensureReg(state *RegState, reg uint16) {
	if int(reg) >= len(state.Regs) {
		grown := make([]Type, reg+1)
		copy(grown, state.Regs)
		for i := len(state.Regs); i < len(grown); i++ {
			grown[i] = TypeTop
		}
		state.Regs = grown
	}
}

func setReg(state *RegState, reg uint16, t Type) {
	ensureReg(state, reg)
	state.Regs[reg] = t
}

func getReg(state RegState, reg uint16) Type {
	if int(reg) >= len(state.Regs) {
		return TypeTop
	}
	return state.Regs[reg]
}

// forwardTransfer propagates definitions forward: each instruction's
// destination register(s) take on the type its opcode produces, informed
// by its source registers' current types.
func forwardTransfer(r *Repo, in *dex.Instruction, state RegState) (RegState, error) {
	if isPayloadFormat(in.Op.Format) {
		return state, &AnalysisError{Kind: Internal, Err: errPayloadInTransfer(in)}
	}

	out := state.Clone()
	m := in.Op.Mnemonic

	switch {
	case m == "nop" || m == "unused":
		// no effect

	case matchPrefix(m, "move") && !matchPrefix(m, "move-result"):
		applyMove(&out, in, m)

	case matchPrefix(m, "const"):
		applyConst(&out, in, m)

	case m == "goto" || m == "goto/16" || m == "goto/32":
		// no register effect

	case matchPrefix(m, "if-"):
		// comparison only; no definition

	case m == "return-void" || m == "return" || m == "return-wide" || m == "return-object":
		// no definition; the backward pass checks these against the
		// method's declared return type as its exit obligation

	case matchPrefix(m, "new-instance"):
		desc, _ := dex.TypeIndex(in.PoolIndex).Resolve(dexOf(r, in))
		setReg(&out, in.Regs[0], Type{Kind: ObjectKind, Object: []string{desc}})

	case matchPrefix(m, "new-array"):
		setReg(&out, in.Regs[0], Type{Kind: ArrayKind, ArrayDim: 1, ArrayElem: "?"})

	case m == "instance-of":
		setReg(&out, in.Regs[0], Type{Kind: Integer})

	case m == "check-cast":
		desc, _ := dex.TypeIndex(in.PoolIndex).Resolve(dexOf(r, in))
		setReg(&out, in.Regs[0], Type{Kind: ObjectKind, Object: []string{desc}})

	case m == "array-length":
		setReg(&out, in.Regs[0], Type{Kind: Integer})

	case matchPrefix(m, "aget"):
		setReg(&out, in.Regs[0], arrayElementType(m))
	case matchPrefix(m, "aput"):
		// no destination register

	case matchPrefix(m, "iget") || matchPrefix(m, "sget"):
		setReg(&out, in.Regs[0], fieldType(r, in))
	case matchPrefix(m, "iput") || matchPrefix(m, "sput"):
		// no destination register

	case matchPrefix(m, "invoke"):
		// a receiver already known to be null/zero at this program point can
		// never dispatch a virtual call; this is caught here, against the
		// forward pass's actual inferred value, rather than in the backward
		// pass's obligation check, which only ever compares demands against
		// each other and has no concept of "the value is definitely null".
		if invokeHasReceiver(m) {
			args := invokeArgRegs(in)
			if len(args) > 0 {
				recv := getReg(out, args[0])
				if recv.Kind == Null || recv.Kind == Zero {
					return out, &TypeError{
						Kind:   ExpectedClass,
						Addr:   uint32(in.Addr),
						Detail: m + " receiver is definitely null",
					}
				}
			}
		}
		// result lands in the following move-result*; invoke itself defines
		// state.Result for the synthetic "result register"
		out.Result = invokeReturnType(r, in)

	case matchPrefix(m, "move-result"):
		setReg(&out, in.Regs[0], out.Result)

	case matchPrefix(m, "neg-") || matchPrefix(m, "not-"):
		setReg(&out, in.Regs[0], getReg(out, in.Regs[1]))

	case matchPrefix(m, "add-") || matchPrefix(m, "sub-") || matchPrefix(m, "mul-") ||
		matchPrefix(m, "div-") || matchPrefix(m, "rem-") ||
		matchPrefix(m, "and-") || matchPrefix(m, "or-") || matchPrefix(m, "xor-") ||
		matchPrefix(m, "shl-") || matchPrefix(m, "shr-") || matchPrefix(m, "ushr-"):
		applyArith(&out, in, m)

	case matchPrefix(m, "int-to-") || matchPrefix(m, "long-to-") ||
		matchPrefix(m, "float-to-") || matchPrefix(m, "double-to-"):
		setReg(&out, in.Regs[0], conversionTargetKind(m))

	case m == "throw":
		// no effect on successors (exceptional edges handled by the CFG)

	case m == "fill-array-data":
		// no destination register

	case matchPrefix(m, "cmp") || matchPrefix(m, "rsub-int"):
		setReg(&out, in.Regs[0], Type{Kind: Integer})

	default:
		// the remaining opcodes (monitor-enter/exit, packed-/sparse-switch,
		// filled-new-array) define no register.
	}

	return out, nil
}

// isPayloadFormat reports whether f is one of the three payload
// pseudo-formats (packed-switch/sparse-switch/fill-array-data payloads).
// These are never present in a code_item's linearly-decoded instruction
// stream (dex/code.go's reader skips over them, reachable only by a
// switch/fill-array-data instruction's explicit offset reference), so a
// dataflow transfer encountering one indicates a decoding or CFG
// construction bug rather than a bytecode-level type violation.
func isPayloadFormat(f dex.Format) bool {
	return f == dex.FmtPackedSwitchPayload || f == dex.FmtSparseSwitchPayload || f == dex.FmtFillArrayDataPayload
}

func errPayloadInTransfer(in *dex.Instruction) error {
	return fmt.Errorf("payload pseudo-instruction %s reached during transfer at +0x%x", in.Op.Mnemonic, in.Addr)
}

func dexOf(r *Repo, in *dex.Instruction) *dex.Container {
	// Pool indices are always resolved against the first registered dex,
	// whichever dex the instruction came from; this is correct for a
	// single-dex repo, and in a multi-dex repo an instruction from any other
	// dex resolves against the wrong pools.
	if len(r.dexes) == 0 {
		return nil
	}
	return r.dexes[0]
}

func matchPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func applyMove(out *RegState, in *dex.Instruction, m string) {
	switch {
	case matchPrefix(m, "move-wide"):
		setReg(out, in.Regs[0], getReg(*out, in.Regs[1]))
	case matchPrefix(m, "move-object"):
		setReg(out, in.Regs[0], getReg(*out, in.Regs[1]))
	case matchPrefix(m, "move-exception"):
		setReg(out, in.Regs[0], Type{Kind: ObjectKind, Object: []string{"Ljava/lang/Throwable;"}})
	case matchPrefix(m, "move-result"):
		// handled by the move-result case in forwardTransfer
	case m == "move" || m == "move/from16" || m == "move/16":
		setReg(out, in.Regs[0], getReg(*out, in.Regs[1]))
	}
}

func applyConst(out *RegState, in *dex.Instruction, m string) {
	switch {
	case matchPrefix(m, "const-wide"):
		setReg(out, in.Regs[0], Type{Kind: Long})
	case matchPrefix(m, "const-string"):
		setReg(out, in.Regs[0], Type{Kind: ObjectKind, Object: []string{"Ljava/lang/String;"}})
	case matchPrefix(m, "const-class"):
		setReg(out, in.Regs[0], Type{Kind: ObjectKind, Object: []string{"Ljava/lang/Class;"}})
	case m == "const" || m == "const/4" || m == "const/16" || m == "const/high16":
		if in.Lit == 0 {
			setReg(out, in.Regs[0], Type{Kind: Zero})
		} else {
			setReg(out, in.Regs[0], Type{Kind: Integer})
		}
	default:
		setReg(out, in.Regs[0], Type{Kind: Integer})
	}
}

func applyArith(out *RegState, in *dex.Instruction, m string) {
	wide := contains(m, "-long")
	isFloat := contains(m, "-float")
	isDouble := contains(m, "-double")
	var t Type
	switch {
	case isDouble:
		t = Type{Kind: Double}
	case wide:
		t = Type{Kind: Long}
	case isFloat:
		t = Type{Kind: Float}
	default:
		t = Type{Kind: Integer}
	}
	setReg(out, in.Regs[0], t)
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func conversionTargetKind(m string) Type {
	switch {
	case contains(m, "-to-int"):
		return Type{Kind: Integer}
	case contains(m, "-to-long"):
		return Type{Kind: Long}
	case contains(m, "-to-float"):
		return Type{Kind: Float}
	case contains(m, "-to-double"):
		return Type{Kind: Double}
	case contains(m, "-to-short") || contains(m, "-to-byte") || contains(m, "-to-char"):
		return Type{Kind: Integer}
	}
	return TypeTop
}

func arrayElementType(m string) Type {
	switch m {
	case "aget":
		return Type{Kind: Integer}
	case "aget-wide":
		return Type{Kind: Long}
	case "aget-object":
		return Type{Kind: ObjectKind, Object: []string{javaLangObject}}
	case "aget-boolean", "aget-byte", "aget-char", "aget-short":
		return Type{Kind: Integer}
	}
	return TypeTop
}

func fieldType(r *Repo, in *dex.Instruction) Type {
	c := dexOf(r, in)
	if c == nil {
		return TypeTop
	}
	f, err := dex.FieldIndex(in.PoolIndex).Resolve(c)
	if err != nil {
		return TypeTop
	}
	desc, err := f.TypeIdx.Resolve(c)
	if err != nil {
		return TypeTop
	}
	return typeFromDescriptor(desc)
}

func invokeReturnType(r *Repo, in *dex.Instruction) Type {
	c := dexOf(r, in)
	if c == nil {
		return TypeTop
	}
	method, err := dex.MethodIndex(in.PoolIndex).Resolve(c)
	if err != nil {
		return TypeTop
	}
	proto, err := method.ProtoIdx.Resolve(c)
	if err != nil {
		return TypeTop
	}
	desc, err := proto.ReturnTypeIdx.Resolve(c)
	if err != nil {
		return TypeTop
	}
	return typeFromDescriptor(desc)
}

// typeFromDescriptor maps a JVM/Dalvik type descriptor string to its
// lattice representation.
func typeFromDescriptor(desc string) Type {
	if desc == "" {
		return TypeTop
	}
	switch desc[0] {
	case 'V':
		return Type{Kind: Top}
	case 'Z', 'B', 'S', 'C', 'I':
		return Type{Kind: Integer}
	case 'J':
		return Type{Kind: Long}
	case 'F':
		return Type{Kind: Float}
	case 'D':
		return Type{Kind: Double}
	case 'L':
		return Type{Kind: ObjectKind, Object: []string{desc}}
	case '[':
		dim := 0
		for dim < len(desc) && desc[dim] == '[' {
			dim++
		}
		return Type{Kind: ArrayKind, ArrayDim: dim, ArrayElem: desc[dim:]}
	}
	return TypeTop
}
