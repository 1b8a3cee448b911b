// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"

	"droidworks/dex"
)

// backwardTransfer propagates use obligations backward: each instruction's
// source register(s) are constrained to whatever type its opcode requires,
// joined with whatever the instruction's successors already demanded.
// Violations are reported as *TypeError rather than silently widening to
// Top, since a required-type conflict is exactly what the verifier exists
// to catch.
func backwardTransfer(r *Repo, in *dex.Instruction, state RegState) (RegState, error) {
	if isPayloadFormat(in.Op.Format) {
		return state, &AnalysisError{Kind: Internal, Err: errPayloadInTransfer(in)}
	}

	out := state.Clone()
	m := in.Op.Mnemonic

	require := func(reg uint16, want Type, kind TypeErrorKind) error {
		have := getReg(out, reg)
		if !IsSubtypeOf(r, have, want) && have.Kind != Top {
			return &TypeError{
				Kind:   kind,
				Method: "",
				Addr:   uint32(in.Addr),
				Detail: mismatchDetail(have, want),
			}
		}
		setReg(&out, reg, Join32(have, want))
		return nil
	}

	// retWant is a return operand's obligation: the declared return type the
	// exit state carries in Result, or the variant's generic kind if none.
	retWant := func(generic Type) Type {
		if out.Result.Kind != Bottom && out.Result.Kind != Top {
			return out.Result
		}
		return generic
	}

	switch {
	case m == "return":
		if err := require(in.Regs[0], retWant(Type{Kind: Integer}), BadReturnType); err != nil {
			return out, err
		}
	case m == "return-wide":
		if err := require(in.Regs[0], retWant(Type{Kind: Long}), BadReturnType); err != nil {
			return out, err
		}
	case m == "return-object":
		if err := require(in.Regs[0], retWant(Type{Kind: ObjectKind, Object: []string{javaLangObject}}), BadReturnType); err != nil {
			return out, err
		}

	case matchPrefix(m, "if-"):
		// if-eq/if-ne (and their z variants) apply to both int and object
		// registers in Dalvik; the mnemonic alone doesn't disambiguate, so
		// this pass leaves their operand obligation unconstrained rather
		// than risk a false-positive mismatch.

	case matchPrefix(m, "aget"):
		if err := require(in.Regs[1], Type{Kind: ArrayKind, ArrayDim: 1, ArrayElem: "?"}, ExpectedArray); err != nil {
			return out, err
		}
		if err := require(in.Regs[2], Type{Kind: Integer}, IncompatibleStates); err != nil {
			return out, err
		}
	case matchPrefix(m, "aput"):
		if err := require(in.Regs[1], Type{Kind: ArrayKind, ArrayDim: 1, ArrayElem: "?"}, ExpectedArray); err != nil {
			return out, err
		}
		if err := require(in.Regs[2], Type{Kind: Integer}, IncompatibleStates); err != nil {
			return out, err
		}

	case matchPrefix(m, "iget") || matchPrefix(m, "iput"):
		want := fieldType(r, in)
		if err := require(in.Regs[1], Type{Kind: ObjectKind, Object: []string{javaLangObject}}, ExpectedClass); err != nil {
			return out, err
		}
		if matchPrefix(m, "iput") {
			if err := require(in.Regs[0], want, InvalidFieldType); err != nil {
				return out, err
			}
		}

	case matchPrefix(m, "invoke"):
		if err := requireInvokeArgs(r, in, &out, require); err != nil {
			return out, err
		}

	case m == "check-cast":
		if err := require(in.Regs[0], Type{Kind: ObjectKind, Object: []string{javaLangObject}}, ExpectedClass); err != nil {
			return out, err
		}
	case m == "instance-of":
		if err := require(in.Regs[1], Type{Kind: ObjectKind, Object: []string{javaLangObject}}, ExpectedClass); err != nil {
			return out, err
		}
	case m == "array-length":
		if err := require(in.Regs[1], Type{Kind: ArrayKind, ArrayDim: 1, ArrayElem: "?"}, ExpectedArray); err != nil {
			return out, err
		}

	case m == "throw":
		if err := require(in.Regs[0], Type{Kind: ObjectKind, Object: []string{"Ljava/lang/Throwable;"}}, ExpectedClass); err != nil {
			return out, err
		}

	case matchPrefix(m, "add-") || matchPrefix(m, "sub-") || matchPrefix(m, "mul-") ||
		matchPrefix(m, "div-") || matchPrefix(m, "rem-"):
		want := arithOperandType(m)
		for _, reg := range in.Regs[1:] {
			if err := require(reg, want, IncompatibleStates); err != nil {
				return out, err
			}
		}
	}

	return out, nil
}

// invokeArgRegs returns an invoke instruction's argument registers in
// declaration order, whether encoded as an explicit register list (35c/
// 45cc) or a contiguous range (3rc/4rcc).
func invokeArgRegs(in *dex.Instruction) []uint16 {
	if in.Op.Format == dex.Fmt3rc || in.Op.Format == dex.Fmt4rcc {
		args := make([]uint16, in.RangeCount)
		for i := range args {
			args[i] = in.RangeStart + uint16(i)
		}
		return args
	}
	return in.Regs
}

// invokeHasReceiver reports whether m's first argument register is the
// receiver ("this"): every invoke-kind except invoke-static and
// invoke-custom (an invokedynamic-style call site with no receiver of its
// own) is a call against an object.
func invokeHasReceiver(m string) bool {
	return !matchPrefix(m, "invoke-static") && !matchPrefix(m, "invoke-custom")
}

// requireInvokeArgs enforces an invoke instruction's call obligations: the
// receiver (if any) must satisfy the invoked method's declaring class, and
// each remaining argument register must satisfy the corresponding declared
// parameter type. Arity mismatches and a missing receiver are reported
// directly; a method the repository cannot resolve (e.g. a reflective or
// otherwise unresolvable call target) leaves the arguments unconstrained
// rather than failing the whole method's analysis.
func requireInvokeArgs(r *Repo, in *dex.Instruction, out *RegState, require func(uint16, Type, TypeErrorKind) error) error {
	m := in.Op.Mnemonic
	args := invokeArgRegs(in)
	hasThis := invokeHasReceiver(m)

	if hasThis && len(args) == 0 {
		return &TypeError{Kind: MissingThisArgument, Addr: uint32(in.Addr), Detail: m + " has no receiver register"}
	}

	c := dexOf(r, in)
	if c == nil {
		return nil
	}
	method, err := dex.MethodIndex(in.PoolIndex).Resolve(c)
	if err != nil {
		return nil
	}
	proto, err := method.ProtoIdx.Resolve(c)
	if err != nil {
		return nil
	}

	// argSlot pairs the expected type of one argument register with
	// whether it's the synthetic high half of a wide (long/double)
	// parameter's register pair: counted for arity, but not separately
	// type-checked, consistent with how const-wide/move-wide elsewhere in
	// this package only ever assert the low register of a wide value.
	type argSlot struct {
		want Type
		skip bool
	}
	var slots []argSlot
	if hasThis {
		declDesc, err := method.ClassIdx.Resolve(c)
		if err != nil {
			return nil
		}
		slots = append(slots, argSlot{want: Type{Kind: ObjectKind, Object: []string{declDesc}}})
	}
	for _, pt := range proto.Parameters {
		desc, err := pt.Resolve(c)
		if err != nil {
			return nil
		}
		t := typeFromDescriptor(desc)
		slots = append(slots, argSlot{want: t})
		if desc == "J" || desc == "D" {
			slots = append(slots, argSlot{want: t, skip: true})
		}
	}

	if len(args) != len(slots) {
		return &TypeError{
			Kind:   BadArity,
			Addr:   uint32(in.Addr),
			Detail: fmt.Sprintf("%s supplies %d argument registers, method declares %d", m, len(args), len(slots)),
		}
	}

	for i, reg := range args {
		if slots[i].skip {
			continue
		}
		kind := IncompatibleStates
		if hasThis && i == 0 {
			kind = ExpectedClass
		}
		if err := require(reg, slots[i].want, kind); err != nil {
			return err
		}
	}
	return nil
}

func arithOperandType(m string) Type {
	switch {
	case contains(m, "-long"):
		return Type{Kind: Long}
	case contains(m, "-float"):
		return Type{Kind: Float}
	case contains(m, "-double"):
		return Type{Kind: Double}
	default:
		return Type{Kind: Integer}
	}
}

func mismatchDetail(have, want Type) string {
	return kindName(have.Kind) + " does not satisfy " + kindName(want.Kind)
}

func kindName(k TypeKind) string {
	switch k {
	case Bottom:
		return "bottom"
	case Top:
		return "top"
	case Integer:
		return "int"
	case Float:
		return "float"
	case Long:
		return "long"
	case Double:
		return "double"
	case Null:
		return "null"
	case Zero:
		return "zero"
	case ObjectKind:
		return "object"
	case ArrayKind:
		return "array"
	default:
		return "unknown"
	}
}
