// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package analysis builds a cross-dex class/method/field repository over
// one or more parsed dex.Container values, and performs control-flow and
// abstract-interpretation typechecking over method bodies.
package analysis

import "fmt"

// RepoError is returned by Repo construction and lookup operations: a
// class_def whose descriptor cannot be resolved during registration, a
// lookup of a class absent from the repo, an invalid FindClasses pattern,
// or a dex index or method index that does not resolve.
type RepoError struct {
	Op      string
	Subject string
	Err     error
}

func (e *RepoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis: %s %s: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("analysis: %s %s", e.Op, e.Subject)
}

func (e *RepoError) Unwrap() error { return e.Err }

// AnalysisErrorKind classifies a CFG/dataflow construction failure: a
// method with no code to analyze, an address that should resolve to a
// decoded instruction but doesn't, or an internal invariant violated by
// the analysis itself rather than by the bytecode it's examining.
type AnalysisErrorKind int

// Analysis error kinds.
const (
	NoCode AnalysisErrorKind = iota
	InstructionNotFound
	Internal
)

func (k AnalysisErrorKind) String() string {
	switch k {
	case NoCode:
		return "no_code"
	case InstructionNotFound:
		return "instruction_not_found"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// AnalysisError is returned by CFG construction and traversal.
type AnalysisError struct {
	Kind   AnalysisErrorKind
	Method string
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis: %s in %s: %v", e.Kind, e.Method, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// TypeErrorKind classifies a typecheck failure surfaced by the verifier.
type TypeErrorKind int

// Typecheck error kinds.
const (
	// IncompatibleStates: two predecessor states could not be merged
	// (a forward/backward meet or join produced Top from two
	// irreconcilable concrete types).
	IncompatibleStates TypeErrorKind = iota
	// BadReturnType: a return/return-wide/return-object instruction's
	// source register does not satisfy the method's declared return type.
	BadReturnType
	// BadArity: an invoke instruction's argument register count does not
	// match the invoked method's declared parameter count (plus this).
	BadArity
	// MissingThisArgument: an invoke-virtual/super/direct/interface
	// instruction has no register standing in for the receiver.
	MissingThisArgument
	// MissingResult: a move-result* instruction was reached with no
	// preceding invoke-* in the same block to source it from.
	MissingResult
	// ExpectedClass: a register required to be object-typed (this,
	// check-cast/instance-of operand, field-access receiver, throw
	// source) isn't.
	ExpectedClass
	// ExpectedArray: a register required to be array-typed (aget/aput's
	// array operand, array-length's source) isn't.
	ExpectedArray
	// InvalidFieldType: an iget/iput/sget/sput variant's width/kind
	// (boolean/byte/char/short vs. the generic 32-bit form) doesn't match
	// the field's declared type.
	InvalidFieldType
)

func (k TypeErrorKind) String() string {
	switch k {
	case IncompatibleStates:
		return "incompatible_states"
	case BadReturnType:
		return "bad_return_type"
	case BadArity:
		return "bad_arity"
	case MissingThisArgument:
		return "missing_this_argument"
	case MissingResult:
		return "missing_result"
	case ExpectedClass:
		return "expected_class"
	case ExpectedArray:
		return "expected_array"
	case InvalidFieldType:
		return "invalid_field_type"
	default:
		return "unknown"
	}
}

// TypeError is returned by ForwardTypecheck/BackwardTypecheck when a
// method's instruction stream violates a verifier invariant.
type TypeError struct {
	Kind   TypeErrorKind
	Method string
	Addr   uint32
	Detail string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("analysis: %s in %s at +0x%x: %s", e.Kind, e.Method, e.Addr, e.Detail)
}
