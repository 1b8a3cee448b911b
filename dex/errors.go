// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "fmt"

// ParseErrorKind classifies a parse failure. Parsing is all-or-nothing: the
// first ParseError encountered aborts the parse, there is no partial
// Container.
type ParseErrorKind int

// Parse error kinds.
const (
	// ErrStructure covers short reads, bad magic, impossible offsets and
	// any other violation of the header/pool layout.
	ErrStructure ParseErrorKind = iota
	// ErrResNotFound is returned when an index handle cannot be resolved
	// against its owning Container.
	ErrResNotFound
	// ErrInvalidMutf8 is returned when a string_data_item's byte body is
	// not valid Modified UTF-8.
	ErrInvalidMutf8
	// ErrInstructionNotFound is returned when an address does not land on
	// an instruction boundary (e.g. a branch target into the middle of an
	// instruction, or a payload reached by ordinary decoding).
	ErrInstructionNotFound
	// ErrBadInstructionSize is returned when an opcode's encoded size does
	// not match the size its format predicts.
	ErrBadInstructionSize
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrStructure:
		return "structure"
	case ErrResNotFound:
		return "res_not_found"
	case ErrInvalidMutf8:
		return "invalid_mutf8"
	case ErrInstructionNotFound:
		return "instruction_not_found"
	case ErrBadInstructionSize:
		return "bad_instruction_size"
	default:
		return "unknown"
	}
}

// ParseError is the error type returned by the DEX reader and writer. It
// carries the expected item kind and the byte offset at which the failure
// was detected, so callers can reproduce it without re-running the parse
// under a debugger.
type ParseError struct {
	Kind   ParseErrorKind
	ItemKind string
	Offset uint32
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dex: %s at offset 0x%x (%s): %v", e.Kind, e.Offset, e.ItemKind, e.Err)
	}
	return fmt.Sprintf("dex: %s at offset 0x%x (%s)", e.Kind, e.Offset, e.ItemKind)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(kind ParseErrorKind, itemKind string, offset uint32, err error) *ParseError {
	return &ParseError{Kind: kind, ItemKind: itemKind, Offset: offset, Err: err}
}
