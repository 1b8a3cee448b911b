// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "sync"

// TryItem is try_item: one try block, covering instructions in
// [StartAddr, StartAddr+InsnCount) of the owning code item's instruction
// stream, paired with its handler list by index into the code item's
// Handlers slice.
type TryItem struct {
	StartAddr  Addr
	InsnCount  uint16
	HandlerOff uint16 // offset into the encoded_catch_handler_list, kept for round-trip fidelity
	HandlerIdx int    // resolved index into CodeItem.Handlers
}

// CatchHandler is one encoded_type_addr_pair: the exception type and the
// address of the handler block. A catch-all handler is not a CatchHandler;
// it is kept in CatchHandlerList.HasCatchAll/CatchAllAddr.
type CatchHandler struct {
	TypeIdx TypeIndex
	Addr    Addr
}

// CatchHandlerList is one encoded_catch_handler: a list of typed handlers
// plus an optional catch-all.
type CatchHandlerList struct {
	Handlers    []CatchHandler
	CatchAllAddr Addr
	HasCatchAll bool
}

// CodeItem is code_item. It is the one mutable shared structure in the
// data model: callers may rewrite Instructions in place (e.g. via
// PatchInstructions) while readers walk them for analysis, so access is
// guarded by Mu under a reader/writer discipline — RLock to iterate
// instructions, Lock to replace them.
type CodeItem struct {
	Mu sync.RWMutex

	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	DebugInfoOff  uint32
	DebugInfo     *DebugInfo

	// rawInsns is the unmodified insns byte stream as parsed; Instructions
	// is the decoded view kept in sync with it.
	rawInsns     []byte
	Instructions []*Instruction

	Tries    []TryItem
	Handlers []CatchHandlerList
}

// Insns returns the current raw instruction byte stream under a read lock.
func (c *CodeItem) Insns() []byte {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	out := make([]byte, len(c.rawInsns))
	copy(out, c.rawInsns)
	return out
}

// At returns the decoded instruction whose address equals addr, or nil if
// none does (addr lands mid-instruction or past the end).
func (c *CodeItem) At(addr Addr) *Instruction {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	for _, in := range c.Instructions {
		if in.Addr == addr {
			return in
		}
	}
	return nil
}

// Replace overwrites the instructions spanning [start, end) with repl,
// re-decoding the patched region so Instructions stays consistent with the
// raw stream. Requires len(encode(repl)) <= end-start; all addresses
// outside the patched span are preserved.
func (c *CodeItem) Replace(start, end Addr, repl []*Instruction) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	patched, err := PatchInstructions(c.rawInsns, uint32(start), uint32(end), repl)
	if err != nil {
		return err
	}
	c.rawInsns = patched

	decoded, err := decodeInstructionStream(c.rawInsns)
	if err != nil {
		return err
	}
	c.Instructions = decoded
	return nil
}

// decodeInstructionStream linearly decodes buf into Instructions, skipping
// over payload pseudo-instructions (which are reached only by reference,
// never by linear decode) by recognizing their ident tags and advancing
// past them without emitting an Instruction for them.
func decodeInstructionStream(buf []byte) ([]*Instruction, error) {
	var out []*Instruction
	off := uint32(0)
	for off < uint32(len(buf)) {
		if buf[off] == 0x00 && off+2 <= uint32(len(buf)) {
			ident := u16(buf, off)
			switch ident {
			case packedSwitchIdent:
				p, err := DecodePackedSwitchPayload(buf, off)
				if err != nil {
					return nil, err
				}
				off += p.Size()
				continue
			case sparseSwitchIdent:
				p, err := DecodeSparseSwitchPayload(buf, off)
				if err != nil {
					return nil, err
				}
				off += p.Size()
				continue
			case fillArrayDataIdent:
				p, err := DecodeFillArrayDataPayload(buf, off)
				if err != nil {
					return nil, err
				}
				off += p.Size()
				continue
			}
		}
		in, err := DecodeInstruction(buf, Addr(off))
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		off += in.Size()
	}
	return out, nil
}
