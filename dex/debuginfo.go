// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// DebugInfo is a leaf projection of debug_info_item: enough to attribute
// source lines and local-variable names to addresses for diagnostics, not
// a full re-encoding of the opcode-based debug-info state machine. The
// original bytecode program is not kept; the owning CodeItem's DebugInfoOff
// records only its file offset.
type DebugInfo struct {
	LineStart uint32
	Parameters []StringIndex // may contain NoIndex-valued entries for unnamed parameters

	PositionTable []PositionEntry
	LocalTable    []LocalEntry
}

// PositionEntry maps a code address to a source line, one entry per special
// opcode emitted by the state machine plus one at DBG_END_SEQUENCE.
type PositionEntry struct {
	Addr Addr
	Line uint32
}

// LocalEntry records a local variable's name/type/liveness range, as
// emitted by DBG_START_LOCAL/DBG_START_LOCAL_EXTENDED/DBG_END_LOCAL.
type LocalEntry struct {
	Register  uint16
	NameIdx   StringIndex
	TypeIdx   TypeIndex
	SigIdx    StringIndex
	StartAddr Addr
	EndAddr   Addr
	HasEnd    bool
}

// Debug info state-machine opcodes (DBG_*), dex file format §"debug_info_item".
const (
	dbgEndSequence      = 0x00
	dbgAdvancePC        = 0x01
	dbgAdvanceLine      = 0x02
	dbgStartLocal       = 0x03
	dbgStartLocalExt    = 0x04
	dbgEndLocal         = 0x05
	dbgRestartLocal     = 0x06
	dbgSetPrologueEnd   = 0x07
	dbgSetEpilogueBegin = 0x08
	dbgSetFile          = 0x09
	dbgFirstSpecial     = 0x0a

	dbgLineBase  = -4
	dbgLineRange = 15
)

// decodeDebugInfo interprets the debug_info_item state machine beginning at
// byte offset off within buf, producing a flattened position/local table.
// This does not track DBG_SET_FILE/source-file overrides; callers that need
// per-instruction source-file attribution should consult the class's
// source_file_idx, which is the common case.
func decodeDebugInfo(buf []byte, off uint32) (*DebugInfo, error) {
	lineStart, n, err := ReadUleb128(buf, off)
	if err != nil {
		return nil, err
	}
	off += n

	paramCount, n, err := ReadUleb128(buf, off)
	if err != nil {
		return nil, err
	}
	off += n

	info := &DebugInfo{LineStart: lineStart}
	info.Parameters = make([]StringIndex, paramCount)
	for i := uint32(0); i < paramCount; i++ {
		idxp1, n, err := ReadUleb128p1(buf, off)
		if err != nil {
			return nil, err
		}
		off += n
		if idxp1 < 0 {
			info.Parameters[i] = StringIndex(NoIndex)
		} else {
			info.Parameters[i] = StringIndex(idxp1)
		}
	}

	addr := Addr(0)
	line := lineStart
	active := map[uint16]*LocalEntry{}

	for {
		if int(off) >= len(buf) {
			return nil, newParseError(ErrStructure, "debug_info_item", off, nil)
		}
		opc := buf[off]
		off++

		switch {
		case opc == dbgEndSequence:
			info.PositionTable = append(info.PositionTable, PositionEntry{Addr: addr, Line: line})
			return info, nil

		case opc == dbgAdvancePC:
			v, n, err := ReadUleb128(buf, off)
			if err != nil {
				return nil, err
			}
			off += n
			addr = addr.Offset(int32(v) * 2) // code units to bytes

		case opc == dbgAdvanceLine:
			v, n, err := ReadSleb128(buf, off)
			if err != nil {
				return nil, err
			}
			off += n
			line = uint32(int64(line) + int64(v))

		case opc == dbgSetPrologueEnd, opc == dbgSetEpilogueBegin:
			// no state captured

		case opc == dbgSetFile:
			_, n, err := ReadUleb128p1(buf, off)
			if err != nil {
				return nil, err
			}
			off += n

		case opc == dbgStartLocal || opc == dbgStartLocalExt:
			reg, n, err := ReadUleb128(buf, off)
			if err != nil {
				return nil, err
			}
			off += n
			nameIdx, n, err := ReadUleb128p1(buf, off)
			if err != nil {
				return nil, err
			}
			off += n
			typeIdx, n, err := ReadUleb128p1(buf, off)
			if err != nil {
				return nil, err
			}
			off += n
			sigIdx := int32(-1)
			if opc == dbgStartLocalExt {
				sigIdx, n, err = ReadUleb128p1(buf, off)
				if err != nil {
					return nil, err
				}
				off += n
			}
			e := &LocalEntry{Register: uint16(reg), StartAddr: addr}
			if nameIdx >= 0 {
				e.NameIdx = StringIndex(nameIdx)
			} else {
				e.NameIdx = StringIndex(NoIndex)
			}
			if typeIdx >= 0 {
				e.TypeIdx = TypeIndex(typeIdx)
			} else {
				e.TypeIdx = TypeIndex(NoIndex)
			}
			if sigIdx >= 0 {
				e.SigIdx = StringIndex(sigIdx)
			} else {
				e.SigIdx = StringIndex(NoIndex)
			}
			active[uint16(reg)] = e

		case opc == dbgEndLocal || opc == dbgRestartLocal:
			reg, n, err := ReadUleb128(buf, off)
			if err != nil {
				return nil, err
			}
			off += n
			if opc == dbgEndLocal {
				if e, ok := active[uint16(reg)]; ok {
					e.EndAddr = addr
					e.HasEnd = true
					info.LocalTable = append(info.LocalTable, *e)
					delete(active, uint16(reg))
				}
			}

		default: // special opcode: adjusts both addr and line
			adjusted := int(opc) - dbgFirstSpecial
			addr = addr.Offset(int32(adjusted/dbgLineRange) * 2) // code units to bytes
			line = uint32(int64(line) + int64(dbgLineBase+adjusted%dbgLineRange))
			info.PositionTable = append(info.PositionTable, PositionEntry{Addr: addr, Line: line})
		}
	}
}
