// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package resources

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Resource table chunk type tags, continuing the AXML chunk-type
// enumeration in axml.go (both formats share the same common chunk
// header and string-pool encoding).
const (
	chunkTable         = 0x0002
	chunkTablePackage  = 0x0200
	chunkTableTypeSpec = 0x0202
	chunkTableType     = 0x0201
)

const tableEntryFlagComplex = 0x1

// noEntry marks an absent slot in a type chunk's entry-offset array.
const noEntry = 0xffffffff

// Table is a parsed resources.arsc resource table: enough structure to
// resolve a resource ID (0xPPTTEEEE: package, type, entry) to its
// default-configuration Value. Configuration-qualified variants (locale,
// density, orientation, ...) are not tracked; every entry resolves to
// whichever configuration's type chunk is encountered first, which for a
// default/unqualified lookup is the common case manifest resolution needs.
type Table struct {
	Pool     []string
	Packages []TablePackage
}

// TablePackage is one package's resources: its own type/key string pools
// plus every type's entries, keyed by (type ID, entry ordinal).
type TablePackage struct {
	ID          uint8
	Name        string
	TypeStrings []string
	KeyStrings  []string
	Types       map[uint8]map[uint16]Value
}

// ParseTable decodes a resources.arsc image.
func ParseTable(data []byte) (*Table, error) {
	if len(data) < 12 {
		return nil, newError(ErrStructure, "resource table", nil)
	}
	typ := binary.LittleEndian.Uint16(data[0:2])
	if typ != chunkTable {
		return nil, newError(ErrStructure, "not a resource table chunk", nil)
	}
	size := binary.LittleEndian.Uint32(data[4:8])
	if int(size) > len(data) {
		return nil, newError(ErrStructure, "resource table size exceeds buffer", nil)
	}
	body := data[12:size]

	t := &Table{}
	off := 0
	for off+8 <= len(body) {
		ctyp := binary.LittleEndian.Uint16(body[off:])
		csize := binary.LittleEndian.Uint32(body[off+4:])
		if csize < 8 || int(off)+int(csize) > len(body) {
			return nil, newError(ErrStructure, "malformed table chunk", nil)
		}
		chunk := body[off : off+int(csize)]

		switch ctyp {
		case chunkStringPool:
			pool, err := parseStringPool(chunk)
			if err != nil {
				return nil, err
			}
			t.Pool = pool

		case chunkTablePackage:
			pkg, err := parseTablePackage(chunk, t.Pool)
			if err != nil {
				return nil, err
			}
			t.Packages = append(t.Packages, pkg)
		}

		off += int(csize)
	}
	return t, nil
}

// Resolve looks up a resource ID's default-configuration value.
func (t *Table) Resolve(resID uint32) (Value, bool) {
	pkgID := uint8(resID >> 24)
	typeID := uint8(resID >> 16)
	entryID := uint16(resID)
	for _, pkg := range t.Packages {
		if pkg.ID != pkgID {
			continue
		}
		entries, ok := pkg.Types[typeID]
		if !ok {
			return Value{}, false
		}
		v, ok := entries[entryID]
		return v, ok
	}
	return Value{}, false
}

// tablePackageHeaderSize covers ResTable_package's fixed fields up through
// lastPublicKey; the trailing typeIdOffset some newer packages carry is
// skipped over rather than read, since nothing here needs it.
const tablePackageHeaderSize = 284

func parseTablePackage(chunk []byte, globalPool []string) (TablePackage, error) {
	if len(chunk) < tablePackageHeaderSize {
		return TablePackage{}, newError(ErrStructure, "table package header", nil)
	}
	hdrSize := binary.LittleEndian.Uint16(chunk[2:])
	id := binary.LittleEndian.Uint32(chunk[8:])
	name := decodeFixedUTF16(chunk[12:268])
	typeStringsOff := binary.LittleEndian.Uint32(chunk[268:])
	keyStringsOff := binary.LittleEndian.Uint32(chunk[276:])

	pkg := TablePackage{ID: uint8(id), Name: name, Types: make(map[uint8]map[uint16]Value)}

	if typeStringsOff != 0 && int(typeStringsOff) < len(chunk) {
		if pool, err := parseStringPool(chunk[typeStringsOff:]); err == nil {
			pkg.TypeStrings = pool
		}
	}
	if keyStringsOff != 0 && int(keyStringsOff) < len(chunk) {
		if pool, err := parseStringPool(chunk[keyStringsOff:]); err == nil {
			pkg.KeyStrings = pool
		}
	}

	off := int(hdrSize)
	for off+8 <= len(chunk) {
		ctyp := binary.LittleEndian.Uint16(chunk[off:])
		csize := binary.LittleEndian.Uint32(chunk[off+4:])
		if csize < 8 || off+int(csize) > len(chunk) {
			break
		}
		sub := chunk[off : off+int(csize)]
		if ctyp == chunkTableType {
			typeID, entries, err := parseTableType(sub, globalPool)
			if err == nil {
				if pkg.Types[typeID] == nil {
					pkg.Types[typeID] = entries
				} else {
					for k, v := range entries {
						if _, exists := pkg.Types[typeID][k]; !exists {
							pkg.Types[typeID][k] = v
						}
					}
				}
			}
		}
		off += int(csize)
	}
	return pkg, nil
}

// decodeFixedUTF16 decodes a package's fixed 256-byte `name` field (128
// UTF-16LE code units, NUL-padded rather than length-prefixed).
func decodeFixedUTF16(buf []byte) string {
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := decoder.Bytes(buf)
	if err != nil {
		return ""
	}
	s := string(out)
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

// parseTableType decodes one ResTable_type chunk: its entry-offset array
// (one uint32 per entry, noEntry for an absent slot) followed by the
// entries themselves. A complex (map) entry's first name/value pair is
// kept as its resolved value; full style/array expansion is out of scope,
// since attribute lookup only ever needs the entry's own default value.
func parseTableType(chunk []byte, pool []string) (uint8, map[uint16]Value, error) {
	if len(chunk) < 24 {
		return 0, nil, newError(ErrStructure, "table type header", nil)
	}
	typeID := chunk[8]
	entryCount := binary.LittleEndian.Uint32(chunk[12:])
	entriesStart := binary.LittleEndian.Uint32(chunk[16:])
	configSize := binary.LittleEndian.Uint32(chunk[20:])

	offsetsStart := 20 + int(configSize)
	if offsetsStart+int(entryCount)*4 > len(chunk) {
		return 0, nil, newError(ErrStructure, "table type entry offsets", nil)
	}

	entries := make(map[uint16]Value, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		rel := binary.LittleEndian.Uint32(chunk[offsetsStart+int(i)*4:])
		if rel == noEntry {
			continue
		}
		entryOff := int(entriesStart) + int(rel)
		if entryOff+8 > len(chunk) {
			continue
		}
		flags := binary.LittleEndian.Uint16(chunk[entryOff+2:])

		valOff := entryOff + 8
		if flags&tableEntryFlagComplex != 0 {
			valOff += 8 // skip ResTable_map_entry's parent+count, land on the first name
			if valOff+8 > len(chunk) {
				continue
			}
			valOff += 4 // skip the map pair's name, land on its Res_value
		}
		if valOff+8 > len(chunk) {
			continue
		}
		dt := dataType(chunk[valOff+3])
		data := binary.LittleEndian.Uint32(chunk[valOff+4:])
		v, err := decodeValue(data, dt, pool)
		if err != nil {
			continue
		}
		entries[uint16(i)] = v
	}
	return typeID, entries, nil
}
