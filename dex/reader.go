// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"encoding/binary"
	"math"
)

// Parse decodes a complete DEX file image into a Container. Parsing is
// all-or-nothing: the first structural error aborts the whole parse and is
// returned as a *ParseError, rather than returning a partially populated
// Container.
func Parse(data []byte) (*Container, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	c := NewContainer()
	c.Header = hdr

	if err := parseStrings(c, data); err != nil {
		return nil, err
	}
	if err := parseTypes(c, data); err != nil {
		return nil, err
	}
	if err := parseProtos(c, data); err != nil {
		return nil, err
	}
	if err := parseFields(c, data); err != nil {
		return nil, err
	}
	if err := parseMethods(c, data); err != nil {
		return nil, err
	}
	if err := parseMapList(c, data); err != nil {
		return nil, err
	}
	if err := parseOffsetPools(c, data); err != nil {
		return nil, err
	}
	if err := parseClassDefs(c, data); err != nil {
		return nil, err
	}
	if err := parseCallSitesAndHandles(c, data); err != nil {
		return nil, err
	}

	return c, nil
}

func parseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, newParseError(ErrStructure, "header_item", 0, nil)
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return h, newParseError(ErrStructure, "header_item", 0, nil)
	}
	copy(h.Magic[:], data[0:8])
	h.Checksum = binary.LittleEndian.Uint32(data[8:12])
	copy(h.Signature[:], data[12:32])
	h.FileSize = binary.LittleEndian.Uint32(data[32:36])
	h.HeaderSize = binary.LittleEndian.Uint32(data[36:40])
	h.EndianTag = binary.LittleEndian.Uint32(data[40:44])
	h.LinkSize = binary.LittleEndian.Uint32(data[44:48])
	h.LinkOff = binary.LittleEndian.Uint32(data[48:52])
	h.MapOff = binary.LittleEndian.Uint32(data[52:56])
	h.StringIdsSize = binary.LittleEndian.Uint32(data[56:60])
	h.StringIdsOff = binary.LittleEndian.Uint32(data[60:64])
	h.TypeIdsSize = binary.LittleEndian.Uint32(data[64:68])
	h.TypeIdsOff = binary.LittleEndian.Uint32(data[68:72])
	h.ProtoIdsSize = binary.LittleEndian.Uint32(data[72:76])
	h.ProtoIdsOff = binary.LittleEndian.Uint32(data[76:80])
	h.FieldIdsSize = binary.LittleEndian.Uint32(data[80:84])
	h.FieldIdsOff = binary.LittleEndian.Uint32(data[84:88])
	h.MethodIdsSize = binary.LittleEndian.Uint32(data[88:92])
	h.MethodIdsOff = binary.LittleEndian.Uint32(data[92:96])
	h.ClassDefsSize = binary.LittleEndian.Uint32(data[96:100])
	h.ClassDefsOff = binary.LittleEndian.Uint32(data[100:104])
	h.DataSize = binary.LittleEndian.Uint32(data[104:108])
	h.DataOff = binary.LittleEndian.Uint32(data[108:112])

	if h.EndianTag == BigEndianTag {
		return h, newParseError(ErrStructure, "header_item", 40, nil)
	}
	if h.EndianTag != LittleEndianTag {
		return h, newParseError(ErrStructure, "header_item", 40, nil)
	}
	if int(h.FileSize) > len(data) {
		return h, newParseError(ErrStructure, "header_item", 32, nil)
	}
	return h, nil
}

func parseStrings(c *Container, data []byte) error {
	c.Strings = make([]string, c.Header.StringIdsSize)
	for i := uint32(0); i < c.Header.StringIdsSize; i++ {
		idOff := c.Header.StringIdsOff + i*4
		if int(idOff)+4 > len(data) {
			return newParseError(ErrStructure, "string_id_item", idOff, nil)
		}
		dataOff := binary.LittleEndian.Uint32(data[idOff:])
		s, err := parseStringData(data, dataOff)
		if err != nil {
			return err
		}
		c.Strings[i] = s
	}
	return nil
}

func parseStringData(data []byte, off uint32) (string, error) {
	count, n, err := ReadUleb128(data, off)
	if err != nil {
		return "", newParseError(ErrStructure, "string_data_item", off, err)
	}
	off += n
	// find the NUL terminator conservatively by scanning; modified-UTF8
	// strings never embed a raw 0x00 byte (NUL is encoded as 0xC0 0x80).
	end := off
	for int(end) < len(data) && data[end] != 0x00 {
		end++
	}
	if int(end) >= len(data) {
		return "", newParseError(ErrStructure, "string_data_item", off, nil)
	}
	s, err := DecodeMutf8(data[off:end], int(count))
	if err != nil {
		return "", newParseError(ErrInvalidMutf8, "string_data_item", off, err)
	}
	return s, nil
}

func parseTypes(c *Container, data []byte) error {
	c.Types = make([]TypeID, c.Header.TypeIdsSize)
	for i := uint32(0); i < c.Header.TypeIdsSize; i++ {
		off := c.Header.TypeIdsOff + i*4
		if int(off)+4 > len(data) {
			return newParseError(ErrStructure, "type_id_item", off, nil)
		}
		c.Types[i] = TypeID{DescriptorIdx: StringIndex(binary.LittleEndian.Uint32(data[off:]))}
	}
	return nil
}

func parseTypeListAt(c *Container, data []byte, off uint32) (TypeList, error) {
	if off == 0 {
		return TypeList{}, nil
	}
	if tl, ok := c.TypeLists[Offset(off)]; ok {
		return tl, nil
	}
	if int(off)+4 > len(data) {
		return TypeList{}, newParseError(ErrStructure, "type_list", off, nil)
	}
	size := binary.LittleEndian.Uint32(data[off:])
	tl := TypeList{Types: make([]TypeIndex, size)}
	pos := off + 4
	for i := uint32(0); i < size; i++ {
		if int(pos)+2 > len(data) {
			return TypeList{}, newParseError(ErrStructure, "type_list", pos, nil)
		}
		tl.Types[i] = TypeIndex(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
	}
	c.TypeLists[Offset(off)] = tl
	return tl, nil
}

func parseProtos(c *Container, data []byte) error {
	c.Protos = make([]ProtoID, c.Header.ProtoIdsSize)
	for i := uint32(0); i < c.Header.ProtoIdsSize; i++ {
		off := c.Header.ProtoIdsOff + i*12
		if int(off)+12 > len(data) {
			return newParseError(ErrStructure, "proto_id_item", off, nil)
		}
		p := ProtoID{
			ShortyIdx:     StringIndex(binary.LittleEndian.Uint32(data[off:])),
			ReturnTypeIdx: TypeIndex(binary.LittleEndian.Uint32(data[off+4:])),
			ParametersOff: binary.LittleEndian.Uint32(data[off+8:]),
		}
		tl, err := parseTypeListAt(c, data, p.ParametersOff)
		if err != nil {
			return err
		}
		p.Parameters = tl.Types
		c.Protos[i] = p
	}
	return nil
}

func parseFields(c *Container, data []byte) error {
	c.Fields = make([]FieldID, c.Header.FieldIdsSize)
	for i := uint32(0); i < c.Header.FieldIdsSize; i++ {
		off := c.Header.FieldIdsOff + i*8
		if int(off)+8 > len(data) {
			return newParseError(ErrStructure, "field_id_item", off, nil)
		}
		c.Fields[i] = FieldID{
			ClassIdx: TypeIndex(binary.LittleEndian.Uint16(data[off:])),
			TypeIdx:  TypeIndex(binary.LittleEndian.Uint16(data[off+2:])),
			NameIdx:  StringIndex(binary.LittleEndian.Uint32(data[off+4:])),
		}
	}
	return nil
}

func parseMethods(c *Container, data []byte) error {
	c.Methods = make([]MethodID, c.Header.MethodIdsSize)
	for i := uint32(0); i < c.Header.MethodIdsSize; i++ {
		off := c.Header.MethodIdsOff + i*8
		if int(off)+8 > len(data) {
			return newParseError(ErrStructure, "method_id_item", off, nil)
		}
		c.Methods[i] = MethodID{
			ClassIdx: TypeIndex(binary.LittleEndian.Uint16(data[off:])),
			ProtoIdx: ProtoIndex(binary.LittleEndian.Uint16(data[off+2:])),
			NameIdx:  StringIndex(binary.LittleEndian.Uint32(data[off+4:])),
		}
	}
	return nil
}

func parseMapList(c *Container, data []byte) error {
	off := c.Header.MapOff
	if off == 0 {
		return nil
	}
	if int(off)+4 > len(data) {
		return newParseError(ErrStructure, "map_list", off, nil)
	}
	size := binary.LittleEndian.Uint32(data[off:])
	pos := off + 4
	c.MapList = make([]MapItem, size)
	for i := uint32(0); i < size; i++ {
		if int(pos)+12 > len(data) {
			return newParseError(ErrStructure, "map_list", pos, nil)
		}
		c.MapList[i] = MapItem{
			Type:   MapItemType(binary.LittleEndian.Uint16(data[pos:])),
			Unused: binary.LittleEndian.Uint16(data[pos+2:]),
			Size:   binary.LittleEndian.Uint32(data[pos+4:]),
			Offset: binary.LittleEndian.Uint32(data[pos+8:]),
		}
		pos += 12
	}
	return nil
}

// parseOffsetPools walks the map_list and eagerly decodes the
// offset-addressed item kinds that are not reached through a class_def:
// encoded arrays, annotation items, annotation sets and annotations
// directories. Class data and code items are decoded from the class defs;
// hidden-API class data is not decoded.
func parseOffsetPools(c *Container, data []byte) error {
	for _, mi := range c.MapList {
		switch mi.Type {
		case TypeEncodedArrayItem:
			off := mi.Offset
			for i := uint32(0); i < mi.Size; i++ {
				arr, n, err := parseEncodedArray(data, off)
				if err != nil {
					return err
				}
				c.EncodedArrayItems[Offset(off)] = arr
				off += n
			}
		case TypeAnnotationItem:
			off := mi.Offset
			for i := uint32(0); i < mi.Size; i++ {
				item, n, err := parseAnnotationItem(data, off)
				if err != nil {
					return err
				}
				c.AnnotationItems[Offset(off)] = item
				off += n
			}
		case TypeAnnotationSetItem:
			off := mi.Offset
			for i := uint32(0); i < mi.Size; i++ {
				if int(off)+4 > len(data) {
					return newParseError(ErrStructure, "annotation_set_item", off, nil)
				}
				size := binary.LittleEndian.Uint32(data[off:])
				set := AnnotationSetItem{Entries: make([]uint32, size)}
				pos := off + 4
				for j := uint32(0); j < size; j++ {
					set.Entries[j] = binary.LittleEndian.Uint32(data[pos:])
					pos += 4
				}
				c.AnnotationSetItems[Offset(off)] = set
				off = pos
			}
		case TypeAnnotationsDirectoryItem:
			off := mi.Offset
			for i := uint32(0); i < mi.Size; i++ {
				dir, n, err := parseAnnotationsDirectory(data, off)
				if err != nil {
					return err
				}
				c.AnnotationsDirectories[Offset(off)] = dir
				off += n
			}
		}
	}
	return nil
}

func parseEncodedArray(data []byte, off uint32) (EncodedArrayItem, uint32, error) {
	start := off
	size, n, err := ReadUleb128(data, off)
	if err != nil {
		return EncodedArrayItem{}, 0, err
	}
	off += n
	vals := make([]EncodedValue, size)
	for i := uint32(0); i < size; i++ {
		v, m, err := decodeEncodedValue(data, off)
		if err != nil {
			return EncodedArrayItem{}, 0, err
		}
		vals[i] = v
		off += m
	}
	return EncodedArrayItem{Values: vals}, off - start, nil
}

func parseAnnotationItem(data []byte, off uint32) (AnnotationItem, uint32, error) {
	if int(off)+1 > len(data) {
		return AnnotationItem{}, 0, newParseError(ErrStructure, "annotation_item", off, nil)
	}
	vis := AnnotationVisibility(data[off])
	ann, n, err := decodeEncodedAnnotation(data, off+1)
	if err != nil {
		return AnnotationItem{}, 0, err
	}
	return AnnotationItem{Visibility: vis, Annotation: ann}, n + 1, nil
}

func parseAnnotationsDirectory(data []byte, off uint32) (AnnotationsDirectoryItem, uint32, error) {
	start := off
	if int(off)+16 > len(data) {
		return AnnotationsDirectoryItem{}, 0, newParseError(ErrStructure, "annotations_directory_item", off, nil)
	}
	dir := AnnotationsDirectoryItem{
		ClassAnnotationsOff: binary.LittleEndian.Uint32(data[off:]),
	}
	fieldsSize := binary.LittleEndian.Uint32(data[off+4:])
	methodsSize := binary.LittleEndian.Uint32(data[off+8:])
	paramsSize := binary.LittleEndian.Uint32(data[off+12:])
	pos := off + 16
	for i := uint32(0); i < fieldsSize; i++ {
		dir.FieldAnnotations = append(dir.FieldAnnotations, FieldAnnotation{
			FieldIdx:       FieldIndex(binary.LittleEndian.Uint32(data[pos:])),
			AnnotationsOff: binary.LittleEndian.Uint32(data[pos+4:]),
		})
		pos += 8
	}
	for i := uint32(0); i < methodsSize; i++ {
		dir.MethodAnnotations = append(dir.MethodAnnotations, MethodAnnotation{
			MethodIdx:      MethodIndex(binary.LittleEndian.Uint32(data[pos:])),
			AnnotationsOff: binary.LittleEndian.Uint32(data[pos+4:]),
		})
		pos += 8
	}
	for i := uint32(0); i < paramsSize; i++ {
		dir.ParameterAnnotations = append(dir.ParameterAnnotations, ParameterAnnotation{
			MethodIdx:      MethodIndex(binary.LittleEndian.Uint32(data[pos:])),
			AnnotationsOff: binary.LittleEndian.Uint32(data[pos+4:]),
		})
		pos += 8
	}
	return dir, pos - start, nil
}

func decodeEncodedValue(data []byte, off uint32) (EncodedValue, uint32, error) {
	if int(off)+1 > len(data) {
		return EncodedValue{}, 0, newParseError(ErrStructure, "encoded_value", off, nil)
	}
	tag := data[off]
	valueType := ValueType(tag & 0x1f)
	argSize := int(tag>>5) + 1
	pos := off + 1

	readWidth := func(n int) (uint64, error) {
		if int(pos)+n > len(data) {
			return 0, newParseError(ErrStructure, "encoded_value", pos, nil)
		}
		var v uint64
		for i := 0; i < n; i++ {
			v |= uint64(data[int(pos)+i]) << (8 * i)
		}
		pos += uint32(n)
		return v, nil
	}

	ev := EncodedValue{Type: valueType}
	switch valueType {
	case ValueByte:
		v, err := readWidth(1)
		if err != nil {
			return ev, 0, err
		}
		ev.Int = int64(int8(v))
	case ValueShort:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Int = signExtend(v, argSize)
	case ValueChar:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Int = int64(v)
	case ValueInt:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Int = signExtend(v, argSize)
	case ValueLong:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Int = int64(v)
		if argSize < 8 {
			ev.Int = signExtend(v, argSize)
		}
	case ValueFloat:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Float = float32FromBits(uint32(v) << uint((4-argSize)*8))
	case ValueDouble:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Double = float64FromBits(v << uint((8-argSize)*8))
	case ValueMethodType, ValueMethodHandle, ValueField, ValueMethod, ValueEnum:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Idx = uint32(v)
	case ValueString:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Str = StringIndex(v)
	case ValueType_:
		v, err := readWidth(argSize)
		if err != nil {
			return ev, 0, err
		}
		ev.Idx = uint32(v)
	case ValueArray:
		arr, n, err := parseEncodedArray(data, pos)
		if err != nil {
			return ev, 0, err
		}
		ev.Array = arr.Values
		pos += n
	case ValueAnnotation:
		ann, n, err := decodeEncodedAnnotation(data, pos)
		if err != nil {
			return ev, 0, err
		}
		ev.Annotation = &ann
		pos += n
	case ValueNull:
		// no payload
	case ValueBoolean:
		ev.Bool = tag>>5 == 1
	default:
		return ev, 0, newParseError(ErrStructure, "encoded_value", off, nil)
	}
	return ev, pos - off, nil
}

func signExtend(v uint64, nbytes int) int64 {
	bits := uint(nbytes * 8)
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }

func float64FromBits(b uint64) float64 { return math.Float64frombits(b) }

func decodeEncodedAnnotation(data []byte, off uint32) (EncodedAnnotation, uint32, error) {
	start := off
	typeIdx, n, err := ReadUleb128(data, off)
	if err != nil {
		return EncodedAnnotation{}, 0, err
	}
	off += n
	size, n, err := ReadUleb128(data, off)
	if err != nil {
		return EncodedAnnotation{}, 0, err
	}
	off += n
	elems := make([]AnnotationElement, size)
	for i := uint32(0); i < size; i++ {
		nameIdx, n, err := ReadUleb128(data, off)
		if err != nil {
			return EncodedAnnotation{}, 0, err
		}
		off += n
		val, n, err := decodeEncodedValue(data, off)
		if err != nil {
			return EncodedAnnotation{}, 0, err
		}
		off += n
		elems[i] = AnnotationElement{NameIdx: StringIndex(nameIdx), Value: val}
	}
	return EncodedAnnotation{TypeIdx: TypeIndex(typeIdx), Elements: elems}, off - start, nil
}

func parseClassDefs(c *Container, data []byte) error {
	c.ClassDefs = make([]ClassDef, c.Header.ClassDefsSize)
	for i := uint32(0); i < c.Header.ClassDefsSize; i++ {
		off := c.Header.ClassDefsOff + i*32
		if int(off)+32 > len(data) {
			return newParseError(ErrStructure, "class_def_item", off, nil)
		}
		cd := ClassDef{
			ClassIdx:        TypeIndex(binary.LittleEndian.Uint32(data[off:])),
			AccessFlags:     AccessFlags(binary.LittleEndian.Uint32(data[off+4:])),
			InterfacesOff:   binary.LittleEndian.Uint32(data[off+12:]),
			AnnotationsOff:  binary.LittleEndian.Uint32(data[off+20:]),
			ClassDataOff:    binary.LittleEndian.Uint32(data[off+24:]),
			StaticValuesOff: binary.LittleEndian.Uint32(data[off+28:]),
		}
		superIdx := binary.LittleEndian.Uint32(data[off+8:])
		if superIdx != NoIndexSentinel {
			cd.HasSuperclass = true
			cd.SuperclassIdx = TypeIndex(superIdx)
		}
		srcFileIdx := binary.LittleEndian.Uint32(data[off+16:])
		if srcFileIdx != NoIndexSentinel {
			cd.HasSourceFile = true
			cd.SourceFileIdx = StringIndex(srcFileIdx)
		}

		tl, err := parseTypeListAt(c, data, cd.InterfacesOff)
		if err != nil {
			return err
		}
		cd.Interfaces = tl.Types

		if cd.ClassDataOff != 0 {
			classData, err := parseClassDataAt(c, data, cd.ClassDataOff)
			if err != nil {
				return err
			}
			cd.ClassData = classData
		}
		if cd.StaticValuesOff != 0 {
			arr, ok := c.EncodedArrayItems[Offset(cd.StaticValuesOff)]
			if !ok {
				var n uint32
				arr, n, err = parseEncodedArray(data, cd.StaticValuesOff)
				if err != nil {
					return err
				}
				c.EncodedArrayItems[Offset(cd.StaticValuesOff)] = arr
				_ = n
			}
			cd.StaticValues = &arr
		}

		c.ClassDefs[i] = cd
	}
	return nil
}

func parseClassDataAt(c *Container, data []byte, off uint32) (*ClassData, error) {
	if cd, ok := c.ClassDataItems[Offset(off)]; ok {
		return cd, nil
	}
	start := off
	staticCount, n, err := ReadUleb128(data, off)
	if err != nil {
		return nil, err
	}
	off += n
	instanceCount, n, err := ReadUleb128(data, off)
	if err != nil {
		return nil, err
	}
	off += n
	directCount, n, err := ReadUleb128(data, off)
	if err != nil {
		return nil, err
	}
	off += n
	virtualCount, n, err := ReadUleb128(data, off)
	if err != nil {
		return nil, err
	}
	off += n

	cd := &ClassData{}
	cd.StaticFields, off, err = parseEncodedFields(data, off, staticCount)
	if err != nil {
		return nil, err
	}
	cd.InstanceFields, off, err = parseEncodedFields(data, off, instanceCount)
	if err != nil {
		return nil, err
	}
	cd.DirectMethods, off, err = parseEncodedMethods(c, data, off, directCount)
	if err != nil {
		return nil, err
	}
	cd.VirtualMethods, off, err = parseEncodedMethods(c, data, off, virtualCount)
	if err != nil {
		return nil, err
	}

	c.ClassDataItems[Offset(start)] = cd
	return cd, nil
}

func parseEncodedFields(data []byte, off, count uint32) ([]EncodedField, uint32, error) {
	fields := make([]EncodedField, count)
	var running uint32
	for i := uint32(0); i < count; i++ {
		diff, n, err := ReadUleb128(data, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		running += diff
		flags, n, err := ReadUleb128(data, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		fields[i] = EncodedField{FieldIdx: FieldIndex(running), AccessFlags: AccessFlags(flags)}
	}
	return fields, off, nil
}

func parseEncodedMethods(c *Container, data []byte, off, count uint32) ([]EncodedMethod, uint32, error) {
	methods := make([]EncodedMethod, count)
	var running uint32
	for i := uint32(0); i < count; i++ {
		diff, n, err := ReadUleb128(data, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		running += diff
		flags, n, err := ReadUleb128(data, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		codeOff, n, err := ReadUleb128(data, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		methods[i] = EncodedMethod{MethodIdx: MethodIndex(running), AccessFlags: AccessFlags(flags), CodeOff: codeOff}
		if codeOff != 0 {
			if _, ok := c.CodeItems[Offset(codeOff)]; !ok {
				ci, err := parseCodeItem(data, codeOff)
				if err != nil {
					return nil, 0, err
				}
				c.CodeItems[Offset(codeOff)] = ci
			}
		}
	}
	return methods, off, nil
}

func parseCodeItem(data []byte, off uint32) (*CodeItem, error) {
	if int(off)+16 > len(data) {
		return nil, newParseError(ErrStructure, "code_item", off, nil)
	}
	ci := &CodeItem{
		RegistersSize: binary.LittleEndian.Uint16(data[off:]),
		InsSize:       binary.LittleEndian.Uint16(data[off+2:]),
		OutsSize:      binary.LittleEndian.Uint16(data[off+4:]),
		DebugInfoOff:  binary.LittleEndian.Uint32(data[off+8:]),
	}
	triesSize := binary.LittleEndian.Uint16(data[off+6:])
	insnsSize := binary.LittleEndian.Uint32(data[off+12:])
	pos := off + 16

	insnsEnd := pos + insnsSize*2
	if int(insnsEnd) > len(data) {
		return nil, newParseError(ErrStructure, "code_item", pos, nil)
	}
	ci.rawInsns = make([]byte, insnsSize*2)
	copy(ci.rawInsns, data[pos:insnsEnd])
	pos = insnsEnd

	if ci.DebugInfoOff != 0 {
		di, err := decodeDebugInfo(data, ci.DebugInfoOff)
		if err != nil {
			return nil, err
		}
		ci.DebugInfo = di
	}

	decoded, err := decodeInstructionStream(ci.rawInsns)
	if err != nil {
		return nil, err
	}
	ci.Instructions = decoded

	if triesSize > 0 {
		pos = alignUp4(pos)
		tries := make([]TryItem, triesSize)
		for i := uint16(0); i < triesSize; i++ {
			if int(pos)+8 > len(data) {
				return nil, newParseError(ErrStructure, "try_item", pos, nil)
			}
			tries[i] = TryItem{
				StartAddr:  Addr(binary.LittleEndian.Uint32(data[pos:])),
				InsnCount:  binary.LittleEndian.Uint16(data[pos+4:]),
				HandlerOff: binary.LittleEndian.Uint16(data[pos+6:]),
			}
			pos += 8
		}

		handlerListStart := pos
		handlersSize, n, err := ReadUleb128(data, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		handlerAtOffset := map[uint32]int{}
		handlers := make([]CatchHandlerList, 0, handlersSize)
		for i := uint32(0); i < handlersSize; i++ {
			relOff := pos - handlerListStart
			size, n, err := ReadSleb128(data, pos)
			if err != nil {
				return nil, err
			}
			pos += n
			abs := size
			if abs < 0 {
				abs = -abs
			}
			chl := CatchHandlerList{}
			for j := int32(0); j < abs; j++ {
				typeIdx, n, err := ReadUleb128(data, pos)
				if err != nil {
					return nil, err
				}
				pos += n
				addr, n, err := ReadUleb128(data, pos)
				if err != nil {
					return nil, err
				}
				pos += n
				chl.Handlers = append(chl.Handlers, CatchHandler{TypeIdx: TypeIndex(typeIdx), Addr: Addr(addr)})
			}
			if size <= 0 {
				addr, n, err := ReadUleb128(data, pos)
				if err != nil {
					return nil, err
				}
				pos += n
				chl.HasCatchAll = true
				chl.CatchAllAddr = Addr(addr)
			}
			handlerAtOffset[relOff] = len(handlers)
			handlers = append(handlers, chl)
		}
		for i := range tries {
			idx, ok := handlerAtOffset[uint32(tries[i].HandlerOff)]
			if !ok {
				return nil, newParseError(ErrStructure, "try_item", uint32(tries[i].HandlerOff), nil)
			}
			tries[i].HandlerIdx = idx
		}
		ci.Tries = tries
		ci.Handlers = handlers
	}

	return ci, nil
}

func parseCallSitesAndHandles(c *Container, data []byte) error {
	for _, mi := range c.MapList {
		if mi.Type == TypeCallSiteIDItem {
			c.CallSites = make([]CallSiteID, mi.Size)
			off := mi.Offset
			for i := uint32(0); i < mi.Size; i++ {
				if int(off)+4 > len(data) {
					return newParseError(ErrStructure, "call_site_id_item", off, nil)
				}
				csOff := binary.LittleEndian.Uint32(data[off:])
				arr, ok := c.EncodedArrayItems[Offset(csOff)]
				if !ok {
					var n uint32
					var err error
					arr, n, err = parseEncodedArray(data, csOff)
					if err != nil {
						return err
					}
					c.EncodedArrayItems[Offset(csOff)] = arr
					_ = n
				}
				c.CallSites[i] = CallSiteID{CallSiteOff: csOff, Args: arr.Values}
				off += 4
			}
		}
	}

	// method_handle_item has no header size/off pair of its own; like
	// call_site_id_item it is located solely via the map_list, since both
	// were introduced after the header layout was frozen.
	for _, mi := range c.MapList {
		if mi.Type == TypeMethodHandleItem {
			c.MethodHandles = make([]MethodHandleItem, mi.Size)
			off := mi.Offset
			for i := uint32(0); i < mi.Size; i++ {
				if int(off)+8 > len(data) {
					return newParseError(ErrStructure, "method_handle_item", off, nil)
				}
				c.MethodHandles[i] = MethodHandleItem{
					Kind:             MethodHandleKind(binary.LittleEndian.Uint16(data[off:])),
					FieldOrMethodIdx: uint32(binary.LittleEndian.Uint16(data[off+4:])),
				}
				off += 8
			}
		}
	}
	return nil
}
