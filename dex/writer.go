// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/adler32"
	"math"
)

// Write serializes c back to a DEX file image in a fixed layout (see emit),
// aligning type lists and code items to 4 bytes. Annotations, debug info,
// call sites, method handles and hidden-API data are not emitted: a
// class_def's annotations_off and a code item's debug_info_off are copied
// unchanged. When recomputeChecksums is true, the adler32 checksum
// (header offset 8) and SHA-1 signature (offset 12) are patched in after
// the rest of the file is serialized, mirroring how dx/d8 finalize a
// rewritten dex.
func (c *Container) Write(recomputeChecksums bool) ([]byte, error) {
	w := &writer{container: c}
	if err := w.emit(); err != nil {
		return nil, err
	}
	out := w.buf

	binary.LittleEndian.PutUint32(out[32:], uint32(len(out)))

	if recomputeChecksums {
		sig := sha1.Sum(out[32:])
		copy(out[12:32], sig[:])
		sum := adler32.Checksum(out[12:])
		binary.LittleEndian.PutUint32(out[8:], sum)
	}
	return out, nil
}

type writer struct {
	container *Container
	buf       []byte
}

func (w *writer) u16(off uint32, v uint16) { binary.LittleEndian.PutUint16(w.buf[off:], v) }
func (w *writer) u32(off uint32, v uint32) { binary.LittleEndian.PutUint32(w.buf[off:], v) }

func (w *writer) appendPadding(n int) {
	w.buf = append(w.buf, make([]byte, n)...)
}

func (w *writer) align4() {
	if r := len(w.buf) % 4; r != 0 {
		w.appendPadding(4 - r)
	}
}

// emit lays the file out header-first, then string data, string_ids and
// type_ids, proto parameter lists and proto_ids, field_ids and method_ids,
// then per class def its interfaces, static values, code items and
// class_data, then the class_defs, and finally a map_list covering only the
// header, the id pools, the class_defs and the map itself, patching the
// header's offset fields as it goes.
func (w *writer) emit() error {
	c := w.container
	w.buf = make([]byte, HeaderSize)

	stringDataOff := make([]uint32, len(c.Strings))
	for i, s := range c.Strings {
		stringDataOff[i] = uint32(len(w.buf))
		body, count := EncodeMutf8(s)
		w.buf = append(w.buf, AppendUleb128(nil, uint32(count))...)
		w.buf = append(w.buf, body...) // EncodeMutf8 already appends the NUL terminator
	}

	stringIdsOff := uint32(len(w.buf))
	for _, off := range stringDataOff {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], off)
		w.buf = append(w.buf, b[:]...)
	}

	typeIdsOff := uint32(len(w.buf))
	for _, t := range c.Types {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(t.DescriptorIdx))
		w.buf = append(w.buf, b[:]...)
	}

	typeListOff := map[int]uint32{} // keyed by identity index into a flattened list, see below

	// Parameter/interface type_lists are content-addressed in the original
	// container by file offset; re-serialize each exactly once, in the
	// order protos then class defs reference them, and remember the new
	// offset for each distinct slice by pointer identity isn't available in
	// Go for slices, so re-emit per-owner (small duplication vs. sharing,
	// acceptable since type lists are short).
	_ = typeListOff

	protoIdsOff := uint32(0)
	parametersOff := make([]uint32, len(c.Protos))
	var protoTail []byte
	for i, p := range c.Protos {
		if len(p.Parameters) == 0 {
			parametersOff[i] = 0
			continue
		}
		parametersOff[i] = uint32(len(w.buf)) + uint32(len(protoTail))
		var chunk []byte
		var sz [4]byte
		binary.LittleEndian.PutUint32(sz[:], uint32(len(p.Parameters)))
		chunk = append(chunk, sz[:]...)
		for _, t := range p.Parameters {
			var tb [2]byte
			binary.LittleEndian.PutUint16(tb[:], uint16(t))
			chunk = append(chunk, tb[:]...)
		}
		if len(chunk)%4 != 0 {
			chunk = append(chunk, make([]byte, 4-len(chunk)%4)...)
		}
		protoTail = append(protoTail, chunk...)
	}
	w.buf = append(w.buf, protoTail...)

	protoIdsOff = uint32(len(w.buf))
	for i, p := range c.Protos {
		var b [12]byte
		binary.LittleEndian.PutUint32(b[0:], uint32(p.ShortyIdx))
		binary.LittleEndian.PutUint32(b[4:], uint32(p.ReturnTypeIdx))
		binary.LittleEndian.PutUint32(b[8:], parametersOff[i])
		w.buf = append(w.buf, b[:]...)
	}

	fieldIdsOff := uint32(len(w.buf))
	for _, f := range c.Fields {
		var b [8]byte
		binary.LittleEndian.PutUint16(b[0:], uint16(f.ClassIdx))
		binary.LittleEndian.PutUint16(b[2:], uint16(f.TypeIdx))
		binary.LittleEndian.PutUint32(b[4:], uint32(f.NameIdx))
		w.buf = append(w.buf, b[:]...)
	}

	methodIdsOff := uint32(len(w.buf))
	for _, m := range c.Methods {
		var b [8]byte
		binary.LittleEndian.PutUint16(b[0:], uint16(m.ClassIdx))
		binary.LittleEndian.PutUint16(b[2:], uint16(m.ProtoIdx))
		binary.LittleEndian.PutUint32(b[4:], uint32(m.NameIdx))
		w.buf = append(w.buf, b[:]...)
	}

	dataStart := uint32(len(w.buf))

	codeItemOff := map[uint32]uint32{} // old code_item offset -> new

	classDefsOff := uint32(0)
	if len(c.ClassDefs) > 0 {
		classDataOff := make([]uint32, len(c.ClassDefs))
		interfacesOff := make([]uint32, len(c.ClassDefs))
		staticValuesOff := make([]uint32, len(c.ClassDefs))

		for i, cd := range c.ClassDefs {
			if len(cd.Interfaces) > 0 {
				w.align4()
				interfacesOff[i] = uint32(len(w.buf))
				var sz [4]byte
				binary.LittleEndian.PutUint32(sz[:], uint32(len(cd.Interfaces)))
				w.buf = append(w.buf, sz[:]...)
				for _, t := range cd.Interfaces {
					var tb [2]byte
					binary.LittleEndian.PutUint16(tb[:], uint16(t))
					w.buf = append(w.buf, tb[:]...)
				}
			}
			if cd.StaticValues != nil {
				staticValuesOff[i] = uint32(len(w.buf))
				w.buf = append(w.buf, encodeEncodedArray(*cd.StaticValues)...)
			}
			if cd.ClassData != nil {
				for _, lists := range [][]EncodedMethod{cd.ClassData.DirectMethods, cd.ClassData.VirtualMethods} {
					for _, m := range lists {
						if m.CodeOff == 0 {
							continue
						}
						if _, done := codeItemOff[m.CodeOff]; done {
							continue
						}
						ci, ok := c.CodeItems[Offset(m.CodeOff)]
						if !ok {
							continue
						}
						w.align4()
						codeItemOff[m.CodeOff] = uint32(len(w.buf))
						w.buf = append(w.buf, encodeCodeItem(ci)...)
					}
				}
				classDataOff[i] = uint32(len(w.buf))
				w.buf = append(w.buf, encodeClassData(cd.ClassData, codeItemOff)...)
			}
		}

		classDefsOff = uint32(len(w.buf))
		for i, cd := range c.ClassDefs {
			var b [32]byte
			binary.LittleEndian.PutUint32(b[0:], uint32(cd.ClassIdx))
			binary.LittleEndian.PutUint32(b[4:], uint32(cd.AccessFlags))
			if cd.HasSuperclass {
				binary.LittleEndian.PutUint32(b[8:], uint32(cd.SuperclassIdx))
			} else {
				binary.LittleEndian.PutUint32(b[8:], NoIndexSentinel)
			}
			binary.LittleEndian.PutUint32(b[12:], interfacesOff[i])
			if cd.HasSourceFile {
				binary.LittleEndian.PutUint32(b[16:], uint32(cd.SourceFileIdx))
			} else {
				binary.LittleEndian.PutUint32(b[16:], NoIndexSentinel)
			}
			binary.LittleEndian.PutUint32(b[20:], cd.AnnotationsOff)
			binary.LittleEndian.PutUint32(b[24:], classDataOff[i])
			binary.LittleEndian.PutUint32(b[28:], staticValuesOff[i])
			w.buf = append(w.buf, b[:]...)
		}
	}

	w.align4()
	mapOff := uint32(len(w.buf))
	mapEntries := []MapItem{
		{Type: TypeHeaderItem, Size: 1, Offset: 0},
	}
	if len(c.Strings) > 0 {
		mapEntries = append(mapEntries,
			MapItem{Type: TypeStringIDItem, Size: uint32(len(c.Strings)), Offset: stringIdsOff})
	}
	if len(c.Types) > 0 {
		mapEntries = append(mapEntries, MapItem{Type: TypeTypeIDItem, Size: uint32(len(c.Types)), Offset: typeIdsOff})
	}
	if len(c.Protos) > 0 {
		mapEntries = append(mapEntries, MapItem{Type: TypeProtoIDItem, Size: uint32(len(c.Protos)), Offset: protoIdsOff})
	}
	if len(c.Fields) > 0 {
		mapEntries = append(mapEntries, MapItem{Type: TypeFieldIDItem, Size: uint32(len(c.Fields)), Offset: fieldIdsOff})
	}
	if len(c.Methods) > 0 {
		mapEntries = append(mapEntries, MapItem{Type: TypeMethodIDItem, Size: uint32(len(c.Methods)), Offset: methodIdsOff})
	}
	if len(c.ClassDefs) > 0 {
		mapEntries = append(mapEntries, MapItem{Type: TypeClassDefItem, Size: uint32(len(c.ClassDefs)), Offset: classDefsOff})
	}
	mapEntries = append(mapEntries, MapItem{Type: TypeMapList, Size: 1, Offset: mapOff})

	var mb []byte
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(mapEntries)))
	mb = append(mb, countBuf[:]...)
	for _, mi := range mapEntries {
		var e [12]byte
		binary.LittleEndian.PutUint16(e[0:], uint16(mi.Type))
		binary.LittleEndian.PutUint16(e[2:], mi.Unused)
		binary.LittleEndian.PutUint32(e[4:], mi.Size)
		binary.LittleEndian.PutUint32(e[8:], mi.Offset)
		mb = append(mb, e[:]...)
	}
	w.buf = append(w.buf, mb...)

	dataSize := uint32(len(w.buf)) - dataStart

	w.u32(52, mapOff)
	w.u32(56, uint32(len(c.Strings)))
	w.u32(60, stringIdsOff)
	w.u32(64, uint32(len(c.Types)))
	w.u32(68, typeIdsOff)
	w.u32(72, uint32(len(c.Protos)))
	w.u32(76, protoIdsOff)
	w.u32(80, uint32(len(c.Fields)))
	w.u32(84, fieldIdsOff)
	w.u32(88, uint32(len(c.Methods)))
	w.u32(92, methodIdsOff)
	w.u32(96, uint32(len(c.ClassDefs)))
	w.u32(100, classDefsOff)
	w.u32(104, dataSize)
	w.u32(108, dataStart)

	copy(w.buf[0:8], c.Header.Magic[:])
	if w.buf[0] == 0 {
		copy(w.buf[0:4], Magic[:])
		w.buf[4], w.buf[5], w.buf[6] = '0', '3', '5'
		w.buf[7] = 0
	}
	w.u32(36, HeaderSize)
	w.u32(40, LittleEndianTag)

	return nil
}

func encodeEncodedArray(a EncodedArrayItem) []byte {
	out := AppendUleb128(nil, uint32(len(a.Values)))
	for _, v := range a.Values {
		out = append(out, encodeEncodedValue(v)...)
	}
	return out
}

func encodeEncodedValue(v EncodedValue) []byte {
	switch v.Type {
	case ValueByte:
		return []byte{byte(ValueByte), byte(v.Int)}
	case ValueShort:
		return append([]byte{byte(ValueShort) | 0x20}, byte(v.Int), byte(v.Int>>8))
	case ValueChar:
		return append([]byte{byte(ValueChar) | 0x20}, byte(v.Int), byte(v.Int>>8))
	case ValueInt:
		return append([]byte{byte(ValueInt) | 0x60}, byte(v.Int), byte(v.Int>>8), byte(v.Int>>16), byte(v.Int>>24))
	case ValueLong:
		b := []byte{byte(v.Int), byte(v.Int >> 8), byte(v.Int >> 16), byte(v.Int >> 24), byte(v.Int >> 32), byte(v.Int >> 40), byte(v.Int >> 48), byte(v.Int >> 56)}
		return append([]byte{byte(ValueLong) | 0xe0}, b...)
	case ValueFloat:
		b := math.Float32bits(v.Float)
		return append([]byte{byte(ValueFloat) | 0x60}, byte(b), byte(b>>8), byte(b>>16), byte(b>>24))
	case ValueDouble:
		b := math.Float64bits(v.Double)
		return append([]byte{byte(ValueDouble) | 0xe0}, byte(b), byte(b>>8), byte(b>>16), byte(b>>24), byte(b>>32), byte(b>>40), byte(b>>48), byte(b>>56))
	case ValueString:
		return append([]byte{byte(ValueString) | 0x60}, byte(v.Str), byte(v.Str>>8), byte(v.Str>>16), byte(v.Str>>24))
	case ValueType_:
		return append([]byte{byte(ValueType_) | 0x60}, byte(v.Idx), byte(v.Idx>>8), byte(v.Idx>>16), byte(v.Idx>>24))
	case ValueField, ValueMethod, ValueEnum, ValueMethodType, ValueMethodHandle:
		return append([]byte{byte(v.Type) | 0x60}, byte(v.Idx), byte(v.Idx>>8), byte(v.Idx>>16), byte(v.Idx>>24))
	case ValueArray:
		out := []byte{byte(ValueArray)}
		out = append(out, encodeEncodedArray(EncodedArrayItem{Values: v.Array})...)
		return out
	case ValueAnnotation:
		out := []byte{byte(ValueAnnotation)}
		out = append(out, encodeEncodedAnnotation(*v.Annotation)...)
		return out
	case ValueNull:
		return []byte{byte(ValueNull)}
	case ValueBoolean:
		tag := byte(ValueBoolean)
		if v.Bool {
			tag |= 0x20
		}
		return []byte{tag}
	}
	return []byte{byte(v.Type)}
}

func encodeEncodedAnnotation(a EncodedAnnotation) []byte {
	out := AppendUleb128(nil, uint32(a.TypeIdx))
	out = AppendUleb128(out, uint32(len(a.Elements)))
	for _, e := range a.Elements {
		out = AppendUleb128(out, uint32(e.NameIdx))
		out = append(out, encodeEncodedValue(e.Value)...)
	}
	return out
}

func encodeClassData(cd *ClassData, codeItemOff map[uint32]uint32) []byte {
	out := AppendUleb128(nil, uint32(len(cd.StaticFields)))
	out = AppendUleb128(out, uint32(len(cd.InstanceFields)))
	out = AppendUleb128(out, uint32(len(cd.DirectMethods)))
	out = AppendUleb128(out, uint32(len(cd.VirtualMethods)))
	out = appendEncodedFields(out, cd.StaticFields)
	out = appendEncodedFields(out, cd.InstanceFields)
	out = appendEncodedMethods(out, cd.DirectMethods, codeItemOff)
	out = appendEncodedMethods(out, cd.VirtualMethods, codeItemOff)
	return out
}

func appendEncodedFields(out []byte, fields []EncodedField) []byte {
	var prev uint32
	for _, f := range fields {
		out = AppendUleb128(out, uint32(f.FieldIdx)-prev)
		out = AppendUleb128(out, uint32(f.AccessFlags))
		prev = uint32(f.FieldIdx)
	}
	return out
}

func appendEncodedMethods(out []byte, methods []EncodedMethod, codeItemOff map[uint32]uint32) []byte {
	var prev uint32
	for _, m := range methods {
		out = AppendUleb128(out, uint32(m.MethodIdx)-prev)
		out = AppendUleb128(out, uint32(m.AccessFlags))
		newOff := codeItemOff[m.CodeOff]
		out = AppendUleb128(out, newOff)
		prev = uint32(m.MethodIdx)
	}
	return out
}

// encodeCodeItem serializes a code_item: fixed header, instruction stream,
// then the optional 4-aligned tries/handlers tail.
func encodeCodeItem(ci *CodeItem) []byte {
	ci.Mu.RLock()
	defer ci.Mu.RUnlock()

	out := make([]byte, 16)
	binary.LittleEndian.PutUint16(out[0:], ci.RegistersSize)
	binary.LittleEndian.PutUint16(out[2:], ci.InsSize)
	binary.LittleEndian.PutUint16(out[4:], ci.OutsSize)
	binary.LittleEndian.PutUint16(out[6:], uint16(len(ci.Tries)))
	binary.LittleEndian.PutUint32(out[8:], ci.DebugInfoOff)
	binary.LittleEndian.PutUint32(out[12:], uint32(len(ci.rawInsns)/2))
	out = append(out, ci.rawInsns...)

	if len(ci.Tries) == 0 {
		return out
	}
	if len(out)%4 != 0 {
		out = append(out, 0, 0)
	}
	for _, t := range ci.Tries {
		var b [8]byte
		binary.LittleEndian.PutUint32(b[0:], uint32(t.StartAddr))
		binary.LittleEndian.PutUint16(b[4:], t.InsnCount)
		binary.LittleEndian.PutUint16(b[6:], t.HandlerOff)
		out = append(out, b[:]...)
	}
	handlersTail := AppendUleb128(nil, uint32(len(ci.Handlers)))
	for _, h := range ci.Handlers {
		size := int32(len(h.Handlers))
		if h.HasCatchAll {
			size = -size
		}
		handlersTail = AppendSleb128(handlersTail, size)
		for _, e := range h.Handlers {
			handlersTail = AppendUleb128(handlersTail, uint32(e.TypeIdx))
			handlersTail = AppendUleb128(handlersTail, uint32(e.Addr))
		}
		if h.HasCatchAll {
			handlersTail = AppendUleb128(handlersTail, uint32(h.CatchAllAddr))
		}
	}
	out = append(out, handlersTail...)
	return out
}
