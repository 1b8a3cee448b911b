// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// EncodedField is a class_data_item field entry. On the wire FieldIdxDiff
// is delta-encoded against the previous entry in its list; the reader
// resolves these at parse time so FieldIdx below is always absolute:
// the reader threads a running accumulator across the list.
type EncodedField struct {
	FieldIdx FieldIndex
	AccessFlags AccessFlags
}

// EncodedMethod is a class_data_item method entry. MethodIdx is the
// resolved absolute index (see EncodedField); CodeOff is the file offset of
// the method's code_item, or 0 for abstract/native methods with no body.
type EncodedMethod struct {
	MethodIdx   MethodIndex
	AccessFlags AccessFlags
	CodeOff     uint32
}

// ClassData is class_data_item: the four field/method lists of a class,
// addressed by file offset. Resolved index values inside each list are
// already absolute (delta-decoded at parse time).
type ClassData struct {
	StaticFields   []EncodedField
	InstanceFields []EncodedField
	DirectMethods  []EncodedMethod
	VirtualMethods []EncodedMethod
}

// ClassDef is class_def_item. Optional references use NoIndex/0 on the wire
// (NoIndexSentinel for SuperclassIdx, 0 for the offset-addressed optionals);
// the reader normalizes these into the Has* booleans below.
type ClassDef struct {
	ClassIdx       TypeIndex
	AccessFlags    AccessFlags
	HasSuperclass  bool
	SuperclassIdx  TypeIndex
	InterfacesOff  uint32
	Interfaces     []TypeIndex
	HasSourceFile  bool
	SourceFileIdx  StringIndex
	AnnotationsOff uint32
	ClassDataOff   uint32
	ClassData      *ClassData
	StaticValuesOff uint32
	StaticValues   *EncodedArrayItem
}
