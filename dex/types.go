// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// TypeID is a type_id_item: a single index into the string pool naming a
// type descriptor (e.g. "Ljava/lang/String;", "I", "[[B").
type TypeID struct {
	DescriptorIdx StringIndex
}

// ProtoID is a proto_id_item: a method prototype (shorty descriptor, return
// type, parameter type list).
type ProtoID struct {
	ShortyIdx    StringIndex
	ReturnTypeIdx TypeIndex
	// ParametersOff is the file offset of the parameters' type_list, or 0
	// if the prototype takes no parameters. Resolved eagerly into
	// Parameters by the reader.
	ParametersOff uint32
	Parameters    []TypeIndex
}

// FieldID is a field_id_item: (declaring type, type, name).
type FieldID struct {
	ClassIdx TypeIndex
	TypeIdx  TypeIndex
	NameIdx  StringIndex
}

// MethodID is a method_id_item: (declaring type, prototype, name). Together
// these resolve to the method descriptor: (definer-type, name, return
// type, parameter type list).
type MethodID struct {
	ClassIdx TypeIndex
	ProtoIdx ProtoIndex
	NameIdx  StringIndex
}

// TypeList is a size-prefixed array of type indices, used for a proto's
// parameter list and a class's interface list. It is addressed by file
// offset.
type TypeList struct {
	Types []TypeIndex
}

// Size returns the encoded byte size of the type_list (4-byte size prefix
// + 2 bytes per entry), before any alignment padding.
func (tl TypeList) Size() uint32 {
	return 4 + uint32(len(tl.Types))*2
}
