// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// ValueType tags the payload kind of an EncodedValue.
type ValueType byte

// encoded_value type codes, per the DEX spec's VALUE_* constants.
const (
	ValueByte      ValueType = 0x00
	ValueShort     ValueType = 0x02
	ValueChar      ValueType = 0x03
	ValueInt       ValueType = 0x04
	ValueLong      ValueType = 0x06
	ValueFloat     ValueType = 0x10
	ValueDouble    ValueType = 0x11
	ValueMethodType ValueType = 0x15
	ValueMethodHandle ValueType = 0x16
	ValueString    ValueType = 0x17
	ValueType_     ValueType = 0x18 // "type" is a reserved word; trailing underscore disambiguates.
	ValueField     ValueType = 0x19
	ValueMethod    ValueType = 0x1a
	ValueEnum      ValueType = 0x1b
	ValueArray     ValueType = 0x1c
	ValueAnnotation ValueType = 0x1d
	ValueNull      ValueType = 0x1e
	ValueBoolean   ValueType = 0x1f
)

// EncodedValue is a tagged union mirroring encoded_value: a compact,
// variable-width representation of a constant used in static field
// initializers, annotation elements and default parameter values.
type EncodedValue struct {
	Type   ValueType
	Int    int64           // Byte, Short, Char, Int, Long
	Float  float32
	Double float64
	Bool   bool
	Str    StringIndex     // ValueString
	Idx    uint32          // ValueType_/ValueField/ValueMethod/ValueEnum/ValueMethodType/ValueMethodHandle: pool index
	Array  []EncodedValue  // ValueArray
	Annotation *EncodedAnnotation // ValueAnnotation
}

// EncodedAnnotation is the shared payload of annotation_item and
// encoded_annotation: a type plus a list of (name, value) elements.
type EncodedAnnotation struct {
	TypeIdx  TypeIndex
	Elements []AnnotationElement
}

// AnnotationElement is one (name, value) pair of an EncodedAnnotation.
type AnnotationElement struct {
	NameIdx StringIndex
	Value   EncodedValue
}

// AnnotationVisibility classifies when an annotation_item's annotation is
// retained/visible.
type AnnotationVisibility byte

// Annotation visibility values.
const (
	VisibilityBuild  AnnotationVisibility = 0x00
	VisibilityRuntime AnnotationVisibility = 0x01
	VisibilitySystem AnnotationVisibility = 0x02
)

// AnnotationItem is a visibility tag plus an EncodedAnnotation, addressed by
// file offset.
type AnnotationItem struct {
	Visibility AnnotationVisibility
	Annotation EncodedAnnotation
}

// AnnotationSetItem is a size-prefixed array of annotation_item offsets,
// addressed by file offset.
type AnnotationSetItem struct {
	Entries []uint32 // file offsets of AnnotationItem
}

// FieldAnnotation associates a field with its annotation set.
type FieldAnnotation struct {
	FieldIdx        FieldIndex
	AnnotationsOff  uint32
}

// MethodAnnotation associates a method with its annotation set.
type MethodAnnotation struct {
	MethodIdx       MethodIndex
	AnnotationsOff  uint32
}

// ParameterAnnotation associates a method's parameter list with a
// size-prefixed list of annotation_set_item offsets (one per parameter).
type ParameterAnnotation struct {
	MethodIdx   MethodIndex
	AnnotationsOff uint32
}

// AnnotationsDirectoryItem aggregates every annotation attached to a class:
// the class annotations themselves plus per-field/-method/-parameter sets.
type AnnotationsDirectoryItem struct {
	ClassAnnotationsOff uint32
	FieldAnnotations    []FieldAnnotation
	MethodAnnotations   []MethodAnnotation
	ParameterAnnotations []ParameterAnnotation
}

// CallSiteID is a call_site_id_item: a file offset to an encoded_array_item
// holding the bootstrap method invocation's arguments.
type CallSiteID struct {
	CallSiteOff uint32
	Args        []EncodedValue
}

// MethodHandleItem is a method_handle_item: a handle kind plus the field or
// method it refers to.
type MethodHandleItem struct {
	Kind      MethodHandleKind
	FieldOrMethodIdx uint32
}

// EncodedArrayItem is a size-prefixed array of EncodedValue, used for
// static field initializers (class_def_item.static_values).
type EncodedArrayItem struct {
	Values []EncodedValue
}
