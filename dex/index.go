// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// Addr is a byte offset within a method's instruction stream.
type Addr uint32

// Offset returns addr shifted by delta (which may be negative, as branch
// targets are signed displacements from the referring instruction).
func (a Addr) Offset(delta int32) Addr {
	return Addr(int64(a) + int64(delta))
}

// StringIndex, TypeIndex, ProtoIndex, FieldIndex and MethodIndex are dense
// ordinals into the corresponding index-addressed pool. They are copyable
// opaque handles: only meaningful together with the Container that
// produced them.
type (
	StringIndex uint32
	TypeIndex   uint32
	ProtoIndex  uint32
	FieldIndex  uint32
	MethodIndex uint32
	CallSiteIndex    uint32
	MethodHandleIndex uint32
)

// NoIndex is the sentinel for an absent index-addressed reference (e.g. a
// class with no superclass, such as java/lang/Object).
const NoIndex = ^uint32(0)

// Offset is a byte offset into the Container's backing buffer, used for
// pools addressed by file offset rather than dense index (type lists, class
// data, code items, debug info, annotations, encoded arrays).
type Offset uint32

// Resolvable is the capability every opaque index type implements: given a
// Container, yield the referenced item.
type Resolvable[T any] interface {
	Resolve(c *Container) (T, error)
}

// Resolve looks up the string at idx. Implements Resolvable[string].
func (idx StringIndex) Resolve(c *Container) (string, error) {
	if int(idx) >= len(c.Strings) {
		return "", newParseError(ErrResNotFound, "string_id", uint32(idx), nil)
	}
	return c.Strings[idx], nil
}

// Resolve looks up the type descriptor at idx. Implements Resolvable[string].
func (idx TypeIndex) Resolve(c *Container) (string, error) {
	if int(idx) >= len(c.Types) {
		return "", newParseError(ErrResNotFound, "type_id", uint32(idx), nil)
	}
	return c.Strings[c.Types[idx].DescriptorIdx], nil
}

// Resolve looks up the proto at idx. Implements Resolvable[*ProtoID].
func (idx ProtoIndex) Resolve(c *Container) (*ProtoID, error) {
	if int(idx) >= len(c.Protos) {
		return nil, newParseError(ErrResNotFound, "proto_id", uint32(idx), nil)
	}
	return &c.Protos[idx], nil
}

// Resolve looks up the field id at idx. Implements Resolvable[*FieldID].
func (idx FieldIndex) Resolve(c *Container) (*FieldID, error) {
	if int(idx) >= len(c.Fields) {
		return nil, newParseError(ErrResNotFound, "field_id", uint32(idx), nil)
	}
	return &c.Fields[idx], nil
}

// Resolve looks up the method id at idx. Implements Resolvable[*MethodID].
func (idx MethodIndex) Resolve(c *Container) (*MethodID, error) {
	if int(idx) >= len(c.Methods) {
		return nil, newParseError(ErrResNotFound, "method_id", uint32(idx), nil)
	}
	return &c.Methods[idx], nil
}
