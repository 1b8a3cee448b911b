// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// HeaderSize is the fixed, version-independent size of a DEX header_item.
const HeaderSize = 0x70

// Endian tags. LittleEndianTag is the only one this codec writes; the
// big-endian tag is recognized so the reader can report a clear error
// instead of misparsing a foreign-endian file.
const (
	LittleEndianTag uint32 = 0x12345678
	BigEndianTag    uint32 = 0x78563412
)

// Magic is the fixed 4-byte "dex\n" prefix every DEX file starts with.
var Magic = [4]byte{'d', 'e', 'x', '\n'}

// NoIndexSentinel mirrors the on-wire NO_INDEX value (0xffffffff) used by
// class_def_item index fields that may be absent (superclass_idx and
// source_file_idx; the offset fields use 0 for absent).
const NoIndexSentinel uint32 = 0xffffffff

// Header is the fixed-size header_item at the start of every DEX file.
// Checksum covers everything after itself ([12, end)); Signature covers
// everything after itself ([32, end)).
type Header struct {
	Magic         [8]byte
	Checksum      uint32
	Signature     [20]byte
	FileSize      uint32
	HeaderSize    uint32
	EndianTag     uint32
	LinkSize      uint32
	LinkOff       uint32
	MapOff        uint32
	StringIdsSize uint32
	StringIdsOff  uint32
	TypeIdsSize   uint32
	TypeIdsOff    uint32
	ProtoIdsSize  uint32
	ProtoIdsOff   uint32
	FieldIdsSize  uint32
	FieldIdsOff   uint32
	MethodIdsSize uint32
	MethodIdsOff  uint32
	ClassDefsSize uint32
	ClassDefsOff  uint32
	DataSize      uint32
	DataOff       uint32
}

// AccessFlags is a bitset of class/field/method access modifiers.
type AccessFlags uint32

// Access flag bits. Not every bit is meaningful for every item kind; which
// bits apply to classes, fields and methods is documented per constant.
const (
	AccPublic       AccessFlags = 0x1     // class, field, method
	AccPrivate      AccessFlags = 0x2     // class, field, method
	AccProtected    AccessFlags = 0x4     // class, field, method
	AccStatic       AccessFlags = 0x8     // class, field, method
	AccFinal        AccessFlags = 0x10    // class, field, method
	AccSynchronized AccessFlags = 0x20    // method
	AccVolatile     AccessFlags = 0x40    // field
	AccBridge       AccessFlags = 0x40    // method
	AccTransient    AccessFlags = 0x80    // field
	AccVarargs      AccessFlags = 0x80    // method
	AccNative       AccessFlags = 0x100   // method
	AccInterface    AccessFlags = 0x200   // class
	AccAbstract     AccessFlags = 0x400   // class, method
	AccStrict       AccessFlags = 0x800   // method
	AccSynthetic    AccessFlags = 0x1000  // class, field, method
	AccAnnotation   AccessFlags = 0x2000  // class
	AccEnum         AccessFlags = 0x4000  // class, field
	AccConstructor            AccessFlags = 0x10000 // method
	AccDeclaredSynchronized   AccessFlags = 0x20000 // method
)

// Has reports whether every bit of flag is set.
func (a AccessFlags) Has(flag AccessFlags) bool { return a&flag == flag }

// MethodHandleKind enumerates the kinds a method_handle_item may carry.
type MethodHandleKind uint16

// Method handle kinds.
const (
	MethodHandleStaticPut      MethodHandleKind = 0
	MethodHandleStaticGet      MethodHandleKind = 1
	MethodHandleInstancePut    MethodHandleKind = 2
	MethodHandleInstanceGet    MethodHandleKind = 3
	MethodHandleInvokeStatic   MethodHandleKind = 4
	MethodHandleInvokeInstance MethodHandleKind = 5
	MethodHandleInvokeConstructor MethodHandleKind = 6
	MethodHandleInvokeDirect   MethodHandleKind = 7
	MethodHandleInvokeInterface MethodHandleKind = 8
)

// HiddenAPIFlag classifies a class_data method/field's membership in the
// Android hidden-API restriction lists.
type HiddenAPIFlag uint32

// Hidden-API restriction flags.
const (
	HiddenAPIWhitelist         HiddenAPIFlag = 0
	HiddenAPIGreylist          HiddenAPIFlag = 1
	HiddenAPIBlacklist         HiddenAPIFlag = 2
	HiddenAPIGreylistMaxO      HiddenAPIFlag = 3
	HiddenAPIGreylistMaxP      HiddenAPIFlag = 4
	HiddenAPIGreylistMaxQ      HiddenAPIFlag = 5
	HiddenAPIGreylistMaxR      HiddenAPIFlag = 6
)

// MapItemType is the type code tagging an entry in the map_list.
type MapItemType uint16

// Map item type codes.
const (
	TypeHeaderItem              MapItemType = 0x0000
	TypeStringIDItem            MapItemType = 0x0001
	TypeTypeIDItem              MapItemType = 0x0002
	TypeProtoIDItem             MapItemType = 0x0003
	TypeFieldIDItem             MapItemType = 0x0004
	TypeMethodIDItem            MapItemType = 0x0005
	TypeClassDefItem            MapItemType = 0x0006
	TypeCallSiteIDItem          MapItemType = 0x0007
	TypeMethodHandleItem        MapItemType = 0x0008
	TypeMapList                 MapItemType = 0x1000
	TypeTypeList                MapItemType = 0x1001
	TypeAnnotationSetRefList    MapItemType = 0x1002
	TypeAnnotationSetItem       MapItemType = 0x1003
	TypeClassDataItem           MapItemType = 0x2000
	TypeCodeItem                MapItemType = 0x2001
	TypeStringDataItem          MapItemType = 0x2002
	TypeDebugInfoItem           MapItemType = 0x2003
	TypeAnnotationItem          MapItemType = 0x2004
	TypeEncodedArrayItem        MapItemType = 0x2005
	TypeAnnotationsDirectoryItem MapItemType = 0x2006
	TypeHiddenapiClassDataItem  MapItemType = 0xF000
)

func (t MapItemType) String() string {
	names := map[MapItemType]string{
		TypeHeaderItem:               "header_item",
		TypeStringIDItem:             "string_id_item",
		TypeTypeIDItem:               "type_id_item",
		TypeProtoIDItem:              "proto_id_item",
		TypeFieldIDItem:              "field_id_item",
		TypeMethodIDItem:             "method_id_item",
		TypeClassDefItem:             "class_def_item",
		TypeCallSiteIDItem:           "call_site_id_item",
		TypeMethodHandleItem:         "method_handle_item",
		TypeMapList:                  "map_list",
		TypeTypeList:                 "type_list",
		TypeAnnotationSetRefList:     "annotation_set_ref_list",
		TypeAnnotationSetItem:        "annotation_set_item",
		TypeClassDataItem:            "class_data_item",
		TypeCodeItem:                 "code_item",
		TypeStringDataItem:           "string_data_item",
		TypeDebugInfoItem:            "debug_info_item",
		TypeAnnotationItem:           "annotation_item",
		TypeEncodedArrayItem:         "encoded_array_item",
		TypeAnnotationsDirectoryItem: "annotations_directory_item",
		TypeHiddenapiClassDataItem:   "hiddenapi_class_data_item",
	}
	if s, ok := names[t]; ok {
		return s
	}
	return "unknown_item"
}

// MapItem is a single entry of the map_list: a type tag, an item count and
// the file offset where the items of that type begin.
type MapItem struct {
	Type      MapItemType
	Unused    uint16
	Size      uint32
	Offset    uint32
}

// alignment boundaries enforced before each offset-addressed item kind.
const dataAlignment = 4

func alignUp4(off uint32) uint32 {
	if off%dataAlignment == 0 {
		return off
	}
	return off + (dataAlignment - off%dataAlignment)
}
