// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// Container is a parsed dex file: the header plus every pool it defines,
// either dense-index-addressed (Strings, Types, Protos, Fields, Methods,
// ClassDefs, CallSites, MethodHandles) or file-offset-addressed (the maps
// keyed by Offset below). It is the one object that owns every parsed
// substructure and is threaded through as the resolution context for
// opaque handles (index.go's Resolvable types).
type Container struct {
	Header Header

	Strings []string
	Types   []TypeID
	Protos  []ProtoID
	Fields  []FieldID
	Methods []MethodID

	ClassDefs     []ClassDef
	CallSites     []CallSiteID
	MethodHandles []MethodHandleItem

	TypeLists              map[Offset]TypeList
	ClassDataItems         map[Offset]*ClassData
	CodeItems              map[Offset]*CodeItem
	DebugInfoItems         map[Offset]*DebugInfo
	EncodedArrayItems      map[Offset]EncodedArrayItem
	AnnotationItems        map[Offset]AnnotationItem
	AnnotationSetItems     map[Offset]AnnotationSetItem
	AnnotationsDirectories map[Offset]AnnotationsDirectoryItem
	HiddenAPIClassData     map[Offset][]HiddenAPIFlag

	MapList []MapItem
}

// NewContainer returns an empty Container with its offset-addressed pools
// initialized, ready to be populated by Parse.
func NewContainer() *Container {
	return &Container{
		TypeLists:              make(map[Offset]TypeList),
		ClassDataItems:         make(map[Offset]*ClassData),
		CodeItems:              make(map[Offset]*CodeItem),
		DebugInfoItems:         make(map[Offset]*DebugInfo),
		EncodedArrayItems:      make(map[Offset]EncodedArrayItem),
		AnnotationItems:        make(map[Offset]AnnotationItem),
		AnnotationSetItems:     make(map[Offset]AnnotationSetItem),
		AnnotationsDirectories: make(map[Offset]AnnotationsDirectoryItem),
		HiddenAPIClassData:     make(map[Offset][]HiddenAPIFlag),
	}
}

// ClassByDescriptor returns the class_def_item whose type descriptor
// matches desc ("Landroid/app/Activity;" form), or false if no such class
// is defined in this container (it may still be referenced as a type
// without a definition, e.g. a framework class).
func (c *Container) ClassByDescriptor(desc string) (*ClassDef, bool) {
	for i := range c.ClassDefs {
		d, err := c.ClassDefs[i].ClassIdx.Resolve(c)
		if err != nil {
			continue
		}
		if d == desc {
			return &c.ClassDefs[i], true
		}
	}
	return nil, false
}

// MethodSignature renders a MethodID's descriptor string
// ("Lpkg/Cls;->name(Ltype;)Lret;"), resolving all indices against c. Used
// by the dwdump CLI and by analysis.Repo for human-readable diagnostics.
func (c *Container) MethodSignature(m *MethodID) (string, error) {
	cls, err := m.ClassIdx.Resolve(c)
	if err != nil {
		return "", err
	}
	name, err := m.NameIdx.Resolve(c)
	if err != nil {
		return "", err
	}
	proto, err := m.ProtoIdx.Resolve(c)
	if err != nil {
		return "", err
	}
	shorty := ""
	_ = shorty
	ret, err := proto.ReturnTypeIdx.Resolve(c)
	if err != nil {
		return "", err
	}
	params := "("
	for i, p := range proto.Parameters {
		t, err := p.Resolve(c)
		if err != nil {
			return "", err
		}
		if i > 0 {
			params += ""
		}
		params += t
	}
	params += ")"
	return cls + "->" + name + params + ret, nil
}
