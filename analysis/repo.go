// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"regexp"

	"droidworks/dex"
)

// ClassUid identifies a class_def_item uniquely across every dex
// registered with a Repo: which dex defined it, and its class_def index
// within that dex.
type ClassUid struct {
	DexIdx      int
	ClassDefIdx int
}

// MethodUid identifies a method_id_item (not necessarily one with a body)
// within a specific dex.
type MethodUid struct {
	DexIdx    int
	MethodIdx dex.MethodIndex
}

// FieldUid identifies a field_id_item within a specific dex.
type FieldUid struct {
	DexIdx   int
	FieldIdx dex.FieldIndex
}

// classOrigin tracks, per registered descriptor, who registered it and
// whether that registration carried an actual class_data_item (a "body")
// or was a class_def_item without one (a declared stub).
type classOrigin struct {
	isSystem bool
	hasBody  bool
}

// Repo aggregates one or more parsed dex.Container values into a single
// queryable multi-dex application view. Classes are deduped by descriptor
// across dexes: a later registration replaces an earlier one, with one
// exception: a system dex redefining a class already registered from an
// application dex with a body is skipped, so a framework stub can never
// shadow a real application class (see RegisterDex).
type Repo struct {
	dexes []*dex.Container

	classByDescriptor map[string]ClassUid
	classOrigin       map[string]classOrigin
	// definedIn records every dex a descriptor appears defined in, so
	// duplicate-definition can be reported without losing the winning one.
	definedIn map[string][]int

	hierarchy *hierarchy
}

// NewRepo returns an empty Repo.
func NewRepo() *Repo {
	return &Repo{
		classByDescriptor: make(map[string]ClassUid),
		classOrigin:       make(map[string]classOrigin),
		definedIn:         make(map[string][]int),
	}
}

// DexCount returns the number of dexes registered so far. The index a
// following RegisterDex call will assign is always the current DexCount.
func (r *Repo) DexCount() int {
	return len(r.dexes)
}

// RegisterDex adds c's classes to the repo. isSystem marks c as part of the
// bootclasspath rather than the application under analysis: a system
// registration for a descriptor already present from an application dex
// with a body (a real class_data_item, not just a declared stub) is
// skipped, so loading framework classes afterward for hierarchy completion
// can never shadow the application's own definition. In every other
// combination the later registration replaces the earlier one, including a
// full definition replacing an earlier stub (ClassData == nil).
func (r *Repo) RegisterDex(c *dex.Container, isSystem bool) error {
	dexIdx := len(r.dexes)
	r.dexes = append(r.dexes, c)
	r.hierarchy = nil // invalidate cached closure

	for i, cd := range c.ClassDefs {
		desc, err := cd.ClassIdx.Resolve(c)
		if err != nil {
			return &RepoError{Op: "register", Subject: "class_def", Err: err}
		}
		r.definedIn[desc] = append(r.definedIn[desc], dexIdx)

		if existing, exists := r.classOrigin[desc]; exists {
			if isSystem && !existing.isSystem && existing.hasBody {
				continue
			}
		}
		r.classByDescriptor[desc] = ClassUid{DexIdx: dexIdx, ClassDefIdx: i}
		r.classOrigin[desc] = classOrigin{isSystem: isSystem, hasBody: cd.ClassData != nil}
	}
	return nil
}

// Dex returns the Container registered under idx.
func (r *Repo) Dex(idx int) *dex.Container {
	if idx < 0 || idx >= len(r.dexes) {
		return nil
	}
	return r.dexes[idx]
}

// GetClassByName looks up a class by its descriptor ("Landroid/app/Activity;").
func (r *Repo) GetClassByName(descriptor string) (*dex.ClassDef, ClassUid, error) {
	uid, ok := r.classByDescriptor[descriptor]
	if !ok {
		return nil, ClassUid{}, &RepoError{Op: "lookup", Subject: descriptor}
	}
	c := r.dexes[uid.DexIdx]
	return &c.ClassDefs[uid.ClassDefIdx], uid, nil
}

// FindClasses returns every registered class whose descriptor matches the
// given regular expression.
func (r *Repo) FindClasses(pattern string) ([]ClassUid, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &RepoError{Op: "find_classes", Subject: pattern, Err: err}
	}
	var out []ClassUid
	for desc, uid := range r.classByDescriptor {
		if re.MatchString(desc) {
			out = append(out, uid)
		}
	}
	return out, nil
}

// Stats summarizes the repo's contents: total dex count, class/method/field
// totals, and descriptors defined in more than one registered dex.
type Stats struct {
	DexCount     int
	ClassCount   int
	MethodCount  int
	FieldCount   int
	Duplicates   []string
}

// Stats computes a snapshot summary of the repo, supplementing the
// original tool's "apkstats"-style reporting dropped from the distilled
// specification.
func (r *Repo) Stats() Stats {
	s := Stats{DexCount: len(r.dexes)}
	for _, d := range r.dexes {
		s.ClassCount += len(d.ClassDefs)
		s.MethodCount += len(d.Methods)
		s.FieldCount += len(d.Fields)
	}
	for desc, dexIdxs := range r.definedIn {
		if len(dexIdxs) > 1 {
			s.Duplicates = append(s.Duplicates, desc)
		}
	}
	return s
}

// MethodSignature renders a fully-qualified method signature, resolving
// against the owning dex.
func (r *Repo) MethodSignature(uid MethodUid) (string, error) {
	c := r.Dex(uid.DexIdx)
	if c == nil {
		return "", &RepoError{Op: "method_signature", Subject: "unknown dex"}
	}
	m, err := uid.MethodIdx.Resolve(c)
	if err != nil {
		return "", &RepoError{Op: "method_signature", Err: err}
	}
	return c.MethodSignature(m)
}
