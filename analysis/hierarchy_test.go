// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"testing"

	"droidworks/dex"
)

func newHierarchyRepo(t *testing.T) *Repo {
	t.Helper()
	c, err := dex.Parse(buildHierarchyDex())
	if err != nil {
		t.Fatalf("Parse hierarchy fixture failed: %v", err)
	}
	r := NewRepo()
	if err := r.RegisterDex(c, false); err != nil {
		t.Fatalf("RegisterDex failed: %v", err)
	}
	r.CloseHierarchy()
	return r
}

func TestIsTypeableAsDirectSuperclass(t *testing.T) {
	r := newHierarchyRepo(t)
	if !r.IsTypeableAs("Lcom/example/Derived;", "Lcom/example/Base;") {
		t.Error("Derived should be typeable as its declared superclass Base")
	}
	if !r.IsTypeableAs("Lcom/example/Derived;", javaLangObject) {
		t.Error("Derived should be typeable as java/lang/Object transitively")
	}
	if r.IsTypeableAs("Lcom/example/Base;", "Lcom/example/Derived;") {
		t.Error("a superclass should not be typeable as its subclass")
	}
	if !r.IsTypeableAs("Lcom/example/Base;", "Lcom/example/Base;") {
		t.Error("a class should always be typeable as itself")
	}
}

func TestIsTypeableAsUnknownClassFallsBackToObject(t *testing.T) {
	r := newHierarchyRepo(t)
	// "Landroid/app/Activity;" is referenced by no class_def in this
	// fixture: per the two hard-coded fallback rules it is its own
	// ancestor and a direct child of java/lang/Object.
	if !r.IsTypeableAs("Landroid/app/Activity;", javaLangObject) {
		t.Error("an undefined class should still be typeable as java/lang/Object")
	}
	if r.IsTypeableAs("Landroid/app/Activity;", "Lcom/example/Base;") {
		t.Error("an undefined class should not be typeable as an unrelated defined class")
	}
}

func TestLeastCommonTypes(t *testing.T) {
	r := newHierarchyRepo(t)
	got := LeastCommonTypes(r, "Lcom/example/Derived;", "Lcom/example/Base;")
	if len(got) != 1 || got[0] != "Lcom/example/Base;" {
		t.Errorf("LeastCommonTypes(Derived, Base) = %v, want [Base]", got)
	}

	got = LeastCommonTypes(r, "Lcom/example/Derived;", "Landroid/app/Activity;")
	if len(got) != 1 || got[0] != javaLangObject {
		t.Errorf("LeastCommonTypes(Derived, unrelated) = %v, want [java/lang/Object]", got)
	}
}
