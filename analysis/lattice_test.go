// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import "testing"

func TestMeet32Identities(t *testing.T) {
	if got := Meet32(TypeBottom, Type{Kind: Integer}); got.Kind != Integer {
		t.Errorf("Meet32(Bottom, Integer) = %v, want Integer", got.Kind)
	}
	if got := Meet32(TypeTop, Type{Kind: Float}); got.Kind != Float {
		t.Errorf("Meet32(Top, Float) = %v, want Float", got.Kind)
	}
	if got := Meet32(Type{Kind: Integer}, Type{Kind: Integer}); got.Kind != Integer {
		t.Errorf("Meet32(Integer, Integer) = %v, want Integer", got.Kind)
	}
	if got := Meet32(Type{Kind: Integer}, Type{Kind: Float}); got.Kind != Top {
		t.Errorf("Meet32(Integer, Float) = %v, want Top (incompatible)", got.Kind)
	}
}

func TestMeet32ZeroAmbiguity(t *testing.T) {
	// a bare zero literal meeting an int register stays Integer.
	if got := Meet32(Type{Kind: Zero}, Type{Kind: Integer}); got.Kind != Integer {
		t.Errorf("Meet32(Zero, Integer) = %v, want Integer", got.Kind)
	}
	// a bare zero literal meeting a reference-typed register resolves to Null.
	obj := Type{Kind: ObjectKind, Object: []string{"Ljava/lang/String;"}}
	if got := Meet32(Type{Kind: Zero}, obj); got.Kind != Null {
		t.Errorf("Meet32(Zero, Object) = %v, want Null", got.Kind)
	}
	if got := Meet32(Type{Kind: Zero}, Type{Kind: Zero}); got.Kind != Zero {
		t.Errorf("Meet32(Zero, Zero) = %v, want Zero", got.Kind)
	}
}

func TestMeet32ObjectUnion(t *testing.T) {
	a := Type{Kind: ObjectKind, Object: []string{"La;"}}
	b := Type{Kind: ObjectKind, Object: []string{"Lb;"}}
	got := Meet32(a, b)
	if got.Kind != ObjectKind || len(got.Object) != 2 {
		t.Fatalf("Meet32(La;, Lb;) = %+v, want a 2-candidate ObjectKind", got)
	}

	null := Type{Kind: Null}
	if got := Meet32(null, a); got.Kind != ObjectKind || got.Object[0] != "La;" {
		t.Errorf("Meet32(Null, Object) = %+v, want the object type unchanged", got)
	}
	if got := Meet32(null, null); got.Kind != Null {
		t.Errorf("Meet32(Null, Null) = %v, want Null", got.Kind)
	}
}

func TestMeet32ArrayCovariance(t *testing.T) {
	a1 := Type{Kind: ArrayKind, ArrayDim: 1, ArrayElem: "I"}
	a2 := Type{Kind: ArrayKind, ArrayDim: 1, ArrayElem: "I"}
	if got := Meet32(a1, a2); got.Kind != ArrayKind || got.ArrayElem != "I" {
		t.Errorf("Meet32 of identical array types = %+v, want unchanged", got)
	}

	mismatched := Type{Kind: ArrayKind, ArrayDim: 1, ArrayElem: "J"}
	got := Meet32(a1, mismatched)
	if got.Kind != ObjectKind || len(got.Object) != 1 || got.Object[0] != javaLangObject {
		t.Errorf("Meet32 of incompatible arrays = %+v, want ObjectKind java/lang/Object fallback", got)
	}
}

func TestMeet64(t *testing.T) {
	if got := Meet64(Type{Kind: Long}, Type{Kind: Long}); got.Kind != Long {
		t.Errorf("Meet64(Long, Long) = %v, want Long", got.Kind)
	}
	if got := Meet64(Type{Kind: Long}, Type{Kind: Double}); got.Kind != Top {
		t.Errorf("Meet64(Long, Double) = %v, want Top (incompatible)", got.Kind)
	}
	if got := Meet64(TypeBottom, Type{Kind: Double}); got.Kind != Double {
		t.Errorf("Meet64(Bottom, Double) = %v, want Double", got.Kind)
	}
}

func TestIsSubtypeOfPrimitivesAndTop(t *testing.T) {
	r := NewRepo()
	if !IsSubtypeOf(r, Type{Kind: Integer}, TypeTop) {
		t.Error("anything should satisfy an expected Top")
	}
	if !IsSubtypeOf(r, Type{Kind: Zero}, Type{Kind: Integer}) {
		t.Error("Zero should satisfy an expected Integer")
	}
	if IsSubtypeOf(r, Type{Kind: Float}, Type{Kind: Integer}) {
		t.Error("Float should not satisfy an expected Integer")
	}
}

func TestIsSubtypeOfObjectsFallsBackToHierarchy(t *testing.T) {
	r := NewRepo()
	r.CloseHierarchy() // no classes registered; only the two fallback rules apply

	sub := Type{Kind: ObjectKind, Object: []string{"Lcom/example/Foo;"}}
	expectedSelf := Type{Kind: ObjectKind, Object: []string{"Lcom/example/Foo;"}}
	if !IsSubtypeOf(r, sub, expectedSelf) {
		t.Error("a type should always be subtype-compatible with itself")
	}

	expectedObject := Type{Kind: ObjectKind, Object: []string{javaLangObject}}
	if !IsSubtypeOf(r, sub, expectedObject) {
		t.Error("every class should be typeable as java/lang/Object with no hierarchy registered")
	}

	expectedUnrelated := Type{Kind: ObjectKind, Object: []string{"Lcom/example/Bar;"}}
	if IsSubtypeOf(r, sub, expectedUnrelated) {
		t.Error("unrelated classes with no registered hierarchy should not satisfy each other")
	}

	if !IsSubtypeOf(r, Type{Kind: Null}, expectedUnrelated) {
		t.Error("Null should satisfy any expected object type")
	}
}
