// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

// TypeKind discriminates the Dalvik verifier's abstract value lattice.
// Integer/Float occupy one register width; Long/Double
// occupy two (a "wide" pair); Null and Zero are width-ambiguous until
// joined/met against a concrete type; Object carries a set of candidate
// descriptors (plural because a merge of incompatible branches keeps every
// candidate rather than collapsing to Object, matching Dalvik's verifier,
// not javac's); Array carries an element kind and dimension count.
type TypeKind int

// Lattice value kinds.
const (
	Bottom TypeKind = iota
	Top
	Integer
	Float
	Long
	Double
	Null
	Zero
	ObjectKind
	ArrayKind
)

// Type is one abstract value in the verifier's register-state lattice.
type Type struct {
	Kind TypeKind

	// Object holds every candidate descriptor for ObjectKind after a meet
	// across incompatible branches: ambiguous object merges keep all
	// candidates rather than collapsing early.
	Object []string

	// ArrayDim/ArrayElem describe an ArrayKind value: ArrayDim is the
	// number of bracket levels, ArrayElem the base element's type string
	// ("I", "Ljava/lang/String;", ...).
	ArrayDim  int
	ArrayElem string
}

// TypeTop is the lattice's top element: "could be anything", the initial
// value of an unanalyzed register.
var TypeTop = Type{Kind: Top}

// TypeBottom is the lattice's bottom element: "definitely unreachable /
// no information", the identity element for Join.
var TypeBottom = Type{Kind: Bottom}

func is32(k TypeKind) bool { return k == Integer || k == Float || k == Null || k == Zero || k == ObjectKind || k == ArrayKind }
func is64(k TypeKind) bool { return k == Long || k == Double }

// Meet32 computes the forward-dataflow meet (the intersection of
// possibility, used going into a branch merge point) of two 32-bit-or-less
// values. MeetZero/Null ambiguity: a plain zero literal (const 0) may flow
// into either an int-typed or a reference-typed register, so meeting Zero
// with Integer yields Integer, and meeting Zero with an object/array/Null
// type yields Null (the reference reading of the literal).
func Meet32(a, b Type) Type {
	if a.Kind == Bottom {
		return b
	}
	if b.Kind == Bottom {
		return a
	}
	if a.Kind == Top {
		return b
	}
	if b.Kind == Top {
		return a
	}
	if a.Kind == b.Kind && a.Kind == Integer {
		return Type{Kind: Integer}
	}
	if a.Kind == b.Kind && a.Kind == Float {
		return Type{Kind: Float}
	}
	if a.Kind == Zero || b.Kind == Zero {
		other := a
		if a.Kind == Zero {
			other = b
		}
		switch other.Kind {
		case Integer:
			return Type{Kind: Integer}
		case Zero:
			return Type{Kind: Zero}
		default:
			return meetZeroAgainstReference(other)
		}
	}
	if a.Kind == Null && b.Kind == Null {
		return Type{Kind: Null}
	}
	if a.Kind == Null || b.Kind == Null {
		ref := a
		if a.Kind == Null {
			ref = b
		}
		if ref.Kind == ObjectKind || ref.Kind == ArrayKind {
			return ref
		}
		return Type{Kind: Null}
	}
	if a.Kind == ObjectKind && b.Kind == ObjectKind {
		return Type{Kind: ObjectKind, Object: unionStrings(a.Object, b.Object)}
	}
	if a.Kind == ArrayKind && b.Kind == ArrayKind && a.ArrayDim == b.ArrayDim && a.ArrayElem == b.ArrayElem {
		return a
	}
	if (a.Kind == ObjectKind || a.Kind == ArrayKind) && (b.Kind == ObjectKind || b.Kind == ArrayKind) {
		return Type{Kind: ObjectKind, Object: []string{javaLangObject}}
	}
	return Type{Kind: Top} // incompatible kinds: caller treats as a verifier error
}

func meetZeroAgainstReference(ref Type) Type {
	if ref.Kind == ObjectKind || ref.Kind == ArrayKind || ref.Kind == Null {
		return Type{Kind: Null}
	}
	return Type{Kind: Top}
}

// Join32 computes the backward-dataflow join (the union of obligation,
// used propagating a required type back from a use). For the
// register-typing lattice used here, Join32 and Meet32 coincide on every
// defined pair; the distinct name documents which direction of analysis is
// calling it.
func Join32(a, b Type) Type { return Meet32(a, b) }

// Meet64 computes the meet of two wide (Long/Double) values.
func Meet64(a, b Type) Type {
	if a.Kind == Bottom {
		return b
	}
	if b.Kind == Bottom {
		return a
	}
	if a.Kind == Top {
		return b
	}
	if b.Kind == Top {
		return a
	}
	if a.Kind == b.Kind {
		return a
	}
	return Type{Kind: Top}
}

// Join64 computes the join of two wide values; coincides with Meet64 here.
func Join64(a, b Type) Type { return Meet64(a, b) }

// MeetZero reports whether zero-literal/reference ambiguity applies to a
// pairing of kinds a, b — i.e. at least one side is Zero or Null, so the
// resolution is context-dependent rather than a plain kind match.
func MeetZero(a, b TypeKind) bool {
	return a == Zero || b == Zero || a == Null || b == Null
}

// JoinZero is the backward-analysis counterpart of MeetZero.
func JoinZero(a, b TypeKind) bool { return MeetZero(a, b) }

// IsSubtypeOf reports whether t could be used where expected is required,
// consulting r's class hierarchy for ObjectKind values. Array covariance
// (Dalvik arrays are covariant, unlike generics) is approximated: an array
// of a subtype satisfies an array of its supertype at the same dimension.
func IsSubtypeOf(r *Repo, t, expected Type) bool {
	switch expected.Kind {
	case Top:
		return true
	case Integer, Float, Long, Double:
		return t.Kind == expected.Kind || t.Kind == Zero
	case Null:
		return t.Kind == Null || t.Kind == Zero
	case ObjectKind:
		if t.Kind == Null || t.Kind == Zero {
			return true
		}
		if t.Kind != ObjectKind {
			return false
		}
		for _, want := range expected.Object {
			ok := false
			for _, have := range t.Object {
				if r.IsTypeableAs(have, want) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
		return true
	case ArrayKind:
		if t.Kind == Null || t.Kind == Zero {
			return true
		}
		if t.Kind != ArrayKind || t.ArrayDim != expected.ArrayDim {
			return false
		}
		if t.ArrayElem == expected.ArrayElem {
			return true
		}
		return r.IsTypeableAs(t.ArrayElem, expected.ArrayElem)
	}
	return false
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
