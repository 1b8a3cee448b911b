// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

const javaLangObject = "Ljava/lang/Object;"

// hierarchy is the immediate-superclass map, cached lazily per Repo and
// invalidated whenever a new dex is registered: it is a pure function of
// the registered dexes, safe to memoize until the set changes. Transitive
// superclass sets are not stored; ancestors walks the parent links anew on
// every query.
type hierarchy struct {
	// parent maps a descriptor to its immediate superclass descriptor, for
	// every class this repo has a definition for.
	parent map[string]string
}

// CloseHierarchy (re)builds and caches the immediate-superclass map over
// every class this repo has a definition for. It does not compute a
// transitive closure: subsequent IsTypeableAs/LeastCommonTypes calls reuse
// the cached map until the repo's dex set changes and walk its parent links
// on each call.
func (r *Repo) CloseHierarchy() {
	h := &hierarchy{parent: make(map[string]string)}
	for desc, uid := range r.classByDescriptor {
		cd := r.dexes[uid.DexIdx].ClassDefs[uid.ClassDefIdx]
		if !cd.HasSuperclass {
			continue
		}
		super, err := cd.SuperclassIdx.Resolve(r.dexes[uid.DexIdx])
		if err != nil {
			continue
		}
		h.parent[desc] = super
	}
	r.hierarchy = h
}

func (r *Repo) ensureHierarchy() *hierarchy {
	if r.hierarchy == nil {
		r.CloseHierarchy()
	}
	return r.hierarchy
}

// ancestors returns desc followed by every transitive superclass, ending
// in java/lang/Object. A class this repo has no definition for (e.g. a
// framework class referenced but not defined) is treated as a direct child
// of java/lang/Object, under two hard-coded fallback rules: a class is
// always typeable as itself, and every class is ultimately typeable as
// java/lang/Object.
func (r *Repo) ancestors(desc string) []string {
	h := r.ensureHierarchy()
	out := []string{desc}
	seen := map[string]bool{desc: true}
	cur := desc
	for {
		if cur == javaLangObject {
			return out
		}
		next, ok := h.parent[cur]
		if !ok {
			out = append(out, javaLangObject)
			return out
		}
		if seen[next] {
			return out // malformed cyclic hierarchy; stop rather than loop forever
		}
		seen[next] = true
		out = append(out, next)
		cur = next
	}
}

// IsTypeableAs reports whether a value statically typed sub may be used
// where a value of type super is expected: sub == super, or super is a
// (possibly indirect) superclass of sub per the registered hierarchy. Per
// the two fallback rules, sub <= sub always holds, and every class is
// typeable as java/lang/Object.
func (r *Repo) IsTypeableAs(sub, super string) bool {
	if sub == super {
		return true
	}
	if super == javaLangObject {
		return true
	}
	for _, a := range r.ancestors(sub) {
		if a == super {
			return true
		}
	}
	return false
}

// LeastCommonTypes returns the most specific type(s) both a and b are
// typeable as. Interfaces are out of scope for the hierarchy this package
// builds (classes only), so the result is always a singleton: the first
// common ancestor in a's chain, which is java/lang/Object at worst.
func LeastCommonTypes(r *Repo, a, b string) []string {
	bAncestors := map[string]bool{}
	for _, x := range r.ancestors(b) {
		bAncestors[x] = true
	}
	for _, x := range r.ancestors(a) {
		if bAncestors[x] {
			return []string{x}
		}
	}
	return []string{javaLangObject}
}
