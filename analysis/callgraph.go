// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import "droidworks/dex"

// CallGraph is a directed graph of MethodUid nodes, one edge per invoke-*
// instruction found in a registered dex's methods-with-bodies. This is a
// static call graph: invoke-virtual/invoke-interface edges point at the
// statically-resolved target method_id, not a devirtualized callee set,
// matching the conservative over-approximation the original tool used for
// reachability queries (original_source supplements this spec's dropped
// call-graph feature).
type CallGraph struct {
	Edges map[MethodUid][]MethodUid
}

// BuildCallGraph walks every registered dex's class data, recording one
// edge per invoke-* instruction from the enclosing method to its
// statically-referenced target.
func BuildCallGraph(r *Repo) *CallGraph {
	cg := &CallGraph{Edges: make(map[MethodUid][]MethodUid)}

	for dexIdx, c := range r.dexes {
		for _, cd := range c.ClassDefs {
			if cd.ClassData == nil {
				continue
			}
			for _, lists := range [][]dex.EncodedMethod{cd.ClassData.DirectMethods, cd.ClassData.VirtualMethods} {
				for _, em := range lists {
					if em.CodeOff == 0 {
						continue
					}
					ci, ok := c.CodeItems[dex.Offset(em.CodeOff)]
					if !ok {
						continue
					}
					caller := MethodUid{DexIdx: dexIdx, MethodIdx: em.MethodIdx}
					ci.Mu.RLock()
					for _, in := range ci.Instructions {
						if matchPrefix(in.Op.Mnemonic, "invoke") {
							callee := MethodUid{DexIdx: dexIdx, MethodIdx: dex.MethodIndex(in.PoolIndex)}
							cg.Edges[caller] = append(cg.Edges[caller], callee)
						}
					}
					ci.Mu.RUnlock()
				}
			}
		}
	}
	return cg
}

// Callees returns the methods m statically invokes.
func (cg *CallGraph) Callees(m MethodUid) []MethodUid { return cg.Edges[m] }
