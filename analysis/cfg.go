// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"sort"

	"droidworks/dex"
)

// EdgeKind classifies a CFG edge so the debug renderer can color each kind
// consistently.
type EdgeKind int

// CFG edge kinds.
const (
	EdgeSequence EdgeKind = iota
	EdgeJmp
	EdgeIfTrue
	EdgeIfFalse
	EdgeSwitch
	EdgeSwitchDefault
	EdgeCatch
	EdgeCatchAll
	EdgeInvokeSuccess
	EdgeArrayAccessSuccess
	EdgeCastSuccess
	EdgeDivSuccess
)

// edgeColors is consulted by the dwdump CLI's cfg subcommand, which prints
// Graphviz dot.
var edgeColors = map[EdgeKind]string{
	EdgeSequence:           "black",
	EdgeJmp:                "blue",
	EdgeIfTrue:             "green",
	EdgeIfFalse:            "red",
	EdgeSwitch:             "purple",
	EdgeSwitchDefault:      "purple",
	EdgeCatch:              "orchid",
	EdgeCatchAll:           "orchid",
	EdgeInvokeSuccess:      "black",
	EdgeArrayAccessSuccess: "black",
	EdgeCastSuccess:        "black",
	EdgeDivSuccess:         "black",
}

// Color returns the dot-graph edge color for k.
func (k EdgeKind) Color() string { return edgeColors[k] }

// Edge is one directed CFG edge.
type Edge struct {
	From, To dex.Addr
	Kind     EdgeKind
}

// Block is a maximal straight-line run of instructions: a CFG basic block.
type Block struct {
	Start, End   dex.Addr // [Start, End)
	Instructions []*dex.Instruction
}

// CFG is a method's control-flow graph.
type CFG struct {
	Blocks   map[dex.Addr]*Block
	Order    []dex.Addr // block leaders in address order
	Out      map[dex.Addr][]Edge
	In       map[dex.Addr][]Edge
}

// BuildCFG constructs the control-flow graph of ci, resolving switch and
// try/catch edges.
func BuildCFG(r *Repo, method string, ci *dex.CodeItem) (*CFG, error) {
	ci.Mu.RLock()
	insns := make([]*dex.Instruction, len(ci.Instructions))
	copy(insns, ci.Instructions)
	tries := ci.Tries
	handlers := ci.Handlers
	raw := ci.Insns()
	ci.Mu.RUnlock()

	if len(insns) == 0 {
		return nil, &AnalysisError{Kind: NoCode, Method: method}
	}

	leaders := map[dex.Addr]bool{insns[0].Addr: true}
	type pendingEdge struct {
		from dex.Addr
		to   dex.Addr
		kind EdgeKind
	}
	var pending []pendingEdge

	for i, in := range insns {
		next := in.NextAddr()
		switch {
		case in.Op.Format == dex.Fmt10t || in.Op.Format == dex.Fmt20t || in.Op.Format == dex.Fmt30t:
			target := in.Addr.Offset(in.BranchOffset)
			leaders[target] = true
			pending = append(pending, pendingEdge{in.Addr, target, EdgeJmp})
			if i+1 < len(insns) {
				leaders[next] = true
			}
		case in.Op.Format == dex.Fmt21t || in.Op.Format == dex.Fmt22t:
			target := in.Addr.Offset(in.BranchOffset)
			leaders[target] = true
			leaders[next] = true
			pending = append(pending, pendingEdge{in.Addr, target, EdgeIfTrue})
			pending = append(pending, pendingEdge{in.Addr, next, EdgeIfFalse})
		case in.Op.Format == dex.Fmt31t && (in.Op.Mnemonic == "packed-switch" || in.Op.Mnemonic == "sparse-switch"):
			leaders[next] = true
			pending = append(pending, pendingEdge{in.Addr, next, EdgeSwitchDefault})
			payloadAddr := in.Addr.Offset(in.BranchOffset)
			targets, err := switchTargets(raw, in, payloadAddr)
			if err != nil {
				return nil, &AnalysisError{Kind: InstructionNotFound, Method: method, Err: err}
			}
			for _, t := range targets {
				leaders[t] = true
				pending = append(pending, pendingEdge{in.Addr, t, EdgeSwitch})
			}
		case in.Op.Mnemonic == "return-void" || in.Op.Mnemonic == "return" ||
			in.Op.Mnemonic == "return-wide" || in.Op.Mnemonic == "return-object" ||
			in.Op.Mnemonic == "throw":
			if i+1 < len(insns) {
				leaders[next] = true
			}
		default:
			if i+1 < len(insns) {
				if in.CanThrow() {
					leaders[next] = true // a thrown exception can resume control via a handler, but fallthrough is still a distinct reachable successor
				}
				pending = append(pending, pendingEdge{in.Addr, next, successEdgeKind(in)})
			}
		}
	}

	for _, t := range tries {
		leaders[t.StartAddr] = true
		hl := handlers[t.HandlerIdx]
		for _, h := range hl.Handlers {
			leaders[h.Addr] = true
		}
		if hl.HasCatchAll {
			leaders[hl.CatchAllAddr] = true
		}
	}

	order := make([]dex.Addr, 0, len(leaders))
	for a := range leaders {
		order = append(order, a)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	cfg := &CFG{
		Blocks: make(map[dex.Addr]*Block),
		Order:  order,
		Out:    make(map[dex.Addr][]Edge),
		In:     make(map[dex.Addr][]Edge),
	}
	for i, leader := range order {
		end := insns[len(insns)-1].NextAddr()
		if i+1 < len(order) {
			end = order[i+1]
		}
		var blockInsns []*dex.Instruction
		for _, in := range insns {
			if in.Addr >= leader && in.Addr < end {
				blockInsns = append(blockInsns, in)
			}
		}
		cfg.Blocks[leader] = &Block{Start: leader, End: end, Instructions: blockInsns}
	}

	blockOf := func(addr dex.Addr) dex.Addr {
		best := order[0]
		for _, l := range order {
			if l <= addr {
				best = l
			} else {
				break
			}
		}
		return best
	}

	for _, e := range pending {
		from := blockOf(e.from)
		to := blockOf(e.to)
		edge := Edge{From: from, To: to, Kind: e.kind}
		cfg.Out[from] = append(cfg.Out[from], edge)
		cfg.In[to] = append(cfg.In[to], edge)
	}

	for _, t := range tries {
		hl := handlers[t.HandlerIdx]
		for blockStart := range cfg.Blocks {
			if blockStart >= t.StartAddr && blockStart < t.StartAddr.Offset(int32(t.InsnCount)) {
				for _, h := range hl.Handlers {
					edge := Edge{From: blockStart, To: blockOf(h.Addr), Kind: EdgeCatch}
					cfg.Out[blockStart] = append(cfg.Out[blockStart], edge)
					cfg.In[edge.To] = append(cfg.In[edge.To], edge)
				}
				if hl.HasCatchAll {
					edge := Edge{From: blockStart, To: blockOf(hl.CatchAllAddr), Kind: EdgeCatchAll}
					cfg.Out[blockStart] = append(cfg.Out[blockStart], edge)
					cfg.In[edge.To] = append(cfg.In[edge.To], edge)
				}
			}
		}
	}

	return cfg, nil
}

// successEdgeKind classifies a non-branching, non-returning instruction's
// fall-through edge. invoke/array-access/check-cast/div instructions each
// get their own tagged success edge (so a handler-bearing try-region around
// one of them produces a discoverable DivSuccess/InvokeSuccess/
// ArrayAccessSuccess/CastSuccess edge alongside its catch edges); every
// other instruction, throwable or not, keeps the generic Sequence edge.
func successEdgeKind(in *dex.Instruction) EdgeKind {
	m := in.Op.Mnemonic
	switch {
	case matchPrefix(m, "invoke"):
		return EdgeInvokeSuccess
	case matchPrefix(m, "aget") || matchPrefix(m, "aput"):
		return EdgeArrayAccessSuccess
	case m == "check-cast":
		return EdgeCastSuccess
	case matchPrefix(m, "div-"):
		return EdgeDivSuccess
	default:
		return EdgeSequence
	}
}

// switchTargets resolves a packed-switch/sparse-switch instruction's target
// addresses by decoding its payload directly out of the method's raw
// instruction bytes (payloads are not present in the decoded instruction
// stream — they are reached only by this kind of reference, never by
// linear decode).
func switchTargets(raw []byte, switchInsn *dex.Instruction, payloadAddr dex.Addr) ([]dex.Addr, error) {
	if switchInsn.Op.Mnemonic == "packed-switch" {
		p, err := dex.DecodePackedSwitchPayload(raw, uint32(payloadAddr))
		if err != nil {
			return nil, err
		}
		out := make([]dex.Addr, len(p.Targets))
		for i, t := range p.Targets {
			out[i] = switchInsn.Addr.Offset(t * 2)
		}
		return out, nil
	}
	p, err := dex.DecodeSparseSwitchPayload(raw, uint32(payloadAddr))
	if err != nil {
		return nil, err
	}
	out := make([]dex.Addr, len(p.Targets))
	for i, t := range p.Targets {
		out[i] = switchInsn.Addr.Offset(t * 2)
	}
	return out, nil
}
