// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package resources

import "regexp"

// Selection is a set of matched node indices into Doc.Events, carried
// through a chain of Select calls. Grounded on
// `original_source/lib/dw_resources/src/xpath.rs`'s `Context`/`Select`
// model, scoped to the read-only Root/Attrs/Filter/Nodes selectors manifest
// lookups actually need (the original's mutation selectors — add/remove
// node — have no counterpart here).
type Selection struct {
	doc   *Doc
	nodes []int // indices of StartElement events
}

// NewSelection begins a query over doc, with an implicit single root
// selection context (mirrors xpath.rs's `Context::new`).
func NewSelection(doc *Doc) *Selection {
	return &Selection{doc: doc, nodes: nil}
}

// Root selects top-level (or, when chained, direct child) elements whose
// name matches re.
func (s *Selection) Root(re *regexp.Regexp) *Selection {
	var starts []int
	if len(s.nodes) == 0 {
		starts = []int{0}
	} else {
		for _, n := range s.nodes {
			starts = append(starts, n+1)
		}
	}

	var matched []int
	for _, start := range starts {
		level := 1
		i := start
		for level > 0 && i < len(s.doc.Events) {
			switch s.doc.Events[i].Kind {
			case EventStartElement:
				if level == 1 && re.MatchString(s.doc.Events[i].Name) {
					matched = append(matched, i)
				}
				level++
			case EventEndElement:
				level--
			}
			i++
		}
	}
	return &Selection{doc: s.doc, nodes: matched}
}

// Attrs returns the attributes named attrName across every selected node.
func (s *Selection) Attrs(attrName string) []Attribute {
	var out []Attribute
	for _, n := range s.nodes {
		for _, a := range s.doc.Events[n].Attrs {
			if a.Name == attrName {
				out = append(out, a)
			}
		}
	}
	return out
}

// Filter keeps only selected nodes carrying a string attribute attrName
// equal to want.
func (s *Selection) Filter(attrName, want string) *Selection {
	var kept []int
	for _, n := range s.nodes {
		for _, a := range s.doc.Events[n].Attrs {
			if a.Name == attrName && a.Value.Kind == ValueString && a.Value.StringVal == want {
				kept = append(kept, n)
				break
			}
		}
	}
	return &Selection{doc: s.doc, nodes: kept}
}

// Nodes returns the StartElement events currently selected.
func (s *Selection) Nodes() []Event {
	out := make([]Event, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = s.doc.Events[n]
	}
	return out
}
