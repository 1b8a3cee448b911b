// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"droidworks/analysis"
	"droidworks/dex"
)

func newCFGCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cfg <classes.dex> <method-signature-fragment>",
		Short: "Render a method's control-flow graph as Graphviz dot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCFG(args[0], args[1])
		},
	}
}

func runCFG(path, sig string) error {
	log := newHelper()
	log.Infof("parsing %s", path)

	c, err := dex.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	r := analysis.NewRepo()
	if err := r.RegisterDex(c, false); err != nil {
		return fmt.Errorf("register dex: %w", err)
	}

	m, ci, err := findMethod(c, sig)
	if err != nil {
		return err
	}
	if ci == nil {
		return fmt.Errorf("method %q has no code (abstract or native)", sig)
	}

	fullSig, err := c.MethodSignature(m)
	if err != nil {
		return err
	}

	cfg, err := analysis.BuildCFG(r, fullSig, ci)
	if err != nil {
		return fmt.Errorf("build cfg: %w", err)
	}

	printDot(fullSig, cfg)
	return nil
}

// printDot renders cfg as Graphviz dot, coloring edges per the taxonomy
// analysis.EdgeKind.Color assigns.
func printDot(name string, cfg *analysis.CFG) {
	fmt.Printf("digraph %q {\n", name)
	fmt.Println(`  node [shape=box fontname="monospace"];`)
	for _, addr := range cfg.Order {
		b := cfg.Blocks[addr]
		fmt.Printf("  \"0x%x\" [label=\"0x%x .. 0x%x\\n%d insns\"];\n", addr, b.Start, b.End, len(b.Instructions))
	}
	for _, addr := range cfg.Order {
		for _, e := range cfg.Out[addr] {
			fmt.Printf("  \"0x%x\" -> \"0x%x\" [color=%s];\n", addr, e.To, e.Kind.Color())
		}
	}
	fmt.Println("}")
}
