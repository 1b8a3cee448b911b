// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"droidworks/dex"
)

func newHeaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "header <classes.dex>",
		Short: "Dump the dex_header_item and pool sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeader(args[0])
		},
	}
}

func runHeader(path string) error {
	log := newHelper()
	log.Infof("parsing %s", path)

	c, err := dex.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	h := c.Header
	w := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', tabwriter.AlignRight)
	fmt.Print("\n\t------[ DEX Header ]------\n\n")
	fmt.Fprintf(w, "Magic:\t %s\n", hex.EncodeToString(h.Magic[:]))
	fmt.Fprintf(w, "Checksum:\t 0x%08x\n", h.Checksum)
	fmt.Fprintf(w, "Signature:\t %s\n", hex.EncodeToString(h.Signature[:]))
	fmt.Fprintf(w, "File Size:\t 0x%x\n", h.FileSize)
	fmt.Fprintf(w, "Header Size:\t 0x%x\n", h.HeaderSize)
	fmt.Fprintf(w, "Endian Tag:\t 0x%x\n", h.EndianTag)
	fmt.Fprintf(w, "Link Size:\t 0x%x\n", h.LinkSize)
	fmt.Fprintf(w, "Map Offset:\t 0x%x\n", h.MapOff)
	w.Flush()

	fmt.Print("\n\t------[ Pool Sizes ]------\n\n")
	fmt.Fprintf(w, "Strings:\t %d\n", len(c.Strings))
	fmt.Fprintf(w, "Types:\t %d\n", len(c.Types))
	fmt.Fprintf(w, "Protos:\t %d\n", len(c.Protos))
	fmt.Fprintf(w, "Fields:\t %d\n", len(c.Fields))
	fmt.Fprintf(w, "Methods:\t %d\n", len(c.Methods))
	fmt.Fprintf(w, "Class Defs:\t %d\n", len(c.ClassDefs))
	fmt.Fprintf(w, "Call Sites:\t %d\n", len(c.CallSites))
	fmt.Fprintf(w, "Method Handles:\t %d\n", len(c.MethodHandles))
	w.Flush()
	fmt.Println()
	return nil
}
