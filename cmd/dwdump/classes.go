// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"text/tabwriter"
	"os"

	"github.com/spf13/cobra"

	"droidworks/analysis"
	"droidworks/dex"
)

func newClassesCmd() *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "classes <classes.dex>",
		Short: "List the classes defined in a dex, optionally filtered by descriptor regex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(args[0], pattern)
		},
	}
	cmd.Flags().StringVar(&pattern, "filter", ".*", "descriptor regular expression to match")
	return cmd
}

func runClasses(path, pattern string) error {
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

	uids, err := r.FindClasses(pattern)
	if err != nil {
		return fmt.Errorf("bad filter %q: %w", pattern, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', tabwriter.AlignLeft)
	fmt.Fprintln(w, "Descriptor\tAccess Flags\tMethods\tFields\t")
	for _, uid := range uids {
		cd := c.ClassDefs[uid.ClassDefIdx]
		desc, _ := cd.ClassIdx.Resolve(c)
		nMethods, nFields := 0, 0
		if cd.ClassData != nil {
			nMethods = len(cd.ClassData.DirectMethods) + len(cd.ClassData.VirtualMethods)
			nFields = len(cd.ClassData.StaticFields) + len(cd.ClassData.InstanceFields)
		}
		fmt.Fprintf(w, "%s\t0x%x\t%d\t%d\t\n", desc, uint32(cd.AccessFlags), nMethods, nFields)
	}
	w.Flush()

	stats := r.Stats()
	fmt.Printf("\n%d classes matched (%d total, %d duplicate descriptors across dexes)\n",
		len(uids), stats.ClassCount, len(stats.Duplicates))
	return nil
}
