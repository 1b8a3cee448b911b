// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"droidworks/analysis"
	"droidworks/dex"
)

func newVerifyCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "verify <classes.dex>",
		Short: "Typecheck every method with a body and report type errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args[0], workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "parallel verification workers")
	return cmd
}

// methodJob is one method_id_item with a body, queued for verification on
// the worker pool, one method per job.
type methodJob struct {
	dexIdx int
	m      *dex.MethodID
	ci     *dex.CodeItem
}

type verifyOutcome struct {
	signature string
	err       error
}

func runVerify(path string, workers int) error {
	log := newHelper()
	log.Infof("parsing %s", path)

	c, err := dex.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	r := analysis.NewRepo()
	dexIdx := r.DexCount()
	if err := r.RegisterDex(c, false); err != nil {
		return fmt.Errorf("register dex: %w", err)
	}
	r.CloseHierarchy()

	jobs := make(chan methodJob)
	results := make(chan verifyOutcome)

	var wg sync.WaitGroup
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				sig, _ := c.MethodSignature(job.m)
				if _, err := analysis.VerifyMethod(r, job.dexIdx, job.m, job.ci); err != nil {
					results <- verifyOutcome{signature: sig, err: err}
				} else {
					log.Debugf("%s: ok", sig)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for i := range c.ClassDefs {
			cd := &c.ClassDefs[i]
			if cd.ClassData == nil {
				continue
			}
			for _, lists := range [][]dex.EncodedMethod{cd.ClassData.DirectMethods, cd.ClassData.VirtualMethods} {
				for _, em := range lists {
					if em.CodeOff == 0 {
						continue
					}
					m, err := em.MethodIdx.Resolve(c)
					if err != nil {
						continue
					}
					ci := c.CodeItems[dex.Offset(em.CodeOff)]
					if ci == nil {
						continue
					}
					jobs <- methodJob{dexIdx: dexIdx, m: m, ci: ci}
				}
			}
		}
	}()

	w := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', tabwriter.AlignLeft)
	fmt.Fprintln(w, "Method\tError\t")
	failures := 0
	for out := range results {
		failures++
		fmt.Fprintf(w, "%s\t%v\t\n", out.signature, out.err)
	}
	w.Flush()

	fmt.Printf("\n%d type error(s) found\n", failures)
	return nil
}
