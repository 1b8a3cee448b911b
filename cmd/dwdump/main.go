// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command dwdump is a thin CLI over droidworks's dex/analysis/resources/
// apksig packages: header, classes, cfg and verify subcommands (rootCmd
// plus one cobra.Command per subcommand, a persistent -v/--verbose flag).
// No parsing or analysis logic lives here; every subcommand is a formatter
// over a library call.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"droidworks/internal/log"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "dwdump",
		Short: "A Dalvik (DEX) bytecode inspector",
		Long:  "A DEX parser and static-analysis dumper built for Android malware triage, brought to you by Saferwall",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 0.1.0")
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newHeaderCmd())
	rootCmd.AddCommand(newClassesCmd())
	rootCmd.AddCommand(newCFGCmd())
	rootCmd.AddCommand(newVerifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newHelper returns a log.Helper writing to stderr, filtered to debug level
// under -v and info level otherwise, mirroring file.go's New() which builds
// its *log.Helper the same way from an Options.Logger/verbosity pair.
func newHelper() *log.Helper {
	lvl := log.LevelInfo
	if verbose {
		lvl = log.LevelDebug
	}
	return log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(lvl)))
}
