package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Version is the current version of vira (overridden by ldflags at build time)
	Version = "1.0.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
	// Commit is the git revision the binary was built from (optional ldflag)
	Commit = ""
)

const author = `Per-Ola "PeO" Robertsson`

type releaseNote struct {
	version, date, text string
}

var releaseNotes = []releaseNote{
	{"1.0.0", "2026-10-17", "One vira command for copy, deep-copy, add-parent and tree"},
	{"0.3.1", "2023-04-12", "Initial beta release for feedback. Fully functional"},
	{"0.3.0", "2023-03-20", "Initial alpha release for feedback"},
	{"0.2.0", "2023-02-11", "Refactored to use VIRA module"},
	{"0.1.0", "2023-02-10", "First working version"},
}

var versionNotesFlag bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if commit := resolveCommitHash(); commit != "" {
			fmt.Fprintf(out, "vira version %s (%s: %s)\n", Version, Build, shortCommit(commit))
		} else {
			fmt.Fprintf(out, "vira version %s (%s)\n", Version, Build)
		}
		if !versionNotesFlag {
			return
		}
		fmt.Fprintf(out, "by %s\n\nRelease Notes\n", author)
		for _, n := range releaseNotes {
			fmt.Fprintf(out, "%-6s %-10s %s\n", n.version, n.date, n.text)
		}
	},
}

func resolveCommitHash() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return ""
}

func shortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func init() {
	versionCmd.Flags().BoolVar(&versionNotesFlag, "notes", false, "Also print the release notes")
	rootCmd.AddCommand(versionCmd)
}
