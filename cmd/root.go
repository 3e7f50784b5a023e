// Package cmd is the cobra CLI surface: a root command wrapping a `serve`
// subcommand, the only action this repo exposes (spec.md's Non-goals
// exclude add/remove/import-server subcommands and any interactive mode).
//
// Grounded on the teacher's main.go / cmd/root.go cobra+fang wiring,
// trimmed to the one subcommand SPEC_FULL.md §5.6 names.
package cmd

import (
	"github.com/spf13/cobra"
)

// GetRootCommand builds the `mcp-funnel` root command, matching the
// teacher's main.go expectation of a fang.Execute-able *cobra.Command.
func GetRootCommand(version string) *cobra.Command {
	serveCmd := newServeCommand()

	root := &cobra.Command{
		Use:     "mcp-funnel",
		Short:   "Aggregate many MCP servers behind two script-driven tools",
		Version: version,
		RunE:    runServe,
	}
	root.Flags().AddFlagSet(serveCmd.Flags())

	root.AddCommand(serveCmd)
	return root
}
