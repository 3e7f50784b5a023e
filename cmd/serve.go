package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mcp-funnel/mcp-funnel/internal/clientpool"
	"github.com/mcp-funnel/mcp-funnel/internal/downstream"
	"github.com/mcp-funnel/mcp-funnel/internal/runtime"
)

var (
	userConfigFlag    string
	projectConfigFlag string
	verbosityFlag     string
)

// newServeCommand builds `serve`: start the downstream MCP server over
// stdio. It is wired as the root command's default RunE too, so a bare
// `mcp-funnel` invocation starts serving, matching spec.md §6's only
// defined external surface.
func newServeCommand() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the downstream MCP server over stdio",
		RunE:  runServe,
	}

	defaultUser := defaultUserConfigPath()
	serve.Flags().StringVar(&userConfigFlag, "user-config", defaultUser, "user-scope config.toml path")
	serve.Flags().StringVar(&projectConfigFlag, "project-config", ".mcp-funnel.toml", "project-scope config.toml path")
	serve.Flags().StringVar(&verbosityFlag, "verbosity", "info", "error|warn|info|debug|trace")

	return serve
}

func runServe(cmd *cobra.Command, args []string) error {
	log := clientpool.NewLogger(clientpool.ParseLevel(verbosityFlag))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := runtime.NewManager(ctx, userConfigFlag, projectConfigFlag, log)
	if err != nil {
		return fmt.Errorf("mcp-funnel: initial config load failed: %w", err)
	}

	srv := downstream.New(rt, log, "mcp-funnel", cmd.Root().Version)
	return srv.Serve(ctx)
}

func defaultUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "mcp-funnel", "config.toml")
}
