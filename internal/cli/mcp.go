package cli

import (
	"github.com/lydakis/dojutsu/internal/mcpbridge"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve daemon skills as MCP tools over stdio",
		Long: `Starts an MCP server on stdin/stdout exposing dojutsu_run, dojutsu_byakugan
and dojutsu_call. Each tool call opens its own daemon connection.
Logs go to stderr so they never corrupt the JSON-RPC stream.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge := mcpbridge.NewServer(a.svc, buildVersion, a.logger)
			a.logger.Info("serving MCP on stdio", "socket", a.cfg.SocketPath)
			return bridge.ServeStdio()
		},
	}
}
