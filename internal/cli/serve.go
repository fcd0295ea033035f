package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lydakis/dojutsu/internal/ipc"
	"github.com/spf13/cobra"
)

// echoHandler answers every request with a pipeline-shaped document built
// from the request itself. Useful to check a client without an LLM.
func echoHandler(ctx context.Context, req *ipc.Request) ([]byte, error) {
	if req.Function == "fail" {
		return nil, fmt.Errorf("echo: requested failure: %s", strings.Join(req.Args, " "))
	}
	return json.Marshal(map[string]any{
		"execution":   strings.Join(req.Args, " "),
		"skills_used": []string{req.Package + "/" + req.Function},
		"total_time":  0.0,
		"function":    req.Function,
		"args":        req.Args,
	})
}

func newServeEchoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "serve-echo",
		Short:  "Run a stand-in daemon that echoes requests back",
		Hidden: true,
		Args:   usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := ipc.NewServer(a.cfg.SocketPath, echoHandler, a.logger)
			if err := s.Start(); err != nil {
				return err
			}
			defer s.Stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "echo daemon listening on %s\n", a.cfg.SocketPath)
			<-cmd.Context().Done()
			return nil
		},
	}
}
