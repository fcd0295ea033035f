package cli

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var buildVersion = "dev"

func init() {
	buildVersion = resolveBuildVersion(buildVersion)
}

func resolveBuildVersion(defaultVersion string) string {
	if defaultVersion != "" && defaultVersion != "dev" {
		return defaultVersion
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return defaultVersion
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return defaultVersion
	}
	return info.Main.Version
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client and daemon versions",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dojutsu %s\n", buildVersion)

			ctx, cancel := a.callContext(cmd.Context())
			defer cancel()
			info, err := a.svc.Version(ctx)
			if err != nil {
				return fmt.Errorf("daemon version: %w", err)
			}
			line := "daemon " + info.Version
			if info.Package != "" {
				line += " (" + info.Package + ")"
			}
			if len(info.Providers) > 0 {
				line += " providers: " + strings.Join(info.Providers, ", ")
			}
			fmt.Fprintln(out, line)
			return nil
		},
	}
}
