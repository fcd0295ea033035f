package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lydakis/dojutsu/internal/ipc"
	"github.com/lydakis/dojutsu/internal/render"
	"github.com/lydakis/dojutsu/internal/skills"
	"github.com/spf13/cobra"
)

var errSkillUnsafe = errors.New("skill is unsafe")

type pipelineFlags struct {
	provider string
	model    string
	apiKey   string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "LLM provider ("+strings.Join(skills.Providers(), ", ")+")")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Provider model (daemon default when empty)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key (default: the provider's environment variable)")
}

func (f *pipelineFlags) options() skills.Options {
	return skills.Options{Provider: f.provider, Model: f.model, APIKey: f.apiKey}
}

func newRunCmd(a *app) *cobra.Command {
	var pf pipelineFlags
	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run the full pipeline and print every stage and the generated code",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.callContext(cmd.Context())
			defer cancel()

			res, err := a.svc.Run(ctx, strings.Join(args, " "), pf.options())
			if err != nil {
				return err
			}
			return a.printResult(cmd.OutOrStdout(), res)
		},
	}
	pf.register(cmd)
	return cmd
}

func newByakuganCmd(a *app) *cobra.Command {
	var pf pipelineFlags
	cmd := &cobra.Command{
		Use:   "byakugan <task>",
		Short: "Run only the structural analysis stage",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.callContext(cmd.Context())
			defer cancel()

			analysis, err := a.svc.Byakugan(ctx, strings.Join(args, " "), pf.options())
			if err != nil {
				return err
			}
			if a.flags.json {
				return render.JSON(cmd.OutOrStdout(), analysis.Result)
			}
			res := &ipc.Result{Byakugan: analysis.Result.Byakugan, TotalTime: analysis.Seconds}
			return render.Text(cmd.OutOrStdout(), res, a.renderOptions(cmd.OutOrStdout()))
		},
	}
	pf.register(cmd)
	return cmd
}

func newSkillsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Inspect the daemon's skill index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print how many skills the daemon has indexed",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.callContext(cmd.Context())
			defer cancel()

			n, err := a.svc.SkillsCount(ctx)
			if err != nil {
				return err
			}
			if a.flags.json {
				fmt.Fprintf(cmd.OutOrStdout(), "{\"count\":%d}\n", n)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d skills indexed\n", n)
			return nil
		},
	})
	return cmd
}

func newCheckSkillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-skill <file|->",
		Short: "Scan a skill document for malicious patterns",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readSkill(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.callContext(cmd.Context())
			defer cancel()
			check, err := a.svc.CheckSkill(ctx, content)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if check.Safe {
				fmt.Fprintln(out, "safe")
				return nil
			}
			fmt.Fprintln(out, "unsafe")
			for _, v := range check.Violations {
				fmt.Fprintf(out, "  %s\n", v)
			}
			return fmt.Errorf("%w: %d violation(s)", errSkillUnsafe, len(check.Violations))
		},
	}
}

func readSkill(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", skills.ErrUsage, err)
		}
		return "", err
	}
	return string(data), nil
}

func newCallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <function> [args...]",
		Short: "Invoke any daemon function and print the raw response",
		Long: "Invoke a daemon function with positional string arguments. Arguments are sent\n" +
			"in the order given; their meaning is defined by the function.",
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.callContext(cmd.Context())
			defer cancel()

			res, err := a.svc.Call(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			return render.JSON(cmd.OutOrStdout(), res)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is reachable",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			socket := a.client.Socket()

			info, statErr := os.Stat(socket)
			if statErr == nil && info.Mode()&os.ModeSocket == 0 {
				return fmt.Errorf("%s exists but is not a socket", socket)
			}

			ctx, cancel := a.callContext(cmd.Context())
			defer cancel()
			// Bypass the cache: status must reflect a live connection.
			res, err := a.client.Call(ctx, skills.FuncVersion, nil)
			switch {
			case ipc.KindOf(err) == ipc.ConnectionFailure:
				fmt.Fprintf(out, "daemon: not running (%s)\n", socket)
				return err
			case err != nil:
				fmt.Fprintf(out, "daemon: unhealthy (%s)\n", socket)
				return err
			}

			var v skills.VersionInfo
			_ = res.Decode(&v)
			if v.Version == "" {
				v.Version = "unknown version"
			}
			fmt.Fprintf(out, "daemon: running (%s, %s)\n", socket, v.Version)
			return nil
		},
	}
}

func (a *app) printResult(out io.Writer, res *ipc.Result) error {
	if a.flags.json {
		return render.JSON(out, res)
	}
	return render.Text(out, res, a.renderOptions(out))
}

func (a *app) renderOptions(out io.Writer) render.Options {
	f, ok := out.(*os.File)
	return render.Options{Markdown: ok && !a.flags.plain && render.IsTerminal(f)}
}
