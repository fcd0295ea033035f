package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lydakis/dojutsu/internal/config"
	"github.com/lydakis/dojutsu/internal/ipc"
	"github.com/lydakis/dojutsu/internal/logging"
	"github.com/lydakis/dojutsu/internal/skills"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitAppErr   = 1 // daemon reported an error
	ExitUsageErr = 2
	ExitInternal = 3 // config, transport or protocol failure
)

var (
	rootStdout io.Writer = os.Stdout
	rootStderr io.Writer = os.Stderr
	rootStdin  io.Reader = os.Stdin
)

type globalFlags struct {
	configPath string
	socketPath string
	timeout    time.Duration
	json       bool
	plain      bool
	verbose    bool
	noCache    bool
}

// app carries what every command needs once flags are parsed.
type app struct {
	flags  globalFlags
	cfg    *config.Config
	logger *slog.Logger
	client *ipc.Client
	svc    *skills.Service
}

// Run is the main CLI entry point. Returns an exit code.
func Run(args []string) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(rootStdout)
	root.SetErr(rootStderr)
	root.SetIn(rootStdin)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(rootStderr, "dojutsu: %v\n", err)
	return exitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dojutsu",
		Short:         "Run Dojutsu skills on the local allpath runner daemon",
		Long:          "dojutsu sends skill requests to the runner daemon over its Unix socket and prints the pipeline result.",
		Version:       buildVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("dojutsu {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", skills.ErrUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file (default "+config.ExampleConfigPath()+")")
	pf.StringVar(&a.flags.socketPath, "socket", "", "Daemon socket path (overrides config and $DOJUTSU_SOCKET)")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "Abort the call after this long (0 = no deadline)")
	pf.BoolVar(&a.flags.json, "json", false, "Print the raw daemon response as JSON")
	pf.BoolVar(&a.flags.plain, "plain", false, "Do not render markdown")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Log protocol steps to stderr")
	pf.BoolVar(&a.flags.noCache, "no-cache", false, "Bypass the response cache")

	root.AddCommand(
		newRunCmd(a),
		newByakuganCmd(a),
		newSkillsCmd(a),
		newCheckSkillCmd(a),
		newVersionCmd(a),
		newCallCmd(a),
		newStatusCmd(a),
		newMCPCmd(a),
		newServeEchoCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.logger = logging.New(cmd.ErrOrStderr(), logging.Level(a.flags.verbose))

	var (
		cfg *config.Config
		err error
	)
	if a.flags.configPath != "" {
		cfg, err = config.LoadFrom(a.flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.flags.socketPath != "" {
		cfg.SocketPath = a.flags.socketPath
	}
	if a.flags.noCache {
		cfg.Cache.Disabled = true
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	a.client = ipc.NewClient(cfg.SocketPath, cfg.Package, ipc.WithLogger(a.logger))
	caller := skills.NewCachedCaller(a.client, cfg.Package, cfg.CacheTTL(), cfg.Cacheable, a.logger)
	a.svc = skills.NewService(caller, cfg)
	return nil
}

// callContext bounds a daemon call by --timeout, else the config timeout.
// Without either, the call waits as long as the daemon takes.
func (a *app) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := a.flags.timeout
	if timeout == 0 {
		timeout = a.cfg.TimeoutDuration()
	}
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, skills.ErrUsage):
		return ExitUsageErr
	case errors.Is(err, ipc.ErrApplication), errors.Is(err, errSkillUnsafe):
		return ExitAppErr
	default:
		return ExitInternal
	}
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", skills.ErrUsage, err)
		}
		return nil
	}
}
