// Package cli defines the root Cobra commands and global flag/context setup.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/f9-o/buildctl/internal/cli/commands"
	"github.com/f9-o/buildctl/internal/core/config"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/internal/core/state"
	"github.com/f9-o/buildctl/internal/procexec"
	"github.com/f9-o/buildctl/internal/variant"
	"github.com/f9-o/buildctl/pkg/errs"
	"github.com/f9-o/buildctl/pkg/pprint"
)

// globalFlags holds values bound to persistent global flags.
type globalFlags struct {
	configFile string
	root       string
	debug      bool
	jsonOutput bool
	dryRun     bool
}

// newRunner builds the process runner for a command; tests replace it.
var newRunner = func(log *logger.Logger, dryRun bool) procexec.Runner {
	return procexec.NewExec(log, dryRun)
}

// app owns the flags and the runtime of one command tree execution.
type app struct {
	flags globalFlags
	rt    *commands.Runtime
}

// NewRootCmd builds the buildctl command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := newApp()
	return cmd
}

func newApp() (*cobra.Command, *app) {
	a := &app{}
	flags := &a.flags

	rootCmd := &cobra.Command{
		Use:           "buildctl",
		Short:         "buildctl — bootstrap and drive the project's native build tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return errs.Newf(errs.ErrInvalidCommand, "cli", "invalid command '%s'", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return errs.Newf(errs.ErrInvalidCommand, "cli", "a command is required")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "completion" || cmd == cmd.Root() {
				return nil
			}
			var err error
			a.rt, err = initRuntime(cmd, *flags)
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to buildctl.yaml (defaults to auto-discovery)")
	pf.StringVar(&flags.root, "root", "", "Project root (defaults to the parent of the working directory)")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug-level logging")
	pf.BoolVar(&flags.jsonOutput, "json", false, "Output in machine-readable JSON")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Print the commands that would run without executing them")

	rootCmd.AddCommand(commands.NewActionCmds()...)
	rootCmd.AddCommand(
		commands.NewTargetsCmd(),
		commands.NewDoctorCmd(),
		commands.NewHistoryCmd(),
		commands.NewInitCmd(),
		commands.NewVersionCmd(),
	)
	return rootCmd, a
}

// Execute runs the CLI and exits. Called by main().
func Execute() {
	os.Exit(Run(os.Args[1:]))
}

// Run executes the command tree with args and returns the process exit code.
func Run(args []string) int {
	if args == nil {
		// cobra falls back to os.Args on a nil slice
		args = []string{}
	}
	rootCmd, a := newApp()
	rootCmd.SetArgs(args)

	cmd, err := rootCmd.ExecuteC()
	closeRuntime(a.rt)
	if err == nil {
		return 0
	}
	report(err)
	if errs.IsCode(err, errs.ErrInvalidCommand) {
		if cmd == nil {
			cmd = rootCmd
		}
		cmd.SetOut(os.Stderr)
		_ = cmd.Usage()
	}
	return ExitCode(err)
}

// ExitCode maps a dispatcher error to the process exit status: any failure,
// whatever the child's own status, is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// report prints err as a single diagnostic line plus advice.
func report(err error) {
	if e := errs.As(err); e != nil {
		pprint.Error("%s", e.UserMessage())
		return
	}
	pprint.Error("%s", err)
}

// initRuntime loads config, logger, and state before each command runs.
func initRuntime(cmd *cobra.Command, flags globalFlags) (*commands.Runtime, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrConfig, "config.load").
			WithAdvice("fix buildctl.yaml or pass --config")
	}

	log, err := logger.Init(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Debug:  flags.debug,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	root, err := cfg.ProjectRoot(flags.root, cwd)
	if err != nil {
		return nil, err
	}

	// History is best effort: a busy or broken db never blocks a build.
	var db *state.DB
	if cfg.State.Enabled && !flags.dryRun {
		db, err = state.Open(cfg.State.Path)
		if err != nil {
			log.Warn("state db unavailable", "path", cfg.State.Path, "err", err)
			pprint.Warn("run history disabled for this command: %v", err)
			db = nil
		}
	}

	rt := &commands.Runtime{
		Config:   cfg,
		Log:      log,
		State:    db,
		Runner:   newRunner(log, flags.dryRun),
		Registry: variant.Default(),
		Root:     root,
		Flags: commands.GlobalFlags{
			Root:       flags.root,
			Debug:      flags.debug,
			JSONOutput: flags.jsonOutput,
			DryRun:     flags.dryRun,
		},
	}
	log.Debug("runtime ready", "root", root, "config", cfg.File, "cmd", cmd.CommandPath())

	cmd.SetContext(commands.NewContext(cmd.Context(), rt))
	return rt, nil
}

func closeRuntime(rt *commands.Runtime) {
	if rt == nil {
		return
	}
	if rt.State != nil {
		if err := rt.State.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			rt.Log.Warn("close state db", "err", err)
		}
	}
	_ = rt.Log.Close()
}
