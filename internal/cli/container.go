package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/f9-o/buildctl/internal/container"
	"github.com/f9-o/buildctl/internal/core/config"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/internal/procexec"
	"github.com/f9-o/buildctl/pkg/errs"
	"github.com/f9-o/buildctl/pkg/pprint"
)

// newEngine connects to the configured container runtime; tests replace it.
var newEngine = func(cfg config.Config, log *logger.Logger) (container.Engine, error) {
	return container.NewEngine(cfg.Container, procexec.NewExec(log, false), log)
}

// NewContainerCmd builds the buildctl-container command. Every argument is
// forwarded verbatim, flags included, so the command has no flags of its own.
// The container's exit status is stored in *status.
func NewContainerCmd(status *int) *cobra.Command {
	return &cobra.Command{
		Use:                "buildctl-container <buildctl args>...",
		Short:              "Run buildctl inside the development container",
		Example:            "  buildctl-container build --type dev_server",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errs.Newf(errs.ErrInvalidCommand, "container", "at least one argument to forward is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runInContainer(cmd.Context(), args)
			*status = code
			return err
		},
	}
}

// ExecuteContainer runs the wrapper and exits with the container's status.
func ExecuteContainer() {
	os.Exit(RunContainer(os.Args[1:]))
}

// RunContainer executes the wrapper with args and returns the exit code:
// the image build's or the container's own status, or 1 when the wrapper
// itself fails.
func RunContainer(args []string) int {
	if args == nil {
		// cobra falls back to os.Args on a nil slice
		args = []string{}
	}
	var status int
	cmd := NewContainerCmd(&status)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return status
	}
	if errs.IsCode(err, errs.ErrContainerRunFailed) {
		// the container already reported its own failure
		return errs.ExitStatus(err)
	}
	report(err)
	if errs.IsCode(err, errs.ErrInvalidCommand) {
		cmd.SetOut(os.Stderr)
		_ = cmd.Usage()
	}
	if status != 0 {
		return status
	}
	return errs.ExitStatus(err)
}

func runInContainer(ctx context.Context, args []string) (int, error) {
	cfg, err := config.Load("")
	if err != nil {
		return 1, errs.Wrap(err, errs.ErrConfig, "config.load")
	}
	log, err := logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return 1, fmt.Errorf("logger init: %w", err)
	}
	defer log.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return 1, fmt.Errorf("getwd: %w", err)
	}
	root, err := cfg.ProjectRoot("", cwd)
	if err != nil {
		return 1, err
	}

	engine, err := newEngine(*cfg, log)
	if err != nil {
		return 1, errs.Wrap(err, errs.ErrContainerEngine, "container.connect").
			WithAdvice("is the docker daemon running?")
	}
	defer engine.Close()

	w := container.NewWrapper(engine, cfg.Container, log)
	w.Root = root
	w.Notify = func(msg string) { pprint.Info("%s", msg) }
	return w.RunInContainer(ctx, args)
}
