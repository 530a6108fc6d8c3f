// Package procexec spawns external processes synchronously and reports their
// exit status. Stdio is inherited so child output streams live to the terminal.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/f9-o/buildctl/internal/core/logger"
)

// Command describes one process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string // working directory, empty = inherit
}

// String renders the command as a shell-safe line for logs and dry runs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + QuoteArgs(c.Args)
}

// Runner spawns a command and blocks until it exits.
//
// A non-zero exit is reported through the returned status with a nil error.
// The error is non-nil only when the process could not be started or waited on.
type Runner interface {
	Run(ctx context.Context, cmd Command) (int, error)
	Output(ctx context.Context, cmd Command) (string, int, error)
}

// Exec is the os/exec backed Runner.
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	DryRun bool
	Log    *logger.Logger
}

// NewExec returns an Exec wired to the process's own stdio.
func NewExec(log *logger.Logger, dryRun bool) *Exec {
	return &Exec{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		DryRun: dryRun,
		Log:    log,
	}
}

// Run executes cmd with inherited stdio.
func (e *Exec) Run(ctx context.Context, cmd Command) (int, error) {
	if e.dry(cmd) {
		return 0, nil
	}
	c := e.command(ctx, cmd)
	c.Stdin = e.Stdin
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr
	return exitStatus(c.Run())
}

// Output executes cmd and captures its stdout. Stderr stays inherited.
func (e *Exec) Output(ctx context.Context, cmd Command) (string, int, error) {
	if e.dry(cmd) {
		return "", 0, nil
	}
	var buf bytes.Buffer
	c := e.command(ctx, cmd)
	c.Stdout = &buf
	c.Stderr = e.Stderr
	code, err := exitStatus(c.Run())
	return buf.String(), code, err
}

func (e *Exec) command(ctx context.Context, cmd Command) *exec.Cmd {
	e.logger().Debug("exec", "cmd", cmd.String(), "dir", cmd.Dir)
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	return c
}

func (e *Exec) dry(cmd Command) bool {
	if !e.DryRun {
		return false
	}
	out := e.Stdout
	if out == nil {
		out = os.Stdout
	}
	if cmd.Dir != "" {
		fmt.Fprintf(out, "[DRY RUN in %s] %s\n", cmd.Dir, cmd.String())
	} else {
		fmt.Fprintf(out, "[DRY RUN] %s\n", cmd.String())
	}
	return true
}

func (e *Exec) logger() *logger.Logger {
	if e.Log == nil {
		return logger.Nop()
	}
	return e.Log
}

// exitStatus splits a Wait error into an exit code and a spawn error.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// killed by a signal
			return 1, nil
		}
		return code, nil
	}
	return 1, err
}

// QuoteArgs returns a printable, shell-safe representation of args.
func QuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'`$\\*?[]{}()<>|&;") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
