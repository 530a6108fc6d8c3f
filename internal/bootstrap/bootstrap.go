// Package bootstrap makes sure the native build tool is compiled before any
// target is dispatched to it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	v1 "github.com/f9-o/buildctl/api/v1"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/internal/procexec"
	"github.com/f9-o/buildctl/pkg/errs"
)

// BinaryMode is applied to a freshly compiled build tool.
const BinaryMode fs.FileMode = 0o755

// DefaultToolchain mirrors the layout the project's build tool expects:
// a single build.c at the root compiled with a pinned, warnings-as-errors gcc.
func DefaultToolchain() v1.ToolchainSpec {
	return v1.ToolchainSpec{
		Compiler:    "gcc",
		Flags:       []string{"-std=gnu11", "-Wall", "-Wextra", "-Werror"},
		Source:      "build.c",
		Binary:      "build.bin",
		StaleBinary: "build.bin.old",
	}
}

// Recorder receives one record per bootstrap attempt.
type Recorder interface {
	PutBootstrap(rec v1.BootstrapRecord) error
}

// Manager compiles the build tool on first use.
type Manager struct {
	Toolchain v1.ToolchainSpec
	Runner    procexec.Runner
	Log       *logger.Logger
	Recorder  Recorder // optional

	// Notify, when set, receives the user-facing progress lines.
	Notify func(msg string)

	// DryRun prints the stale-backup removal instead of performing it and
	// tolerates the compiler not having produced a binary.
	DryRun bool
	// Out receives dry-run lines; defaults to os.Stdout.
	Out io.Writer

	// removeFile is os.Remove; swapped in tests.
	removeFile func(string) error
}

// NewManager returns a Manager for toolchain that spawns processes with runner.
func NewManager(toolchain v1.ToolchainSpec, runner procexec.Runner, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{Toolchain: toolchain, Runner: runner, Log: log}
}

// BinaryPath returns where the compiled build tool lives under root.
func (m *Manager) BinaryPath(root string) string {
	return filepath.Join(root, m.Toolchain.Binary)
}

// StalePath returns where a self-rebuilding build tool leaves its backup.
func (m *Manager) StalePath(root string) string {
	return filepath.Join(root, m.Toolchain.StaleBinary)
}

// SourcePath returns the single source file the build tool is compiled from.
func (m *Manager) SourcePath(root string) string {
	return filepath.Join(root, m.Toolchain.Source)
}

// CompileCommand returns the compiler invocation that produces the binary.
func (m *Manager) CompileCommand(root string) procexec.Command {
	args := make([]string, 0, len(m.Toolchain.Flags)+3)
	args = append(args, m.Toolchain.Flags...)
	args = append(args, "-o", m.BinaryPath(root), m.SourcePath(root))
	return procexec.Command{Name: m.Toolchain.Compiler, Args: args, Dir: root}
}

// EnsureBinary compiles the build tool if it is not present under root.
//
// An existing binary is trusted as is: its age is not compared with the
// source file, so edits to the source only take effect once the binary is
// deleted.
func (m *Manager) EnsureBinary(ctx context.Context, root string) (err error) {
	binary := m.BinaryPath(root)
	rec := v1.BootstrapRecord{
		ID:          uuid.NewString(),
		ProjectRoot: root,
		Binary:      binary,
		StartedAt:   time.Now().UTC(),
	}
	defer func() {
		rec.DurationMS = time.Since(rec.StartedAt).Milliseconds()
		switch {
		case err != nil:
			rec.Result = v1.ResultFailure
			rec.Error = err.Error()
			if rec.ExitCode == 0 {
				rec.ExitCode = 1
			}
		case !rec.Compiled:
			rec.Result = v1.ResultSkipped
		default:
			rec.Result = v1.ResultSuccess
		}
		m.record(rec)
	}()

	present, err := fileExists(binary)
	if err != nil {
		return errs.Wrap(err, errs.ErrBootstrapIO, "bootstrap.stat").WithResource(binary)
	}
	if present {
		m.Log.Debug("build tool present", "binary", binary)
		return nil
	}

	m.notify("removing build system.")
	removed, err := m.removeStale(root)
	rec.StaleRemoved = removed
	if err != nil {
		return err
	}

	m.notify("bootstrapping the build system.")
	cmd := m.CompileCommand(root)
	m.Log.Info("compiling build tool", "cmd", cmd.String())
	rec.Compiled = true

	code, err := m.Runner.Run(ctx, cmd)
	rec.ExitCode = code
	if err != nil {
		return errs.Wrap(err, errs.ErrCompileFailed, "bootstrap.compile").
			WithResource(m.Toolchain.Compiler).
			WithAdvice(fmt.Sprintf("is %q installed and on PATH?", m.Toolchain.Compiler))
	}
	if code != 0 {
		return errs.Newf(errs.ErrCompileFailed, "bootstrap.compile", "failed to bootstrap the build system: compiler exited with status %d", code).
			WithResource(m.SourcePath(root)).
			WithStatus(code).
			WithAdvice("fix the compiler errors above and retry")
	}

	if err := os.Chmod(binary, BinaryMode); err != nil {
		if errors.Is(err, fs.ErrNotExist) && m.DryRun {
			return nil
		}
		return errs.Wrap(err, errs.ErrBootstrapIO, "bootstrap.chmod").WithResource(binary)
	}
	m.Log.Info("build tool bootstrapped", "binary", binary)
	return nil
}

// removeStale deletes the backup binary. A missing file is not an error.
func (m *Manager) removeStale(root string) (bool, error) {
	stale := m.StalePath(root)
	if m.DryRun {
		present, err := fileExists(stale)
		if err != nil {
			return false, errs.Wrap(err, errs.ErrBootstrapIO, "bootstrap.remove_stale").WithResource(stale)
		}
		if present {
			out := m.Out
			if out == nil {
				out = os.Stdout
			}
			fmt.Fprintf(out, "[DRY RUN] rm %s\n", procexec.QuoteArgs([]string{stale}))
		}
		return false, nil
	}
	remove := m.removeFile
	if remove == nil {
		remove = os.Remove
	}
	err := remove(stale)
	switch {
	case err == nil:
		m.Log.Debug("removed stale build tool", "path", stale)
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, errs.Wrap(err, errs.ErrBootstrapIO, "bootstrap.remove_stale").
			WithResource(stale).
			WithAdvice("remove the file by hand and retry")
	}
}

func (m *Manager) notify(msg string) {
	if m.Notify != nil {
		m.Notify(msg)
	}
}

func (m *Manager) record(rec v1.BootstrapRecord) {
	if m.Recorder == nil {
		return
	}
	if err := m.Recorder.PutBootstrap(rec); err != nil {
		m.Log.Warn("record bootstrap", "err", err)
	}
}

func fileExists(path string) (bool, error) {
	st, err := os.Stat(path)
	if err == nil {
		return !st.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
