// Package commands provides the shared context type and all CLI subcommands.
package commands

import (
	"context"

	"github.com/f9-o/buildctl/internal/bootstrap"
	"github.com/f9-o/buildctl/internal/core/config"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/internal/core/state"
	"github.com/f9-o/buildctl/internal/dispatch"
	"github.com/f9-o/buildctl/internal/procexec"
	"github.com/f9-o/buildctl/internal/variant"
	"github.com/f9-o/buildctl/pkg/pprint"
)

// contextKey is the key type for values stored in a command context.
type contextKey string

const runtimeContextKey contextKey = "buildctl.runtime"

// GlobalFlags holds the parsed global flags for use by subcommands.
type GlobalFlags struct {
	Root       string
	Debug      bool
	JSONOutput bool
	DryRun     bool
}

// Runtime is the shared dependency bundle injected into each subcommand via context.
type Runtime struct {
	Config   *config.Config
	Log      *logger.Logger
	State    *state.DB // nil when state.enabled is false or the db is busy
	Runner   procexec.Runner
	Registry variant.Registry
	Root     string
	Flags    GlobalFlags
}

// Bootstrapper returns the bootstrap manager for the configured toolchain.
func (rt *Runtime) Bootstrapper() *bootstrap.Manager {
	m := bootstrap.NewManager(rt.Config.Toolchain, rt.Runner, rt.Log)
	m.DryRun = rt.Flags.DryRun
	m.Notify = func(msg string) { pprint.Info("%s", msg) }
	if rt.State != nil {
		m.Recorder = rt.State
	}
	return m
}

// Dispatcher returns a dispatcher rooted at the project root.
func (rt *Runtime) Dispatcher() *dispatch.Dispatcher {
	d := dispatch.New(rt.Registry, rt.Bootstrapper(), rt.Runner, rt.Root, rt.Log)
	d.Notify = func(msg string) { pprint.Info("%s", msg) }
	if rt.State != nil {
		d.Recorder = rt.State
	}
	return d
}

// NewContext returns a new context carrying the Runtime.
func NewContext(parent context.Context, rt *Runtime) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, runtimeContextKey, rt)
}

// FromContext extracts the Runtime from ctx. Panics if not present (programming error).
func FromContext(ctx context.Context) *Runtime {
	rt, ok := ctx.Value(runtimeContextKey).(*Runtime)
	if !ok || rt == nil {
		panic("buildctl: Runtime not found in context — missing PersistentPreRunE?")
	}
	return rt
}
