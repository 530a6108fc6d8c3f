// Package dispatch maps top-level actions onto targets of the bootstrapped
// build tool and runs them from the project root.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	v1 "github.com/f9-o/buildctl/api/v1"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/internal/procexec"
	"github.com/f9-o/buildctl/internal/variant"
	"github.com/f9-o/buildctl/pkg/errs"
)

// Action is a top-level buildctl command.
type Action string

const (
	ActionClean Action = "clean"
	ActionBuild Action = "build"
	ActionLint  Action = "lint"
	ActionDocs  Action = "docs"
	ActionRun   Action = "run"
)

// Actions lists every action in the order the build tool declares them.
var Actions = []Action{ActionClean, ActionBuild, ActionLint, ActionDocs, ActionRun}

// ParseAction resolves name to an Action.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", errs.Newf(errs.ErrInvalidCommand, "dispatch.parse", "invalid command '%s'", name).
		WithAdvice("use one of clean, build, lint, docs, run")
}

// TakesVariant reports whether the action is qualified by a build configuration.
func (a Action) TakesVariant() bool {
	return a == ActionBuild || a == ActionLint || a == ActionRun
}

// Request is one action, plus its variant for build, lint and run.
type Request struct {
	Action  Action
	Variant variant.Variant
}

// Subcommand returns the build tool target for the request,
// e.g. "build_dev_server" or "docs".
func (r Request) Subcommand() string {
	return Subcommand(r.Action, r.Variant)
}

// Subcommand joins action and v into a build tool target name. Actions that
// take no variant ignore v.
func Subcommand(a Action, v variant.Variant) string {
	if !a.TakesVariant() {
		return string(a)
	}
	return string(a) + "_" + string(v)
}

// Targets returns every target name the dispatcher can emit for reg.
func Targets(reg variant.Registry) []string {
	var out []string
	for _, a := range Actions {
		if !a.TakesVariant() {
			out = append(out, Subcommand(a, ""))
			continue
		}
		for _, v := range reg.Variants() {
			out = append(out, Subcommand(a, v))
		}
	}
	return out
}

// Describe returns the one-line help the build tool carries for target.
func Describe(target string) string {
	if d, ok := descriptions[target]; ok {
		return d
	}
	return ""
}

var descriptions = func() map[string]string {
	scope := map[string]string{
		"dev_server": "the server in the develop configuration",
		"rel_server": "the server in the release configuration",
		"dev_client": "the client in the develop configuration",
		"rel_client": "the client in the release configuration",
		"dev_all":    "the server and client in the develop configuration",
		"rel_all":    "the server and client in the release configuration",
		"all":        "the server and client in the develop and release configurations",
	}
	d := map[string]string{
		"clean": "clean the project and remove the build directory with all its artefacts",
		"docs":  "generate the docs for the project",
	}
	for v, s := range scope {
		d["build_"+v] = "build " + s
		d["lint_"+v] = "lint " + s
		d["run_"+v] = "run " + s
	}
	return d
}()

// Bootstrapper guarantees the build tool exists before dispatch.
type Bootstrapper interface {
	EnsureBinary(ctx context.Context, root string) error
	BinaryPath(root string) string
}

// Recorder receives one record per dispatch.
type Recorder interface {
	PutRun(rec v1.RunRecord) error
}

// Dispatcher runs build tool targets.
type Dispatcher struct {
	Registry  variant.Registry
	Bootstrap Bootstrapper
	Runner    procexec.Runner
	Root      string
	Log       *logger.Logger
	Recorder  Recorder // optional

	// Notify, when set, receives the user-facing progress lines.
	Notify func(msg string)
}

// New returns a Dispatcher rooted at root.
func New(reg variant.Registry, boot Bootstrapper, runner procexec.Runner, root string, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{Registry: reg, Bootstrap: boot, Runner: runner, Root: root, Log: log}
}

func (d *Dispatcher) Clean(ctx context.Context) error {
	return d.Dispatch(ctx, Request{Action: ActionClean})
}

func (d *Dispatcher) Build(ctx context.Context, v variant.Variant) error {
	return d.Dispatch(ctx, Request{Action: ActionBuild, Variant: v})
}

func (d *Dispatcher) Lint(ctx context.Context, v variant.Variant) error {
	return d.Dispatch(ctx, Request{Action: ActionLint, Variant: v})
}

func (d *Dispatcher) Docs(ctx context.Context) error {
	return d.Dispatch(ctx, Request{Action: ActionDocs})
}

func (d *Dispatcher) Run(ctx context.Context, v variant.Variant) error {
	return d.Dispatch(ctx, Request{Action: ActionRun, Variant: v})
}

// Dispatch validates req, bootstraps the build tool and runs the target.
//
// Validation happens before anything touches the filesystem. A bootstrap
// failure stops the request before the target runs. A non-zero exit of the
// target is returned as ErrChildFailed carrying the status.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	op := "dispatch." + string(req.Action)

	if req.Action.TakesVariant() && !d.Registry.Validate(string(req.Variant)) {
		return errs.Newf(errs.ErrInvalidVariant, op, "%s configuration must be one of the %s", req.Action, quotedList(d.Registry.Names())).
			WithResource(string(req.Variant))
	}
	if !req.Action.TakesVariant() {
		if _, err := ParseAction(string(req.Action)); err != nil {
			return err
		}
		req.Variant = ""
	}

	if err := d.Bootstrap.EnsureBinary(ctx, d.Root); err != nil {
		return err
	}

	sub := req.Subcommand()
	rec := v1.RunRecord{
		ID:          uuid.NewString(),
		Action:      string(req.Action),
		Variant:     string(req.Variant),
		Subcommand:  sub,
		ProjectRoot: d.Root,
		StartedAt:   time.Now().UTC(),
	}

	d.notify(progressLine(req))
	cmd := procexec.Command{Name: d.Bootstrap.BinaryPath(d.Root), Args: []string{sub}, Dir: d.Root}
	d.Log.Info("dispatching", "target", sub, "root", d.Root)

	code, err := d.Runner.Run(ctx, cmd)
	rec.DurationMS = time.Since(rec.StartedAt).Milliseconds()
	rec.ExitCode = code

	switch {
	case err != nil:
		err = errs.Wrap(err, errs.ErrChildSpawn, op).WithResource(cmd.Name)
	case code != 0:
		err = errs.Newf(errs.ErrChildFailed, op, "%s exited with status %d", sub, code).
			WithResource(cmd.Name).
			WithStatus(code)
	}

	if err != nil {
		rec.Result = v1.ResultFailure
		rec.Error = err.Error()
	} else {
		rec.Result = v1.ResultSuccess
	}
	d.record(rec)
	return err
}

// quotedList renders names as ['a', 'b'].
func quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func progressLine(req Request) string {
	switch req.Action {
	case ActionClean:
		return "cleaning the project."
	case ActionBuild:
		return "building the project."
	case ActionLint:
		return fmt.Sprintf("linting the project for %s.", req.Variant)
	case ActionDocs:
		return "generating documentation."
	case ActionRun:
		return fmt.Sprintf("running the project for %s.", req.Variant)
	}
	return string(req.Action)
}

func (d *Dispatcher) notify(msg string) {
	if d.Notify != nil {
		d.Notify(msg)
	}
}

func (d *Dispatcher) record(rec v1.RunRecord) {
	if d.Recorder == nil {
		return
	}
	if err := d.Recorder.PutRun(rec); err != nil {
		d.Log.Warn("record run", "err", err)
	}
}
