package container

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	v1 "github.com/f9-o/buildctl/api/v1"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/pkg/errs"
)

// Wrapper re-invokes buildctl inside the development container.
type Wrapper struct {
	Engine Engine
	Spec   v1.ContainerSpec
	Log    *logger.Logger

	// Root is the project directory to mount. Empty means the parent of
	// the current working directory.
	Root string

	// Notify, when set, receives the user-facing progress lines.
	Notify func(msg string)
}

// NewWrapper returns a Wrapper using engine and spec.
func NewWrapper(engine Engine, spec v1.ContainerSpec, log *logger.Logger) *Wrapper {
	if log == nil {
		log = logger.Nop()
	}
	return &Wrapper{Engine: engine, Spec: spec, Log: log}
}

// ProjectRootFromCwd returns the project root for a wrapper started in cwd,
// which is expected to be a direct subdirectory of the project.
func ProjectRootFromCwd(cwd string) string {
	return filepath.Dir(filepath.Clean(cwd))
}

// RunInContainer builds the image when missing, then runs buildctl with args
// inside a fresh container and returns the container's exit status.
//
// A failed image build returns the build's exit status without running
// anything. There is no fallback to running on the host.
func (w *Wrapper) RunInContainer(ctx context.Context, args []string) (int, error) {
	root, err := w.root()
	if err != nil {
		return 1, err
	}

	present, err := w.imagePresent(ctx)
	if err != nil {
		return 1, err
	}

	if !present {
		w.notify(fmt.Sprintf("building image %s.", w.Spec.Image))
		code, err := w.Engine.BuildImage(ctx, BuildRequest{
			ContextDir: root,
			Dockerfile: w.Spec.Dockerfile,
			Tag:        w.Spec.Image,
		})
		if err != nil {
			return code, errs.Wrap(err, errs.ErrContainerEngine, "container.build").WithResource(w.Spec.Image)
		}
		if code != 0 {
			return code, errs.Newf(errs.ErrImageBuildFailed, "container.build", "image build exited with status %d", code).
				WithResource(w.Spec.Image).
				WithStatus(code).
				WithAdvice(fmt.Sprintf("check %s in %s", w.Spec.Dockerfile, root))
		}
	}

	req := w.RunRequest(root, args)
	w.Log.Info("running in container", "image", req.Image, "cmd", strings.Join(req.Cmd, " "), "mode", w.Spec.ExecMode)

	code, err := w.Engine.Run(ctx, req)
	if err != nil {
		return code, errs.Wrap(err, errs.ErrContainerEngine, "container.run").WithResource(req.Image)
	}
	if code != 0 {
		return code, errs.Newf(errs.ErrContainerRunFailed, "container.run", "container exited with status %d", code).
			WithResource(req.Name).
			WithStatus(code)
	}
	return 0, nil
}

// RunRequest builds the container run for args in the configured exec mode.
func (w *Wrapper) RunRequest(root string, args []string) RunRequest {
	req := RunRequest{
		Image:   w.Spec.Image,
		Name:    w.Spec.ContainerName,
		HostDir: root,
		Mount:   w.Spec.Workdir,
		Workdir: w.Spec.Workdir,
	}
	if w.Spec.ExecMode == ExecArgv {
		req.Workdir = path.Join(w.Spec.Workdir, w.Spec.ScriptsDir)
		req.Cmd = append([]string{w.Spec.Entrypoint}, args...)
		return req
	}
	req.Cmd = []string{w.Spec.Shell, "-c", ShellCommand(w.Spec, args)}
	return req
}

// ShellCommand returns the single command line run by the container shell.
// Arguments are joined with single spaces and are not quoted.
func ShellCommand(spec v1.ContainerSpec, args []string) string {
	return "cd " + spec.ScriptsDir + " && " + spec.Entrypoint + " " + strings.Join(args, " ")
}

func (w *Wrapper) imagePresent(ctx context.Context) (bool, error) {
	tags, err := w.Engine.ImageTags(ctx)
	if err != nil {
		return false, errs.Wrap(err, errs.ErrContainerEngine, "container.images").
			WithAdvice("is the docker daemon running?")
	}
	for _, t := range tags {
		if t == w.Spec.Image {
			w.Log.Debug("image present", "image", t)
			return true, nil
		}
	}
	return false, nil
}

func (w *Wrapper) root() (string, error) {
	if w.Root != "" {
		return w.Root, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", errs.Wrap(err, errs.ErrInternal, "container.cwd")
	}
	return ProjectRootFromCwd(cwd), nil
}

func (w *Wrapper) notify(msg string) {
	if w.Notify != nil {
		w.Notify(msg)
	}
}
