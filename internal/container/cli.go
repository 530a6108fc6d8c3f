package container

import (
	"context"
	"fmt"

	"github.com/f9-o/buildctl/internal/procexec"
)

// CLIEngine drives the docker command line client.
type CLIEngine struct {
	Binary string // defaults to "docker"
	Runner procexec.Runner
}

// NewCLIEngine returns a CLIEngine that spawns docker through runner.
func NewCLIEngine(runner procexec.Runner) *CLIEngine {
	return &CLIEngine{Binary: "docker", Runner: runner}
}

func (e *CLIEngine) bin() string {
	if e.Binary == "" {
		return "docker"
	}
	return e.Binary
}

// ImageTags lists local images as repository:tag lines.
func (e *CLIEngine) ImageTags(ctx context.Context) ([]string, error) {
	out, code, err := e.Runner.Output(ctx, procexec.Command{
		Name: e.bin(),
		Args: []string{"images", "--format", "{{.Repository}}:{{.Tag}}"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s images: %w", e.bin(), err)
	}
	if code != 0 {
		return nil, fmt.Errorf("%s images exited with status %d", e.bin(), code)
	}
	return parseImageList(out), nil
}

// BuildImage runs `docker build -f <dockerfile> -t <tag> .` in the context dir.
func (e *CLIEngine) BuildImage(ctx context.Context, req BuildRequest) (int, error) {
	return e.Runner.Run(ctx, procexec.Command{
		Name: e.bin(),
		Args: BuildArgs(req),
		Dir:  req.ContextDir,
	})
}

// Run runs `docker run --rm` with the project bind-mounted.
func (e *CLIEngine) Run(ctx context.Context, req RunRequest) (int, error) {
	return e.Runner.Run(ctx, procexec.Command{
		Name: e.bin(),
		Args: RunArgs(req),
		Dir:  req.HostDir,
	})
}

func (e *CLIEngine) Close() error { return nil }

// BuildArgs returns the docker arguments for req.
func BuildArgs(req BuildRequest) []string {
	return []string{"build", "-f", req.Dockerfile, "-t", req.Tag, "."}
}

// RunArgs returns the docker arguments for req.
func RunArgs(req RunRequest) []string {
	args := []string{"run", "--rm"}
	if req.Name != "" {
		args = append(args, "--name", req.Name)
	}
	args = append(args, "-v", req.Bind(), "-w", req.Workdir, req.Image)
	return append(args, req.Cmd...)
}
