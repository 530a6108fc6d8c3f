// Package container re-runs buildctl inside the project's development
// container, building the image on first use.
package container

import (
	"context"
	"fmt"
	"strings"

	v1 "github.com/f9-o/buildctl/api/v1"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/internal/procexec"
)

// Engine names accepted by container.engine.
const (
	EngineSDK = "sdk"
	EngineCLI = "cli"
)

// Exec modes accepted by container.exec_mode.
const (
	// ExecShell joins the forwarded arguments with single spaces into one
	// shell command line. Arguments containing spaces or shell
	// metacharacters are not escaped.
	ExecShell = "shell"
	// ExecArgv passes the forwarded arguments to the entrypoint as an
	// argument vector; no shell is involved.
	ExecArgv = "argv"
)

// DefaultSpec returns the development container settings.
func DefaultSpec() v1.ContainerSpec {
	return v1.ContainerSpec{
		Engine:        EngineSDK,
		Image:         "mediantazy_dev_container_image:0.1",
		ContainerName: "mediantazy_dev_container",
		Dockerfile:    "./.dockerfile",
		Workdir:       "/workspace",
		ScriptsDir:    "./scripts",
		Entrypoint:    "buildctl",
		Shell:         "/bin/bash",
		ExecMode:      ExecShell,
	}
}

// BuildRequest describes an image build.
type BuildRequest struct {
	ContextDir string // build context, the project root
	Dockerfile string // relative to ContextDir
	Tag        string // repository:tag
}

// RunRequest describes a throwaway container run.
type RunRequest struct {
	Image   string
	Name    string
	HostDir string // bind-mounted read-write at Workdir
	Mount   string // in-container mount point of HostDir
	Workdir string
	Cmd     []string
}

// Bind returns the docker bind specification for the request.
func (r RunRequest) Bind() string {
	return r.HostDir + ":" + r.Mount
}

// Engine is the subset of a container runtime the wrapper needs.
//
// BuildImage and Run report the exit status of the build or of the
// container's main process. The error is reserved for failures to talk to
// the runtime at all.
type Engine interface {
	ImageTags(ctx context.Context) ([]string, error)
	BuildImage(ctx context.Context, req BuildRequest) (int, error)
	Run(ctx context.Context, req RunRequest) (int, error)
	Close() error
}

// parseImageList splits `docker images --format` output into tags.
func parseImageList(out string) []string {
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			tags = append(tags, line)
		}
	}
	return tags
}

// NewEngine connects to the runtime selected by spec.Engine.
func NewEngine(spec v1.ContainerSpec, runner procexec.Runner, log *logger.Logger) (Engine, error) {
	switch spec.Engine {
	case EngineCLI:
		return NewCLIEngine(runner), nil
	case EngineSDK, "":
		return NewSDKEngine(spec.Host, log)
	default:
		return nil, fmt.Errorf("unknown container engine %q", spec.Engine)
	}
}
