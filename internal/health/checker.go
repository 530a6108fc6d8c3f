// Package health runs preflight probes against the build environment:
// the toolchain, the project files and the container runtime.
package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	v1 "github.com/f9-o/buildctl/api/v1"
	"github.com/f9-o/buildctl/internal/core/logger"
)

// DefaultTimeout bounds each probe that talks to an external service.
const DefaultTimeout = 5 * time.Second

// Status of a single probe.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is the outcome of one probe.
type Result struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// ImageLister is satisfied by container engines.
type ImageLister interface {
	ImageTags(ctx context.Context) ([]string, error)
}

// Checker probes the environment a project needs.
type Checker struct {
	Root      string
	Toolchain v1.ToolchainSpec
	Container v1.ContainerSpec
	Engine    ImageLister // nil skips the container probes
	Log       *logger.Logger

	lookPath func(string) (string, error)
}

// NewChecker constructs a Checker for the project at root.
func NewChecker(root string, tc v1.ToolchainSpec, cs v1.ContainerSpec, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.Nop()
	}
	return &Checker{Root: root, Toolchain: tc, Container: cs, Log: log, lookPath: exec.LookPath}
}

// Run performs every probe and returns the results in a stable order.
func (c *Checker) Run(ctx context.Context) []Result {
	results := []Result{
		c.checkCompiler(),
		c.checkFile("build tool source", c.Toolchain.Source, StatusFail),
		c.checkBinary(),
	}
	if c.Engine != nil {
		results = append(results,
			c.checkFile("dockerfile", c.Container.Dockerfile, StatusWarn),
			c.checkImage(ctx),
		)
	}
	for _, r := range results {
		c.Log.Debug("probe", "name", r.Name, "status", r.Status, "detail", r.Detail)
	}
	return results
}

// Healthy reports whether no probe failed. Warnings do not count.
func Healthy(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return false
		}
	}
	return true
}

func (c *Checker) checkCompiler() Result {
	r := Result{Name: "compiler"}
	path, err := c.lookPath(c.Toolchain.Compiler)
	if err != nil {
		// only needed until the build tool is bootstrapped
		r.Status = StatusWarn
		if _, statErr := os.Stat(filepath.Join(c.Root, c.Toolchain.Binary)); errors.Is(statErr, fs.ErrNotExist) {
			r.Status = StatusFail
		}
		r.Detail = fmt.Sprintf("%s not found on PATH", c.Toolchain.Compiler)
		return r
	}
	r.Status = StatusOK
	r.Detail = path
	return r
}

func (c *Checker) checkFile(name, rel string, missing Status) Result {
	path := filepath.Join(c.Root, rel)
	st, err := os.Stat(path)
	switch {
	case err != nil:
		return Result{Name: name, Status: missing, Detail: fmt.Sprintf("%s: %v", path, errors.Unwrap(err))}
	case st.IsDir():
		return Result{Name: name, Status: StatusFail, Detail: path + " is a directory"}
	}
	return Result{Name: name, Status: StatusOK, Detail: path}
}

func (c *Checker) checkBinary() Result {
	path := filepath.Join(c.Root, c.Toolchain.Binary)
	st, err := os.Stat(path)
	if err != nil {
		return Result{Name: "build tool", Status: StatusWarn, Detail: "not bootstrapped yet; the next command compiles it"}
	}
	if st.Mode().Perm()&0o100 == 0 {
		return Result{Name: "build tool", Status: StatusFail, Detail: path + " is not executable"}
	}
	return Result{Name: "build tool", Status: StatusOK, Detail: path}
}

func (c *Checker) checkImage(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	tags, err := c.Engine.ImageTags(ctx)
	if err != nil {
		return Result{Name: "container runtime", Status: StatusFail, Detail: err.Error()}
	}
	for _, t := range tags {
		if t == c.Container.Image {
			return Result{Name: "container runtime", Status: StatusOK, Detail: c.Container.Image + " present"}
		}
	}
	return Result{Name: "container runtime", Status: StatusWarn, Detail: c.Container.Image + " missing; buildctl-container builds it on first use"}
}
