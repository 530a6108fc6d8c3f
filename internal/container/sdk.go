package container

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/moby/patternmatcher/ignorefile"

	"github.com/f9-o/buildctl/internal/core/logger"
)

// SDKEngine talks to the Docker daemon through the Engine API.
type SDKEngine struct {
	docker *dockerclient.Client
	log    *logger.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewSDKEngine creates a Docker API client. An empty host uses DOCKER_HOST
// and friends from the environment.
func NewSDKEngine(host string, log *logger.Logger) (*SDKEngine, error) {
	opts := []dockerclient.Opt{
		dockerclient.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, dockerclient.WithHost(host))
	} else {
		opts = append(opts, dockerclient.FromEnv)
	}

	dc, err := dockerclient.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SDKEngine{docker: dc, log: log, stdout: os.Stdout, stderr: os.Stderr}, nil
}

// Close releases the Docker API client resources.
func (e *SDKEngine) Close() error {
	return e.docker.Close()
}

// ImageTags returns every repository:tag known to the local daemon.
func (e *SDKEngine) ImageTags(ctx context.Context) ([]string, error) {
	images, err := e.docker.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("image list: %w", err)
	}
	var tags []string
	for _, img := range images {
		tags = append(tags, img.RepoTags...)
	}
	return tags, nil
}

// BuildImage sends the context directory to the daemon and streams the build
// output. An error reported inside the build stream is exit status 1.
func (e *SDKEngine) BuildImage(ctx context.Context, req BuildRequest) (int, error) {
	e.log.Info("building image", "tag", req.Tag, "dockerfile", req.Dockerfile, "context", req.ContextDir)

	buildCtx, err := BuildContext(req.ContextDir, req.Dockerfile)
	if err != nil {
		return 1, err
	}
	defer buildCtx.Close()

	resp, err := e.docker.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Dockerfile: filepath.ToSlash(filepath.Clean(req.Dockerfile)),
		Tags:       []string{req.Tag},
		Remove:     true,
	})
	if err != nil {
		return 1, fmt.Errorf("image build %q: %w", req.Tag, err)
	}
	defer resp.Body.Close()

	if err := e.streamBuild(resp.Body); err != nil {
		var be *buildError
		if errors.As(err, &be) {
			fmt.Fprintln(e.stderr, be.msg)
			return 1, nil
		}
		return 1, err
	}
	return 0, nil
}

// BuildContext tars dir for an image build, leaving out what .dockerignore
// excludes. The dockerfile and .dockerignore itself are always sent, as the
// docker CLI does.
func BuildContext(dir, dockerfile string) (io.ReadCloser, error) {
	excludes, err := readDockerignore(dir)
	if err != nil {
		return nil, err
	}
	if len(excludes) > 0 {
		excludes = append(excludes, "!"+filepath.ToSlash(filepath.Clean(dockerfile)), "!.dockerignore")
	}
	rc, err := archive.TarWithOptions(dir, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		return nil, fmt.Errorf("archive build context %q: %w", dir, err)
	}
	return rc, nil
}

func readDockerignore(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open .dockerignore: %w", err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read .dockerignore: %w", err)
	}
	return patterns, nil
}

type buildError struct{ msg string }

func (b *buildError) Error() string { return b.msg }

func (e *SDKEngine) streamBuild(r io.Reader) error {
	dec := json.NewDecoder(r)
	for {
		var msg struct {
			Stream      string `json:"stream"`
			Status      string `json:"status"`
			Error       string `json:"error"`
			ErrorDetail struct {
				Message string `json:"message"`
			} `json:"errorDetail"`
		}
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode build output: %w", err)
		}
		if msg.Error != "" {
			return &buildError{msg: msg.Error}
		}
		if msg.ErrorDetail.Message != "" {
			return &buildError{msg: msg.ErrorDetail.Message}
		}
		if msg.Stream != "" {
			fmt.Fprint(e.stdout, msg.Stream)
		}
		if msg.Status != "" {
			e.log.Debug("build", "status", msg.Status)
		}
	}
}

// Run creates the container, streams its output until it exits, then removes it.
func (e *SDKEngine) Run(ctx context.Context, req RunRequest) (int, error) {
	containerCfg := &containertypes.Config{
		Image:        req.Image,
		Cmd:          req.Cmd,
		WorkingDir:   req.Workdir,
		AttachStdout: true,
		AttachStderr: true,
	}
	hostCfg := &containertypes.HostConfig{
		Binds: []string{req.Bind()},
	}

	resp, err := e.docker.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, req.Name)
	if err != nil {
		return 1, fmt.Errorf("container create %q: %w", req.Name, err)
	}
	id := resp.ID
	defer func() {
		// the caller's context may already be cancelled
		if err := e.docker.ContainerRemove(context.Background(), id, containertypes.RemoveOptions{Force: true}); err != nil {
			e.log.Warn("container remove", "id", shortID(id), "err", err)
		}
	}()

	attach, err := e.docker.ContainerAttach(ctx, id, containertypes.AttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return 1, fmt.Errorf("container attach %q: %w", shortID(id), err)
	}
	defer attach.Close()

	waitC, errC := e.docker.ContainerWait(ctx, id, containertypes.WaitConditionNextExit)

	if err := e.docker.ContainerStart(ctx, id, containertypes.StartOptions{}); err != nil {
		return 1, fmt.Errorf("container start %q: %w", shortID(id), err)
	}
	e.log.Info("container started", "name", req.Name, "id", shortID(id))

	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(e.stdout, e.stderr, attach.Reader)
		copied <- err
	}()

	select {
	case res := <-waitC:
		if cerr := <-copied; cerr != nil {
			e.log.Debug("container output", "err", cerr)
		}
		if res.Error != nil {
			return 1, fmt.Errorf("container wait %q: %s", shortID(id), res.Error.Message)
		}
		e.log.Info("container exited", "id", shortID(id), "status", res.StatusCode)
		return int(res.StatusCode), nil
	case err := <-errC:
		return 1, fmt.Errorf("container wait %q: %w", shortID(id), err)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
