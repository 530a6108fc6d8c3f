package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f9-o/buildctl/internal/container"
	"github.com/f9-o/buildctl/internal/core/config"
	"github.com/f9-o/buildctl/internal/core/logger"
	"github.com/f9-o/buildctl/internal/core/state"
	"github.com/f9-o/buildctl/internal/procexec"
	"github.com/f9-o/buildctl/pkg/pprint"
)

// recordingRunner plays the compiler and the build tool.
type recordingRunner struct {
	calls    []procexec.Command
	toolExit int
}

func (r *recordingRunner) Run(_ context.Context, cmd procexec.Command) (int, error) {
	r.calls = append(r.calls, cmd)
	if cmd.Name == "gcc" {
		for i, a := range cmd.Args {
			if a == "-o" {
				return 0, os.WriteFile(cmd.Args[i+1], nil, 0o600)
			}
		}
	}
	return r.toolExit, nil
}

func (r *recordingRunner) Output(context.Context, procexec.Command) (string, int, error) {
	return "", 0, nil
}

// project lays out <tmp>/proj/scripts, moves into scripts and isolates HOME.
func project(t *testing.T) (root string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "proj")
	scripts := filepath.Join(root, "scripts")
	require.NoError(t, os.MkdirAll(scripts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "build.c"), []byte("int main(void){return 0;}\n"), 0o644))

	t.Setenv("HOME", filepath.Join(base, "home"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(scripts))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	oldOut, oldErr := pprint.Stdout, pprint.Stderr
	pprint.Stdout, pprint.Stderr = io.Discard, io.Discard
	t.Cleanup(func() { pprint.Stdout, pprint.Stderr = oldOut, oldErr })

	// resolve symlinked temp dirs the same way os.Getwd will
	resolved, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Dir(resolved)
}

func fakeRunner(t *testing.T, r *recordingRunner) {
	t.Helper()
	old := newRunner
	newRunner = func(*logger.Logger, bool) procexec.Runner { return r }
	t.Cleanup(func() { newRunner = old })
}

func TestBuildAllEndToEnd(t *testing.T) {
	root := project(t)
	r := &recordingRunner{}
	fakeRunner(t, r)

	require.Equal(t, 0, Run([]string{"build", "--type", "all"}))

	require.Len(t, r.calls, 2)
	assert.Equal(t, "gcc", r.calls[0].Name)
	assert.Equal(t, procexec.Command{Name: filepath.Join(root, "build.bin"), Args: []string{"build_all"}, Dir: root}, r.calls[1])

	st, err := os.Stat(filepath.Join(root, "build.bin"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), st.Mode().Perm())

	// second run reuses the binary
	require.Equal(t, 0, Run([]string{"lint"}))
	require.Len(t, r.calls, 3)
	assert.Equal(t, []string{"lint_all"}, r.calls[2].Args)

	cfg, err := config.Load("")
	require.NoError(t, err)
	db, err := state.Open(cfg.State.Path)
	require.NoError(t, err)
	runs, err := db.ListRuns("", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	require.NoError(t, db.Close())

	assert.Equal(t, 0, Run([]string{"history", "--id", runs[0].ID}))
	assert.Equal(t, 1, Run([]string{"history", "--id", "no-such-run"}))
}

func TestDocsAndCleanTakeNoVariant(t *testing.T) {
	project(t)
	r := &recordingRunner{}
	fakeRunner(t, r)

	require.Equal(t, 0, Run([]string{"docs"}))
	require.Equal(t, 0, Run([]string{"clean"}))
	assert.Equal(t, []string{"docs"}, r.calls[1].Args)
	assert.Equal(t, []string{"clean"}, r.calls[2].Args)

	assert.Equal(t, 1, Run([]string{"docs", "--type", "all"}))
}

func TestChildFailureExitsOne(t *testing.T) {
	project(t)
	r := &recordingRunner{toolExit: 7}
	fakeRunner(t, r)

	assert.Equal(t, 1, Run([]string{"build", "--type", "dev_server"}))
}

func TestInvalidInputExitsOneWithoutSideEffects(t *testing.T) {
	root := project(t)
	r := &recordingRunner{}
	fakeRunner(t, r)

	for _, args := range [][]string{
		{"build", "--type", "debug"},
		{"run", "--type", "ALL"},
		{"deploy"},
		{},
	} {
		assert.Equal(t, 1, Run(args), "%v", args)
	}
	assert.Empty(t, r.calls)
	_, err := os.Stat(filepath.Join(root, "build.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestRootOverride(t *testing.T) {
	project(t)
	other := t.TempDir()
	r := &recordingRunner{}
	fakeRunner(t, r)

	require.Equal(t, 0, Run([]string{"--root", other, "run", "--type", "rel_all"}))
	assert.Equal(t, other, r.calls[1].Dir)
	assert.Equal(t, []string{"run_rel_all"}, r.calls[1].Args)
}

func TestVersionAndTargets(t *testing.T) {
	project(t)
	fakeRunner(t, &recordingRunner{})
	assert.Equal(t, 0, Run([]string{"targets"}))
	assert.Equal(t, 0, Run([]string{"history", "--action", "build"}))
	assert.Equal(t, 1, Run([]string{"history", "--action", "deploy"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(io.EOF))
}

// ─────────────────────────────────────────────────────────────────────────────
// buildctl-container
// ─────────────────────────────────────────────────────────────────────────────

type stubEngine struct {
	tags     []string
	buildRes int
	runRes   int
	steps    []string
	runs     []container.RunRequest
}

func (s *stubEngine) ImageTags(context.Context) ([]string, error) {
	s.steps = append(s.steps, "images")
	return s.tags, nil
}

func (s *stubEngine) BuildImage(context.Context, container.BuildRequest) (int, error) {
	s.steps = append(s.steps, "build")
	return s.buildRes, nil
}

func (s *stubEngine) Run(_ context.Context, req container.RunRequest) (int, error) {
	s.steps = append(s.steps, "run")
	s.runs = append(s.runs, req)
	return s.runRes, nil
}

func (s *stubEngine) Close() error { return nil }

func fakeEngine(t *testing.T, e *stubEngine) {
	t.Helper()
	old := newEngine
	newEngine = func(config.Config, *logger.Logger) (container.Engine, error) { return e, nil }
	t.Cleanup(func() { newEngine = old })
}

func TestContainerForwardsArgsAndStatus(t *testing.T) {
	root := project(t)
	e := &stubEngine{runRes: 3}
	fakeEngine(t, e)

	assert.Equal(t, 3, RunContainer([]string{"build", "--type", "dev_server"}))
	assert.Equal(t, []string{"images", "build", "run"}, e.steps)
	require.Len(t, e.runs, 1)
	assert.Equal(t, root, e.runs[0].HostDir)
	assert.Equal(t, "cd ./scripts && buildctl build --type dev_server", e.runs[0].Cmd[2])
}

func TestContainerImageBuildFailure(t *testing.T) {
	project(t)
	e := &stubEngine{buildRes: 2}
	fakeEngine(t, e)

	assert.Equal(t, 2, RunContainer([]string{"docs"}))
	assert.Equal(t, []string{"images", "build"}, e.steps)
}

func TestContainerRequiresArgs(t *testing.T) {
	project(t)
	e := &stubEngine{}
	fakeEngine(t, e)

	assert.Equal(t, 1, RunContainer(nil))
	assert.Equal(t, 1, RunContainer([]string{}))
	assert.Empty(t, e.steps)
}

func TestNilArgsDoNotFallBackToProcessArgs(t *testing.T) {
	project(t)
	r := &recordingRunner{}
	fakeRunner(t, r)

	assert.Equal(t, 1, Run(nil))
	assert.Empty(t, r.calls)
}

func TestDryRunKeepsStaleBackup(t *testing.T) {
	root := project(t)
	stale := filepath.Join(root, "build.bin.old")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o755))
	fakeRunner(t, &recordingRunner{})

	require.Equal(t, 0, Run([]string{"--dry-run", "build"}))
	_, err := os.Stat(stale)
	assert.NoError(t, err)
}

func TestContainerImagePresent(t *testing.T) {
	project(t)
	e := &stubEngine{tags: []string{"mediantazy_dev_container_image:0.1"}}
	fakeEngine(t, e)

	assert.Equal(t, 0, RunContainer([]string{"--help"}))
	assert.Equal(t, []string{"images", "run"}, e.steps)
	assert.Equal(t, "cd ./scripts && buildctl --help", e.runs[0].Cmd[2])
}
