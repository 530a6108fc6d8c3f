package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	cwd := filepath.Join(t.TempDir(), "proj", "scripts")
	require.NoError(t, os.MkdirAll(cwd, 0o755))

	cfg, err := load("", cwd, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gcc", cfg.Toolchain.Compiler)
	assert.Equal(t, []string{"-std=gnu11", "-Wall", "-Wextra", "-Werror"}, cfg.Toolchain.Flags)
	assert.Equal(t, "build.bin.old", cfg.Toolchain.StaleBinary)
	assert.Equal(t, "mediantazy_dev_container_image:0.1", cfg.Container.Image)
	assert.Equal(t, "shell", cfg.Container.ExecMode)
	assert.True(t, cfg.State.Enabled)
	assert.Empty(t, cfg.File)
}

func TestLoadDiscoversProjectConfig(t *testing.T) {
	proj := filepath.Join(t.TempDir(), "proj")
	cwd := filepath.Join(proj, "scripts")
	writeFile(t, filepath.Join(proj, FileName), `
toolchain:
  compiler: clang
container:
  engine: cli
  exec_mode: argv
project:
  root: .
`)
	require.NoError(t, os.MkdirAll(cwd, 0o755))

	cfg, err := load("", cwd, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(proj, FileName), cfg.File)
	assert.Equal(t, "clang", cfg.Toolchain.Compiler)
	assert.Equal(t, "build.c", cfg.Toolchain.Source)
	assert.Equal(t, "cli", cfg.Container.Engine)
	assert.Equal(t, "argv", cfg.Container.ExecMode)
	assert.Equal(t, proj, cfg.Project.Root)
}

func TestGlobalThenProjectThenEnv(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, "config.yaml"), "log:\n  level: debug\n  format: json\n")
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, FileName), "log:\n  format: text\n")
	t.Setenv("BUILDCTL_TOOLCHAIN_BINARY", "tool.bin")

	cfg, err := load(filepath.Join(proj, FileName), proj, home)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "tool.bin", cfg.Toolchain.Binary)
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, FileName), "")
	writeFile(t, filepath.Join(proj, ".env"), "BUILDCTL_CONTAINER_SHELL=/bin/sh\nBUILDCTL_LOG_LEVEL=warn\n")
	t.Setenv("BUILDCTL_LOG_LEVEL", "error")
	t.Setenv("BUILDCTL_CONTAINER_SHELL", "")
	require.NoError(t, os.Unsetenv("BUILDCTL_CONTAINER_SHELL"))

	cfg, err := load("", proj, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", cfg.Container.Shell)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestExplicitMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), t.TempDir(), t.TempDir())
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad engine", "container:\n  engine: podman\n"},
		{"bad exec mode", "container:\n  exec_mode: exec\n"},
		{"untagged image", "container:\n  image: mediantazy\n"},
		{"registry port only", "container:\n  image: localhost:5000/img\n"},
		{"empty compiler", "toolchain:\n  compiler: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := t.TempDir()
			writeFile(t, filepath.Join(proj, FileName), tt.body)
			_, err := load(filepath.Join(proj, FileName), proj, t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation")
		})
	}
}

func TestProjectRoot(t *testing.T) {
	var cfg *Config
	root, err := cfg.ProjectRoot("", "/home/dev/proj/scripts")
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/proj", root)

	cfg = &Config{Project: ProjectConfig{Root: "/srv/proj"}}
	root, _ = cfg.ProjectRoot("", "/x/y")
	assert.Equal(t, "/srv/proj", root)

	root, _ = cfg.ProjectRoot("..", "/x/y")
	assert.Equal(t, "/x", root)
}

func TestTemplateLoads(t *testing.T) {
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, FileName), DefaultConfigTemplate)
	cfg, err := load("", proj, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "gcc", cfg.Toolchain.Compiler)
}
