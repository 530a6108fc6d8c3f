// Package config provides the buildctl configuration loader.
// Config is loaded by merging defaults → ~/.buildctl/config.yaml → buildctl.yaml → BUILDCTL_* env vars.
// A .env file next to the project config is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	v1 "github.com/f9-o/buildctl/api/v1"
	"github.com/f9-o/buildctl/internal/bootstrap"
	"github.com/f9-o/buildctl/internal/container"
)

// FileName is the project config file discovered by walking up from the CWD.
const FileName = "buildctl.yaml"

// Defaults returns the factory-default values applied before any config file is loaded.
func Defaults() map[string]any {
	tc := bootstrap.DefaultToolchain()
	cs := container.DefaultSpec()
	return map[string]any{
		"project.root":             "",
		"toolchain.compiler":       tc.Compiler,
		"toolchain.flags":          tc.Flags,
		"toolchain.source":         tc.Source,
		"toolchain.binary":         tc.Binary,
		"toolchain.stale_binary":   tc.StaleBinary,
		"container.engine":         cs.Engine,
		"container.host":           cs.Host,
		"container.image":          cs.Image,
		"container.container_name": cs.ContainerName,
		"container.dockerfile":     cs.Dockerfile,
		"container.workdir":        cs.Workdir,
		"container.scripts_dir":    cs.ScriptsDir,
		"container.entrypoint":     cs.Entrypoint,
		"container.shell":          cs.Shell,
		"container.exec_mode":      cs.ExecMode,
		"log.level":                "info",
		"log.format":               "text",
		"log.file":                 filepath.Join(buildctlHome(), "logs", "buildctl.log"),
		"state.enabled":            true,
		"state.path":               filepath.Join(buildctlHome(), "state.db"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Config types
// ─────────────────────────────────────────────────────────────────────────────

// Config is the fully-decoded configuration.
type Config struct {
	Project   ProjectConfig    `mapstructure:"project"`
	Toolchain v1.ToolchainSpec `mapstructure:"toolchain"`
	Container v1.ContainerSpec `mapstructure:"container"`
	Log       LogConfig        `mapstructure:"log"`
	State     StateConfig      `mapstructure:"state"`

	// File is the project config that was merged, empty if none.
	File string `mapstructure:"-"`
}

// ProjectConfig holds project-level settings.
type ProjectConfig struct {
	Root string `mapstructure:"root"` // empty = parent of the CWD
}

// LogConfig controls logging behaviour.
type LogConfig struct {
	Level  string `mapstructure:"level"` // debug | info | warn | error
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"` // json | text
}

// StateConfig controls the run history database.
type StateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Loader
// ─────────────────────────────────────────────────────────────────────────────

// Load discovers and loads the configuration, walking up directories from the
// CWD to find buildctl.yaml, then merging it with the global config and
// environment variables.
func Load(explicitPath string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	return load(explicitPath, cwd, buildctlHome())
}

func load(explicitPath, startDir, home string) (*Config, error) {
	projectFile := explicitPath
	if projectFile == "" {
		if path, err := discoverProjectConfig(startDir); err == nil {
			projectFile = path
		}
	}

	// .env sits next to buildctl.yaml, or at the default project root.
	envDir := ProjectRootFromCwd(startDir)
	if projectFile != "" {
		envDir = filepath.Dir(projectFile)
	}
	if err := loadDotEnv(filepath.Join(envDir, ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	// Environment variable binding: BUILDCTL_LOG_LEVEL → log.level
	v.SetEnvPrefix("BUILDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	globalCfg := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(globalCfg); err == nil {
		v.SetConfigFile(globalCfg)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read global config: %w", err)
		}
	}

	if projectFile != "" {
		v.SetConfigFile(projectFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read project config %q: %w", projectFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = projectFile

	if cfg.Project.Root != "" {
		cfg.Project.Root = os.ExpandEnv(cfg.Project.Root)
		if !filepath.IsAbs(cfg.Project.Root) && projectFile != "" {
			cfg.Project.Root = filepath.Join(filepath.Dir(projectFile), cfg.Project.Root)
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// ProjectRoot resolves the project root: override, then project.root, then
// the parent of cwd.
func (c *Config) ProjectRoot(override, cwd string) (string, error) {
	root := override
	if root == "" && c != nil {
		root = c.Project.Root
	}
	if root == "" {
		return ProjectRootFromCwd(cwd), nil
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(cwd, root)
	}
	return filepath.Clean(root), nil
}

// ProjectRootFromCwd returns the parent of cwd. buildctl is expected to be
// started from a direct subdirectory of the project, such as scripts/.
func ProjectRootFromCwd(cwd string) string {
	return filepath.Dir(filepath.Clean(cwd))
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// discoverProjectConfig walks up from dir looking for buildctl.yaml.
func discoverProjectConfig(dir string) (string, error) {
	start := dir
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found (searched up from %s)", FileName, start)
}

// loadDotEnv exports the variables in path without overriding ones already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// validate performs semantic validation on the loaded config.
func validate(cfg *Config) error {
	tc := cfg.Toolchain
	switch {
	case tc.Compiler == "":
		return fmt.Errorf("toolchain.compiler is required")
	case tc.Source == "":
		return fmt.Errorf("toolchain.source is required")
	case tc.Binary == "":
		return fmt.Errorf("toolchain.binary is required")
	}

	cs := cfg.Container
	switch cs.Engine {
	case container.EngineSDK, container.EngineCLI:
	default:
		return fmt.Errorf("container.engine must be %q or %q, got %q", container.EngineSDK, container.EngineCLI, cs.Engine)
	}
	switch cs.ExecMode {
	case container.ExecShell, container.ExecArgv:
	default:
		return fmt.Errorf("container.exec_mode must be %q or %q, got %q", container.ExecShell, container.ExecArgv, cs.ExecMode)
	}
	if i := strings.LastIndex(cs.Image, ":"); i <= 0 || i == len(cs.Image)-1 || strings.Contains(cs.Image[i:], "/") {
		return fmt.Errorf("container.image %q must be in repository:tag form", cs.Image)
	}
	return nil
}

func buildctlHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".buildctl"
	}
	return filepath.Join(home, ".buildctl")
}

// Home returns the buildctl home directory (~/.buildctl).
func Home() string {
	return buildctlHome()
}

// DefaultConfigTemplate is the content written by `buildctl init`.
const DefaultConfigTemplate = `# buildctl.yaml — project settings for buildctl
# Every key is optional; the values below are the defaults.

# project:
#   root: ..              # defaults to the parent of the working directory

toolchain:
  compiler: gcc
  flags: [-std=gnu11, -Wall, -Wextra, -Werror]
  source: build.c
  binary: build.bin
  stale_binary: build.bin.old

container:
  engine: sdk             # sdk | cli
  image: mediantazy_dev_container_image:0.1
  container_name: mediantazy_dev_container
  dockerfile: ./.dockerfile
  workdir: /workspace
  scripts_dir: ./scripts
  entrypoint: buildctl
  shell: /bin/bash
  exec_mode: shell        # shell | argv

log:
  level: info
  format: text

state:
  enabled: true
`
