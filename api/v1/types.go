// Package v1 defines the public data types shared across all buildctl layers.
package v1

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Result enumerations
// ─────────────────────────────────────────────────────────────────────────────

// Result is the outcome of a recorded operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultSkipped Result = "skipped" // dry run or binary already present
)

// ─────────────────────────────────────────────────────────────────────────────
// Settings types (derived from buildctl.yaml)
// ─────────────────────────────────────────────────────────────────────────────

// ToolchainSpec describes how the native build tool is bootstrapped.
type ToolchainSpec struct {
	Compiler    string   `yaml:"compiler"     mapstructure:"compiler"`
	Flags       []string `yaml:"flags"        mapstructure:"flags"`
	Source      string   `yaml:"source"       mapstructure:"source"`       // relative to the project root
	Binary      string   `yaml:"binary"       mapstructure:"binary"`       // relative to the project root
	StaleBinary string   `yaml:"stale_binary" mapstructure:"stale_binary"` // backup left behind by a self-rebuild
}

// ContainerSpec describes the development container the wrapper runs in.
type ContainerSpec struct {
	Engine        string `yaml:"engine"         mapstructure:"engine"` // sdk | cli
	Host          string `yaml:"host"           mapstructure:"host"`   // docker daemon address, empty = env
	Image         string `yaml:"image"          mapstructure:"image"`  // repository:tag
	ContainerName string `yaml:"container_name" mapstructure:"container_name"`
	Dockerfile    string `yaml:"dockerfile"     mapstructure:"dockerfile"`
	Workdir       string `yaml:"workdir"        mapstructure:"workdir"`
	ScriptsDir    string `yaml:"scripts_dir"    mapstructure:"scripts_dir"`
	Entrypoint    string `yaml:"entrypoint"     mapstructure:"entrypoint"`
	Shell         string `yaml:"shell"          mapstructure:"shell"`
	ExecMode      string `yaml:"exec_mode"      mapstructure:"exec_mode"` // shell | argv
}

// ─────────────────────────────────────────────────────────────────────────────
// Runtime state types (persisted in BoltDB)
// ─────────────────────────────────────────────────────────────────────────────

// RunRecord is an immutable history record of one dispatch to the build tool.
type RunRecord struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Variant     string    `json:"variant,omitempty"`
	Subcommand  string    `json:"subcommand"`
	ProjectRoot string    `json:"project_root"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	ExitCode    int       `json:"exit_code"`
	Result      Result    `json:"result"`
	Error       string    `json:"error,omitempty"`
}

// BootstrapRecord is a history record of one attempt to compile the build tool.
type BootstrapRecord struct {
	ID           string    `json:"id"`
	ProjectRoot  string    `json:"project_root"`
	Binary       string    `json:"binary"`
	Compiled     bool      `json:"compiled"` // false when the binary was already present
	StaleRemoved bool      `json:"stale_removed"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
	ExitCode     int       `json:"exit_code"`
	Result       Result    `json:"result"`
	Error        string    `json:"error,omitempty"`
}
