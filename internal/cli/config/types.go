// Package config provides configuration management for the leapshell CLI.
//
// Configuration is layered: built-in defaults, an optional YAML file,
// LEAPSHELL_* environment variables and finally explicitly set flags.
// At runtime the `set` command mutates the loaded Config through Set.
package config

// TargetConfig selects and configures the statement-execution backend.
type TargetConfig struct {
	Type     string `koanf:"type"`
	DSN      string `koanf:"dsn"`
	Database string `koanf:"database"`
}

// Config holds all shell configuration options.
type Config struct {
	PrintHeader     bool              `koanf:"print_header"`
	IgnoreErrors    bool              `koanf:"ignore_errors"`
	Silent          bool              `koanf:"silent"`
	Verbose         bool              `koanf:"verbose"`
	Prompt          string            `koanf:"prompt"`
	PrintCurrentDB  bool              `koanf:"print_current_db"`
	Output          string            `koanf:"output"`
	MaxRetries      int               `koanf:"max_retries"`
	FetchSize       int               `koanf:"fetch_size"`
	HistoryFile     string            `koanf:"history_file"`
	Shell           string            `koanf:"shell"`
	LogFile         string            `koanf:"log_file"`
	SubstituteDepth int               `koanf:"substitute_depth"`
	Substitute      bool              `koanf:"substitute"`
	Target          *TargetConfig     `koanf:"target"`
	Vars            map[string]string `koanf:"vars"`
	Conf            map[string]string `koanf:"conf"`
}

// Default configuration values.
const (
	DefaultPrompt          = "leapshell"
	DefaultOutput          = "tsv"
	DefaultFetchSize       = 40
	DefaultShell           = "/bin/sh"
	DefaultTargetType      = "sqlite"
	DefaultDSN             = ":memory:"
	DefaultHistoryFileName = ".leapshell_history"
	DefaultSubstituteDepth = 40
	RCFileName             = ".leapshellrc"
	EnvPrefix              = "LEAPSHELL_"
)

// OutputFormats lists the accepted values for the output key.
var OutputFormats = []string{"tsv", "csv", "table", "json", "yaml"}

// New returns a Config holding the built-in defaults, without consulting
// files, the environment or flags.
func New() *Config {
	return &Config{
		Prompt:          DefaultPrompt,
		Output:          DefaultOutput,
		FetchSize:       DefaultFetchSize,
		HistoryFile:     DefaultHistoryFileName,
		Shell:           DefaultShell,
		Substitute:      true,
		SubstituteDepth: DefaultSubstituteDepth,
		Target:          &TargetConfig{Type: DefaultTargetType, DSN: DefaultDSN},
		Vars:            map[string]string{},
		Conf:            map[string]string{},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	if c.Target != nil {
		t := *c.Target
		out.Target = &t
	}
	out.Vars = copyMap(c.Vars)
	out.Conf = copyMap(c.Conf)
	return &out
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
