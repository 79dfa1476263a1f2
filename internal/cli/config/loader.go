package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configFileNames are searched in the working directory, then in the home directory.
var configFileNames = []string{"leapshell.yaml", "leapshell.yml"}

// flagKeys maps flag names whose config key differs from the snake_cased flag name.
var flagKeys = map[string]string{
	"target": "target.type",
	"dsn":    "target.dsn",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > ./leapshell.yaml > ./leapshell.yml > ~/.leapshell/leapshell.yaml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range configFileNames {
			candidate := filepath.Join(home, ".leapshell", name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	historyFile := DefaultHistoryFileName
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, DefaultHistoryFileName)
	}
	return map[string]interface{}{
		"print_header":     false,
		"ignore_errors":    false,
		"silent":           false,
		"verbose":          false,
		"prompt":           DefaultPrompt,
		"print_current_db": false,
		"output":           DefaultOutput,
		"max_retries":      0,
		"fetch_size":       DefaultFetchSize,
		"history_file":     historyFile,
		"shell":            DefaultShell,
		"substitute":       true,
		"substitute_depth": DefaultSubstituteDepth,
		"target.type":      DefaultTargetType,
		"target.dsn":       DefaultDSN,
	}
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// The returned string is the config file used, if any.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Load environment variables (LEAPSHELL_ prefix)
	// Transform: LEAPSHELL_PRINT_HEADER -> print_header, LEAPSHELL_TARGET__DSN -> target.dsn
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed || !isConfigFlag(f.Name) {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.Target == nil {
		cfg.Target = &TargetConfig{Type: DefaultTargetType, DSN: DefaultDSN}
	}
	if cfg.Vars == nil {
		cfg.Vars = make(map[string]string)
	}
	if cfg.Conf == nil {
		cfg.Conf = make(map[string]string)
	}
	cfg.Target.Type = strings.ToLower(cfg.Target.Type)
	cfg.Target.DSN = os.ExpandEnv(cfg.Target.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, used, nil
}

// configFlags are the flags that map onto configuration keys. Other flags
// (-e, -f, -i, --define, --conf) are consumed by the CLI directly.
var configFlags = map[string]bool{
	"print-header":     true,
	"ignore-errors":    true,
	"silent":           true,
	"verbose":          true,
	"prompt":           true,
	"print-current-db": true,
	"output":           true,
	"max-retries":      true,
	"fetch-size":       true,
	"history-file":     true,
	"log-file":         true,
	"target":           true,
	"dsn":              true,
}

func isConfigFlag(name string) bool {
	return configFlags[name]
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
