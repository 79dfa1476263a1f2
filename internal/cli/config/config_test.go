package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("print-header", false, "")
	fs.Bool("silent", false, "")
	fs.String("output", "", "")
	fs.String("target", "", "")
	fs.String("dsn", "", "")
	fs.Int("max-retries", 0, "")
	fs.String("execute", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, used, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.False(t, cfg.PrintHeader)
	assert.False(t, cfg.IgnoreErrors)
	assert.Equal(t, DefaultPrompt, cfg.Prompt)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultFetchSize, cfg.FetchSize)
	assert.True(t, cfg.Substitute)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, DefaultTargetType, cfg.Target.Type)
	assert.Equal(t, DefaultDSN, cfg.Target.DSN)
	assert.NotNil(t, cfg.Vars)
	assert.NotNil(t, cfg.Conf)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	content := `
print_header: true
output: csv
prompt: hive
target:
  type: DuckDB
  dsn: /tmp/warehouse.db
vars:
  table: orders
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapshell.yaml"), []byte(content), 0o600))
	t.Setenv("LEAPSHELL_OUTPUT", "json")
	t.Setenv("LEAPSHELL_SILENT", "true")

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--output", "table", "--dsn", "/tmp/other.db", "--execute", "select 1"}))

	cfg, used, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "leapshell.yaml", used)
	assert.True(t, cfg.PrintHeader, "file value")
	assert.True(t, cfg.Silent, "env value")
	assert.Equal(t, "table", cfg.Output, "flag beats env and file")
	assert.Equal(t, "hive", cfg.Prompt)
	assert.Equal(t, "duckdb", cfg.Target.Type, "target type is lower-cased")
	assert.Equal(t, "/tmp/other.db", cfg.Target.DSN)
	assert.Equal(t, "orders", cfg.Vars["table"])
}

func TestLoad_InvalidOutput(t *testing.T) {
	t.Chdir(t.TempDir())
	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--output", "xml"}))

	_, _, err := Load("", fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := Load("does-not-exist.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_SetGet(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantValue string
		wantErr   string
	}{
		{name: "bool", key: "print_header", value: "true", wantValue: "true"},
		{name: "kebab case key", key: "ignore-errors", value: "TRUE", wantValue: "true"},
		{name: "int", key: "max_retries", value: "3", wantValue: "3"},
		{name: "output", key: "output", value: "CSV", wantValue: "csv"},
		{name: "free form", key: "mapred.reduce.tasks", value: "8", wantValue: "8"},
		{name: "bad bool", key: "silent", value: "maybe", wantErr: "expects a boolean value"},
		{name: "bad int", key: "fetch_size", value: "x", wantErr: "expects an integer value"},
		{name: "int below minimum", key: "fetch_size", value: "0", wantErr: "expects a value >= 1"},
		{name: "bad output", key: "output", value: "xml", wantErr: "invalid output format"},
		{name: "empty key", key: " ", value: "x", wantErr: "empty configuration key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Output: DefaultOutput, FetchSize: DefaultFetchSize}
			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, ok := cfg.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.wantValue, got)
		})
	}
}

func TestConfig_Keys(t *testing.T) {
	cfg := &Config{Conf: map[string]string{"zzz.custom": "1"}}
	keys := cfg.Keys()

	assert.Contains(t, keys, "print_header")
	assert.Contains(t, keys, "zzz.custom")
	assert.IsIncreasing(t, keys)
}

func TestConfig_Clone(t *testing.T) {
	cfg := &Config{
		Target: &TargetConfig{Type: "sqlite"},
		Vars:   map[string]string{"a": "1"},
		Conf:   map[string]string{"b": "2"},
	}
	clone := cfg.Clone()
	clone.Target.Type = "duckdb"
	clone.Vars["a"] = "changed"
	clone.Conf["b"] = "changed"

	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, "1", cfg.Vars["a"])
	assert.Equal(t, "2", cfg.Conf["b"])
}

func TestNew_Valid(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultTargetType, cfg.Target.Type)
	assert.True(t, cfg.Substitute)
}
