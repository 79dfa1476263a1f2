package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapshell/internal/linereader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the user's rc files and config out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(ConfDirEnv, "")
	t.Chdir(t.TempDir())
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	code := ExitCode(cmd.Execute(), &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExecute_Inline(t *testing.T) {
	isolate(t)

	code, out, errOut := runCLI(t, "", "-e", "select 1 as one, 'x' as two;", "--print-header")

	assert.Equal(t, 0, code)
	assert.Equal(t, "one\ttwo\n1\tx\n", out)
	assert.Contains(t, errOut, "Time taken: ")
	assert.Contains(t, errOut, "Fetched: 1 row(s)")
}

func TestExecute_Silent(t *testing.T) {
	isolate(t)

	code, out, errOut := runCLI(t, "", "-S", "-e", "select 1;")

	assert.Equal(t, 0, code)
	assert.Equal(t, "1\n", out)
	assert.NotContains(t, errOut, "Time taken")
}

func TestExecute_StatementFailureStatus(t *testing.T) {
	isolate(t)

	code, out, errOut := runCLI(t, "", "-e", "select 1; select * from missing; select 2;")

	assert.Equal(t, 1, code)
	assert.Equal(t, "1\n", out, "statements after the failure do not run")
	assert.Contains(t, errOut, "FAILED:")
	assert.NotContains(t, errOut, "Error:", "statement failures are not reported twice")
}

func TestExecute_IgnoreErrors(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "", "--ignore-errors", "-e", "select 1; select * from missing; select 2;")

	assert.Equal(t, 1, code)
	assert.Equal(t, "1\n2\n", out)
}

func TestExecute_Quit(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "", "-e", "select 1; quit; select 2;")

	assert.Equal(t, 0, code)
	assert.Equal(t, "1\n", out)
}

func TestExecute_File(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "script.sql",
		"-- setup\ncreate table t (a integer);\ninsert into t values (1), (2);\nselect a from t order by a;\n")

	code, out, _ := runCLI(t, "", "-f", path)

	assert.Equal(t, 0, code)
	assert.Equal(t, "1\n2\n", out)
}

func TestExecute_MissingFile(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "", "-f", filepath.Join(t.TempDir(), "missing.sql"))

	assert.Equal(t, ExitIO, code)
	assert.Contains(t, errOut, "Could not open input file for reading.")
}

func TestExecute_PipedStdin(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "create table t (a text);\ninsert into t values ('piped');\nselect a from t;\n")

	assert.Equal(t, 0, code)
	assert.Equal(t, "piped\n", out)
}

func TestExecute_Variables(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "", "--define", "n=41", "--hivevar", "col=answer",
		"-e", "select ${n} + 1 as ${hivevar:col};", "--print-header")

	assert.Equal(t, 0, code)
	assert.Equal(t, "answer\n42\n", out)
}

func TestExecute_ConfOverride(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "", "--conf", "output=csv", "-e", "select 'a,b';")

	assert.Equal(t, 0, code)
	assert.Equal(t, "\"a,b\"\n", out)
}

func TestExecute_SetCommand(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "", "-e", "set print_header=true; select 1 as one;")

	assert.Equal(t, 0, code)
	assert.Equal(t, "one\n1\n", out)
}

func TestExecute_InitFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	first := writeFile(t, dir, "first.sql", "create table t (a integer);\n")
	second := writeFile(t, dir, "second.sql", "insert into t values (7);\n")

	code, out, errOut := runCLI(t, "", "-i", first, "-i", second, "-e", "select a from t;")

	assert.Equal(t, 0, code)
	assert.Equal(t, "7\n", out)
	assert.Equal(t, 1, strings.Count(errOut, "Time taken"), "init files run silently")
}

func TestExecute_RCFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, dir, ".leapshellrc", "set hivevar:greeting=hello;\n")
	t.Setenv(ConfDirEnv, dir)

	code, out, _ := runCLI(t, "", "-e", "select '${greeting}';")

	assert.Equal(t, 0, code)
	assert.Equal(t, "hello\n", out)
}

func TestExecute_InitFileFailure(t *testing.T) {
	isolate(t)
	bad := writeFile(t, t.TempDir(), "bad.sql", "select * from missing;\n")

	code, out, _ := runCLI(t, "", "-i", bad, "-e", "select 1;")

	assert.Equal(t, 1, code)
	assert.Empty(t, out)
}

func TestExecute_Database(t *testing.T) {
	isolate(t)

	code, _, _ := runCLI(t, "", "--database", "main", "-e", "select 1;")
	assert.Equal(t, 0, code)

	code, out, _ := runCLI(t, "", "--database", "nope", "-e", "select 1;")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Query returned non-zero code: 1, cause: database nope does not exist")
}

func TestExecute_ShellEscape(t *testing.T) {
	isolate(t)
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	code, out, _ := runCLI(t, "", "-e", "!echo from-shell;")

	assert.Equal(t, 0, code)
	assert.Equal(t, "from-shell\n", out)
}

func TestExecute_OptionErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"unknown flag", []string{"--nope"}, ExitBadOption, "unknown flag"},
		{"bad output", []string{"--output", "xml", "-e", "select 1;"}, ExitBadOption, "invalid output format"},
		{"bad conf value", []string{"--conf", "fetch_size=abc", "-e", "select 1;"}, ExitBadOption, "fetch_size"},
		{"bad define", []string{"--define", "novalue", "-e", "select 1;"}, ExitBadOption, "invalid assignment"},
		{"execute and file", []string{"-e", "select 1;", "-f", "x.sql"}, ExitUsage, "none of the others can be"},
		{"positional argument", []string{"extra"}, ExitUsage, "unknown command"},
		{"unknown target", []string{"--target", "oracle", "-e", "select 1;"}, ExitIO, "Failed to connect to oracle target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			code, _, errOut := runCLI(t, "", tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, errOut, tt.msg)
		})
	}
}

type plainTerminal struct {
	*linereader.Plain
	closed bool
}

func (p *plainTerminal) Close() error {
	p.closed = true
	return nil
}

func TestExecute_Interactive(t *testing.T) {
	isolate(t)

	var prompts bytes.Buffer
	term := &plainTerminal{Plain: linereader.NewPlain(strings.NewReader("select\n1;\nselect 2;\nquit;\nselect 3;\n"), &prompts)}
	var gotOpts linereader.Options

	savedIsTerminal, savedReader := isTerminal, newTerminalReader
	isTerminal = func(io.Reader) bool { return true }
	newTerminalReader = func(opts linereader.Options) (lineReader, error) {
		gotOpts = opts
		return term, nil
	}
	t.Cleanup(func() { isTerminal, newTerminalReader = savedIsTerminal, savedReader })

	code, out, _ := runCLI(t, "", "--history-file", filepath.Join(t.TempDir(), "hist"))

	assert.Equal(t, 0, code)
	assert.Equal(t, "1\n2\n", out)
	assert.Equal(t, "leapshell>          > leapshell> leapshell> ", prompts.String())
	assert.True(t, term.closed)
	assert.Contains(t, gotOpts.Words, "print_header")
	assert.Contains(t, gotOpts.Words, "set")
	assert.True(t, strings.HasSuffix(gotOpts.HistoryFile, "hist"))
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, ExitCode(nil, &buf))
	assert.Equal(t, 7, ExitCode(&ExitError{Code: 7}, &buf))
	assert.Empty(t, buf.String())

	assert.Equal(t, 2, ExitCode(&ExitError{Code: 2, Err: errors.New("bad flag")}, &buf))
	assert.Equal(t, "Error: bad flag\n", buf.String())

	buf.Reset()
	assert.Equal(t, ExitUsage, ExitCode(errors.New("boom"), &buf))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestVersionSubcommand(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "leapshell v"+Version)
}
