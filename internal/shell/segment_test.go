package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "select 1;", []string{"select 1"}},
		{"two statements", "select 1; select 2;", []string{"select 1", " select 2"}},
		{"escaped terminator", `select 'a\;b';`, []string{"select 'a;b'"}},
		{"blank statements dropped", "a;; ;b;", []string{"a", "b"}},
		{"trailing fragment kept", "a; b", []string{"a", " b"}},
		{"trailing escaped fragment dropped", `a; b\;`, []string{"a"}},
		{"escaped terminator closed by terminator", `!echo a\;;`, []string{"!echo a;"}},
		{"escaped terminators then terminator", `a\;\;;b;`, []string{"a;;", "b"}},
		{"multi-line", "select\n1;\n", []string{"select\n1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.text))
		})
	}
}

func TestSplitStatements_Empty(t *testing.T) {
	assert.Empty(t, SplitStatements(""))
	assert.Empty(t, SplitStatements(";;;"))
	assert.Empty(t, SplitStatements("  \n;"))
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"select 1;", true},
		{"select 1;   ", true},
		{"select 1", false},
		{`select 'a\;`, false},
		{`!echo a\;;`, true},
		{"", false},
		{";", true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(tt.line))
		})
	}
}

func TestStripComments(t *testing.T) {
	got, err := StripComments(strings.NewReader("-- comment\nselect 1;\n  -- kept\nselect 2;"))
	require.NoError(t, err)
	assert.Equal(t, "select 1;\n  -- kept\nselect 2;\n", got)

	assert.Equal(t, []string{"select 1"}, SplitStatements(mustStrip(t, "-- comment\nselect 1;\n")))
}

func mustStrip(t *testing.T, text string) string {
	t.Helper()
	out, err := StripComments(strings.NewReader(text))
	require.NoError(t, err)
	return out
}
