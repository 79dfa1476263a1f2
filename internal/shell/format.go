package shell

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Formatter renders a result stream onto a writer.
type Formatter interface {
	// Begin starts a result set. The header is written only when header is true.
	Begin(columns []string, header bool) error
	// Row writes one row.
	Row(r Row) error
	// End finishes the result set.
	End() error
}

// NewFormatter returns the formatter for an output format name.
// Unknown names fall back to tab-separated output.
func NewFormatter(format string, w io.Writer) Formatter {
	switch format {
	case "csv":
		return &csvFormatter{w: csv.NewWriter(w)}
	case "json":
		return &jsonFormatter{w: w}
	case "table":
		return &tableFormatter{w: w}
	case "yaml":
		return &yamlFormatter{w: w}
	default:
		return &tsvFormatter{w: w}
	}
}

type tsvFormatter struct {
	w io.Writer
}

func (f *tsvFormatter) Begin(columns []string, header bool) error {
	if !header || len(columns) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(f.w, strings.Join(columns, "\t"))
	return err
}

func (f *tsvFormatter) Row(r Row) error {
	_, err := fmt.Fprintln(f.w, strings.Join(r, "\t"))
	return err
}

func (f *tsvFormatter) End() error { return nil }

type csvFormatter struct {
	w *csv.Writer
}

func (f *csvFormatter) Begin(columns []string, header bool) error {
	if !header || len(columns) == 0 {
		return nil
	}
	return f.write(columns)
}

func (f *csvFormatter) Row(r Row) error {
	return f.write(r)
}

func (f *csvFormatter) write(record []string) error {
	if err := f.w.Write(record); err != nil {
		return err
	}
	f.w.Flush()
	return f.w.Error()
}

func (f *csvFormatter) End() error {
	f.w.Flush()
	return f.w.Error()
}

// jsonFormatter writes one JSON object per row, keys in column order.
type jsonFormatter struct {
	w       io.Writer
	columns []string
}

func (f *jsonFormatter) Begin(columns []string, _ bool) error {
	f.columns = columns
	return nil
}

func (f *jsonFormatter) Row(r Row) error {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, v := range r {
		if i > 0 {
			sb.WriteByte(',')
		}
		name := fmt.Sprintf("_c%d", i)
		if i < len(f.columns) {
			name = f.columns[i]
		}
		key, _ := json.Marshal(name)
		val, _ := json.Marshal(v)
		sb.Write(key)
		sb.WriteByte(':')
		sb.Write(val)
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(f.w, sb.String())
	return err
}

func (f *jsonFormatter) End() error { return nil }

// yamlFormatter writes every row as one item of a top-level sequence.
type yamlFormatter struct {
	w       io.Writer
	columns []string
}

func (f *yamlFormatter) Begin(columns []string, _ bool) error {
	f.columns = columns
	return nil
}

func (f *yamlFormatter) Row(r Row) error {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i, v := range r {
		name := fmt.Sprintf("_c%d", i)
		if i < len(f.columns) {
			name = f.columns[i]
		}
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
		)
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{m}}

	// A fresh encoder per row keeps the output one document without separators.
	enc := yaml.NewEncoder(f.w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

func (f *yamlFormatter) End() error { return nil }

// tableFormatter buffers rows and renders a box table when the result ends.
type tableFormatter struct {
	w       io.Writer
	t       table.Writer
	started bool
	rows    int
}

func (f *tableFormatter) Begin(columns []string, header bool) error {
	f.t = table.NewWriter()
	f.t.SetStyle(table.StyleLight)
	f.started = header && len(columns) > 0
	if f.started {
		headerRow := make(table.Row, len(columns))
		for i, col := range columns {
			headerRow[i] = col
		}
		f.t.AppendHeader(headerRow)
	}
	return nil
}

func (f *tableFormatter) Row(r Row) error {
	row := make(table.Row, len(r))
	for i, v := range r {
		row[i] = v
	}
	f.t.AppendRow(row)
	f.rows++
	return nil
}

func (f *tableFormatter) End() error {
	if f.t == nil || (!f.started && f.rows == 0) {
		return nil
	}
	_, err := fmt.Fprintln(f.w, f.t.Render())
	return err
}
