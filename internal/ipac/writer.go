package ipac

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteFile writes the table to path, replacing any existing file.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", path, err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write table %s: %w", path, err)
	}
	return f.Close()
}

// Write serializes the table. Output is a pure function of the table
// contents: column widths are derived from the widest cell.
func (t *Table) Write(w io.Writer) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("ipac: table has no columns")
	}
	bw := bufio.NewWriter(w)

	for _, k := range t.Keywords {
		fmt.Fprintf(bw, "\\%s = %s\n", k.Name, k.Value)
	}
	for _, c := range t.Comments {
		fmt.Fprintf(bw, "\\ %s\n", c)
	}

	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = max(len(c.Name), len(c.Type), len(c.Unit), len(c.Null))
		for _, row := range t.Rows {
			widths[i] = max(widths[i], len(row[i]))
		}
		widths[i]++
	}

	writeBarLine(bw, widths, func(c Column) string { return c.Name }, t.Columns)
	if hasAny(t.Columns, func(c Column) string { return c.Type }) {
		writeBarLine(bw, widths, func(c Column) string { return c.Type }, t.Columns)
	}
	if hasAny(t.Columns, func(c Column) string { return c.Unit }) {
		writeBarLine(bw, widths, func(c Column) string { return c.Unit }, t.Columns)
	}
	if hasAny(t.Columns, func(c Column) string { return c.Null }) {
		writeBarLine(bw, widths, func(c Column) string { return c.Null }, t.Columns)
	}

	for _, row := range t.Rows {
		var sb strings.Builder
		for i, v := range row {
			sb.WriteByte(' ')
			sb.WriteString(pad(v, widths[i]))
		}
		bw.WriteString(strings.TrimRight(sb.String(), " "))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writeBarLine(w *bufio.Writer, widths []int, cell func(Column) string, cols []Column) {
	for i, c := range cols {
		w.WriteByte('|')
		w.WriteString(pad(cell(c), widths[i]))
	}
	w.WriteString("|\n")
}

func hasAny(cols []Column, cell func(Column) string) bool {
	for _, c := range cols {
		if cell(c) != "" {
			return true
		}
	}
	return false
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
