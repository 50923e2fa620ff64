package ipac

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoColumn is returned when a requested column is not part of a table.
var ErrNoColumn = errors.New("ipac: no such column")

// Keyword is a `\name = value` header line.
type Keyword struct {
	Name  string
	Value string
}

// Column describes one table column. Type, Unit and Null are empty when the
// corresponding header line is absent.
type Column struct {
	Name string
	Type string
	Unit string
	Null string
}

// Table is an in-memory IPAC table. Rows hold trimmed string values in
// column order.
type Table struct {
	Keywords []Keyword
	Comments []string
	Columns  []Column
	Rows     [][]string
}

// New returns an empty table with the given columns, all typed as char.
func New(names ...string) *Table {
	t := &Table{}
	for _, n := range names {
		t.Columns = append(t.Columns, Column{Name: n, Type: "char"})
	}
	return t
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the position of the first column matching any of the
// given names. Montage tools are inconsistent about naming the image file
// column (`fname` or `file`), so callers list the accepted spellings.
func (t *Table) Lookup(names ...string) (int, error) {
	for _, n := range names {
		if i := t.Index(n); i >= 0 {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNoColumn, strings.Join(names, "|"))
}

// Column returns every value of the named column in row order.
func (t *Table) Column(names ...string) ([]string, error) {
	idx, err := t.Lookup(names...)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[idx])
	}
	return out, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// AddRow appends a row. The number of values must match the column count.
func (t *Table) AddRow(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("ipac: row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	row := make([]string, len(values))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

// Keyword returns the value of a header keyword.
func (t *Table) Keyword(name string) (string, bool) {
	for _, k := range t.Keywords {
		if k.Name == name {
			return k.Value, true
		}
	}
	return "", false
}

// Record is a view of one row keyed by column name.
type Record struct {
	t   *Table
	row []string
}

// Records returns a view of each row in order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = Record{t: t, row: row}
	}
	return out
}

// Get returns the value of the first matching column for this record.
func (r Record) Get(names ...string) (string, error) {
	idx, err := r.t.Lookup(names...)
	if err != nil {
		return "", err
	}
	return r.row[idx], nil
}
