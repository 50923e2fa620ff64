package ipac

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overlapsTable = `\datatype = fitshdr
\ generated by mOverlaps
|  cntr1|  cntr2|         plus|        minus|                    diff|
|    int|    int|         char|         char|                    char|
       0       1  2mass-a.fits  2mass-b.fits  diff.000000.000001.fits
       1       2  2mass-b.fits  2mass-c.fits  diff.000001.000002.fits
`

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader(overlapsTable))
	require.NoError(t, err)

	require.Len(t, tbl.Columns, 5)
	assert.Equal(t, "cntr1", tbl.Columns[0].Name)
	assert.Equal(t, "int", tbl.Columns[0].Type)
	assert.Equal(t, "diff", tbl.Columns[4].Name)

	v, ok := tbl.Keyword("datatype")
	assert.True(t, ok)
	assert.Equal(t, "fitshdr", v)
	assert.Equal(t, []string{"generated by mOverlaps"}, tbl.Comments)

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"0", "1", "2mass-a.fits", "2mass-b.fits", "diff.000000.000001.fits"}, tbl.Rows[0])

	diffs, err := tbl.Column("diff")
	require.NoError(t, err)
	assert.Equal(t, []string{"diff.000000.000001.fits", "diff.000001.000002.fits"}, diffs)
}

func TestRead_OverflowingRowFallsBackToFields(t *testing.T) {
	in := "| cntr| fname|\n" +
		"    1 a-very-long-file-name.fits\n"
	tbl, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "a-very-long-file-name.fits"}, tbl.Rows[0])
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no header", "   1  2\n", "data row before column header"},
		{"empty", "", "no column header found"},
		{"too many fields", "| a| b|\n 1 2 3 4 5 6 7\n", "does not fit"},
		{"header after data", "| a|\n  1\n| b|\n", "column header after data rows"},
		{"mismatched type line", "| a| b|\n| int|\n", "expected 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLookup(t *testing.T) {
	tbl := New("cntr", "file")
	idx, err := tbl.Lookup("fname", "file")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = tbl.Lookup("URL")
	assert.ErrorIs(t, err, ErrNoColumn)
}

func TestAddRow(t *testing.T) {
	tbl := New("a", "b")
	require.NoError(t, tbl.AddRow("1", "2"))
	assert.ErrorContains(t, tbl.AddRow("1"), "has 1 values")

	rec := tbl.Records()[0]
	v, err := rec.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestWriteRoundTrip(t *testing.T) {
	tbl, err := Read(strings.NewReader(overlapsTable))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.Write(&buf))

	again, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tbl, again)

	// Writing is deterministic.
	var second bytes.Buffer
	require.NoError(t, again.Write(&second))
	assert.Equal(t, buf.String(), second.String())
}

func TestWriteFile(t *testing.T) {
	tbl := New("cntr", "stat")
	tbl.Columns[0].Type = "int"
	require.NoError(t, tbl.AddRow("0", "fit.000000.000001.txt"))

	path := filepath.Join(t.TempDir(), "nested", "statfile.tbl")
	require.NoError(t, tbl.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, got.Rows)
	assert.Equal(t, "int", got.Columns[0].Type)
}
