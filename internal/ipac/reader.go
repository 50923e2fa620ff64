package ipac

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadFile parses the IPAC table stored at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}
	return t, nil
}

// Read parses an IPAC table from r.
func Read(r io.Reader) (*Table, error) {
	t := &Table{}
	var bars []int
	headerLines := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, `\`):
			if len(t.Rows) > 0 {
				return nil, fmt.Errorf("line %d: header line after data rows", lineNo)
			}
			parseBackslash(t, line)

		case strings.HasPrefix(line, "|"):
			if len(t.Rows) > 0 {
				return nil, fmt.Errorf("line %d: column header after data rows", lineNo)
			}
			cells, pos := splitBars(line)
			if headerLines == 0 {
				if len(pos) < 2 {
					return nil, fmt.Errorf("line %d: column header has no columns", lineNo)
				}
				bars = pos
				for _, name := range cells {
					t.Columns = append(t.Columns, Column{Name: name})
				}
			} else {
				if len(cells) != len(t.Columns) {
					return nil, fmt.Errorf("line %d: header has %d cells, expected %d", lineNo, len(cells), len(t.Columns))
				}
				for i, c := range cells {
					switch headerLines {
					case 1:
						t.Columns[i].Type = c
					case 2:
						t.Columns[i].Unit = c
					case 3:
						t.Columns[i].Null = c
					default:
						return nil, fmt.Errorf("line %d: too many column header lines", lineNo)
					}
				}
			}
			headerLines++

		default:
			if bars == nil {
				return nil, fmt.Errorf("line %d: data row before column header", lineNo)
			}
			row, err := sliceRow(line, bars)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			t.Rows = append(t.Rows, row)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if bars == nil {
		return nil, fmt.Errorf("no column header found")
	}
	return t, nil
}

func parseBackslash(t *Table, line string) {
	body := strings.TrimPrefix(line, `\`)
	if strings.HasPrefix(body, " ") || !strings.Contains(body, "=") {
		t.Comments = append(t.Comments, strings.TrimSpace(body))
		return
	}
	name, value, _ := strings.Cut(body, "=")
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `'"`)
	t.Keywords = append(t.Keywords, Keyword{Name: strings.TrimSpace(name), Value: value})
}

// splitBars returns the trimmed cell contents of a bar line and the
// positions of every bar.
func splitBars(line string) ([]string, []int) {
	var pos []int
	for i := 0; i < len(line); i++ {
		if line[i] == '|' {
			pos = append(pos, i)
		}
	}
	cells := make([]string, 0, len(pos))
	for i := 0; i+1 < len(pos); i++ {
		cells = append(cells, strings.TrimSpace(line[pos[i]+1:pos[i+1]]))
	}
	return cells, pos
}

// sliceRow cuts a data line at the column boundaries. When a value spills
// over a boundary (some Montage tools do not pad long file names) the row
// falls back to whitespace separation, provided the token count matches.
func sliceRow(line string, bars []int) ([]string, error) {
	n := len(bars) - 1
	if fitsBars(line, bars) {
		row := make([]string, n)
		for i := 0; i < n; i++ {
			start, end := bars[i]+1, bars[i+1]
			if start >= len(line) {
				break
			}
			if end > len(line) {
				end = len(line)
			}
			row[i] = strings.TrimSpace(line[start:end])
		}
		return row, nil
	}

	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("row does not fit %d columns: %q", n, line)
	}
	return fields, nil
}

func fitsBars(line string, bars []int) bool {
	for _, b := range bars[:len(bars)-1] {
		if b < len(line) && line[b] != ' ' {
			return false
		}
	}
	last := bars[len(bars)-1]
	return last >= len(line) || strings.TrimSpace(line[last:]) == ""
}
