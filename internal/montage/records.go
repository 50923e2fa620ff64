package montage

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/vk/mosaicflow/internal/ipac"
)

// fileColumns are the spellings Montage tools use for the image file column.
var fileColumns = []string{"fname", "file"}

// Image is one archive image that survives into the workflow.
type Image struct {
	Archive string // name as listed by the archive, possibly compressed
	Name    string // decompressed logical name the workflow uses
	URL     string
}

// Overlap is one pair of overlapping images.
type Overlap struct {
	Cntr1 int
	Cntr2 int
	Plus  string
	Minus string
	Diff  string
}

// FitStatus is the fit file the overlap's difference fit writes.
func (o Overlap) FitStatus() string {
	return FitStatus(o.Cntr1, o.Cntr2)
}

// LoadImages returns the raw archive images restricted to those listed in
// the DAG raw table, in that table's order. Every listed image must have an
// archive entry carrying its URL. Repeated rows are kept once.
func LoadImages(dir string) ([]Image, error) {
	archive, err := ipac.ReadFile(filepath.Join(dir, ImagesTable))
	if err != nil {
		return nil, err
	}
	raw, err := ipac.ReadFile(filepath.Join(dir, RawImagesTable))
	if err != nil {
		return nil, err
	}

	urls := make(map[string]string, archive.Len())
	for _, rec := range archive.Records() {
		name, err := rec.Get(fileColumns...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ImagesTable, err)
		}
		url, err := rec.Get("URL", "url")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ImagesTable, err)
		}
		urls[BaseName(name)] = url
	}

	names, err := raw.Column(fileColumns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", RawImagesTable, err)
	}

	seen := make(map[string]struct{}, len(names))
	images := make([]Image, 0, len(names))
	for _, n := range names {
		base := BaseName(n)
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}

		url, ok := urls[base]
		if !ok {
			return nil, fmt.Errorf("image %s listed in %s has no entry in %s", n, RawImagesTable, ImagesTable)
		}
		images = append(images, Image{Archive: n, Name: base, URL: url})
	}
	return images, nil
}

// LoadOverlaps reads the overlap table in row order.
func LoadOverlaps(dir string) ([]Overlap, error) {
	tbl, err := ipac.ReadFile(filepath.Join(dir, OverlapsTable))
	if err != nil {
		return nil, err
	}

	out := make([]Overlap, 0, tbl.Len())
	for i, rec := range tbl.Records() {
		var o Overlap
		var c1, c2 string
		for _, f := range []struct {
			dst  *string
			name string
		}{
			{&c1, "cntr1"}, {&c2, "cntr2"}, {&o.Plus, "plus"}, {&o.Minus, "minus"}, {&o.Diff, "diff"},
		} {
			v, err := rec.Get(f.name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", OverlapsTable, err)
			}
			*f.dst = v
		}
		if o.Cntr1, err = strconv.Atoi(c1); err != nil {
			return nil, fmt.Errorf("%s row %d: invalid cntr1 %q", OverlapsTable, i+1, c1)
		}
		if o.Cntr2, err = strconv.Atoi(c2); err != nil {
			return nil, fmt.Errorf("%s row %d: invalid cntr2 %q", OverlapsTable, i+1, c2)
		}
		out = append(out, o)
	}
	return out, nil
}

// loadNameSet reads the file column of an image table into a set, keeping
// the table order alongside.
func loadNameSet(dir, table string) (map[string]struct{}, []string, error) {
	tbl, err := ipac.ReadFile(filepath.Join(dir, table))
	if err != nil {
		return nil, nil, err
	}
	names, err := tbl.Column(fileColumns...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", table, err)
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[BaseName(n)] = struct{}{}
	}
	return set, names, nil
}
