package montage

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/mosaicflow/internal/ctxlog"
)

// Mismatch describes how the image tables disagree.
type Mismatch struct {
	NotProjected []string // filtered images with no row in pimages.tbl
	NotCorrected []string // filtered images with no row in cimages.tbl
	Unexpected   []string // rows in pimages.tbl or cimages.tbl with no filtered image
}

// Empty reports whether the tables agree.
func (m Mismatch) Empty() bool {
	return len(m.NotProjected) == 0 && len(m.NotCorrected) == 0 && len(m.Unexpected) == 0
}

func (m Mismatch) Error() string {
	var parts []string
	if len(m.NotProjected) > 0 {
		parts = append(parts, fmt.Sprintf("missing from %s: %s", ProjectedImagesTable, strings.Join(m.NotProjected, ", ")))
	}
	if len(m.NotCorrected) > 0 {
		parts = append(parts, fmt.Sprintf("missing from %s: %s", CorrectedImagesTable, strings.Join(m.NotCorrected, ", ")))
	}
	if len(m.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("not in %s: %s", RawImagesTable, strings.Join(m.Unexpected, ", ")))
	}
	return "image tables disagree: " + strings.Join(parts, "; ")
}

// Reconcile compares the filtered images with the projected and corrected
// image tables. Names in those tables may carry the p/c prefix or not.
func Reconcile(dir string, images []Image) (Mismatch, error) {
	projected, pnames, err := loadNameSet(dir, ProjectedImagesTable)
	if err != nil {
		return Mismatch{}, err
	}
	corrected, cnames, err := loadNameSet(dir, CorrectedImagesTable)
	if err != nil {
		return Mismatch{}, err
	}

	has := func(set map[string]struct{}, prefixed, base string) bool {
		_, a := set[prefixed]
		_, b := set[base]
		return a || b
	}

	var m Mismatch
	known := make(map[string]struct{}, 3*len(images))
	for _, img := range images {
		p, c := Projected(img.Name), Corrected(img.Name)
		known[p], known[c], known[img.Name] = struct{}{}, struct{}{}, struct{}{}
		if !has(projected, p, img.Name) {
			m.NotProjected = append(m.NotProjected, img.Name)
		}
		if !has(corrected, c, img.Name) {
			m.NotCorrected = append(m.NotCorrected, img.Name)
		}
	}
	for _, names := range [][]string{pnames, cnames} {
		for _, n := range names {
			if _, ok := known[BaseName(n)]; !ok {
				m.Unexpected = append(m.Unexpected, n)
			}
		}
	}
	return m, nil
}

func (a *Assembler) reconcile(ctx context.Context, images []Image) error {
	m, err := Reconcile(a.opts.DataDir, images)
	if err != nil {
		return fmt.Errorf("failed to reconcile image tables: %w", err)
	}
	if m.Empty() {
		return nil
	}
	if a.opts.Strict {
		return m
	}
	ctxlog.FromContext(ctx).Warn("Image tables disagree, continuing.",
		"not_projected", m.NotProjected, "not_corrected", m.NotCorrected, "unexpected", m.Unexpected)
	return nil
}
