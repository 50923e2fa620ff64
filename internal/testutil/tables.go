package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mosaicflow/internal/ipac"
)

// MontageFixture describes the tables written by WriteMontageTables.
type MontageFixture struct {
	Dir      string
	Images   []string // raw names as listed in images.tbl, compressed
	Overlaps int
}

// ImageName is the archive name of the i-th fixture image.
func ImageName(i int) string {
	return fmt.Sprintf("2mass-atlas-990502s-j1340%03d.fits.gz", i)
}

// WriteMontageTables writes the tables the preparation tools would produce
// for n images laid out in a strip, each overlapping its neighbour. Extra
// archive images that the DAG raw table drops can be requested with
// dropped; they appear only in images.tbl.
func WriteMontageTables(t *testing.T, dir string, n, dropped int) MontageFixture {
	t.Helper()

	images := ipac.New("cntr", "ra", "dec", "URL", "fname")
	raw := ipac.New("cntr", "fname")
	projected := ipac.New("cntr", "fname")
	corrected := ipac.New("cntr", "fname")

	fx := MontageFixture{Dir: dir}
	for i := 0; i < n+dropped; i++ {
		name := ImageName(i)
		require.NoError(t, images.AddRow(
			fmt.Sprint(i), fmt.Sprintf("%.4f", 275.1+float64(i)*0.1), "-16.17",
			"http://irsa.ipac.caltech.edu/ibe/data/2mass/"+name, name,
		))
		if i >= n {
			continue
		}
		fx.Images = append(fx.Images, name)
		base := name[:len(name)-len(".gz")]
		require.NoError(t, raw.AddRow(fmt.Sprint(i), name))
		require.NoError(t, projected.AddRow(fmt.Sprint(i), "p"+base))
		require.NoError(t, corrected.AddRow(fmt.Sprint(i), "c"+base))
	}

	overlaps := ipac.New("cntr1", "cntr2", "plus", "minus", "diff")
	for i := 0; i+1 < n; i++ {
		require.NoError(t, overlaps.AddRow(
			fmt.Sprint(i), fmt.Sprint(i+1), ImageName(i), ImageName(i+1),
			fmt.Sprintf("diff.%06d.%06d.fits", i, i+1),
		))
		fx.Overlaps++
	}

	for name, tbl := range map[string]*ipac.Table{
		"images.tbl":  images,
		"rimages.tbl": raw,
		"pimages.tbl": projected,
		"cimages.tbl": corrected,
		"diffs.tbl":   overlaps,
	} {
		require.NoError(t, tbl.WriteFile(filepath.Join(dir, name)))
	}

	header := "SIMPLE  = T\nNAXIS   = 2\nCTYPE1  = 'RA---TAN'\nCTYPE2  = 'DEC--TAN'\nEND\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "region.hdr"), []byte(header), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "region-oversized.hdr"), []byte(header), 0o644))
	return fx
}
