package montage

import (
	"fmt"
	"regexp"
	"strings"
)

// File names shared by the preparation tools and the assembled workflow.
const (
	RegionHeader          = "region.hdr"
	RegionHeaderOversized = "region-oversized.hdr"
	ImagesTable           = "images.tbl"
	RawImagesTable        = "rimages.tbl"
	ProjectedImagesTable  = "pimages.tbl"
	CorrectedImagesTable  = "cimages.tbl"
	OverlapsTable         = "diffs.tbl"
	StatusFileTable       = "statfile.tbl"
	FitsTable             = "fits.tbl"
	CorrectionsTable      = "corrections.tbl"
	MosaicImage           = "mosaic.fits"
	MosaicArea            = "mosaic_area.fits"
	ShrunkImage           = "mosaic-shrunk.fits"
	PreviewImage          = "mosaic.png"
)

// Transformation names, one per Montage binary used by the workflow.
const (
	TrProject    = "mProject"
	TrDiffFit    = "mDiffFit"
	TrConcatFit  = "mConcatFit"
	TrBgModel    = "mBgModel"
	TrBackground = "mBackground"
	TrAdd        = "mAdd"
	TrShrink     = "mShrink"
	TrViewer     = "mViewer"
)

// Transformations lists every transformation in pipeline order.
var Transformations = []string{
	TrProject, TrDiffFit, TrConcatFit, TrBgModel, TrBackground, TrAdd, TrShrink, TrViewer,
}

var compressionSuffix = regexp.MustCompile(`\.(gz|fz)$`)

// BaseName strips archive compression suffixes: the reprojection job reads
// the decompressed file.
func BaseName(name string) string {
	return compressionSuffix.ReplaceAllString(name, "")
}

// Projected is the reprojected image name for a raw image.
func Projected(raw string) string {
	return "p" + BaseName(raw)
}

// Corrected is the background-corrected image name for a raw image.
func Corrected(raw string) string {
	return "c" + BaseName(raw)
}

// Area returns the companion area image of a FITS image.
func Area(image string) string {
	if strings.HasSuffix(image, ".fits") {
		return strings.TrimSuffix(image, ".fits") + "_area.fits"
	}
	return image + "_area"
}

// FitStatus is the status file written by the difference fit of an overlap.
func FitStatus(cntr1, cntr2 int) string {
	return fmt.Sprintf("fit.%06d.%06d.txt", cntr1, cntr2)
}
