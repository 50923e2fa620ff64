// Package montage assembles the Montage mosaic workflow from the small
// tables the preparation tools produce.
//
// Each stage reads one table and emits one job per row, in row order:
//
//	mProject     one per filtered image      raw -> p<raw>, p<raw>_area
//	mDiffFit     one per overlap             p<plus>, p<minus> -> fit.<a>.<b>.txt
//	mConcatFit   aggregate                   statfile.tbl, every fit -> fits.tbl
//	mBgModel     single                      pimages.tbl, fits.tbl -> corrections.tbl
//	mBackground  one per filtered image      p<raw> -> c<raw>, c<raw>_area
//	mAdd         aggregate                   every c<raw> -> mosaic.fits
//	mShrink      single                      mosaic.fits -> mosaic-shrunk.fits
//	mViewer      single                      mosaic-shrunk.fits -> mosaic.png
//
// Jobs are linked only through file names; ordering is left to the planner.
package montage
