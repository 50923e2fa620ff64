package montage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mosaicflow/internal/catalog"
	"github.com/vk/mosaicflow/internal/config"
	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/ipac"
	"github.com/vk/mosaicflow/internal/testutil"
	"github.com/vk/mosaicflow/internal/workflow"
)

func options(dir string) Options {
	return Options{
		Name:         "m17",
		DataDir:      dir,
		ShrinkFactor: 2,
		Strict:       true,
		ArchiveSite:  "ipac",
		LocalSite:    "local",
	}
}

func names(files []workflow.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestBaseNameAndDerivedNames(t *testing.T) {
	assert.Equal(t, "a.fits", BaseName("a.fits.gz"))
	assert.Equal(t, "a.fits", BaseName("a.fits.fz"))
	assert.Equal(t, "a.fits", BaseName("a.fits"))
	assert.Equal(t, "pa.fits", Projected("a.fits.gz"))
	assert.Equal(t, "ca.fits", Corrected("a.fits"))
	assert.Equal(t, "pa_area.fits", Area("pa.fits"))
	assert.Equal(t, "fit.000003.000012.txt", FitStatus(3, 12))
}

func TestLoadImages_FiltersByRawTable(t *testing.T) {
	fx := testutil.WriteMontageTables(t, t.TempDir(), 3, 2)

	images, err := LoadImages(fx.Dir)
	require.NoError(t, err)
	require.Len(t, images, 3)
	for i, img := range images {
		assert.Equal(t, fx.Images[i], img.Archive)
		assert.Equal(t, BaseName(fx.Images[i]), img.Name)
		assert.True(t, strings.HasSuffix(img.URL, fx.Images[i]))
	}
}

func TestLoadImages_UnknownRawImage(t *testing.T) {
	fx := testutil.WriteMontageTables(t, t.TempDir(), 2, 0)
	raw := ipac.New("cntr", "fname")
	require.NoError(t, raw.AddRow("0", testutil.ImageName(0)))
	require.NoError(t, raw.AddRow("9", "stray.fits"))
	require.NoError(t, raw.WriteFile(filepath.Join(fx.Dir, RawImagesTable)))

	_, err := LoadImages(fx.Dir)
	assert.ErrorContains(t, err, "image stray.fits listed in rimages.tbl has no entry in images.tbl")
}

func TestAssemble_StageCounts(t *testing.T) {
	fx := testutil.WriteMontageTables(t, t.TempDir(), 4, 2)

	res, err := NewAssembler(options(fx.Dir)).Assemble(context.Background())
	require.NoError(t, err)
	wf := res.Workflow

	assert.Len(t, res.Images, 4)
	assert.Len(t, wf.JobsFor(TrProject), len(res.Images))
	assert.Len(t, wf.JobsFor(TrDiffFit), fx.Overlaps)
	assert.Len(t, wf.JobsFor(TrBackground), len(res.Images))
	for _, tr := range []string{TrConcatFit, TrBgModel, TrAdd, TrShrink, TrViewer} {
		assert.Len(t, wf.JobsFor(tr), 1, tr)
	}
	assert.Equal(t, 4+3+1+1+4+1+1+1, wf.Len())

	concat := wf.JobsFor(TrConcatFit)[0]
	assert.Len(t, concat.Inputs(), fx.Overlaps+1)

	add := wf.JobsFor(TrAdd)[0]
	assert.Len(t, add.Inputs(), 2+2*len(res.Images))

	require.NoError(t, wf.Validate(res.Replicas))
}

func TestAssemble_JobTemplates(t *testing.T) {
	fx := testutil.WriteMontageTables(t, t.TempDir(), 2, 0)

	res, err := NewAssembler(options(fx.Dir)).Assemble(context.Background())
	require.NoError(t, err)
	wf := res.Workflow

	raw := BaseName(testutil.ImageName(0))
	next := BaseName(testutil.ImageName(1))

	project := wf.JobsFor(TrProject)[0]
	assert.Equal(t, "ID0000001", project.ID())
	assert.Equal(t, []string{"-X", raw, "p" + raw, "region-oversized.hdr"}, project.Args())
	assert.Equal(t, []string{"region-oversized.hdr", raw}, names(project.Inputs()))
	assert.Equal(t, []string{"p" + raw, "p" + strings.TrimSuffix(raw, ".fits") + "_area.fits"}, names(project.Outputs()))

	fit := wf.JobsFor(TrDiffFit)[0]
	assert.Equal(t, []string{
		"-d", "-s", "fit.000000.000001.txt", "p" + raw, "p" + next, "diff.000000.000001.fits", "region-oversized.hdr",
	}, fit.Args())
	assert.Equal(t, []string{"fit.000000.000001.txt"}, names(fit.Outputs()))

	assert.Equal(t, []string{"statfile.tbl", "fits.tbl", "."}, wf.JobsFor(TrConcatFit)[0].Args())
	assert.Equal(t, []string{"-i", "100000", "pimages.tbl", "fits.tbl", "corrections.tbl"}, wf.JobsFor(TrBgModel)[0].Args())

	bg := wf.JobsFor(TrBackground)[1]
	assert.Equal(t, []string{"-t", "p" + next, "c" + next, "pimages.tbl", "corrections.tbl"}, bg.Args())

	add := wf.JobsFor(TrAdd)[0]
	assert.Equal(t, []string{"-e", "cimages.tbl", "region.hdr", "mosaic.fits"}, add.Args())
	assert.Equal(t, []string{"mosaic.fits", "mosaic_area.fits"}, names(add.Outputs()))
	for _, u := range add.Uses() {
		if u.Link == workflow.LinkOutput {
			assert.True(t, u.StageOut, u.File.Name)
		}
	}

	assert.Equal(t, []string{"mosaic.fits", "mosaic-shrunk.fits", "2"}, wf.JobsFor(TrShrink)[0].Args())
	assert.Equal(t, []string{
		"-ct", "1", "-gray", "mosaic-shrunk.fits", "-1s", "max", "gaussian-log", "-out", "mosaic.png",
	}, wf.JobsFor(TrViewer)[0].Args())
}

func TestAssemble_LogsJobCommands(t *testing.T) {
	// --- Arrange ---
	fx := testutil.WriteMontageTables(t, t.TempDir(), 4, 0)
	logs := &testutil.SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	// --- Act ---
	res, err := NewAssembler(options(fx.Dir)).Assemble(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, logs.LinesContaining("Assembler: job added."), res.Workflow.Len())
	assert.Len(t, logs.LinesContaining("id=ID0000015", `command="mShrink mosaic.fits mosaic-shrunk.fits 2"`), 1)
	assert.Len(t, logs.LinesContaining("transformation=mConcatFit", fmt.Sprintf("inputs=%d", fx.Overlaps+1)), 1)
	assert.Len(t, logs.LinesContaining("transformation=mAdd", "inputs=10"), 1)
}

func TestAssemble_RegistersReplicas(t *testing.T) {
	fx := testutil.WriteMontageTables(t, t.TempDir(), 2, 1)

	res, err := NewAssembler(options(fx.Dir)).Assemble(context.Background())
	require.NoError(t, err)

	pfns, ok := res.Replicas.Lookup(BaseName(testutil.ImageName(0)))
	require.True(t, ok)
	assert.Equal(t, []catalog.PFN{{Site: "ipac", URL: "http://irsa.ipac.caltech.edu/ibe/data/2mass/" + testutil.ImageName(0)}}, pfns)

	assert.False(t, res.Replicas.Has(BaseName(testutil.ImageName(2))), "dropped image must not be registered")

	pfns, ok = res.Replicas.Lookup("statfile.tbl")
	require.True(t, ok)
	assert.Equal(t, "local", pfns[0].Site)
	assert.True(t, strings.HasPrefix(pfns[0].URL, "file:///"))
	assert.True(t, strings.HasSuffix(pfns[0].URL, "/statfile.tbl"))
}

func TestAssemble_WritesStatusTable(t *testing.T) {
	fx := testutil.WriteMontageTables(t, t.TempDir(), 3, 0)

	_, err := NewAssembler(options(fx.Dir)).Assemble(context.Background())
	require.NoError(t, err)

	tbl, err := ipac.ReadFile(filepath.Join(fx.Dir, StatusFileTable))
	require.NoError(t, err)
	assert.Equal(t, fx.Overlaps, tbl.Len())
	stats, err := tbl.Column("stat")
	require.NoError(t, err)
	assert.Equal(t, []string{"fit.000000.000001.txt", "fit.000001.000002.txt"}, stats)
}

func TestAssemble_Deterministic(t *testing.T) {
	fx := testutil.WriteMontageTables(t, t.TempDir(), 5, 1)

	render := func() (string, string) {
		res, err := NewAssembler(options(fx.Dir)).Assemble(context.Background())
		require.NoError(t, err)
		var wf, rc bytes.Buffer
		require.NoError(t, res.Workflow.WriteYAML(&wf))
		require.NoError(t, res.Replicas.WriteYAML(&rc))
		return wf.String(), rc.String()
	}

	wf1, rc1 := render()
	wf2, rc2 := render()
	assert.Equal(t, wf1, wf2)
	assert.Equal(t, rc1, rc2)
}

func TestAssemble_Reconciliation(t *testing.T) {
	setup := func(t *testing.T) string {
		fx := testutil.WriteMontageTables(t, t.TempDir(), 3, 0)
		corrected := ipac.New("cntr", "fname")
		require.NoError(t, corrected.AddRow("0", "c"+BaseName(testutil.ImageName(0))))
		require.NoError(t, corrected.AddRow("1", "c"+BaseName(testutil.ImageName(1))))
		require.NoError(t, corrected.AddRow("7", "cghost.fits"))
		require.NoError(t, corrected.WriteFile(filepath.Join(fx.Dir, CorrectedImagesTable)))
		return fx.Dir
	}

	t.Run("strict fails naming the images", func(t *testing.T) {
		_, err := NewAssembler(options(setup(t))).Assemble(context.Background())
		require.Error(t, err)
		var m Mismatch
		require.ErrorAs(t, err, &m)
		assert.Equal(t, []string{BaseName(testutil.ImageName(2))}, m.NotCorrected)
		assert.Empty(t, m.NotProjected)
		assert.Equal(t, []string{"cghost.fits"}, m.Unexpected)
		assert.ErrorContains(t, err, "missing from cimages.tbl: "+BaseName(testutil.ImageName(2)))
	})

	t.Run("non-strict continues", func(t *testing.T) {
		opts := options(setup(t))
		opts.Strict = false
		res, err := NewAssembler(opts).Assemble(context.Background())
		require.NoError(t, err)
		assert.Len(t, res.Workflow.JobsFor(TrBackground), 3)
	})
}

func TestAssemble_Errors(t *testing.T) {
	t.Run("missing tables", func(t *testing.T) {
		_, err := NewAssembler(options(t.TempDir())).Assemble(context.Background())
		assert.ErrorContains(t, err, "failed to load images")
	})

	t.Run("bad shrink factor", func(t *testing.T) {
		opts := options(t.TempDir())
		opts.ShrinkFactor = 0
		_, err := NewAssembler(opts).Assemble(context.Background())
		assert.ErrorContains(t, err, "shrink factor must be at least 1")
	})

	t.Run("overlap without counters", func(t *testing.T) {
		fx := testutil.WriteMontageTables(t, t.TempDir(), 2, 0)
		overlaps := ipac.New("plus", "minus", "diff")
		require.NoError(t, overlaps.AddRow("a", "b", "c"))
		require.NoError(t, overlaps.WriteFile(filepath.Join(fx.Dir, OverlapsTable)))

		_, err := NewAssembler(options(fx.Dir)).Assemble(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ipac.ErrNoColumn)
	})
}

func TestTransformationCatalog(t *testing.T) {
	tc, err := TransformationCatalog("/opt/Montage/bin", "condorpool", map[string]*config.Transformation{
		"mViewer":  {Name: "mViewer", Path: "/usr/local/bin/mViewer"},
		"mProject": {Name: "mProject", Profiles: map[string]map[string]string{"pegasus": {"clusters.size": "20"}}},
	})
	require.NoError(t, err)
	assert.Len(t, tc.Transformations(), len(Transformations))

	add, ok := tc.Get("mAdd")
	require.True(t, ok)
	assert.Equal(t, "/opt/Montage/bin/mAdd", add.Sites[0].PFN)
	assert.Equal(t, catalog.Installed, add.Sites[0].Type)

	viewer, _ := tc.Get("mViewer")
	assert.Equal(t, "/usr/local/bin/mViewer", viewer.Sites[0].PFN)

	project, _ := tc.Get("mProject")
	assert.Equal(t, "20", project.Profiles["pegasus"]["clusters.size"])

	_, err = TransformationCatalog("/opt/Montage/bin", "condorpool", map[string]*config.Transformation{
		"mJPEG": {Name: "mJPEG"},
	})
	assert.ErrorContains(t, err, `transformation "mJPEG" is not used`)
}
