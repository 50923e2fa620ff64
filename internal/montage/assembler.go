package montage

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/vk/mosaicflow/internal/catalog"
	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/ipac"
	"github.com/vk/mosaicflow/internal/workflow"
)

// Options controls one assembly.
type Options struct {
	Name         string // workflow name
	DataDir      string // directory holding the preparation tables
	ShrinkFactor int
	Strict       bool
	ArchiveSite  string
	LocalSite    string
}

// Result is everything the assembler produces.
type Result struct {
	Workflow *workflow.Workflow
	Replicas *catalog.ReplicaCatalog
	Images   []Image
	Overlaps []Overlap
}

// Assembler builds the mosaic workflow stage by stage.
type Assembler struct {
	opts Options
	wf   *workflow.Workflow
	rc   *catalog.ReplicaCatalog
}

// NewAssembler returns an assembler for opts.
func NewAssembler(opts Options) *Assembler {
	return &Assembler{
		opts: opts,
		wf:   workflow.New(opts.Name),
		rc:   catalog.NewReplicaCatalog(),
	}
}

// Assemble reads the tables in the data directory and returns the complete
// workflow with its replica catalog. It writes statfile.tbl into the data
// directory as a side effect. There is no partial result on error.
func (a *Assembler) Assemble(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if a.opts.ShrinkFactor < 1 {
		return nil, fmt.Errorf("shrink factor must be at least 1, got %d", a.opts.ShrinkFactor)
	}

	images, err := LoadImages(a.opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images listed in %s", RawImagesTable)
	}
	logger.Debug("Assembler: images loaded.", "count", len(images))

	overlaps, err := LoadOverlaps(a.opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load overlaps: %w", err)
	}
	logger.Debug("Assembler: overlaps loaded.", "count", len(overlaps))

	if err := a.registerInputs(images); err != nil {
		return nil, err
	}

	a.addProjections(images)
	a.addDiffFits(overlaps)
	if err := a.writeStatusTable(overlaps); err != nil {
		return nil, err
	}
	a.addConcatFit(ctx, overlaps)
	a.addBgModel()
	a.addBackgrounds(images)

	if err := a.reconcile(ctx, images); err != nil {
		return nil, err
	}
	a.addCoadd(ctx, images)
	a.addShrink()
	a.addRender()

	for _, j := range a.wf.Jobs() {
		logger.Debug("Assembler: job added.", "id", j.ID(), "command", j.CommandLine())
	}
	logger.Debug("Assembler: workflow built.", "jobs", a.wf.Len(), "replicas", a.rc.Len())
	return &Result{Workflow: a.wf, Replicas: a.rc, Images: images, Overlaps: overlaps}, nil
}

func (a *Assembler) registerInputs(images []Image) error {
	for _, img := range images {
		if err := a.rc.Add(img.Name, a.opts.ArchiveSite, img.URL); err != nil {
			return err
		}
	}
	for _, name := range []string{
		RegionHeader, RegionHeaderOversized, ProjectedImagesTable, CorrectedImagesTable, StatusFileTable,
	} {
		if err := a.rc.AddLocal(name, a.opts.LocalSite, filepath.Join(a.opts.DataDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func file(name string) workflow.File {
	return workflow.NewFile(name)
}

func (a *Assembler) addProjections(images []Image) {
	for _, img := range images {
		p := Projected(img.Name)
		a.wf.Add(workflow.NewJobBuilder(TrProject).
			AddArgs("-X", img.Name, p, RegionHeaderOversized).
			AddInputs(file(RegionHeaderOversized), file(img.Name)).
			AddOutputs(file(p), file(Area(p))).
			Build())
	}
}

func (a *Assembler) addDiffFits(overlaps []Overlap) {
	for _, o := range overlaps {
		plus, minus := Projected(o.Plus), Projected(o.Minus)
		a.wf.Add(workflow.NewJobBuilder(TrDiffFit).
			AddArgs("-d", "-s", o.FitStatus(), plus, minus, o.Diff, RegionHeaderOversized).
			AddInputs(file(plus), file(Area(plus)), file(minus), file(Area(minus)), file(RegionHeaderOversized)).
			AddOutputs(file(o.FitStatus())).
			Build())
	}
}

// writeStatusTable writes the fit-list table mConcatFit reads: one row per
// overlap naming its fit status file.
func (a *Assembler) writeStatusTable(overlaps []Overlap) error {
	tbl := ipac.New("cntr1", "cntr2", "stat")
	for _, o := range overlaps {
		if err := tbl.AddRow(strconv.Itoa(o.Cntr1), strconv.Itoa(o.Cntr2), o.FitStatus()); err != nil {
			return err
		}
	}
	if err := tbl.WriteFile(filepath.Join(a.opts.DataDir, StatusFileTable)); err != nil {
		return fmt.Errorf("failed to write %s: %w", StatusFileTable, err)
	}
	return nil
}

func (a *Assembler) addConcatFit(ctx context.Context, overlaps []Overlap) {
	b := workflow.NewJobBuilder(TrConcatFit).
		AddArgs(StatusFileTable, FitsTable, ".").
		AddInputs(file(StatusFileTable))
	for _, o := range overlaps {
		b.AddInputs(file(o.FitStatus()))
	}
	ctxlog.FromContext(ctx).Debug("Assembler: aggregate job inputs.", "transformation", TrConcatFit, "inputs", b.InputCount())
	a.wf.Add(b.AddOutputs(file(FitsTable)).Build())
}

func (a *Assembler) addBgModel() {
	a.wf.Add(workflow.NewJobBuilder(TrBgModel).
		AddArgs("-i", "100000", ProjectedImagesTable, FitsTable, CorrectionsTable).
		AddInputs(file(ProjectedImagesTable), file(FitsTable)).
		AddOutputs(file(CorrectionsTable)).
		Build())
}

func (a *Assembler) addBackgrounds(images []Image) {
	for _, img := range images {
		p, c := Projected(img.Name), Corrected(img.Name)
		a.wf.Add(workflow.NewJobBuilder(TrBackground).
			AddArgs("-t", p, c, ProjectedImagesTable, CorrectionsTable).
			AddInputs(file(p), file(Area(p)), file(ProjectedImagesTable), file(CorrectionsTable)).
			AddOutputs(file(c), file(Area(c))).
			Build())
	}
}

func (a *Assembler) addCoadd(ctx context.Context, images []Image) {
	b := workflow.NewJobBuilder(TrAdd).
		AddArgs("-e", CorrectedImagesTable, RegionHeader, MosaicImage).
		AddInputs(file(CorrectedImagesTable), file(RegionHeader))
	for _, img := range images {
		c := Corrected(img.Name)
		b.AddInputs(file(c), file(Area(c)))
	}
	ctxlog.FromContext(ctx).Debug("Assembler: aggregate job inputs.", "transformation", TrAdd, "inputs", b.InputCount())
	a.wf.Add(b.AddStagedOutputs(file(MosaicImage), file(MosaicArea)).Build())
}

func (a *Assembler) addShrink() {
	a.wf.Add(workflow.NewJobBuilder(TrShrink).
		AddArgs(MosaicImage, ShrunkImage, strconv.Itoa(a.opts.ShrinkFactor)).
		AddInputs(file(MosaicImage)).
		AddStagedOutputs(file(ShrunkImage)).
		Build())
}

func (a *Assembler) addRender() {
	a.wf.Add(workflow.NewJobBuilder(TrViewer).
		AddArgs("-ct", "1", "-gray", ShrunkImage, "-1s", "max", "gaussian-log", "-out", PreviewImage).
		AddInputs(file(ShrunkImage)).
		AddStagedOutputs(file(PreviewImage)).
		Build())
}
