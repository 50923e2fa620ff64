package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/montage"
	"github.com/vk/mosaicflow/internal/pegasus"
	"github.com/vk/mosaicflow/internal/publish"
	"github.com/vk/mosaicflow/internal/submit"
	"github.com/vk/mosaicflow/internal/toolkit"
	"github.com/vk/mosaicflow/internal/workflow"
)

// Files written to the work directory.
const (
	ReplicasFile        = "replicas.yml"
	TransformationsFile = "transformations.yml"
	WorkflowFile        = "workflow.yml"
	DotFile             = "workflow.dot"
	PropertiesFile      = "pegasus.properties"
	SubmitDir           = "submit"
)

// Run executes one mosaic run: prepare the tables, assemble and write the
// workflow, then hand it to the planner and publish the products.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.startStatusServer(ctx)
	defer a.closeStatusServer(ctx)

	m := a.model
	// pegasus-plan runs inside workDir; every path handed to it is absolute.
	workDir, err := filepath.Abs(a.config.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to resolve work directory: %w", err)
	}
	dataDir := m.Mosaic.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(workDir, dataDir)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if m.Montage.Prepare && !a.config.SkipPrepare {
		tk := toolkit.New(a.runner, m.Montage.BinDir)
		err := tk.Prepare(ctx, dataDir, toolkit.Request{
			Location: m.Mosaic.Location,
			Size:     m.Mosaic.Size,
			Survey:   m.Mosaic.Survey,
			Band:     m.Mosaic.Band,
		})
		if err != nil {
			return fmt.Errorf("preparation failed: %w", err)
		}
	} else {
		a.logger.Debug("Skipping preparation, using existing tables.", "data_dir", dataDir)
	}

	a.logger.Info("🧩 Assembling workflow", "mosaic", m.Mosaic.Name)
	res, err := montage.NewAssembler(montage.Options{
		Name:         m.Mosaic.Name,
		DataDir:      dataDir,
		ShrinkFactor: m.Mosaic.ShrinkFactor,
		Strict:       m.Mosaic.Strict,
		ArchiveSite:  m.Pegasus.ArchiveSite,
		LocalSite:    m.Pegasus.LocalSite,
	}).Assemble(ctx)
	if err != nil {
		return fmt.Errorf("failed to assemble workflow: %w", err)
	}
	if err := res.Workflow.Validate(res.Replicas); err != nil {
		return err
	}

	tc, err := montage.TransformationCatalog(m.Montage.BinDir, m.Pegasus.Site, m.Transformations)
	if err != nil {
		return fmt.Errorf("failed to build transformation catalog: %w", err)
	}

	path := func(name string) string { return filepath.Join(workDir, name) }
	if err := res.Replicas.WriteFile(path(ReplicasFile)); err != nil {
		return err
	}
	if err := tc.WriteFile(path(TransformationsFile)); err != nil {
		return err
	}
	if err := res.Workflow.WriteYAMLFile(path(WorkflowFile)); err != nil {
		return err
	}
	props, err := pegasus.Properties(path(ReplicasFile), path(TransformationsFile), m.Pegasus.Properties)
	if err != nil {
		return err
	}
	if err := pegasus.WriteProperties(path(PropertiesFile), props); err != nil {
		return err
	}
	a.logger.Info("📝 Workflow written",
		"jobs", res.Workflow.Len(), "images", len(res.Images), "overlaps", len(res.Overlaps), "work_dir", workDir)

	if a.config.SkipSubmit {
		if err := submit.RenderGraph(path(WorkflowFile), path(DotFile), workflow.WithFiles()); err != nil {
			a.logger.Warn("Cannot render workflow graph.", "error", err)
		}
		a.logger.Info("🏁 Submission skipped.")
		return nil
	}

	planner := a.planner
	if planner == nil {
		planner = pegasus.New(a.runner, m.Pegasus.BinDir, m.Pegasus.PollInterval)
	}
	rep, err := submit.New(planner, a.tracker).Run(ctx, submit.Request{
		Workflow: path(WorkflowFile),
		Dot:      path(DotFile),
		DotFiles: true,
		Plan: pegasus.PlanRequest{
			Properties: path(PropertiesFile),
			SubmitRoot: path(SubmitDir),
			Site:       m.Pegasus.Site,
			OutputSite: m.Pegasus.OutputSite,
			Cleanup:    m.Pegasus.Cleanup,
			Submit:     m.Pegasus.Submit,
			Workflow:   path(WorkflowFile),
			Dir:        workDir,
		},
	})
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	if m.Publish != nil && rep.Status.State == pegasus.StateSuccess {
		if err := a.publish(ctx, workDir); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
	}

	a.logger.Info("🏁 Run finished.", "submit_dir", rep.SubmitDir, "state", rep.Status.State)
	return nil
}

func (a *App) publish(ctx context.Context, workDir string) error {
	p := a.model.Publish
	store := a.store
	if store == nil {
		gcs, err := publish.NewGCSStore(ctx)
		if err != nil {
			return err
		}
		defer gcs.Close()
		store = gcs
	}

	src := p.SourceDir
	if !filepath.IsAbs(src) {
		src = filepath.Join(workDir, src)
	}
	_, err := publish.New(store, p.Bucket, p.Prefix).Publish(ctx, src, montage.MosaicImage, montage.PreviewImage)
	return err
}
