// Package submit hands an assembled workflow to the planner and follows it
// through a fixed sequence of stages:
//
//	GRAPH -> PLAN -> EXECUTE -> STATISTICS
//	           |
//	           +--(failure)--> ANALYZE
//
// Every stage is attempted once. Failures are logged and recorded in the
// Report; only a PLAN failure ends the sequence early.
package submit

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/pegasus"
	"github.com/vk/mosaicflow/internal/workflow"
)

// Stage names one step of the submission sequence.
type Stage string

const (
	StageGraph      Stage = "GRAPH"
	StagePlan       Stage = "PLAN"
	StageExecute    Stage = "EXECUTE"
	StageStatistics Stage = "STATISTICS"
	StageAnalyze    Stage = "ANALYZE"
)

// Client is the planner surface the facade drives.
type Client interface {
	Plan(ctx context.Context, req pegasus.PlanRequest) (string, error)
	Wait(ctx context.Context, submitDir string) (pegasus.Status, error)
	Analyze(ctx context.Context, submitDir string) (string, error)
	Statistics(ctx context.Context, submitDir string) (string, error)
}

// Request describes one submission.
type Request struct {
	Workflow string // serialized workflow.yml
	Dot      string // where GRAPH writes the rendering
	DotFiles bool   // draw files as nodes in the rendering
	Plan     pegasus.PlanRequest
}

// StageResult is the outcome of one attempted stage.
type StageResult struct {
	Stage    Stage
	Output   string
	Err      error
	Duration time.Duration
}

// Report lists every attempted stage in order.
type Report struct {
	SubmitDir string
	Status    pegasus.Status
	Stages    []StageResult
}

// Attempted reports whether stage ran.
func (r *Report) Attempted(stage Stage) bool {
	_, ok := r.Result(stage)
	return ok
}

// Result returns the outcome of stage.
func (r *Report) Result(stage Stage) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageResult{}, false
}

// Facade runs the submission sequence.
type Facade struct {
	client  Client
	tracker *Tracker
}

// New returns a facade over client. tracker may be nil.
func New(client Client, tracker *Tracker) *Facade {
	return &Facade{client: client, tracker: tracker}
}

// Run attempts every stage in order and returns the report together with
// an error wrapping the first failed stage, if any.
func (f *Facade) Run(ctx context.Context, req Request) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	rep := &Report{}
	var firstErr error

	step := func(stage Stage, fn func() (string, error)) error {
		f.tracker.enter(stage)
		start := time.Now()
		out, err := fn()
		res := StageResult{Stage: stage, Output: out, Err: err, Duration: time.Since(start)}
		rep.Stages = append(rep.Stages, res)
		f.tracker.finish(stage, err)

		if out != "" {
			logger.Info(fmt.Sprintf("%s output:\n%s", stage, out))
		}
		if err != nil {
			logger.Error("❌ Stage failed", "stage", stage, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s stage failed: %w", stage, err)
			}
			return err
		}
		logger.Info("✅ Stage completed", "stage", stage, "duration", res.Duration)
		return nil
	}

	step(StageGraph, func() (string, error) {
		var opts []workflow.DotOption
		if req.DotFiles {
			opts = append(opts, workflow.WithFiles())
		}
		return "", RenderGraph(req.Workflow, req.Dot, opts...)
	})

	err := step(StagePlan, func() (string, error) {
		dir, err := f.client.Plan(ctx, req.Plan)
		rep.SubmitDir = dir
		f.tracker.setSubmitDir(dir)
		return "", err
	})
	if err != nil {
		dir := rep.SubmitDir
		if dir == "" {
			dir = req.Plan.SubmitRoot
		}
		step(StageAnalyze, func() (string, error) {
			return f.client.Analyze(ctx, dir)
		})
		return rep, firstErr
	}

	if !req.Plan.Submit {
		logger.Info("Workflow planned but not submitted.", "submit_dir", rep.SubmitDir)
		return rep, firstErr
	}

	step(StageExecute, func() (string, error) {
		st, err := f.client.Wait(ctx, rep.SubmitDir)
		rep.Status = st
		return "", err
	})

	step(StageStatistics, func() (string, error) {
		return f.client.Statistics(ctx, rep.SubmitDir)
	})

	return rep, firstErr
}

// RenderGraph reads the serialized workflow back and writes its DOT
// rendering, so the picture shows exactly what the planner receives.
func RenderGraph(workflowPath, dotPath string, opts ...workflow.DotOption) error {
	in, err := os.Open(workflowPath)
	if err != nil {
		return err
	}
	defer in.Close()

	wf, err := workflow.ReadYAML(in)
	if err != nil {
		return err
	}

	out, err := os.Create(dotPath)
	if err != nil {
		return err
	}
	if err := wf.WriteDot(out, opts...); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
