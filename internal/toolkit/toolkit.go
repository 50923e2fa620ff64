// Package toolkit runs the Montage preparation binaries that produce the
// small tables the workflow is assembled from: the region headers, the
// archive image list, the DAG image tables and the overlap list.
package toolkit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/montage"
	"github.com/vk/mosaicflow/internal/shell"
	"golang.org/x/sync/errgroup"
)

// OversizeMargin is added to the mosaic size, in degrees, for the header
// the images are reprojected onto, so that edge images cover the region.
const OversizeMargin = 0.1

// ErrToolFailed is returned when a tool reports stat="ERROR".
var ErrToolFailed = errors.New("montage tool failed")

// Request describes the sky region to prepare.
type Request struct {
	Location string
	Size     float64
	Survey   string
	Band     string
}

// Toolkit invokes Montage binaries from BinDir inside a data directory.
type Toolkit struct {
	runner shell.Runner
	binDir string
}

// New returns a Toolkit running binaries from binDir through runner.
func New(runner shell.Runner, binDir string) *Toolkit {
	return &Toolkit{runner: runner, binDir: binDir}
}

// Status is the parsed completion message every Montage tool prints.
type Status struct {
	Stat   string
	Fields map[string]string
}

var (
	statusLine = regexp.MustCompile(`\[struct\s+(.*)\]`)
	statusAttr = regexp.MustCompile(`(\w+)\s*=\s*("(?:[^"\\]|\\.)*"|[^,\s]+)`)
)

// ParseStatus extracts the last `[struct stat="...", ...]` message from a
// tool's standard output.
func ParseStatus(stdout string) (Status, error) {
	matches := statusLine.FindAllStringSubmatch(stdout, -1)
	if len(matches) == 0 {
		return Status{}, fmt.Errorf("no completion message in output %q", strings.TrimSpace(stdout))
	}
	body := matches[len(matches)-1][1]

	st := Status{Fields: make(map[string]string)}
	for _, m := range statusAttr.FindAllStringSubmatch(body, -1) {
		v := m[2]
		if unq, err := strconv.Unquote(v); err == nil {
			v = unq
		}
		st.Fields[m[1]] = v
	}
	st.Stat = st.Fields["stat"]
	if st.Stat == "" {
		return Status{}, fmt.Errorf("completion message has no stat field: %q", body)
	}
	return st, nil
}

// Run executes one tool in dir and checks its completion message.
func (t *Toolkit) Run(ctx context.Context, dir, tool string, args ...string) (Status, error) {
	logger := ctxlog.FromContext(ctx).With("tool", tool)
	cmd := shell.Command{Path: filepath.Join(t.binDir, tool), Args: args, Dir: dir}

	res, err := t.runner.Run(ctx, cmd)
	if err != nil {
		return Status{}, fmt.Errorf("%s: %w", tool, err)
	}

	st, err := ParseStatus(res.Stdout)
	if err != nil {
		return Status{}, fmt.Errorf("%s: %w", tool, err)
	}
	if st.Stat != "OK" {
		return st, fmt.Errorf("%w: %s: %s", ErrToolFailed, tool, st.Fields["msg"])
	}
	logger.Debug("Tool completed.", "status", st.Fields)
	return st, nil
}

// Prepare produces every input table of the workflow in dir.
func (t *Toolkit) Prepare(ctx context.Context, dir string, req Request) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🔭 Preparing input tables", "location", req.Location, "size", req.Size, "survey", req.Survey, "band", req.Band)

	size := formatDegrees(req.Size)
	oversized := formatDegrees(req.Size + OversizeMargin)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := t.Run(gctx, dir, "mHdr", req.Location, size, montage.RegionHeader)
		return err
	})
	g.Go(func() error {
		_, err := t.Run(gctx, dir, "mHdr", req.Location, oversized, montage.RegionHeaderOversized)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to build region headers: %w", err)
	}
	logger.Debug("Toolkit: Region headers written.")

	st, err := t.Run(ctx, dir, "mArchiveList", req.Survey, req.Band, req.Location, oversized, oversized, montage.ImagesTable)
	if err != nil {
		return fmt.Errorf("failed to list archive images: %w", err)
	}
	logger.Info("Archive images listed.", "count", st.Fields["count"])

	if _, err := t.Run(ctx, dir, "mDAGTbls", montage.ImagesTable, montage.RegionHeaderOversized,
		montage.RawImagesTable, montage.ProjectedImagesTable, montage.CorrectedImagesTable); err != nil {
		return fmt.Errorf("failed to build image tables: %w", err)
	}

	st, err = t.Run(ctx, dir, "mOverlaps", montage.RawImagesTable, montage.OverlapsTable)
	if err != nil {
		return fmt.Errorf("failed to compute overlaps: %w", err)
	}
	logger.Info("Overlaps computed.", "count", st.Fields["count"])
	return nil
}

// formatDegrees prints at most micro-degree precision so that sums such as
// 0.2+0.1 do not leak float noise into the command line.
func formatDegrees(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
