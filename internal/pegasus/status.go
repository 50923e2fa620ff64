package pegasus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	jsoniter "github.com/json-iterator/go"
	"github.com/vk/mosaicflow/internal/ctxlog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DAG states reported by pegasus-status.
const (
	StateUnknown = "Unknown"
	StateRunning = "Running"
	StateSuccess = "Success"
	StateFailure = "Failure"
)

// Files the monitoring daemon writes in the submit directory. A change to
// either one wakes Wait before the next poll.
var wakeFiles = map[string]struct{}{
	"monitord.done": {},
	"jobstate.log":  {},
}

// Status is the root DAG summary from `pegasus-status --jsonrv`.
type Status struct {
	State       string  `json:"state"`
	DagName     string  `json:"dagname"`
	PercentDone float64 `json:"percent_done"`
	Unready     int     `json:"unready"`
	Ready       int     `json:"ready"`
	Pre         int     `json:"pre"`
	Queued      int     `json:"queued"`
	Post        int     `json:"post"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
}

// Done reports whether the DAG reached a terminal state.
func (s Status) Done() bool {
	return s.State == StateSuccess || s.State == StateFailure
}

type statusDoc struct {
	Dags map[string]Status `json:"dags"`
}

// ParseStatus decodes pegasus-status JSON output. Empty output means the
// DAG has not been picked up by the scheduler yet.
func ParseStatus(out []byte) (Status, error) {
	if strings.TrimSpace(string(out)) == "" {
		return Status{State: StateUnknown}, nil
	}
	var doc statusDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return Status{}, fmt.Errorf("failed to decode pegasus-status output: %w", err)
	}
	root, ok := doc.Dags["root"]
	if !ok {
		return Status{}, fmt.Errorf("pegasus-status output has no root DAG")
	}
	if root.State == "" {
		root.State = StateUnknown
	}
	return root, nil
}

// Status queries the current DAG state once.
func (c *Client) Status(ctx context.Context, submitDir string) (Status, error) {
	res, err := c.runner.Run(ctx, c.command("pegasus-status", "", "--jsonrv", submitDir))
	if err != nil {
		return Status{}, fmt.Errorf("pegasus-status: %w", err)
	}
	return ParseStatus([]byte(res.Stdout))
}

// dirWatch is the part of an fsnotify watcher that Wait listens to.
type dirWatch struct {
	events <-chan fsnotify.Event
	errors <-chan error
	close  func() error
}

func watchDir(dir string) (*dirWatch, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &dirWatch{events: w.Events, errors: w.Errors, close: w.Close}, nil
}

// Wait blocks until the DAG in submitDir finishes. It polls pegasus-status
// on a ticker and additionally whenever the monitoring daemon touches its
// files. A failed DAG returns the final status with ErrWorkflowFailed.
func (c *Client) Wait(ctx context.Context, submitDir string) (Status, error) {
	ctx = ctxlog.With(ctx, "submit_dir", submitDir)
	logger := ctxlog.FromContext(ctx)

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w, err := c.watch(submitDir); err != nil {
		logger.Warn("Cannot watch submit directory, polling only.", "error", err)
	} else {
		defer w.close()
		events, errs = w.events, w.errors
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last Status
	var lastLog time.Time
	for {
		st, err := c.Status(ctx, submitDir)
		if err != nil {
			return last, err
		}

		if st.State != last.State || time.Since(lastLog) >= c.progressInterval {
			logger.Info("⏳ Workflow progress",
				"state", st.State, "percent_done", st.PercentDone,
				"succeeded", st.Succeeded, "failed", st.Failed, "queued", st.Queued)
			lastLog = time.Now()
		}
		last = st

		if st.Done() {
			if st.State == StateFailure {
				return st, fmt.Errorf("%w: %d job(s) failed", ErrWorkflowFailed, st.Failed)
			}
			return st, nil
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-ticker.C:
				break wait
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if _, wake := wakeFiles[filepath.Base(ev.Name)]; wake {
					logger.Debug("Pegasus: Submit directory changed.", "file", ev.Name, "op", ev.Op.String())
					break wait
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("Submit directory watcher error.", "error", err)
			}
		}
	}
}
