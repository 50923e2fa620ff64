// Package pegasus drives the Pegasus command-line clients: it plans and
// submits a workflow, waits for the DAG to finish, and collects the
// analyzer and statistics reports.
package pegasus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/shell"
)

// ErrWorkflowFailed is returned by Wait when the DAG finishes unsuccessfully.
var ErrWorkflowFailed = errors.New("workflow failed")

// DefaultProgressInterval is how often Wait logs progress while the DAG
// state does not change.
const DefaultProgressInterval = time.Minute

// Client runs the planner binaries from one directory.
type Client struct {
	runner           shell.Runner
	binDir           string
	pollInterval     time.Duration
	progressInterval time.Duration
	watch            func(dir string) (*dirWatch, error)
}

// New returns a Client that polls the DAG every poll interval.
func New(runner shell.Runner, binDir string, poll time.Duration) *Client {
	return &Client{
		runner:           runner,
		binDir:           binDir,
		pollInterval:     poll,
		progressInterval: DefaultProgressInterval,
		watch:            watchDir,
	}
}

// PlanRequest holds the pegasus-plan arguments.
type PlanRequest struct {
	Properties string // pegasus.properties path
	SubmitRoot string // base directory for submit directories
	Site       string
	OutputSite string
	Cleanup    string
	Submit     bool
	Workflow   string // workflow.yml path
	Dir        string // working directory of the planner
}

// Args renders the request as pegasus-plan arguments.
func (r PlanRequest) Args() []string {
	args := []string{
		"--conf", r.Properties,
		"--dir", r.SubmitRoot,
		"--sites", r.Site,
		"--output-sites", r.OutputSite,
		"--cleanup", r.Cleanup,
	}
	if r.Submit {
		args = append(args, "--submit")
	}
	return append(args, r.Workflow)
}

var submitDirPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)pegasus-run\s+(\S+)`),
	regexp.MustCompile(`(?m)Submit Directory\s*:\s*(\S+)`),
	regexp.MustCompile(`(?m)running in the base directory:\s*\n\s*(\S+)`),
}

// ParseSubmitDir finds the submit directory in the planner's output.
func ParseSubmitDir(output string) (string, error) {
	for _, re := range submitDirPatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no submit directory in planner output")
}

func (c *Client) command(program, dir string, args ...string) shell.Command {
	return shell.Command{Path: filepath.Join(c.binDir, program), Args: args, Dir: dir}
}

// Plan runs pegasus-plan and returns the submit directory it created.
func (c *Client) Plan(ctx context.Context, req PlanRequest) (string, error) {
	logger := ctxlog.FromContext(ctx)

	res, err := c.runner.Run(ctx, c.command("pegasus-plan", req.Dir, req.Args()...))
	if err != nil {
		return "", fmt.Errorf("pegasus-plan: %w", err)
	}
	out := res.Stdout + "\n" + res.Stderr
	dir, err := ParseSubmitDir(out)
	if err != nil {
		return "", fmt.Errorf("pegasus-plan: %w: %q", err, strings.TrimSpace(out))
	}
	logger.Debug("Pegasus: Workflow planned.", "submit_dir", dir, "submitted", req.Submit)
	return dir, nil
}

// report runs a reporting tool. Its output is returned even when the tool
// exits non-zero, since pegasus-analyzer does so whenever jobs failed.
func (c *Client) report(ctx context.Context, program string, args ...string) (string, error) {
	res, err := c.runner.Run(ctx, c.command(program, "", args...))
	out := strings.TrimSpace(res.Stdout)
	if err != nil {
		return out, fmt.Errorf("%s: %w", program, err)
	}
	return out, nil
}

// Analyze runs pegasus-analyzer on a submit directory.
func (c *Client) Analyze(ctx context.Context, submitDir string) (string, error) {
	return c.report(ctx, "pegasus-analyzer", submitDir)
}

// Statistics runs pegasus-statistics on a submit directory.
func (c *Client) Statistics(ctx context.Context, submitDir string) (string, error) {
	return c.report(ctx, "pegasus-statistics", "-s", "all", submitDir)
}
