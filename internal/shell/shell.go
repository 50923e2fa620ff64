// Package shell runs external programs: the Montage preparation tools and
// the planner's command-line clients. Everything that spawns a process goes
// through Runner so tests can substitute a scripted fake.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/vk/mosaicflow/internal/ctxlog"
)

// Command is one program invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Result is the captured outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command  Command
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command.Path, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command.Path, e.ExitCode, msg)
}

// ExecRunner runs commands with os/exec, capturing stdout and stderr.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts cmd and waits for it. A non-zero exit returns the captured
// Result together with an *ExitError.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running command.", "command", cmd.String(), "dir", cmd.Dir)

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			logger.Debug("Command failed.", "command", cmd.Path, "exit_code", res.ExitCode, "duration", res.Duration)
			return res, &ExitError{Command: cmd, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
		return res, fmt.Errorf("failed to run %s: %w", cmd.Path, err)
	}

	logger.Debug("Command finished.", "command", cmd.Path, "duration", res.Duration)
	return res, nil
}
