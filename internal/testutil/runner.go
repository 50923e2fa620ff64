package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/vk/mosaicflow/internal/shell"
)

// Responder scripts the outcome of one command.
type Responder func(cmd shell.Command) (shell.Result, error)

// FakeRunner is a shell.Runner that records every command and answers with
// the responder registered for the program's base name. Programs without a
// responder succeed with empty output.
type FakeRunner struct {
	mu         sync.Mutex
	responders map[string]Responder
	calls      []shell.Command
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responders: make(map[string]Responder)}
}

// On registers the responder for a program base name (e.g. "mHdr").
func (f *FakeRunner) On(program string, r Responder) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[program] = r
	return f
}

// OnStdout makes program succeed with the given standard output.
func (f *FakeRunner) OnStdout(program, stdout string) *FakeRunner {
	return f.On(program, func(shell.Command) (shell.Result, error) {
		return shell.Result{Stdout: stdout}, nil
	})
}

// OnExit makes program fail with the given exit code and stderr.
func (f *FakeRunner) OnExit(program string, code int, stderr string) *FakeRunner {
	return f.On(program, func(cmd shell.Command) (shell.Result, error) {
		res := shell.Result{Stderr: stderr, ExitCode: code}
		return res, &shell.ExitError{Command: cmd, ExitCode: code, Stderr: stderr}
	})
}

// Run implements shell.Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd shell.Command) (shell.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	r, ok := f.responders[filepath.Base(cmd.Path)]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return shell.Result{}, fmt.Errorf("failed to run %s: %w", cmd.Path, err)
	}
	if !ok {
		return shell.Result{}, nil
	}
	return r(cmd)
}

// Calls returns every recorded command in call order.
func (f *FakeRunner) Calls() []shell.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]shell.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded commands for one program base name.
func (f *FakeRunner) CallsTo(program string) []shell.Command {
	var out []shell.Command
	for _, c := range f.Calls() {
		if filepath.Base(c.Path) == program {
			out = append(out, c)
		}
	}
	return out
}
