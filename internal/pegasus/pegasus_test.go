package pegasus

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/magiconair/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/shell"
	"github.com/vk/mosaicflow/internal/testutil"
)

func statusJSON(state string, percent float64, failed int) string {
	return `{"dags": {"root": {"state": "` + state + `", "dagname": "m17-0.dag", "percent_done": ` +
		jsonFloat(percent) + `, "succeeded": 3, "failed": ` + jsonInt(failed) + `, "queued": 1}}}`
}

func jsonFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func jsonInt(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestPlanRequest_Args(t *testing.T) {
	req := PlanRequest{
		Properties: "pegasus.properties",
		SubmitRoot: "submit",
		Site:       "condorpool",
		OutputSite: "local",
		Cleanup:    "inplace",
		Workflow:   "workflow.yml",
	}
	assert.Equal(t, []string{
		"--conf", "pegasus.properties", "--dir", "submit", "--sites", "condorpool",
		"--output-sites", "local", "--cleanup", "inplace", "workflow.yml",
	}, req.Args())

	req.Submit = true
	args := req.Args()
	assert.Equal(t, []string{"--submit", "workflow.yml"}, args[len(args)-2:])
}

func TestParseSubmitDir(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "plan only",
			output: "I have concretized your abstract workflow.\n\n pegasus-run  /work/submit/run0001\n",
			want:   "/work/submit/run0001",
		},
		{
			name:   "submit directory line",
			output: "Submit Directory: /work/submit/run0002\n",
			want:   "/work/submit/run0002",
		},
		{
			name:   "submitted",
			output: "Your workflow has been started and is running in the base directory:\n\n  /work/submit/run0003\n\n*** To monitor the workflow you can run ***\n",
			want:   "/work/submit/run0003",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSubmitDir(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSubmitDir("ERROR: no workflow")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	runner := testutil.NewFakeRunner().OnStdout("pegasus-plan", "pegasus-run /submit/run0001\n")
	c := New(runner, "/usr/bin", time.Second)

	dir, err := c.Plan(context.Background(), PlanRequest{Workflow: "workflow.yml", Dir: "/work", Submit: true})
	require.NoError(t, err)
	assert.Equal(t, "/submit/run0001", dir)

	calls := runner.CallsTo("pegasus-plan")
	require.Len(t, calls, 1)
	assert.Equal(t, "/usr/bin/pegasus-plan", calls[0].Path)
	assert.Equal(t, "/work", calls[0].Dir)
	assert.Contains(t, calls[0].Args, "--submit")
}

func TestPlan_Errors(t *testing.T) {
	t.Run("planner exits non-zero", func(t *testing.T) {
		runner := testutil.NewFakeRunner().OnExit("pegasus-plan", 1, "no such site")
		_, err := New(runner, "/usr/bin", time.Second).Plan(context.Background(), PlanRequest{})
		var exitErr *shell.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.ErrorContains(t, err, "no such site")
	})

	t.Run("no submit directory", func(t *testing.T) {
		runner := testutil.NewFakeRunner().OnStdout("pegasus-plan", "done\n")
		_, err := New(runner, "/usr/bin", time.Second).Plan(context.Background(), PlanRequest{})
		assert.ErrorContains(t, err, "no submit directory")
	})
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus([]byte(statusJSON(StateRunning, 42.5, 0)))
	require.NoError(t, err)
	assert.Equal(t, StateRunning, st.State)
	assert.Equal(t, 42.5, st.PercentDone)
	assert.Equal(t, 3, st.Succeeded)
	assert.False(t, st.Done())

	st, err = ParseStatus([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, st.State)

	_, err = ParseStatus([]byte(`{"dags": {}}`))
	assert.ErrorContains(t, err, "no root DAG")

	_, err = ParseStatus([]byte(`{`))
	assert.ErrorContains(t, err, "failed to decode")
}

// sequence answers pegasus-status with each output in turn, repeating the
// last one.
func sequence(outputs ...string) testutil.Responder {
	var n atomic.Int32
	return func(shell.Command) (shell.Result, error) {
		i := int(n.Add(1)) - 1
		if i >= len(outputs) {
			i = len(outputs) - 1
		}
		return shell.Result{Stdout: outputs[i]}, nil
	}
}

func TestWait(t *testing.T) {
	t.Run("polls until success", func(t *testing.T) {
		runner := testutil.NewFakeRunner().On("pegasus-status", sequence(
			"",
			statusJSON(StateRunning, 50, 0),
			statusJSON(StateSuccess, 100, 0),
		))
		c := New(runner, "/usr/bin", 5*time.Millisecond)

		st, err := c.Wait(context.Background(), t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, StateSuccess, st.State)
		assert.Len(t, runner.CallsTo("pegasus-status"), 3)
		assert.Equal(t, []string{"--jsonrv"}, runner.CallsTo("pegasus-status")[0].Args[:1])
	})

	t.Run("failure", func(t *testing.T) {
		runner := testutil.NewFakeRunner().OnStdout("pegasus-status", statusJSON(StateFailure, 80, 2))
		st, err := New(runner, "/usr/bin", time.Millisecond).Wait(context.Background(), t.TempDir())
		require.ErrorIs(t, err, ErrWorkflowFailed)
		assert.ErrorContains(t, err, "2 job(s) failed")
		assert.Equal(t, StateFailure, st.State)
	})

	t.Run("status command fails", func(t *testing.T) {
		runner := testutil.NewFakeRunner().OnExit("pegasus-status", 1, "not a submit directory")
		_, err := New(runner, "/usr/bin", time.Millisecond).Wait(context.Background(), t.TempDir())
		assert.ErrorContains(t, err, "pegasus-status")
	})

	t.Run("cancelled", func(t *testing.T) {
		runner := testutil.NewFakeRunner().OnStdout("pegasus-status", statusJSON(StateRunning, 10, 0))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		st, err := New(runner, "/usr/bin", time.Hour).Wait(ctx, t.TempDir())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, StateRunning, st.State)
	})

	t.Run("monitord wakes the loop", func(t *testing.T) {
		dir := t.TempDir()
		var calls atomic.Int32
		runner := testutil.NewFakeRunner().On("pegasus-status", func(shell.Command) (shell.Result, error) {
			if calls.Add(1) == 1 {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "monitord.done"), []byte("done\n"), 0o644))
				return shell.Result{Stdout: statusJSON(StateRunning, 99, 0)}, nil
			}
			return shell.Result{Stdout: statusJSON(StateSuccess, 100, 0)}, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		st, err := New(runner, "/usr/bin", time.Hour).Wait(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, StateSuccess, st.State)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("watcher errors are logged", func(t *testing.T) {
		runner := testutil.NewFakeRunner().On("pegasus-status", sequence(
			statusJSON(StateRunning, 50, 0),
			statusJSON(StateSuccess, 100, 0),
		))
		events := make(chan fsnotify.Event)
		errs := make(chan error)
		c := New(runner, "/usr/bin", time.Hour)
		c.watch = func(string) (*dirWatch, error) {
			return &dirWatch{events: events, errors: errs, close: func() error { return nil }}, nil
		}
		go func() {
			errs <- errors.New("fsnotify: queue or buffer overflow")
			events <- fsnotify.Event{Name: "/submit/run0001/jobstate.log", Op: fsnotify.Write}
		}()

		logs := &testutil.SafeBuffer{}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ctx = ctxlog.WithLogger(ctx, slog.New(slog.NewTextHandler(logs, nil)))

		st, err := c.Wait(ctx, "/submit/run0001")
		require.NoError(t, err)
		assert.Equal(t, StateSuccess, st.State)
		assert.Len(t, logs.LinesContaining("level=WARN", "Submit directory watcher error.", "queue or buffer overflow"), 1)
	})
}

func TestReports(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("pegasus-analyzer", func(cmd shell.Command) (shell.Result, error) {
			res := shell.Result{Stdout: "1 job failed: mAdd_ID0000012\n", ExitCode: 1}
			return res, &shell.ExitError{Command: cmd, ExitCode: 1}
		}).
		OnStdout("pegasus-statistics", "Workflow wall time: 10 mins\n")
	c := New(runner, "/usr/bin", time.Second)

	out, err := c.Analyze(context.Background(), "/submit/run0001")
	assert.Error(t, err)
	assert.Equal(t, "1 job failed: mAdd_ID0000012", out)

	out, err = c.Statistics(context.Background(), "/submit/run0001")
	require.NoError(t, err)
	assert.Equal(t, "Workflow wall time: 10 mins", out)
	assert.Equal(t, []string{"-s", "all", "/submit/run0001"}, runner.CallsTo("pegasus-statistics")[0].Args)
}

func TestWriteProperties(t *testing.T) {
	props, err := Properties("/work/replicas.yml", "/work/transformations.yml", map[string]string{
		"pegasus.data.configuration": "sharedfs",
		"pegasus.mode":               "development",
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pegasus.properties")
	require.NoError(t, WriteProperties(path, props))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `# Pegasus properties written by mosaicflow
pegasus.catalog.replica = YAML
pegasus.catalog.replica.file = /work/replicas.yml
pegasus.catalog.transformation = YAML
pegasus.catalog.transformation.file = /work/transformations.yml
pegasus.data.configuration = sharedfs
pegasus.mode = development
pegasus.monitord.encoding = json
`, string(data))
}

func TestWriteProperties_EscapesValues(t *testing.T) {
	// --- Arrange ---
	props := map[string]string{
		"pegasus.gridstart.arguments": `-f C:\tmp`,
		"pegasus.catalog.site.file":   "/work/sites.yml",
		"env.PEGASUS_HOME":            "/opt/pegasus home",
	}
	path := filepath.Join(t.TempDir(), "pegasus.properties")

	// --- Act ---
	err := WriteProperties(path, props)

	// --- Assert ---
	require.NoError(t, err)
	loaded, err := properties.LoadFile(path, properties.UTF8)
	require.NoError(t, err)
	for k, v := range props {
		assert.Equal(t, v, loaded.GetString(k, ""), k)
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pegasus.gridstart.arguments = -f C:\\tmp`)
}
