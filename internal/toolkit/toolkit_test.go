package toolkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mosaicflow/internal/testutil"
)

const okStatus = `[struct stat="OK", count=16]`

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("some progress\n" + `[struct stat="OK", count=16, time=1.5]` + "\n")
	require.NoError(t, err)
	assert.Equal(t, "OK", st.Stat)
	assert.Equal(t, "16", st.Fields["count"])
	assert.Equal(t, "1.5", st.Fields["time"])

	st, err = ParseStatus(`[struct stat="ERROR", msg="Cannot open \"x.fits\", giving up"]`)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", st.Stat)
	assert.Equal(t, `Cannot open "x.fits", giving up`, st.Fields["msg"])

	_, err = ParseStatus("segfault")
	assert.ErrorContains(t, err, "no completion message")

	_, err = ParseStatus(`[struct count=1]`)
	assert.ErrorContains(t, err, "no stat field")
}

func TestPrepare(t *testing.T) {
	runner := testutil.NewFakeRunner()
	for _, tool := range []string{"mHdr", "mArchiveList", "mDAGTbls", "mOverlaps"} {
		runner.OnStdout(tool, okStatus)
	}

	tk := New(runner, "/opt/Montage/bin")
	err := tk.Prepare(context.Background(), "/work/data", Request{
		Location: "56.5 23.75",
		Size:     0.2,
		Survey:   "2MASS",
		Band:     "J",
	})
	require.NoError(t, err)

	hdrs := runner.CallsTo("mHdr")
	require.Len(t, hdrs, 2)
	var hdrArgs [][]string
	for _, c := range hdrs {
		assert.Equal(t, "/opt/Montage/bin/mHdr", c.Path)
		assert.Equal(t, "/work/data", c.Dir)
		hdrArgs = append(hdrArgs, c.Args)
	}
	assert.ElementsMatch(t, [][]string{
		{"56.5 23.75", "0.2", "region.hdr"},
		{"56.5 23.75", "0.3", "region-oversized.hdr"},
	}, hdrArgs)

	calls := runner.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, []string{"2MASS", "J", "56.5 23.75", "0.3", "0.3", "images.tbl"}, calls[2].Args)
	assert.Equal(t, []string{"images.tbl", "region-oversized.hdr", "rimages.tbl", "pimages.tbl", "cimages.tbl"}, calls[3].Args)
	assert.Equal(t, []string{"rimages.tbl", "diffs.tbl"}, calls[4].Args)
}

func TestPrepare_ToolReportsError(t *testing.T) {
	runner := testutil.NewFakeRunner().
		OnStdout("mHdr", okStatus).
		OnStdout("mArchiveList", `[struct stat="ERROR", msg="No archive images found"]`)

	err := New(runner, "/bin").Prepare(context.Background(), t.TempDir(), Request{Location: "M17", Size: 0.5, Survey: "2MASS", Band: "J"})
	require.ErrorIs(t, err, ErrToolFailed)
	assert.ErrorContains(t, err, "failed to list archive images")
	assert.ErrorContains(t, err, "No archive images found")
	assert.Empty(t, runner.CallsTo("mDAGTbls"))
}

func TestPrepare_HeaderFailureStopsEarly(t *testing.T) {
	runner := testutil.NewFakeRunner().OnExit("mHdr", 1, "bad location")

	err := New(runner, "/bin").Prepare(context.Background(), t.TempDir(), Request{Location: "nowhere", Size: 0.5, Survey: "2MASS", Band: "J"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to build region headers")
	assert.ErrorContains(t, err, "bad location")
	assert.Empty(t, runner.CallsTo("mArchiveList"))
}

func TestRun_MissingCompletionMessage(t *testing.T) {
	runner := testutil.NewFakeRunner().OnStdout("mOverlaps", "")
	_, err := New(runner, "/bin").Run(context.Background(), ".", "mOverlaps", "a", "b")
	assert.ErrorContains(t, err, "mOverlaps: no completion message")
}
