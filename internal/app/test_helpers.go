package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mosaicflow/internal/hcl_adapter"
	"github.com/vk/mosaicflow/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing with debug
// logging captured in a buffer. Set MOSAICFLOW_TEST_LOGS=true to print the
// captured log when the test ends.
func SetupAppTest(t *testing.T, appConfig *Config, opts ...Option) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	testApp, err := NewApp(logBuffer, appConfig, hcl_adapter.NewLoaderWithEnv(nil), opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("MOSAICFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
