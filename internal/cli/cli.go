package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/vk/mosaicflow/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("mosaicflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
mosaicflow - builds a Montage mosaic workflow and runs it with Pegasus.

Usage:
  mosaicflow [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a single .hcl run description or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the run description file or directory.")
	cFlag := flagSet.String("c", "", "Path to the run description file or directory (shorthand).")
	workDirFlag := flagSet.String("work-dir", ".", "Directory for catalogs, workflow, properties and submit directories.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	skipPrepareFlag := flagSet.Bool("skip-prepare", false, "Use existing tables instead of running the Montage preparation tools.")
	skipSubmitFlag := flagSet.Bool("skip-submit", false, "Write the workflow files without calling the planner.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	// -config wins over -c, which wins over the positional argument.
	var path string
	for _, p := range []string{*configFlag, *cFlag, flagSet.Arg(0)} {
		if p != "" {
			path = p
			break
		}
	}
	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, logLevel) {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:  path,
		WorkDir:     *workDirFlag,
		StatusPort:  *statusPortFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		SkipPrepare: *skipPrepareFlag,
		SkipSubmit:  *skipSubmitFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
