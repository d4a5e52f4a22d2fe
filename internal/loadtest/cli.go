package loadtest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging configures logging to the console and, when logFile is set,
// to that file as well.
func SetupLogging(logFile, format string) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if err := logger.InitWithOptions(logger.Options{Format: format, Output: out}); err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Fire-safety leaderboard load test
=================================

Submits random play sessions to a running leaderboard service and checks
that every board it serves back is scored and ordered correctly.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -sessions int
        Number of sessions to generate and submit (default 5000)
  -games string
        Comma separated game keys (default "escape-plan,hazard-hunt,smoke-maze,safety-crossword")
  -players int
        Size of the simulated player pool (default 200)
  -limit int
        Page size requested when reading boards back (default 100)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Seed for generated data, 0 picks one from the clock
  -output string
        Write the generated sessions to this JSON file
  -log string
        Also write log output to this file
  -log-format string
        text or json (default "text")
  -verbose
        Log every verification failure
  -help
        Show this help message

Examples:
  # Point at a local service
  go run ./cmd/loadtest -url http://localhost:5000

  # Reproduce an earlier run
  go run ./cmd/loadtest -sessions 20000 -seed 42 -verbose
`)
}
