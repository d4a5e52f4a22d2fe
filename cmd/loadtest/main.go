package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/markandre0425/Main-Page-sub000/internal/loadtest"
)

// Default configuration constants.
const (
	defaultSessions    = 5000
	defaultPlayers     = 200
	defaultLimit       = 100
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:5000", "Base URL of the service")
		sessions   = flag.Int("sessions", defaultSessions, "Number of sessions to generate and submit")
		games      = flag.String("games", strings.Join(loadtest.DefaultGames, ","), "Comma separated game keys")
		players    = flag.Int("players", defaultPlayers, "Size of the simulated player pool")
		limit      = flag.Int("limit", defaultLimit, "Page size requested when reading boards back")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 0, "Seed for generated data, 0 picks one from the clock")
		outputFile = flag.String("output", "", "Write the generated sessions to this JSON file")
		logFile    = flag.String("log", "", "Also write log output to this file")
		logFormat  = flag.String("log-format", "text", "text or json")
		verbose    = flag.Bool("verbose", false, "Log every verification failure")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	closer, err := loadtest.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	cfg := &loadtest.Config{
		BaseURL:    strings.TrimRight(*baseURL, "/"),
		Sessions:   *sessions,
		Games:      splitGames(*games),
		Players:    *players,
		Limit:      *limit,
		Workers:    *workers,
		Timeout:    *timeout,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	_, runErr := loadtest.Run(ctx, cfg)
	stop()
	cancel()
	_ = closer.Close()

	if runErr != nil {
		os.Stderr.WriteString("Test failed: " + runErr.Error() + "\n")
		os.Exit(1)
	}
}

func splitGames(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
