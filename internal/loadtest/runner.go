package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

// Run executes the complete load test.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if len(cfg.Games) == 0 {
		cfg.Games = DefaultGames
	}
	if cfg.Players <= 0 {
		cfg.Players = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	stats := &Stats{StartTime: time.Now(), RunID: uuid.NewString()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout, stats.RunID)

	logger.Get().Info(ctx, "starting leaderboard load test",
		logger.String("runId", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("games", len(cfg.Games)),
		logger.Int("workers", cfg.Workers),
		logger.Int("limit", cfg.Limit),
		logger.String("timeout", cfg.Timeout.String()),
	)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	sessions := generateSessions(ctx, cfg, stats)

	if err := saveSessionsToFile(ctx, cfg, sessions); err != nil {
		logger.Get().Warn(ctx, "failed to save sessions to file", logger.Error(err))
	}

	accepted := submitSessions(ctx, cfg, client, sessions, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("session submission interrupted: %w", err)
	}

	verifyErr := verifyBoards(ctx, cfg, client, accepted, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

func saveSessionsToFile(ctx context.Context, cfg *Config, sessions []Session) error {
	if cfg.OutputFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), directoryPermission); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	type record struct {
		GameKey string `json:"gameKey"`
		Session
	}
	out := make([]record, len(sessions))
	for i, s := range sessions {
		out[i] = record{GameKey: s.GameKey, Session: s}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := os.WriteFile(cfg.OutputFile, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	logger.Get().Info(ctx, "sessions saved", logger.String("file", cfg.OutputFile))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var throughput float64
	if secs := stats.Duration.Seconds(); secs > 0 {
		throughput = float64(stats.SessionsSubmitted) / secs
	}
	var successRate float64
	if stats.SessionsSubmitted > 0 {
		successRate = float64(stats.SessionsAccepted) / float64(stats.SessionsSubmitted) * PercentageMultiplier
	}

	logger.Get().Info(ctx, "load test finished",
		logger.Int("generated", stats.SessionsGenerated),
		logger.Int("submitted", stats.SessionsSubmitted),
		logger.Int("accepted", stats.SessionsAccepted),
		logger.Int("rejected", stats.SessionsRejected),
		logger.Int("throttled", stats.SessionsThrottled),
		logger.Int("failed", stats.SessionsFailed),
		logger.Int("boards", stats.BoardsChecked),
		logger.Int("entries", stats.EntriesChecked),
		logger.Int("violations", stats.Violations),
		logger.Float64("successRate", successRate),
		logger.Float64("sessionsPerSec", throughput),
		logger.String("duration", stats.Duration.String()),
	)
}
