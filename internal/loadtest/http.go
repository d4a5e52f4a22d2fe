package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	runID   string
}

func newHTTPClient(baseURL string, timeout time.Duration, runID string) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		runID:   runID,
	}
}

// do tags every request with the run id so server logs can be correlated.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.runID != "" {
		req.Header.Set(requestIDHeader, c.runID)
	}
	return c.client.Do(req)
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func boardPath(gameKey string) string {
	return "/api/leaderboard/" + url.PathEscape(gameKey)
}

type submitResult int

const (
	resultAccepted submitResult = iota
	resultRejected
	resultThrottled
	resultFailed
)

// submitSessions posts sessions concurrently using a worker pool.
func submitSessions(ctx context.Context, cfg *Config, client *HTTPClient, sessions []Session, stats *Stats) map[string]int {
	logger.Get().Info(ctx, "submitting sessions", logger.Int("sessions", len(sessions)), logger.Int("workers", cfg.Workers))

	var (
		submitted, accepted, rejected, throttled, failed int64
		mu                                               sync.Mutex
		perGame                                          = make(map[string]int)
	)

	sessionChan := make(chan Session, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range sessionChan {
				res := submitSingleSession(ctx, client, s)
				atomic.AddInt64(&submitted, 1)
				switch res {
				case resultAccepted:
					atomic.AddInt64(&accepted, 1)
					mu.Lock()
					perGame[s.GameKey]++
					mu.Unlock()
				case resultRejected:
					atomic.AddInt64(&rejected, 1)
				case resultThrottled:
					atomic.AddInt64(&throttled, 1)
				case resultFailed:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				logger.Get().Info(ctx, "progress",
					logger.Int64("submitted", atomic.LoadInt64(&submitted)),
					logger.Int("total", len(sessions)),
					logger.Int64("accepted", atomic.LoadInt64(&accepted)),
				)
			}
		}
	}()

feed:
	for _, s := range sessions {
		select {
		case <-ctx.Done():
			break feed
		case sessionChan <- s:
		}
	}
	close(sessionChan)
	wg.Wait()
	close(done)

	stats.SessionsSubmitted = int(submitted)
	stats.SessionsAccepted = int(accepted)
	stats.SessionsRejected = int(rejected)
	stats.SessionsThrottled = int(throttled)
	stats.SessionsFailed = int(failed)

	logger.Get().Info(ctx, "session submission completed",
		logger.Int("accepted", stats.SessionsAccepted),
		logger.Int("rejected", stats.SessionsRejected),
		logger.Int("throttled", stats.SessionsThrottled),
		logger.Int("failed", stats.SessionsFailed),
	)
	return perGame
}

func submitSingleSession(ctx context.Context, client *HTTPClient, s Session) submitResult {
	resp, err := client.Post(ctx, boardPath(s.GameKey), s)
	if err != nil {
		return resultFailed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusCreated:
		return resultAccepted
	case resp.StatusCode == http.StatusTooManyRequests:
		return resultThrottled
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return resultRejected
	default:
		return resultFailed
	}
}

// fetchBoard reads one ranked list. limit <= 0 leaves the page size to the server.
func fetchBoard(ctx context.Context, client *HTTPClient, gameKey string, limit int) ([]Entry, error) {
	path := boardPath(gameKey)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := client.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", gameKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", gameKey, resp.StatusCode)
	}
	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", gameKey, err)
	}
	return entries, nil
}
