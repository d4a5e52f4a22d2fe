// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/markandre0425/Main-Page-sub000/internal/adapters/repository"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/model"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/scoring"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
	"github.com/markandre0425/Main-Page-sub000/pkg/metrics"
)

// Default leaderboard page sizes.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// DefaultStatsTimeout bounds the store call made by GetStats.
const DefaultStatsTimeout = 2 * time.Second

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = errors.New("leaderboard service not started")

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	store        repository.Store
	databaseURL  string
	storeOptions []repository.Option

	defaultLimit int
	maxLimit     int
	statsTimeout time.Duration

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a ready store; Start will not open another one.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithDatabaseURL selects the postgres backend at Start. Empty keeps the in-memory store.
func WithDatabaseURL(dsn string) Option {
	return func(s *Service) {
		s.databaseURL = dsn
	}
}

// WithStoreOptions passes options through to repository.Open.
func WithStoreOptions(opts ...repository.Option) Option {
	return func(s *Service) {
		s.storeOptions = append(s.storeOptions, opts...)
	}
}

// WithDefaultLimit sets the page size used when a query gives no positive limit.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithMaxLimit caps the page size a query may ask for.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithStatsTimeout bounds how long GetStats waits on the store.
func WithStatsTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsTimeout = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		statsTimeout: DefaultStatsTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Start opens the store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	if s.store == nil {
		opts := append([]repository.Option{repository.WithLogger(s.logger.Named("repository"))}, s.storeOptions...)
		store, err := repository.Open(ctx, s.databaseURL, opts...)
		if err != nil {
			s.logger.Error(ctx, "failed to open leaderboard store", logger.Error(err))
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("backend", s.store.Backend()),
		logger.Int("defaultLimit", s.defaultLimit),
		logger.Int("maxLimit", s.maxLimit),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping leaderboard service...")
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
		s.store = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

func (s *Service) currentStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Submit validates a play session, derives its score and stores a new entry.
// Every accepted call creates a new entry.
func (s *Service) Submit(ctx context.Context, gameKey string, sub model.Submission) (types.Entry, error) {
	if err := model.ValidateGameKey(gameKey); err != nil {
		metrics.RecordSubmissionFailed("validation")
		return types.Entry{}, err
	}
	if err := sub.Validate(); err != nil {
		metrics.RecordSubmissionFailed("validation")
		return types.Entry{}, err
	}

	store, err := s.currentStore()
	if err != nil {
		return types.Entry{}, err
	}

	entry := types.Entry{
		GameKey:             gameKey,
		UserID:              sub.UserID,
		Username:            sub.Username,
		TimeMs:              *sub.TimeMs,
		ObjectivesCollected: *sub.ObjectivesCollected,
		Score:               scoring.Score(*sub.ObjectivesCollected, *sub.TimeMs),
	}

	stored, err := store.Append(ctx, entry)
	if err != nil {
		metrics.RecordSubmissionFailed("storage")
		s.logger.Error(ctx, "failed to store entry",
			logger.String("game_key", gameKey),
			logger.Error(err),
		)
		return types.Entry{}, err
	}

	metrics.RecordSubmission(gameKey, stored.Score)
	s.logger.Debug(ctx, "entry accepted",
		logger.String("game_key", gameKey),
		logger.Int64("id", stored.ID),
		logger.Int64("score", stored.Score),
	)
	return stored, nil
}

// EffectiveLimit maps a requested page size onto [1, max], using the default for <= 0.
func (s *Service) EffectiveLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Leaderboard returns the top entries for gameKey, best first.
func (s *Service) Leaderboard(ctx context.Context, gameKey string, limit int) ([]types.Entry, error) {
	if err := model.ValidateGameKey(gameKey); err != nil {
		return nil, err
	}
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}

	metrics.RecordQuery(gameKey)
	return store.Query(ctx, gameKey, s.EffectiveLimit(limit))
}

// Personal finds a player's best entry on gameKey and its rank in the full list.
// Registered players match by user id; guests match by exact username among
// entries without a user id.
func (s *Service) Personal(ctx context.Context, gameKey string, p model.Player) (types.PersonalStats, error) {
	if err := model.ValidateGameKey(gameKey); err != nil {
		return types.PersonalStats{}, err
	}
	if err := p.Validate(); err != nil {
		return types.PersonalStats{}, err
	}
	store, err := s.currentStore()
	if err != nil {
		return types.PersonalStats{}, err
	}

	all, err := store.Query(ctx, gameKey, 0)
	if err != nil {
		return types.PersonalStats{}, err
	}

	stats := types.PersonalStats{GameKey: gameKey, TotalEntries: len(all)}
	for i, e := range all {
		if !matches(e, p) {
			continue
		}
		if stats.Submissions == 0 {
			stats.Best = e
			stats.Rank = i + 1
		}
		stats.Submissions++
	}
	if stats.Submissions == 0 {
		return types.PersonalStats{}, model.ErrPlayerNotFound
	}
	return stats, nil
}

func matches(e types.Entry, p model.Player) bool {
	if p.UserID != nil {
		return e.UserID != nil && *e.UserID == *p.UserID
	}
	return e.IsGuest() && e.Username == p.Username
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.currentStore()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// Backend names the active store, or "" before Start.
func (s *Service) Backend() string {
	store, err := s.currentStore()
	if err != nil {
		return ""
	}
	return store.Backend()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	stats := map[string]interface{}{
		"started":      s.started,
		"defaultLimit": s.defaultLimit,
		"maxLimit":     s.maxLimit,
	}
	var store repository.Store
	if s.started {
		store = s.store
	}
	timeout := s.statsTimeout
	s.mu.RUnlock()

	// Stats runs without s.mu held.
	if store != nil {
		stats["backend"] = store.Backend()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		st, err := store.Stats(ctx)
		if err != nil {
			stats["storeError"] = err.Error()
			return stats
		}
		stats["totalEntries"] = st.Entries
		stats["gameKeys"] = st.GameKeys
		metrics.UpdateStoreTotals(st.Entries, st.GameKeys)
	}

	return stats
}
