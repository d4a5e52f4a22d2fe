package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/markandre0425/Main-Page-sub000/internal/domain/scoring"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
	"github.com/markandre0425/Main-Page-sub000/pkg/metrics"
)

// MemoryStore keeps entries in process memory. Contents are lost on restart.
//
// A single mutex guards the partitions and the id counter so ids are handed
// out in the same order entries become visible.
type MemoryStore struct {
	mu     sync.RWMutex
	byGame map[string][]types.Entry
	lastID int64
	total  int
	closed bool

	now func() time.Time
	log logger.Logger

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

// NewMemoryStore constructs an empty in-memory store and starts its gauge updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &MemoryStore{
		byGame:                make(map[string][]types.Entry),
		now:                   o.now,
		log:                   o.log,
		metricsUpdateInterval: o.metricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return BackendMemory }

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, e types.Entry) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(BackendMemory, float64(time.Since(start).Microseconds())/1000)
	}()

	if err := ctx.Err(); err != nil {
		return types.Entry{}, fmt.Errorf("%w: append: %w", ErrStorage, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.RecordStoreError(BackendMemory, "append")
		return types.Entry{}, ErrClosed
	}
	s.lastID++
	e.ID = s.lastID
	e.CreatedAt = s.now().UnixMilli()
	e = e.Clone()
	s.byGame[e.GameKey] = append(s.byGame[e.GameKey], e)
	s.total++
	s.mu.Unlock()

	s.log.Debug(ctx, "entry stored",
		logger.String("game_key", e.GameKey),
		logger.Int64("id", e.ID),
	)
	return e.Clone(), nil
}

// Query implements Store. Returned entries share no memory with the store.
func (s *MemoryStore) Query(ctx context.Context, gameKey string, limit int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(BackendMemory, float64(time.Since(start).Microseconds())/1000)
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrStorage, err)
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		metrics.RecordStoreError(BackendMemory, "query")
		return nil, ErrClosed
	}
	out := slices.Clone(s.byGame[gameKey])
	s.mu.RUnlock()

	if out == nil {
		return []types.Entry{}, nil
	}
	scoring.Sort(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Entries: s.total, GameKeys: len(s.byGame)}, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close stops the gauge updater. Later calls to Append and Query fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				st, _ := s.Stats(ctx)
				metrics.UpdateStoreTotals(st.Entries, st.GameKeys)
			}
		}
	}()
}
