package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/markandre0425/Main-Page-sub000/internal/adapters/repository/migrations"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/scoring"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
	"github.com/markandre0425/Main-Page-sub000/pkg/metrics"
)

// entryRow maps one leaderboard_entries row.
type entryRow struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:le"`

	ID                  int64  `bun:"id,pk,autoincrement"`
	GameKey             string `bun:"game_key,notnull"`
	UserID              *int64 `bun:"user_id"`
	Username            string `bun:"username,notnull"`
	TimeMs              int64  `bun:"time_ms,notnull"`
	ObjectivesCollected int64  `bun:"objectives_collected,notnull"`
	Score               int64  `bun:"score,notnull"`
	CreatedAt           int64  `bun:"created_at,notnull"`
}

func rowFromEntry(e types.Entry) *entryRow {
	return &entryRow{
		GameKey:             e.GameKey,
		UserID:              e.UserID,
		Username:            e.Username,
		TimeMs:              e.TimeMs,
		ObjectivesCollected: e.ObjectivesCollected,
		Score:               e.Score,
		CreatedAt:           e.CreatedAt,
	}
}

func (r *entryRow) entry() types.Entry {
	return types.Entry{
		ID:                  r.ID,
		GameKey:             r.GameKey,
		UserID:              r.UserID,
		Username:            r.Username,
		TimeMs:              r.TimeMs,
		ObjectivesCollected: r.ObjectivesCollected,
		Score:               r.Score,
		CreatedAt:           r.CreatedAt,
	}
}

// PostgresStore keeps entries in the leaderboard_entries table.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
	log logger.Logger
}

// NewPostgresStore connects to dsn, verifies the connection and, unless
// disabled, applies pending migrations.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(o.maxOpenConns)
	sqldb.SetMaxIdleConns(o.maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel((*entryRow)(nil))

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}

	s := &PostgresStore{db: db, now: o.now, log: o.log}

	if o.autoMigrate {
		if err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.log.Info(ctx, "schema up to date")
	}
	return s, nil
}

// Migrate applies every pending migration to db.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("%w: init migrations: %w", ErrStorage, err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrStorage, err)
	}
	return nil
}

// DB exposes the underlying handle for tooling.
func (s *PostgresStore) DB() *bun.DB { return s.db }

// Backend implements Store.
func (s *PostgresStore) Backend() string { return BackendPostgres }

// Append implements Store with a single INSERT ... RETURNING id.
func (s *PostgresStore) Append(ctx context.Context, e types.Entry) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(BackendPostgres, float64(time.Since(start).Microseconds())/1000)
	}()

	e.CreatedAt = s.now().UnixMilli()
	row := rowFromEntry(e)
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		metrics.RecordStoreError(BackendPostgres, "append")
		s.log.Error(ctx, "insert entry failed", logger.String("game_key", e.GameKey), logger.Error(err))
		return types.Entry{}, fmt.Errorf("%w: append: %w", ErrStorage, err)
	}
	return row.entry(), nil
}

// Query implements Store.
func (s *PostgresStore) Query(ctx context.Context, gameKey string, limit int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(BackendPostgres, float64(time.Since(start).Microseconds())/1000)
	}()

	var rows []entryRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("game_key = ?", gameKey).
		OrderExpr(scoring.OrderBySQL)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		metrics.RecordStoreError(BackendPostgres, "query")
		s.log.Error(ctx, "select entries failed", logger.String("game_key", gameKey), logger.Error(err))
		return nil, fmt.Errorf("%w: query: %w", ErrStorage, err)
	}

	out := make([]types.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].entry()
	}
	return out, nil
}

// Stats implements Store.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.NewSelect().
		Model((*entryRow)(nil)).
		ColumnExpr("COUNT(*)").
		ColumnExpr("COUNT(DISTINCT game_key)").
		Scan(ctx, &st.Entries, &st.GameKeys)
	if err != nil {
		metrics.RecordStoreError(BackendPostgres, "stats")
		return Stats{}, fmt.Errorf("%w: stats: %w", ErrStorage, err)
	}
	return st, nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
