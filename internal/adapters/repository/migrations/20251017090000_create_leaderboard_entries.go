package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS leaderboard_entries (
					id                    BIGSERIAL PRIMARY KEY,
					game_key              VARCHAR(64) NOT NULL,
					user_id               BIGINT,
					username              VARCHAR(256) NOT NULL,
					time_ms               BIGINT NOT NULL,
					objectives_collected  BIGINT NOT NULL,
					score                 BIGINT NOT NULL,
					created_at            BIGINT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_rank
					ON leaderboard_entries (game_key, time_ms, objectives_collected DESC, created_at, id);
				CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_user
					ON leaderboard_entries (game_key, user_id);
			`); err != nil {
				return fmt.Errorf("failed to create leaderboard_entries table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS leaderboard_entries;`); err != nil {
				return fmt.Errorf("failed to drop leaderboard_entries: %w", err)
			}
			return nil
		})
	})
}
