package loadtest

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

type player struct {
	username string
	userID   *int64
}

// generator builds reproducible sessions from a seeded faker.
type generator struct {
	faker *gofakeit.Faker
	seed  uint64
}

func newGenerator(seed uint64) *generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &generator{faker: gofakeit.New(seed), seed: seed}
}

// players returns a pool where some players are registered and the rest are guests.
func (g *generator) players(n int) []player {
	out := make([]player, n)
	for i := range out {
		p := player{username: g.faker.Username()}
		if g.faker.Number(1, PercentageMultiplier) <= registeredPercent {
			id := int64(g.faker.Number(1, maxUserID))
			p.userID = &id
		}
		out[i] = p
	}
	return out
}

func (g *generator) session(gameKey string, p player) Session {
	s := Session{
		GameKey:             gameKey,
		Username:            p.username,
		TimeMs:              int64(g.faker.Number(minSessionTimeMs, maxSessionTimeMs)),
		ObjectivesCollected: int64(g.faker.Number(0, maxObjectives)),
	}
	if p.userID != nil {
		id := *p.userID
		s.UserID = &id
	}
	return s
}

// generateSessions spreads cfg.Sessions over the configured games and player pool.
func generateSessions(ctx context.Context, cfg *Config, stats *Stats) []Session {
	g := newGenerator(cfg.Seed)
	logger.Get().Info(ctx, "generating sessions",
		logger.Int("sessions", cfg.Sessions),
		logger.Int("players", cfg.Players),
		logger.Any("seed", g.seed),
	)

	pool := g.players(cfg.Players)
	out := make([]Session, cfg.Sessions)
	for i := range out {
		game := cfg.Games[g.faker.Number(0, len(cfg.Games)-1)]
		out[i] = g.session(game, pool[g.faker.Number(0, len(pool)-1)])
	}

	stats.SessionsGenerated = len(out)
	return out
}
