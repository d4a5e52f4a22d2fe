package loadtest

import (
	"context"
	"fmt"

	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

// expectedScore is the published scoring rule, restated here so the tool
// checks the server instead of trusting shared code.
func expectedScore(objectives, timeMs int64) int64 {
	q := timeMs / 100
	if timeMs%100 != 0 && timeMs < 0 {
		q--
	}
	return objectives*1000 - q
}

// ranksBefore reports whether a may appear before b on a board.
func ranksBefore(a, b Entry) bool {
	if a.TimeMs != b.TimeMs {
		return a.TimeMs < b.TimeMs
	}
	if a.ObjectivesCollected != b.ObjectivesCollected {
		return a.ObjectivesCollected > b.ObjectivesCollected
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// verifyBoard checks one board and returns a description of every violation.
// accepted is the number of sessions this run stored for the game; limit is
// the page size the server was expected to apply.
func verifyBoard(gameKey string, entries []Entry, limit, accepted int) []string {
	var problems []string

	if limit > 0 && len(entries) > limit {
		problems = append(problems, fmt.Sprintf("%s: %d entries exceed limit %d", gameKey, len(entries), limit))
	}
	want := accepted
	if limit > 0 && want > limit {
		want = limit
	}
	if len(entries) < want {
		problems = append(problems, fmt.Sprintf("%s: got %d entries, want at least %d", gameKey, len(entries), want))
	}

	seen := make(map[int64]struct{}, len(entries))
	for i, e := range entries {
		if e.GameKey != gameKey {
			problems = append(problems, fmt.Sprintf("%s: entry %d belongs to %q", gameKey, e.ID, e.GameKey))
		}
		if s := expectedScore(e.ObjectivesCollected, e.TimeMs); e.Score != s {
			problems = append(problems, fmt.Sprintf("%s: entry %d has score %d, want %d", gameKey, e.ID, e.Score, s))
		}
		if _, dup := seen[e.ID]; dup {
			problems = append(problems, fmt.Sprintf("%s: entry %d listed twice", gameKey, e.ID))
		}
		seen[e.ID] = struct{}{}
		if i > 0 && !ranksBefore(entries[i-1], e) {
			problems = append(problems, fmt.Sprintf("%s: entries %d and %d out of order at position %d",
				gameKey, entries[i-1].ID, e.ID, i))
		}
	}
	return problems
}

// verifyBoards fetches every game's board and checks it.
func verifyBoards(ctx context.Context, cfg *Config, client *HTTPClient, accepted map[string]int, stats *Stats) error {
	log := logger.Get()
	var total int

	for _, game := range cfg.Games {
		entries, err := fetchBoard(ctx, client, game, cfg.Limit)
		if err != nil {
			return err
		}
		stats.BoardsChecked++
		stats.EntriesChecked += len(entries)

		problems := verifyBoard(game, entries, cfg.Limit, accepted[game])
		total += len(problems)
		if cfg.Verbose {
			for _, p := range problems {
				log.Warn(ctx, "verification failed", logger.String("problem", p))
			}
		}
		log.Info(ctx, "board verified",
			logger.String("gameKey", game),
			logger.Int("entries", len(entries)),
			logger.Int("violations", len(problems)),
		)
	}

	stats.Violations = total
	if total > 0 {
		return fmt.Errorf("%d ranking violations found", total)
	}
	return nil
}
