// Package scoring derives entry scores and defines the leaderboard order.
//
// Score weights objectives heavily while rank is decided by time first, so
// a higher score does not imply a better rank.
package scoring

import (
	"cmp"
	"slices"

	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
)

const (
	objectiveWeight = 1000
	timeUnitMs      = 100
)

// Score computes objectivesCollected*1000 - floor(timeMs/100).
func Score(objectivesCollected, timeMs int64) int64 {
	return objectivesCollected*objectiveWeight - floorDiv(timeMs, timeUnitMs)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Key holds the fields that decide an entry's position.
type Key struct {
	ID                  int64
	TimeMs              int64
	ObjectivesCollected int64
	CreatedAt           int64
}

// KeyOf extracts the ranking key of e.
func KeyOf(e types.Entry) Key {
	return Key{
		ID:                  e.ID,
		TimeMs:              e.TimeMs,
		ObjectivesCollected: e.ObjectivesCollected,
		CreatedAt:           e.CreatedAt,
	}
}

// Compare orders by timeMs asc, objectivesCollected desc, createdAt asc, id asc.
// A negative result means a ranks above b.
func Compare(a, b Key) int {
	if c := cmp.Compare(a.TimeMs, b.TimeMs); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ObjectivesCollected, a.ObjectivesCollected); c != 0 {
		return c
	}
	if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// CompareEntries is Compare lifted to entries.
func CompareEntries(a, b types.Entry) int {
	return Compare(KeyOf(a), KeyOf(b))
}

// Sort ranks entries in place, best first.
func Sort(entries []types.Entry) {
	slices.SortFunc(entries, CompareEntries)
}

// IsRanked reports whether entries are in leaderboard order.
func IsRanked(entries []types.Entry) bool {
	return slices.IsSortedFunc(entries, CompareEntries)
}

// OrderBySQL is the same order expressed as a SQL ORDER BY list.
const OrderBySQL = "time_ms ASC, objectives_collected DESC, created_at ASC, id ASC"
