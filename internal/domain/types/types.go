// Package types contains common types used across the application
package types

// Entry is one stored leaderboard submission. Entries are immutable once
// appended; ID and CreatedAt are assigned by the store.
type Entry struct {
	ID                  int64  `json:"id"`
	GameKey             string `json:"gameKey"`
	UserID              *int64 `json:"userId"`
	Username            string `json:"username"`
	TimeMs              int64  `json:"timeMs"`
	ObjectivesCollected int64  `json:"objectivesCollected"`
	Score               int64  `json:"score"`
	CreatedAt           int64  `json:"createdAt"`
}

// IsGuest reports whether the entry was submitted without a user id.
func (e Entry) IsGuest() bool {
	return e.UserID == nil
}

// Clone returns a copy of e that shares no memory with it.
func (e Entry) Clone() Entry {
	if e.UserID != nil {
		uid := *e.UserID
		e.UserID = &uid
	}
	return e
}

// PersonalStats summarizes one player's standing on a single board.
type PersonalStats struct {
	GameKey      string `json:"gameKey"`
	Best         Entry  `json:"best"`
	Rank         int    `json:"rank"`
	TotalEntries int    `json:"totalEntries"`
	Submissions  int    `json:"submissions"`
}
