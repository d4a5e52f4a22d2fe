// Package loadtest drives a running leaderboard service with synthetic play
// sessions and checks the boards it serves back.
package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Sessions   int           // Number of play sessions to submit
	Games      []string      // Game keys to spread sessions over
	Players    int           // Size of the player pool
	Limit      int           // Page size requested when reading boards back
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Seed for the fake data generator; 0 picks one from the clock
	OutputFile string        // Optional JSON dump of the generated sessions
	Verbose    bool          // Log every verification failure
}

// Session is one play session as posted to the service.
type Session struct {
	GameKey             string `json:"-"`
	Username            string `json:"username"`
	UserID              *int64 `json:"userId,omitempty"`
	TimeMs              int64  `json:"timeMs"`
	ObjectivesCollected int64  `json:"objectivesCollected"`
}

// Entry mirrors the service's entry JSON.
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

// Stats holds run statistics.
type Stats struct {
	RunID             string
	SessionsGenerated int
	SessionsSubmitted int
	SessionsAccepted  int
	SessionsRejected  int
	SessionsThrottled int
	SessionsFailed    int
	BoardsChecked     int
	EntriesChecked    int
	Violations        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
