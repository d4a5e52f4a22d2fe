package loadtest

import "time"

// requestIDHeader matches the header the service echoes back.
const requestIDHeader = "X-Request-ID"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Session generation ranges.
const (
	maxSessionTimeMs  = 180_000
	minSessionTimeMs  = 5_000
	maxObjectives     = 10
	registeredPercent = 40
	maxUserID         = 1_000_000
)

// Runner configuration constants.
const (
	ProgressInterval     = time.Second
	PercentageMultiplier = 100
	directoryPermission  = 0750
)

// DefaultGames are the game keys used when none are configured.
var DefaultGames = []string{"escape-plan", "hazard-hunt", "smoke-maze", "safety-crossword"}
