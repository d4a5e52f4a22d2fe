package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrStorage = errors.New("leaderboard storage failure")
	ErrClosed  = errors.New("leaderboard store closed")
)
