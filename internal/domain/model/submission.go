// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input bounds.
const (
	MaxGameKeyLength  = 64
	MaxUsernameLength = 64

	// MaxTimeMs and MaxObjectives keep objectives*1000 - timeMs/100 far
	// inside int64.
	MaxTimeMs     = 7 * 24 * 60 * 60 * 1000
	MaxObjectives = 1_000_000
)

// Sentinel errors shared by the service and transport layers.
var (
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrInvalidPlayer     = errors.New("invalid player")
	ErrPlayerNotFound    = errors.New("player has no entries")
)

// Submission is a client's score report for one play session.
// Pointer fields distinguish a missing value from zero.
type Submission struct {
	Username            string
	UserID              *int64
	TimeMs              *int64
	ObjectivesCollected *int64
}

// Player identifies whose personal standing to look up.
// UserID wins over Username when both are set.
type Player struct {
	UserID   *int64
	Username string
}

// ValidateGameKey checks that key is 1..64 chars of [A-Za-z0-9_-].
func ValidateGameKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: gameKey is required", ErrInvalidSubmission)
	}
	if len(key) > MaxGameKeyLength {
		return fmt.Errorf("%w: gameKey longer than %d characters", ErrInvalidSubmission, MaxGameKeyLength)
	}
	for _, r := range key {
		if !isKeyRune(r) {
			return fmt.Errorf("%w: gameKey contains %q", ErrInvalidSubmission, r)
		}
	}
	return nil
}

func isKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// Validate trims Username in place and checks every field.
func (s *Submission) Validate() error {
	s.Username = strings.TrimSpace(s.Username)
	switch {
	case s.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidSubmission)
	case utf8.RuneCountInString(s.Username) > MaxUsernameLength:
		return fmt.Errorf("%w: username longer than %d characters", ErrInvalidSubmission, MaxUsernameLength)
	case s.UserID != nil && *s.UserID <= 0:
		return fmt.Errorf("%w: userId must be positive", ErrInvalidSubmission)
	case s.TimeMs == nil:
		return fmt.Errorf("%w: timeMs is required", ErrInvalidSubmission)
	case *s.TimeMs < 0:
		return fmt.Errorf("%w: timeMs must not be negative", ErrInvalidSubmission)
	case *s.TimeMs > MaxTimeMs:
		return fmt.Errorf("%w: timeMs must not exceed %d", ErrInvalidSubmission, MaxTimeMs)
	case s.ObjectivesCollected == nil:
		return fmt.Errorf("%w: objectivesCollected is required", ErrInvalidSubmission)
	case *s.ObjectivesCollected < 0:
		return fmt.Errorf("%w: objectivesCollected must not be negative", ErrInvalidSubmission)
	case *s.ObjectivesCollected > MaxObjectives:
		return fmt.Errorf("%w: objectivesCollected must not exceed %d", ErrInvalidSubmission, MaxObjectives)
	}
	return nil
}

// Validate checks that the player carries some identity.
func (p *Player) Validate() error {
	p.Username = strings.TrimSpace(p.Username)
	if p.UserID == nil && p.Username == "" {
		return fmt.Errorf("%w: userId or username is required", ErrInvalidPlayer)
	}
	if p.UserID != nil && *p.UserID <= 0 {
		return fmt.Errorf("%w: userId must be positive", ErrInvalidPlayer)
	}
	return nil
}
