// Package repository defines the round-record leaderboard store.
package repository

import "errors"

// Store errors.
var (
	// ErrNotFound is returned when a player is not in the leaderboard.
	ErrNotFound = errors.New("player not found")

	// ErrInvalidLimit is returned when a TopN limit is not positive.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrEmptyPlayer is returned when a round record has no username.
	ErrEmptyPlayer = errors.New("username hash must not be empty")
)
