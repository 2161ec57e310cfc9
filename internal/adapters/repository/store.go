// Package repository defines the round-record leaderboard store.
package repository

import (
	"context"

	"github.com/okian/rainstream/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank           int
	UsernameHash   string
	Points         int
	AIScore        float64
	HumanScore     float64
	Collaborations int
	DeviceType     string
}

// Store provides read/write access to persisted round results.
type Store interface {
	// SaveRound records the outcome of one completed round for the
	// player named by rec.UsernameHash.
	SaveRound(ctx context.Context, rec model.RoundRecord) error

	// Rank returns the current rank and entry for a player.
	// Returns ErrNotFound if the player is unknown.
	Rank(ctx context.Context, usernameHash string) (Entry, error)

	// TopN returns the top-N entries ordered by points desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of players tracked in the leaderboard.
	Count(ctx context.Context) int
}
