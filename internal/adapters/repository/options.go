// Package repository defines the round-record leaderboard store.
package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithKeepBest makes SaveRound keep the player's highest-scoring round
// instead of always storing the latest one.
func WithKeepBest() Option {
	return func(s *TreapStore) {
		s.keepBest = true
	}
}
