package scoring

import "errors"

// Round state machine errors.
var (
	// ErrRoundRunning is returned when starting a round while one is
	// already in progress.
	ErrRoundRunning = errors.New("round already running")

	// ErrRoundNotRunning is returned when ticking outside a running
	// round.
	ErrRoundNotRunning = errors.New("round not running")
)
