package msig

import (
	"github.com/tessara-io/lockstep/errors"
)

// x/msig reserves 1200 ~ 1209.
var (
	// ErrNotOwner is returned when an operation restricted to account
	// owners is requested by anyone else.
	ErrNotOwner = errors.Register(1200, "not an owner")

	// ErrSequence is returned when a transaction is addressed outside of
	// the strict execution order.
	ErrSequence = errors.Register(1201, "invalid sequence")

	// ErrQuorum is returned when a transaction does not hold enough votes
	// from the current owners for the requested resolution.
	ErrQuorum = errors.Register(1202, "insufficient votes")

	// ErrPayloadMismatch is returned when the payload provided for
	// execution does not match what the owners voted on.
	ErrPayloadMismatch = errors.Register(1203, "payload mismatch")

	// ErrQueueFull is returned when an account has reached its limit of
	// unresolved transactions.
	ErrQueueFull = errors.Register(1204, "too many pending transactions")

	// ErrAuthority is returned when a privileged mutation is requested
	// with a capability that was never minted or that went stale when its
	// transaction was finalized.
	ErrAuthority = errors.Register(1205, "invalid authority")
)
