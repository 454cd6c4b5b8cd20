package msig

import (
	"fmt"

	"github.com/tessara-io/lockstep"
)

// Authority is the proof that an account authorized a privileged change of
// its own configuration. The only way to obtain an authority is to pass
// ValidateForExecution for a transaction that reached the approval quorum.
//
// An authority is bound to a single account and a single transaction
// sequence. It is accepted only while that transaction is the next one to
// execute and still pending. As soon as the transaction is finalized the
// authority is worthless, so holding on to one grants no power beyond the
// execution window it was minted for.
type Authority struct {
	account  lockstep.Address
	executor lockstep.Address
	sequence Seq
}

// Account returns the address of the account this authority can act upon.
func (a Authority) Account() lockstep.Address {
	return a.account.Clone()
}

// Executor returns the owner that validated the transaction for execution.
func (a Authority) Executor() lockstep.Address {
	return a.executor.Clone()
}

// Sequence returns the transaction sequence this authority is bound to.
func (a Authority) Sequence() Seq {
	return a.sequence
}

func (a Authority) String() string {
	return fmt.Sprintf("authority(%s, %d)", a.account, a.sequence)
}
