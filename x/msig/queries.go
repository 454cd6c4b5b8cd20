package msig

import (
	"sort"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/store"
)

// GetAccount returns a copy of the account state.
func (e *Engine) GetAccount(address lockstep.Address) (*Account, error) {
	return e.loadAccount(address)
}

// GetOwners returns the current owner set of the account.
func (e *Engine) GetOwners(address lockstep.Address) ([]lockstep.Address, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return nil, err
	}
	return acct.Owners, nil
}

// GetThreshold returns the current approval threshold of the account.
func (e *Engine) GetThreshold(address lockstep.Address) (uint32, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return 0, err
	}
	return acct.Threshold, nil
}

// IsOwner returns whether the given address is currently an owner of the
// account.
func (e *Engine) IsOwner(address, owner lockstep.Address) (bool, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return false, err
	}
	return acct.IsOwner(owner), nil
}

// LastExecuted returns the sequence of the most recently resolved
// transaction. Zero means no transaction was resolved yet.
func (e *Engine) LastExecuted(address lockstep.Address) (Seq, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return 0, err
	}
	return acct.LastExecuted, nil
}

// NextSequence returns the sequence that the next created transaction will
// receive.
func (e *Engine) NextSequence(address lockstep.Address) (Seq, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return 0, err
	}
	return acct.NextSeq, nil
}

// GetTransaction returns a copy of a pending transaction. Asking for a
// resolved or never created sequence returns ErrNotFound.
func (e *Engine) GetTransaction(address lockstep.Address, sequence Seq) (*Transaction, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return nil, err
	}
	tx, ok := acct.Pending[sequence]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "transaction %d", sequence)
	}
	return tx, nil
}

// GetPendingTransactions returns all pending transactions of the account in
// execution order.
func (e *Engine) GetPendingTransactions(address lockstep.Address) ([]*Transaction, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return nil, err
	}
	txs := make([]*Transaction, 0, len(acct.Pending))
	for _, tx := range acct.Pending {
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Sequence < txs[j].Sequence })
	return txs, nil
}

// VoteTally returns how many current owners approve and how many reject
// the given pending transaction. Votes of past owners are not counted.
func (e *Engine) VoteTally(address lockstep.Address, sequence Seq) (Tally, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return Tally{}, err
	}
	tx, ok := acct.Pending[sequence]
	if !ok {
		return Tally{}, errors.Wrapf(errors.ErrNotFound, "transaction %d", sequence)
	}
	return acct.tally(tx), nil
}

// VoteStatus returns the recorded vote of a single owner on a pending
// transaction. The second return is false when the owner did not vote. The
// vote of a past owner is still reported; whether it counts is a quorum
// question, not a ledger one.
func (e *Engine) VoteStatus(address, owner lockstep.Address, sequence Seq) (approve bool, ok bool, err error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return false, false, err
	}
	tx, found := acct.Pending[sequence]
	if !found {
		return false, false, errors.Wrapf(errors.ErrNotFound, "transaction %d", sequence)
	}
	approve, ok = tx.Votes[owner.String()]
	return approve, ok, nil
}

// CanBeExecuted returns whether the given transaction would pass
// ValidateForExecution right now, payload matching aside. A resolved or
// unknown sequence is not executable, only a missing account is an error.
func (e *Engine) CanBeExecuted(address lockstep.Address, sequence Seq) (bool, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return false, err
	}
	tx, ok := acct.Pending[sequence]
	if !ok {
		return false, nil
	}
	return acct.executable(tx), nil
}

// CanBeRejected returns whether the given transaction would pass
// ExecuteRejected right now. A resolved or unknown sequence is not
// rejectable, only a missing account is an error.
func (e *Engine) CanBeRejected(address lockstep.Address, sequence Seq) (bool, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return false, err
	}
	tx, ok := acct.Pending[sequence]
	if !ok {
		return false, nil
	}
	return acct.rejectable(tx), nil
}

// GetNextPayload returns the payload of the next transaction in line. For a
// transaction that stores only a digest the provided bytes are returned
// instead, without checking them against the digest. The check belongs to
// ValidateForExecution.
func (e *Engine) GetNextPayload(address lockstep.Address, provided []byte) ([]byte, error) {
	acct, err := e.loadAccount(address)
	if err != nil {
		return nil, err
	}
	tx, ok := acct.Pending[acct.LastExecuted+1]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no transaction at the execution cursor %d", acct.LastExecuted+1)
	}
	if tx.Payload != nil {
		return tx.Payload, nil
	}
	return append([]byte(nil), provided...), nil
}

// IterateAccounts calls fn with a copy of every account, ordered by
// address. Returning false from fn stops the iteration.
func (e *Engine) IterateAccounts(fn func(*Account) bool) {
	e.accounts.Iterate(nil, nil, func(key []byte, rec store.Record) bool {
		acct, ok := rec.(*Account)
		if !ok {
			return false
		}
		return fn(acct)
	})
}
