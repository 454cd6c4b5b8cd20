package msig

import (
	"context"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
)

// CreateTransaction appends a new transaction with a full payload to the
// account queue and returns a copy of the stored entry. The creator counts
// as the first approval.
func (e *Engine) CreateTransaction(ctx context.Context, msg *CreateTransactionMsg) (*Transaction, error) {
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	payload := append([]byte(nil), msg.Payload...)
	return e.createTransaction(ctx, msg.Account, msg.Creator, payload, HashPayload(payload))
}

// CreateTransactionWithHash appends a new transaction that stores only the
// sha3-256 digest of its payload. The payload itself must be provided again
// at execution time and is then checked against the digest.
func (e *Engine) CreateTransactionWithHash(ctx context.Context, msg *CreateTransactionWithHashMsg) (*Transaction, error) {
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	hash := append([]byte(nil), msg.PayloadHash...)
	return e.createTransaction(ctx, msg.Account, msg.Creator, nil, hash)
}

func (e *Engine) createTransaction(ctx context.Context, account, creator lockstep.Address, payload, hash []byte) (*Transaction, error) {
	var created *Transaction
	err := e.updateAccount(account, func(acct *Account) error {
		if !acct.IsOwner(creator) {
			return errors.Wrapf(ErrNotOwner, "%s", creator)
		}
		if uint32(len(acct.Pending)) >= e.maxPending {
			return errors.Wrapf(ErrQueueFull, "at most %d pending transactions", e.maxPending)
		}
		tx := &Transaction{
			Sequence:    acct.NextSeq,
			Creator:     creator.Clone(),
			Payload:     payload,
			PayloadHash: hash,
			// Proposing a transaction implies approval of it.
			Votes:     map[string]bool{creator.String(): true},
			CreatedAt: lockstep.AsUnixTime(e.now()),
		}
		acct.Pending[tx.Sequence] = tx
		acct.NextSeq++
		created = tx.Copy()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(ctx, CreateTransactionEvent{
		Account:     account.Clone(),
		Creator:     creator.Clone(),
		Sequence:    created.Sequence,
		Transaction: created.Copy(),
	})
	return created, nil
}

// Vote registers an approval or a rejection of a pending transaction. Any
// pending transaction can be voted on, not only the next one in line. An
// owner can vote any number of times, only the latest vote counts.
func (e *Engine) Vote(ctx context.Context, msg *VoteMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	err := e.updateAccount(msg.Account, func(acct *Account) error {
		if !acct.IsOwner(msg.Owner) {
			return errors.Wrapf(ErrNotOwner, "%s", msg.Owner)
		}
		tx, ok := acct.Pending[msg.Sequence]
		if !ok {
			if msg.Sequence <= acct.LastExecuted {
				return errors.Wrapf(ErrSequence, "transaction %d is already resolved", msg.Sequence)
			}
			return errors.Wrapf(errors.ErrNotFound, "transaction %d", msg.Sequence)
		}
		tx.Votes[msg.Owner.String()] = msg.Approve
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(ctx, VoteEvent{
		Account:  msg.Account.Clone(),
		Owner:    msg.Owner.Clone(),
		Sequence: msg.Sequence,
		Approve:  msg.Approve,
	})
	return nil
}

// Approve is a shortcut for an approving Vote.
func (e *Engine) Approve(ctx context.Context, account, owner lockstep.Address, sequence Seq) error {
	return e.Vote(ctx, &VoteMsg{Account: account, Owner: owner, Sequence: sequence, Approve: true})
}

// Reject is a shortcut for a rejecting Vote.
func (e *Engine) Reject(ctx context.Context, account, owner lockstep.Address, sequence Seq) error {
	return e.Vote(ctx, &VoteMsg{Account: account, Owner: owner, Sequence: sequence, Approve: false})
}
