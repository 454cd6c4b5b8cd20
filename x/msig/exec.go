package msig

import (
	"bytes"
	"context"

	"github.com/tessara-io/lockstep/errors"
)

// Harness applies an approved payload to the outside world. The engine does
// not interpret payloads, it only guards the order in which they reach the
// harness.
type Harness interface {
	Execute(ctx context.Context, auth Authority, payload []byte) error
}

// HarnessFunc turns a plain function into a Harness.
type HarnessFunc func(ctx context.Context, auth Authority, payload []byte) error

// Execute calls fn.
func (fn HarnessFunc) Execute(ctx context.Context, auth Authority, payload []byte) error {
	return fn(ctx, auth, payload)
}

// ValidateForExecution checks that a transaction is ready to execute and
// mints the authority that the finalize calls and the privileged setters
// require. A transaction is ready when the executor is an owner, the
// transaction is the next one in line, enough current owners approve and
// the provided payload matches the stored one.
//
// Validation does not change any state. The transaction stays pending until
// one of FinalizeSuccess, FinalizeFailure or ExecuteRejected resolves it.
func (e *Engine) ValidateForExecution(ctx context.Context, msg *ExecuteMsg) (Authority, error) {
	if err := msg.Validate(); err != nil {
		return Authority{}, errors.Wrap(err, "invalid message")
	}
	acct, err := e.loadAccount(msg.Account)
	if err != nil {
		return Authority{}, err
	}
	if !acct.IsOwner(msg.Executor) {
		return Authority{}, errors.Wrapf(ErrNotOwner, "%s", msg.Executor)
	}
	if err := atCursor(acct, msg.Sequence); err != nil {
		return Authority{}, err
	}
	tx, ok := acct.Pending[msg.Sequence]
	if !ok {
		// A missing transaction at the execution cursor means the
		// account state is corrupted.
		return Authority{}, errors.Wrapf(errors.ErrHuman, "no pending transaction at the execution cursor %d", msg.Sequence)
	}
	if t := acct.tally(tx); t.Approvals < acct.Threshold {
		return Authority{}, errors.Wrapf(ErrQuorum, "%d of %d approvals", t.Approvals, acct.Threshold)
	}
	if err := matchPayload(tx, msg.Payload); err != nil {
		return Authority{}, err
	}
	return Authority{
		account:  acct.Address.Clone(),
		executor: msg.Executor.Clone(),
		sequence: msg.Sequence,
	}, nil
}

// atCursor fails unless sequence is the next transaction to resolve.
func atCursor(acct *Account, sequence Seq) error {
	if sequence <= acct.LastExecuted {
		return errors.Wrapf(ErrSequence, "transaction %d is already resolved", sequence)
	}
	if sequence == acct.LastExecuted+1 {
		return nil
	}
	if _, ok := acct.Pending[sequence]; ok {
		return errors.Wrapf(ErrSequence, "transaction %d is not next in line, %d is", sequence, acct.LastExecuted+1)
	}
	return errors.Wrapf(errors.ErrNotFound, "transaction %d", sequence)
}

// matchPayload ensures that the payload provided for execution agrees with
// what the owners approved.
func matchPayload(tx *Transaction, provided []byte) error {
	if tx.Payload != nil {
		if len(provided) != 0 && !bytes.Equal(provided, tx.Payload) {
			return errors.Wrap(ErrPayloadMismatch, "provided payload differs from the stored payload")
		}
		return nil
	}
	if len(provided) == 0 {
		return errors.Wrap(ErrPayloadMismatch, "transaction stores only a digest, the payload must be provided")
	}
	if !bytes.Equal(HashPayload(provided), tx.PayloadHash) {
		return errors.Wrap(ErrPayloadMismatch, "provided payload does not hash to the stored digest")
	}
	return nil
}

// FinalizeSuccess resolves the transaction the authority is bound to as
// executed and moves the execution cursor forward. When two executors race,
// the first finalize wins and the other one fails.
func (e *Engine) FinalizeSuccess(ctx context.Context, auth Authority) error {
	var ev ExecuteSuccessEvent
	err := e.updateAccount(auth.account, func(acct *Account) error {
		tx, err := resolveAuthority(acct, auth)
		if err != nil {
			return err
		}
		t := acct.tally(tx)
		ev = ExecuteSuccessEvent{
			Account:     acct.Address.Clone(),
			Executor:    auth.executor.Clone(),
			Sequence:    tx.Sequence,
			PayloadHash: append([]byte(nil), tx.PayloadHash...),
			Approvals:   t.Approvals,
		}
		delete(acct.Pending, tx.Sequence)
		acct.LastExecuted = tx.Sequence
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(ctx, ev)
	return nil
}

// FinalizeFailure resolves the transaction the authority is bound to as
// failed. A failed execution still consumes the transaction and moves the
// cursor forward, so the queue can never wedge on a payload that does not
// work.
func (e *Engine) FinalizeFailure(ctx context.Context, auth Authority, execErr ExecutionError) error {
	if err := execErr.Validate(); err != nil {
		return errors.Wrap(err, "execution error")
	}
	var ev ExecuteFailedEvent
	err := e.updateAccount(auth.account, func(acct *Account) error {
		tx, err := resolveAuthority(acct, auth)
		if err != nil {
			return err
		}
		t := acct.tally(tx)
		ev = ExecuteFailedEvent{
			Account:     acct.Address.Clone(),
			Executor:    auth.executor.Clone(),
			Sequence:    tx.Sequence,
			PayloadHash: append([]byte(nil), tx.PayloadHash...),
			Approvals:   t.Approvals,
			Error:       execErr,
		}
		delete(acct.Pending, tx.Sequence)
		acct.LastExecuted = tx.Sequence
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(ctx, ev)
	return nil
}

// ExecuteRejected removes the next transaction in line once enough current
// owners reject it. This is the only way to get rid of a transaction that
// blocks the queue without executing it.
func (e *Engine) ExecuteRejected(ctx context.Context, msg *ExecuteRejectedMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	var ev ExecuteRejectedEvent
	err := e.updateAccount(msg.Account, func(acct *Account) error {
		if !acct.IsOwner(msg.Executor) {
			return errors.Wrapf(ErrNotOwner, "%s", msg.Executor)
		}
		if err := atCursor(acct, msg.Sequence); err != nil {
			return err
		}
		tx, ok := acct.Pending[msg.Sequence]
		if !ok {
			return errors.Wrapf(errors.ErrHuman, "no pending transaction at the execution cursor %d", msg.Sequence)
		}
		t := acct.tally(tx)
		if t.Rejections < acct.Threshold {
			return errors.Wrapf(ErrQuorum, "%d of %d rejections", t.Rejections, acct.Threshold)
		}
		ev = ExecuteRejectedEvent{
			Account:    acct.Address.Clone(),
			Executor:   msg.Executor.Clone(),
			Sequence:   tx.Sequence,
			Rejections: t.Rejections,
		}
		delete(acct.Pending, tx.Sequence)
		acct.LastExecuted = tx.Sequence
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(ctx, ev)
	return nil
}

// Execute runs the full execution cycle in one call: validate, hand the
// payload to the harness and finalize with the harness outcome. A harness
// failure is not an error of Execute because the transaction is still
// resolved, it is recorded in the emitted event instead.
func (e *Engine) Execute(ctx context.Context, msg *ExecuteMsg, h Harness) error {
	auth, err := e.ValidateForExecution(ctx, msg)
	if err != nil {
		return err
	}
	payload, err := e.GetNextPayload(msg.Account, msg.Payload)
	if err != nil {
		return err
	}
	if herr := h.Execute(ctx, auth, payload); herr != nil {
		return e.FinalizeFailure(ctx, auth, AsExecutionError(herr))
	}
	return e.FinalizeSuccess(ctx, auth)
}
