package msig

import (
	"bytes"
	"context"
	"testing"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/locktest"
)

// propose creates a transaction and collects approvals from all given
// owners. The creator approves implicitly so it must not be repeated in
// approvals.
func propose(t testing.TB, e *Engine, account lockstep.Address, creator lockstep.Address, payload []byte, approvals ...lockstep.Address) Seq {
	t.Helper()
	ctx := context.Background()
	tx, err := e.CreateTransaction(ctx, &CreateTransactionMsg{
		Account: account,
		Creator: creator,
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("cannot create transaction: %s", err)
	}
	for _, owner := range approvals {
		if err := e.Approve(ctx, account, owner, tx.Sequence); err != nil {
			t.Fatalf("cannot approve: %s", err)
		}
	}
	return tx.Sequence
}

func TestExecuteInOrder(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	bob := locktest.NewCondition().Address()
	account := withAccount(t, e, 2, alice, bob)

	ctx := context.Background()
	first := propose(t, e, account, alice, []byte("first"), bob)
	second := propose(t, e, account, alice, []byte("second"), bob)

	// Both transactions hold a quorum but only the first one can run.
	if ok, err := e.CanBeExecuted(account, first); err != nil || !ok {
		t.Fatalf("first: want executable, got %v (%+v)", ok, err)
	}
	if ok, err := e.CanBeExecuted(account, second); err != nil || ok {
		t.Fatalf("second: want blocked behind the first, got %v (%+v)", ok, err)
	}
	_, err := e.ValidateForExecution(ctx, &ExecuteMsg{
		Account: account, Executor: alice, Sequence: second,
	})
	if !ErrSequence.Is(err) {
		t.Fatalf("want a sequence error, got %+v", err)
	}

	auth, err := e.ValidateForExecution(ctx, &ExecuteMsg{
		Account: account, Executor: alice, Sequence: first,
	})
	if err != nil {
		t.Fatalf("cannot validate the first transaction: %s", err)
	}
	if err := e.FinalizeSuccess(ctx, auth); err != nil {
		t.Fatalf("cannot finalize: %s", err)
	}

	if last, _ := e.LastExecuted(account); last != first {
		t.Fatalf("want cursor at %d, got %d", first, last)
	}

	// With the first transaction resolved the second one is next in line.
	auth, err = e.ValidateForExecution(ctx, &ExecuteMsg{
		Account: account, Executor: alice, Sequence: second,
	})
	if err != nil {
		t.Fatalf("cannot validate the second transaction: %s", err)
	}
	if err := e.FinalizeSuccess(ctx, auth); err != nil {
		t.Fatalf("cannot finalize: %s", err)
	}
}

func TestValidateForExecutionFailures(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	bob := locktest.NewCondition().Address()
	carl := locktest.NewCondition().Address()
	account := withAccount(t, e, 2, alice, bob, carl)

	ctx := context.Background()
	seq := propose(t, e, account, alice, []byte("underfunded"))

	t.Run("not an owner", func(t *testing.T) {
		_, err := e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: locktest.NewCondition().Address(), Sequence: seq,
		})
		if !ErrNotOwner.Is(err) {
			t.Fatalf("want a not owner error, got %+v", err)
		}
	})

	t.Run("below quorum", func(t *testing.T) {
		_, err := e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: seq,
		})
		if !ErrQuorum.Is(err) {
			t.Fatalf("want a quorum error, got %+v", err)
		}
	})

	t.Run("unknown sequence", func(t *testing.T) {
		_, err := e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: 99,
		})
		if !errors.ErrNotFound.Is(err) {
			t.Fatalf("want a not found error, got %+v", err)
		}
	})

	t.Run("rejections do not execute", func(t *testing.T) {
		if err := e.Reject(ctx, account, bob, seq); err != nil {
			t.Fatalf("cannot reject: %s", err)
		}
		if err := e.Reject(ctx, account, carl, seq); err != nil {
			t.Fatalf("cannot reject: %s", err)
		}
		_, err := e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: seq,
		})
		if !ErrQuorum.Is(err) {
			t.Fatalf("want a quorum error, got %+v", err)
		}
	})
}

func TestExecutePayloadMatching(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	account := withAccount(t, e, 1, alice)

	ctx := context.Background()
	payload := []byte("transfer 5 coins")

	t.Run("stored payload", func(t *testing.T) {
		seq := propose(t, e, account, alice, payload)

		_, err := e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: seq,
			Payload: []byte("something else"),
		})
		if !ErrPayloadMismatch.Is(err) {
			t.Fatalf("want a payload mismatch error, got %+v", err)
		}

		// Without a provided payload the stored one is used.
		auth, err := e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: seq,
		})
		if err != nil {
			t.Fatalf("cannot validate: %s", err)
		}
		if err := e.FinalizeSuccess(ctx, auth); err != nil {
			t.Fatalf("cannot finalize: %s", err)
		}
	})

	t.Run("stored digest", func(t *testing.T) {
		tx, err := e.CreateTransactionWithHash(ctx, &CreateTransactionWithHashMsg{
			Account:     account,
			Creator:     alice,
			PayloadHash: HashPayload(payload),
		})
		if err != nil {
			t.Fatalf("cannot create transaction: %s", err)
		}

		_, err = e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: tx.Sequence,
		})
		if !ErrPayloadMismatch.Is(err) {
			t.Fatalf("the payload must be provided, got %+v", err)
		}

		_, err = e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: tx.Sequence,
			Payload: []byte("not what was approved"),
		})
		if !ErrPayloadMismatch.Is(err) {
			t.Fatalf("want a payload mismatch error, got %+v", err)
		}

		auth, err := e.ValidateForExecution(ctx, &ExecuteMsg{
			Account: account, Executor: alice, Sequence: tx.Sequence,
			Payload: payload,
		})
		if err != nil {
			t.Fatalf("cannot validate with the correct payload: %s", err)
		}
		if err := e.FinalizeSuccess(ctx, auth); err != nil {
			t.Fatalf("cannot finalize: %s", err)
		}
	})
}

func TestFinalizeFailureResolves(t *testing.T) {
	e, sink := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	account := withAccount(t, e, 1, alice)

	ctx := context.Background()
	seq := propose(t, e, account, alice, []byte("will not work"))

	auth, err := e.ValidateForExecution(ctx, &ExecuteMsg{
		Account: account, Executor: alice, Sequence: seq,
	})
	if err != nil {
		t.Fatalf("cannot validate: %s", err)
	}
	sink.Reset()

	harnessErr := errors.Wrap(errors.ErrNotFound, "no such recipient")
	if err := e.FinalizeFailure(ctx, auth, AsExecutionError(harnessErr)); err != nil {
		t.Fatalf("cannot finalize a failure: %s", err)
	}

	// A failed execution consumes the transaction all the same.
	if last, _ := e.LastExecuted(account); last != seq {
		t.Fatalf("want cursor at %d, got %d", seq, last)
	}
	if _, err := e.GetTransaction(account, seq); !errors.ErrNotFound.Is(err) {
		t.Fatalf("the transaction must be resolved, got %+v", err)
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("want one event, got %d", len(events))
	}
	ev, ok := events[0].(ExecuteFailedEvent)
	if !ok {
		t.Fatalf("unexpected event type: %T", events[0])
	}
	if ev.Error.Code != errors.Code(harnessErr) {
		t.Fatalf("unexpected failure description: %+v", ev.Error)
	}
}

func TestFinalizeRaceFirstCallerWins(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	bob := locktest.NewCondition().Address()
	account := withAccount(t, e, 1, alice, bob)

	ctx := context.Background()
	seq := propose(t, e, account, alice, []byte("raced"))

	authAlice, err := e.ValidateForExecution(ctx, &ExecuteMsg{
		Account: account, Executor: alice, Sequence: seq,
	})
	if err != nil {
		t.Fatalf("cannot validate: %s", err)
	}
	authBob, err := e.ValidateForExecution(ctx, &ExecuteMsg{
		Account: account, Executor: bob, Sequence: seq,
	})
	if err != nil {
		t.Fatalf("cannot validate: %s", err)
	}

	if err := e.FinalizeSuccess(ctx, authAlice); err != nil {
		t.Fatalf("the first finalize must win: %s", err)
	}
	if err := e.FinalizeSuccess(ctx, authBob); !ErrAuthority.Is(err) {
		t.Fatalf("the second finalize must lose, got %+v", err)
	}
	if last, _ := e.LastExecuted(account); last != seq {
		t.Fatalf("want cursor at %d, got %d", seq, last)
	}
}

func TestExecuteRejected(t *testing.T) {
	e, sink := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	bob := locktest.NewCondition().Address()
	carl := locktest.NewCondition().Address()
	account := withAccount(t, e, 2, alice, bob, carl)

	ctx := context.Background()
	seq := propose(t, e, account, alice, []byte("contested"))

	t.Run("below rejection quorum", func(t *testing.T) {
		if err := e.Reject(ctx, account, bob, seq); err != nil {
			t.Fatalf("cannot reject: %s", err)
		}
		err := e.ExecuteRejected(ctx, &ExecuteRejectedMsg{
			Account: account, Executor: bob, Sequence: seq,
		})
		if !ErrQuorum.Is(err) {
			t.Fatalf("want a quorum error, got %+v", err)
		}
	})

	t.Run("stranger cannot remove", func(t *testing.T) {
		err := e.ExecuteRejected(ctx, &ExecuteRejectedMsg{
			Account: account, Executor: locktest.NewCondition().Address(), Sequence: seq,
		})
		if !ErrNotOwner.Is(err) {
			t.Fatalf("want a not owner error, got %+v", err)
		}
	})

	t.Run("rejection quorum removes", func(t *testing.T) {
		if err := e.Reject(ctx, account, carl, seq); err != nil {
			t.Fatalf("cannot reject: %s", err)
		}
		sink.Reset()
		if err := e.ExecuteRejected(ctx, &ExecuteRejectedMsg{
			Account: account, Executor: bob, Sequence: seq,
		}); err != nil {
			t.Fatalf("cannot remove a rejected transaction: %s", err)
		}
		if last, _ := e.LastExecuted(account); last != seq {
			t.Fatalf("want cursor at %d, got %d", seq, last)
		}
		events := sink.Events()
		if len(events) != 1 {
			t.Fatalf("want one event, got %d", len(events))
		}
		ev, ok := events[0].(ExecuteRejectedEvent)
		if !ok {
			t.Fatalf("unexpected event type: %T", events[0])
		}
		if ev.Rejections != 2 || ev.Sequence != seq {
			t.Fatalf("unexpected event: %+v", ev)
		}
	})
}

func TestExecuteWithHarness(t *testing.T) {
	e, sink := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	account := withAccount(t, e, 1, alice)

	ctx := context.Background()
	payload := []byte("apply me")
	seq := propose(t, e, account, alice, payload)
	sink.Reset()

	var received []byte
	harness := HarnessFunc(func(ctx context.Context, auth Authority, payload []byte) error {
		received = payload
		if auth.Sequence() != seq {
			t.Errorf("harness got authority for %d, want %d", auth.Sequence(), seq)
		}
		return nil
	})

	if err := e.Execute(ctx, &ExecuteMsg{
		Account: account, Executor: alice, Sequence: seq,
	}, harness); err != nil {
		t.Fatalf("cannot execute: %s", err)
	}
	if !bytes.Equal(received, payload) {
		t.Fatalf("harness received %q", received)
	}
	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("want one event, got %d", len(events))
	}
	if _, ok := events[0].(ExecuteSuccessEvent); !ok {
		t.Fatalf("unexpected event type: %T", events[0])
	}

	// A failing harness resolves the transaction as failed.
	seq = propose(t, e, account, alice, []byte("will fail"))
	sink.Reset()
	failing := HarnessFunc(func(context.Context, Authority, []byte) error {
		return errors.Wrap(errors.ErrState, "out of funds")
	})
	if err := e.Execute(ctx, &ExecuteMsg{
		Account: account, Executor: alice, Sequence: seq,
	}, failing); err != nil {
		t.Fatalf("a harness failure is not an execute error: %+v", err)
	}
	if last, _ := e.LastExecuted(account); last != seq {
		t.Fatalf("want cursor at %d, got %d", seq, last)
	}
	events = sink.Events()
	if len(events) != 1 {
		t.Fatalf("want one event, got %d", len(events))
	}
	ev, ok := events[0].(ExecuteFailedEvent)
	if !ok {
		t.Fatalf("unexpected event type: %T", events[0])
	}
	if ev.Error.Code != errors.ErrState.Code() {
		t.Fatalf("unexpected failure description: %+v", ev.Error)
	}
}

func TestZeroAuthorityIsRefused(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	account := withAccount(t, e, 1, alice)
	propose(t, e, account, alice, []byte("pending"))

	ctx := context.Background()
	var auth Authority
	auth.account = account

	if err := e.FinalizeSuccess(ctx, auth); !ErrAuthority.Is(err) {
		t.Fatalf("want an authority error, got %+v", err)
	}
	if err := e.UpdateThreshold(ctx, auth, 1); !ErrAuthority.Is(err) {
		t.Fatalf("want an authority error, got %+v", err)
	}
}
