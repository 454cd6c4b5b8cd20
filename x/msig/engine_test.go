package msig

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/locktest"
)

func newTestEngine(t testing.TB, conf Config) (*Engine, *CaptureSink) {
	t.Helper()
	sink := &CaptureSink{}
	if conf.ChainID == "" {
		conf.ChainID = "testchain-1"
	}
	if conf.Sink == nil {
		conf.Sink = sink
	}
	e, err := NewEngine(conf)
	if err != nil {
		t.Fatalf("cannot create engine: %s", err)
	}
	return e, sink
}

func withAccount(t testing.TB, e *Engine, threshold uint32, owners ...lockstep.Address) lockstep.Address {
	t.Helper()
	address, err := e.CreateAccount(context.Background(), &CreateAccountMsg{
		Creator:   locktest.NewCondition().Address(),
		Nonce:     1,
		Owners:    owners,
		Threshold: threshold,
	})
	if err != nil {
		t.Fatalf("cannot create account: %s", err)
	}
	return address
}

func TestNewEngineChainID(t *testing.T) {
	cases := map[string]struct {
		ChainID string
		WantErr *errors.Error
	}{
		"valid chain ID":     {ChainID: "testchain-1"},
		"empty chain ID":     {ChainID: "", WantErr: errors.ErrInput},
		"too short chain ID": {ChainID: "abc", WantErr: errors.ErrInput},
		"forbidden character": {
			ChainID: "white space chain",
			WantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			_, err := NewEngine(Config{ChainID: tc.ChainID})
			if !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}

func TestDeriveAddress(t *testing.T) {
	creator := locktest.NewCondition().Address()

	a := DeriveAddress(creator, 1)
	if err := a.Validate(); err != nil {
		t.Fatalf("derived address is invalid: %s", err)
	}
	if b := DeriveAddress(creator, 1); !a.Equals(b) {
		t.Fatal("derivation must be deterministic")
	}
	if b := DeriveAddress(creator, 2); a.Equals(b) {
		t.Fatal("nonce must change the address")
	}
	other := locktest.NewCondition().Address()
	if b := DeriveAddress(other, 1); a.Equals(b) {
		t.Fatal("creator must change the address")
	}
}

func TestEngineSerializesAccountWrites(t *testing.T) {
	e, _ := newTestEngine(t, Config{MaxPending: 200})
	alice := locktest.NewCondition().Address()
	account := withAccount(t, e, 1, alice)

	const workers = 8
	const each = 10

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < each; j++ {
				payload := []byte(fmt.Sprintf("op %d/%d", worker, j))
				if _, err := e.CreateTransaction(ctx, &CreateTransactionMsg{
					Account: account,
					Creator: alice,
					Payload: payload,
				}); err != nil {
					t.Errorf("worker %d: cannot create transaction: %s", worker, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	next, err := e.NextSequence(account)
	if err != nil {
		t.Fatalf("cannot read next sequence: %s", err)
	}
	if want := Seq(workers*each + 1); next != want {
		t.Fatalf("want next sequence %d, got %d", want, next)
	}

	txs, err := e.GetPendingTransactions(account)
	if err != nil {
		t.Fatalf("cannot list pending transactions: %s", err)
	}
	if len(txs) != workers*each {
		t.Fatalf("want %d pending transactions, got %d", workers*each, len(txs))
	}
	for i, tx := range txs {
		if tx.Sequence != Seq(i+1) {
			t.Fatalf("transaction #%d holds sequence %d", i, tx.Sequence)
		}
	}
}

func TestEngineQueriesReturnCopies(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	alice := locktest.NewCondition().Address()
	account := withAccount(t, e, 1, alice)

	acct, err := e.GetAccount(account)
	if err != nil {
		t.Fatalf("cannot get account: %s", err)
	}
	acct.Threshold = 100
	acct.Owners[0][0]++

	fresh, err := e.GetAccount(account)
	if err != nil {
		t.Fatalf("cannot get account: %s", err)
	}
	if fresh.Threshold != 1 {
		t.Fatal("query result shares state with the engine")
	}
	if !fresh.Owners[0].Equals(alice) {
		t.Fatal("query result shares owners with the engine")
	}
}
