package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/locktest"
	"github.com/tessara-io/lockstep/x/msig"
)

// tempLogPath returns the path of a new empty file that is removed when the
// test finishes.
func tempLogPath(t testing.TB) string {
	t.Helper()

	fd, err := ioutil.TempFile("", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	if err := fd.Close(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(fd.Name()) })
	return fd.Name()
}

func TestEventLogAppendsJSONLines(t *testing.T) {
	path := tempLogPath(t)
	elog, err := openEventLog(path)
	if err != nil {
		t.Fatalf("cannot open event log: %s", err)
	}
	elog.now = func() time.Time { return time.Unix(1600000000, 0) }

	account := locktest.RandomAddr(t)
	owner := locktest.RandomAddr(t)

	ctx := context.Background()
	elog.Emit(ctx, msig.VoteEvent{Account: account, Owner: owner, Sequence: 3, Approve: true})
	elog.Emit(ctx, msig.ExecuteSuccessEvent{Account: account, Executor: owner, Sequence: 3, Approvals: 2})
	if err := elog.Close(); err != nil {
		t.Fatalf("cannot close event log: %s", err)
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read event log: %s", err)
	}
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("want 2 entries, got %d:\n%s", len(lines), raw)
	}

	var first struct {
		Time   lockstep.UnixTime `json:"time"`
		Action string            `json:"action"`
		Event  struct {
			Account  lockstep.Address `json:"account"`
			Sequence msig.Seq         `json:"sequence"`
			Approve  bool             `json:"approve"`
		} `json:"event"`
	}
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("cannot decode first entry: %s", err)
	}
	if first.Action != "vote" {
		t.Fatalf("unexpected action: %q", first.Action)
	}
	if first.Time != 1600000000 {
		t.Fatalf("unexpected time: %d", first.Time)
	}
	if !first.Event.Account.Equals(account) || first.Event.Sequence != 3 || !first.Event.Approve {
		t.Fatalf("unexpected event payload: %s", lines[0])
	}

	var second struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatalf("cannot decode second entry: %s", err)
	}
	if second.Action != "execute-success" {
		t.Fatalf("unexpected action: %q", second.Action)
	}
}

func TestEventLogAppendsAcrossReopen(t *testing.T) {
	path := tempLogPath(t)
	ctx := context.Background()
	account := locktest.RandomAddr(t)

	for i := 0; i < 2; i++ {
		elog, err := openEventLog(path)
		if err != nil {
			t.Fatalf("cannot open event log: %s", err)
		}
		elog.Emit(ctx, msig.CreateTransactionEvent{Account: account, Sequence: msig.Seq(i + 1)})
		if err := elog.Close(); err != nil {
			t.Fatalf("cannot close event log: %s", err)
		}
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read event log: %s", err)
	}
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("want 2 entries, got %d:\n%s", len(lines), raw)
	}
}
