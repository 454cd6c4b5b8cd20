package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/x/msig"
)

// eventLog appends every engine event to a file, one JSON document per line.
// Appending is fire and forget. A write failure is logged and the operation
// that produced the event proceeds undisturbed.
type eventLog struct {
	mu  sync.Mutex
	fd  *os.File
	now func() time.Time
}

var _ msig.Sink = (*eventLog)(nil)

func openEventLog(path string) (*eventLog, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot open %q: %s", path, err)
	}
	return &eventLog{fd: fd, now: time.Now}, nil
}

func (l *eventLog) Emit(ctx context.Context, ev msig.Event) {
	entry := struct {
		Time   lockstep.UnixTime `json:"time"`
		Action string            `json:"action"`
		Event  msig.Event        `json:"event"`
	}{
		Time:   lockstep.AsUnixTime(l.now()),
		Action: eventAction(ev),
		Event:  ev,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		lockstep.GetLogger(ctx).Error("cannot serialize event", "err", err)
		return
	}
	raw = append(raw, '\n')

	l.mu.Lock()
	_, err = l.fd.Write(raw)
	l.mu.Unlock()

	if err != nil {
		lockstep.GetLogger(ctx).Error("cannot append event", "err", err)
	}
}

func (l *eventLog) Close() error {
	return l.fd.Close()
}

// eventAction extracts the action tag that every engine event carries.
func eventAction(ev msig.Event) string {
	for _, tag := range ev.Tags() {
		if string(tag.Key) == "msig-action" {
			return string(tag.Value)
		}
	}
	return ""
}
