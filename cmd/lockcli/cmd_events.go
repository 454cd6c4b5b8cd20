package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/tessara-io/lockstep"
)

func cmdEvents(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read an event log written by the lockstepd daemon from the standard input and
print out one line per event in a human friendly format.

	$ lockcli events -action execute-failed < /var/log/lockstep/events.log
`)
		fl.PrintDefaults()
	}
	var (
		actionFl = fl.String("action", "", "Print only events with the given action. All events are printed when empty.")
	)
	fl.Parse(args)

	scanner := bufio.NewScanner(input)
	// Events can embed whole payloads, which do not fit in the default
	// scanner buffer.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry struct {
			Time   lockstep.UnixTime `json:"time"`
			Action string            `json:"action"`
			Event  json.RawMessage   `json:"event"`
		}
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("cannot decode line %d: %s", lineNo, err)
		}
		if *actionFl != "" && entry.Action != *actionFl {
			continue
		}
		fmt.Fprintf(output, "%s\t%s\t%s\n",
			entry.Time.Time().UTC().Format(time.RFC3339), entry.Action, entry.Event)
	}
	return scanner.Err()
}
