package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/tessara-io/lockstep/x/msig"
)

func cmdPayloadHash(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a transaction payload from the standard input and print out a JSON
document with its hash. Submit the document to propose the transaction by
hash only, revealing the payload at execution time:

	$ lockcli payload-hash < payload.bin \
	    | curl -H "X-Lockstep-Caller: $ALICE" --data @- \
	        http://localhost:8000/accounts/$ACCOUNT/transactions
`)
		fl.PrintDefaults()
	}
	fl.Parse(args)

	payload, err := ioutil.ReadAll(input)
	if err != nil {
		return fmt.Errorf("cannot read payload: %s", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no payload given")
	}

	doc := struct {
		PayloadHash []byte `json:"payload_hash"`
	}{
		PayloadHash: msig.HashPayload(payload),
	}
	raw, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return fmt.Errorf("cannot serialize document: %s", err)
	}
	_, err = fmt.Fprintln(output, string(raw))
	return err
}
