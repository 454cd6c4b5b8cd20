package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tessara-io/lockstep/x/msig"
)

func cmdAddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print out the address of the account provisioned by the given creator and
nonce. The address is deterministic, so it can be computed before the account
exists.
`)
		fl.PrintDefaults()
	}
	var (
		creatorFl = flAddress(fl, "creator", "", "Hex encoded address of the account creator.")
		nonceFl   = fl.Uint64("nonce", 0, "Creator chosen nonce. The same creator and nonce pair always produces the same address.")
	)
	fl.Parse(args)

	if len(*creatorFl) == 0 {
		flagDie("a creator address is required")
	}

	_, err := fmt.Fprintln(output, msig.DeriveAddress(*creatorFl, *nonceFl))
	return err
}

func cmdAttest(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Sign an attestation that migrates the address controlled by your private key
into a multi owner account. The output is a JSON document that the daemon
accepts as is:

	$ lockcli attest -owners $ALICE,$BOB -threshold 2 \
	    | curl --data @- http://localhost:8000/accounts/migrate

Migration cannot be forced on an address. Only the holder of the private key
can produce a valid attestation and each attestation is bound to a single
chain and signature sequence.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", env("LOCKCLI_PRIV_KEY", os.Getenv("HOME")+"/.lockstep.priv.key"),
			"Path to the private key file that the attestation should be signed with. You can use LOCKCLI_PRIV_KEY environment variable to set it.")
		chainFl = fl.String("chain", env("LOCKCLI_CHAIN_ID", "lockstep-local"),
			"Chain ID that the attestation is bound to. You can use LOCKCLI_CHAIN_ID environment variable to set it.")
		sequenceFl  = fl.Uint64("sequence", 1, "Signature sequence of the attesting key. Every attestation must use a fresh value.")
		thresholdFl = fl.Uint("threshold", 0, "Number of approvals required to execute a transaction.")
		ownersFl    = flAddressList(fl, "owners", "Comma separated list of hex encoded owner addresses.")
	)
	fl.Parse(args)

	if len(*ownersFl) == 0 {
		flagDie("at least one owner address is required")
	}
	if *thresholdFl == 0 {
		flagDie("a threshold greater than zero is required")
	}

	key, err := readPrivateKey(*keyPathFl)
	if err != nil {
		return err
	}
	pubkey := key.PublicKey()
	address := pubkey.Address()

	toSign, err := msig.MigrationSignBytes(*chainFl, address, *ownersFl, uint32(*thresholdFl), *sequenceFl)
	if err != nil {
		return fmt.Errorf("cannot build sign bytes: %s", err)
	}
	sig, err := key.Sign(toSign)
	if err != nil {
		return fmt.Errorf("cannot sign attestation: %s", err)
	}

	msg := msig.MigrateAccountMsg{
		Address:   address,
		Owners:    *ownersFl,
		Threshold: uint32(*thresholdFl),
		Sequence:  *sequenceFl,
		Pubkey:    pubkey,
		Signature: sig,
	}
	raw, err := json.MarshalIndent(msg, "", "\t")
	if err != nil {
		return fmt.Errorf("cannot serialize message: %s", err)
	}
	_, err = fmt.Fprintln(output, string(raw))
	return err
}
