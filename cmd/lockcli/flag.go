package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tessara-io/lockstep"
)

// flAddress returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. This
// function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flAddress(fl *flag.FlagSet, name, defaultVal, usage string) *lockstep.Address {
	var a lockstep.Address
	if defaultVal != "" {
		var err error
		a, err = lockstep.ParseAddress(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q lockstep.Address flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&a, name, usage)
	return &a
}

// flAddressList returns a value holding a comma separated list of hex encoded
// addresses. This function follows Go's flag package convention.
func flAddressList(fl *flag.FlagSet, name, usage string) *addressList {
	var al addressList
	fl.Var(&al, name, usage)
	return &al
}

type addressList []lockstep.Address

func (al addressList) String() string {
	encoded := make([]string, len(al))
	for i, a := range al {
		encoded[i] = a.String()
	}
	return strings.Join(encoded, ",")
}

func (al *addressList) Set(raw string) error {
	var addrs []lockstep.Address
	for _, chunk := range strings.Split(raw, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		a, err := lockstep.ParseAddress(chunk)
		if err != nil {
			return fmt.Errorf("invalid address %q: %s", chunk, err)
		}
		addrs = append(addrs, a)
	}
	*al = addrs
	return nil
}

