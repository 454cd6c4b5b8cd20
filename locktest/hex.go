package locktest

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/tessara-io/lockstep"
)

// RandomAddr returns a valid random lockstep address generated on the fly.
func RandomAddr(t testing.TB) lockstep.Address {
	raw := make([]byte, lockstep.AddressLength)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("cannot generate a random address: %s", err)
	}
	a := lockstep.Address(raw)
	if err := a.Validate(); err != nil {
		t.Fatalf("generated address is not a valid lockstep address: %s", err)
	}
	return a
}

// DecodeAddr takes a hex encoded address string and returns it's raw
// representation as a lockstep address. This function ensures that returned
// value is a valid address.
func DecodeAddr(t testing.TB, encoded string) lockstep.Address {
	t.Helper()
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		t.Fatalf("cannot decode hex string: %s", err)
	}
	a := lockstep.Address(raw)
	if err := a.Validate(); err != nil {
		t.Fatalf("decoded string is not a valid address: %s", err)
	}
	return a
}
