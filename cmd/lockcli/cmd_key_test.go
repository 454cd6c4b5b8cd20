package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tessara-io/lockstep"
)

// tempKeyPath returns a path inside a temporary directory that does not
// point to an existing file, so that keygen can create it.
func tempKeyPath(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", t.Name())
	if err != nil {
		t.Fatalf("cannot create temporary directory: %s", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "priv.key")
}

func TestKeygenAndKeyaddr(t *testing.T) {
	path := tempKeyPath(t)

	if err := cmdKeygen(nil, nil, []string{"-key", path}); err != nil {
		t.Fatalf("cannot generate key: %s", err)
	}

	var out bytes.Buffer
	if err := cmdKeyaddr(nil, &out, []string{"-key", path}); err != nil {
		t.Fatalf("cannot print address: %s", err)
	}
	addr, err := lockstep.ParseAddress(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("keyaddr printed an invalid address: %s", err)
	}

	key, err := readPrivateKey(path)
	if err != nil {
		t.Fatalf("cannot read generated key: %s", err)
	}
	if want := key.PublicKey().Address(); !want.Equals(addr) {
		t.Fatalf("want %s address, got %s", want, addr)
	}
}

func TestKeygenRefusesToOverwrite(t *testing.T) {
	fd, err := ioutil.TempFile("", t.Name())
	if err != nil {
		t.Fatalf("cannot create temporary file: %s", err)
	}
	fd.Close()
	t.Cleanup(func() { os.Remove(fd.Name()) })

	if err := cmdKeygen(nil, nil, []string{"-key", fd.Name()}); err == nil {
		t.Fatal("keygen must not overwrite an existing key file")
	}
}
