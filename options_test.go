package lockstep

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/tessara-io/lockstep/errors"
)

func TestReadOptions(t *testing.T) {
	opts := Options{
		"zero": []byte(`{"threshold": 2}`),
	}

	var value struct {
		Threshold uint32 `json:"threshold"`
	}
	if err := opts.ReadOptions("zero", &value); err != nil {
		t.Fatalf("cannot read: %+v", err)
	}
	if value.Threshold != 2 {
		t.Fatalf("want 2, got %d", value.Threshold)
	}

	// Missing key is a noop.
	if err := opts.ReadOptions("no-such-key", &value); err != nil {
		t.Fatalf("missing key must not error: %+v", err)
	}

	opts["broken"] = []byte(`{invalid`)
	if err := opts.ReadOptions("broken", &value); !errors.ErrType.Is(err) {
		t.Fatalf("want type error, got %+v", err)
	}
}

func TestOptionsStream(t *testing.T) {
	opts := Options{
		"accounts": []byte(`[{"n": 1}, {"n": 2}]`),
	}

	next := opts.Stream("accounts")

	var value struct {
		N int `json:"n"`
	}
	for i := 1; i <= 2; i++ {
		if err := next(&value); err != nil {
			t.Fatalf("cannot read element %d: %+v", i, err)
		}
		if value.N != i {
			t.Fatalf("want %d, got %d", i, value.N)
		}
	}
	if err := next(&value); !errors.ErrEmpty.Is(err) {
		t.Fatalf("want empty error, got %+v", err)
	}
}

func TestLoadGenesis(t *testing.T) {
	dir, err := ioutil.TempDir("", "genesis")
	if err != nil {
		t.Fatalf("cannot create a temporary directory: %s", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "genesis.json")
	content := `{
		"chain_id": "test-chain-17",
		"app_state": {
			"msig": [{"threshold": 2}]
		}
	}`
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("cannot write genesis file: %s", err)
	}

	gen, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("cannot load genesis: %+v", err)
	}
	if gen.ChainID != "test-chain-17" {
		t.Fatalf("unexpected chain ID: %q", gen.ChainID)
	}

	var conf []struct {
		Threshold uint32 `json:"threshold"`
	}
	if err := gen.AppState.ReadOptions("msig", &conf); err != nil {
		t.Fatalf("cannot read app state: %+v", err)
	}
	if len(conf) != 1 || conf[0].Threshold != 2 {
		t.Fatalf("unexpected app state: %+v", conf)
	}

	if _, err := LoadGenesis(filepath.Join(dir, "no-such-file.json")); !errors.ErrInput.Is(err) {
		t.Fatalf("want input error, got %+v", err)
	}

	if err := ioutil.WriteFile(path, []byte(`{"chain_id": "x"}`), 0644); err != nil {
		t.Fatalf("cannot write genesis file: %s", err)
	}
	if _, err := LoadGenesis(path); !errors.ErrInput.Is(err) {
		t.Fatalf("want invalid chain id error, got %+v", err)
	}
}
