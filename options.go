package lockstep

import (
	"encoding/json"
	"io/ioutil"

	"github.com/tessara-io/lockstep/errors"
)

// Options are the application options
// Each package can look up its key and parse the json as desired
type Options map[string]json.RawMessage

// ReadOptions reads the values stored under a given key,
// and parses the json into the given obj.
// Returns an error if it cannot parse.
// Noop and no error if key is missing
func (o Options) ReadOptions(key string, obj interface{}) error {
	msg := o[key]
	if len(msg) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg, obj); err != nil {
		return errors.Wrapf(errors.ErrType, "option %q: %s", key, err)
	}
	return nil
}

// Stream expects an array of json elements under the given key and returns a
// function that returns one element with every call. When no more values are
// available, errors.ErrEmpty is returned.
func (o Options) Stream(key string) func(obj interface{}) error {
	var raws []json.RawMessage
	err := o.ReadOptions(key, &raws)
	return func(obj interface{}) error {
		if err != nil {
			return err
		}
		if len(raws) == 0 {
			return errors.Wrap(errors.ErrEmpty, "no more values")
		}
		raw := raws[0]
		raws = raws[1:]
		if err := json.Unmarshal(raw, obj); err != nil {
			return errors.Wrapf(errors.ErrType, "option %q: %s", key, err)
		}
		return nil
	}
}

// Initializer implementations are used to initialize
// state from genesis file contents
type Initializer interface {
	FromGenesis(Options) error
}

// Genesis is the initial state declaration, loaded once at startup.
type Genesis struct {
	ChainID  string  `json:"chain_id"`
	AppState Options `json:"app_state"`
}

// LoadGenesis tries to load a given file into a Genesis struct
func LoadGenesis(filePath string) (Genesis, error) {
	var gen Genesis

	raw, err := ioutil.ReadFile(filePath)
	if err != nil {
		return gen, errors.Wrapf(errors.ErrInput, "loading genesis file: %s", err)
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		return gen, errors.Wrapf(errors.ErrInput, "unmarshaling genesis file: %s", err)
	}
	if !IsValidChainID(gen.ChainID) {
		return gen, errors.Wrapf(errors.ErrInput, "invalid chain ID: %q", gen.ChainID)
	}
	return gen, nil
}
