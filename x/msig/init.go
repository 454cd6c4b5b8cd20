package msig

import (
	"context"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
)

var _ lockstep.Initializer = (*Engine)(nil)

// FromGenesis will parse initial account info from genesis and provision
// the accounts.
func (e *Engine) FromGenesis(opts lockstep.Options) error {
	var accounts []struct {
		Creator   lockstep.Address   `json:"creator"`
		Nonce     uint64             `json:"nonce"`
		Owners    []lockstep.Address `json:"owners"`
		Threshold uint32             `json:"threshold"`
		Metadata  map[string][]byte  `json:"metadata"`
	}
	if err := opts.ReadOptions(ExtensionName, &accounts); err != nil {
		return errors.Wrap(err, "cannot load accounts")
	}
	ctx := context.Background()
	for i, a := range accounts {
		msg := &CreateAccountMsg{
			Creator:   a.Creator,
			Nonce:     a.Nonce,
			Owners:    a.Owners,
			Threshold: a.Threshold,
			Metadata:  a.Metadata,
		}
		if _, err := e.CreateAccount(ctx, msg); err != nil {
			return errors.Wrapf(err, "cannot create account #%d", i)
		}
	}
	return nil
}
