package msig

import (
	"context"

	"github.com/tessara-io/lockstep/errors"
)

// UpdateMetadata replaces the whole metadata set of the account the
// authority is bound to. There is no partial update, what is passed in is
// what the account holds afterwards.
func (e *Engine) UpdateMetadata(ctx context.Context, auth Authority, metadata map[string][]byte) error {
	if err := validateMetadata(errors.ErrMsg, metadata); err != nil {
		return err
	}
	var ev MetadataUpdatedEvent
	err := e.updateAccount(auth.account, func(acct *Account) error {
		if _, err := resolveAuthority(acct, auth); err != nil {
			return err
		}
		ev = MetadataUpdatedEvent{
			Account:     acct.Address.Clone(),
			OldMetadata: copyMetadata(acct.Metadata),
			NewMetadata: copyMetadata(metadata),
		}
		acct.Metadata = copyMetadata(metadata)
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(ctx, ev)
	return nil
}
