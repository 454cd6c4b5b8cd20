package msig

import (
	"context"
	"encoding/binary"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/crypto"
	"github.com/tessara-io/lockstep/errors"
)

// CreateAccount provisions a new account and returns its address. The
// address is derived from the creator and the nonce, so the same pair can
// never provision two accounts.
func (e *Engine) CreateAccount(ctx context.Context, msg *CreateAccountMsg) (lockstep.Address, error) {
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	address := DeriveAddress(msg.Creator, msg.Nonce)
	acct := &Account{
		Address:      address,
		Owners:       cloneAddresses(msg.Owners),
		Threshold:    msg.Threshold,
		LastExecuted: 0,
		NextSeq:      1,
		Pending:      make(map[Seq]*Transaction),
		Metadata:     copyMetadata(msg.Metadata),
		CreatedAt:    lockstep.AsUnixTime(e.now()),
	}
	if err := e.accounts.Create(address, acct); err != nil {
		return nil, errors.Wrapf(err, "account %s", address)
	}
	return address, nil
}

// MigrateAccount converts an existing, externally held address into a multi
// owner account. The holder of the address must attest the initial owner
// configuration with a signature, which makes the migration impossible to
// force on anyone.
//
// Migration is one time. Once an account exists under the address, any
// further migration attempt fails.
func (e *Engine) MigrateAccount(ctx context.Context, msg *MigrateAccountMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	if !msg.Pubkey.Address().Equals(msg.Address) {
		return errors.Wrapf(errors.ErrUnauthorized, "pubkey does not control %s", msg.Address)
	}
	toSign, err := MigrationSignBytes(e.chainID, msg.Address, msg.Owners, msg.Threshold, msg.Sequence)
	if err != nil {
		return errors.Wrap(err, "sign bytes")
	}
	if !msg.Pubkey.Verify(toSign, msg.Signature) {
		return errors.Wrap(errors.ErrUnauthorized, "invalid attestation signature")
	}
	acct := &Account{
		Address:      msg.Address.Clone(),
		Owners:       cloneAddresses(msg.Owners),
		Threshold:    msg.Threshold,
		LastExecuted: 0,
		NextSeq:      1,
		Pending:      make(map[Seq]*Transaction),
		Metadata:     copyMetadata(msg.Metadata),
		Migrated:     true,
		CreatedAt:    lockstep.AsUnixTime(e.now()),
	}
	if err := e.accounts.Create(msg.Address, acct); err != nil {
		if errors.ErrDuplicate.Is(err) {
			return errors.Wrapf(errors.ErrImmutable, "address %s already holds an account", msg.Address)
		}
		return errors.Wrapf(err, "account %s", msg.Address)
	}
	return nil
}

// MigrationSignBytes returns the bytes that the holder of the address must
// sign to attest a migration. The layout is
//
//	address | owner count (4 bytes) | owners | threshold (4 bytes)
//
// run through the usual signing envelope with the chain ID and the holder's
// sequence as nonce. Including the sequence makes every attestation single
// use, including the chain ID keeps it from being replayed on another
// deployment.
func MigrationSignBytes(chainID string, address lockstep.Address, owners []lockstep.Address, threshold uint32, sequence uint64) ([]byte, error) {
	if err := address.Validate(); err != nil {
		return nil, errors.Wrap(err, "address")
	}
	payload := make([]byte, 0, len(address)+8+len(owners)*lockstep.AddressLength)
	payload = append(payload, address...)
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, uint32(len(owners)))
	payload = append(payload, raw...)
	for _, o := range owners {
		payload = append(payload, o...)
	}
	binary.BigEndian.PutUint32(raw, threshold)
	payload = append(payload, raw...)
	return crypto.BuildSignBytes(payload, chainID, sequence)
}
