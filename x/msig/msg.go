package msig

import (
	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/crypto"
	"github.com/tessara-io/lockstep/errors"
)

// CreateAccountMsg requests provisioning of a new account. The account
// address is derived from the creator and the nonce, so resubmitting the
// same message cannot create a second account.
//
// The creator does not have to be part of the owner set.
type CreateAccountMsg struct {
	Creator   lockstep.Address   `json:"creator"`
	Nonce     uint64             `json:"nonce"`
	Owners    []lockstep.Address `json:"owners"`
	Threshold uint32             `json:"threshold"`
	Metadata  map[string][]byte  `json:"metadata,omitempty"`
}

// Validate enforces owners and threshold boundaries
func (msg *CreateAccountMsg) Validate() error {
	if err := msg.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	addr := DeriveAddress(msg.Creator, msg.Nonce)
	if err := validateOwningConfig(errors.ErrMsg, addr, msg.Owners, msg.Threshold); err != nil {
		return err
	}
	return validateMetadata(errors.ErrMsg, msg.Metadata)
}

// MigrateAccountMsg turns an already existing, externally owned address into
// a multi owner account. The current holder of the address vouches for the
// migration with a signature over the chain ID, the address, the sequence
// and the full owner configuration.
//
// A migration can happen at most once per address.
type MigrateAccountMsg struct {
	Address   lockstep.Address   `json:"address"`
	Owners    []lockstep.Address `json:"owners"`
	Threshold uint32             `json:"threshold"`
	Sequence  uint64             `json:"sequence"`
	Pubkey    *crypto.PublicKey  `json:"pubkey"`
	Signature *crypto.Signature  `json:"signature"`
	Metadata  map[string][]byte  `json:"metadata,omitempty"`
}

// Validate enforces owners and threshold boundaries and the presence of the
// attestation.
func (msg *MigrateAccountMsg) Validate() error {
	if err := msg.Address.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	if err := validateOwningConfig(errors.ErrMsg, msg.Address, msg.Owners, msg.Threshold); err != nil {
		return err
	}
	if msg.Pubkey == nil {
		return errors.Wrap(errors.ErrEmpty, "pubkey")
	}
	if err := msg.Pubkey.Validate(); err != nil {
		return errors.Wrap(err, "pubkey")
	}
	if msg.Signature == nil {
		return errors.Wrap(errors.ErrEmpty, "signature")
	}
	if err := msg.Signature.Validate(); err != nil {
		return errors.Wrap(err, "signature")
	}
	return validateMetadata(errors.ErrMsg, msg.Metadata)
}

// CreateTransactionMsg proposes a new transaction with the full payload
// stored in the account queue.
type CreateTransactionMsg struct {
	Account lockstep.Address `json:"account"`
	Creator lockstep.Address `json:"creator"`
	Payload []byte           `json:"payload"`
}

// Validate enforces that the payload is present.
func (msg *CreateTransactionMsg) Validate() error {
	if err := msg.Account.Validate(); err != nil {
		return errors.Wrap(err, "account")
	}
	if err := msg.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	if len(msg.Payload) == 0 {
		return errors.Wrap(errors.ErrEmpty, "payload")
	}
	return nil
}

// CreateTransactionWithHashMsg proposes a new transaction identified only by
// a payload digest. The full payload must be provided when the transaction
// is executed and must hash to the stored digest.
type CreateTransactionWithHashMsg struct {
	Account     lockstep.Address `json:"account"`
	Creator     lockstep.Address `json:"creator"`
	PayloadHash []byte           `json:"payload_hash"`
}

// Validate enforces the digest size.
func (msg *CreateTransactionWithHashMsg) Validate() error {
	if err := msg.Account.Validate(); err != nil {
		return errors.Wrap(err, "account")
	}
	if err := msg.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	if len(msg.PayloadHash) != PayloadHashSize {
		return errors.Wrapf(errors.ErrMsg, "payload hash must be %d bytes", PayloadHashSize)
	}
	return nil
}

// VoteMsg casts or changes a vote on a pending transaction. The latest vote
// of an owner wins.
type VoteMsg struct {
	Account  lockstep.Address `json:"account"`
	Owner    lockstep.Address `json:"owner"`
	Sequence Seq              `json:"sequence"`
	Approve  bool             `json:"approve"`
}

// Validate enforces that the vote addresses a concrete transaction.
func (msg *VoteMsg) Validate() error {
	if err := msg.Account.Validate(); err != nil {
		return errors.Wrap(err, "account")
	}
	if err := msg.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if msg.Sequence < 1 {
		return errors.Wrap(errors.ErrMsg, "sequence must be positive")
	}
	return nil
}

// ExecuteMsg requests validation of a pending transaction for execution by
// the given executor. Payload may be empty when the transaction stores the
// full payload already.
type ExecuteMsg struct {
	Account  lockstep.Address `json:"account"`
	Executor lockstep.Address `json:"executor"`
	Sequence Seq              `json:"sequence"`
	Payload  []byte           `json:"payload,omitempty"`
}

// Validate enforces that the request addresses a concrete transaction.
func (msg *ExecuteMsg) Validate() error {
	if err := msg.Account.Validate(); err != nil {
		return errors.Wrap(err, "account")
	}
	if err := msg.Executor.Validate(); err != nil {
		return errors.Wrap(err, "executor")
	}
	if msg.Sequence < 1 {
		return errors.Wrap(errors.ErrMsg, "sequence must be positive")
	}
	return nil
}

// ExecuteRejectedMsg removes a sufficiently rejected transaction from the
// queue without running it.
type ExecuteRejectedMsg struct {
	Account  lockstep.Address `json:"account"`
	Executor lockstep.Address `json:"executor"`
	Sequence Seq              `json:"sequence"`
}

// Validate enforces that the request addresses a concrete transaction.
func (msg *ExecuteRejectedMsg) Validate() error {
	if err := msg.Account.Validate(); err != nil {
		return errors.Wrap(err, "account")
	}
	if err := msg.Executor.Validate(); err != nil {
		return errors.Wrap(err, "executor")
	}
	if msg.Sequence < 1 {
		return errors.Wrap(errors.ErrMsg, "sequence must be positive")
	}
	return nil
}
