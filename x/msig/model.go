package msig

import (
	"bytes"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/store"
	"golang.org/x/crypto/sha3"
)

const (
	// ExtensionName is used in the derivation of account addresses and as
	// the namespace of genesis options.
	ExtensionName = "msig"

	// To avoid burning CPU, this is the maximum number of owners allowed
	// to be part of a single account.
	maxOwnersAllowed = 100

	// DefaultMaxPending is the default limit of unresolved transactions
	// that a single account can hold before new submissions are refused.
	DefaultMaxPending = 20

	// PayloadHashSize is the size of a sha3-256 payload digest.
	PayloadHashSize = 32

	maxMetadataPairs     = 100
	maxMetadataKeySize   = 128
	maxMetadataValueSize = 4096
)

// Seq is the position of a transaction in the history of a single account.
// Sequence numbers start at 1 and are assigned without gaps.
type Seq uint64

// Account is a multi owner account. All state that the owners jointly
// control lives here, together with the transaction queue cursors.
//
// LastExecuted is the sequence of the most recently resolved transaction and
// NextSeq is the sequence that the next created transaction receives. Every
// pending transaction lives in the window between the two.
type Account struct {
	Address      lockstep.Address     `json:"address"`
	Owners       []lockstep.Address   `json:"owners"`
	Threshold    uint32               `json:"threshold"`
	LastExecuted Seq                  `json:"last_executed"`
	NextSeq      Seq                  `json:"next_seq"`
	Pending      map[Seq]*Transaction `json:"pending"`
	Metadata     map[string][]byte    `json:"metadata,omitempty"`
	Migrated     bool                 `json:"migrated,omitempty"`
	CreatedAt    lockstep.UnixTime    `json:"created_at"`
}

var _ store.Record = (*Account)(nil)

// Validate returns an error if the account is not persistable.
func (a *Account) Validate() error {
	if err := a.Address.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	if err := validateOwningConfig(errors.ErrModel, a.Address, a.Owners, a.Threshold); err != nil {
		return err
	}
	if a.NextSeq < 1 {
		return errors.Wrap(errors.ErrModel, "next sequence must be positive")
	}
	if a.LastExecuted >= a.NextSeq {
		return errors.Wrap(errors.ErrModel, "executed cursor beyond next sequence")
	}
	for seq, tx := range a.Pending {
		if tx == nil {
			return errors.Wrapf(errors.ErrModel, "transaction %d is nil", seq)
		}
		if tx.Sequence != seq {
			return errors.Wrapf(errors.ErrModel, "transaction %d keyed as %d", tx.Sequence, seq)
		}
		if seq <= a.LastExecuted || seq >= a.NextSeq {
			return errors.Wrapf(errors.ErrModel, "transaction %d outside of the pending window", seq)
		}
		if err := tx.Validate(); err != nil {
			return errors.Wrapf(err, "transaction %d", seq)
		}
	}
	if err := validateMetadata(errors.ErrModel, a.Metadata); err != nil {
		return err
	}
	if err := a.CreatedAt.Validate(); err != nil {
		return errors.Wrap(err, "created at")
	}
	return nil
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() store.Record {
	owners := make([]lockstep.Address, 0, len(a.Owners))
	for _, o := range a.Owners {
		owners = append(owners, o.Clone())
	}
	var pending map[Seq]*Transaction
	if a.Pending != nil {
		pending = make(map[Seq]*Transaction, len(a.Pending))
		for seq, tx := range a.Pending {
			pending[seq] = tx.Copy()
		}
	}
	return &Account{
		Address:      a.Address.Clone(),
		Owners:       owners,
		Threshold:    a.Threshold,
		LastExecuted: a.LastExecuted,
		NextSeq:      a.NextSeq,
		Pending:      pending,
		Metadata:     copyMetadata(a.Metadata),
		Migrated:     a.Migrated,
		CreatedAt:    a.CreatedAt,
	}
}

// IsOwner returns true if given address is a current owner of the account.
func (a *Account) IsOwner(addr lockstep.Address) bool {
	for _, o := range a.Owners {
		if o.Equals(addr) {
			return true
		}
	}
	return false
}

// Transaction is a single proposal in the account queue, together with all
// votes cast on it so far.
//
// PayloadHash is always set. Payload may be nil when the proposal was
// created with only the digest, in which case the full payload must be
// provided at execution time.
type Transaction struct {
	Sequence    Seq               `json:"sequence"`
	Creator     lockstep.Address  `json:"creator"`
	Payload     []byte            `json:"payload,omitempty"`
	PayloadHash []byte            `json:"payload_hash"`
	Votes       map[string]bool   `json:"votes"`
	CreatedAt   lockstep.UnixTime `json:"created_at"`
}

// Validate returns an error if the transaction is not persistable.
func (tx *Transaction) Validate() error {
	if tx.Sequence < 1 {
		return errors.Wrap(errors.ErrModel, "sequence must be positive")
	}
	if err := tx.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	if len(tx.PayloadHash) != PayloadHashSize {
		return errors.Wrapf(errors.ErrModel, "payload hash must be %d bytes", PayloadHashSize)
	}
	if tx.Payload != nil && !bytes.Equal(tx.PayloadHash, HashPayload(tx.Payload)) {
		return errors.Wrap(errors.ErrModel, "payload hash does not match the payload")
	}
	for voter := range tx.Votes {
		if _, err := lockstep.ParseAddress(voter); err != nil {
			return errors.Wrapf(err, "voter %q", voter)
		}
	}
	if err := tx.CreatedAt.Validate(); err != nil {
		return errors.Wrap(err, "created at")
	}
	return nil
}

// Copy returns a deep copy of the transaction.
func (tx *Transaction) Copy() *Transaction {
	var payload []byte
	if tx.Payload != nil {
		payload = make([]byte, len(tx.Payload))
		copy(payload, tx.Payload)
	}
	hash := make([]byte, len(tx.PayloadHash))
	copy(hash, tx.PayloadHash)
	var votes map[string]bool
	if tx.Votes != nil {
		votes = make(map[string]bool, len(tx.Votes))
		for voter, approved := range tx.Votes {
			votes[voter] = approved
		}
	}
	return &Transaction{
		Sequence:    tx.Sequence,
		Creator:     tx.Creator.Clone(),
		Payload:     payload,
		PayloadHash: hash,
		Votes:       votes,
		CreatedAt:   tx.CreatedAt,
	}
}

// Vote returns how given owner voted on this transaction. The second return
// value is false when the owner did not vote at all.
func (tx *Transaction) Vote(owner lockstep.Address) (approved bool, voted bool) {
	approved, voted = tx.Votes[owner.String()]
	return approved, voted
}

// ExecutionError describes why the execution harness failed to apply a
// payload. It is recorded with the failure event so that the full history
// can be reconstructed from the event log.
type ExecutionError struct {
	Location string `json:"location"`
	Kind     string `json:"kind"`
	Code     uint32 `json:"code"`
}

// Validate returns an error if this is not a usable failure description.
func (e ExecutionError) Validate() error {
	if e.Kind == "" {
		return errors.Wrap(errors.ErrEmpty, "kind")
	}
	return nil
}

// AsExecutionError converts a harness failure into an ExecutionError. The
// error code is preserved when the error wraps a registered root error.
func AsExecutionError(err error) ExecutionError {
	if err == nil {
		return ExecutionError{}
	}
	return ExecutionError{
		Location: "harness",
		Kind:     "error",
		Code:     errors.Code(err),
	}
}

// HashPayload returns the sha3-256 digest that owners vote on when a
// proposal is created with only a payload digest.
func HashPayload(payload []byte) []byte {
	h := sha3.Sum256(payload)
	return h[:]
}

// validateOwningConfig returns an error if given owners and threshold
// configuration is not valid. This check is done on model and messages so
// instead of copying the code it is extracted into this function.
func validateOwningConfig(
	baseErr error,
	account lockstep.Address,
	owners []lockstep.Address,
	threshold uint32,
) error {
	switch n := len(owners); {
	case n == 0:
		return errors.Wrap(baseErr, "no owners")
	case n > maxOwnersAllowed:
		return errors.Wrap(baseErr, "too many owners")
	}
	for i, o := range owners {
		if err := o.Validate(); err != nil {
			return errors.Wrapf(err, "owner #%d", i)
		}
		if o.Equals(account) {
			return errors.Wrap(baseErr, "account cannot own itself")
		}
		for _, prev := range owners[:i] {
			if prev.Equals(o) {
				return errors.Wrapf(baseErr, "duplicate owner %s", o)
			}
		}
	}
	if threshold < 1 {
		return errors.Wrap(baseErr, "threshold must be positive")
	}
	if int(threshold) > len(owners) {
		return errors.Wrap(baseErr, "threshold greater than the number of owners")
	}
	return nil
}

// validateMetadata returns an error if given metadata cannot be attached to
// an account.
func validateMetadata(baseErr error, md map[string][]byte) error {
	if len(md) > maxMetadataPairs {
		return errors.Wrap(baseErr, "too many metadata entries")
	}
	for key, value := range md {
		if key == "" {
			return errors.Wrap(baseErr, "empty metadata key")
		}
		if len(key) > maxMetadataKeySize {
			return errors.Wrapf(baseErr, "metadata key %q too long", key)
		}
		if len(value) > maxMetadataValueSize {
			return errors.Wrapf(baseErr, "metadata value of %q too long", key)
		}
	}
	return nil
}

func cloneAddresses(addrs []lockstep.Address) []lockstep.Address {
	if addrs == nil {
		return nil
	}
	cpy := make([]lockstep.Address, 0, len(addrs))
	for _, a := range addrs {
		cpy = append(cpy, a.Clone())
	}
	return cpy
}

func copyMetadata(md map[string][]byte) map[string][]byte {
	if md == nil {
		return nil
	}
	cpy := make(map[string][]byte, len(md))
	for key, value := range md {
		v := make([]byte, len(value))
		copy(v, value)
		cpy[key] = v
	}
	return cpy
}
