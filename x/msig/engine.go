package msig

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/store"
)

// Config is the static engine configuration.
type Config struct {
	// ChainID scopes all signed attestations to a single deployment. It
	// must match the chain ID rules of the lockstep package.
	ChainID string

	// MaxPending limits the number of unresolved transactions that a
	// single account can queue. Zero means DefaultMaxPending.
	MaxPending uint32

	// Sink receives every event the engine emits. Nil means events are
	// dropped.
	Sink Sink

	// Now is the time source used for creation timestamps. Nil means
	// time.Now.
	Now func() time.Time
}

// Engine maintains all sequenced multi owner accounts of a single
// deployment. All methods are safe for concurrent use. Operations touching
// different accounts run in parallel, operations on the same account are
// serialized by the underlying store.
type Engine struct {
	accounts   *store.Store
	chainID    string
	maxPending uint32
	sink       Sink
	now        func() time.Time
}

// NewEngine returns an engine with an empty account set.
func NewEngine(conf Config) (*Engine, error) {
	if !lockstep.IsValidChainID(conf.ChainID) {
		return nil, errors.Wrapf(errors.ErrInput, "invalid chain ID %q", conf.ChainID)
	}
	e := &Engine{
		accounts:   store.New(),
		chainID:    conf.ChainID,
		maxPending: conf.MaxPending,
		sink:       conf.Sink,
		now:        conf.Now,
	}
	if e.maxPending == 0 {
		e.maxPending = DefaultMaxPending
	}
	if e.sink == nil {
		e.sink = NopSink{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// ChainID returns the chain ID this engine is scoped to.
func (e *Engine) ChainID() string {
	return e.chainID
}

// DeriveAddress returns the address that an account created by the given
// creator with the given nonce receives. The derivation is deterministic so
// an account address is known before the account exists.
func DeriveAddress(creator lockstep.Address, nonce uint64) lockstep.Address {
	data := make([]byte, 0, len(creator)+8)
	data = append(data, creator...)
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, nonce)
	data = append(data, raw...)
	return lockstep.NewCondition(ExtensionName, "seq", data).Address()
}

// loadAccount returns a private copy of the account state. Mutating the
// result does not affect the engine.
func (e *Engine) loadAccount(address lockstep.Address) (*Account, error) {
	if err := address.Validate(); err != nil {
		return nil, errors.Wrap(err, "address")
	}
	rec, err := e.accounts.Get(address)
	if err != nil {
		return nil, errors.Wrapf(err, "account %s", address)
	}
	acct, ok := rec.(*Account)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", rec)
	}
	return acct, nil
}

// updateAccount applies fn to the account under its key lock. The change is
// visible to others only if fn returns nil and the result validates.
func (e *Engine) updateAccount(address lockstep.Address, fn func(*Account) error) error {
	if err := address.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	err := e.accounts.Update(address, func(rec store.Record) (store.Record, error) {
		acct, ok := rec.(*Account)
		if !ok {
			return nil, errors.Wrapf(errors.ErrType, "%T", rec)
		}
		if err := fn(acct); err != nil {
			return nil, err
		}
		return acct, nil
	})
	if err != nil {
		return errors.Wrapf(err, "account %s", address)
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	e.sink.Emit(ctx, ev)
}

// resolveAuthority returns the pending transaction an authority is bound
// to. It fails unless the transaction is still pending and next in line,
// which makes every authority single use: once the transaction is
// finalized, the capability is dead.
func resolveAuthority(acct *Account, auth Authority) (*Transaction, error) {
	if auth.sequence == 0 {
		return nil, errors.Wrap(ErrAuthority, "authority was never granted")
	}
	if !auth.account.Equals(acct.Address) {
		return nil, errors.Wrap(ErrAuthority, "authority belongs to another account")
	}
	switch {
	case auth.sequence <= acct.LastExecuted:
		return nil, errors.Wrapf(ErrAuthority, "transaction %d is already resolved", auth.sequence)
	case auth.sequence > acct.LastExecuted+1:
		return nil, errors.Wrapf(errors.ErrHuman, "authority %d is ahead of the execution cursor %d", auth.sequence, acct.LastExecuted+1)
	}
	tx, ok := acct.Pending[auth.sequence]
	if !ok {
		// A missing transaction at the execution cursor means the
		// account state is corrupted.
		return nil, errors.Wrapf(errors.ErrHuman, "no pending transaction at the execution cursor %d", auth.sequence)
	}
	return tx, nil
}
