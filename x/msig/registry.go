package msig

import (
	"context"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
)

// AddOwners extends the owner set of the account the authority is bound
// to. New owners take part in every quorum from now on, including votes on
// transactions created before they joined. Adding nobody is a no-op that
// emits no event.
func (e *Engine) AddOwners(ctx context.Context, auth Authority, owners []lockstep.Address) error {
	if len(owners) == 0 {
		return nil
	}
	var ev AddOwnersEvent
	err := e.updateAccount(auth.account, func(acct *Account) error {
		if _, err := resolveAuthority(acct, auth); err != nil {
			return err
		}
		next := append(cloneAddresses(acct.Owners), cloneAddresses(owners)...)
		if err := validateOwningConfig(errors.ErrMsg, acct.Address, next, acct.Threshold); err != nil {
			return err
		}
		acct.Owners = next
		ev = AddOwnersEvent{
			Account: acct.Address.Clone(),
			Added:   cloneAddresses(owners),
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(ctx, ev)
	return nil
}

// RemoveOwners shrinks the owner set of the account the authority is bound
// to. Addresses that are not owners are ignored, removing nobody is a no-op
// that emits no event. Votes of removed owners stay recorded but no longer
// count towards any quorum. Removing so many owners that the threshold can
// no longer be met is refused.
func (e *Engine) RemoveOwners(ctx context.Context, auth Authority, owners []lockstep.Address) error {
	if len(owners) == 0 {
		return nil
	}
	var ev RemoveOwnersEvent
	err := e.updateAccount(auth.account, func(acct *Account) error {
		if _, err := resolveAuthority(acct, auth); err != nil {
			return err
		}
		removed, remaining := splitOwners(acct.Owners, owners)
		if len(removed) == 0 {
			return nil
		}
		if err := validateOwningConfig(errors.ErrState, acct.Address, remaining, acct.Threshold); err != nil {
			return err
		}
		acct.Owners = remaining
		ev = RemoveOwnersEvent{
			Account: acct.Address.Clone(),
			Removed: removed,
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(ev.Removed) != 0 {
		e.emit(ctx, ev)
	}
	return nil
}

// SwapOwners adds and removes owners in a single atomic step. The swap is
// validated against the final owner set, so replacing the only owner of a
// single owner account is possible where separate add and remove calls
// would not be.
func (e *Engine) SwapOwners(ctx context.Context, auth Authority, toAdd, toRemove []lockstep.Address) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}
	var (
		added   AddOwnersEvent
		removed RemoveOwnersEvent
	)
	err := e.updateAccount(auth.account, func(acct *Account) error {
		if _, err := resolveAuthority(acct, auth); err != nil {
			return err
		}
		gone, remaining := splitOwners(acct.Owners, toRemove)
		next := append(remaining, cloneAddresses(toAdd)...)
		if err := validateOwningConfig(errors.ErrState, acct.Address, next, acct.Threshold); err != nil {
			return err
		}
		acct.Owners = next
		if len(toAdd) != 0 {
			added = AddOwnersEvent{
				Account: acct.Address.Clone(),
				Added:   cloneAddresses(toAdd),
			}
		}
		if len(gone) != 0 {
			removed = RemoveOwnersEvent{
				Account: acct.Address.Clone(),
				Removed: gone,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(added.Added) != 0 {
		e.emit(ctx, added)
	}
	if len(removed.Removed) != 0 {
		e.emit(ctx, removed)
	}
	return nil
}

// UpdateThreshold changes how many approvals and rejections resolving a
// transaction takes. The new value binds all pending and future
// transactions alike. Setting the current value again is a no-op that emits
// no event.
func (e *Engine) UpdateThreshold(ctx context.Context, auth Authority, threshold uint32) error {
	var ev UpdateThresholdEvent
	err := e.updateAccount(auth.account, func(acct *Account) error {
		if _, err := resolveAuthority(acct, auth); err != nil {
			return err
		}
		if threshold == acct.Threshold {
			return nil
		}
		if err := validateOwningConfig(errors.ErrMsg, acct.Address, acct.Owners, threshold); err != nil {
			return err
		}
		ev = UpdateThresholdEvent{
			Account:      acct.Address.Clone(),
			OldThreshold: acct.Threshold,
			NewThreshold: threshold,
		}
		acct.Threshold = threshold
		return nil
	})
	if err != nil {
		return err
	}
	if ev.NewThreshold != 0 {
		e.emit(ctx, ev)
	}
	return nil
}

// splitOwners separates the current owner set into the part listed in
// toRemove and the part that remains.
func splitOwners(current, toRemove []lockstep.Address) (removed, remaining []lockstep.Address) {
	for _, o := range current {
		drop := false
		for _, r := range toRemove {
			if o.Equals(r) {
				drop = true
				break
			}
		}
		if drop {
			removed = append(removed, o.Clone())
		} else {
			remaining = append(remaining, o.Clone())
		}
	}
	return removed, remaining
}
