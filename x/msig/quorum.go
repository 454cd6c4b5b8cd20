package msig

// Tally is the vote count of a single transaction, measured against the
// current owner set of the account.
type Tally struct {
	Approvals  uint32 `json:"approvals"`
	Rejections uint32 `json:"rejections"`
}

// tally counts the votes that were cast by current owners. Votes of owners
// that were removed after voting are excluded. If such an owner is later
// added back, the recorded vote counts again.
func (a *Account) tally(tx *Transaction) Tally {
	var t Tally
	for _, owner := range a.Owners {
		approved, voted := tx.Vote(owner)
		if !voted {
			continue
		}
		if approved {
			t.Approvals++
		} else {
			t.Rejections++
		}
	}
	return t
}

// executable returns true if the transaction is the next in line and holds
// enough approvals from the current owners.
func (a *Account) executable(tx *Transaction) bool {
	return tx.Sequence == a.LastExecuted+1 && a.tally(tx).Approvals >= a.Threshold
}

// rejectable returns true if the transaction is the next in line and holds
// enough rejections from the current owners.
func (a *Account) rejectable(tx *Transaction) bool {
	return tx.Sequence == a.LastExecuted+1 && a.tally(tx).Rejections >= a.Threshold
}
