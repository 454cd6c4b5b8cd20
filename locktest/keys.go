package locktest

import (
	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/crypto"
)

func NewKey() crypto.Signer {
	return crypto.GenPrivKeyEd25519()
}

func NewCondition() lockstep.Condition {
	return NewKey().PublicKey().Condition()
}
