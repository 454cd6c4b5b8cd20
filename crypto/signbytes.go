package crypto

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
)

// SignCodeV1 is the current way to prefix the bytes we use to build
// a signature envelope
var SignCodeV1 = []byte{0, 0xC1, 0x0C, 0}

/*
BuildSignBytes combines all info that makes a signature binding to one chain
and one position in an account history.

We use the following format:

version | len(chainID) | chainID      | nonce              | payload
4bytes  | uint8        | ascii string | uint64 (bigendian) | serialized content

This is then prehashed with sha512 before fed into
the public key signing/verification step
*/
func BuildSignBytes(payload []byte, chainID string, nonce uint64) ([]byte, error) {
	if !lockstep.IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id: %v", chainID)
	}

	// encode nonce as 8 byte, big-endian
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, nonce)

	// concatentate everything
	output := make([]byte, 0, 4+1+len(chainID)+8+len(payload))
	output = append(output, SignCodeV1...)
	output = append(output, uint8(len(chainID)))
	output = append(output, []byte(chainID)...)
	output = append(output, seq...)
	output = append(output, payload...)

	// now, we take the sha512 hash of the result,
	// so we have a constant length output to feed into eddsa
	// which we need so ledger can support this as well
	hashed := sha512.Sum512(output)
	return hashed[:], nil
}
