package msig

import (
	"encoding/json"
	"testing"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/locktest"
	"github.com/tessara-io/lockstep/locktest/assert"
)

func TestGenesisAccounts(t *testing.T) {
	const genesis = `
		{
			"msig": [
				{
					"creator": "1111111111111111111111111111111111111111",
					"nonce": 1,
					"owners": [
						"AAAABBBBCCCCDDDDEEEEFFFF0000111122223333",
						"1234567890123456789012345678901234567890"
					],
					"threshold": 2,
					"metadata": {
						"name": "dHJlYXN1cnk="
					}
				},
				{
					"creator": "1111111111111111111111111111111111111111",
					"nonce": 2,
					"owners": [
						"AAAABBBBCCCCDDDDEEEEFFFF0000111122223333"
					],
					"threshold": 1
				}
			]
		}
	`

	var opts lockstep.Options
	assert.Nil(t, json.Unmarshal([]byte(genesis), &opts))

	e, _ := newTestEngine(t, Config{})
	assert.Nil(t, e.FromGenesis(opts))

	creator := locktest.DecodeAddr(t, "1111111111111111111111111111111111111111")

	first, err := e.GetAccount(DeriveAddress(creator, 1))
	assert.Nil(t, err)
	assert.Equal(t, 2, len(first.Owners))
	assert.Equal(t, uint32(2), first.Threshold)
	assert.Equal(t, "treasury", string(first.Metadata["name"]))

	second, err := e.GetAccount(DeriveAddress(creator, 2))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(second.Owners))
	assert.Equal(t, uint32(1), second.Threshold)
}

func TestGenesisWithoutAccounts(t *testing.T) {
	var opts lockstep.Options
	assert.Nil(t, json.Unmarshal([]byte(`{}`), &opts))

	e, _ := newTestEngine(t, Config{})
	assert.Nil(t, e.FromGenesis(opts))
}

func TestGenesisRejectsBrokenAccount(t *testing.T) {
	const genesis = `
		{
			"msig": [
				{
					"creator": "1111111111111111111111111111111111111111",
					"nonce": 1,
					"owners": ["AAAABBBBCCCCDDDDEEEEFFFF0000111122223333"],
					"threshold": 5
				}
			]
		}
	`
	var opts lockstep.Options
	assert.Nil(t, json.Unmarshal([]byte(genesis), &opts))

	e, _ := newTestEngine(t, Config{})
	assert.IsErr(t, errors.ErrMsg, e.FromGenesis(opts))
}
