package token

import (
	"github.com/iov-one/weave"
	"github.com/pkg/errors"
)

var _ weave.Initializer = (*Initializer)(nil)

// Initializer fulfils the Initializer interface to load data from the
// genesis file
type Initializer struct{}

// FromGenesis will parse initial token accounts from genesis and save
// them in the database.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, db weave.KVStore) error {
	var accounts []struct {
		Address weave.Address `json:"address"`
		Balance uint64        `json:"balance"`
	}
	if err := opts.ReadOptions("token", &accounts); err != nil {
		return err
	}
	bucket := NewBucket()
	for i, a := range accounts {
		acct := TokenAccount{
			Metadata:  &weave.Metadata{Schema: 1},
			Authority: a.Address,
			Balance:   a.Balance,
		}
		if err := acct.Validate(); err != nil {
			return errors.Wrapf(err, "invalid token account at position: %d", i)
		}
		if _, err := bucket.Put(db, a.Address, &acct); err != nil {
			return errors.Wrap(err, "cannot store token account")
		}
	}
	return nil
}
