package escrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/gconf"
	"github.com/pkg/errors"
)

var _ weave.Initializer = (*Initializer)(nil)

// Initializer fulfils the Initializer interface to load data from the
// genesis file
type Initializer struct{}

// FromGenesis will parse initial escrow configuration from genesis and
// save it in the database.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, db weave.KVStore) error {
	var conf Configuration
	if err := gconf.InitConfig(db, opts, "escrow", &conf); err != nil {
		return errors.Wrap(err, "init config")
	}
	return nil
}
