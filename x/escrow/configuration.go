package escrow

import (
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &Configuration{}, migration.NoModification)
}

func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Oracle", c.Oracle.Validate())
	if !coin.IsCC(c.NativeTicker) {
		errs = errors.AppendField(errs, "NativeTicker",
			errors.Wrapf(errors.ErrCurrency, "invalid ticker %q", c.NativeTicker))
	}
	return errs
}

func mustLoadConf(db gconf.Store) Configuration {
	var conf Configuration
	if err := gconf.Load(db, "escrow", &conf); err != nil {
		err = errors.Wrap(err, "load configuration")
		panic(err)
	}
	return conf
}
