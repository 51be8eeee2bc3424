package token

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &TokenAccount{}, migration.NoModification)
}

var _ orm.CloneableData = (*TokenAccount)(nil)

// Validate ensures the token account is valid.
func (a *TokenAccount) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", a.Metadata.Validate())
	errs = errors.AppendField(errs, "Authority", a.Authority.Validate())
	return errs
}

// Copy makes a deep copy of the account.
func (a *TokenAccount) Copy() orm.CloneableData {
	return &TokenAccount{
		Metadata:  a.Metadata.Copy(),
		Authority: a.Authority.Clone(),
		Balance:   a.Balance,
	}
}

// NewBucket returns a bucket of token accounts keyed by the holding
// address.
func NewBucket() orm.ModelBucket {
	b := orm.NewModelBucket("tok", &TokenAccount{})
	return migration.NewModelBucket("token", b)
}
