package token

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &TransferMsg{}, migration.NoModification)
}

var _ weave.Msg = (*TransferMsg)(nil)

// Path fulfills weave.Msg interface to allow routing
func (TransferMsg) Path() string {
	return "token/transfer"
}

// Validate makes sure that this is sensible
func (m *TransferMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.Src != nil {
		errs = errors.AppendField(errs, "Src", m.Src.Validate())
	}
	errs = errors.AppendField(errs, "Dest", m.Dest.Validate())
	if m.Amount == 0 {
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrAmount, "must be a positive amount"))
	}
	return errs
}
