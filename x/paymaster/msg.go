package paymaster

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &PayServiceFeeMsg{}, migration.NoModification)
}

var _ weave.Msg = (*PayServiceFeeMsg)(nil)

// Path fulfills weave.Msg interface to allow routing
func (PayServiceFeeMsg) Path() string {
	return "paymaster/pay_service_fee"
}

// Validate makes sure that this is sensible
func (m *PayServiceFeeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.Src != nil {
		errs = errors.AppendField(errs, "Src", m.Src.Validate())
	}
	if m.Amount == 0 {
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrAmount, "must be a positive amount"))
	}
	return errs
}
