package escrow

import (
	"math"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &CreateEscrowMsg{}, migration.NoModification)
	migration.MustRegister(1, &DepositNativeMsg{}, migration.NoModification)
	migration.MustRegister(1, &DepositTokenMsg{}, migration.NoModification)
	migration.MustRegister(1, &ReleaseEscrowMsg{}, migration.NoModification)
	migration.MustRegister(1, &RefundEscrowMsg{}, migration.NoModification)
}

// escrowIDSize is the length of an escrow identifier, the buyer address
// followed by the intent hash.
var escrowIDSize = weave.AddressLength + intentHashSize

var _ weave.Msg = (*CreateEscrowMsg)(nil)
var _ weave.Msg = (*DepositNativeMsg)(nil)
var _ weave.Msg = (*DepositTokenMsg)(nil)
var _ weave.Msg = (*ReleaseEscrowMsg)(nil)
var _ weave.Msg = (*RefundEscrowMsg)(nil)

// Path fulfills weave.Msg interface to allow routing
func (CreateEscrowMsg) Path() string {
	return "escrow/create"
}

// Validate makes sure that this is sensible
func (m *CreateEscrowMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.Buyer != nil {
		errs = errors.AppendField(errs, "Buyer", m.Buyer.Validate())
	}
	errs = errors.AppendField(errs, "Seller", m.Seller.Validate())
	if len(m.IntentHash) != intentHashSize {
		errs = errors.AppendField(errs, "IntentHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", intentHashSize))
	}
	if m.Amount == 0 {
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrAmount, "must be a positive amount"))
	} else if m.Amount > math.MaxInt64 {
		// The native path expresses the amount as a coin and cannot
		// represent anything bigger.
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrOverflow, "amount out of range"))
	}
	switch m.AssetKind {
	case AssetNative, AssetToken:
	default:
		errs = errors.AppendField(errs, "AssetKind",
			errors.Wrap(errors.ErrInput, "unknown asset kind"))
	}
	return errs
}

// Path fulfills weave.Msg interface to allow routing
func (DepositNativeMsg) Path() string {
	return "escrow/deposit_native"
}

// Validate makes sure that this is sensible
func (m *DepositNativeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "EscrowId", validateEscrowID(m.EscrowId))
	return errs
}

// Path fulfills weave.Msg interface to allow routing
func (DepositTokenMsg) Path() string {
	return "escrow/deposit_token"
}

// Validate makes sure that this is sensible
func (m *DepositTokenMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "EscrowId", validateEscrowID(m.EscrowId))
	return errs
}

// Path fulfills weave.Msg interface to allow routing
func (ReleaseEscrowMsg) Path() string {
	return "escrow/release"
}

// Validate makes sure that this is sensible
func (m *ReleaseEscrowMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "EscrowId", validateEscrowID(m.EscrowId))
	return errs
}

// Path fulfills weave.Msg interface to allow routing
func (RefundEscrowMsg) Path() string {
	return "escrow/refund"
}

// Validate makes sure that this is sensible
func (m *RefundEscrowMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "EscrowId", validateEscrowID(m.EscrowId))
	return errs
}

func validateEscrowID(id []byte) error {
	if len(id) != escrowIDSize {
		return errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", escrowIDSize)
	}
	return nil
}
