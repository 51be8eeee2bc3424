package escrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Escrow{}, migration.NoModification)
}

// intentHashSize is the exact byte length of an intent hash. The same
// value correlates an escrow with an attestation.
const intentHashSize = 32

var _ orm.CloneableData = (*Escrow)(nil)

// Validate ensures the escrow is valid.
func (e *Escrow) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", e.Metadata.Validate())
	errs = errors.AppendField(errs, "Buyer", e.Buyer.Validate())
	errs = errors.AppendField(errs, "Seller", e.Seller.Validate())
	if len(e.IntentHash) != intentHashSize {
		errs = errors.AppendField(errs, "IntentHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", intentHashSize))
	}
	if e.Amount == 0 {
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrAmount, "must be a positive amount"))
	}
	switch e.AssetKind {
	case AssetNative, AssetToken:
	default:
		errs = errors.AppendField(errs, "AssetKind",
			errors.Wrap(errors.ErrInput, "unknown asset kind"))
	}
	switch e.Status {
	case EscrowDraft, EscrowFunded, EscrowReleased, EscrowRefunded:
	default:
		errs = errors.AppendField(errs, "Status",
			errors.Wrap(errors.ErrState, "unknown status"))
	}
	errs = errors.AppendField(errs, "Address", e.Address.Validate())
	return errs
}

// Copy makes a deep copy of the escrow.
func (e *Escrow) Copy() orm.CloneableData {
	return &Escrow{
		Metadata:   e.Metadata.Copy(),
		Buyer:      e.Buyer.Clone(),
		Seller:     e.Seller.Clone(),
		IntentHash: append([]byte(nil), e.IntentHash...),
		Amount:     e.Amount,
		AssetKind:  e.AssetKind,
		Status:     e.Status,
		Address:    e.Address.Clone(),
	}
}

// escrowKey is the natural bucket key. Exactly one escrow can exist per
// buyer and intent hash pair.
func escrowKey(buyer weave.Address, intentHash []byte) []byte {
	key := make([]byte, 0, len(buyer)+len(intentHash))
	key = append(key, buyer...)
	return append(key, intentHash...)
}

// Condition returns the condition of the custody account for the given
// escrow key. Its address holds the deposit between funding and
// settlement. No transaction signer can authorize transfers out of it,
// only handlers in this package move the funds.
func Condition(key []byte) weave.Condition {
	return weave.NewCondition("escrow", "seed", key)
}

func NewBucket() orm.ModelBucket {
	b := orm.NewModelBucket("esc", &Escrow{},
		orm.WithIndex("seller", idxSeller, false),
		orm.WithIndex("intent_hash", idxIntentHash, false),
	)
	return migration.NewModelBucket("escrow", b)
}

func toEscrow(obj orm.Object) (*Escrow, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "Cannot take index of nil")
	}
	esc, ok := obj.Value().(*Escrow)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "Can only take index of Escrow")
	}
	return esc, nil
}

func idxSeller(obj orm.Object) ([]byte, error) {
	esc, err := toEscrow(obj)
	if err != nil {
		return nil, err
	}
	return esc.Seller, nil
}

func idxIntentHash(obj orm.Object) ([]byte, error) {
	esc, err := toEscrow(obj)
	if err != nil {
		return nil, err
	}
	return esc.IntentHash, nil
}
