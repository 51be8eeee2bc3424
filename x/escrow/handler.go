package escrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"

	"github.com/hale-one/hale/x/token"
)

const (
	// pay escrow cost up-front
	createEscrowCost  int64 = 300
	depositEscrowCost int64 = 100
	settleEscrowCost  int64 = 0
)

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r weave.Registry, auth x.Authenticator, cashctrl cash.Controller, tokenctrl token.Controller) {
	r = migration.SchemaMigratingRegistry("escrow", r)
	bucket := NewBucket()

	r.Handle(&CreateEscrowMsg{}, CreateEscrowHandler{auth, bucket})
	r.Handle(&DepositNativeMsg{}, DepositNativeHandler{auth, bucket, cashctrl})
	r.Handle(&DepositTokenMsg{}, DepositTokenHandler{auth, bucket, tokenctrl})
	r.Handle(&ReleaseEscrowMsg{}, ReleaseEscrowHandler{auth, bucket, cashctrl, tokenctrl})
	r.Handle(&RefundEscrowMsg{}, RefundEscrowHandler{auth, bucket, cashctrl, tokenctrl})
}

// RegisterQuery will register this bucket as "/escrows"
func RegisterQuery(qr weave.QueryRouter) {
	NewBucket().Register("escrows", qr)
}

// CreateEscrowHandler creates an empty draft escrow bound to a buyer and
// an intent hash.
type CreateEscrowHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ weave.Handler = CreateEscrowHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h CreateEscrowHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: createEscrowCost}, nil
}

// Deliver stores the draft escrow if no escrow exists yet for this buyer
// and intent hash.
func (h CreateEscrowHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}

	// apply a default for buyer
	buyer := msg.Buyer
	if buyer == nil {
		signer := x.AnySigner(ctx, h.auth)
		if signer == nil {
			return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
		}
		buyer = signer.Address()
	}

	key := escrowKey(buyer, msg.IntentHash)
	switch err := h.bucket.Has(db, key); {
	case err == nil:
		return nil, errors.Wrap(errors.ErrDuplicate, "escrow exists for this buyer and intent")
	case !errors.ErrNotFound.Is(err):
		return nil, errors.Wrap(err, "cannot check escrow existence")
	}

	escrow := &Escrow{
		Metadata:   &weave.Metadata{Schema: 1},
		Buyer:      buyer,
		Seller:     msg.Seller,
		IntentHash: msg.IntentHash,
		Amount:     msg.Amount,
		AssetKind:  msg.AssetKind,
		Status:     EscrowDraft,
		Address:    Condition(key).Address(),
	}
	if _, err := h.bucket.Put(db, key, escrow); err != nil {
		return nil, errors.Wrap(err, "cannot store escrow")
	}
	return &weave.DeliverResult{Data: key}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CreateEscrowHandler) validate(ctx weave.Context, tx weave.Tx) (*CreateEscrowMsg, error) {
	var msg CreateEscrowMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}

	// Buyer must authorize this (if not set, defaults to MainSigner).
	if msg.Buyer != nil {
		if !h.auth.HasAddress(ctx, msg.Buyer) {
			return nil, errors.Wrap(errors.ErrUnauthorized, "buyer signature missing")
		}
	}
	return &msg, nil
}

// DepositNativeHandler moves the escrowed amount of the native currency
// from the buyer into the custody account.
type DepositNativeHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	bank   cash.Controller
}

var _ weave.Handler = DepositNativeHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h DepositNativeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: depositEscrowCost}, nil
}

// Deliver funds the escrow. The transfer happens before the status write
// so a failed transfer leaves the escrow untouched.
func (h DepositNativeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, escrow, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	conf := mustLoadConf(db)
	amount := coin.NewCoin(int64(escrow.Amount), 0, conf.NativeTicker)
	if err := h.bank.MoveCoins(db, escrow.Buyer, escrow.Address, amount); err != nil {
		return nil, errors.Wrap(err, "cannot fund escrow")
	}

	escrow.Status = EscrowFunded
	if _, err := h.bucket.Put(db, msg.EscrowId, escrow); err != nil {
		return nil, errors.Wrap(err, "cannot store escrow")
	}
	return &weave.DeliverResult{Data: msg.EscrowId}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h DepositNativeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*DepositNativeMsg, *Escrow, error) {
	var msg DepositNativeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var escrow Escrow
	if err := h.bucket.One(db, msg.EscrowId, &escrow); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load escrow from the store")
	}
	if !h.auth.HasAddress(ctx, escrow.Buyer) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "buyer signature missing")
	}
	if escrow.AssetKind != AssetNative {
		return nil, nil, errors.Wrap(ErrAssetMismatch, "escrow is not denominated in the native currency")
	}
	if escrow.Status != EscrowDraft {
		return nil, nil, errors.Wrapf(errors.ErrState, "cannot deposit into escrow in status %s", escrow.Status)
	}
	return &msg, &escrow, nil
}

// DepositTokenHandler moves the escrowed amount of tokens from the buyer
// account into the vault at the custody address.
type DepositTokenHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	tokens token.Controller
}

var _ weave.Handler = DepositTokenHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h DepositTokenHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: depositEscrowCost}, nil
}

// Deliver funds the escrow from the buyer token account.
func (h DepositTokenHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, escrow, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// The buyer must hold the authority over the source token account.
	authority, err := h.tokens.Authority(db, escrow.Buyer)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load buyer token account")
	}
	if !authority.Equals(escrow.Buyer) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "buyer does not control the token account")
	}
	if err := h.tokens.MoveTokens(db, escrow.Buyer, escrow.Address, escrow.Amount); err != nil {
		return nil, errors.Wrap(err, "cannot fund escrow")
	}

	escrow.Status = EscrowFunded
	if _, err := h.bucket.Put(db, msg.EscrowId, escrow); err != nil {
		return nil, errors.Wrap(err, "cannot store escrow")
	}
	return &weave.DeliverResult{Data: msg.EscrowId}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h DepositTokenHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*DepositTokenMsg, *Escrow, error) {
	var msg DepositTokenMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var escrow Escrow
	if err := h.bucket.One(db, msg.EscrowId, &escrow); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load escrow from the store")
	}
	if !h.auth.HasAddress(ctx, escrow.Buyer) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "buyer signature missing")
	}
	if escrow.AssetKind != AssetToken {
		return nil, nil, errors.Wrap(ErrAssetMismatch, "escrow is not denominated in tokens")
	}
	if escrow.Status != EscrowDraft {
		return nil, nil, errors.Wrapf(errors.ErrState, "cannot deposit into escrow in status %s", escrow.Status)
	}
	return &msg, &escrow, nil
}

// ReleaseEscrowHandler pays the custodied amount out to the seller. Only
// the configured oracle can trigger it.
type ReleaseEscrowHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	bank   cash.Controller
	tokens token.Controller
}

var _ weave.Handler = ReleaseEscrowHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h ReleaseEscrowHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: settleEscrowCost}, nil
}

// Deliver moves the funds from the custody account to the seller and
// marks the escrow released.
func (h ReleaseEscrowHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, escrow, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := payout(db, h.bank, h.tokens, escrow, escrow.Seller); err != nil {
		return nil, err
	}
	escrow.Status = EscrowReleased
	if _, err := h.bucket.Put(db, msg.EscrowId, escrow); err != nil {
		return nil, errors.Wrap(err, "cannot store escrow")
	}
	return &weave.DeliverResult{Data: msg.EscrowId}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h ReleaseEscrowHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ReleaseEscrowMsg, *Escrow, error) {
	var msg ReleaseEscrowMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	escrow, err := loadFundedEscrow(ctx, db, h.auth, h.bucket, msg.EscrowId)
	if err != nil {
		return nil, nil, err
	}
	return &msg, escrow, nil
}

// RefundEscrowHandler returns the custodied amount to the buyer. Only the
// configured oracle can trigger it.
type RefundEscrowHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	bank   cash.Controller
	tokens token.Controller
}

var _ weave.Handler = RefundEscrowHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h RefundEscrowHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: settleEscrowCost}, nil
}

// Deliver moves the funds from the custody account back to the buyer and
// marks the escrow refunded.
func (h RefundEscrowHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, escrow, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := payout(db, h.bank, h.tokens, escrow, escrow.Buyer); err != nil {
		return nil, err
	}
	escrow.Status = EscrowRefunded
	if _, err := h.bucket.Put(db, msg.EscrowId, escrow); err != nil {
		return nil, errors.Wrap(err, "cannot store escrow")
	}
	return &weave.DeliverResult{Data: msg.EscrowId}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h RefundEscrowHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*RefundEscrowMsg, *Escrow, error) {
	var msg RefundEscrowMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	escrow, err := loadFundedEscrow(ctx, db, h.auth, h.bucket, msg.EscrowId)
	if err != nil {
		return nil, nil, err
	}
	return &msg, escrow, nil
}

// loadFundedEscrow loads an escrow ready for settlement and verifies the
// oracle authorized the transaction.
func loadFundedEscrow(ctx weave.Context, db weave.KVStore, auth x.Authenticator, bucket orm.ModelBucket, escrowID []byte) (*Escrow, error) {
	var escrow Escrow
	if err := bucket.One(db, escrowID, &escrow); err != nil {
		return nil, errors.Wrap(err, "cannot load escrow from the store")
	}
	conf := mustLoadConf(db)
	if !auth.HasAddress(ctx, conf.Oracle) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "oracle signature missing")
	}
	if escrow.Status != EscrowFunded {
		return nil, errors.Wrapf(errors.ErrState, "cannot settle escrow in status %s", escrow.Status)
	}
	return &escrow, nil
}

// payout moves the whole custodied amount from the custody account to the
// given destination, on whichever asset path the escrow was created for.
// It is the single side-effecting call of a settlement and must run
// before the status write.
func payout(db weave.KVStore, bank cash.Controller, tokens token.Controller, escrow *Escrow, dest weave.Address) error {
	switch escrow.AssetKind {
	case AssetNative:
		conf := mustLoadConf(db)
		amount := coin.NewCoin(int64(escrow.Amount), 0, conf.NativeTicker)
		if err := bank.MoveCoins(db, escrow.Address, dest, amount); err != nil {
			return errors.Wrap(err, "cannot pay out escrow")
		}
	case AssetToken:
		// The vault must still be controlled by the escrow itself.
		authority, err := tokens.Authority(db, escrow.Address)
		if err != nil {
			return errors.Wrap(err, "cannot load vault token account")
		}
		if !authority.Equals(escrow.Address) {
			return errors.Wrap(errors.ErrUnauthorized, "vault authority does not match escrow")
		}
		if err := tokens.MoveTokens(db, escrow.Address, dest, escrow.Amount); err != nil {
			return errors.Wrap(err, "cannot pay out escrow")
		}
	default:
		return errors.Wrap(ErrAssetMismatch, "unknown asset kind")
	}
	return nil
}
