package paymaster

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x"

	"github.com/hale-one/hale/x/token"
)

const payServiceFeeCost int64 = 100

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r weave.Registry, auth x.Authenticator, control token.Controller) {
	r = migration.SchemaMigratingRegistry("paymaster", r)

	r.Handle(&PayServiceFeeMsg{}, PayServiceFeeHandler{auth, control})
}

// PayServiceFeeHandler moves a token fee from the payer to the
// configured collector account.
type PayServiceFeeHandler struct {
	auth    x.Authenticator
	control token.Controller
}

var _ weave.Handler = PayServiceFeeHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h PayServiceFeeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: payServiceFeeCost}, nil
}

// Deliver pays the fee. The fee is a plain token transfer and leaves no
// state behind in this package.
func (h PayServiceFeeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, src, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf := mustLoadConf(db)
	if err := h.control.MoveTokens(db, src, conf.Collector, msg.Amount); err != nil {
		return nil, errors.Wrap(err, "cannot pay service fee")
	}
	return &weave.DeliverResult{}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h PayServiceFeeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*PayServiceFeeMsg, weave.Address, error) {
	var msg PayServiceFeeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}

	// apply a default for source
	src := msg.Src
	if src == nil {
		signer := x.AnySigner(ctx, h.auth)
		if signer == nil {
			return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
		}
		src = signer.Address()
	}

	authority, err := h.control.Authority(db, src)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot load payer account")
	}
	if !h.auth.HasAddress(ctx, authority) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "payer signature missing")
	}
	return &msg, src, nil
}
