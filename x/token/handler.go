package token

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x"
)

const transferTokenCost int64 = 100

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r weave.Registry, auth x.Authenticator, control Controller) {
	r = migration.SchemaMigratingRegistry("token", r)

	r.Handle(&TransferMsg{}, TransferHandler{auth, control})
}

// RegisterQuery will register this bucket as "/tokens"
func RegisterQuery(qr weave.QueryRouter) {
	NewBucket().Register("tokens", qr)
}

// TransferHandler moves tokens between accounts on behalf of the source
// account authority.
type TransferHandler struct {
	auth    x.Authenticator
	control Controller
}

var _ weave.Handler = TransferHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h TransferHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: transferTokenCost}, nil
}

// Deliver moves the tokens from source to destination if all
// preconditions are met.
func (h TransferHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, src, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.control.MoveTokens(db, src, msg.Dest, msg.Amount); err != nil {
		return nil, err
	}
	return &weave.DeliverResult{}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h TransferHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*TransferMsg, weave.Address, error) {
	var msg TransferMsg
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

	// The recorded account authority must approve the transfer.
	authority, err := h.control.Authority(db, src)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot load source account")
	}
	if !h.auth.HasAddress(ctx, authority) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "authority signature missing")
	}
	return &msg, src, nil
}
