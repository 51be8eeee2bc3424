package token

import (
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestTransferHandler(t *testing.T) {
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	stranger := weavetest.NewCondition()

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	ctrl := NewController(NewBucket())
	RegisterRoutes(rt, auth, ctrl)

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
		WantSrcBalance uint64
		WantDstBalance uint64
	}{
		"happy path with an explicit source": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{alice})
			},
			Tx: &weavetest.Tx{
				Msg: &TransferMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      alice.Address(),
					Dest:     bob.Address(),
					Amount:   30,
				},
			},
			WantSrcBalance: 70,
			WantDstBalance: 30,
		},
		"source defaults to the main signer": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{alice})
			},
			Tx: &weavetest.Tx{
				Msg: &TransferMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Dest:     bob.Address(),
					Amount:   100,
				},
			},
			WantSrcBalance: 0,
			WantDstBalance: 100,
		},
		"the account authority must sign": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{stranger})
			},
			Tx: &weavetest.Tx{
				Msg: &TransferMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      alice.Address(),
					Dest:     bob.Address(),
					Amount:   30,
				},
			},
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"a transfer above the balance fails": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{alice})
			},
			Tx: &weavetest.Tx{
				Msg: &TransferMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      alice.Address(),
					Dest:     bob.Address(),
					Amount:   101,
				},
			},
			WantDeliverErr: errors.ErrAmount,
		},
		"a transfer back to the source account fails": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{alice})
			},
			Tx: &weavetest.Tx{
				Msg: &TransferMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      alice.Address(),
					Dest:     alice.Address(),
					Amount:   30,
				},
			},
			WantDeliverErr: errors.ErrInput,
		},
		"a transfer out of a missing account fails": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{stranger})
			},
			Tx: &weavetest.Tx{
				Msg: &TransferMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      stranger.Address(),
					Dest:     bob.Address(),
					Amount:   1,
				},
			},
			WantCheckErr:   errors.ErrEmpty,
			WantDeliverErr: errors.ErrEmpty,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "token")
			assert.Nil(t, ctrl.IssueTokens(db, alice.Address(), 100))

			cache := db.CacheWrap()
			_, err := rt.Check(tc.Ctx(), cache, tc.Tx)
			assert.IsErr(t, tc.WantCheckErr, err)
			cache.Discard()

			_, err = rt.Deliver(tc.Ctx(), db, tc.Tx)
			assert.IsErr(t, tc.WantDeliverErr, err)
			if tc.WantDeliverErr != nil {
				return
			}

			balance, err := ctrl.Balance(db, alice.Address())
			assert.Nil(t, err)
			assert.Equal(t, tc.WantSrcBalance, balance)
			balance, err = ctrl.Balance(db, bob.Address())
			assert.Nil(t, err)
			assert.Equal(t, tc.WantDstBalance, balance)
		})
	}
}
