package paymaster

import (
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"

	"github.com/hale-one/hale/x/token"
)

func TestPayServiceFeeByCollector(t *testing.T) {
	collector := weavetest.NewCondition()

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	ctrl := token.NewController(token.NewBucket())
	RegisterRoutes(rt, auth, ctrl)

	db := store.MemStore()
	migration.MustInitPkg(db, "paymaster", "token")
	conf := Configuration{
		Metadata:  &weave.Metadata{Schema: 1},
		Collector: collector.Address(),
	}
	if err := gconf.Save(db, "paymaster", &conf); err != nil {
		t.Fatalf("cannot save configuration: %s", err)
	}
	assert.Nil(t, ctrl.IssueTokens(db, collector.Address(), 100))

	// the collector paying itself must not change the supply
	ctx := context.WithValue(context.Background(), "auth", []weave.Condition{collector})
	tx := &weavetest.Tx{
		Msg: &PayServiceFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			Amount:   25,
		},
	}
	_, err := rt.Deliver(ctx, db, tx)
	assert.IsErr(t, errors.ErrInput, err)

	balance, err := ctrl.Balance(db, collector.Address())
	assert.Nil(t, err)
	assert.Equal(t, uint64(100), balance)
}

func TestPayServiceFeeHandler(t *testing.T) {
	payer := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	collector := weavetest.NewCondition().Address()

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	ctrl := token.NewController(token.NewBucket())
	RegisterRoutes(rt, auth, ctrl)

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
		WantCollected  uint64
	}{
		"happy path with an explicit payer": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{payer})
			},
			Tx: &weavetest.Tx{
				Msg: &PayServiceFeeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      payer.Address(),
					Amount:   25,
				},
			},
			WantCollected: 25,
		},
		"payer defaults to the main signer": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{payer})
			},
			Tx: &weavetest.Tx{
				Msg: &PayServiceFeeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Amount:   100,
				},
			},
			WantCollected: 100,
		},
		"the payer must sign": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{stranger})
			},
			Tx: &weavetest.Tx{
				Msg: &PayServiceFeeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      payer.Address(),
					Amount:   25,
				},
			},
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"no signer at all": {
			Ctx: func() context.Context {
				return context.Background()
			},
			Tx: &weavetest.Tx{
				Msg: &PayServiceFeeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Amount:   25,
				},
			},
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"a fee above the balance fails": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{payer})
			},
			Tx: &weavetest.Tx{
				Msg: &PayServiceFeeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Src:      payer.Address(),
					Amount:   101,
				},
			},
			WantDeliverErr: errors.ErrAmount,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "paymaster", "token")
			conf := Configuration{
				Metadata:  &weave.Metadata{Schema: 1},
				Collector: collector,
			}
			if err := gconf.Save(db, "paymaster", &conf); err != nil {
				t.Fatalf("cannot save configuration: %s", err)
			}
			assert.Nil(t, ctrl.IssueTokens(db, payer.Address(), 100))

			cache := db.CacheWrap()
			_, err := rt.Check(tc.Ctx(), cache, tc.Tx)
			assert.IsErr(t, tc.WantCheckErr, err)
			cache.Discard()

			_, err = rt.Deliver(tc.Ctx(), db, tc.Tx)
			assert.IsErr(t, tc.WantDeliverErr, err)
			if tc.WantDeliverErr != nil {
				return
			}

			balance, err := ctrl.Balance(db, collector)
			assert.Nil(t, err)
			assert.Equal(t, tc.WantCollected, balance)
		})
	}
}
