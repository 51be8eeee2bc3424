package escrow

import (
	"bytes"
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/cash"

	"github.com/hale-one/hale/x/token"
)

func TestCreateEscrowHandler(t *testing.T) {
	buyer := weavetest.NewCondition()
	seller := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	intentHash := bytes.Repeat([]byte{0xb1}, intentHashSize)

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	cashctrl := cash.NewController(cash.NewBucket())
	tokenctrl := token.NewController(token.NewBucket())
	RegisterRoutes(rt, auth, cashctrl, tokenctrl)

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		Prepare        func(t *testing.T, db weave.KVStore)
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
		WantStatus     EscrowStatus
	}{
		"happy path with an explicit buyer": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateEscrowMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Buyer:      buyer.Address(),
					Seller:     seller.Address(),
					IntentHash: intentHash,
					Amount:     100,
					AssetKind:  AssetNative,
				},
			},
			WantStatus: EscrowDraft,
		},
		"buyer defaults to the main signer": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateEscrowMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Seller:     seller.Address(),
					IntentHash: intentHash,
					Amount:     100,
					AssetKind:  AssetToken,
				},
			},
			WantStatus: EscrowDraft,
		},
		"buyer signature is required": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{stranger})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateEscrowMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Buyer:      buyer.Address(),
					Seller:     seller.Address(),
					IntentHash: intentHash,
					Amount:     100,
					AssetKind:  AssetNative,
				},
			},
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"a second escrow for the same buyer and intent is rejected": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Prepare: func(t *testing.T, db weave.KVStore) {
				putEscrow(t, db, &Escrow{
					Metadata:   &weave.Metadata{Schema: 1},
					Buyer:      buyer.Address(),
					Seller:     seller.Address(),
					IntentHash: intentHash,
					Amount:     5,
					AssetKind:  AssetNative,
					Status:     EscrowDraft,
				})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateEscrowMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Buyer:      buyer.Address(),
					Seller:     seller.Address(),
					IntentHash: intentHash,
					Amount:     100,
					AssetKind:  AssetNative,
				},
			},
			WantDeliverErr: errors.ErrDuplicate,
		},
		"a zero amount is rejected": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateEscrowMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Buyer:      buyer.Address(),
					Seller:     seller.Address(),
					IntentHash: intentHash,
					Amount:     0,
					AssetKind:  AssetNative,
				},
			},
			WantCheckErr:   errors.ErrAmount,
			WantDeliverErr: errors.ErrAmount,
		},
		"a truncated intent hash is rejected": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateEscrowMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Buyer:      buyer.Address(),
					Seller:     seller.Address(),
					IntentHash: intentHash[:16],
					Amount:     100,
					AssetKind:  AssetNative,
				},
			},
			WantCheckErr:   errors.ErrInput,
			WantDeliverErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "escrow", "token", "cash")
			if tc.Prepare != nil {
				tc.Prepare(t, db)
			}

			cache := db.CacheWrap()
			_, err := rt.Check(tc.Ctx(), cache, tc.Tx)
			assert.IsErr(t, tc.WantCheckErr, err)
			cache.Discard()

			res, err := rt.Deliver(tc.Ctx(), db, tc.Tx)
			assert.IsErr(t, tc.WantDeliverErr, err)
			if tc.WantDeliverErr != nil {
				return
			}

			var escrow Escrow
			if err := NewBucket().One(db, res.Data, &escrow); err != nil {
				t.Fatalf("cannot load created escrow: %s", err)
			}
			if escrow.Status != tc.WantStatus {
				t.Fatalf("unexpected status %s", escrow.Status)
			}
			wantAddr := Condition(res.Data).Address()
			if !escrow.Address.Equals(wantAddr) {
				t.Fatalf("unexpected custody address %s", escrow.Address)
			}
		})
	}
}

func TestDepositEscrowHandlers(t *testing.T) {
	buyer := weavetest.NewCondition()
	seller := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	intentHash := bytes.Repeat([]byte{0xb2}, intentHashSize)
	escrowID := escrowKey(buyer.Address(), intentHash)

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	cashctrl := cash.NewController(cash.NewBucket())
	tokenctrl := token.NewController(token.NewBucket())
	RegisterRoutes(rt, auth, cashctrl, tokenctrl)

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		Escrow         *Escrow
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
	}{
		"native deposit moves the coins into custody": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &DepositNativeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow: &Escrow{
				Metadata:   &weave.Metadata{Schema: 1},
				Buyer:      buyer.Address(),
				Seller:     seller.Address(),
				IntentHash: intentHash,
				Amount:     100,
				AssetKind:  AssetNative,
				Status:     EscrowDraft,
			},
		},
		"token deposit moves the tokens into the vault": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &DepositTokenMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow: &Escrow{
				Metadata:   &weave.Metadata{Schema: 1},
				Buyer:      buyer.Address(),
				Seller:     seller.Address(),
				IntentHash: intentHash,
				Amount:     100,
				AssetKind:  AssetToken,
				Status:     EscrowDraft,
			},
		},
		"native deposit into a token escrow is rejected": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &DepositNativeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow: &Escrow{
				Metadata:   &weave.Metadata{Schema: 1},
				Buyer:      buyer.Address(),
				Seller:     seller.Address(),
				IntentHash: intentHash,
				Amount:     100,
				AssetKind:  AssetToken,
				Status:     EscrowDraft,
			},
			WantCheckErr:   ErrAssetMismatch,
			WantDeliverErr: ErrAssetMismatch,
		},
		"token deposit into a native escrow is rejected": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &DepositTokenMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow: &Escrow{
				Metadata:   &weave.Metadata{Schema: 1},
				Buyer:      buyer.Address(),
				Seller:     seller.Address(),
				IntentHash: intentHash,
				Amount:     100,
				AssetKind:  AssetNative,
				Status:     EscrowDraft,
			},
			WantCheckErr:   ErrAssetMismatch,
			WantDeliverErr: ErrAssetMismatch,
		},
		"a second deposit is rejected": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &DepositNativeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow: &Escrow{
				Metadata:   &weave.Metadata{Schema: 1},
				Buyer:      buyer.Address(),
				Seller:     seller.Address(),
				IntentHash: intentHash,
				Amount:     100,
				AssetKind:  AssetNative,
				Status:     EscrowFunded,
			},
			WantCheckErr:   errors.ErrState,
			WantDeliverErr: errors.ErrState,
		},
		"only the buyer can deposit": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{stranger})
			},
			Tx: &weavetest.Tx{
				Msg: &DepositNativeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow: &Escrow{
				Metadata:   &weave.Metadata{Schema: 1},
				Buyer:      buyer.Address(),
				Seller:     seller.Address(),
				IntentHash: intentHash,
				Amount:     100,
				AssetKind:  AssetNative,
				Status:     EscrowDraft,
			},
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"deposit into a missing escrow fails": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &DepositNativeMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			WantCheckErr:   errors.ErrNotFound,
			WantDeliverErr: errors.ErrNotFound,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "escrow", "token", "cash")
			saveConf(t, db, weavetest.NewCondition().Address())

			if tc.Escrow != nil {
				putEscrow(t, db, tc.Escrow)
			}
			// Fund the buyer on both asset paths.
			if err := cashctrl.CoinMint(db, buyer.Address(), coin.NewCoin(100, 0, "HAL")); err != nil {
				t.Fatalf("cannot fund buyer wallet: %s", err)
			}
			if err := tokenctrl.IssueTokens(db, buyer.Address(), 100); err != nil {
				t.Fatalf("cannot fund buyer token account: %s", err)
			}

			cache := db.CacheWrap()
			_, err := rt.Check(tc.Ctx(), cache, tc.Tx)
			assert.IsErr(t, tc.WantCheckErr, err)
			cache.Discard()

			_, err = rt.Deliver(tc.Ctx(), db, tc.Tx)
			assert.IsErr(t, tc.WantDeliverErr, err)
			if tc.WantDeliverErr != nil {
				return
			}

			var escrow Escrow
			if err := NewBucket().One(db, escrowID, &escrow); err != nil {
				t.Fatalf("cannot load escrow: %s", err)
			}
			if escrow.Status != EscrowFunded {
				t.Fatalf("unexpected status %s", escrow.Status)
			}
			switch escrow.AssetKind {
			case AssetNative:
				assertBalance(t, cashctrl, db, escrow.Address, 100)
				assertBalance(t, cashctrl, db, buyer.Address(), 0)
			case AssetToken:
				assertTokens(t, tokenctrl, db, escrow.Address, 100)
				assertTokens(t, tokenctrl, db, buyer.Address(), 0)
			}
		})
	}
}

func TestSettleEscrowHandlers(t *testing.T) {
	buyer := weavetest.NewCondition()
	seller := weavetest.NewCondition()
	oracle := weavetest.NewCondition()
	intentHash := bytes.Repeat([]byte{0xb3}, intentHashSize)
	escrowID := escrowKey(buyer.Address(), intentHash)
	custody := Condition(escrowID).Address()

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	cashctrl := cash.NewController(cash.NewBucket())
	tokenctrl := token.NewController(token.NewBucket())
	RegisterRoutes(rt, auth, cashctrl, tokenctrl)

	fundedEscrow := func(kind AssetKind, status EscrowStatus) *Escrow {
		return &Escrow{
			Metadata:   &weave.Metadata{Schema: 1},
			Buyer:      buyer.Address(),
			Seller:     seller.Address(),
			IntentHash: intentHash,
			Amount:     100,
			AssetKind:  kind,
			Status:     status,
		}
	}

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		Escrow         *Escrow
		Tamper         func(t *testing.T, db weave.KVStore)
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
		WantStatus     EscrowStatus
		WantDest       weave.Address
	}{
		"oracle releases a funded native escrow to the seller": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{oracle})
			},
			Tx: &weavetest.Tx{
				Msg: &ReleaseEscrowMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow:     fundedEscrow(AssetNative, EscrowFunded),
			WantStatus: EscrowReleased,
			WantDest:   seller.Address(),
		},
		"oracle refunds a funded native escrow to the buyer": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{oracle})
			},
			Tx: &weavetest.Tx{
				Msg: &RefundEscrowMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow:     fundedEscrow(AssetNative, EscrowFunded),
			WantStatus: EscrowRefunded,
			WantDest:   buyer.Address(),
		},
		"oracle releases a funded token escrow to the seller": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{oracle})
			},
			Tx: &weavetest.Tx{
				Msg: &ReleaseEscrowMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow:     fundedEscrow(AssetToken, EscrowFunded),
			WantStatus: EscrowReleased,
			WantDest:   seller.Address(),
		},
		"only the oracle can release": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{buyer})
			},
			Tx: &weavetest.Tx{
				Msg: &ReleaseEscrowMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow:         fundedEscrow(AssetNative, EscrowFunded),
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"a draft escrow cannot be released": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{oracle})
			},
			Tx: &weavetest.Tx{
				Msg: &ReleaseEscrowMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow:         fundedEscrow(AssetNative, EscrowDraft),
			WantCheckErr:   errors.ErrState,
			WantDeliverErr: errors.ErrState,
		},
		"a released escrow cannot be refunded": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{oracle})
			},
			Tx: &weavetest.Tx{
				Msg: &RefundEscrowMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow:         fundedEscrow(AssetNative, EscrowReleased),
			WantCheckErr:   errors.ErrState,
			WantDeliverErr: errors.ErrState,
		},
		"a tampered vault authority blocks the payout": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{oracle})
			},
			Tx: &weavetest.Tx{
				Msg: &ReleaseEscrowMsg{
					Metadata: &weave.Metadata{Schema: 1},
					EscrowId: escrowID,
				},
			},
			Escrow: fundedEscrow(AssetToken, EscrowFunded),
			Tamper: func(t *testing.T, db weave.KVStore) {
				acct := token.TokenAccount{
					Metadata:  &weave.Metadata{Schema: 1},
					Authority: buyer.Address(),
					Balance:   100,
				}
				if _, err := token.NewBucket().Put(db, custody, &acct); err != nil {
					t.Fatalf("cannot tamper with the vault: %s", err)
				}
			},
			WantDeliverErr: errors.ErrUnauthorized,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "escrow", "token", "cash")
			saveConf(t, db, oracle.Address())

			putEscrow(t, db, tc.Escrow)
			// Fund the custody account on both asset paths.
			if err := cashctrl.CoinMint(db, custody, coin.NewCoin(100, 0, "HAL")); err != nil {
				t.Fatalf("cannot fund custody wallet: %s", err)
			}
			if err := tokenctrl.IssueTokens(db, custody, 100); err != nil {
				t.Fatalf("cannot fund custody vault: %s", err)
			}
			if tc.Tamper != nil {
				tc.Tamper(t, db)
			}

			cache := db.CacheWrap()
			_, err := rt.Check(tc.Ctx(), cache, tc.Tx)
			assert.IsErr(t, tc.WantCheckErr, err)
			cache.Discard()

			_, err = rt.Deliver(tc.Ctx(), db, tc.Tx)
			assert.IsErr(t, tc.WantDeliverErr, err)
			if tc.WantDeliverErr != nil {
				return
			}

			var escrow Escrow
			if err := NewBucket().One(db, escrowID, &escrow); err != nil {
				t.Fatalf("cannot load escrow: %s", err)
			}
			if escrow.Status != tc.WantStatus {
				t.Fatalf("unexpected status %s", escrow.Status)
			}
			switch escrow.AssetKind {
			case AssetNative:
				assertBalance(t, cashctrl, db, custody, 0)
				assertBalance(t, cashctrl, db, tc.WantDest, 100)
			case AssetToken:
				assertTokens(t, tokenctrl, db, custody, 0)
				assertTokens(t, tokenctrl, db, tc.WantDest, 100)
			}
		})
	}
}

func putEscrow(t *testing.T, db weave.KVStore, escrow *Escrow) {
	t.Helper()
	key := escrowKey(escrow.Buyer, escrow.IntentHash)
	escrow.Address = Condition(key).Address()
	if _, err := NewBucket().Put(db, key, escrow); err != nil {
		t.Fatalf("cannot store escrow: %s", err)
	}
}

func saveConf(t *testing.T, db weave.KVStore, oracle weave.Address) {
	t.Helper()
	conf := Configuration{
		Metadata:     &weave.Metadata{Schema: 1},
		Oracle:       oracle,
		NativeTicker: "HAL",
	}
	if err := gconf.Save(db, "escrow", &conf); err != nil {
		t.Fatalf("cannot save configuration: %s", err)
	}
}

func assertBalance(t *testing.T, ctrl cash.Controller, db weave.KVStore, addr weave.Address, whole int64) {
	t.Helper()
	coins, err := ctrl.Balance(db, addr)
	if whole == 0 {
		// an emptied wallet either does not exist or holds no coins
		if err != nil {
			return
		}
		if len(coins) != 0 && !coins[0].IsZero() {
			t.Fatalf("unexpected balance of %s: %s", addr, coins)
		}
		return
	}
	if err != nil {
		t.Fatalf("cannot query balance of %s: %s", addr, err)
	}
	want := coin.NewCoin(whole, 0, "HAL")
	if len(coins) != 1 || !coins[0].Equals(want) {
		t.Fatalf("unexpected balance of %s: %s", addr, coins)
	}
}

func assertTokens(t *testing.T, ctrl token.Controller, db weave.KVStore, addr weave.Address, want uint64) {
	t.Helper()
	balance, err := ctrl.Balance(db, addr)
	if err != nil {
		t.Fatalf("cannot query token balance of %s: %s", addr, err)
	}
	if balance != want {
		t.Fatalf("unexpected token balance of %s: %d", addr, balance)
	}
}
