package token

import (
	"math"
	"testing"

	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestControllerMoveTokens(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	ctrl := NewController(NewBucket())

	db := store.MemStore()
	migration.MustInitPkg(db, "token")

	assert.Nil(t, ctrl.IssueTokens(db, alice, 100))

	if err := ctrl.MoveTokens(db, alice, bob, 0); !errors.ErrAmount.Is(err) {
		t.Fatalf("zero transfer: %+v", err)
	}
	if err := ctrl.MoveTokens(db, bob, alice, 1); !errors.ErrEmpty.Is(err) {
		t.Fatalf("transfer out of a missing account: %+v", err)
	}
	if err := ctrl.MoveTokens(db, alice, bob, 101); !errors.ErrAmount.Is(err) {
		t.Fatalf("transfer above the balance: %+v", err)
	}
	// a self transfer must not change the supply
	if err := ctrl.MoveTokens(db, alice, alice, 60); !errors.ErrInput.Is(err) {
		t.Fatalf("transfer to self: %+v", err)
	}
	balance, err := ctrl.Balance(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, uint64(100), balance)

	assert.Nil(t, ctrl.MoveTokens(db, alice, bob, 60))

	balance, err = ctrl.Balance(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, uint64(40), balance)
	balance, err = ctrl.Balance(db, bob)
	assert.Nil(t, err)
	assert.Equal(t, uint64(60), balance)
}

func TestControllerAuthorityDefaultsToHolder(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	ctrl := NewController(NewBucket())

	db := store.MemStore()
	migration.MustInitPkg(db, "token")

	// the account springs into existence on first credit
	assert.Nil(t, ctrl.IssueTokens(db, alice, 100))
	assert.Nil(t, ctrl.MoveTokens(db, alice, bob, 10))

	authority, err := ctrl.Authority(db, bob)
	assert.Nil(t, err)
	if !authority.Equals(bob) {
		t.Fatalf("unexpected authority %s", authority)
	}

	if _, err := ctrl.Authority(db, weavetest.NewCondition().Address()); !errors.ErrEmpty.Is(err) {
		t.Fatalf("authority of a missing account: %+v", err)
	}
}

func TestControllerOverflow(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	ctrl := NewController(NewBucket())

	db := store.MemStore()
	migration.MustInitPkg(db, "token")

	assert.Nil(t, ctrl.IssueTokens(db, alice, math.MaxUint64))
	if err := ctrl.IssueTokens(db, alice, 1); !errors.ErrOverflow.Is(err) {
		t.Fatalf("issue above the maximum balance: %+v", err)
	}

	assert.Nil(t, ctrl.IssueTokens(db, bob, 1))
	if err := ctrl.MoveTokens(db, alice, bob, math.MaxUint64); !errors.ErrOverflow.Is(err) {
		t.Fatalf("transfer above the maximum balance: %+v", err)
	}
}
