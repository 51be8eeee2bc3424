package escrow

import (
	"bytes"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestEscrowValidate(t *testing.T) {
	buyer := weavetest.NewCondition().Address()
	seller := weavetest.NewCondition().Address()
	intentHash := bytes.Repeat([]byte{1}, intentHashSize)

	escrow := Escrow{
		Metadata:   &weave.Metadata{Schema: 1},
		Buyer:      buyer,
		Seller:     seller,
		IntentHash: intentHash,
		Amount:     100,
		AssetKind:  AssetNative,
		Status:     EscrowDraft,
		Address:    Condition(escrowKey(buyer, intentHash)).Address(),
	}
	assert.Nil(t, escrow.Validate())

	broken := escrow
	broken.Metadata = nil
	broken.Buyer = nil
	broken.IntentHash = intentHash[:intentHashSize-1]
	broken.Amount = 0
	broken.Status = EscrowStatus(666)
	err := broken.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "Buyer", errors.ErrEmpty)
	assert.FieldError(t, err, "IntentHash", errors.ErrInput)
	assert.FieldError(t, err, "Amount", errors.ErrAmount)
	assert.FieldError(t, err, "Status", errors.ErrState)
	assert.FieldError(t, err, "Seller", nil)
}

func TestEscrowKey(t *testing.T) {
	buyer := weavetest.NewCondition().Address()
	intentHash := bytes.Repeat([]byte{7}, intentHashSize)

	key := escrowKey(buyer, intentHash)
	if len(key) != escrowIDSize {
		t.Fatalf("unexpected key length %d", len(key))
	}
	if !bytes.HasPrefix(key, buyer) || !bytes.HasSuffix(key, intentHash) {
		t.Fatalf("unexpected key %x", key)
	}

	// the custody address must be deterministic
	if !Condition(key).Address().Equals(Condition(key).Address()) {
		t.Fatal("custody address is not deterministic")
	}
}
