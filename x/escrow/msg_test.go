package escrow

import (
	"bytes"
	"math"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestCreateEscrowMsgValidate(t *testing.T) {
	msg := &CreateEscrowMsg{
		IntentHash: []byte("too short"),
		AssetKind:  AssetKind(666),
	}
	err := msg.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "Seller", errors.ErrEmpty)
	assert.FieldError(t, err, "IntentHash", errors.ErrInput)
	assert.FieldError(t, err, "Amount", errors.ErrAmount)
	assert.FieldError(t, err, "AssetKind", errors.ErrInput)

	// buyer is optional and defaults to the main signer
	assert.FieldError(t, err, "Buyer", nil)
}

func TestCreateEscrowMsgAmountRange(t *testing.T) {
	msg := &CreateEscrowMsg{
		Metadata:   &weave.Metadata{Schema: 1},
		Buyer:      weavetest.NewCondition().Address(),
		Seller:     weavetest.NewCondition().Address(),
		IntentHash: bytes.Repeat([]byte{1}, intentHashSize),
		Amount:     math.MaxInt64 + 1,
		AssetKind:  AssetNative,
	}
	assert.FieldError(t, msg.Validate(), "Amount", errors.ErrOverflow)

	msg.Amount = math.MaxInt64
	assert.Nil(t, msg.Validate())
}

func TestSettleMsgsValidate(t *testing.T) {
	goodID := bytes.Repeat([]byte{1}, escrowIDSize)
	badID := goodID[:escrowIDSize-1]

	release := &ReleaseEscrowMsg{EscrowId: badID}
	err := release.Validate()
	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "EscrowId", errors.ErrInput)

	refund := &RefundEscrowMsg{
		Metadata: &weave.Metadata{Schema: 1},
		EscrowId: goodID,
	}
	assert.Nil(t, refund.Validate())
}

func TestDepositMsgsValidate(t *testing.T) {
	goodID := bytes.Repeat([]byte{1}, escrowIDSize)

	native := &DepositNativeMsg{EscrowId: append(goodID, 1)}
	err := native.Validate()
	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "EscrowId", errors.ErrInput)

	token := &DepositTokenMsg{
		Metadata: &weave.Metadata{Schema: 1},
		EscrowId: goodID,
	}
	assert.Nil(t, token.Validate())
}
