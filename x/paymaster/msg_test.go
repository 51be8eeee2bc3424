package paymaster

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestPayServiceFeeMsgValidate(t *testing.T) {
	msg := &PayServiceFeeMsg{}
	err := msg.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "Amount", errors.ErrAmount)

	// source is optional and defaults to the main signer
	assert.FieldError(t, err, "Src", nil)

	msg = &PayServiceFeeMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Src:      weavetest.NewCondition().Address(),
		Amount:   25,
	}
	assert.Nil(t, msg.Validate())
}
