package attestation

import (
	"bytes"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestAttestationValidate(t *testing.T) {
	authority := weavetest.NewCondition().Address()
	intentHash := bytes.Repeat([]byte{1}, intentHashSize)

	att := Attestation{
		Metadata:    &weave.Metadata{Schema: 1},
		Authority:   authority,
		IntentHash:  intentHash,
		MetadataUri: "ipfs://QmRecord",
		Status:      AttestationDraft,
	}
	assert.Nil(t, att.Validate())

	// a sealed record carries the outcome hash, the rest stays empty
	att.Status = AttestationSealed
	att.OutcomeHash = bytes.Repeat([]byte{2}, hashSize)
	assert.Nil(t, att.Validate())

	broken := att
	broken.Metadata = nil
	broken.Authority = nil
	broken.IntentHash = intentHash[:intentHashSize-1]
	broken.MetadataUri = ""
	broken.OutcomeHash = []byte("too short")
	broken.Status = AttestationStatus(666)
	err := broken.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "Authority", errors.ErrEmpty)
	assert.FieldError(t, err, "IntentHash", errors.ErrInput)
	assert.FieldError(t, err, "MetadataUri", errors.ErrEmpty)
	assert.FieldError(t, err, "OutcomeHash", errors.ErrInput)
	assert.FieldError(t, err, "Status", errors.ErrState)
}

func TestAttestationKey(t *testing.T) {
	authority := weavetest.NewCondition().Address()
	intentHash := bytes.Repeat([]byte{7}, intentHashSize)

	key := attestationKey(authority, intentHash)
	if len(key) != attestationIDSize {
		t.Fatalf("unexpected key length %d", len(key))
	}
	if !bytes.HasPrefix(key, authority) || !bytes.HasSuffix(key, intentHash) {
		t.Fatalf("unexpected key %x", key)
	}
}
