package attestation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestInitializeAttestationMsgValidate(t *testing.T) {
	msg := &InitializeAttestationMsg{
		IntentHash: []byte("too short"),
	}
	err := msg.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "IntentHash", errors.ErrInput)
	assert.FieldError(t, err, "MetadataUri", errors.ErrEmpty)

	// authority is optional and defaults to the main signer
	assert.FieldError(t, err, "Authority", nil)

	msg = &InitializeAttestationMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		Authority:   weavetest.NewCondition().Address(),
		IntentHash:  bytes.Repeat([]byte{1}, intentHashSize),
		MetadataUri: strings.Repeat("x", maxURISize+1),
	}
	assert.FieldError(t, msg.Validate(), "MetadataUri", errors.ErrInput)

	msg.MetadataUri = "ipfs://QmRecord"
	assert.Nil(t, msg.Validate())
}

func TestSealAttestationMsgValidate(t *testing.T) {
	msg := &SealAttestationMsg{
		AttestationId: []byte("too short"),
		OutcomeHash:   bytes.Repeat([]byte{1}, hashSize+1),
	}
	err := msg.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "AttestationId", errors.ErrInput)
	assert.FieldError(t, err, "OutcomeHash", errors.ErrInput)

	msg = &SealAttestationMsg{
		Metadata:      &weave.Metadata{Schema: 1},
		AttestationId: bytes.Repeat([]byte{1}, attestationIDSize),
		OutcomeHash:   bytes.Repeat([]byte{1}, hashSize),
	}
	assert.Nil(t, msg.Validate())
}

func TestAuditAttestationMsgValidate(t *testing.T) {
	msg := &AuditAttestationMsg{
		AttestationId: bytes.Repeat([]byte{1}, attestationIDSize),
	}
	err := msg.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "AttestationId", nil)
	assert.FieldError(t, err, "ReportHash", errors.ErrInput)
}

func TestChallengeAttestationMsgValidate(t *testing.T) {
	msg := &ChallengeAttestationMsg{
		AttestationId: bytes.Repeat([]byte{1}, attestationIDSize),
	}
	err := msg.Validate()

	assert.FieldError(t, err, "Metadata", errors.ErrMetadata)
	assert.FieldError(t, err, "EvidenceUri", errors.ErrEmpty)

	msg.Metadata = &weave.Metadata{Schema: 1}
	msg.EvidenceUri = "ipfs://QmEvidence"
	assert.Nil(t, msg.Validate())
}
