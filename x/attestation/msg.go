package attestation

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &InitializeAttestationMsg{}, migration.NoModification)
	migration.MustRegister(1, &SealAttestationMsg{}, migration.NoModification)
	migration.MustRegister(1, &AuditAttestationMsg{}, migration.NoModification)
	migration.MustRegister(1, &ChallengeAttestationMsg{}, migration.NoModification)
}

// attestationIDSize is the length of an attestation identifier, the
// authority address followed by the intent hash.
var attestationIDSize = weave.AddressLength + intentHashSize

var _ weave.Msg = (*InitializeAttestationMsg)(nil)
var _ weave.Msg = (*SealAttestationMsg)(nil)
var _ weave.Msg = (*AuditAttestationMsg)(nil)
var _ weave.Msg = (*ChallengeAttestationMsg)(nil)

// Path fulfills weave.Msg interface to allow routing
func (InitializeAttestationMsg) Path() string {
	return "attestation/initialize"
}

// Validate makes sure that this is sensible
func (m *InitializeAttestationMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.Authority != nil {
		errs = errors.AppendField(errs, "Authority", m.Authority.Validate())
	}
	if len(m.IntentHash) != intentHashSize {
		errs = errors.AppendField(errs, "IntentHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", intentHashSize))
	}
	errs = errors.AppendField(errs, "MetadataUri", validateURI(m.MetadataUri))
	return errs
}

// Path fulfills weave.Msg interface to allow routing
func (SealAttestationMsg) Path() string {
	return "attestation/seal"
}

// Validate makes sure that this is sensible
func (m *SealAttestationMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "AttestationId", validateAttestationID(m.AttestationId))
	if len(m.OutcomeHash) != hashSize {
		errs = errors.AppendField(errs, "OutcomeHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", hashSize))
	}
	return errs
}

// Path fulfills weave.Msg interface to allow routing
func (AuditAttestationMsg) Path() string {
	return "attestation/audit"
}

// Validate makes sure that this is sensible
func (m *AuditAttestationMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "AttestationId", validateAttestationID(m.AttestationId))
	if len(m.ReportHash) != hashSize {
		errs = errors.AppendField(errs, "ReportHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", hashSize))
	}
	return errs
}

// Path fulfills weave.Msg interface to allow routing
func (ChallengeAttestationMsg) Path() string {
	return "attestation/challenge"
}

// Validate makes sure that this is sensible
func (m *ChallengeAttestationMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "AttestationId", validateAttestationID(m.AttestationId))
	errs = errors.AppendField(errs, "EvidenceUri", validateURI(m.EvidenceUri))
	return errs
}

func validateAttestationID(id []byte) error {
	if len(id) != attestationIDSize {
		return errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", attestationIDSize)
	}
	return nil
}
