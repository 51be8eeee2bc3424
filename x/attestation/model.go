package attestation

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Attestation{}, migration.NoModification)
}

const (
	// intentHashSize is the exact byte length of an intent hash. The
	// same value correlates an attestation with an escrow.
	intentHashSize = 32

	// hashSize is the exact byte length of outcome and report hashes.
	hashSize = 32

	// maxURISize bounds metadata and evidence pointers.
	maxURISize = 200
)

var _ orm.CloneableData = (*Attestation)(nil)

// Validate ensures the attestation is valid.
func (a *Attestation) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", a.Metadata.Validate())
	errs = errors.AppendField(errs, "Authority", a.Authority.Validate())
	if len(a.IntentHash) != intentHashSize {
		errs = errors.AppendField(errs, "IntentHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", intentHashSize))
	}
	errs = errors.AppendField(errs, "MetadataUri", validateURI(a.MetadataUri))
	switch a.Status {
	case AttestationDraft, AttestationSealed, AttestationAudited, AttestationDisputed:
	default:
		errs = errors.AppendField(errs, "Status",
			errors.Wrap(errors.ErrState, "unknown status"))
	}
	// Outcome and report hashes are empty until the lifecycle sets them.
	if len(a.OutcomeHash) != 0 && len(a.OutcomeHash) != hashSize {
		errs = errors.AppendField(errs, "OutcomeHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", hashSize))
	}
	if len(a.ReportHash) != 0 && len(a.ReportHash) != hashSize {
		errs = errors.AppendField(errs, "ReportHash",
			errors.Wrapf(errors.ErrInput, "must be exactly %d bytes", hashSize))
	}
	if a.EvidenceUri != "" {
		errs = errors.AppendField(errs, "EvidenceUri", validateURI(a.EvidenceUri))
	}
	return errs
}

// Copy makes a deep copy of the attestation.
func (a *Attestation) Copy() orm.CloneableData {
	return &Attestation{
		Metadata:    a.Metadata.Copy(),
		Authority:   a.Authority.Clone(),
		IntentHash:  append([]byte(nil), a.IntentHash...),
		MetadataUri: a.MetadataUri,
		Status:      a.Status,
		OutcomeHash: append([]byte(nil), a.OutcomeHash...),
		ReportHash:  append([]byte(nil), a.ReportHash...),
		EvidenceUri: a.EvidenceUri,
	}
}

func validateURI(uri string) error {
	if uri == "" {
		return errors.Wrap(errors.ErrEmpty, "uri")
	}
	if len(uri) > maxURISize {
		return errors.Wrapf(errors.ErrInput, "longer than %d bytes", maxURISize)
	}
	return nil
}

// attestationKey is the natural bucket key. Exactly one attestation can
// exist per authority and intent hash pair.
func attestationKey(authority weave.Address, intentHash []byte) []byte {
	key := make([]byte, 0, len(authority)+len(intentHash))
	key = append(key, authority...)
	return append(key, intentHash...)
}

func NewBucket() orm.ModelBucket {
	b := orm.NewModelBucket("att", &Attestation{},
		orm.WithIndex("intent_hash", idxIntentHash, false),
	)
	return migration.NewModelBucket("attestation", b)
}

func toAttestation(obj orm.Object) (*Attestation, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "Cannot take index of nil")
	}
	att, ok := obj.Value().(*Attestation)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "Can only take index of Attestation")
	}
	return att, nil
}

func idxIntentHash(obj orm.Object) ([]byte, error) {
	att, err := toAttestation(obj)
	if err != nil {
		return nil, err
	}
	return att.IntentHash, nil
}
