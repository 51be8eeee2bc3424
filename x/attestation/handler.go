package attestation

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
	"github.com/tendermint/tendermint/libs/common"
)

const (
	initializeAttestationCost int64 = 300
	sealAttestationCost       int64 = 100
	auditAttestationCost      int64 = 100
	challengeAttestationCost  int64 = 100
)

// Tag keys emitted on lifecycle transitions.
var (
	sealedTagKey     = []byte("attestation/sealed")
	auditedTagKey    = []byte("attestation/audited")
	challengedTagKey = []byte("attestation/challenged")
)

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r weave.Registry, auth x.Authenticator) {
	r = migration.SchemaMigratingRegistry("attestation", r)
	bucket := NewBucket()

	r.Handle(&InitializeAttestationMsg{}, InitializeAttestationHandler{auth, bucket})
	r.Handle(&SealAttestationMsg{}, SealAttestationHandler{auth, bucket})
	r.Handle(&AuditAttestationMsg{}, AuditAttestationHandler{auth, bucket})
	r.Handle(&ChallengeAttestationMsg{}, ChallengeAttestationHandler{auth, bucket})
}

// RegisterQuery will register this bucket as "/attestations"
func RegisterQuery(qr weave.QueryRouter) {
	NewBucket().Register("attestations", qr)
}

// InitializeAttestationHandler creates an empty draft attestation bound
// to an authority and an intent hash.
type InitializeAttestationHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ weave.Handler = InitializeAttestationHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h InitializeAttestationHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: initializeAttestationCost}, nil
}

// Deliver stores the draft attestation if none exists yet for this
// authority and intent hash.
func (h InitializeAttestationHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}

	// apply a default for authority
	authority := msg.Authority
	if authority == nil {
		signer := x.AnySigner(ctx, h.auth)
		if signer == nil {
			return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
		}
		authority = signer.Address()
	}

	key := attestationKey(authority, msg.IntentHash)
	switch err := h.bucket.Has(db, key); {
	case err == nil:
		return nil, errors.Wrap(errors.ErrDuplicate, "attestation exists for this authority and intent")
	case !errors.ErrNotFound.Is(err):
		return nil, errors.Wrap(err, "cannot check attestation existence")
	}

	att := &Attestation{
		Metadata:    &weave.Metadata{Schema: 1},
		Authority:   authority,
		IntentHash:  msg.IntentHash,
		MetadataUri: msg.MetadataUri,
		Status:      AttestationDraft,
	}
	if _, err := h.bucket.Put(db, key, att); err != nil {
		return nil, errors.Wrap(err, "cannot store attestation")
	}
	return &weave.DeliverResult{Data: key}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h InitializeAttestationHandler) validate(ctx weave.Context, tx weave.Tx) (*InitializeAttestationMsg, error) {
	var msg InitializeAttestationMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}

	// Authority must authorize this (if not set, defaults to MainSigner).
	if msg.Authority != nil {
		if !h.auth.HasAddress(ctx, msg.Authority) {
			return nil, errors.Wrap(errors.ErrUnauthorized, "authority signature missing")
		}
	}
	return &msg, nil
}

// SealAttestationHandler freezes the outcome of a draft attestation.
// Only the authority can seal and an attestation is sealed at most once.
type SealAttestationHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ weave.Handler = SealAttestationHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h SealAttestationHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: sealAttestationCost}, nil
}

// Deliver writes the outcome hash and marks the attestation sealed.
func (h SealAttestationHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, att, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	att.Status = AttestationSealed
	att.OutcomeHash = msg.OutcomeHash
	if _, err := h.bucket.Put(db, msg.AttestationId, att); err != nil {
		return nil, errors.Wrap(err, "cannot store attestation")
	}

	event := SealedEvent{
		Authority:   att.Authority,
		IntentHash:  att.IntentHash,
		OutcomeHash: att.OutcomeHash,
	}
	payload, err := event.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal event")
	}
	return &weave.DeliverResult{
		Data: msg.AttestationId,
		Tags: common.KVPairs{{Key: sealedTagKey, Value: payload}},
	}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h SealAttestationHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*SealAttestationMsg, *Attestation, error) {
	var msg SealAttestationMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var att Attestation
	if err := h.bucket.One(db, msg.AttestationId, &att); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load attestation from the store")
	}
	if !h.auth.HasAddress(ctx, att.Authority) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "authority signature missing")
	}
	if att.Status != AttestationDraft {
		return nil, nil, errors.Wrapf(errors.ErrState, "cannot seal attestation in status %s", att.Status)
	}
	return &msg, &att, nil
}

// AuditAttestationHandler records an audit verdict over a sealed
// attestation. Any signer can audit.
type AuditAttestationHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ weave.Handler = AuditAttestationHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h AuditAttestationHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: auditAttestationCost}, nil
}

// Deliver writes the report hash and moves the attestation to audited,
// or to disputed when the verdict is negative.
func (h AuditAttestationHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, att, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	auditor := x.AnySigner(ctx, h.auth)
	if auditor == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}

	if msg.IsValid {
		att.Status = AttestationAudited
	} else {
		att.Status = AttestationDisputed
	}
	att.ReportHash = msg.ReportHash
	if _, err := h.bucket.Put(db, msg.AttestationId, att); err != nil {
		return nil, errors.Wrap(err, "cannot store attestation")
	}

	event := AuditedEvent{
		Authority:  att.Authority,
		Auditor:    auditor.Address(),
		IntentHash: att.IntentHash,
		ReportHash: att.ReportHash,
		IsValid:    msg.IsValid,
	}
	payload, err := event.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal event")
	}
	return &weave.DeliverResult{
		Data: msg.AttestationId,
		Tags: common.KVPairs{{Key: auditedTagKey, Value: payload}},
	}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h AuditAttestationHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*AuditAttestationMsg, *Attestation, error) {
	var msg AuditAttestationMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var att Attestation
	if err := h.bucket.One(db, msg.AttestationId, &att); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load attestation from the store")
	}
	if att.Status != AttestationSealed {
		return nil, nil, errors.Wrapf(errors.ErrState, "cannot audit attestation in status %s", att.Status)
	}
	return &msg, &att, nil
}

// ChallengeAttestationHandler disputes a sealed or audited attestation.
// Any signer can challenge by pointing at evidence.
type ChallengeAttestationHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ weave.Handler = ChallengeAttestationHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h ChallengeAttestationHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: challengeAttestationCost}, nil
}

// Deliver records the evidence and marks the attestation disputed.
func (h ChallengeAttestationHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, att, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	challenger := x.AnySigner(ctx, h.auth)
	if challenger == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}

	att.Status = AttestationDisputed
	att.EvidenceUri = msg.EvidenceUri
	if _, err := h.bucket.Put(db, msg.AttestationId, att); err != nil {
		return nil, errors.Wrap(err, "cannot store attestation")
	}

	event := ChallengedEvent{
		Authority:   att.Authority,
		Challenger:  challenger.Address(),
		IntentHash:  att.IntentHash,
		EvidenceUri: att.EvidenceUri,
	}
	payload, err := event.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal event")
	}
	return &weave.DeliverResult{
		Data: msg.AttestationId,
		Tags: common.KVPairs{{Key: challengedTagKey, Value: payload}},
	}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h ChallengeAttestationHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ChallengeAttestationMsg, *Attestation, error) {
	var msg ChallengeAttestationMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var att Attestation
	if err := h.bucket.One(db, msg.AttestationId, &att); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load attestation from the store")
	}
	switch att.Status {
	case AttestationSealed, AttestationAudited:
	default:
		return nil, nil, errors.Wrapf(ErrCannotChallenge, "attestation in status %s", att.Status)
	}
	return &msg, &att, nil
}
