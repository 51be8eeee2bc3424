package attestation

import (
	"bytes"
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestInitializeAttestationHandler(t *testing.T) {
	authority := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	intentHash := bytes.Repeat([]byte{0xa1}, intentHashSize)

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth)

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		Prepare        func(t *testing.T, db weave.KVStore)
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
	}{
		"happy path with an explicit authority": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{authority})
			},
			Tx: &weavetest.Tx{
				Msg: &InitializeAttestationMsg{
					Metadata:    &weave.Metadata{Schema: 1},
					Authority:   authority.Address(),
					IntentHash:  intentHash,
					MetadataUri: "ipfs://QmRecord",
				},
			},
		},
		"authority defaults to the main signer": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{authority})
			},
			Tx: &weavetest.Tx{
				Msg: &InitializeAttestationMsg{
					Metadata:    &weave.Metadata{Schema: 1},
					IntentHash:  intentHash,
					MetadataUri: "ipfs://QmRecord",
				},
			},
		},
		"authority signature is required": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{stranger})
			},
			Tx: &weavetest.Tx{
				Msg: &InitializeAttestationMsg{
					Metadata:    &weave.Metadata{Schema: 1},
					Authority:   authority.Address(),
					IntentHash:  intentHash,
					MetadataUri: "ipfs://QmRecord",
				},
			},
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"a second attestation for the same authority and intent is rejected": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{authority})
			},
			Prepare: func(t *testing.T, db weave.KVStore) {
				putAttestation(t, db, &Attestation{
					Metadata:    &weave.Metadata{Schema: 1},
					Authority:   authority.Address(),
					IntentHash:  intentHash,
					MetadataUri: "ipfs://QmOther",
					Status:      AttestationDraft,
				})
			},
			Tx: &weavetest.Tx{
				Msg: &InitializeAttestationMsg{
					Metadata:    &weave.Metadata{Schema: 1},
					Authority:   authority.Address(),
					IntentHash:  intentHash,
					MetadataUri: "ipfs://QmRecord",
				},
			},
			WantDeliverErr: errors.ErrDuplicate,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "attestation")
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

			var att Attestation
			if err := NewBucket().One(db, res.Data, &att); err != nil {
				t.Fatalf("cannot load created attestation: %s", err)
			}
			if att.Status != AttestationDraft {
				t.Fatalf("unexpected status %s", att.Status)
			}
			if !att.Authority.Equals(authority.Address()) {
				t.Fatalf("unexpected authority %s", att.Authority)
			}
		})
	}
}

func TestAttestationLifecycleHandlers(t *testing.T) {
	authority := weavetest.NewCondition()
	auditor := weavetest.NewCondition()
	intentHash := bytes.Repeat([]byte{0xa2}, intentHashSize)
	attestationID := attestationKey(authority.Address(), intentHash)
	outcomeHash := bytes.Repeat([]byte{0xc1}, hashSize)
	reportHash := bytes.Repeat([]byte{0xc2}, hashSize)

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth)

	record := func(status AttestationStatus) *Attestation {
		att := &Attestation{
			Metadata:    &weave.Metadata{Schema: 1},
			Authority:   authority.Address(),
			IntentHash:  intentHash,
			MetadataUri: "ipfs://QmRecord",
			Status:      status,
		}
		if status != AttestationDraft {
			att.OutcomeHash = outcomeHash
		}
		return att
	}

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		Attestation    *Attestation
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
		WantStatus     AttestationStatus
		WantTag        []byte
	}{
		"authority seals a draft attestation": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{authority})
			},
			Tx: &weavetest.Tx{
				Msg: &SealAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					OutcomeHash:   outcomeHash,
				},
			},
			Attestation: record(AttestationDraft),
			WantStatus:  AttestationSealed,
			WantTag:     sealedTagKey,
		},
		"only the authority can seal": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &SealAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					OutcomeHash:   outcomeHash,
				},
			},
			Attestation:    record(AttestationDraft),
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
		"an attestation is sealed at most once": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{authority})
			},
			Tx: &weavetest.Tx{
				Msg: &SealAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					OutcomeHash:   outcomeHash,
				},
			},
			Attestation:    record(AttestationSealed),
			WantCheckErr:   errors.ErrState,
			WantDeliverErr: errors.ErrState,
		},
		"a positive audit moves the attestation to audited": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &AuditAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					ReportHash:    reportHash,
					IsValid:       true,
				},
			},
			Attestation: record(AttestationSealed),
			WantStatus:  AttestationAudited,
			WantTag:     auditedTagKey,
		},
		"a negative audit moves the attestation to disputed": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &AuditAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					ReportHash:    reportHash,
					IsValid:       false,
				},
			},
			Attestation: record(AttestationSealed),
			WantStatus:  AttestationDisputed,
			WantTag:     auditedTagKey,
		},
		"a draft attestation cannot be audited": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &AuditAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					ReportHash:    reportHash,
					IsValid:       true,
				},
			},
			Attestation:    record(AttestationDraft),
			WantCheckErr:   errors.ErrState,
			WantDeliverErr: errors.ErrState,
		},
		"a sealed attestation can be challenged by anyone": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &ChallengeAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					EvidenceUri:   "ipfs://QmEvidence",
				},
			},
			Attestation: record(AttestationSealed),
			WantStatus:  AttestationDisputed,
			WantTag:     challengedTagKey,
		},
		"an audited attestation can still be challenged": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &ChallengeAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					EvidenceUri:   "ipfs://QmEvidence",
				},
			},
			Attestation: record(AttestationAudited),
			WantStatus:  AttestationDisputed,
			WantTag:     challengedTagKey,
		},
		"a draft attestation cannot be challenged": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &ChallengeAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					EvidenceUri:   "ipfs://QmEvidence",
				},
			},
			Attestation:    record(AttestationDraft),
			WantCheckErr:   ErrCannotChallenge,
			WantDeliverErr: ErrCannotChallenge,
		},
		"a disputed attestation is terminal": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{auditor})
			},
			Tx: &weavetest.Tx{
				Msg: &ChallengeAttestationMsg{
					Metadata:      &weave.Metadata{Schema: 1},
					AttestationId: attestationID,
					EvidenceUri:   "ipfs://QmEvidence",
				},
			},
			Attestation:    record(AttestationDisputed),
			WantCheckErr:   ErrCannotChallenge,
			WantDeliverErr: ErrCannotChallenge,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "attestation")
			putAttestation(t, db, tc.Attestation)

			cache := db.CacheWrap()
			_, err := rt.Check(tc.Ctx(), cache, tc.Tx)
			assert.IsErr(t, tc.WantCheckErr, err)
			cache.Discard()

			res, err := rt.Deliver(tc.Ctx(), db, tc.Tx)
			assert.IsErr(t, tc.WantDeliverErr, err)
			if tc.WantDeliverErr != nil {
				return
			}

			var att Attestation
			if err := NewBucket().One(db, attestationID, &att); err != nil {
				t.Fatalf("cannot load attestation: %s", err)
			}
			if att.Status != tc.WantStatus {
				t.Fatalf("unexpected status %s", att.Status)
			}
			if len(res.Tags) != 1 || !bytes.Equal(res.Tags[0].Key, tc.WantTag) {
				t.Fatalf("unexpected tags %v", res.Tags)
			}

			switch {
			case bytes.Equal(tc.WantTag, sealedTagKey):
				var event SealedEvent
				assert.Nil(t, event.Unmarshal(res.Tags[0].Value))
				if !event.Authority.Equals(authority.Address()) {
					t.Fatalf("unexpected event authority %s", event.Authority)
				}
				assert.Equal(t, intentHash, event.IntentHash)
				assert.Equal(t, outcomeHash, event.OutcomeHash)
			case bytes.Equal(tc.WantTag, auditedTagKey):
				var event AuditedEvent
				assert.Nil(t, event.Unmarshal(res.Tags[0].Value))
				if !event.Authority.Equals(authority.Address()) {
					t.Fatalf("unexpected event authority %s", event.Authority)
				}
				if !event.Auditor.Equals(auditor.Address()) {
					t.Fatalf("unexpected event auditor %s", event.Auditor)
				}
				assert.Equal(t, intentHash, event.IntentHash)
				assert.Equal(t, reportHash, event.ReportHash)
				assert.Equal(t, tc.WantStatus == AttestationAudited, event.IsValid)
			case bytes.Equal(tc.WantTag, challengedTagKey):
				var event ChallengedEvent
				assert.Nil(t, event.Unmarshal(res.Tags[0].Value))
				if !event.Authority.Equals(authority.Address()) {
					t.Fatalf("unexpected event authority %s", event.Authority)
				}
				if !event.Challenger.Equals(auditor.Address()) {
					t.Fatalf("unexpected event challenger %s", event.Challenger)
				}
				assert.Equal(t, intentHash, event.IntentHash)
				assert.Equal(t, "ipfs://QmEvidence", event.EvidenceUri)
			}
		})
	}
}

func putAttestation(t *testing.T, db weave.KVStore, att *Attestation) {
	t.Helper()
	key := attestationKey(att.Authority, att.IntentHash)
	if _, err := NewBucket().Put(db, key, att); err != nil {
		t.Fatalf("cannot store attestation: %s", err)
	}
}
