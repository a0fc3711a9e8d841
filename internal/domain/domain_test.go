package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestAssignQASIDsKeepsExistingAndContinuesAfterFloor(t *testing.T) {
	card := &NegotiationCard{SystemRequirements: []QualityAttributeScenario{
		{Quality: "latency"},
		{Quality: "accuracy", Identifier: "qas_id_005"},
	}}
	if err := card.AssignQASIDs(0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := card.SystemRequirements[0].Identifier; got != "qas_id_006" {
		t.Fatalf("first scenario got %q", got)
	}
	if got := card.SystemRequirements[1].Identifier; got != "qas_id_005" {
		t.Fatalf("existing identifier changed to %q", got)
	}

	next := &NegotiationCard{SystemRequirements: []QualityAttributeScenario{{Quality: "latency"}}}
	if err := next.AssignQASIDs(6); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := next.SystemRequirements[0].Identifier; got != "qas_id_007" {
		t.Fatalf("expected numbering after floor, got %q", got)
	}

	bad := &NegotiationCard{SystemRequirements: []QualityAttributeScenario{{Identifier: "qas-1"}}}
	if err := bad.AssignQASIDs(0); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected malformed id to be rejected, got %v", err)
	}
}

func TestInfoResultHasNoVerdict(t *testing.T) {
	if _, err := Info("look at it").Passed(); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected info to refuse a verdict, got %v", err)
	}
	ok, err := Success("fine").Passed()
	if err != nil || !ok {
		t.Fatalf("success passed=%v err=%v", ok, err)
	}

	converted, err := Info("look at it").ManuallyValidate(false)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if converted.Kind != ResultFailure || converted.Message != "Manually validated: look at it" {
		t.Fatalf("unexpected conversion %+v", converted)
	}
	if _, err := converted.ManuallyValidate(true); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected second conversion to fail, got %v", err)
	}
}

func TestResultVariantDispatch(t *testing.T) {
	meta := EvidenceMetadata{TestCaseID: "tc"}
	raw, err := json.Marshal(Failure("too slow").WithEvidence(meta))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Result
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != ResultFailure || got.EvidenceMetadata == nil || got.EvidenceMetadata.TestCaseID != "tc" {
		t.Fatalf("unexpected result %+v", got)
	}
	if err := json.Unmarshal([]byte(`{"variant":"Maybe","payload":{}}`), &got); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected unknown variant to be rejected, got %v", err)
	}
}

func TestOpaqueEvidenceThroughArtifact(t *testing.T) {
	ev := NewEvidence(EvidenceMetadata{TestCaseID: "tc"}, "", OpaqueValue{Data: map[string]any{"k": "v"}})
	if ev.EvidenceClass != "mlte.evidence.external.ExternalEvidence" {
		t.Fatalf("unexpected default class %q", ev.EvidenceClass)
	}
	raw, err := json.Marshal(NewArtifact("ev", ev))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	a, err := DecodeArtifact(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	body, err := BodyAs[*Evidence](a)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	opaque, ok := body.Value.(OpaqueValue)
	if !ok || opaque.Data["k"] != "v" {
		t.Fatalf("unexpected value %#v", body.Value)
	}
	if _, err := BodyAs[*TestSuite](a); !errors.Is(err, ErrReferential) {
		t.Fatalf("expected body mismatch to be referential, got %v", err)
	}
	if _, err := DecodeArtifact([]byte(`{"header":{"type":"bogus"}}`)); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected unknown type to be rejected, got %v", err)
	}
}

func TestPermissionStringRoundTrip(t *testing.T) {
	cases := []Permission{
		NewPermission(ResourceModel, "my-model", MethodGet),
		NewPermission(ResourceCustomList, "", MethodAny),
	}
	for _, p := range cases {
		got, err := ParsePermission(p.String())
		if err != nil {
			t.Fatalf("parse %q: %v", p, err)
		}
		if got != p {
			t.Fatalf("round trip %q gave %+v", p, got)
		}
	}
	if _, err := ParsePermission("model-GET"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected malformed permission to be rejected, got %v", err)
	}
}

func TestGrantsAccessWildcards(t *testing.T) {
	wildcard := NewPermission(ResourceModel, "", MethodGet)
	if !wildcard.GrantsAccess(NewPermission(ResourceModel, "m1", MethodGet)) {
		t.Fatalf("wildcard id should grant")
	}
	if wildcard.GrantsAccess(NewPermission(ResourceModel, "m1", MethodDelete)) {
		t.Fatalf("wildcard id should not widen the method")
	}
	anyMethod := NewPermission(ResourceModel, "m1", MethodAny)
	if !anyMethod.GrantsAccess(NewPermission(ResourceModel, "m1", MethodDelete)) {
		t.Fatalf("ANY should grant every method")
	}
	if anyMethod.GrantsAccess(NewPermission(ResourceUser, "m1", MethodGet)) {
		t.Fatalf("different resource types never match")
	}
}

func TestNegotiationCardCheckEnumerations(t *testing.T) {
	ok := &NegotiationCard{
		System: SystemDescriptor{ProblemType: ProblemDetection},
		Data:   []DataDescriptor{{Classification: ClassificationCUI}, {}},
	}
	if err := ok.Check(); err != nil {
		t.Fatalf("known values rejected: %v", err)
	}
	if err := (&NegotiationCard{}).Check(); err != nil {
		t.Fatalf("unset values rejected: %v", err)
	}
	if err := (&NegotiationCard{System: SystemDescriptor{ProblemType: "regression"}}).Check(); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected unknown problem type to be rejected, got %v", err)
	}
	bad := &NegotiationCard{Data: []DataDescriptor{{}, {Classification: "Secret"}}}
	if err := bad.PreSave(context.Background(), Scope{}, nil); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected pre-save to reject unknown classification, got %v", err)
	}
}
