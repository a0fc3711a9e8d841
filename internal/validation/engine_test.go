package validation

import (
	"errors"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func evidenceFor(caseID string, value domain.EvidenceValue) *domain.Evidence {
	return domain.NewEvidence(domain.EvidenceMetadata{TestCaseID: caseID}, "", value)
}

func TestValidateSuccessAndFailure(t *testing.T) {
	e := newEngine(t)
	v := domain.ValidatorModel{BoolExp: "value < 3", Success: "below", Failure: "too high"}

	res, err := e.Validate(v, evidenceFor("latency", domain.IntegerValue{Integer: 2}))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Kind != domain.ResultSuccess || res.Message != "below" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.EvidenceMetadata == nil || res.EvidenceMetadata.TestCaseID != "latency" {
		t.Fatalf("expected evidence metadata attached, got %+v", res.EvidenceMetadata)
	}

	res, err = e.Validate(v, evidenceFor("latency", domain.RealValue{Real: 3.5}))
	if err != nil {
		t.Fatalf("validate real: %v", err)
	}
	if res.Kind != domain.ResultFailure || res.Message != "too high" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestValidateArrayExpression(t *testing.T) {
	e := newEngine(t)
	v := domain.ValidatorModel{BoolExp: "value.all(x, x < 10)", Success: "ok", Failure: "bad"}
	res, err := e.Validate(v, evidenceFor("c", domain.ArrayValue{Data: []any{1.0, 2.0, 9.5}}))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Kind != domain.ResultSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestValidateInfoOnly(t *testing.T) {
	e := newEngine(t)
	res, err := e.Validate(domain.ValidatorModel{Info: "inspect manually"}, evidenceFor("c", domain.StringValue{String: "x"}))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Kind != domain.ResultInfo {
		t.Fatalf("expected info, got %s", res.Kind)
	}
	if _, err := res.Passed(); err == nil {
		t.Fatalf("expected info result to refuse boolean conversion")
	}
}

func TestValidateMalformedAndFaults(t *testing.T) {
	e := newEngine(t)
	ev := evidenceFor("c", domain.IntegerValue{Integer: 1})

	if _, err := e.Validate(domain.ValidatorModel{}, ev); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected malformed validator error, got %v", err)
	}
	if _, err := e.Validate(domain.ValidatorModel{BoolExp: "value <"}, ev); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected internal compile error, got %v", err)
	}
	if _, err := e.Validate(domain.ValidatorModel{BoolExp: "value + 1"}, ev); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected internal error for non-bool, got %v", err)
	}
	typed := domain.ValidatorModel{BoolExp: "value > 0", InputTypes: []string{"real"}}
	if _, err := e.Validate(typed, ev); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected input type mismatch, got %v", err)
	}
}

func TestRunSuite(t *testing.T) {
	e := newEngine(t)
	suite := domain.TestSuite{TestCases: []domain.TestCase{
		{Identifier: "accuracy", QASList: []string{"qas_id_001"}, Validator: &domain.ValidatorModel{BoolExp: "value >= 0.9", Success: "good", Failure: "bad"}},
		{Identifier: "notes", QASList: []string{"qas_id_001"}, Validator: &domain.ValidatorModel{Info: "see report"}},
	}}
	evidence := []*domain.Evidence{
		evidenceFor("accuracy", domain.RealValue{Real: 0.95}),
		evidenceFor("notes", domain.StringValue{String: "fine"}),
	}
	results, err := e.RunSuite("suite", suite, evidence)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	summary := results.Summary()
	if summary[domain.ResultSuccess] != 1 || summary[domain.ResultInfo] != 1 {
		t.Fatalf("unexpected summary %v", summary)
	}

	if _, err := e.RunSuite("suite", suite, evidence[:1]); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected missing evidence error, got %v", err)
	}
}
