package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
	"github.com/mlte-team/mlte-sub000/internal/validation"
)

func TestManualValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	scope := domain.NewScope("m1", "v1")

	suite := domain.TestSuite{TestCases: []domain.TestCase{{Identifier: "look"}, {Identifier: "acc"}}}
	results := &domain.TestResults{
		TestSuiteID: "suite",
		TestSuite:   suite,
		Results: map[string]domain.Result{
			"look": domain.Info("inspect the images"),
			"acc":  domain.Success("accuracy ok"),
		},
	}
	if _, err := f.modelSvc.WriteArtifact(ctx, admin, scope, domain.NewArtifact("results", results), store.WriteOptions{Parents: true}, false); err != nil {
		t.Fatalf("write results: %v", err)
	}

	svc := NewResultService(f.artifacts, nil)
	var counted []domain.ResultKind
	svc.OnValidated = func(kind domain.ResultKind) { counted = append(counted, kind) }

	got, err := svc.ManuallyValidate(ctx, admin, scope, "results", "look", true)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Kind != domain.ResultSuccess || !strings.HasPrefix(got.Message, "Manually validated: ") {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(counted) != 1 || counted[0] != domain.ResultSuccess {
		t.Fatalf("expected one counted success, got %v", counted)
	}

	err = store.With(ctx, f.artifacts.Session, func(as *store.ArtifactSession) error {
		a, err := as.Artifacts().Read(ctx, scope, "results")
		if err != nil {
			return err
		}
		stored, err := domain.BodyAs[*domain.TestResults](a)
		if err != nil {
			return err
		}
		if stored.Results["look"].Kind != domain.ResultSuccess {
			t.Fatalf("conversion was not persisted: %+v", stored.Results["look"])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if _, err := svc.ManuallyValidate(ctx, admin, scope, "results", "acc", false); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected non-info result to be rejected, got %v", err)
	}
	if _, err := svc.ManuallyValidate(ctx, admin, scope, "results", "missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown case to be not found, got %v", err)
	}
}

func TestRunSuiteUsesLatestEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	scope := domain.NewScope("m1", "v1")

	suite := &domain.TestSuite{TestCases: []domain.TestCase{{
		Identifier: "latency",
		Validator:  &domain.ValidatorModel{BoolExp: "value < 3", Success: "fast", Failure: "slow"},
	}}}
	if _, err := f.modelSvc.WriteArtifact(ctx, admin, scope, domain.NewArtifact("suite", suite), store.WriteOptions{Parents: true}, false); err != nil {
		t.Fatalf("write suite: %v", err)
	}
	for i, v := range []int64{7, 2} {
		ev := domain.NewEvidence(domain.EvidenceMetadata{TestCaseID: "latency"}, "", domain.IntegerValue{Integer: v})
		a := domain.NewArtifact([]string{"ev-old", "ev-new"}[i], ev)
		a.Header.Timestamp = int64(100 + i)
		if _, err := f.modelSvc.WriteArtifact(ctx, admin, scope, a, store.WriteOptions{}, false); err != nil {
			t.Fatalf("write evidence: %v", err)
		}
	}

	svc := NewResultService(f.artifacts, nil)
	if _, err := svc.Run(ctx, admin, scope, "suite", ""); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected missing runner to fail, got %v", err)
	}
	engine, err := validation.NewEngine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	svc.Runner = engine

	got, err := svc.Run(ctx, admin, scope, "suite", "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(got.Header.Identifier, "results-") {
		t.Fatalf("unexpected generated id %q", got.Header.Identifier)
	}
	results, err := domain.BodyAs[*domain.TestResults](got)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	if r := results.Results["latency"]; r.Kind != domain.ResultSuccess || r.Message != "fast" {
		t.Fatalf("expected newest evidence to pass, got %+v", r)
	}
	if got.Header.Creator != admin.Username {
		t.Fatalf("creator = %q", got.Header.Creator)
	}

	if _, err := svc.Run(ctx, admin, scope, "missing", "r2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown suite to be not found, got %v", err)
	}
}
