package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"github.com/google/uuid"
)

// SuiteRunner validates evidence against the validators of a suite.
type SuiteRunner interface {
	RunSuite(suiteID string, suite domain.TestSuite, evidence []*domain.Evidence) (*domain.TestResults, error)
}

// ResultService produces test results from stored evidence and converts
// Info results into a manual verdict.
type ResultService struct {
	Artifacts *store.ArtifactStore
	Runner    SuiteRunner
	Logger    *slog.Logger
	// OnValidated is called after each successful conversion.
	OnValidated func(kind domain.ResultKind)
}

func NewResultService(artifacts *store.ArtifactStore, logger *slog.Logger) *ResultService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultService{Artifacts: artifacts, Logger: logger}
}

// Run validates the newest evidence of every case of suiteID and stores the
// outcome as a test results artifact. An empty resultsID gets a generated
// one; an existing artifact with that id is replaced.
func (s *ResultService) Run(ctx context.Context, actor domain.User, scope domain.Scope, suiteID, resultsID string) (domain.Artifact, error) {
	if s.Runner == nil {
		return domain.Artifact{}, domain.Internal("no suite runner configured")
	}
	if resultsID == "" {
		resultsID = "results-" + uuid.NewString()
	}
	var out domain.Artifact
	err := store.With(ctx, s.Artifacts.Session, func(as *store.ArtifactSession) error {
		artifact, err := as.Artifacts().Read(ctx, scope, suiteID)
		if err != nil {
			return err
		}
		suite, err := domain.BodyAs[*domain.TestSuite](artifact)
		if err != nil {
			return err
		}
		stored, err := as.Artifacts().ListArtifactsOfType(ctx, scope, domain.ArtifactTypeEvidence)
		if err != nil {
			return err
		}
		results, err := s.Runner.RunSuite(suiteID, *suite, latestEvidence(suite, stored))
		if err != nil {
			return err
		}
		written := domain.NewArtifact(resultsID, results)
		written.Header.Creator = actor.Username
		out, err = as.Artifacts().Create(ctx, scope, written, store.WriteOptions{Force: true})
		return err
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	s.Logger.InfoContext(ctx, "test suite run",
		"scope", scope.String(),
		"test_suite", suiteID,
		"test_results", resultsID,
		"by", actor.Username,
	)
	return out, nil
}

// latestEvidence keeps, per test case of suite, the evidence artifact with
// the newest timestamp. Evidence for other cases is ignored.
func latestEvidence(suite *domain.TestSuite, stored []domain.Artifact) []*domain.Evidence {
	sort.SliceStable(stored, func(i, j int) bool {
		if stored[i].Header.Timestamp != stored[j].Header.Timestamp {
			return stored[i].Header.Timestamp > stored[j].Header.Timestamp
		}
		return stored[i].Header.Identifier > stored[j].Header.Identifier
	})
	picked := make(map[string]*domain.Evidence, len(suite.TestCases))
	for _, a := range stored {
		ev, ok := a.Body.(*domain.Evidence)
		if !ok {
			continue
		}
		id := ev.Metadata.TestCaseID
		if _, known := suite.Case(id); !known {
			continue
		}
		if _, done := picked[id]; !done {
			picked[id] = ev
		}
	}
	out := make([]*domain.Evidence, 0, len(picked))
	for _, tc := range suite.TestCases {
		if ev, ok := picked[tc.Identifier]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// ManuallyValidate rewrites the result of testCaseID in the test results
// artifact resultsID.
func (s *ResultService) ManuallyValidate(ctx context.Context, actor domain.User, scope domain.Scope, resultsID, testCaseID string, success bool) (domain.Result, error) {
	var out domain.Result
	err := store.With(ctx, s.Artifacts.Session, func(as *store.ArtifactSession) error {
		artifact, err := as.Artifacts().Read(ctx, scope, resultsID)
		if err != nil {
			return err
		}
		results, err := domain.BodyAs[*domain.TestResults](artifact)
		if err != nil {
			return err
		}
		current, ok := results.Results[testCaseID]
		if !ok {
			return domain.NotFound("test results %q have no result for test case %q", resultsID, testCaseID)
		}
		converted, err := current.ManuallyValidate(success)
		if err != nil {
			return err
		}
		results.Results[testCaseID] = converted
		if _, err := as.Artifacts().Edit(ctx, scope, artifact, store.WriteOptions{Force: true}); err != nil {
			return err
		}
		out = converted
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	s.Logger.InfoContext(ctx, "result manually validated",
		"scope", scope.String(),
		"test_results", resultsID,
		"test_case", testCaseID,
		"verdict", string(out.Kind),
		"by", actor.Username,
	)
	if s.OnValidated != nil {
		s.OnValidated(out.Kind)
	}
	return out, nil
}
