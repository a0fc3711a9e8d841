package domain

import (
	"context"
	"sort"
)

// TestResults records one Result per test case of a suite snapshot.
type TestResults struct {
	TestSuiteID string            `json:"test_suite_id"`
	TestSuite   TestSuite         `json:"test_suite"`
	Results     map[string]Result `json:"results"`
}

func (*TestResults) ArtifactType() ArtifactType { return ArtifactTypeTestResults }

// Check requires exactly one result per suite case.
func (r *TestResults) Check() error {
	ids := r.TestSuite.CaseIDs()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
		if _, ok := r.Results[id]; !ok {
			return BadRequest("test results missing result for test case %q", id)
		}
	}
	extra := make([]string, 0)
	for id := range r.Results {
		if _, ok := want[id]; !ok {
			extra = append(extra, id)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return BadRequest("test results contain result for unknown test case %q", extra[0])
	}
	return nil
}

// Summary counts results by kind.
func (r *TestResults) Summary() map[ResultKind]int {
	out := map[ResultKind]int{ResultSuccess: 0, ResultFailure: 0, ResultInfo: 0}
	for _, res := range r.Results {
		out[res.Kind]++
	}
	return out
}

// PreSave fills the suite snapshot from the referenced suite when absent.
func (r *TestResults) PreSave(ctx context.Context, scope Scope, reader ArtifactReader) error {
	if r.TestSuiteID == "" {
		return BadRequest("test results must reference a test suite")
	}
	if len(r.TestSuite.TestCases) == 0 && reader != nil {
		a, err := reader.ReadArtifact(ctx, scope, r.TestSuiteID)
		if err != nil {
			if KindOf(err) == ErrNotFound {
				return Referential("test results reference missing test suite %q in %s", r.TestSuiteID, scope)
			}
			return err
		}
		suite, err := BodyAs[*TestSuite](a)
		if err != nil {
			return err
		}
		r.TestSuite = *suite
	}
	return r.Check()
}
