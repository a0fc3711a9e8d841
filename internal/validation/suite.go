package validation

import (
	"github.com/mlte-team/mlte-sub000/internal/domain"
)

// RunSuite validates one piece of evidence per test case and assembles the
// results against a snapshot of suite.
func (e *Engine) RunSuite(suiteID string, suite domain.TestSuite, evidence []*domain.Evidence) (*domain.TestResults, error) {
	byCase := make(map[string]*domain.Evidence, len(evidence))
	for _, ev := range evidence {
		id := ev.Metadata.TestCaseID
		if _, ok := suite.Case(id); !ok {
			return nil, domain.BadRequest("evidence refers to unknown test case %q", id)
		}
		if _, dup := byCase[id]; dup {
			return nil, domain.BadRequest("more than one piece of evidence for test case %q", id)
		}
		byCase[id] = ev
	}
	results := &domain.TestResults{
		TestSuiteID: suiteID,
		TestSuite:   suite,
		Results:     make(map[string]domain.Result, len(suite.TestCases)),
	}
	for _, tc := range suite.TestCases {
		ev, ok := byCase[tc.Identifier]
		if !ok {
			return nil, domain.BadRequest("no evidence for test case %q", tc.Identifier)
		}
		if tc.Validator == nil {
			return nil, domain.BadRequest("test case %q has no validator", tc.Identifier)
		}
		res, err := e.Validate(*tc.Validator, ev)
		if err != nil {
			return nil, err
		}
		results.Results[tc.Identifier] = res
	}
	return results, results.Check()
}
