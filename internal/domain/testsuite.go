package domain

import (
	"context"
	"sort"
)

// MeasurementMetadata names the measurement that produces a test case's
// evidence.
type MeasurementMetadata struct {
	MeasurementClass string            `json:"measurement_class"`
	OutputClass      string            `json:"output_class"`
	AdditionalData   map[string]string `json:"additional_data,omitempty"`
}

// ValidatorModel is the serializable form of a validator. BoolExp is a CEL
// expression over the evidence value.
type ValidatorModel struct {
	BoolExp    string   `json:"bool_exp,omitempty"`
	BoolExpStr string   `json:"bool_exp_str,omitempty"`
	Success    string   `json:"success,omitempty"`
	Failure    string   `json:"failure,omitempty"`
	Info       string   `json:"info,omitempty"`
	InputTypes []string `json:"input_types,omitempty"`
	Caller     string   `json:"caller,omitempty"`
}

type TestCase struct {
	Identifier  string               `json:"identifier"`
	Goal        string               `json:"goal,omitempty"`
	QASList     []string             `json:"qas_list"`
	Measurement *MeasurementMetadata `json:"measurement,omitempty"`
	Validator   *ValidatorModel      `json:"validator,omitempty"`
}

// TestSuite is an ordered collection of test cases keyed by identifier.
type TestSuite struct {
	TestCases []TestCase `json:"test_cases"`
}

func (*TestSuite) ArtifactType() ArtifactType { return ArtifactTypeTestSuite }

func (s *TestSuite) Case(id string) (TestCase, bool) {
	for _, tc := range s.TestCases {
		if tc.Identifier == id {
			return tc, true
		}
	}
	return TestCase{}, false
}

func (s *TestSuite) AddCase(tc TestCase) error {
	if _, exists := s.Case(tc.Identifier); exists {
		return AlreadyExists("test case %q already in suite", tc.Identifier)
	}
	s.TestCases = append(s.TestCases, tc)
	return nil
}

func (s *TestSuite) CaseIDs() []string {
	ids := make([]string, 0, len(s.TestCases))
	for _, tc := range s.TestCases {
		ids = append(ids, tc.Identifier)
	}
	return ids
}

// Check enforces identifier presence and uniqueness.
func (s *TestSuite) Check() error {
	seen := make(map[string]struct{}, len(s.TestCases))
	for _, tc := range s.TestCases {
		if tc.Identifier == "" {
			return BadRequest("test case without identifier")
		}
		if _, dup := seen[tc.Identifier]; dup {
			return BadRequest("duplicate test case identifier %q", tc.Identifier)
		}
		seen[tc.Identifier] = struct{}{}
	}
	return nil
}

// PreSave requires every referenced QAS to exist in a negotiation card of
// the same scope.
func (s *TestSuite) PreSave(ctx context.Context, scope Scope, reader ArtifactReader) error {
	if err := s.Check(); err != nil {
		return err
	}
	needed := make(map[string][]string)
	for _, tc := range s.TestCases {
		for _, qas := range tc.QASList {
			needed[qas] = append(needed[qas], tc.Identifier)
		}
	}
	if len(needed) == 0 {
		return nil
	}
	known := make(map[string]struct{})
	if reader != nil {
		cards, err := reader.ListArtifactsOfType(ctx, scope, ArtifactTypeNegotiationCard)
		if err != nil {
			return err
		}
		for _, a := range cards {
			card, ok := a.Body.(*NegotiationCard)
			if !ok {
				continue
			}
			for _, id := range card.QASIDs() {
				known[id] = struct{}{}
			}
		}
	}
	missing := make([]string, 0)
	for qas := range needed {
		if _, ok := known[qas]; !ok {
			missing = append(missing, qas)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return Referential("test case %q references unknown quality attribute scenario %q in %s",
		needed[missing[0]][0], missing[0], scope)
}
