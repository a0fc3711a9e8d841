package domain

import "context"

// Report assembles snapshots of the card, suite and results it was built
// from. Identifiers are resolved at save time.
type Report struct {
	NegotiationCardID    string               `json:"negotiation_card_id,omitempty"`
	NegotiationCard      *NegotiationCard     `json:"negotiation_card,omitempty"`
	TestSuiteID          string               `json:"test_suite_id,omitempty"`
	TestSuite            *TestSuite           `json:"test_suite,omitempty"`
	TestResultsID        string               `json:"test_results_id,omitempty"`
	TestResults          *TestResults         `json:"test_results,omitempty"`
	Comments             []CommentDescriptor  `json:"comments,omitempty"`
	QuantitativeAnalysis QuantitativeAnalysis `json:"quantitative_analysis"`
}

type CommentDescriptor struct {
	Content string `json:"content"`
}

type QuantitativeAnalysis struct {
	Content string `json:"content,omitempty"`
}

func (*Report) ArtifactType() ArtifactType { return ArtifactTypeReport }

func (r *Report) PreSave(ctx context.Context, scope Scope, reader ArtifactReader) error {
	if reader == nil {
		return nil
	}
	if r.NegotiationCardID != "" {
		card, err := resolveBody[*NegotiationCard](ctx, reader, scope, r.NegotiationCardID)
		if err != nil {
			return err
		}
		r.NegotiationCard = card
	}
	if r.TestSuiteID != "" {
		suite, err := resolveBody[*TestSuite](ctx, reader, scope, r.TestSuiteID)
		if err != nil {
			return err
		}
		r.TestSuite = suite
	}
	if r.TestResultsID != "" {
		results, err := resolveBody[*TestResults](ctx, reader, scope, r.TestResultsID)
		if err != nil {
			return err
		}
		r.TestResults = results
	}
	return nil
}

func resolveBody[T ArtifactBody](ctx context.Context, reader ArtifactReader, scope Scope, id string) (T, error) {
	var zero T
	a, err := reader.ReadArtifact(ctx, scope, id)
	if err != nil {
		if KindOf(err) == ErrNotFound {
			return zero, Referential("report references missing %s %q in %s", zero.ArtifactType(), id, scope)
		}
		return zero, err
	}
	return BodyAs[T](a)
}
