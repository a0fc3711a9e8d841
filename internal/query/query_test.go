package query

import (
	"encoding/json"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

func catalogEntries() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{Header: domain.CatalogEntryHeader{Identifier: "e1", Creator: "alice"}, Tags: []string{"t1", "t2"}, QualityAttribute: "accuracy"},
		{Header: domain.CatalogEntryHeader{Identifier: "e2", Creator: "bob"}, Tags: []string{"t1"}},
	}
}

func ids(entries []domain.CatalogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Header.Identifier)
	}
	return out
}

func TestFilterComposition(t *testing.T) {
	entries := catalogEntries()

	got := ids(Apply(New(And(IdentifierFilter{ID: "e1"}, TagFilter{Name: "tags", Value: "t2"})), entries))
	if len(got) != 1 || got[0] != "e1" {
		t.Fatalf("and: got %v", got)
	}
	got = ids(Apply(New(Or(IdentifierFilter{ID: "e1"}, IdentifierFilter{ID: "e2"})), entries))
	if len(got) != 2 {
		t.Fatalf("or: got %v", got)
	}
	if got := Apply(New(NoneFilter{}), entries); len(got) != 0 {
		t.Fatalf("none matched %d", len(got))
	}
	if got := Apply(New(AllFilter{}), entries); len(got) != 2 {
		t.Fatalf("all matched %d", len(got))
	}
	if got := Apply(Query{}, entries); len(got) != 2 {
		t.Fatalf("zero query matched %d", len(got))
	}
}

func TestAndOrAreIntersectionAndUnion(t *testing.T) {
	entries := catalogEntries()
	a := TagFilter{Name: "tags", Value: "t1"}
	b := PropertyFilter{Name: "header.creator", Value: "alice"}

	for _, e := range entries {
		if And(a, b).Match(e) != (a.Match(e) && b.Match(e)) {
			t.Fatalf("and mismatch for %s", e.Header.Identifier)
		}
		if Or(a, b).Match(e) != (a.Match(e) || b.Match(e)) {
			t.Fatalf("or mismatch for %s", e.Header.Identifier)
		}
	}
	if !And().Match(entries[0]) {
		t.Fatalf("empty and should match")
	}
	if Or().Match(entries[0]) {
		t.Fatalf("empty or should not match")
	}
}

func TestPropertyFilter(t *testing.T) {
	entries := catalogEntries()
	got := ids(Apply(New(PropertyFilter{Name: "quality_attribute", Value: "accuracy"}), entries))
	if len(got) != 1 || got[0] != "e1" {
		t.Fatalf("got %v", got)
	}
	if (PropertyFilter{Name: "missing.path", Value: "x"}).Match(entries[0]) {
		t.Fatalf("missing path should not match")
	}
}

func TestTypeFilterOnArtifacts(t *testing.T) {
	card := domain.NewArtifact("card", &domain.NegotiationCard{})
	suite := domain.NewArtifact("suite", &domain.TestSuite{})
	got := Apply(New(TypeFilter{ItemType: string(domain.ArtifactTypeTestSuite)}), []domain.Artifact{card, suite})
	if len(got) != 1 || got[0].Header.Identifier != "suite" {
		t.Fatalf("got %v", got)
	}
}

func TestQueryJSON(t *testing.T) {
	raw := `{"filter":{"type":"and","filters":[{"type":"identifier","id":"e1"},{"type":"or","filters":[{"type":"tag","name":"tags","value":"t2"},{"type":"none"}]}]}}`
	var q Query
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := ids(Apply(q, catalogEntries())); len(got) != 1 || got[0] != "e1" {
		t.Fatalf("got %v", got)
	}
	out, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again Query
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("unmarshal again: %v", err)
	}
	if again.Filter.Kind() != KindAnd {
		t.Fatalf("kind = %s", again.Filter.Kind())
	}
}

func TestUnknownFilterType(t *testing.T) {
	var q Query
	err := json.Unmarshal([]byte(`{"filter":{"type":"regex"}}`), &q)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestIdentifiersPushdown(t *testing.T) {
	got, ok := Identifiers(Or(IdentifierFilter{ID: "a"}, IdentifierFilter{ID: "b"}))
	if !ok || len(got) != 2 {
		t.Fatalf("got %v %v", got, ok)
	}
	if _, ok := Identifiers(And(IdentifierFilter{ID: "a"})); ok {
		t.Fatalf("and should not push down")
	}
}
