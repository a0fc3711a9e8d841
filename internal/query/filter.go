package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Item is anything a filter can be matched against.
type Item interface {
	QueryIdentifier() string
	QueryType() string
}

type Kind string

const (
	KindAll        Kind = "all"
	KindNone       Kind = "none"
	KindIdentifier Kind = "identifier"
	KindType       Kind = "type"
	KindTag        Kind = "tag"
	KindProperty   Kind = "property"
	KindAnd        Kind = "and"
	KindOr         Kind = "or"
)

// Filter is a node of the filter tree. Match must be pure.
type Filter interface {
	Kind() Kind
	Match(item Item) bool
}

type AllFilter struct{}

func (AllFilter) Kind() Kind      { return KindAll }
func (AllFilter) Match(Item) bool { return true }

type NoneFilter struct{}

func (NoneFilter) Kind() Kind      { return KindNone }
func (NoneFilter) Match(Item) bool { return false }

type IdentifierFilter struct {
	ID string `json:"id"`
}

func (IdentifierFilter) Kind() Kind { return KindIdentifier }
func (f IdentifierFilter) Match(item Item) bool {
	return item.QueryIdentifier() == f.ID
}

type TypeFilter struct {
	ItemType string `json:"item_type"`
}

func (TypeFilter) Kind() Kind { return KindType }
func (f TypeFilter) Match(item Item) bool {
	return item.QueryType() == f.ItemType
}

// TagFilter matches items whose list field Name contains Value.
type TagFilter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (TagFilter) Kind() Kind { return KindTag }
func (f TagFilter) Match(item Item) bool {
	field, ok := lookup(item, f.Name)
	if !ok {
		return false
	}
	list, ok := field.([]any)
	if !ok {
		return false
	}
	for _, v := range list {
		if fmt.Sprint(v) == f.Value {
			return true
		}
	}
	return false
}

// PropertyFilter matches items whose field Name equals Value. Name may be a
// dotted path into nested objects.
type PropertyFilter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (PropertyFilter) Kind() Kind { return KindProperty }
func (f PropertyFilter) Match(item Item) bool {
	field, ok := lookup(item, f.Name)
	if !ok {
		return false
	}
	want, err := normalize(f.Value)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(field, want)
}

type AndFilter struct {
	Filters []Filter `json:"filters"`
}

func (AndFilter) Kind() Kind { return KindAnd }
func (f AndFilter) Match(item Item) bool {
	for _, child := range f.Filters {
		if !child.Match(item) {
			return false
		}
	}
	return true
}

type OrFilter struct {
	Filters []Filter `json:"filters"`
}

func (OrFilter) Kind() Kind { return KindOr }
func (f OrFilter) Match(item Item) bool {
	for _, child := range f.Filters {
		if child.Match(item) {
			return true
		}
	}
	return false
}

func And(filters ...Filter) AndFilter { return AndFilter{Filters: filters} }
func Or(filters ...Filter) OrFilter   { return OrFilter{Filters: filters} }

// lookup projects item through its JSON form and walks a dotted path.
func lookup(item Item, path string) (any, bool) {
	projected, err := normalize(item)
	if err != nil {
		return nil, false
	}
	current := projected
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Identifiers returns the ids an identifier-only tree can be answered from,
// letting backends push the lookup down. ok is false for any other shape.
func Identifiers(f Filter) ([]string, bool) {
	switch v := f.(type) {
	case IdentifierFilter:
		return []string{v.ID}, true
	case *IdentifierFilter:
		return []string{v.ID}, true
	case OrFilter:
		ids := make([]string, 0, len(v.Filters))
		for _, child := range v.Filters {
			sub, ok := Identifiers(child)
			if !ok {
				return nil, false
			}
			ids = append(ids, sub...)
		}
		return ids, true
	}
	return nil, false
}

// Types returns the single type an AND-tree constrains every match to.
func Types(f Filter) (string, bool) {
	switch v := f.(type) {
	case TypeFilter:
		return v.ItemType, true
	case AndFilter:
		for _, child := range v.Filters {
			if t, ok := Types(child); ok {
				return t, true
			}
		}
	}
	return "", false
}
