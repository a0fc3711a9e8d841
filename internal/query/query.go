package query

import (
	"encoding/json"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

// Query wraps the root of a filter tree. The zero value matches everything.
type Query struct {
	Filter Filter
}

func New(f Filter) Query { return Query{Filter: f} }

func (q Query) Match(item Item) bool {
	if q.Filter == nil {
		return true
	}
	return q.Filter.Match(item)
}

// Apply keeps the items q matches, preserving order.
func Apply[T Item](q Query, items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if q.Match(item) {
			out = append(out, item)
		}
	}
	return out
}

type queryWire struct {
	Filter json.RawMessage `json:"filter"`
}

func (q Query) MarshalJSON() ([]byte, error) {
	f := q.Filter
	if f == nil {
		f = AllFilter{}
	}
	raw, err := MarshalFilter(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(queryWire{Filter: raw})
}

func (q *Query) UnmarshalJSON(data []byte) error {
	var wire queryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.BadRequest("decode query: %v", err)
	}
	if len(wire.Filter) == 0 || string(wire.Filter) == "null" {
		q.Filter = AllFilter{}
		return nil
	}
	f, err := UnmarshalFilter(wire.Filter)
	if err != nil {
		return err
	}
	q.Filter = f
	return nil
}

type filterWire struct {
	Type     Kind              `json:"type"`
	ID       string            `json:"id,omitempty"`
	ItemType string            `json:"item_type,omitempty"`
	Name     string            `json:"name,omitempty"`
	Value    any               `json:"value,omitempty"`
	Filters  []json.RawMessage `json:"filters,omitempty"`
}

// MarshalFilter writes f with its "type" discriminator.
func MarshalFilter(f Filter) ([]byte, error) {
	wire := filterWire{Type: f.Kind()}
	switch v := f.(type) {
	case IdentifierFilter:
		wire.ID = v.ID
	case TypeFilter:
		wire.ItemType = v.ItemType
	case TagFilter:
		wire.Name, wire.Value = v.Name, v.Value
	case PropertyFilter:
		wire.Name, wire.Value = v.Name, v.Value
	case AndFilter:
		children, err := marshalChildren(v.Filters)
		if err != nil {
			return nil, err
		}
		wire.Filters = children
	case OrFilter:
		children, err := marshalChildren(v.Filters)
		if err != nil {
			return nil, err
		}
		wire.Filters = children
	}
	return json.Marshal(wire)
}

func marshalChildren(filters []Filter) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(filters))
	for _, child := range filters {
		raw, err := MarshalFilter(child)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

var filterDecoders map[Kind]func(filterWire) (Filter, error)

func init() {
	filterDecoders = map[Kind]func(filterWire) (Filter, error){
		KindAll:  func(filterWire) (Filter, error) { return AllFilter{}, nil },
		KindNone: func(filterWire) (Filter, error) { return NoneFilter{}, nil },
		KindIdentifier: func(w filterWire) (Filter, error) {
			return IdentifierFilter{ID: w.ID}, nil
		},
		KindType: func(w filterWire) (Filter, error) {
			return TypeFilter{ItemType: w.ItemType}, nil
		},
		KindTag: func(w filterWire) (Filter, error) {
			tag, ok := w.Value.(string)
			if !ok {
				return nil, domain.BadRequest("tag filter value must be a string")
			}
			return TagFilter{Name: w.Name, Value: tag}, nil
		},
		KindProperty: func(w filterWire) (Filter, error) {
			return PropertyFilter{Name: w.Name, Value: w.Value}, nil
		},
		KindAnd: func(w filterWire) (Filter, error) {
			children, err := unmarshalChildren(w.Filters)
			if err != nil {
				return nil, err
			}
			return AndFilter{Filters: children}, nil
		},
		KindOr: func(w filterWire) (Filter, error) {
			children, err := unmarshalChildren(w.Filters)
			if err != nil {
				return nil, err
			}
			return OrFilter{Filters: children}, nil
		},
	}
}

// UnmarshalFilter picks the filter constructor from the "type" field.
func UnmarshalFilter(data []byte) (Filter, error) {
	var wire filterWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, domain.BadRequest("decode filter: %v", err)
	}
	decode, ok := filterDecoders[wire.Type]
	if !ok {
		return nil, domain.BadRequest("unknown filter type %q", wire.Type)
	}
	return decode(wire)
}

func unmarshalChildren(raw []json.RawMessage) ([]Filter, error) {
	out := make([]Filter, 0, len(raw))
	for _, r := range raw {
		f, err := UnmarshalFilter(r)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
