package domain

import (
	"encoding/json"
	"fmt"
)

type EvidenceType string

const (
	EvidenceInteger EvidenceType = "integer"
	EvidenceReal    EvidenceType = "real"
	EvidenceString  EvidenceType = "string"
	EvidenceArray   EvidenceType = "array"
	EvidenceImage   EvidenceType = "image"
	EvidenceOpaque  EvidenceType = "opaque"
)

// EvidenceMetadata links evidence back to the test case that produced it.
type EvidenceMetadata struct {
	TestCaseID  string              `json:"test_case_id"`
	Measurement MeasurementMetadata `json:"measurement"`
}

// EvidenceValue is one variant of the evidence sum type.
type EvidenceValue interface {
	EvidenceType() EvidenceType
	// Native returns the value in the shape validators evaluate against.
	Native() any
}

type IntegerValue struct {
	Integer int64  `json:"integer"`
	Unit    string `json:"unit,omitempty"`
}

func (IntegerValue) EvidenceType() EvidenceType { return EvidenceInteger }
func (v IntegerValue) Native() any              { return v.Integer }

type RealValue struct {
	Real float64 `json:"real"`
	Unit string  `json:"unit,omitempty"`
}

func (RealValue) EvidenceType() EvidenceType { return EvidenceReal }
func (v RealValue) Native() any              { return v.Real }

type StringValue struct {
	String string `json:"string"`
}

func (StringValue) EvidenceType() EvidenceType { return EvidenceString }
func (v StringValue) Native() any              { return v.String }

type ArrayValue struct {
	Data []any `json:"data"`
}

func (ArrayValue) EvidenceType() EvidenceType { return EvidenceArray }
func (v ArrayValue) Native() any              { return v.Data }

type ImageValue struct {
	Data []byte `json:"data"`
}

func (ImageValue) EvidenceType() EvidenceType { return EvidenceImage }
func (v ImageValue) Native() any              { return v.Data }

// OpaqueValue carries extension evidence as a dictionary payload.
type OpaqueValue struct {
	Data map[string]any `json:"data"`
}

func (OpaqueValue) EvidenceType() EvidenceType { return EvidenceOpaque }
func (v OpaqueValue) Native() any              { return v.Data }

var evidenceVariants = map[EvidenceType]func() EvidenceValue{
	EvidenceInteger: func() EvidenceValue { return &IntegerValue{} },
	EvidenceReal:    func() EvidenceValue { return &RealValue{} },
	EvidenceString:  func() EvidenceValue { return &StringValue{} },
	EvidenceArray:   func() EvidenceValue { return &ArrayValue{} },
	EvidenceImage:   func() EvidenceValue { return &ImageValue{} },
	EvidenceOpaque:  func() EvidenceValue { return &OpaqueValue{} },
}

// Evidence is the body of an evidence artifact. EvidenceClass records the
// concrete producer type name; extension evidence uses the opaque variant.
type Evidence struct {
	Metadata      EvidenceMetadata `json:"metadata"`
	EvidenceClass string           `json:"evidence_class"`
	Value         EvidenceValue    `json:"-"`
}

func (*Evidence) ArtifactType() ArtifactType { return ArtifactTypeEvidence }

func NewEvidence(meta EvidenceMetadata, class string, value EvidenceValue) *Evidence {
	if class == "" && value != nil {
		class = defaultEvidenceClass(value.EvidenceType())
	}
	return &Evidence{Metadata: meta, EvidenceClass: class, Value: value}
}

func defaultEvidenceClass(t EvidenceType) string {
	switch t {
	case EvidenceInteger:
		return "mlte.evidence.types.integer.Integer"
	case EvidenceReal:
		return "mlte.evidence.types.real.Real"
	case EvidenceString:
		return "mlte.evidence.types.string.String"
	case EvidenceArray:
		return "mlte.evidence.types.array.Array"
	case EvidenceImage:
		return "mlte.evidence.types.image.Image"
	default:
		return "mlte.evidence.external.ExternalEvidence"
	}
}

type variantWire struct {
	Variant string          `json:"variant"`
	Payload json.RawMessage `json:"payload"`
}

type evidenceWire struct {
	Metadata      EvidenceMetadata `json:"metadata"`
	EvidenceClass string           `json:"evidence_class"`
	Value         *variantWire     `json:"value"`
}

func (e Evidence) MarshalJSON() ([]byte, error) {
	wire := evidenceWire{Metadata: e.Metadata, EvidenceClass: e.EvidenceClass}
	if e.Value != nil {
		payload, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		wire.Value = &variantWire{Variant: string(e.Value.EvidenceType()), Payload: payload}
	}
	return json.Marshal(wire)
}

func (e *Evidence) UnmarshalJSON(data []byte) error {
	var wire evidenceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.Metadata = wire.Metadata
	e.EvidenceClass = wire.EvidenceClass
	e.Value = nil
	if wire.Value == nil {
		return nil
	}
	value, err := DecodeEvidenceValue(wire.Value.Variant, wire.Value.Payload)
	if err != nil {
		return err
	}
	e.Value = value
	return nil
}

// DecodeEvidenceValue looks up the variant constructor and decodes payload
// into it. Values are returned by value, not pointer.
func DecodeEvidenceValue(variant string, payload []byte) (EvidenceValue, error) {
	ctor, ok := evidenceVariants[EvidenceType(variant)]
	if !ok {
		return nil, BadRequest("unknown evidence variant %q", variant)
	}
	value := ctor()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, value); err != nil {
			return nil, BadRequest("decode %s evidence: %v", variant, err)
		}
	}
	switch v := value.(type) {
	case *IntegerValue:
		return *v, nil
	case *RealValue:
		return *v, nil
	case *StringValue:
		return *v, nil
	case *ArrayValue:
		return *v, nil
	case *ImageValue:
		return *v, nil
	case *OpaqueValue:
		return *v, nil
	}
	return nil, Internal("evidence variant %q has no value form", variant)
}

func (e *Evidence) String() string {
	if e.Value == nil {
		return fmt.Sprintf("evidence(%s)", e.Metadata.TestCaseID)
	}
	return fmt.Sprintf("evidence(%s, %s=%v)", e.Metadata.TestCaseID, e.Value.EvidenceType(), e.Value.Native())
}
