package domain

import (
	"context"
	"encoding/json"
	"time"
)

type ArtifactType string

const (
	ArtifactTypeNegotiationCard ArtifactType = "negotiation_card"
	ArtifactTypeTestSuite       ArtifactType = "test_suite"
	ArtifactTypeEvidence        ArtifactType = "evidence"
	ArtifactTypeTestResults     ArtifactType = "test_results"
	ArtifactTypeReport          ArtifactType = "report"
)

func ArtifactTypes() []ArtifactType {
	return []ArtifactType{
		ArtifactTypeNegotiationCard,
		ArtifactTypeTestSuite,
		ArtifactTypeEvidence,
		ArtifactTypeTestResults,
		ArtifactTypeReport,
	}
}

func ParseArtifactType(value string) (ArtifactType, error) {
	t := ArtifactType(value)
	if _, ok := artifactBodies[t]; !ok {
		return "", BadRequest("unknown artifact type %q", value)
	}
	return t, nil
}

type ArtifactLevel string

const (
	LevelModel   ArtifactLevel = "model"
	LevelVersion ArtifactLevel = "version"
)

type ArtifactHeader struct {
	Identifier string        `json:"identifier"`
	Type       ArtifactType  `json:"type"`
	Timestamp  int64         `json:"timestamp"`
	Creator    string        `json:"creator,omitempty"`
	Level      ArtifactLevel `json:"level"`
}

// ArtifactBody is one of the typed bodies below. Implementations are
// pointers so that hooks can update them in place.
type ArtifactBody interface {
	ArtifactType() ArtifactType
}

var artifactBodies = map[ArtifactType]func() ArtifactBody{
	ArtifactTypeNegotiationCard: func() ArtifactBody { return &NegotiationCard{} },
	ArtifactTypeTestSuite:       func() ArtifactBody { return &TestSuite{} },
	ArtifactTypeEvidence:        func() ArtifactBody { return &Evidence{} },
	ArtifactTypeTestResults:     func() ArtifactBody { return &TestResults{} },
	ArtifactTypeReport:          func() ArtifactBody { return &Report{} },
}

// ArtifactReader is the read view handed to artifact hooks.
type ArtifactReader interface {
	ReadArtifact(ctx context.Context, scope Scope, id string) (Artifact, error)
	ListArtifactsOfType(ctx context.Context, scope Scope, t ArtifactType) ([]Artifact, error)
}

// PreSaveHook runs before a body is persisted; returning an error aborts the
// write before any backend mutation.
type PreSaveHook interface {
	PreSave(ctx context.Context, scope Scope, reader ArtifactReader) error
}

// PostLoadHook runs after a body is read from a backend.
type PostLoadHook interface {
	PostLoad(ctx context.Context, scope Scope, reader ArtifactReader) error
}

type Artifact struct {
	Header ArtifactHeader
	Body   ArtifactBody
}

// NewArtifact wraps body in a version-level header.
func NewArtifact(identifier string, body ArtifactBody) Artifact {
	return Artifact{
		Header: ArtifactHeader{
			Identifier: identifier,
			Type:       body.ArtifactType(),
			Level:      LevelVersion,
		},
		Body: body,
	}
}

func (a Artifact) QueryIdentifier() string { return a.Header.Identifier }
func (a Artifact) QueryType() string       { return string(a.Header.Type) }

// Normalize fills defaults and checks header/body agreement.
func (a *Artifact) Normalize(now time.Time) error {
	if a.Body == nil {
		return BadRequest("artifact %q has no body", a.Header.Identifier)
	}
	if err := ValidIdentifier("artifact", a.Header.Identifier); err != nil {
		return err
	}
	if a.Header.Type == "" {
		a.Header.Type = a.Body.ArtifactType()
	}
	if a.Header.Type != a.Body.ArtifactType() {
		return BadRequest("artifact %q header type %s does not match body type %s", a.Header.Identifier, a.Header.Type, a.Body.ArtifactType())
	}
	switch a.Header.Level {
	case "":
		a.Header.Level = LevelVersion
	case LevelModel, LevelVersion:
	default:
		return BadRequest("artifact %q has unknown level %q", a.Header.Identifier, a.Header.Level)
	}
	if a.Header.Timestamp == 0 {
		a.Header.Timestamp = now.Unix()
	}
	return nil
}

type artifactWire struct {
	Header ArtifactHeader  `json:"header"`
	Body   json.RawMessage `json:"body"`
}

func (a Artifact) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(a.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(artifactWire{Header: a.Header, Body: body})
}

// UnmarshalJSON picks the body variant from the header type.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var wire artifactWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	ctor, ok := artifactBodies[wire.Header.Type]
	if !ok {
		return BadRequest("unknown artifact type %q", wire.Header.Type)
	}
	body := ctor()
	if len(wire.Body) > 0 && string(wire.Body) != "null" {
		if err := json.Unmarshal(wire.Body, body); err != nil {
			return BadRequest("decode %s body: %v", wire.Header.Type, err)
		}
	}
	a.Header = wire.Header
	a.Body = body
	return nil
}

// DecodeArtifact is the inverse of json.Marshal on an Artifact.
func DecodeArtifact(data []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		if KindOf(err) == ErrInternal {
			return Artifact{}, BadRequest("decode artifact: %v", err)
		}
		return Artifact{}, err
	}
	return a, nil
}

// BodyAs returns the body as T or a referential error naming the mismatch.
func BodyAs[T ArtifactBody](a Artifact) (T, error) {
	body, ok := a.Body.(T)
	if !ok {
		var zero T
		return zero, Referential("artifact %q is a %s, expected %s", a.Header.Identifier, a.Header.Type, zero.ArtifactType())
	}
	return body, nil
}
