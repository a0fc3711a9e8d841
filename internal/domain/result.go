package domain

import (
	"encoding/json"
	"strings"
)

type ResultKind string

const (
	ResultSuccess ResultKind = "Success"
	ResultFailure ResultKind = "Failure"
	ResultInfo    ResultKind = "Info"
)

const manualValidationPrefix = "Manually validated: "

// Result is the outcome of validating one piece of evidence.
type Result struct {
	Kind             ResultKind
	Message          string
	EvidenceMetadata *EvidenceMetadata
}

func Success(message string) Result { return Result{Kind: ResultSuccess, Message: message} }
func Failure(message string) Result { return Result{Kind: ResultFailure, Message: message} }
func Info(message string) Result    { return Result{Kind: ResultInfo, Message: message} }

// WithEvidence attaches the metadata of the evidence that was validated.
func (r Result) WithEvidence(meta EvidenceMetadata) Result {
	r.EvidenceMetadata = &meta
	return r
}

// Passed reports whether the result is a success. Info results carry no
// verdict and return an error instead.
func (r Result) Passed() (bool, error) {
	switch r.Kind {
	case ResultSuccess:
		return true, nil
	case ResultFailure:
		return false, nil
	case ResultInfo:
		return false, BadRequest("info result %q has no pass/fail verdict", r.Message)
	}
	return false, Internal("unknown result kind %q", r.Kind)
}

// ManuallyValidate converts an Info result into Success or Failure.
func (r Result) ManuallyValidate(success bool) (Result, error) {
	if r.Kind != ResultInfo {
		return Result{}, BadRequest("only info results can be manually validated, got %s", r.Kind)
	}
	out := r
	out.Kind = ResultFailure
	if success {
		out.Kind = ResultSuccess
	}
	if !strings.HasPrefix(out.Message, manualValidationPrefix) {
		out.Message = manualValidationPrefix + out.Message
	}
	return out, nil
}

type resultPayload struct {
	Message          string            `json:"message"`
	EvidenceMetadata *EvidenceMetadata `json:"evidence_metadata,omitempty"`
}

var resultVariants = map[string]ResultKind{
	string(ResultSuccess): ResultSuccess,
	string(ResultFailure): ResultFailure,
	string(ResultInfo):    ResultInfo,
}

func (r Result) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(resultPayload{Message: r.Message, EvidenceMetadata: r.EvidenceMetadata})
	if err != nil {
		return nil, err
	}
	return json.Marshal(variantWire{Variant: string(r.Kind), Payload: payload})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var wire variantWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	kind, ok := resultVariants[wire.Variant]
	if !ok {
		return BadRequest("unknown result variant %q", wire.Variant)
	}
	var payload resultPayload
	if len(wire.Payload) > 0 {
		if err := json.Unmarshal(wire.Payload, &payload); err != nil {
			return BadRequest("decode %s result: %v", wire.Variant, err)
		}
	}
	*r = Result{Kind: kind, Message: payload.Message, EvidenceMetadata: payload.EvidenceMetadata}
	return nil
}
