package domain

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

type ProblemType string

const (
	ProblemClassification    ProblemType = "classification"
	ProblemClustering        ProblemType = "clustering"
	ProblemTrend             ProblemType = "trend"
	ProblemAlert             ProblemType = "alert"
	ProblemForecasting       ProblemType = "forecasting"
	ProblemContentGeneration ProblemType = "content_generation"
	ProblemBenchmarking      ProblemType = "benchmarking"
	ProblemGoals             ProblemType = "goals"
	ProblemDetection         ProblemType = "detection"
	ProblemOther             ProblemType = "other"
)

func ProblemTypes() []ProblemType {
	return []ProblemType{
		ProblemClassification, ProblemClustering, ProblemTrend, ProblemAlert, ProblemForecasting,
		ProblemContentGeneration, ProblemBenchmarking, ProblemGoals, ProblemDetection, ProblemOther,
	}
}

type DataClassification string

const (
	ClassificationUnclassified DataClassification = "unclassified"
	ClassificationCUI          DataClassification = "cui"
	ClassificationPII          DataClassification = "pii"
	ClassificationPHI          DataClassification = "phi"
	ClassificationOther        DataClassification = "other"
)

func DataClassifications() []DataClassification {
	return []DataClassification{
		ClassificationUnclassified, ClassificationCUI, ClassificationPII, ClassificationPHI, ClassificationOther,
	}
}

type MetricDescriptor struct {
	Description string `json:"description,omitempty"`
	Baseline    string `json:"baseline,omitempty"`
}

type GoalDescriptor struct {
	Description string             `json:"description,omitempty"`
	Metrics     []MetricDescriptor `json:"metrics,omitempty"`
}

type SystemDescriptor struct {
	Goals        []GoalDescriptor `json:"goals,omitempty"`
	ProblemType  ProblemType      `json:"problem_type,omitempty"`
	Task         string           `json:"task,omitempty"`
	UsageContext string           `json:"usage_context,omitempty"`
	Risks        []string         `json:"risks,omitempty"`
}

type LabelDescriptor struct {
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Percentage  float64 `json:"percentage,omitempty"`
}

type FieldDescriptor struct {
	Name           string `json:"name,omitempty"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type,omitempty"`
	ExpectedValues string `json:"expected_values,omitempty"`
	MissingValues  string `json:"missing_values,omitempty"`
	SpecialValues  string `json:"special_values,omitempty"`
}

type DataDescriptor struct {
	Description    string             `json:"description,omitempty"`
	Source         string             `json:"source,omitempty"`
	Classification DataClassification `json:"classification,omitempty"`
	Access         string             `json:"access,omitempty"`
	LabelingMethod string             `json:"labeling_method,omitempty"`
	Labels         []LabelDescriptor  `json:"labels,omitempty"`
	Fields         []FieldDescriptor  `json:"fields,omitempty"`
	Rights         string             `json:"rights,omitempty"`
	Policies       string             `json:"policies,omitempty"`
}

type ModelResourcesDescriptor struct {
	CPU     string `json:"cpu,omitempty"`
	GPU     string `json:"gpu,omitempty"`
	Memory  string `json:"memory,omitempty"`
	Storage string `json:"storage,omitempty"`
}

type ModelIODescriptor struct {
	Name           string `json:"name,omitempty"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type,omitempty"`
	ExpectedValues string `json:"expected_values,omitempty"`
}

type ModelDescriptor struct {
	DevelopmentComputeResources   ModelResourcesDescriptor `json:"development_compute_resources"`
	DeploymentPlatform            string                   `json:"deployment_platform,omitempty"`
	CapabilityDeploymentMechanism string                   `json:"capability_deployment_mechanism,omitempty"`
	InputSpecification            []ModelIODescriptor      `json:"input_specification,omitempty"`
	OutputSpecification           []ModelIODescriptor      `json:"output_specification,omitempty"`
	ProductionComputeResources    ModelResourcesDescriptor `json:"production_compute_resources"`
}

// QualityAttributeScenario is a single negotiated requirement.
type QualityAttributeScenario struct {
	Identifier  string `json:"identifier,omitempty"`
	Quality     string `json:"quality,omitempty"`
	Stimulus    string `json:"stimulus,omitempty"`
	Source      string `json:"source,omitempty"`
	Environment string `json:"environment,omitempty"`
	Response    string `json:"response,omitempty"`
	Measure     string `json:"measure,omitempty"`
}

type NegotiationCard struct {
	System             SystemDescriptor           `json:"system"`
	Data               []DataDescriptor           `json:"data"`
	Model              ModelDescriptor            `json:"model"`
	SystemRequirements []QualityAttributeScenario `json:"system_requirements"`
}

func (*NegotiationCard) ArtifactType() ArtifactType { return ArtifactTypeNegotiationCard }

const qasIDPrefix = "qas_id_"

var qasIDPattern = regexp.MustCompile(`^qas_id_(\d{3,})$`)

func FormatQASID(ordinal int) string {
	return fmt.Sprintf("%s%03d", qasIDPrefix, ordinal)
}

// ParseQASID returns the ordinal of a well formed QAS identifier.
func ParseQASID(id string) (int, bool) {
	m := qasIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *NegotiationCard) QASIDs() []string {
	ids := make([]string, 0, len(c.SystemRequirements))
	for _, qas := range c.SystemRequirements {
		if qas.Identifier != "" {
			ids = append(ids, qas.Identifier)
		}
	}
	return ids
}

// MaxQASOrdinal is the highest ordinal among well formed identifiers.
func (c *NegotiationCard) MaxQASOrdinal() int {
	highest := 0
	for _, qas := range c.SystemRequirements {
		if n, ok := ParseQASID(qas.Identifier); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// AssignQASIDs gives every scenario without an identifier the next ordinal
// after max(floor, highest existing ordinal). Present identifiers are kept.
func (c *NegotiationCard) AssignQASIDs(floor int) error {
	seen := make(map[string]struct{}, len(c.SystemRequirements))
	for _, qas := range c.SystemRequirements {
		if qas.Identifier == "" {
			continue
		}
		if _, ok := ParseQASID(qas.Identifier); !ok {
			return BadRequest("quality attribute scenario identifier %q does not match %s", qas.Identifier, qasIDPattern)
		}
		if _, dup := seen[qas.Identifier]; dup {
			return BadRequest("duplicate quality attribute scenario identifier %q", qas.Identifier)
		}
		seen[qas.Identifier] = struct{}{}
	}
	next := c.MaxQASOrdinal()
	if floor > next {
		next = floor
	}
	for i := range c.SystemRequirements {
		if c.SystemRequirements[i].Identifier != "" {
			continue
		}
		next++
		c.SystemRequirements[i].Identifier = FormatQASID(next)
	}
	return nil
}

// Check rejects problem types and data classifications outside the known
// enumerations. Empty values mean unset.
func (c *NegotiationCard) Check() error {
	if pt := c.System.ProblemType; pt != "" && !slices.Contains(ProblemTypes(), pt) {
		return BadRequest("unknown problem type %q", pt)
	}
	for i, d := range c.Data {
		if d.Classification != "" && !slices.Contains(DataClassifications(), d.Classification) {
			return BadRequest("data[%d]: unknown classification %q", i, d.Classification)
		}
	}
	return nil
}

// PreSave numbers new scenarios after the highest ordinal already used by
// any negotiation card in the same scope.
func (c *NegotiationCard) PreSave(ctx context.Context, scope Scope, reader ArtifactReader) error {
	if err := c.Check(); err != nil {
		return err
	}
	floor := 0
	if reader != nil {
		cards, err := reader.ListArtifactsOfType(ctx, scope, ArtifactTypeNegotiationCard)
		if err != nil {
			return err
		}
		for _, existing := range cards {
			card, ok := existing.Body.(*NegotiationCard)
			if !ok {
				continue
			}
			if n := card.MaxQASOrdinal(); n > floor {
				floor = n
			}
		}
	}
	return c.AssignQASIDs(floor)
}

// Qualities lists the quality attribute names referenced by scenarios.
func (c *NegotiationCard) Qualities() []string {
	out := make([]string, 0, len(c.SystemRequirements))
	for _, qas := range c.SystemRequirements {
		out = append(out, qas.Quality)
	}
	return out
}
