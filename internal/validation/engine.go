// Package validation evaluates test case validators against evidence.
// A validator's bool_exp is a CEL expression over the evidence value.
package validation

import (
	"fmt"
	"sync"

	"github.com/mlte-team/mlte-sub000/internal/domain"

	"github.com/google/cel-go/cel"
)

type Engine struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("evidence", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Engine{env: env, programs: make(map[string]cel.Program)}, nil
}

// Check reports whether a validator can be evaluated at all.
func (e *Engine) Check(v domain.ValidatorModel) error {
	if v.BoolExp == "" {
		if v.Info == "" {
			return domain.BadRequest("validator has neither a boolean expression nor an info message")
		}
		return nil
	}
	_, err := e.program(v.BoolExp)
	return err
}

// Validate returns Success or Failure from the expression, or Info when
// only an info message is configured. Evaluation faults are internal errors.
func (e *Engine) Validate(v domain.ValidatorModel, ev *domain.Evidence) (domain.Result, error) {
	if ev == nil || ev.Value == nil {
		return domain.Result{}, domain.BadRequest("validator needs evidence with a value")
	}
	if v.BoolExp == "" {
		if v.Info == "" {
			return domain.Result{}, domain.BadRequest("validator has neither a boolean expression nor an info message")
		}
		return domain.Info(v.Info).WithEvidence(ev.Metadata), nil
	}
	if err := checkInputType(v, ev); err != nil {
		return domain.Result{}, err
	}
	prg, err := e.program(v.BoolExp)
	if err != nil {
		return domain.Result{}, err
	}
	out, _, err := prg.Eval(map[string]any{
		"value":    ev.Value.Native(),
		"evidence": evidenceInput(ev),
	})
	if err != nil {
		return domain.Result{}, domain.Internal("evaluate %q: %v", v.BoolExp, err)
	}
	passed, ok := out.Value().(bool)
	if !ok {
		return domain.Result{}, domain.Internal("validator expression %q returned %T, expected bool", v.BoolExp, out.Value())
	}
	if passed {
		return domain.Success(v.Success).WithEvidence(ev.Metadata), nil
	}
	return domain.Failure(v.Failure).WithEvidence(ev.Metadata), nil
}

func (e *Engine) program(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, domain.Internal("compile validator %q: %v", expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, domain.Internal("program validator %q: %v", expr, err)
	}
	e.programs[expr] = prg
	return prg, nil
}

// checkInputType matches input_types against the evidence variant or class.
func checkInputType(v domain.ValidatorModel, ev *domain.Evidence) error {
	if len(v.InputTypes) == 0 {
		return nil
	}
	variant := string(ev.Value.EvidenceType())
	for _, t := range v.InputTypes {
		if t == variant || t == ev.EvidenceClass {
			return nil
		}
	}
	return domain.BadRequest("validator accepts %v, evidence for %q is %s", v.InputTypes, ev.Metadata.TestCaseID, variant)
}

func evidenceInput(ev *domain.Evidence) map[string]any {
	return map[string]any{
		"test_case_id":   ev.Metadata.TestCaseID,
		"evidence_class": ev.EvidenceClass,
		"type":           string(ev.Value.EvidenceType()),
	}
}
