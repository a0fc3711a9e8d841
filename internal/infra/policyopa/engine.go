// Package policyopa evaluates authorization decisions with an embedded
// Rego policy.
package policyopa

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/rbac"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.mlte.authz.allow"

//go:embed authz.rego
var authzPolicy string

type Engine struct {
	query rego.PreparedEvalQuery
}

var _ rbac.Engine = (*Engine)(nil)

// NewEngine compiles the embedded policy.
func NewEngine(ctx context.Context) (*Engine, error) {
	return NewEngineFromSource(ctx, "authz.rego", authzPolicy)
}

// NewEngineFromSource compiles a policy answering data.mlte.authz.allow.
func NewEngineFromSource(ctx context.Context, name, source string) (*Engine, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	r := rego.New(
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		rego.Module(name, source),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare authz policy: %w", err)
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

type decisionInput struct {
	User      domain.User       `json:"user"`
	Requested domain.Permission `json:"requested"`
}

func (e *Engine) Decide(ctx context.Context, user domain.User, requested domain.Permission) (bool, error) {
	if e == nil {
		return false, errors.New("policy engine is nil")
	}
	input := decisionInput{User: user.Public(), Requested: requested}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, domain.Wrap(domain.ErrInternal, err, "evaluate authz policy")
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, domain.Internal("empty authz policy result")
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, domain.Internal("authz policy returned %T, expected bool", results[0].Expressions[0].Value)
	}
	return allowed, nil
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
