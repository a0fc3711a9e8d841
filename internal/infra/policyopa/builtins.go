package policyopa

import "github.com/open-policy-agent/opa/ast"

// allowedBuiltins is everything an authorization policy may call.
var allowedBuiltins = map[string]struct{}{
	"assign":            {},
	"count":             {},
	"endswith":          {},
	"eq":                {},
	"equal":             {},
	"internal.member_2": {},
	"lower":             {},
	"neq":               {},
	"object.get":        {},
	"split":             {},
	"startswith":        {},
	"upper":             {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
