package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const primaryRoleQuery = "data.identity.roles.primary"

// Default Rego policy: admin outranks member, member outranks everything else, remaining roles
// are ordered alphabetically.
const defaultRegoPolicy = `package identity.roles

default primary := "member"

rank(name) := 0 if name == "admin"

rank(name) := 1 if name == "member"

rank(name) := 2 if {
	name != "admin"
	name != "member"
}

ranked := sort([[rank(n), n] | some r in input.roles; n := lower(trim_space(r)); n != ""])

primary := ranked[0][1] if count(ranked) > 0
`

// OPAEvaluator selects primary roles using an OPA Rego policy compiled once at construction.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
	log   *slog.Logger
}

var _ RoleSelector = (*OPAEvaluator)(nil)

// NewOPAEvaluator compiles policy (the default policy when empty). The policy must define
// data.identity.roles.primary as a string.
func NewOPAEvaluator(ctx context.Context, policy string, log *slog.Logger) (*OPAEvaluator, error) {
	if strings.TrimSpace(policy) == "" {
		policy = defaultRegoPolicy
	}
	if log == nil {
		log = slog.Default()
	}
	compiler, err := ast.CompileModules(map[string]string{"roles.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile role policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(primaryRoleQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare role policy: %w", err)
	}
	return &OPAEvaluator{query: pq, log: log}, nil
}

// HealthCheck evaluates the compiled policy against a fixed input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	role, err := e.eval(ctx, []string{"member", "admin"})
	if err != nil {
		return err
	}
	if role == "" {
		return fmt.Errorf("role policy returned an empty role")
	}
	return nil
}

// PrimaryRole evaluates the policy for roles. Evaluation failures are logged and fall back to DefaultRole.
func (e *OPAEvaluator) PrimaryRole(ctx context.Context, roles []string) (string, error) {
	if len(roles) == 0 {
		return DefaultRole, nil
	}
	role, err := e.eval(ctx, roles)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.log.WarnContext(ctx, "policy: role evaluation failed, using default", "error", err)
		return DefaultRole, nil
	}
	return role, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, roles []string) (string, error) {
	in := make([]interface{}, len(roles))
	for i, r := range roles {
		in[i] = r
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{"roles": in}))
	if err != nil {
		return "", fmt.Errorf("eval role policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", fmt.Errorf("role policy returned no result")
	}
	role, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("role policy returned %T, want string", rs[0].Expressions[0].Value)
	}
	return role, nil
}
