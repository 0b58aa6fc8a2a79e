package engine

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.saasgate.team.allow"

//go:embed team.rego
var defaultTeamPolicy string

// OPAEvaluator evaluates the team authorization policy with OPA Rego.
// The query is prepared once; Eval is safe for concurrent use.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy, or the embedded default when policy is empty.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = defaultTeamPolicy
	}
	pq, err := rego.New(
		rego.Query(allowQuery),
		rego.Module("team.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile team policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// Allow evaluates the policy for role and action. An undefined result is a deny.
func (e *OPAEvaluator) Allow(ctx context.Context, role string, action Action) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":   role,
		"action": string(action),
	}))
	if err != nil {
		return false, fmt.Errorf("eval team policy: %w", err)
	}
	return rs.Allowed(), nil
}

// HealthCheck evaluates a known-allowed input. Returns nil when the engine answers as expected.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	ok, err := e.Allow(ctx, "owner", ActionViewTeam)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("policy health check: owner denied %s", ActionViewTeam)
	}
	return nil
}
