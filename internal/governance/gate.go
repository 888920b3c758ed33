package governance

import "fmt"

// ExecutionGate decides whether a (tool, role) pair is permitted to
// execute, based on a [ToolRiskPolicy].
type ExecutionGate struct {
	policy *ToolRiskPolicy
}

// NewExecutionGate creates a gate backed by policy.
func NewExecutionGate(policy *ToolRiskPolicy) *ExecutionGate {
	return &ExecutionGate{policy: policy}
}

// CheckAccess reports whether role is permitted to execute toolName: the
// tool's declared risk must not exceed the role's maximum allowed risk.
func (g *ExecutionGate) CheckAccess(toolName string, role UserRole) bool {
	return g.policy.Risk(toolName) <= role.MaxRisk()
}

// DenialReason returns the human-readable denial message for toolName and
// role, matching the original system's exact wording so downstream
// transcripts and tests can assert on it verbatim.
func (g *ExecutionGate) DenialReason(toolName string, role UserRole) string {
	risk := g.policy.Risk(toolName)
	return fmt.Sprintf(
		"Permission Denied: '%s' is classified as %s risk. Your role (%s) only allows up to %s risk.",
		toolName, risk, role, role.MaxRisk(),
	)
}
