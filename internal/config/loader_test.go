package config_test

import (
	"strings"
	"testing"

	"github.com/Harsha2sai/Maya-One/internal/config"
	"github.com/Harsha2sai/Maya-One/internal/governance"
)

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
governance:
  default_role: superadmin
guardrails:
  max_tool_calls: -5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "default_role") {
		t.Errorf("error should mention default_role, got: %v", err)
	}
	if !strings.Contains(errStr, "max_tool_calls") {
		t.Errorf("error should mention max_tool_calls, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	llmNames := config.ValidProviderNames["llm"]
	if len(llmNames) == 0 {
		t.Fatal("ValidProviderNames[\"llm\"] should not be empty")
	}
	// Check that "openai" is in the LLM list.
	found := false
	for _, n := range llmNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"llm\"] should contain \"openai\"")
	}
}

func TestConfig_RoleFor_DefaultsToUser(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	if got := cfg.RoleFor("anyone"); got != governance.RoleUser {
		t.Errorf("RoleFor with no config = %s, want USER", got)
	}
}

func TestConfig_RoleFor_ExplicitAssignmentWins(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Governance: config.GovernanceConfig{
		DefaultRole:     "guest",
		RoleAssignments: map[string]string{"admin-user": "admin"},
	}}
	if got := cfg.RoleFor("admin-user"); got != governance.RoleAdmin {
		t.Errorf("RoleFor(admin-user) = %s, want ADMIN", got)
	}
	if got := cfg.RoleFor("someone-else"); got != governance.RoleGuest {
		t.Errorf("RoleFor(someone-else) = %s, want GUEST (default_role)", got)
	}
}

func TestConfig_ApplyToolRiskOverrides(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Governance: config.GovernanceConfig{
		ToolRiskOverrides: map[string]string{"search_web": "critical"},
	}}
	policy := governance.NewToolRiskPolicy()
	cfg.ApplyToolRiskOverrides(policy)
	if got := policy.Risk("search_web"); got != governance.RiskCritical {
		t.Errorf("Risk(search_web) after override = %s, want CRITICAL", got)
	}
}
