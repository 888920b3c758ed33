package chaos

import (
	"os"
	"testing"
)

func TestSwitchboardEnableDisable(t *testing.T) {
	sb := NewSwitchboard()
	if sb.Get().Enabled {
		t.Fatal("new switchboard should start disabled")
	}

	sb.Enable(Config{ToolFailureRate: 0.5, ExperimentID: "exp-1"})
	cfg := sb.Get()
	if !cfg.Enabled {
		t.Fatal("expected enabled after Enable")
	}
	if cfg.ToolFailureRate != 0.5 {
		t.Fatalf("expected tool failure rate 0.5, got %v", cfg.ToolFailureRate)
	}

	sb.Disable()
	cfg = sb.Get()
	if cfg.Enabled {
		t.Fatal("expected disabled after Disable")
	}
	if cfg.ExperimentID != "exp-1" {
		t.Fatalf("expected experiment id to survive disable, got %q", cfg.ExperimentID)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvVar, `{"tool_failure_rate": 0.25, "experiment_id": "env-exp"}`)
	sb := NewSwitchboard()
	sb.LoadFromEnv()

	cfg := sb.Get()
	if !cfg.Enabled {
		t.Fatal("expected chaos enabled from env")
	}
	if cfg.ToolFailureRate != 0.25 {
		t.Fatalf("expected tool_failure_rate 0.25, got %v", cfg.ToolFailureRate)
	}
	if cfg.LLMLatencyMultiplier != 1.0 {
		t.Fatalf("expected default latency multiplier 1.0, got %v", cfg.LLMLatencyMultiplier)
	}
}

func TestLoadFromEnvUnset(t *testing.T) {
	os.Unsetenv(EnvVar)
	sb := NewSwitchboard()
	sb.LoadFromEnv()
	if sb.Get().Enabled {
		t.Fatal("expected disabled when env var unset")
	}
}

func TestRollHelpersRespectEnabled(t *testing.T) {
	cfg := Config{Enabled: false, ToolFailureRate: 1.0, RateLimitProbability: 1.0, PersistenceFailureRate: 1.0}
	if RollToolFailure(cfg) || RollRateLimit(cfg) || RollPersistenceFailure(cfg) {
		t.Fatal("roll helpers must return false when chaos is disabled")
	}

	cfg.Enabled = true
	if !RollToolFailure(cfg) || !RollRateLimit(cfg) || !RollPersistenceFailure(cfg) {
		t.Fatal("roll helpers must return true at probability 1.0 when enabled")
	}
}
