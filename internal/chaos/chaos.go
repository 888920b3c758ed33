// Package chaos provides a process-wide fault-injection switchboard.
//
// [Config] is read by the Smart LLM wrapper, the tool executor, and the
// memory manager to decide whether to inject latency, simulated rate
// limits, tool failures, or persistence failures. The switchboard is a
// single mutable value guarded by a mutex rather than a package-level
// global hidden behind getter functions, so every reader threads it
// through explicitly from an [*AppContext]-style root rather than reaching
// for a package-level singleton.
package chaos

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"os"
	"sync"
)

// EnvVar is the environment variable [LoadFromEnv] reads at startup.
const EnvVar = "AGENT_CHAOS_CONFIG"

// Config holds the current fault-injection knobs. The zero value has chaos
// disabled and every multiplier at its neutral setting.
type Config struct {
	Enabled        bool
	ExperimentID   string
	ExperimentType string

	LLMLatencyMultiplier    float64
	RateLimitProbability    float64
	ToolFailureRate         float64
	PersistenceFailureRate  float64
	MemoryInflationFactor   float64
	LongSessionMode         bool
}

// Default returns a [Config] with chaos disabled and neutral multipliers.
func Default() Config {
	return Config{
		LLMLatencyMultiplier:  1.0,
		MemoryInflationFactor: 1.0,
	}
}

// Switchboard is a mutable, concurrency-safe holder for the active [Config].
// Components that need to observe chaos state take a *Switchboard rather
// than reading a package-level global.
type Switchboard struct {
	mu  sync.RWMutex
	cfg Config
}

// NewSwitchboard creates a [Switchboard] with chaos disabled.
func NewSwitchboard() *Switchboard {
	return &Switchboard{cfg: Default()}
}

// Get returns a copy of the current configuration.
func (s *Switchboard) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Enable turns on fault injection with the supplied knobs. Zero-valued
// fields in cfg are honoured as explicit zeroes (e.g. a latency multiplier
// of 0 is not coerced to 1.0) since the caller is expected to pass a
// complete [Config].
func (s *Switchboard) Enable(cfg Config) {
	cfg.Enabled = true
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	slog.Warn("chaos enabled", "experiment_id", cfg.ExperimentID, "experiment_type", cfg.ExperimentType)
}

// Disable clears all fault injection, restoring the neutral defaults.
func (s *Switchboard) Disable() {
	s.mu.Lock()
	experimentID := s.cfg.ExperimentID
	experimentType := s.cfg.ExperimentType
	s.cfg = Default()
	s.cfg.ExperimentID = experimentID
	s.cfg.ExperimentType = experimentType
	s.mu.Unlock()
	slog.Info("chaos disabled, faults cleared")
}

// SetExperimentContext tags subsequent telemetry with the given experiment
// identifiers without otherwise altering fault-injection knobs.
func (s *Switchboard) SetExperimentContext(experimentID, experimentType string) {
	s.mu.Lock()
	s.cfg.ExperimentID = experimentID
	s.cfg.ExperimentType = experimentType
	s.mu.Unlock()
}

// envConfig mirrors the JSON shape accepted via [EnvVar].
type envConfig struct {
	LLMLatencyMultiplier   float64 `json:"llm_latency_multiplier"`
	RateLimitProbability   float64 `json:"rate_limit_probability"`
	ToolFailureRate        float64 `json:"tool_failure_rate"`
	PersistenceFailureRate float64 `json:"persistence_failure_rate"`
	MemoryInflationFactor  float64 `json:"memory_inflation_factor"`
	LongSessionMode        bool    `json:"long_session_mode"`
	ExperimentID           string  `json:"experiment_id"`
	ExperimentType         string  `json:"experiment_type"`
}

// LoadFromEnv reads [EnvVar] and enables chaos if it holds valid JSON. It is
// a no-op (not an error) when the variable is unset, matching the
// original's "load silently, warn on parse failure" behaviour.
func (s *Switchboard) LoadFromEnv() {
	raw := os.Getenv(EnvVar)
	if raw == "" {
		return
	}
	var ec envConfig
	if err := json.Unmarshal([]byte(raw), &ec); err != nil {
		slog.Error("failed to parse chaos config from environment", "error", err)
		return
	}
	cfg := Default()
	cfg.LLMLatencyMultiplier = orDefault(ec.LLMLatencyMultiplier, 1.0)
	cfg.RateLimitProbability = ec.RateLimitProbability
	cfg.ToolFailureRate = ec.ToolFailureRate
	cfg.PersistenceFailureRate = ec.PersistenceFailureRate
	cfg.MemoryInflationFactor = orDefault(ec.MemoryInflationFactor, 1.0)
	cfg.LongSessionMode = ec.LongSessionMode
	cfg.ExperimentID = ec.ExperimentID
	cfg.ExperimentType = ec.ExperimentType
	s.Enable(cfg)
	slog.Warn("chaos config loaded from environment", "env_var", EnvVar)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// RollRateLimit returns true with probability cfg.RateLimitProbability,
// modelling a simulated 429 from an upstream provider.
func RollRateLimit(cfg Config) bool {
	return cfg.Enabled && cfg.RateLimitProbability > 0 && rand.Float64() < cfg.RateLimitProbability
}

// RollToolFailure returns true with probability cfg.ToolFailureRate.
func RollToolFailure(cfg Config) bool {
	return cfg.Enabled && cfg.ToolFailureRate > 0 && rand.Float64() < cfg.ToolFailureRate
}

// RollPersistenceFailure returns true with probability cfg.PersistenceFailureRate.
func RollPersistenceFailure(cfg Config) bool {
	return cfg.Enabled && cfg.PersistenceFailureRate > 0 && rand.Float64() < cfg.PersistenceFailureRate
}
