package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/Harsha2sai/Maya-One/internal/governance"
	"github.com/Harsha2sai/Maya-One/internal/mcp"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"deepgram", "whisper", "whisper-native"},
	"tts":        {"elevenlabs", "coqui"},
	"embeddings": {"openai", "ollama"},
	"vad":        {"silero"},
	"audio":      {"discord"},
}

// validRoles and validRisks enumerate the string forms [Validate] accepts
// for GovernanceConfig.DefaultRole/RoleAssignments and ToolRiskOverrides,
// mirroring the [governance.UserRole]/[governance.RiskLevel] orderings.
var validRoles = []string{"guest", "user", "trusted", "admin"}
var validRisks = []string{"read_only", "low", "medium", "high", "critical"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the orchestrator will not be able to generate responses")
	}

	// Embeddings ↔ memory dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
	}

	// Memory availability
	if cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; long-term memory will not be available")
	}

	// MCP servers
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		transport := mcp.Transport(srv.Transport)
		if srv.Transport != "" && !transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if transport == mcp.TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if transport == mcp.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	// Governance
	if cfg.Governance.DefaultRole != "" && !slices.Contains(validRoles, cfg.Governance.DefaultRole) {
		errs = append(errs, fmt.Errorf("governance.default_role %q is invalid; valid values: %v", cfg.Governance.DefaultRole, validRoles))
	}
	for id, role := range cfg.Governance.RoleAssignments {
		if !slices.Contains(validRoles, role) {
			errs = append(errs, fmt.Errorf("governance.role_assignments[%q] %q is invalid; valid values: %v", id, role, validRoles))
		}
	}
	for tool, risk := range cfg.Governance.ToolRiskOverrides {
		if !slices.Contains(validRisks, risk) {
			errs = append(errs, fmt.Errorf("governance.tool_risk_overrides[%q] %q is invalid; valid values: %v", tool, risk, validRisks))
		}
	}

	// Guardrails
	if cfg.Guardrails.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("guardrails.max_turns must not be negative"))
	}
	if cfg.Guardrails.MaxToolCalls < 0 {
		errs = append(errs, fmt.Errorf("guardrails.max_tool_calls must not be negative"))
	}
	if cfg.Guardrails.MaxConsecutiveErrors < 0 {
		errs = append(errs, fmt.Errorf("guardrails.max_consecutive_errors must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

// RoleFor resolves the [governance.UserRole] assigned to a caller identity,
// falling back to cfg.Governance.DefaultRole and then [governance.RoleUser]
// when neither is set. Callers are expected to have already validated cfg
// via [Validate].
func (cfg *Config) RoleFor(callerID string) governance.UserRole {
	if role, ok := cfg.Governance.RoleAssignments[callerID]; ok {
		return roleFromString(role)
	}
	if cfg.Governance.DefaultRole != "" {
		return roleFromString(cfg.Governance.DefaultRole)
	}
	return governance.RoleUser
}

// ApplyToolRiskOverrides registers cfg.Governance.ToolRiskOverrides onto
// policy. Callers are expected to have already validated cfg via [Validate].
func (cfg *Config) ApplyToolRiskOverrides(policy *governance.ToolRiskPolicy) {
	for tool, risk := range cfg.Governance.ToolRiskOverrides {
		policy.Register(tool, riskFromString(risk))
	}
}

// roleFromString converts a validated role string to a [governance.UserRole].
func roleFromString(s string) governance.UserRole {
	switch s {
	case "guest":
		return governance.RoleGuest
	case "trusted":
		return governance.RoleTrusted
	case "admin":
		return governance.RoleAdmin
	default:
		return governance.RoleUser
	}
}

// riskFromString converts a validated risk string to a [governance.RiskLevel].
func riskFromString(s string) governance.RiskLevel {
	switch s {
	case "read_only":
		return governance.RiskReadOnly
	case "low":
		return governance.RiskLow
	case "high":
		return governance.RiskHigh
	case "critical":
		return governance.RiskCritical
	default:
		return governance.RiskMedium
	}
}
