package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	GovernanceChanged bool
	GuardrailsChanged bool

	MCPServersChanged bool
	MCPServerChanges  []MCPServerDiff
}

// MCPServerDiff describes what changed for a single MCP server between two configs.
type MCPServerDiff struct {
	Name    string
	Added   bool
	Removed bool
	Changed bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Governance (role assignments, tool risk overrides) can be swapped in
	// live since the governance gate reads policy per-call.
	if !governanceEqual(old.Governance, new.Governance) {
		d.GovernanceChanged = true
	}

	// Guardrails limits can be applied to new sessions without a restart.
	if old.Guardrails != new.Guardrails {
		d.GuardrailsChanged = true
	}

	// Build MCP server lookup maps keyed by name.
	oldServers := make(map[string]*MCPServerConfig, len(old.MCP.Servers))
	for i := range old.MCP.Servers {
		oldServers[old.MCP.Servers[i].Name] = &old.MCP.Servers[i]
	}
	newServers := make(map[string]*MCPServerConfig, len(new.MCP.Servers))
	for i := range new.MCP.Servers {
		newServers[new.MCP.Servers[i].Name] = &new.MCP.Servers[i]
	}

	for name, oldSrv := range oldServers {
		newSrv, exists := newServers[name]
		if !exists {
			d.MCPServerChanges = append(d.MCPServerChanges, MCPServerDiff{Name: name, Removed: true})
			d.MCPServersChanged = true
			continue
		}
		if !mcpServerEqual(oldSrv, newSrv) {
			d.MCPServerChanges = append(d.MCPServerChanges, MCPServerDiff{Name: name, Changed: true})
			d.MCPServersChanged = true
		}
	}
	for name := range newServers {
		if _, exists := oldServers[name]; !exists {
			d.MCPServerChanges = append(d.MCPServerChanges, MCPServerDiff{Name: name, Added: true})
			d.MCPServersChanged = true
		}
	}

	return d
}

func mcpServerEqual(a, b *MCPServerConfig) bool {
	if a.Transport != b.Transport || a.Command != b.Command || a.URL != b.URL {
		return false
	}
	if len(a.Env) != len(b.Env) {
		return false
	}
	for k, v := range a.Env {
		if b.Env[k] != v {
			return false
		}
	}
	return true
}

func governanceEqual(a, b GovernanceConfig) bool {
	if a.DefaultRole != b.DefaultRole {
		return false
	}
	if len(a.RoleAssignments) != len(b.RoleAssignments) || len(a.ToolRiskOverrides) != len(b.ToolRiskOverrides) {
		return false
	}
	for k, v := range a.RoleAssignments {
		if b.RoleAssignments[k] != v {
			return false
		}
	}
	for k, v := range a.ToolRiskOverrides {
		if b.ToolRiskOverrides[k] != v {
			return false
		}
	}
	return true
}
