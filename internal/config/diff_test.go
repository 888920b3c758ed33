package config_test

import (
	"testing"

	"github.com/Harsha2sai/Maya-One/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:     config.ServerConfig{LogLevel: config.LogInfo},
		Governance: config.GovernanceConfig{DefaultRole: "user"},
		Guardrails: config.GuardrailsConfig{MaxTurns: 100},
		MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
			{Name: "tools", Transport: "stdio", Command: "/bin/tools"},
		}},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.GovernanceChanged {
		t.Error("expected GovernanceChanged=false for identical configs")
	}
	if d.GuardrailsChanged {
		t.Error("expected GuardrailsChanged=false for identical configs")
	}
	if d.MCPServersChanged {
		t.Error("expected MCPServersChanged=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_GovernanceRoleAssignmentChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Governance: config.GovernanceConfig{
		RoleAssignments: map[string]string{"alice": "user"},
	}}
	new := &config.Config{Governance: config.GovernanceConfig{
		RoleAssignments: map[string]string{"alice": "trusted"},
	}}

	d := config.Diff(old, new)
	if !d.GovernanceChanged {
		t.Error("expected GovernanceChanged=true")
	}
}

func TestDiff_GovernanceToolRiskOverrideChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Governance: config.GovernanceConfig{
		ToolRiskOverrides: map[string]string{"search_web": "low"},
	}}
	new := &config.Config{Governance: config.GovernanceConfig{
		ToolRiskOverrides: map[string]string{"search_web": "medium"},
	}}

	d := config.Diff(old, new)
	if !d.GovernanceChanged {
		t.Error("expected GovernanceChanged=true")
	}
}

func TestDiff_GuardrailsChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Guardrails: config.GuardrailsConfig{MaxTurns: 100}}
	new := &config.Config{Guardrails: config.GuardrailsConfig{MaxTurns: 200}}

	d := config.Diff(old, new)
	if !d.GuardrailsChanged {
		t.Error("expected GuardrailsChanged=true")
	}
}

func TestDiff_MCPServerAdded(t *testing.T) {
	t.Parallel()
	old := &config.Config{MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "tools", Transport: "stdio", Command: "/bin/tools"},
	}}}
	new := &config.Config{MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "tools", Transport: "stdio", Command: "/bin/tools"},
		{Name: "web", Transport: "streamable-http", URL: "https://example.com/mcp"},
	}}}

	d := config.Diff(old, new)
	if !d.MCPServersChanged {
		t.Error("expected MCPServersChanged=true")
	}
	found := false
	for _, c := range d.MCPServerChanges {
		if c.Name == "web" && c.Added {
			found = true
		}
	}
	if !found {
		t.Error("expected web Added=true")
	}
}

func TestDiff_MCPServerRemoved(t *testing.T) {
	t.Parallel()
	old := &config.Config{MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "tools", Transport: "stdio", Command: "/bin/tools"},
		{Name: "web", Transport: "streamable-http", URL: "https://example.com/mcp"},
	}}}
	new := &config.Config{MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "tools", Transport: "stdio", Command: "/bin/tools"},
	}}}

	d := config.Diff(old, new)
	if !d.MCPServersChanged {
		t.Error("expected MCPServersChanged=true")
	}
	found := false
	for _, c := range d.MCPServerChanges {
		if c.Name == "web" && c.Removed {
			found = true
		}
	}
	if !found {
		t.Error("expected web Removed=true")
	}
}

func TestDiff_MCPServerCommandChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "tools", Transport: "stdio", Command: "/bin/tools-v1"},
	}}}
	new := &config.Config{MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "tools", Transport: "stdio", Command: "/bin/tools-v2"},
	}}}

	d := config.Diff(old, new)
	if !d.MCPServersChanged {
		t.Error("expected MCPServersChanged=true")
	}
	found := false
	for _, c := range d.MCPServerChanges {
		if c.Name == "tools" && c.Changed {
			found = true
		}
	}
	if !found {
		t.Error("expected tools Changed=true")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Governance: config.GovernanceConfig{
			RoleAssignments: map[string]string{"alice": "user"},
		},
	}
	new := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogWarn},
		Governance: config.GovernanceConfig{
			RoleAssignments: map[string]string{"alice": "trusted"},
		},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.GovernanceChanged {
		t.Error("expected GovernanceChanged=true")
	}
}
