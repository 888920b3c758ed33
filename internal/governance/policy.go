package governance

import "strings"

// ToolRiskPolicy maps tool names to their [RiskLevel]. Unknown tools
// default to [RiskHigh] for safety — a tool the policy has never heard of
// is assumed capable of a significant side effect until proven otherwise.
type ToolRiskPolicy struct {
	overrides map[string]RiskLevel
}

// defaultPolicy mirrors the original system's static risk table.
var defaultPolicy = map[string]RiskLevel{
	"get_current_datetime": RiskReadOnly,
	"get_date":             RiskReadOnly,
	"get_time":             RiskReadOnly,
	"get_weather":          RiskLow,
	"search_web":           RiskLow,

	"list_alarms":          RiskMedium,
	"list_reminders":       RiskMedium,
	"list_notes":           RiskMedium,
	"read_note":            RiskMedium,
	"list_calendar_events": RiskMedium,

	"set_alarm":            RiskHigh,
	"delete_alarm":         RiskHigh,
	"set_reminder":         RiskHigh,
	"delete_reminder":      RiskHigh,
	"create_note":          RiskHigh,
	"delete_note":          RiskHigh,
	"create_calendar_event": RiskHigh,
	"delete_calendar_event": RiskHigh,
	"send_email":           RiskHigh,
	"open_app":             RiskHigh,
	"close_app":            RiskHigh,
}

// NewToolRiskPolicy returns the default risk policy. Callers may register
// additional tools via [ToolRiskPolicy.Register] (e.g. for tools added by
// an MCP server not known to the built-in catalogue).
func NewToolRiskPolicy() *ToolRiskPolicy {
	return &ToolRiskPolicy{overrides: make(map[string]RiskLevel)}
}

// Register sets (or overrides) the risk level for a tool name.
func (p *ToolRiskPolicy) Register(toolName string, risk RiskLevel) {
	p.overrides[strings.ToLower(toolName)] = risk
}

// Risk returns the risk level for toolName, defaulting to [RiskHigh] when
// the tool is unknown to both the overrides and the built-in table.
func (p *ToolRiskPolicy) Risk(toolName string) RiskLevel {
	name := strings.ToLower(toolName)
	if r, ok := p.overrides[name]; ok {
		return r
	}
	if r, ok := defaultPolicy[name]; ok {
		return r
	}
	return RiskHigh
}
