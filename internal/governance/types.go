// Package governance implements the risk/role policy, execution gate, and
// audit trail that guard every tool invocation. Grounded line-for-line on
// the original system's core/governance package: the RiskLevel/UserRole
// orderings, the ToolRiskPolicy table, the denial-message format, and the
// audit event trio (attempt/block/result) are all carried over, expressed
// here as Go types instead of Python IntEnum/dataclasses.
package governance

// RiskLevel classifies the potential impact of executing a tool. Values
// are ordered so that a higher RiskLevel always represents more risk;
// comparisons use plain integer ordering.
type RiskLevel int

const (
	// RiskReadOnly is safe, side-effect-free (e.g. get_current_datetime).
	RiskReadOnly RiskLevel = iota
	// RiskLow is a minor side effect or public data retrieval (e.g. get_weather).
	RiskLow
	// RiskMedium is access to personal data (e.g. list_notes).
	RiskMedium
	// RiskHigh is a significant side effect (e.g. send_email, open_app).
	RiskHigh
	// RiskCritical is a system-level change (reserved for future tools).
	RiskCritical
)

// String returns the risk level's canonical name, as used in denial
// messages and audit log entries.
func (r RiskLevel) String() string {
	switch r {
	case RiskReadOnly:
		return "READ_ONLY"
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// UserRole is the authority level of the participant driving the
// conversation.
type UserRole int

const (
	// RoleGuest has low trust and limited access.
	RoleGuest UserRole = iota
	// RoleUser is a standard user with access to their own personal data.
	RoleUser
	// RoleTrusted can trigger sensitive actions such as sending email.
	RoleTrusted
	// RoleAdmin has full system access.
	RoleAdmin
)

// String returns the role's canonical name.
func (u UserRole) String() string {
	switch u {
	case RoleGuest:
		return "GUEST"
	case RoleUser:
		return "USER"
	case RoleTrusted:
		return "TRUSTED"
	case RoleAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// MaxRisk returns the highest [RiskLevel] this role is permitted to
// execute.
func (u UserRole) MaxRisk() RiskLevel {
	switch u {
	case RoleAdmin:
		return RiskCritical
	case RoleTrusted:
		return RiskHigh
	case RoleUser:
		return RiskMedium
	default:
		return RiskLow
	}
}
