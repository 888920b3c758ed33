package governance

import (
	"log/slog"

	"github.com/google/uuid"
)

// auditLogger is a dedicated slog logger named "audit", matching the
// original system's practice of routing governance decisions to a
// separate logger than application logs.
var auditLogger = slog.Default().With("logger", "audit")

// AuditLogger records every tool execution attempt, block, and result.
// Each attempt is assigned a trace ID that correlates its block/result
// entries, mirroring the original system's attempt/block/result trio.
type AuditLogger struct{}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger() *AuditLogger { return &AuditLogger{} }

// LogAttempt records an execution attempt and returns a trace ID for
// correlating subsequent LogBlock/LogResult calls.
func (a *AuditLogger) LogAttempt(toolName string, params map[string]any, role UserRole, userID string) string {
	traceID := uuid.NewString()
	auditLogger.Info("execution_attempt",
		"trace_id", traceID,
		"user_id", userID,
		"role", role.String(),
		"tool", toolName,
		"params", params,
	)
	return traceID
}

// LogBlock records that traceID's tool execution was blocked by the
// [ExecutionGate], with the denial reason.
func (a *AuditLogger) LogBlock(traceID, toolName, reason string) {
	auditLogger.Warn("execution_blocked",
		"trace_id", traceID,
		"tool", toolName,
		"reason", reason,
	)
}

// maxResultLogLength truncates large results before they hit the audit log.
const maxResultLogLength = 1000

// LogResult records the outcome of a tool execution identified by traceID.
func (a *AuditLogger) LogResult(traceID, toolName, result string, success bool) {
	if len(result) > maxResultLogLength {
		result = result[:maxResultLogLength] + "... (truncated)"
	}
	if success {
		auditLogger.Info("execution_result",
			"trace_id", traceID, "tool", toolName, "success", success, "result", result)
		return
	}
	auditLogger.Error("execution_result",
		"trace_id", traceID, "tool", toolName, "success", success, "result", result)
}
