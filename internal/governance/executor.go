package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/chaos"
	"github.com/Harsha2sai/Maya-One/internal/observe"
)

// ToolFunc executes a tool by name with JSON-encoded arguments, returning a
// JSON-encoded result or an error. It is the shape exposed by the MCP tool
// host and the builtin toolkit packages alike.
type ToolFunc func(ctx context.Context, toolName string, argsJSON string) (string, error)

// DeniedError is returned by [Executor.Execute] when the gate blocks a
// tool call. Reason is [ExecutionGate.DenialReason]'s exact text; callers
// should surface it to the user verbatim rather than a generic message,
// matching the original system's tool_manager.py behavior of logging and
// returning the denial reason as-is.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return e.Reason }

// Executor wraps a [ToolFunc] with the execution gate, audit trail, and
// chaos tool-failure injection. Every tool call made by the orchestrator
// passes through here rather than calling the MCP host directly.
type Executor struct {
	gate   *ExecutionGate
	audit  *AuditLogger
	run    ToolFunc
	chaos  *chaos.Switchboard
	obs    *observe.Metrics
}

// NewExecutor creates a governed Executor. chaosBoard may be nil, in which
// case no fault injection is applied. obs may be nil, in which case tool
// calls are still gated and audited but no OTel instruments are touched.
func NewExecutor(gate *ExecutionGate, audit *AuditLogger, run ToolFunc, chaosBoard *chaos.Switchboard, obs *observe.Metrics) *Executor {
	return &Executor{gate: gate, audit: audit, run: run, chaos: chaosBoard, obs: obs}
}

// Execute checks role's access to toolName, runs it if permitted, and
// records the full attempt/block-or-result audit trail. The params map is
// used only for audit logging; argsJSON is what is actually passed to the
// underlying tool.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]any, argsJSON string, role UserRole, userID string) (string, error) {
	traceID := e.audit.LogAttempt(toolName, params, role, userID)

	if !e.gate.CheckAccess(toolName, role) {
		reason := e.gate.DenialReason(toolName, role)
		e.audit.LogBlock(traceID, toolName, reason)
		return "", &DeniedError{Reason: reason}
	}

	if e.chaos != nil {
		cfg := e.chaos.Get()
		if chaos.RollToolFailure(cfg) {
			err := fmt.Errorf("simulated tool failure (chaos)")
			e.audit.LogResult(traceID, toolName, err.Error(), false)
			e.recordOutcome(ctx, toolName, 0, false)
			return "", err
		}
	}

	start := time.Now()
	result, err := e.run(ctx, toolName, argsJSON)
	duration := time.Since(start)
	if err != nil {
		e.audit.LogResult(traceID, toolName, err.Error(), false)
		e.recordOutcome(ctx, toolName, duration, false)
		return "", err
	}
	e.audit.LogResult(traceID, toolName, result, true)
	e.recordOutcome(ctx, toolName, duration, true)
	return result, nil
}

// recordOutcome increments the tool-call counter and, when duration is
// non-zero (i.e. the tool actually ran), the execution-latency histogram.
func (e *Executor) recordOutcome(ctx context.Context, toolName string, duration time.Duration, ok bool) {
	if e.obs == nil {
		return
	}
	status := "error"
	if ok {
		status = "ok"
	}
	e.obs.RecordToolCall(ctx, toolName, status)
	if duration > 0 {
		e.obs.ToolExecutionDuration.Record(ctx, duration.Seconds())
	}
}

// MarshalParams is a convenience helper for callers building the params
// map passed to [Executor.Execute] from a raw JSON arguments string.
func MarshalParams(argsJSON string) map[string]any {
	var params map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &params); err != nil {
		return map[string]any{"_raw": argsJSON}
	}
	return params
}
