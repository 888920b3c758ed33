// Package telemetry tracks per-turn [RequestMetrics], checks them against
// empirically derived warning/critical thresholds, and detects recovery
// after a run of degraded turns. It complements (does not replace) the
// OpenTelemetry instruments in [github.com/Harsha2sai/Maya-One/internal/observe]:
// when a [*observe.Metrics] is supplied, LLM latency is also recorded on its
// LLM duration histogram and assistant utterances on its counter. The other
// fields are kept only in [RequestMetrics] and reach no OTel instrument.
//
// Grounded on the original system's telemetry/session_monitor.py: the
// threshold table and the "three consecutive healthy turns" recovery rule
// are carried over verbatim.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/observe"
)

// RequestMetrics captures the observable behaviour of a single orchestrator
// turn: token accounting, latency, tool/memory activity, and provider
// resiliency signals, plus optional chaos-experiment tags.
type RequestMetrics struct {
	TokensIn                int     `json:"tokens_in"`
	TokensOut               int     `json:"tokens_out"`
	ContextSize             int     `json:"context_size"`
	LLMLatencySeconds       float64 `json:"llm_latency_seconds"`
	FirstChunkLatencySeconds float64 `json:"stream_first_chunk_latency_seconds"`
	ToolCallsCount          int     `json:"tool_calls_count"`
	RetryCount              int     `json:"retry_count"`
	ProbeFailures           int     `json:"probe_failures"`
	MemoryRetrievalCount    int     `json:"memory_retrieval_count"`

	ExperimentID   string `json:"experiment_id,omitempty"`
	ExperimentType string `json:"experiment_type,omitempty"`
	Phase          string `json:"phase,omitempty"` // baseline | chaos | recovery
	TurnNumber     int    `json:"turn_number"`

	SystemRecoveryTurns int `json:"system_recovery_turns,omitempty"`

	STTDowntimeSeconds float64 `json:"stt_downtime_seconds"`
	TTSDowntimeSeconds float64 `json:"tts_downtime_seconds"`
	ReconnectAttempts  int     `json:"reconnect_attempts"`
}

// Aggregate summarizes a set of [RequestMetrics] for inclusion in a chaos
// experiment report (mean latency, total tool calls, etc).
type Aggregate struct {
	Turns                int     `json:"turns"`
	MeanLLMLatencySeconds float64 `json:"mean_llm_latency_seconds"`
	MeanFirstChunkSeconds float64 `json:"mean_first_chunk_seconds"`
	TotalToolCalls        int     `json:"total_tool_calls"`
	TotalRetries          int     `json:"total_retries"`
	TotalProbeFailures    int     `json:"total_probe_failures"`
}

// Summarize computes an [Aggregate] over ms. An empty slice yields a
// zero-value Aggregate.
func Summarize(ms []RequestMetrics) Aggregate {
	agg := Aggregate{Turns: len(ms)}
	if len(ms) == 0 {
		return agg
	}
	var llmSum, chunkSum float64
	for _, m := range ms {
		llmSum += m.LLMLatencySeconds
		chunkSum += m.FirstChunkLatencySeconds
		agg.TotalToolCalls += m.ToolCallsCount
		agg.TotalRetries += m.RetryCount
		agg.TotalProbeFailures += m.ProbeFailures
	}
	agg.MeanLLMLatencySeconds = llmSum / float64(len(ms))
	agg.MeanFirstChunkSeconds = chunkSum / float64(len(ms))
	return agg
}

// Thresholds holds the warning/critical pair for one metric dimension.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// defaultThresholds are the empirically derived (P95 ≈ warning, P99 + margin
// ≈ critical) thresholds from the original baseline analysis.
var defaultThresholds = map[string]Thresholds{
	"context_tokens":          {Warning: 8500, Critical: 12000},
	"llm_latency":             {Warning: 5.0, Critical: 8.0},
	"first_chunk_latency":     {Warning: 2.5, Critical: 4.5},
	"retries_per_request":     {Warning: 1, Critical: 3},
	"memory_retrieval_count":  {Warning: 2, Critical: 5},
}

// Monitor tracks the running history of turn metrics for one conversation
// session, evaluates thresholds, and flags recovery after degradation.
//
// A Monitor is constructed per [conversation] session rather than accessed
// through a package-level singleton, per the redesign guidance to thread
// process-wide state explicitly instead of relying on Python-style
// double-checked-locking singletons.
type Monitor struct {
	mu         sync.Mutex
	thresholds map[string]Thresholds
	history    []RequestMetrics
	current    RequestMetrics

	inRecovery          bool
	consecutiveHealthy  int
	recoveryStartTurn   int

	obs *observe.Metrics
}

// NewMonitor creates a Monitor using the default threshold table. obs may be
// nil, in which case only the threshold/recovery bookkeeping runs and no
// OpenTelemetry instruments are touched.
func NewMonitor(obs *observe.Metrics) *Monitor {
	return &Monitor{thresholds: defaultThresholds, obs: obs}
}

// StartRequest resets the in-progress metrics for a new turn.
func (m *Monitor) StartRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = RequestMetrics{}
}

// Current returns a copy of the in-progress metrics.
func (m *Monitor) Current() RequestMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// RecordTokensIn sets the prompt token count for the in-progress turn.
func (m *Monitor) RecordTokensIn(v int) { m.mu.Lock(); m.current.TokensIn = v; m.mu.Unlock() }

// RecordTokensOut sets the completion token count for the in-progress turn.
func (m *Monitor) RecordTokensOut(v int) { m.mu.Lock(); m.current.TokensOut = v; m.mu.Unlock() }

// RecordContextSize sets the estimated prompt context size in tokens and
// checks it against the context_tokens threshold.
func (m *Monitor) RecordContextSize(v int) {
	m.mu.Lock()
	m.current.ContextSize = v
	m.checkThreshold("context_tokens", float64(v))
	m.mu.Unlock()
}

// RecordLLMLatency sets the completion latency and checks it against the
// llm_latency threshold.
func (m *Monitor) RecordLLMLatency(seconds float64) {
	m.mu.Lock()
	m.current.LLMLatencySeconds = seconds
	m.checkThreshold("llm_latency", seconds)
	m.mu.Unlock()
	if m.obs != nil {
		m.obs.LLMDuration.Record(context.Background(), seconds)
	}
}

// RecordFirstChunkLatency sets the time-to-first-chunk and checks it
// against the first_chunk_latency threshold.
func (m *Monitor) RecordFirstChunkLatency(seconds float64) {
	m.mu.Lock()
	m.current.FirstChunkLatencySeconds = seconds
	m.checkThreshold("first_chunk_latency", seconds)
	m.mu.Unlock()
}

// IncrementToolCalls bumps the tool-call counter for the in-progress turn.
func (m *Monitor) IncrementToolCalls() { m.mu.Lock(); m.current.ToolCallsCount++; m.mu.Unlock() }

// IncrementRetries bumps the retry counter and checks it against the
// retries_per_request threshold.
func (m *Monitor) IncrementRetries() {
	m.mu.Lock()
	m.current.RetryCount++
	m.checkThreshold("retries_per_request", float64(m.current.RetryCount))
	m.mu.Unlock()
}

// IncrementProbeFailures bumps the probe-failure counter.
func (m *Monitor) IncrementProbeFailures() { m.mu.Lock(); m.current.ProbeFailures++; m.mu.Unlock() }

// IncrementMemoryRetrievals bumps the memory-retrieval counter and checks
// it against the memory_retrieval_count threshold.
func (m *Monitor) IncrementMemoryRetrievals() {
	m.mu.Lock()
	m.current.MemoryRetrievalCount++
	m.checkThreshold("memory_retrieval_count", float64(m.current.MemoryRetrievalCount))
	m.mu.Unlock()
}

// RecordAssistantUtterance notes that the assistant finished speaking one
// turn back to sessionID, incrementing the matching OTel counter when an
// [*observe.Metrics] was supplied.
func (m *Monitor) RecordAssistantUtterance(sessionID string) {
	if m.obs != nil {
		m.obs.RecordAssistantUtterance(context.Background(), sessionID)
	}
}

// RecordReconnectAttempt bumps the provider-reconnect counter.
func (m *Monitor) RecordReconnectAttempt() { m.mu.Lock(); m.current.ReconnectAttempts++; m.mu.Unlock() }

// RecordProviderDowntime attaches provider-specific downtime (seconds since
// its last success) to the in-progress turn. Only "stt" and "tts" are
// tracked as dedicated fields, matching the original system's per-provider
// downtime metric names; any other provider name is a no-op here since it
// is already captured via the supervisor's own health snapshot.
func (m *Monitor) RecordProviderDowntime(provider string, downtime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch provider {
	case "stt":
		m.current.STTDowntimeSeconds = downtime.Seconds()
	case "tts":
		m.current.TTSDowntimeSeconds = downtime.Seconds()
	}
}

// checkThreshold logs a warning or critical message when value crosses the
// configured threshold for key. Must be called with m.mu held.
func (m *Monitor) checkThreshold(key string, value float64) {
	th, ok := m.thresholds[key]
	if !ok {
		return
	}
	switch {
	case value >= th.Critical:
		slog.Error("telemetry threshold exceeded (critical)", "metric", key, "value", value, "critical", th.Critical)
	case value >= th.Warning:
		slog.Warn("telemetry threshold exceeded (warning)", "metric", key, "value", value, "warning", th.Warning)
	}
}

// EndRequest tags the in-progress turn with experiment context, appends it
// to history, updates recovery tracking, and returns the finalized metrics.
func (m *Monitor) EndRequest(experimentID, experimentType, phase string, turnNumber int) RequestMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if experimentID != "" {
		m.current.ExperimentID = experimentID
		m.current.ExperimentType = experimentType
		m.current.Phase = phase
		m.current.TurnNumber = turnNumber
	}

	m.updateRecoveryStatus()

	final := m.current
	m.history = append(m.history, final)
	return final
}

// updateRecoveryStatus implements the "3 consecutive healthy turns" rule.
// Must be called with m.mu held.
func (m *Monitor) updateRecoveryStatus() {
	healthy := true
	if float64(m.current.ContextSize) >= m.thresholds["context_tokens"].Warning {
		healthy = false
	}
	if m.current.LLMLatencySeconds >= m.thresholds["llm_latency"].Warning {
		healthy = false
	}
	if m.current.FirstChunkLatencySeconds >= m.thresholds["first_chunk_latency"].Warning {
		healthy = false
	}
	if float64(m.current.RetryCount) >= m.thresholds["retries_per_request"].Warning {
		healthy = false
	}
	if float64(m.current.MemoryRetrievalCount) >= m.thresholds["memory_retrieval_count"].Warning {
		healthy = false
	}

	if healthy {
		m.consecutiveHealthy++
		if m.inRecovery && m.consecutiveHealthy >= 3 {
			m.current.SystemRecoveryTurns = len(m.history) - m.recoveryStartTurn
			slog.Info("system recovered", "turns", m.current.SystemRecoveryTurns)
			m.inRecovery = false
		}
		return
	}

	if !m.inRecovery {
		m.inRecovery = true
		m.recoveryStartTurn = len(m.history)
		slog.Warn("system degradation detected, tracking recovery")
	}
	m.consecutiveHealthy = 0
}

// History returns a copy of all finalized turn metrics recorded so far.
func (m *Monitor) History() []RequestMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RequestMetrics, len(m.history))
	copy(out, m.history)
	return out
}

// InRecovery reports whether the monitor currently considers the session
// to be in a post-degradation recovery window.
func (m *Monitor) InRecovery() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inRecovery
}
