// Package smartllm wraps an [llm.Provider] so that system prompt and tool
// set are rebuilt on every turn instead of being fixed at construction
// time, and so every streamed completion passes through a first-chunk
// probe before any chunk reaches the caller. Grounded line-for-line on the
// original system's core/llm/smart_llm.py (per-turn context rebuild, tool
// schema patch, chaos injection points) and probes/runtime/probe_engine.py's
// StreamProbe (first-chunk timeout, zero-chunk detection).
package smartllm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/chaos"
	"github.com/Harsha2sai/Maya-One/internal/telemetry"
	"github.com/Harsha2sai/Maya-One/internal/toolschema"
	"github.com/Harsha2sai/Maya-One/pkg/provider/llm"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// defaultProbeTimeout mirrors StreamProbe's default first-chunk timeout,
// widened to 10s in the original to tolerate provider rate-limit retries.
const defaultProbeTimeout = 10 * time.Second

// ContextBuilder assembles the per-turn system prompt and tool set for
// userMessage (the most recent user utterance). Returning a nil tools
// slice leaves the caller-supplied tool list unchanged.
type ContextBuilder func(ctx context.Context, userMessage string) (systemPrompt string, tools []types.ToolDefinition, err error)

// SmartLLM wraps a base [llm.Provider], rebuilding context per turn and
// probing every stream before proxying it to the caller.
type SmartLLM struct {
	base    llm.Provider
	builder ContextBuilder
	chaos   *chaos.Switchboard
	monitor *telemetry.Monitor

	probeTimeout time.Duration
	turnNumber   int
}

var _ llm.Provider = (*SmartLLM)(nil)

// New creates a SmartLLM wrapping base. chaosBoard and monitor may be nil,
// in which case no fault injection or telemetry is recorded.
func New(base llm.Provider, builder ContextBuilder, chaosBoard *chaos.Switchboard, monitor *telemetry.Monitor) *SmartLLM {
	return &SmartLLM{
		base:         base,
		builder:      builder,
		chaos:        chaosBoard,
		monitor:      monitor,
		probeTimeout: defaultProbeTimeout,
	}
}

// CountTokens delegates to the base provider.
func (s *SmartLLM) CountTokens(messages []types.Message) (int, error) {
	return s.base.CountTokens(messages)
}

// Capabilities delegates to the base provider.
func (s *SmartLLM) Capabilities() types.ModelCapabilities {
	return s.base.Capabilities()
}

// Complete rebuilds context for req and delegates to the base provider's
// non-streaming call. Unlike StreamCompletion this does not run the stream
// probe, since there is no stream to probe.
func (s *SmartLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	patched, err := s.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.base.Complete(ctx, patched)
}

// StreamCompletion rebuilds per-turn context, applies chaos fault
// injection, starts the base stream, wraps it with a first-chunk probe,
// and records telemetry as chunks arrive.
func (s *SmartLLM) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	if s.monitor != nil {
		s.monitor.StartRequest()
	}
	s.turnNumber++

	patched, err := s.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.chaos != nil {
		cfg := s.chaos.Get()
		if cfg.Enabled {
			if delay, inject := latencyInjection(cfg); inject {
				slog.Warn("chaos: injecting LLM latency", "delay", delay)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			}
			if chaos.RollRateLimit(cfg) {
				slog.Warn("chaos: simulating rate limit")
				return nil, fmt.Errorf("429: rate limit exceeded (simulated)")
			}
			if chaos.RollToolFailure(cfg) {
				slog.Warn("chaos: simulating upstream failure")
				return nil, fmt.Errorf("500: internal server error (simulated)")
			}
		}
	}

	base, err := s.base.StreamCompletion(ctx, patched)
	if err != nil {
		return nil, err
	}

	probed := ProbeStream(ctx, base, s.probeTimeout)
	return s.instrument(probed, s.experimentTags()), nil
}

// experimentTags reads the current chaos config (if any) into the tags
// EndRequest uses to label this turn's metrics.
func (s *SmartLLM) experimentTags() (experimentID, experimentType, phase string) {
	if s.chaos == nil {
		return "", "", ""
	}
	cfg := s.chaos.Get()
	if !cfg.Enabled {
		return "", "", ""
	}
	return cfg.ExperimentID, cfg.ExperimentType, "chaos"
}

// latencyInjection mirrors the original's uniform(0.5, 2.0) * (multiplier -
// 1.0) delay formula, only firing when the multiplier indicates injected
// slowness.
func latencyInjection(cfg chaos.Config) (time.Duration, bool) {
	if cfg.LLMLatencyMultiplier <= 1.0 {
		return 0, false
	}
	seconds := (0.5 + rand.Float64()*1.5) * (cfg.LLMLatencyMultiplier - 1.0)
	return time.Duration(seconds * float64(time.Second)), true
}

// buildRequest calls the context builder (if any) for the latest user
// message and returns req with SystemPrompt and Tools replaced. The
// caller-supplied system prompt and tools are kept if the builder returns
// none or fails.
func (s *SmartLLM) buildRequest(ctx context.Context, req llm.CompletionRequest) (llm.CompletionRequest, error) {
	patched := req

	if s.builder == nil {
		return patched, nil
	}

	userMsg := lastUserMessage(req.Messages)
	systemPrompt, tools, err := s.builder(ctx, userMsg)
	if err != nil {
		slog.Error("smartllm: context builder failed, using caller-supplied context", "error", err)
		return patched, nil
	}

	if systemPrompt != "" {
		patched.SystemPrompt = systemPrompt
	}
	if tools != nil {
		patched.Tools = patchToolSchemas(tools)
	}

	// The freshly built system prompt is the only system-role content that
	// should reach the provider this turn; drop any system messages already
	// present in req.Messages (e.g. a tool-result context message appended
	// upstream) so at most one system prefix is ever sent.
	patched.Messages = dropSystemMessages(patched.Messages)

	if s.monitor != nil {
		estTokens := (len(patched.SystemPrompt) + len(userMsg)) / 4
		s.monitor.RecordContextSize(estTokens)
	}

	return patched, nil
}

// dropSystemMessages filters out every Role == "system" message, mirroring
// the original's `for msg in original_msgs: if msg.role == "system":
// continue` loop that runs before the fresh system prompt is appended.
func dropSystemMessages(messages []types.Message) []types.Message {
	out := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func lastUserMessage(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// patchToolSchemas deep-copies tools and ensures every parameters schema
// carries a "type"/"properties" pair, matching the original's fix for
// providers (Groq) that reject a parameters object missing "properties"
// even when there are no parameters to declare. Delegates to
// internal/toolschema so the same canonicalisation runs here (per-turn) and
// in internal/preflight's startup tool-schema check.
func patchToolSchemas(tools []types.ToolDefinition) []types.ToolDefinition {
	out := make([]types.ToolDefinition, len(tools))
	for i, t := range tools {
		params, err := toolschema.Canonicalize(t.Parameters)
		if err != nil {
			slog.Warn("smartllm: failed to canonicalise tool schema, passing through unchanged", "tool", t.Name, "error", err)
			out[i] = t
			continue
		}
		t.Parameters = params
		out[i] = t
	}
	return out
}

// instrument proxies probed onto a fresh channel while recording
// first-chunk latency, end-to-end latency, and token counts to the
// monitor. The returned channel is closed exactly when probed is closed.
func (s *SmartLLM) instrument(probed <-chan llm.Chunk, experimentID, experimentType, phase string) <-chan llm.Chunk {
	out := make(chan llm.Chunk)
	go func() {
		defer close(out)

		start := time.Now()
		firstChunkSeen := false
		tokensOut := 0

		for chunk := range probed {
			if !firstChunkSeen {
				firstChunkSeen = true
				if s.monitor != nil {
					s.monitor.RecordFirstChunkLatency(time.Since(start).Seconds())
				}
			}

			if chunk.FinishReason == "error" {
				if s.monitor != nil {
					s.monitor.IncrementProbeFailures()
				}
				out <- chunk
				continue
			}

			if chunk.Text != "" {
				tokensOut++
			}

			out <- chunk
		}

		if s.monitor == nil {
			return
		}
		s.monitor.RecordLLMLatency(time.Since(start).Seconds())
		s.monitor.RecordTokensOut(tokensOut)
		s.monitor.EndRequest(experimentID, experimentType, phase, s.turnNumber)
	}()
	return out
}
