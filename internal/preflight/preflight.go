// Package preflight runs the strict startup checklist that must pass before
// a conversation worker accepts any session. Grounded on the teacher's
// internal/health.Handler readiness-check pattern: the same named
// [health.Checker] shape, generalized from an HTTP /readyz responder into a
// blocking sequence run once by [app.App.Run] at startup. This package never
// serves HTTP itself. A failed check does not abort startup: App.Run logs
// each failed check and carries on.
package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/health"
	"github.com/Harsha2sai/Maya-One/internal/toolregistry"
	"github.com/Harsha2sai/Maya-One/internal/toolschema"
	"github.com/Harsha2sai/Maya-One/pkg/memory"
	"github.com/Harsha2sai/Maya-One/pkg/provider/llm"
	"github.com/Harsha2sai/Maya-One/pkg/provider/stt"
	"github.com/Harsha2sai/Maya-One/pkg/provider/tts"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Result is the outcome of a single named check.
type Result struct {
	Name    string
	Passed  bool
	Message string
}

// Run evaluates every check in order and returns whether all passed along
// with a per-check result for logging. Unlike [health.Handler.Readyz], Run
// does not serve HTTP and does not stop the process on failure; what a
// failure means is left to the caller.
func Run(ctx context.Context, checks ...health.Checker) (bool, []Result) {
	results := make([]Result, 0, len(checks))
	ok := true
	for _, c := range checks {
		err := c.Check(ctx)
		r := Result{Name: c.Name, Passed: err == nil}
		if err != nil {
			r.Message = err.Error()
			ok = false
		} else {
			r.Message = "ok"
		}
		results = append(results, r)
	}
	return ok, results
}

// llmConnectivityTimeout bounds how long the LLM connectivity check waits
// for a first chunk, mirroring the stream probe's own first-chunk deadline.
const llmConnectivityTimeout = 10 * time.Second

// LLMConnectivityCheck streams a trivial completion and requires at least
// one chunk to arrive within llmConnectivityTimeout.
func LLMConnectivityCheck(provider llm.Provider) health.Checker {
	return health.Checker{
		Name: "llm_connectivity",
		Check: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, llmConnectivityTimeout)
			defer cancel()

			ch, err := provider.StreamCompletion(ctx, llm.CompletionRequest{
				Messages: []types.Message{{Role: "user", Content: "ping"}},
			})
			if err != nil {
				return fmt.Errorf("stream start failed: %w", err)
			}
			select {
			case _, ok := <-ch:
				if !ok {
					return fmt.Errorf("stream closed without emitting a chunk")
				}
				return nil
			case <-ctx.Done():
				return fmt.Errorf("no chunk received within %s", llmConnectivityTimeout)
			}
		},
	}
}

// ToolSchemaCheck requires every registered tool's parameters schema to
// canonicalise to "type": "object" with every required parameter actually
// declared in properties, via the same internal/toolschema.Canonicalize
// call smartllm.patchToolSchemas makes per-turn.
func ToolSchemaCheck(registry *toolregistry.Registry) health.Checker {
	return health.Checker{
		Name: "tool_schema_validity",
		Check: func(ctx context.Context) error {
			for _, tool := range registry.All() {
				canon, err := toolschema.Canonicalize(tool.Parameters)
				if err != nil {
					return fmt.Errorf("tool %q: invalid parameters schema: %w", tool.Name, err)
				}
				if canon["type"] != "object" {
					return fmt.Errorf("tool %q: parameters type must be \"object\", got %v", tool.Name, canon["type"])
				}
				if len(tool.RequiredParams) == 0 {
					continue
				}
				props, _ := canon["properties"].(map[string]any)
				for _, req := range tool.RequiredParams {
					if _, ok := props[req]; !ok {
						return fmt.Errorf("tool %q: required param %q missing from properties", tool.Name, req)
					}
				}
			}
			return nil
		},
	}
}

// ChatContextCheck verifies the basic message contract the rest of the
// pipeline assumes: every role is one of the four recognised roles.
func ChatContextCheck() health.Checker {
	return health.Checker{
		Name: "chat_context_contract",
		Check: func(ctx context.Context) error {
			probe := []types.Message{
				{Role: "system", Content: "you are a helpful assistant"},
				{Role: "user", Content: "hello"},
			}
			for _, m := range probe {
				switch m.Role {
				case "system", "user", "assistant", "tool":
				default:
					return fmt.Errorf("unrecognised message role %q", m.Role)
				}
			}
			return nil
		},
	}
}

// MemoryLayerCheck round-trips a throwaway entry through store to confirm
// the configured memory backend accepts writes and serves them back via
// recency lookup.
func MemoryLayerCheck(store memory.SessionStore) health.Checker {
	return health.Checker{
		Name: "memory_layer_readwrite",
		Check: func(ctx context.Context) error {
			const probeSession = "__preflight_probe__"
			entry := memory.TranscriptEntry{
				SpeakerID: probeSession,
				Text:      "preflight probe entry",
				Timestamp: time.Now(),
			}
			if err := store.WriteEntry(ctx, probeSession, entry); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			recent, err := store.GetRecent(ctx, probeSession, time.Minute)
			if err != nil {
				return fmt.Errorf("read failed: %w", err)
			}
			if len(recent) == 0 {
				return fmt.Errorf("wrote an entry but none came back on read")
			}
			return nil
		},
	}
}

// sttProbeConfig is the minimal streaming configuration used to exercise a
// provider without committing to any particular deployment's real settings.
var sttProbeConfig = stt.StreamConfig{SampleRate: 16000, Channels: 1}

// STTFactoryCheck opens and immediately closes a session against provider to
// confirm it can be instantiated with the active credentials.
func STTFactoryCheck(provider stt.Provider) health.Checker {
	return health.Checker{
		Name: "stt_factory",
		Check: func(ctx context.Context) error {
			session, err := provider.StartStream(ctx, sttProbeConfig)
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			return session.Close()
		},
	}
}

// ttsFactoryTimeout bounds how long the TTS factory check waits for a first
// audio chunk.
const ttsFactoryTimeout = 10 * time.Second

// TTSFactoryCheck synthesizes a trivial phrase and requires at least one
// audio chunk within ttsFactoryTimeout.
func TTSFactoryCheck(provider tts.Provider, voice types.VoiceProfile) health.Checker {
	return health.Checker{
		Name: "tts_factory",
		Check: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, ttsFactoryTimeout)
			defer cancel()

			text := make(chan string, 1)
			text <- "ready"
			close(text)

			audio, err := provider.SynthesizeStream(ctx, text, voice)
			if err != nil {
				return fmt.Errorf("failed to start synthesis: %w", err)
			}
			select {
			case _, ok := <-audio:
				if !ok {
					return fmt.Errorf("synthesis closed without emitting audio")
				}
				return nil
			case <-ctx.Done():
				return fmt.Errorf("no audio chunk received within %s", ttsFactoryTimeout)
			}
		},
	}
}
