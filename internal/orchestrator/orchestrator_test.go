package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Harsha2sai/Maya-One/internal/governance"
	"github.com/Harsha2sai/Maya-One/internal/guardrails"
	"github.com/Harsha2sai/Maya-One/internal/intent"
	"github.com/Harsha2sai/Maya-One/internal/telemetry"
	"github.com/Harsha2sai/Maya-One/internal/toolregistry"
)

func newTestRegistry() *toolregistry.Registry {
	r := toolregistry.New()
	r.Register(toolregistry.NewMetadata("get_weather", "Get the current weather for a city", "weather", nil, []string{"city"}))
	r.Register(toolregistry.NewMetadata("send_email", "Send an email to someone", "communication", map[string]any{
		"to_email": map[string]any{"type": "email"},
		"message":  map[string]any{"type": "string"},
	}, []string{"to_email", "message"}))
	return r
}

func newTestExecutor(run governance.ToolFunc) *governance.Executor {
	gate := governance.NewExecutionGate(governance.NewToolRiskPolicy())
	audit := governance.NewAuditLogger()
	return governance.NewExecutor(gate, audit, run, nil, nil)
}

func TestRouteToolActionMissingParamAsksFollowup(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	executor := newTestExecutor(func(ctx context.Context, toolName, argsJSON string) (string, error) {
		return "", nil
	})
	r := New(classifier, registry, executor, nil, nil, nil)

	result := r.Route(context.Background(), "what's the weather", governance.RoleUser, "u1")
	if !result.Handled {
		t.Fatal("expected handled=true for missing-param follow-up")
	}
	if !strings.Contains(result.Response, "What's the city?") {
		t.Fatalf("unexpected follow-up response: %q", result.Response)
	}
	if result.NeedsLLM {
		t.Fatal("follow-up question should not need the LLM")
	}
}

func TestRouteToolActionExecutesAndNeedsLLM(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	var calledTool string
	executor := newTestExecutor(func(ctx context.Context, toolName, argsJSON string) (string, error) {
		calledTool = toolName
		return `{"temp_f": 72}`, nil
	})
	monitor := telemetry.NewMonitor(nil)
	r := New(classifier, registry, executor, nil, monitor, nil)

	result := r.Route(context.Background(), `what's the weather in Austin`, governance.RoleUser, "u1")
	if !result.Handled {
		t.Fatal("expected handled=true")
	}
	if calledTool != "get_weather" {
		t.Fatalf("expected get_weather to be called, got %q", calledTool)
	}
	if result.ToolExecuted != "get_weather" {
		t.Fatalf("expected ToolExecuted=get_weather, got %q", result.ToolExecuted)
	}
	if !result.NeedsLLM {
		t.Fatal("expected NeedsLLM=true so the assistant can phrase the tool result")
	}
}

func TestRouteToolActionFriendlyErrorOnMissingArgument(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	executor := newTestExecutor(func(ctx context.Context, toolName, argsJSON string) (string, error) {
		return "", errors.New("missing required argument: body")
	})
	r := New(classifier, registry, executor, nil, nil, nil)

	result := r.Route(context.Background(), `send an email to bob@example.com saying "hi there"`, governance.RoleTrusted, "u1")
	if !result.Handled {
		t.Fatal("expected handled=true even on tool error")
	}
	if !strings.Contains(result.Response, "missing some details") {
		t.Fatalf("expected friendly missing-argument message, got %q", result.Response)
	}
}

func TestRouteToolActionDeniedRendersReasonWithMarker(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	gate := governance.NewExecutionGate(governance.NewToolRiskPolicy())
	audit := governance.NewAuditLogger()
	executor := governance.NewExecutor(gate, audit, func(ctx context.Context, toolName, argsJSON string) (string, error) {
		t.Fatal("tool handler should not run when access is denied")
		return "", nil
	}, nil, nil)
	r := New(classifier, registry, executor, nil, nil, nil)

	result := r.Route(context.Background(), `send an email to bob@example.com saying "hi there"`, governance.RoleGuest, "u1")
	if !result.Handled {
		t.Fatal("expected handled=true on denial")
	}
	if result.NeedsLLM {
		t.Fatal("a denial should not be handed to the LLM")
	}
	wantReason := gate.DenialReason("send_email", governance.RoleGuest)
	if result.Response != "⛔ "+wantReason {
		t.Fatalf("expected verbatim denial reason with marker, got %q", result.Response)
	}
	if result.Err != wantReason {
		t.Fatalf("expected Err to carry the raw denial reason, got %q", result.Err)
	}
}

func TestRouteConversationDefersToLLM(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	r := New(classifier, registry, nil, nil, nil, nil)

	result := r.Route(context.Background(), "tell me a story about the ocean", governance.RoleGuest, "u1")
	if result.Handled {
		t.Fatal("expected conversational turns to defer to the LLM")
	}
	if !result.NeedsLLM {
		t.Fatal("expected NeedsLLM=true")
	}
}

func TestRouteMemoryQueryExtractsName(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	r := New(classifier, registry, nil, nil, nil, nil)
	r.SetMemoryContext("user said: my name is Priya and I like jazz")

	result := r.Route(context.Background(), "what's my name?", governance.RoleUser, "u1")
	if !result.Handled {
		t.Fatal("expected memory query to be handled directly")
	}
	if !strings.Contains(result.Response, "Priya") {
		t.Fatalf("expected name Priya in response, got %q", result.Response)
	}
}

func TestRouteClarificationCyclesTemplates(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	r := New(classifier, registry, nil, nil, nil, nil)

	first := r.Route(context.Background(), "do that thing", governance.RoleUser, "u1")
	second := r.Route(context.Background(), "do that thing", governance.RoleUser, "u1")
	if first.Response == second.Response {
		t.Fatal("expected clarification templates to cycle across calls")
	}
}

type fakeKnowledge struct {
	context string
}

func (f fakeKnowledge) GetContext(ctx context.Context, query string) (string, error) {
	return f.context, nil
}

func TestRouteConversationUsesKnowledgeWhenConfident(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	monitor := telemetry.NewMonitor(nil)
	r := New(classifier, registry, nil, fakeKnowledge{context: "the office opens at 9am"}, monitor, nil)

	result := r.Route(context.Background(), "tell me a story about the ocean and dolphins swimming", governance.RoleUser, "u1")
	if !result.Handled {
		t.Fatal("expected knowledge-backed response to be handled")
	}
	if !strings.Contains(result.Response, "office opens at 9am") {
		t.Fatalf("expected knowledge context in response, got %q", result.Response)
	}
}

func TestRouteToolActionGuardrailTripBlocksExecution(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	executor := newTestExecutor(func(ctx context.Context, toolName, argsJSON string) (string, error) {
		return "ok", nil
	})
	limits := guardrails.DefaultLimits()
	limits.MaxToolCalls = 1
	guard := guardrails.NewSession(limits)
	r := New(classifier, registry, executor, nil, nil, guard)

	r.Route(context.Background(), `what's the weather in Austin`, governance.RoleUser, "u1")
	result := r.Route(context.Background(), `what's the weather in Austin`, governance.RoleUser, "u1")
	if !result.Handled {
		t.Fatal("expected handled=true when guardrails trip")
	}
	if result.Err == "" {
		t.Fatal("expected an error describing the guardrail trip")
	}
}

func TestSetSessionAndSpeakSatisfyConversationOrchestrator(t *testing.T) {
	registry := newTestRegistry()
	classifier := intent.New(registry)
	r := New(classifier, registry, nil, nil, nil, nil)

	r.SetSession(nil)

	spoke := make(chan string, 1)
	r.SetSpeaker(speakerFunc(func(ctx context.Context, text string) error {
		spoke <- text
		return nil
	}))
	r.Speak(context.Background(), "hello")

	select {
	case got := <-spoke:
		if got != "hello" {
			t.Fatalf("unexpected spoken text: %q", got)
		}
	default:
		t.Fatal("expected Speak to call through to the speaker synchronously")
	}
}

type speakerFunc func(ctx context.Context, text string) error

func (f speakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }
