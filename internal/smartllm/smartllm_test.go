package smartllm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/chaos"
	"github.com/Harsha2sai/Maya-One/internal/telemetry"
	"github.com/Harsha2sai/Maya-One/pkg/provider/llm"
	"github.com/Harsha2sai/Maya-One/pkg/provider/llm/mock"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

func drain(ch <-chan llm.Chunk) []llm.Chunk {
	var out []llm.Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestStreamCompletionAppliesBuiltContext(t *testing.T) {
	base := &mock.Provider{StreamChunks: []llm.Chunk{{Text: "hi"}, {Text: " there", FinishReason: "stop"}}}
	builder := func(ctx context.Context, userMsg string) (string, []types.ToolDefinition, error) {
		return "custom prompt for: " + userMsg, nil, nil
	}
	s := New(base, builder, nil, nil)

	req := llm.CompletionRequest{Messages: []types.Message{{Role: "user", Content: "hello"}}}
	ch, err := s.StreamCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks := drain(ch)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	if len(base.StreamCalls) != 1 {
		t.Fatalf("expected 1 call to base provider, got %d", len(base.StreamCalls))
	}
	if base.StreamCalls[0].Req.SystemPrompt != "custom prompt for: hello" {
		t.Fatalf("unexpected system prompt: %q", base.StreamCalls[0].Req.SystemPrompt)
	}
}

func TestStreamCompletionPatchesToolSchemaProperties(t *testing.T) {
	base := &mock.Provider{StreamChunks: []llm.Chunk{{Text: "ok", FinishReason: "stop"}}}
	builder := func(ctx context.Context, userMsg string) (string, []types.ToolDefinition, error) {
		return "sys", []types.ToolDefinition{{Name: "get_weather", Parameters: map[string]any{"type": "object"}}}, nil
	}
	s := New(base, builder, nil, nil)

	req := llm.CompletionRequest{Messages: []types.Message{{Role: "user", Content: "weather?"}}}
	ch, err := s.StreamCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(ch)

	patched := base.StreamCalls[0].Req.Tools[0].Parameters
	if _, ok := patched["properties"]; !ok {
		t.Fatal("expected patched schema to carry a properties key")
	}
}

func TestStreamCompletionBuilderErrorFallsBackToCallerContext(t *testing.T) {
	base := &mock.Provider{StreamChunks: []llm.Chunk{{Text: "ok", FinishReason: "stop"}}}
	builder := func(ctx context.Context, userMsg string) (string, []types.ToolDefinition, error) {
		return "", nil, context.DeadlineExceeded
	}
	s := New(base, builder, nil, nil)

	req := llm.CompletionRequest{
		SystemPrompt: "caller prompt",
		Messages:     []types.Message{{Role: "user", Content: "hi"}},
	}
	ch, err := s.StreamCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(ch)

	if base.StreamCalls[0].Req.SystemPrompt != "caller prompt" {
		t.Fatalf("expected caller-supplied prompt preserved, got %q", base.StreamCalls[0].Req.SystemPrompt)
	}
}

func TestStreamCompletionRecordsTelemetry(t *testing.T) {
	base := &mock.Provider{StreamChunks: []llm.Chunk{{Text: "a"}, {Text: "b", FinishReason: "stop"}}}
	monitor := telemetry.NewMonitor(nil)
	s := New(base, nil, nil, monitor)

	req := llm.CompletionRequest{Messages: []types.Message{{Role: "user", Content: "hi"}}}
	ch, err := s.StreamCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(ch)

	history := monitor.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 finalized turn, got %d", len(history))
	}
	if history[0].TokensOut != 2 {
		t.Fatalf("expected 2 tokens out, got %d", history[0].TokensOut)
	}
}

func TestStreamCompletionChaosRateLimitReturnsErrorBeforeStreaming(t *testing.T) {
	base := &mock.Provider{StreamChunks: []llm.Chunk{{Text: "unreachable"}}}
	board := chaos.NewSwitchboard()
	board.Enable(chaos.Config{Enabled: true, RateLimitProbability: 1.0})
	s := New(base, nil, board, nil)

	req := llm.CompletionRequest{Messages: []types.Message{{Role: "user", Content: "hi"}}}
	_, err := s.StreamCompletion(context.Background(), req)
	if err == nil {
		t.Fatal("expected simulated rate-limit error")
	}
	if len(base.StreamCalls) != 0 {
		t.Fatal("expected base provider never to be called when chaos short-circuits")
	}
}

func TestProbeStreamTimesOutWithoutFirstChunk(t *testing.T) {
	in := make(chan llm.Chunk)
	out := ProbeStream(context.Background(), in, 20*time.Millisecond)

	chunks := drain(out)
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one error chunk, got %d", len(chunks))
	}
	if chunks[0].FinishReason != "error" {
		t.Fatalf("expected an error chunk, got %+v", chunks[0])
	}
}

func TestProbeStreamForwardsChunksAfterFirst(t *testing.T) {
	in := make(chan llm.Chunk, 2)
	in <- llm.Chunk{Text: "first"}
	in <- llm.Chunk{Text: "second", FinishReason: "stop"}
	close(in)

	out := ProbeStream(context.Background(), in, time.Second)
	chunks := drain(out)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks forwarded, got %d", len(chunks))
	}
	if chunks[1].Text != "second" {
		t.Fatalf("unexpected second chunk: %+v", chunks[1])
	}
}

func TestProbeStreamZeroChunksEmitsError(t *testing.T) {
	in := make(chan llm.Chunk)
	close(in)

	out := ProbeStream(context.Background(), in, time.Second)
	chunks := drain(out)
	if len(chunks) != 1 || chunks[0].FinishReason != "error" {
		t.Fatalf("expected a single error chunk for a stream that closed immediately, got %+v", chunks)
	}
	if !strings.Contains(chunks[0].Text, "without emitting") {
		t.Fatalf("unexpected message: %q", chunks[0].Text)
	}
}
