package memorymgr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Harsha2sai/Maya-One/internal/chaos"
	"github.com/Harsha2sai/Maya-One/pkg/memory"
	"github.com/Harsha2sai/Maya-One/pkg/memory/mock"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

func TestGetUserContextReturnsFormattedMemories(t *testing.T) {
	store := &mock.SessionStore{SearchResult: []memory.TranscriptEntry{
		{Text: "likes jazz"},
		{Text: "lives in Austin"},
	}}
	m := New(store, nil, nil)

	got, err := m.GetUserContext(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "Recent memories:\n") {
		t.Fatalf("expected formatted memory block, got %q", got)
	}
	if !strings.Contains(got, "- likes jazz") || !strings.Contains(got, "- lives in Austin") {
		t.Fatalf("expected both entries present, got %q", got)
	}
}

func TestGetUserContextReturnsEmptyWhenNoResults(t *testing.T) {
	store := &mock.SessionStore{}
	m := New(store, nil, nil)

	got, err := m.GetUserContext(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty string for no memories, got %q", got)
	}
}

func TestGetUserContextChaosPersistenceFailure(t *testing.T) {
	store := &mock.SessionStore{SearchResult: []memory.TranscriptEntry{{Text: "anything"}}}
	board := chaos.NewSwitchboard()
	board.Enable(chaos.Config{Enabled: true, PersistenceFailureRate: 1.0})
	m := New(store, nil, board)

	_, err := m.GetUserContext(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected a simulated persistence failure error")
	}
	if store.CallCount("Search") != 0 {
		t.Fatalf("expected Search never called when chaos short-circuits, got %d calls", store.CallCount("Search"))
	}
}

func TestGetUserContextMemoryInflation(t *testing.T) {
	store := &mock.SessionStore{SearchResult: []memory.TranscriptEntry{
		{Text: "a"}, {Text: "b"},
	}}
	board := chaos.NewSwitchboard()
	board.Enable(chaos.Config{Enabled: true, MemoryInflationFactor: 3.0})
	m := New(store, nil, board)

	got, err := m.GetUserContext(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Count(got, "\n- ")
	if lines < 5 {
		t.Fatalf("expected inflation to produce more than the raw 2 memory lines, got %d in block: %q", lines, got)
	}
	if !strings.Contains(got, "(INFLATED)") {
		t.Fatalf("expected inflated entries tagged, got %q", got)
	}
}

func TestSaveSessionContextWritesNonEmptyMessages(t *testing.T) {
	store := &mock.SessionStore{}
	m := New(store, nil, nil)

	messages := []types.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: ""},
		{Role: "assistant", Content: "hi there"},
	}
	if err := m.SaveSessionContext(context.Background(), "u1", messages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.CallCount("WriteEntry"); got != 2 {
		t.Fatalf("expected 2 WriteEntry calls for 2 non-empty messages, got %d", got)
	}
}

func TestSaveSessionContextChaosPersistenceFailure(t *testing.T) {
	store := &mock.SessionStore{}
	board := chaos.NewSwitchboard()
	board.Enable(chaos.Config{Enabled: true, PersistenceFailureRate: 1.0})
	m := New(store, nil, board)

	err := m.SaveSessionContext(context.Background(), "u1", []types.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected a simulated persistence failure error")
	}
	if store.CallCount("WriteEntry") != 0 {
		t.Fatalf("expected no writes when chaos short-circuits, got %d", store.CallCount("WriteEntry"))
	}
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f fakeSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	return f.summary, f.err
}

func TestSummarizeSessionBelowThresholdNoOp(t *testing.T) {
	store := &mock.SessionStore{}
	m := New(store, fakeSummarizer{summary: "a summary"}, nil)

	messages := []types.Message{{Role: "user", Content: "hi"}}
	summary, ok := m.SummarizeSession(context.Background(), "u1", messages, 20)
	if ok || summary != "" {
		t.Fatalf("expected no-op below threshold, got (%q, %v)", summary, ok)
	}
	if store.CallCount("WriteEntry") != 0 {
		t.Fatal("expected no persistence below threshold")
	}
}

func TestSummarizeSessionNoSummarizerConfigured(t *testing.T) {
	store := &mock.SessionStore{}
	m := New(store, nil, nil)

	messages := make([]types.Message, 25)
	for i := range messages {
		messages[i] = types.Message{Role: "user", Content: "message"}
	}
	summary, ok := m.SummarizeSession(context.Background(), "u1", messages, 20)
	if ok || summary != "" {
		t.Fatalf("expected no-op with no summarizer, got (%q, %v)", summary, ok)
	}
}

func TestSummarizeSessionPersistsSummary(t *testing.T) {
	store := &mock.SessionStore{}
	m := New(store, fakeSummarizer{summary: "they discussed the weather"}, nil)

	messages := make([]types.Message, 25)
	for i := range messages {
		messages[i] = types.Message{Role: "user", Content: "message"}
	}
	summary, ok := m.SummarizeSession(context.Background(), "u1", messages, 20)
	if !ok {
		t.Fatal("expected summarization to succeed")
	}
	if summary != "they discussed the weather" {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if got := store.CallCount("WriteEntry"); got != 1 {
		t.Fatalf("expected exactly 1 WriteEntry call for the persisted summary, got %d", got)
	}
	calls := store.Calls()
	entry := calls[len(calls)-1].Args[1].(memory.TranscriptEntry)
	if entry.SpeakerID != "system_summary" {
		t.Fatalf("expected system_summary speaker ID, got %q", entry.SpeakerID)
	}
	if !strings.HasPrefix(entry.Text, "Previous conversation summary: ") {
		t.Fatalf("expected summary prefix, got %q", entry.Text)
	}
}

func TestSummarizeSessionSummarizerErrorNoOp(t *testing.T) {
	store := &mock.SessionStore{}
	m := New(store, fakeSummarizer{err: errors.New("upstream down")}, nil)

	messages := make([]types.Message, 25)
	for i := range messages {
		messages[i] = types.Message{Role: "user", Content: "message"}
	}
	summary, ok := m.SummarizeSession(context.Background(), "u1", messages, 20)
	if ok || summary != "" {
		t.Fatalf("expected no-op on summarizer error, got (%q, %v)", summary, ok)
	}
	if store.CallCount("WriteEntry") != 0 {
		t.Fatal("expected no persistence when summarization fails")
	}
}
