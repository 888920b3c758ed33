// Package memorymgr assembles per-user memory context for a conversation
// turn, persists session transcripts, and summarizes long sessions.
// Grounded on the original system's core/memory/memory_manager.go
// (memory_manager.py): the same broad "current context and preferences"
// recall query, the same persistence-failure and memory-inflation chaos
// injection points, and the same 20-message summarization threshold. The
// three-layer Mem0/local-engine/cloud-sync split of the original collapses
// onto pkg/memory.SessionStore (L1), this system's single durable memory
// backend.
package memorymgr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/chaos"
	"github.com/Harsha2sai/Maya-One/pkg/memory"
	"github.com/Harsha2sai/Maya-One/pkg/provider/llm"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// recallQuery mirrors the original's broad, unconditional recall search: it
// is not influenced by the current turn's text, deliberately pulling
// whatever context the store considers most relevant for the user overall.
const recallQuery = "current context and preferences"

// DefaultSummarizeThreshold mirrors summarize_session's default message
// count above which a session is summarized.
const DefaultSummarizeThreshold = 20

// Summarizer produces a short narrative summary of a message transcript,
// backed by a fast/cheap LLM. May be nil, in which case summarization is
// disabled, matching the original's behavior when no API key is configured.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Manager retrieves, persists, and summarizes a user's conversational
// memory, backed by a [memory.SessionStore].
type Manager struct {
	store      memory.SessionStore
	summarizer Summarizer
	chaosBoard *chaos.Switchboard
}

// New creates a Manager. summarizer and chaosBoard may be nil.
func New(store memory.SessionStore, summarizer Summarizer, chaosBoard *chaos.Switchboard) *Manager {
	return &Manager{store: store, summarizer: summarizer, chaosBoard: chaosBoard}
}

// GetUserContext searches the store for userID's recent relevant memories
// and formats them as a prompt-ready "Recent memories:" block. Returns an
// empty string (no error) when nothing is found, mirroring the original's
// None-on-empty behavior, so callers can treat "no memories" and "lookup
// failed" the same way: skip memory injection for this turn.
func (m *Manager) GetUserContext(ctx context.Context, userID string) (string, error) {
	if m.chaosEnabled() {
		cfg := m.chaosBoard.Get()
		if chaos.RollPersistenceFailure(cfg) {
			slog.Error("chaos: simulating persistence failure on memory read")
			return "", fmt.Errorf("database connection timeout (simulated chaos)")
		}
	}

	slog.Info("searching memories", "user_id", userID)
	entries, err := m.store.Search(ctx, recallQuery, memory.SearchOpts{SpeakerID: userID, Limit: 5})
	if err != nil {
		slog.Warn("memory search failed", "error", err)
		return "", nil
	}
	if len(entries) == 0 {
		return "", nil
	}

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Text)
	}

	if m.chaosEnabled() {
		cfg := m.chaosBoard.Get()
		if cfg.MemoryInflationFactor > 1.0 {
			items = inflate(items, cfg.MemoryInflationFactor)
		}
	}

	var b strings.Builder
	b.WriteString("Recent memories:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// inflate duplicates items until it reaches len(items)*factor, tagging each
// duplicate as "(INFLATED)". Grounded on the original's memory-inflation
// chaos experiment: this models a memory backend returning far more
// context than it should, stressing downstream context-window budgeting.
func inflate(items []string, factor float64) []string {
	originalLen := len(items)
	target := int(float64(originalLen) * factor)
	out := make([]string, len(items))
	copy(out, items)
	for len(out) < target {
		out = append(out, out[len(out)%originalLen]+" (INFLATED)")
	}
	return out
}

func (m *Manager) chaosEnabled() bool {
	return m.chaosBoard != nil && m.chaosBoard.Get().Enabled
}

// SaveSessionContext persists messages as transcript entries for userID.
// Empty-content messages are skipped.
func (m *Manager) SaveSessionContext(ctx context.Context, userID string, messages []types.Message) error {
	if m.chaosEnabled() {
		cfg := m.chaosBoard.Get()
		if chaos.RollPersistenceFailure(cfg) {
			slog.Error("chaos: simulating persistence failure on memory write")
			return fmt.Errorf("database write error (simulated chaos)")
		}
	}

	saved := 0
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		entry := memory.TranscriptEntry{
			SpeakerID: userID,
			Text:      msg.Content,
			IsNPC:     msg.Role == "assistant",
			Timestamp: time.Now(),
		}
		if err := m.store.WriteEntry(ctx, userID, entry); err != nil {
			slog.Error("failed to save session context", "error", err)
			return err
		}
		saved++
	}

	if saved == 0 {
		slog.Info("no messages to save", "user_id", userID)
		return nil
	}
	slog.Info("saved session context", "user_id", userID, "messages", saved)
	return nil
}

// SummarizeSession summarizes messages if their count meets or exceeds
// threshold, persisting the summary as a system-authored memory entry
// under the well-known "system_summary" speaker. Returns ("", false) when
// under threshold or when no summarizer is configured.
func (m *Manager) SummarizeSession(ctx context.Context, userID string, messages []types.Message, threshold int) (string, bool) {
	if m.summarizer == nil {
		return "", false
	}
	if threshold <= 0 {
		threshold = DefaultSummarizeThreshold
	}
	if len(messages) < threshold {
		return "", false
	}

	slog.Info("session length exceeds threshold, summarizing", "length", len(messages), "threshold", threshold)

	var transcript strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", strings.ToUpper(msg.Role), msg.Content)
	}

	summary, err := m.summarizer.Summarize(ctx, transcript.String())
	if err != nil || summary == "" {
		if err != nil {
			slog.Error("summarization failed", "error", err)
		}
		return "", false
	}

	entry := memory.TranscriptEntry{
		SpeakerID: "system_summary",
		Text:      "Previous conversation summary: " + summary,
		IsNPC:     true,
		Timestamp: time.Now(),
	}
	if err := m.store.WriteEntry(ctx, "system_summary", entry); err != nil {
		slog.Error("failed to save summary", "error", err)
	}

	return summary, true
}

// llmSummarizer is the default [Summarizer], backed by any [llm.Provider].
// Grounded on the original's Summarizer wrapping Groq's Llama 3.1.
type llmSummarizer struct {
	provider llm.Provider
}

// NewLLMSummarizer creates a [Summarizer] backed by provider.
func NewLLMSummarizer(provider llm.Provider) Summarizer {
	return &llmSummarizer{provider: provider}
}

func (s *llmSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following conversation transcript into a concise paragraph. "+
			"Focus on key facts, user preferences, and implementation details. "+
			"Do not lose important context.\n\nTRANSCRIPT:\n%s\n\nSUMMARY:", transcript)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

var _ Summarizer = (*llmSummarizer)(nil)
