package hotctx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/hotctx"
	"github.com/Harsha2sai/Maya-One/pkg/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func fullHotContext() *hotctx.HotContext {
	friendEntity := memory.Entity{
		ID:   "user-2",
		Type: "person",
		Name: "Bob",
	}

	return &hotctx.HotContext{
		Identity: &memory.NPCIdentity{
			Entity: memory.Entity{
				ID:   "user-1",
				Type: "person",
				Name: "Alice",
				Attributes: map[string]any{
					"role":           "primary user",
					"speaking_style": "direct and brief",
				},
			},
			Relationships: []memory.Relationship{
				{
					SourceID: "user-1",
					TargetID: "user-2",
					RelType:  "KNOWS",
					Attributes: map[string]any{
						"description": "coworker",
					},
				},
			},
			RelatedEntities: []memory.Entity{friendEntity},
		},
		RecentTranscript: []memory.TranscriptEntry{
			{
				SpeakerID:   "user1",
				SpeakerName: "Alice",
				Text:        "Did you check my calendar for tomorrow?",
				Timestamp:   time.Now().Add(-2 * time.Minute),
			},
			{
				SpeakerID:   "assistant",
				SpeakerName: "assistant",
				Text:        "Yes, you have one meeting at 10am.",
				Timestamp:   time.Now().Add(-1 * time.Minute),
			},
		},
		AssemblyDuration: 12 * time.Millisecond,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// tests
// ─────────────────────────────────────────────────────────────────────────────

// TestFormatSystemPrompt_Full verifies that a fully-populated HotContext
// renders all sections correctly.
func TestFormatSystemPrompt_Full(t *testing.T) {
	hctx := fullHotContext()
	persona := "You are concise and speak in short sentences."

	result := hotctx.FormatSystemPrompt(hctx, persona)

	// Opening line must contain subject name and persona.
	if !strings.Contains(result, "Alice") {
		t.Errorf("output missing subject name 'Alice':\n%s", result)
	}
	if !strings.Contains(result, persona) {
		t.Errorf("output missing persona string:\n%s", result)
	}

	// Identity section
	if !strings.Contains(result, "## Known Facts") {
		t.Error("output missing '## Known Facts' section")
	}
	if !strings.Contains(result, "primary user") {
		t.Errorf("output missing role 'primary user':\n%s", result)
	}

	// Relationships section
	if !strings.Contains(result, "## Known Relationships") {
		t.Error("output missing '## Known Relationships' section")
	}
	if !strings.Contains(result, "Bob") {
		t.Errorf("output missing related entity 'Bob':\n%s", result)
	}
	if !strings.Contains(result, "KNOWS") {
		t.Errorf("output missing relationship type 'KNOWS':\n%s", result)
	}

	// Recent conversation section
	if !strings.Contains(result, "## Recent Conversation") {
		t.Error("output missing '## Recent Conversation' section")
	}
	if !strings.Contains(result, "Alice") {
		t.Errorf("output missing speaker 'Alice':\n%s", result)
	}
	if !strings.Contains(result, "calendar") {
		t.Errorf("output missing transcript text:\n%s", result)
	}
}

// TestFormatSystemPrompt_Minimal verifies that a nil identity and no
// transcript produce only the opening line — no empty section headers.
func TestFormatSystemPrompt_Minimal(t *testing.T) {
	hctx := &hotctx.HotContext{
		// No Identity, no RecentTranscript
	}
	persona := "a calm and patient helper"

	result := hotctx.FormatSystemPrompt(hctx, persona)

	// Opening line only — must contain fallback name and persona.
	if !strings.Contains(result, "helpful voice assistant") {
		t.Errorf("output missing fallback name:\n%s", result)
	}
	if !strings.Contains(result, persona) {
		t.Errorf("output missing persona:\n%s", result)
	}

	// No section headers should be emitted.
	for _, header := range []string{
		"## Known Facts",
		"## Known Relationships",
		"## Recent Conversation",
	} {
		if strings.Contains(result, header) {
			t.Errorf("output should not contain empty header %q:\n%s", header, result)
		}
	}
}

// TestFormatSystemPrompt_NilHotContext verifies graceful handling of nil input.
func TestFormatSystemPrompt_NilHotContext(t *testing.T) {
	result := hotctx.FormatSystemPrompt(nil, "speaks plainly")
	if result == "" {
		t.Error("FormatSystemPrompt(nil, ...) returned empty string")
	}
	if !strings.Contains(result, "speaks plainly") {
		t.Errorf("output missing persona: %q", result)
	}
}

// TestFormatSystemPrompt_NoPersona verifies that an empty persona string is
// handled without leaving trailing spaces or double periods.
func TestFormatSystemPrompt_NoPersona(t *testing.T) {
	hctx := fullHotContext()
	result := hotctx.FormatSystemPrompt(hctx, "")

	// Should end with a period after the subject name, no trailing space.
	firstLine := strings.SplitN(result, "\n", 2)[0]
	if !strings.HasSuffix(firstLine, ".") {
		t.Errorf("first line should end with '.': %q", firstLine)
	}
	if strings.Contains(firstLine, "  ") {
		t.Errorf("first line has double spaces: %q", firstLine)
	}
}

// TestFormatSystemPrompt_EmptyRelationships verifies that the Relationships
// section is omitted when there are no relationships.
func TestFormatSystemPrompt_EmptyRelationships(t *testing.T) {
	hctx := &hotctx.HotContext{
		Identity: &memory.NPCIdentity{
			Entity: memory.Entity{ID: "user-1", Name: "Alice", Type: "person"},
			// Empty relationship slice
			Relationships:   []memory.Relationship{},
			RelatedEntities: []memory.Entity{},
		},
	}
	result := hotctx.FormatSystemPrompt(hctx, "")
	if strings.Contains(result, "## Known Relationships") {
		t.Errorf("empty relationships should be omitted:\n%s", result)
	}
}

// TestFormatSystemPrompt_IsPure verifies that calling FormatSystemPrompt twice
// with the same input produces identical output (pure function).
func TestFormatSystemPrompt_IsPure(t *testing.T) {
	hctx := fullHotContext()
	out1 := hotctx.FormatSystemPrompt(hctx, "concise and fair")
	out2 := hotctx.FormatSystemPrompt(hctx, "concise and fair")

	// Both must contain the same sections.
	sections := []string{
		"## Known Facts",
		"## Known Relationships",
		"## Recent Conversation",
	}
	for _, s := range sections {
		if strings.Contains(out1, s) != strings.Contains(out2, s) {
			t.Errorf("section %q presence differs between calls", s)
		}
	}
}
