// Package remindertool provides the set_reminder/delete_reminder/
// list_reminders builtin tools, HIGH risk for mutation and MEDIUM for
// listing. Structurally identical to internal/toolkit/alarmtool's
// CRUD-over-Store shape, kept as a distinct package since reminders and
// alarms are separate tool names in the risk policy table
// (internal/governance/policy.go).
package remindertool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Reminder is a single reminder entry for a user.
type Reminder struct {
	ID   string `json:"id"`
	When string `json:"when"`
	Text string `json:"text"`
}

// Store persists reminders. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, userID, when, text string) (Reminder, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string) ([]Reminder, error)
}

// MemoryStore is an in-process [Store].
type MemoryStore struct {
	mu        sync.Mutex
	seq       int
	reminders map[string][]Reminder
}

// NewMemoryStore creates an empty in-memory reminder store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reminders: make(map[string][]Reminder)}
}

func (s *MemoryStore) Create(_ context.Context, userID, when, text string) (Reminder, error) {
	if text == "" {
		return Reminder{}, fmt.Errorf("remindertool: text must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	r := Reminder{ID: fmt.Sprintf("reminder-%d", s.seq), When: when, Text: text}
	s.reminders[userID] = append(s.reminders[userID], r)
	return r, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.reminders[userID]
	for i, r := range list {
		if r.ID == id {
			s.reminders[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remindertool: reminder %q not found", id)
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.reminders[userID]))
	copy(out, s.reminders[userID])
	return out, nil
}

type userIDKeyType struct{}

var userIDKey userIDKeyType

// WithUserID returns a context carrying userID for a tool invocation.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func userIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return "default"
}

type setArgs struct {
	When string `json:"when"`
	Text string `json:"text"`
}

type deleteArgs struct {
	ID string `json:"id"`
}

// Tools returns the set_reminder/delete_reminder/list_reminders tools
// backed by store. Pass nil to use an in-memory stand-in.
func Tools(store Store) []tools.Tool {
	if store == nil {
		store = NewMemoryStore()
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "set_reminder",
				Description: "Create a reminder for the user.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"when": map[string]any{"type": "string", "description": "When to remind, e.g. \"in 20 minutes\" or an ISO timestamp."},
						"text": map[string]any{"type": "string", "description": "What to remind the user about."},
					},
					"required": []string{"text"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a setArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("remindertool: failed to parse arguments: %w", err)
				}
				r, err := store.Create(ctx, userIDFrom(ctx), a.When, a.Text)
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(r)
				return string(res), nil
			},
			DeclaredP50: 150,
			DeclaredMax: 1500,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "delete_reminder",
				Description: "Delete a reminder by ID.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{"type": "string", "description": "The reminder ID."},
					},
					"required": []string{"id"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a deleteArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("remindertool: failed to parse arguments: %w", err)
				}
				if err := store.Delete(ctx, userIDFrom(ctx), a.ID); err != nil {
					return "", err
				}
				return `{"deleted":true}`, nil
			},
			DeclaredP50: 100,
			DeclaredMax: 1000,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "list_reminders",
				Description: "List the user's pending reminders.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			Handler: func(ctx context.Context, _ string) (string, error) {
				list, err := store.List(ctx, userIDFrom(ctx))
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(list)
				return string(res), nil
			},
			DeclaredP50: 100,
			DeclaredMax: 1000,
		},
	}
}
