// Package calendartool provides the create_calendar_event/
// delete_calendar_event/list_calendar_events builtin tools, HIGH risk for
// mutation and MEDIUM for listing. Same CRUD-over-Store shape as
// internal/toolkit/alarmtool.
package calendartool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Event is a single calendar event for a user.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
}

// Store persists calendar events. Implementations must be safe for
// concurrent use.
type Store interface {
	Create(ctx context.Context, userID, title, start string) (Event, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string) ([]Event, error)
}

// MemoryStore is an in-process [Store].
type MemoryStore struct {
	mu     sync.Mutex
	seq    int
	events map[string][]Event
}

// NewMemoryStore creates an empty in-memory calendar store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]Event)}
}

func (s *MemoryStore) Create(_ context.Context, userID, title, start string) (Event, error) {
	if title == "" {
		return Event{}, fmt.Errorf("calendartool: title must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e := Event{ID: fmt.Sprintf("event-%d", s.seq), Title: title, Start: start}
	s.events[userID] = append(s.events[userID], e)
	return e, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.events[userID]
	for i, e := range list {
		if e.ID == id {
			s.events[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("calendartool: event %q not found", id)
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events[userID]))
	copy(out, s.events[userID])
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

type createArgs struct {
	Title string `json:"title"`
	Start string `json:"start"`
}

type idArgs struct {
	ID string `json:"id"`
}

// Tools returns the create_calendar_event/delete_calendar_event/
// list_calendar_events tools backed by store. Pass nil to use an
// in-memory stand-in.
func Tools(store Store) []tools.Tool {
	if store == nil {
		store = NewMemoryStore()
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "create_calendar_event",
				Description: "Create a new calendar event for the user.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string", "description": "Event title."},
						"start": map[string]any{"type": "string", "description": "Start time, e.g. an ISO timestamp or \"tomorrow at 3pm\"."},
					},
					"required": []string{"title", "start"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a createArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("calendartool: failed to parse arguments: %w", err)
				}
				e, err := store.Create(ctx, userIDFrom(ctx), a.Title, a.Start)
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(e)
				return string(res), nil
			},
			DeclaredP50: 200,
			DeclaredMax: 2000,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "delete_calendar_event",
				Description: "Delete a calendar event by ID.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{"type": "string", "description": "The event ID."},
					},
					"required": []string{"id"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a idArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("calendartool: failed to parse arguments: %w", err)
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
				Name:        "list_calendar_events",
				Description: "List the user's upcoming calendar events.",
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
