// Package notetool provides the create_note/delete_note/read_note/
// list_notes builtin tools, HIGH risk for mutation and MEDIUM for
// read/list. Same CRUD-over-Store shape as internal/toolkit/alarmtool,
// generalized with a read_note lookup by ID.
package notetool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Note is a single note entry for a user.
type Note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Store persists notes. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, userID, title, body string) (Note, error)
	Delete(ctx context.Context, userID, id string) error
	Read(ctx context.Context, userID, id string) (Note, error)
	List(ctx context.Context, userID string) ([]Note, error)
}

// MemoryStore is an in-process [Store].
type MemoryStore struct {
	mu    sync.Mutex
	seq   int
	notes map[string][]Note
}

// NewMemoryStore creates an empty in-memory note store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notes: make(map[string][]Note)}
}

func (s *MemoryStore) Create(_ context.Context, userID, title, body string) (Note, error) {
	if title == "" && body == "" {
		return Note{}, fmt.Errorf("notetool: note must have a title or body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	n := Note{ID: fmt.Sprintf("note-%d", s.seq), Title: title, Body: body}
	s.notes[userID] = append(s.notes[userID], n)
	return n, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notes[userID]
	for i, n := range list {
		if n.ID == id {
			s.notes[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("notetool: note %q not found", id)
}

func (s *MemoryStore) Read(_ context.Context, userID, id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes[userID] {
		if n.ID == id {
			return n, nil
		}
	}
	return Note{}, fmt.Errorf("notetool: note %q not found", id)
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Note, len(s.notes[userID]))
	copy(out, s.notes[userID])
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
	Body  string `json:"body"`
}

type idArgs struct {
	ID string `json:"id"`
}

// Tools returns the create_note/delete_note/read_note/list_notes tools
// backed by store. Pass nil to use an in-memory stand-in.
func Tools(store Store) []tools.Tool {
	if store == nil {
		store = NewMemoryStore()
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "create_note",
				Description: "Create a new note for the user.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string", "description": "Short title for the note."},
						"body":  map[string]any{"type": "string", "description": "Note contents."},
					},
					"required": []string{"body"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a createArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("notetool: failed to parse arguments: %w", err)
				}
				n, err := store.Create(ctx, userIDFrom(ctx), a.Title, a.Body)
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(n)
				return string(res), nil
			},
			DeclaredP50: 150,
			DeclaredMax: 1500,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "delete_note",
				Description: "Delete a note by ID.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{"type": "string", "description": "The note ID."},
					},
					"required": []string{"id"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a idArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("notetool: failed to parse arguments: %w", err)
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
				Name:        "read_note",
				Description: "Read a single note by ID.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{"type": "string", "description": "The note ID."},
					},
					"required": []string{"id"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a idArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("notetool: failed to parse arguments: %w", err)
				}
				n, err := store.Read(ctx, userIDFrom(ctx), a.ID)
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(n)
				return string(res), nil
			},
			DeclaredP50: 100,
			DeclaredMax: 1000,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "list_notes",
				Description: "List all of the user's notes.",
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
