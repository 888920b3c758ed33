// Package alarmtool provides the set_alarm/delete_alarm/list_alarms builtin
// tools, HIGH risk for mutation and MEDIUM for listing. Grounded on
// internal/toolkit/weathertool's Fetcher-injection pattern, generalized to
// a small CRUD [Store] interface since alarms have state across calls
// instead of a single stateless fetch. The persistence store behind
// alarms/notes/calendar is an external collaborator; [NewMemoryStore] is a
// process-lifetime stand-in until a real one is wired in.
package alarmtool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Alarm is a single scheduled alarm for a user.
type Alarm struct {
	ID   string `json:"id"`
	Time string `json:"time"`
	Note string `json:"note,omitempty"`
}

// Store persists alarms. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, userID, time, note string) (Alarm, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string) ([]Alarm, error)
}

// MemoryStore is an in-process [Store], sufficient for a single-process
// deployment; a real system would back this with a durable persistence
// layer instead.
type MemoryStore struct {
	mu     sync.Mutex
	seq    int
	alarms map[string][]Alarm
}

// NewMemoryStore creates an empty in-memory alarm store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{alarms: make(map[string][]Alarm)}
}

func (s *MemoryStore) Create(_ context.Context, userID, t, note string) (Alarm, error) {
	if t == "" {
		return Alarm{}, fmt.Errorf("alarmtool: time must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	a := Alarm{ID: fmt.Sprintf("alarm-%d", s.seq), Time: t, Note: note}
	s.alarms[userID] = append(s.alarms[userID], a)
	return a, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.alarms[userID]
	for i, a := range list {
		if a.ID == id {
			s.alarms[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("alarmtool: alarm %q not found", id)
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alarm, len(s.alarms[userID]))
	copy(out, s.alarms[userID])
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// userIDKey is the context key under which the executing user's ID is
// threaded to the handler, mirroring how the governance executor carries
// a userID per call without baking it into the JSON args schema.
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
	Time string `json:"time"`
	Note string `json:"note"`
}

type deleteArgs struct {
	ID string `json:"id"`
}

// Tools returns the set_alarm/delete_alarm/list_alarms tools backed by
// store. Pass nil to use an in-memory stand-in.
func Tools(store Store) []tools.Tool {
	if store == nil {
		store = NewMemoryStore()
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "set_alarm",
				Description: "Schedule a new alarm for the user at a given time.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"time": map[string]any{"type": "string", "description": "When the alarm should fire, e.g. \"8:00 AM\"."},
						"note": map[string]any{"type": "string", "description": "Optional label for the alarm."},
					},
					"required": []string{"time"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a setArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("alarmtool: failed to parse arguments: %w", err)
				}
				alarm, err := store.Create(ctx, userIDFrom(ctx), a.Time, a.Note)
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(alarm)
				return string(res), nil
			},
			DeclaredP50: 150,
			DeclaredMax: 1500,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "delete_alarm",
				Description: "Delete a previously scheduled alarm by ID.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{"type": "string", "description": "The alarm ID returned by set_alarm or list_alarms."},
					},
					"required": []string{"id"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a deleteArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("alarmtool: failed to parse arguments: %w", err)
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
				Name:        "list_alarms",
				Description: "List all alarms currently scheduled for the user.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			Handler: func(ctx context.Context, _ string) (string, error) {
				alarms, err := store.List(ctx, userIDFrom(ctx))
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(alarms)
				return string(res), nil
			},
			DeclaredP50: 100,
			DeclaredMax: 1000,
		},
	}
}
