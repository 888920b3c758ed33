// Package datetimetool provides the read-only date/time builtin tools
// (get_current_datetime, get_date, get_time), the lowest-risk entries in
// the tool catalogue (READ_ONLY tier — no side effects, no arguments).
// Grounded on internal/mcp/tools/diceroller's Tool-shape construction
// pattern.
package datetimetool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// now is overridable in tests; production callers always get the real clock.
var now = time.Now

type datetimeResult struct {
	Datetime string `json:"datetime"`
	Timezone string `json:"timezone"`
}

type dateResult struct {
	Date string `json:"date"`
}

type timeResult struct {
	Time string `json:"time"`
}

func currentDatetimeHandler(_ context.Context, _ string) (string, error) {
	n := now()
	res, err := json.Marshal(datetimeResult{
		Datetime: n.Format(time.RFC3339),
		Timezone: n.Location().String(),
	})
	return string(res), err
}

func dateHandler(_ context.Context, _ string) (string, error) {
	res, err := json.Marshal(dateResult{Date: now().Format("2006-01-02")})
	return string(res), err
}

func timeHandler(_ context.Context, _ string) (string, error) {
	res, err := json.Marshal(timeResult{Time: now().Format("15:04:05")})
	return string(res), err
}

// Tools returns get_current_datetime, get_date, and get_time.
func Tools() []tools.Tool {
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "get_current_datetime",
				Description: "Get the current date and time, including the local timezone.",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			},
			Handler:     currentDatetimeHandler,
			DeclaredP50: 1,
			DeclaredMax: 5,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "get_date",
				Description: "Get today's date in YYYY-MM-DD format.",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			},
			Handler:     dateHandler,
			DeclaredP50: 1,
			DeclaredMax: 5,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "get_time",
				Description: "Get the current local time in HH:MM:SS format.",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			},
			Handler:     timeHandler,
			DeclaredP50: 1,
			DeclaredMax: 5,
		},
	}
}
