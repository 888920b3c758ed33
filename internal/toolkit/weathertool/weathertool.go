// Package weathertool provides the get_weather builtin tool, LOW risk
// (read-only lookup). A real deployment wires a genuine forecast API
// behind [Fetcher]; live network access is an external collaborator, so
// [Tools] with a nil fetcher uses a deterministic stand-in that derives plausible
// conditions from the location string alone.
package weathertool

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Conditions is the forecast data returned for one location.
type Conditions struct {
	Location    string  `json:"location"`
	TempC       float64 `json:"temp_c"`
	Description string  `json:"description"`
}

// Fetcher retrieves current conditions for a named location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (Conditions, error)
}

// stubFetcher derives deterministic-but-varied conditions from a hash of
// the location name, so repeated calls for the same place are stable
// without needing a real forecast backend.
type stubFetcher struct{}

var skyDescriptions = []string{"clear skies", "partly cloudy", "overcast", "light rain", "scattered showers"}

func (stubFetcher) Fetch(_ context.Context, location string) (Conditions, error) {
	if location == "" {
		return Conditions{}, fmt.Errorf("weathertool: location must not be empty")
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(location))
	sum := h.Sum32()

	return Conditions{
		Location:    location,
		TempC:       float64(sum%35) - 5, // -5..29 C
		Description: skyDescriptions[sum%uint32(len(skyDescriptions))],
	}, nil
}

type weatherArgs struct {
	Location string `json:"location"`
}

func newHandler(fetcher Fetcher) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a weatherArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return "", fmt.Errorf("weathertool: failed to parse arguments: %w", err)
		}
		cond, err := fetcher.Fetch(ctx, a.Location)
		if err != nil {
			return "", err
		}
		res, err := json.Marshal(cond)
		if err != nil {
			return "", fmt.Errorf("weathertool: failed to encode result: %w", err)
		}
		return string(res), nil
	}
}

// Tools returns the get_weather tool backed by fetcher. Pass nil to use the
// built-in deterministic stand-in.
func Tools(fetcher Fetcher) []tools.Tool {
	if fetcher == nil {
		fetcher = stubFetcher{}
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "get_weather",
				Description: "Get the current weather conditions for a named location.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"location": map[string]any{
							"type":        "string",
							"description": "City or place name, e.g. \"Austin, TX\".",
						},
					},
					"required": []string{"location"},
				},
			},
			Handler:     newHandler(fetcher),
			DeclaredP50: 200,
			DeclaredMax: 2000,
		},
	}
}
