// Package apptool provides the open_app/close_app builtin tools, a
// HIGH-risk tier entry since launching or killing processes is a
// significant, OS-visible side effect. The concrete OS-specific "open app"
// behaviour is an external collaborator; [Launcher] is the seam a real
// deployment implements per-platform (os/exec on Linux/macOS, a shell-out
// to `start` on Windows, or an IPC call to a companion desktop agent).
// [Tools] with a nil launcher uses a no-op stand-in that reports success without
// touching the OS.
package apptool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Launcher opens or closes a named application on the host OS.
type Launcher interface {
	Open(ctx context.Context, appName string) error
	Close(ctx context.Context, appName string) error
}

// noopLauncher accepts any app name and always succeeds, useful for tests
// and for deployments that have not wired a real per-OS launcher yet.
type noopLauncher struct{}

func (noopLauncher) Open(context.Context, string) error  { return nil }
func (noopLauncher) Close(context.Context, string) error { return nil }

type appArgs struct {
	AppName string `json:"app_name"`
}

func newHandler(launcher Launcher, action func(Launcher, context.Context, string) error, verb string) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a appArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return "", fmt.Errorf("apptool: failed to parse arguments: %w", err)
		}
		name := strings.TrimSpace(a.AppName)
		if name == "" {
			return "", fmt.Errorf("apptool: app_name must not be empty")
		}
		if err := action(launcher, ctx, name); err != nil {
			return "", fmt.Errorf("apptool: %s %q: %w", verb, name, err)
		}
		res, _ := json.Marshal(map[string]string{"app_name": name, "status": verb + "ed"})
		return string(res), nil
	}
}

// Tools returns the open_app/close_app tools backed by launcher. Pass nil
// to use the built-in no-op stand-in.
func Tools(launcher Launcher) []tools.Tool {
	if launcher == nil {
		launcher = noopLauncher{}
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "open_app",
				Description: "Open a named application on the user's device.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"app_name": map[string]any{"type": "string", "description": "Name of the application to open, e.g. \"Spotify\"."},
					},
					"required": []string{"app_name"},
				},
			},
			Handler:     newHandler(launcher, func(l Launcher, ctx context.Context, n string) error { return l.Open(ctx, n) }, "open"),
			DeclaredP50: 500,
			DeclaredMax: 5000,
		},
		{
			Definition: types.ToolDefinition{
				Name:        "close_app",
				Description: "Close a named application on the user's device.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"app_name": map[string]any{"type": "string", "description": "Name of the application to close."},
					},
					"required": []string{"app_name"},
				},
			},
			Handler:     newHandler(launcher, func(l Launcher, ctx context.Context, n string) error { return l.Close(ctx, n) }, "close"),
			DeclaredP50: 500,
			DeclaredMax: 5000,
		},
	}
}
