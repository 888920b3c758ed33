// Package emailtool provides the send_email builtin tool, HIGH risk since
// it is an irreversible, externally-visible side effect and the canonical
// example of a governance-denial path for under-privileged roles. The
// concrete mail transport is an external collaborator; [Sender] is the
// seam a real deployment implements (SMTP, SES, SendGrid, ...). [Tools]
// with a nil sender uses an in-memory [LogSender] that records sends for inspection
// instead of delivering mail.
package emailtool

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Sender delivers an email message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SentMessage records one delivered message for [LogSender].
type SentMessage struct {
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// LogSender is an in-process [Sender] that appends every send to an
// in-memory log instead of delivering mail. Safe for concurrent use.
type LogSender struct {
	mu  sync.Mutex
	Log []SentMessage
}

// NewLogSender creates an empty [LogSender].
func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Log = append(s.Log, SentMessage{To: to, Subject: subject, Body: body, Timestamp: time.Now()})
	return nil
}

type sendArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Tools returns the send_email tool backed by sender. Pass nil to use the
// built-in [LogSender] stand-in.
func Tools(sender Sender) []tools.Tool {
	if sender == nil {
		sender = NewLogSender()
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "send_email",
				Description: "Send an email on the user's behalf.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"to":      map[string]any{"type": "string", "description": "Recipient email address."},
						"subject": map[string]any{"type": "string", "description": "Email subject line."},
						"body":    map[string]any{"type": "string", "description": "Email body text."},
					},
					"required": []string{"to", "body"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a sendArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("emailtool: failed to parse arguments: %w", err)
				}
				if !emailPattern.MatchString(a.To) {
					return "", fmt.Errorf("emailtool: %q is not a valid email address", a.To)
				}
				if err := sender.Send(ctx, a.To, a.Subject, a.Body); err != nil {
					return "", fmt.Errorf("emailtool: send failed: %w", err)
				}
				res, _ := json.Marshal(map[string]string{"to": a.To, "status": "sent"})
				return string(res), nil
			},
			DeclaredP50: 800,
			DeclaredMax: 8000,
		},
	}
}
