// Package guardrails enforces per-session resource limits: turn count,
// tool-call count, and consecutive-error count. It has no direct equivalent
// in the original Python system, where the same concerns are scattered
// across config/settings.py (timeouts) and core/cognition/validator.py
// (plan/tool-selection sanity checks). This package gives them an explicit
// home, generalizing the teacher's [resilience.CircuitBreaker]
// trip-threshold shape from per-call failures to per-session counters: a
// session that exceeds a limit trips, just as a breaker opens, and the
// orchestrator is expected to end the conversation gracefully rather than
// keep routing turns through it.
package guardrails

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Limits bounds a single conversation session's resource consumption.
type Limits struct {
	// MaxTurns is the number of user turns a session may process before
	// tripping. Zero means unlimited.
	MaxTurns int

	// MaxToolCalls is the number of tool executions a session may make
	// before tripping. Zero means unlimited.
	MaxToolCalls int

	// MaxConsecutiveErrors is the number of consecutive turn failures
	// (LLM errors, tool errors) tolerated before tripping. Zero means
	// unlimited.
	MaxConsecutiveErrors int
}

// DefaultLimits mirrors the conservative ceilings the original system
// enforces informally through provider timeouts and manual restarts.
func DefaultLimits() Limits {
	return Limits{
		MaxTurns:             500,
		MaxToolCalls:         200,
		MaxConsecutiveErrors: 5,
	}
}

// TripReason identifies which limit caused a session to trip.
type TripReason string

const (
	TripNone             TripReason = ""
	TripMaxTurns         TripReason = "max_turns_exceeded"
	TripMaxToolCalls     TripReason = "max_tool_calls_exceeded"
	TripConsecutiveError TripReason = "max_consecutive_errors_exceeded"
)

// Session tracks one conversation's resource usage against [Limits]. Safe
// for concurrent use. Once tripped a Session stays tripped until Reset is
// called explicitly; callers should not call Reset to paper over a real
// resource exhaustion, only when starting a genuinely new session.
type Session struct {
	limits Limits

	mu                sync.Mutex
	turns             int
	toolCalls         int
	consecutiveErrors int
	tripped           bool
	tripReason        TripReason
}

// NewSession creates a Session enforcing limits.
func NewSession(limits Limits) *Session {
	return &Session{limits: limits}
}

// Tripped reports whether the session has exceeded any limit.
func (s *Session) Tripped() (bool, TripReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripped, s.tripReason
}

// RecordTurn increments the turn counter and trips the session if
// MaxTurns is exceeded. Returns an error if the session is already
// tripped or just tripped as a result of this call.
func (s *Session) RecordTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tripped {
		return s.trippedErr()
	}

	s.turns++
	if s.limits.MaxTurns > 0 && s.turns > s.limits.MaxTurns {
		s.trip(TripMaxTurns)
		return s.trippedErr()
	}
	return nil
}

// RecordToolCall increments the tool-call counter and trips the session if
// MaxToolCalls is exceeded.
func (s *Session) RecordToolCall() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tripped {
		return s.trippedErr()
	}

	s.toolCalls++
	if s.limits.MaxToolCalls > 0 && s.toolCalls > s.limits.MaxToolCalls {
		s.trip(TripMaxToolCalls)
		return s.trippedErr()
	}
	return nil
}

// RecordTurnResult updates the consecutive-error counter: err != nil
// increments it (and may trip the session), err == nil resets it to zero.
func (s *Session) RecordTurnResult(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tripped {
		return s.trippedErr()
	}

	if err == nil {
		s.consecutiveErrors = 0
		return nil
	}

	s.consecutiveErrors++
	if s.limits.MaxConsecutiveErrors > 0 && s.consecutiveErrors > s.limits.MaxConsecutiveErrors {
		s.trip(TripConsecutiveError)
		return s.trippedErr()
	}
	return nil
}

func (s *Session) trip(reason TripReason) {
	s.tripped = true
	s.tripReason = reason
	slog.Warn("session guardrail tripped",
		"reason", reason,
		"turns", s.turns,
		"tool_calls", s.toolCalls,
		"consecutive_errors", s.consecutiveErrors,
	)
}

func (s *Session) trippedErr() error {
	return fmt.Errorf("session guardrail tripped: %s", s.tripReason)
}

// Reset clears all counters and the tripped flag, starting a fresh
// accounting window on the same Session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = 0
	s.toolCalls = 0
	s.consecutiveErrors = 0
	s.tripped = false
	s.tripReason = TripNone
}

// ToolSelectionPlausible is a lightweight sanity check on a routed tool
// call before it executes, grounded on the original system's
// validate_tool_selection heuristic: a tool whose name shares no word with
// the user's utterance is probably a routing mistake even if the registry
// scored it highest.
func ToolSelectionPlausible(userText, toolName string) bool {
	toolWords := splitWords(strings.ToLower(toolName), '_')
	textWords := splitWords(strings.ToLower(userText), ' ')

	textSet := make(map[string]struct{}, len(textWords))
	for _, w := range textWords {
		textSet[w] = struct{}{}
	}

	for _, w := range toolWords {
		if _, ok := textSet[w]; ok {
			return true
		}
	}
	return false
}

func splitWords(s string, sep rune) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == sep || r == ' ' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
