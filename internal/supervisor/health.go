// Package supervisor monitors the health of the STT, LLM, and TTS
// providers backing a conversation and drives background reconnection
// when one goes offline. Grounded on the original system's
// core/providers/provider_supervisor.py and provider_health.py.
package supervisor

import "time"

// State is a provider's current operating condition.
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateReconnecting
	StateOffline
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// maxFailuresBeforeOffline mirrors provider_health.py: more than 3
// consecutive failures moves a provider from DEGRADED to OFFLINE.
const maxFailuresBeforeOffline = 3

// Health tracks one provider's condition. Safe for concurrent use via the
// owning [Supervisor]'s lock; callers should not mutate it directly.
type Health struct {
	Name        string
	State       State
	LastSuccess time.Time
	FailureCount int
	LastError   string
}

func newHealth(name string) *Health {
	return &Health{Name: name, State: StateHealthy, LastSuccess: time.Now()}
}

func (h *Health) markSuccess() {
	h.State = StateHealthy
	h.LastSuccess = time.Now()
	h.FailureCount = 0
	h.LastError = ""
}

func (h *Health) markFailure(errMsg string) {
	h.FailureCount++
	h.LastError = errMsg
	if h.FailureCount > maxFailuresBeforeOffline {
		h.State = StateOffline
	} else {
		h.State = StateDegraded
	}
}

// snapshot returns a copy of h safe to read without holding any lock.
func (h *Health) snapshot() Health {
	return *h
}
