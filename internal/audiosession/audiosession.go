// Package audiosession keeps a live audio transport running for the
// lifetime of a conversation, restarting it on crash while the
// conversation's own state (LLM context, memory) survives underneath.
// Grounded on the original system's core/session/audio_session_manager.py:
// the same 1.5x backoff growth starting at 2s and capped at 30s (distinct
// from the provider supervisor's fixed [2,5,10,30] schedule in
// [github.com/Harsha2sai/Maya-One/internal/supervisor]), and the same
// attach/detach handoff to the conversation layer across restarts.
package audiosession

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// initialReconnectDelay and maxReconnectDelay are vars rather than consts
// so tests can shrink them; production code should treat them as fixed.
var (
	initialReconnectDelay = 2 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

const (
	reconnectGrowthFactor = 1.5

	// onConnectGraceDelay mirrors _safe_on_connect's 1s wait for the
	// transport to likely finish establishing its connection before firing
	// the caller's on-connect hook (e.g. an opening TTS greeting).
	onConnectGraceDelay = 1 * time.Second
)

// Session is a live audio transport. Start blocks until the session ends
// gracefully (err == nil) or crashes (err != nil); it must return promptly
// once ctx is cancelled.
type Session interface {
	Start(ctx context.Context) error
}

// SessionFactory creates a fresh [Session] for each (re)connection attempt.
type SessionFactory func(ctx context.Context) (Session, error)

// Conversation receives the live audio session on each (re)connection and
// loses it on every crash, while its own state (LLM context, memory)
// persists across the gap. Implemented by [conversation.Session].
type Conversation interface {
	AttachAudioSession(s Session)
	DetachAudioSession()
}

// Manager owns the restart loop for one conversation's audio transport.
type Manager struct {
	factory      SessionFactory
	conversation Conversation
	onConnect    func(ctx context.Context, s Session)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// New creates a Manager. onConnect, if non-nil, is invoked shortly after
// each successful (re)connection — e.g. to play an opening or
// reconnection greeting — and is never allowed to block the run loop.
func New(factory SessionFactory, conversation Conversation, onConnect func(ctx context.Context, s Session)) *Manager {
	return &Manager{
		factory:      factory,
		conversation: conversation,
		onConnect:    onConnect,
		stop:         make(chan struct{}),
	}
}

// Run is the main loop that keeps the audio session alive, restarting it
// with growing backoff on crash until ctx is cancelled, Stop is called, or
// the session ends gracefully. Run blocks until one of those happens.
func (m *Manager) Run(ctx context.Context) {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	slog.Info("audio session manager starting")
	delay := initialReconnectDelay

	for m.isRunning() {
		select {
		case <-ctx.Done():
			slog.Info("audio session manager cancelled")
			return
		case <-m.stop:
			return
		default:
		}

		session, err := m.factory(ctx)
		if err != nil {
			slog.Error("audio session factory failed", "error", err)
			if !m.waitBackoff(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		m.conversation.AttachAudioSession(session)
		slog.Info("starting audio session")

		if m.onConnect != nil {
			go m.safeOnConnect(ctx, session)
		}

		startErr := session.Start(ctx)
		if startErr == nil {
			slog.Info("audio session ended gracefully")
			return
		}

		slog.Error("audio session crashed", "error", startErr)
		m.conversation.DetachAudioSession()

		slog.Warn("reconnecting audio", "delay", delay)
		if !m.waitBackoff(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

func nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * reconnectGrowthFactor)
	if next > maxReconnectDelay {
		return maxReconnectDelay
	}
	return next
}

// waitBackoff sleeps for d, returning false if ctx is cancelled or Stop is
// called during the wait.
func (m *Manager) waitBackoff(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.stop:
		return false
	case <-time.After(d):
		return true
	}
}

func (m *Manager) safeOnConnect(ctx context.Context, s Session) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(onConnectGraceDelay):
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("on-connect callback panicked", "recovered", r)
		}
	}()
	m.onConnect(ctx, s)
}

func (m *Manager) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stop halts the run loop. Safe to call multiple times.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stop)
}
