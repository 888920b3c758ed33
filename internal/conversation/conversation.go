// Package conversation holds the persistent root state of one user's
// conversation — its assigned LLM/memory context — separately from the
// live audio transport, so a transport crash and restart
// (see [github.com/Harsha2sai/Maya-One/internal/audiosession]) never loses
// conversational state. Grounded on the original system's
// core/session/conversation_session.go (conversation_session.py): the same
// AudioState machine, the same provider-health listener that announces
// degraded/restored voice over TTS, and the same attach/detach handoff.
package conversation

import (
	"context"
	"log/slog"

	"github.com/Harsha2sai/Maya-One/internal/audiosession"
	"github.com/Harsha2sai/Maya-One/internal/supervisor"
)

// AudioState is the conversation's view of its own voice connectivity,
// distinct from any single provider's health.
type AudioState string

const (
	AudioHealthy      AudioState = "healthy"
	AudioReconnecting AudioState = "reconnecting"
	AudioOffline      AudioState = "offline"
)

// voicePathProviderNames are the supervisor-registered names treated as
// voice-path dependencies for AudioState transitions: both the
// speech-to-text and text-to-speech legs, since either one degrading
// breaks the conversation the same way.
var voicePathProviderNames = map[string]struct{}{
	"stt_provider": {}, "stt": {}, "deepgram": {}, "tts": {},
}

// Orchestrator is the turn-routing logic attached to a conversation. It is
// handed the live audio session on every (re)connection and loses it on
// every detach, and can be asked to speak an out-of-band system
// announcement (e.g. "reconnecting voice services...").
type Orchestrator interface {
	SetSession(session audiosession.Session)
	Speak(ctx context.Context, message string)
}

// Session is the persistent root of one user's conversation. It survives
// audio transport restarts; only its attached audio session and
// orchestrator session reference are ever torn down and rebuilt.
type Session struct {
	UserID string

	orchestrator Orchestrator
	supervisor   *supervisor.Supervisor

	audioState    AudioState
	currentAudio  audiosession.Session
}

var _ audiosession.Conversation = (*Session)(nil)

// New creates a Session for userID, subscribing to sup's provider health
// changes so voice degradation/restoration is announced automatically.
func New(userID string, sup *supervisor.Supervisor) *Session {
	s := &Session{
		UserID:     userID,
		supervisor: sup,
		audioState: AudioHealthy,
	}
	sup.AddListener(s.onProviderHealthChange)
	return s
}

// RegisterOrchestrator attaches the turn-routing logic to this
// conversation, so it can be handed the live audio session and asked to
// speak announcements.
func (s *Session) RegisterOrchestrator(o Orchestrator) {
	s.orchestrator = o
}

func (s *Session) onProviderHealthChange(name string, health supervisor.Health) {
	if _, ok := voicePathProviderNames[name]; !ok {
		return
	}

	slog.Info("health update for conversation", "provider", name, "user_id", s.UserID, "state", health.State)

	if health.State != supervisor.StateHealthy {
		if s.audioState != AudioReconnecting {
			slog.Warn("voice degraded, switching to reconnecting state", "provider", name)
			s.setAudioState(AudioReconnecting)
			s.announce("I am having trouble hearing you. Reconnecting voice services...")
		}
		return
	}

	if s.audioState == AudioReconnecting {
		slog.Info("voice service restored", "provider", name)
		s.setAudioState(AudioHealthy)
		s.announce("Voice connection restored.")
	}
}

func (s *Session) setAudioState(state AudioState) {
	s.audioState = state
}

// announce speaks a system message if an orchestrator with a live session
// is available. Failures are silent by design: the underlying TTS proxy
// already degrades to silence rather than erroring, so there is nothing
// further to recover from here.
func (s *Session) announce(message string) {
	if s.orchestrator == nil {
		return
	}
	go s.orchestrator.Speak(context.Background(), message)
}

// AttachAudioSession links a new live audio session to this conversation
// and hands it to the orchestrator. Implements
// [audiosession.Conversation].
func (s *Session) AttachAudioSession(session audiosession.Session) {
	slog.Info("attaching new audio session to conversation", "user_id", s.UserID)
	s.currentAudio = session
	if s.orchestrator != nil {
		s.orchestrator.SetSession(session)
	}
}

// DetachAudioSession marks the audio session as disconnected. The
// orchestrator and all conversational state remain alive; only its
// session reference goes stale. Implements [audiosession.Conversation].
func (s *Session) DetachAudioSession() {
	slog.Warn("audio session detached for conversation", "user_id", s.UserID)
	s.currentAudio = nil
	if s.orchestrator != nil {
		s.orchestrator.SetSession(nil)
	}
}

// IsAudioConnected reports whether a live audio session is currently
// attached.
func (s *Session) IsAudioConnected() bool {
	return s.currentAudio != nil
}

// AudioStateValue returns the conversation's current voice-connectivity state.
func (s *Session) AudioStateValue() AudioState {
	return s.audioState
}
