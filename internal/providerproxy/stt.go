// Package providerproxy wraps the STT and TTS provider interfaces with
// resilient proxies that never let a backend failure propagate as a crash:
// a failed session falls back to an inert stand-in that stays alive but
// produces nothing (silence for TTS, no transcripts for STT), while the
// failure is reported to a [supervisor.Supervisor] which drives background
// reconnection. Grounded line-for-line on the original system's
// core/providers/resilient_stt.go and resilient_tts.go. LLM resiliency is
// handled separately by the teacher's multi-backend
// [github.com/Harsha2sai/Maya-One/internal/resilience.LLMFallback], since
// the original system has no equivalent single-factory LLM proxy.
package providerproxy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/observe"
	"github.com/Harsha2sai/Maya-One/internal/supervisor"
	"github.com/Harsha2sai/Maya-One/pkg/provider/stt"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// sttProviderName is the key this proxy registers itself under with the
// supervisor, matching the original's "stt" literal.
const sttProviderName = "stt"

// emptySession is the Go analogue of EmptyTranscriptStream: a session
// handle that accepts and silently drops audio, and whose channels never
// emit, but which stays open until Close is called.
type emptySession struct {
	partials chan types.Transcript
	finals   chan types.Transcript
	closed   chan struct{}
}

func newEmptySession() *emptySession {
	return &emptySession{
		partials: make(chan types.Transcript),
		finals:   make(chan types.Transcript),
		closed:   make(chan struct{}),
	}
}

func (e *emptySession) SendAudio(chunk []byte) error { return nil }

func (e *emptySession) Partials() <-chan types.Transcript { return e.partials }
func (e *emptySession) Finals() <-chan types.Transcript   { return e.finals }

func (e *emptySession) SetKeywords(keywords []types.KeywordBoost) error { return nil }

func (e *emptySession) Close() error {
	select {
	case <-e.closed:
	default:
		close(e.closed)
		close(e.partials)
		close(e.finals)
	}
	return nil
}

// STTFactory recreates an stt.Provider from scratch, used by attempt-reconnect
// to rebuild the backend after a sustained outage (e.g. a fresh API client
// with new credentials or a restarted connection pool).
type STTFactory func(ctx context.Context) (stt.Provider, error)

// STTProxy wraps an stt.Provider so StartStream failures degrade to an
// [emptySession] instead of propagating, and reports health transitions to
// a [supervisor.Supervisor]. It implements [supervisor.Reconnectable] so
// the supervisor can trigger hot-swap reconnection in the background.
type STTProxy struct {
	mu       sync.RWMutex
	provider stt.Provider
	sup      *supervisor.Supervisor
	factory  STTFactory
	obs      *observe.Metrics
}

var _ stt.Provider = (*STTProxy)(nil)
var _ supervisor.Reconnectable = (*STTProxy)(nil)

// NewSTTProxy wraps provider and registers it with sup under the "stt"
// name. factory may be nil if reconnection is not supported for this
// backend. obs may be nil, in which case no OTel instruments are touched.
func NewSTTProxy(provider stt.Provider, sup *supervisor.Supervisor, factory STTFactory, obs *observe.Metrics) *STTProxy {
	p := &STTProxy{provider: provider, sup: sup, factory: factory, obs: obs}
	sup.RegisterProvider(sttProviderName, p)
	return p
}

// StartStream attempts to open a session on the wrapped provider. On
// failure it marks the provider unhealthy and returns a session handle
// that stays alive but emits nothing, so callers never see a crash.
func (p *STTProxy) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.RLock()
	provider := p.provider
	p.mu.RUnlock()

	start := time.Now()
	session, err := provider.StartStream(ctx, cfg)
	if p.obs != nil {
		p.obs.STTDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		slog.Error("stt stream failed", "provider", sttProviderName, "error", err)
		p.sup.MarkFailed(sttProviderName, err)
		if p.obs != nil {
			p.obs.RecordProviderRequest(ctx, sttProviderName, "stream", "error")
			p.obs.RecordProviderError(ctx, sttProviderName, "stream")
		}
		return newEmptySession(), nil
	}
	p.sup.MarkHealthy(sttProviderName)
	if p.obs != nil {
		p.obs.RecordProviderRequest(ctx, sttProviderName, "stream", "ok")
	}
	return session, nil
}

// ReplaceProvider hot-swaps the wrapped provider without disturbing any
// callers holding a reference to the proxy itself.
func (p *STTProxy) ReplaceProvider(newProvider stt.Provider) {
	slog.Info("hot-swapping stt provider")
	p.mu.Lock()
	p.provider = newProvider
	p.mu.Unlock()
}

// AttemptReconnect rebuilds the provider via the configured factory and
// hot-swaps it in on success. Implements [supervisor.Reconnectable].
func (p *STTProxy) AttemptReconnect(ctx context.Context) (bool, error) {
	if p.factory == nil {
		return false, fmt.Errorf("stt provider proxy has no reconnect factory configured")
	}
	newProvider, err := p.factory(ctx)
	if err != nil {
		return false, err
	}
	p.ReplaceProvider(newProvider)
	return true, nil
}
