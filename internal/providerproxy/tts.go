package providerproxy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/observe"
	"github.com/Harsha2sai/Maya-One/internal/supervisor"
	"github.com/Harsha2sai/Maya-One/pkg/provider/tts"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// ttsProviderName is the key this proxy registers itself under with the
// supervisor, matching the original's "tts" literal.
const ttsProviderName = "tts"

// silentFrameSampleRate and silentFrameChannels describe the PCM format of
// the synthetic silence emitted when the wrapped provider is unavailable,
// matching the 48kHz mono convention used elsewhere in the audio pipeline.
const (
	silentFrameSampleRate = 48000
	silentFrameChannels   = 1
	silentFrameDuration   = 100 * time.Millisecond
)

// silenceChunk returns d of 16-bit PCM silence at the configured sample
// rate/channel count, mirroring SilentChunkedStream's single 100ms push.
func silenceChunk(d time.Duration) []byte {
	samples := int(float64(silentFrameSampleRate) * d.Seconds())
	return make([]byte, samples*silentFrameChannels*2)
}

// silentAudioChannel returns a channel that emits one chunk of silence and
// then closes, the Go analogue of SilentChunkedStream/SilentSynthesizeStream.
func silentAudioChannel() <-chan []byte {
	ch := make(chan []byte, 1)
	ch <- silenceChunk(silentFrameDuration)
	close(ch)
	return ch
}

// TTSFactory recreates a tts.Provider from scratch, used by attempt-reconnect.
type TTSFactory func(ctx context.Context) (tts.Provider, error)

// TTSProxy wraps a tts.Provider so synthesis failures degrade to silent
// audio instead of propagating, and reports health transitions to a
// [supervisor.Supervisor]. It implements [supervisor.Reconnectable].
type TTSProxy struct {
	mu       sync.RWMutex
	provider tts.Provider
	sup      *supervisor.Supervisor
	factory  TTSFactory
	obs      *observe.Metrics
}

var _ tts.Provider = (*TTSProxy)(nil)
var _ supervisor.Reconnectable = (*TTSProxy)(nil)

// NewTTSProxy wraps provider and registers it with sup under the "tts"
// name. factory may be nil if reconnection is not supported for this
// backend. obs may be nil, in which case no OTel instruments are touched.
func NewTTSProxy(provider tts.Provider, sup *supervisor.Supervisor, factory TTSFactory, obs *observe.Metrics) *TTSProxy {
	p := &TTSProxy{provider: provider, sup: sup, factory: factory, obs: obs}
	sup.RegisterProvider(ttsProviderName, p)
	return p
}

// SynthesizeStream attempts synthesis on the wrapped provider. On failure
// it marks the provider unhealthy and returns a channel emitting silence
// instead of an error, so the audio pipeline keeps flowing.
func (p *TTSProxy) SynthesizeStream(ctx context.Context, text <-chan string, voice types.VoiceProfile) (<-chan []byte, error) {
	p.mu.RLock()
	provider := p.provider
	p.mu.RUnlock()

	start := time.Now()
	audio, err := provider.SynthesizeStream(ctx, text, voice)
	if p.obs != nil {
		p.obs.TTSDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		slog.Error("tts synthesize failed", "provider", ttsProviderName, "error", err)
		p.sup.MarkFailed(ttsProviderName, err)
		if p.obs != nil {
			p.obs.RecordProviderRequest(ctx, ttsProviderName, "synthesize", "error")
			p.obs.RecordProviderError(ctx, ttsProviderName, "synthesize")
		}
		return silentAudioChannel(), nil
	}
	p.sup.MarkHealthy(ttsProviderName)
	if p.obs != nil {
		p.obs.RecordProviderRequest(ctx, ttsProviderName, "synthesize", "ok")
	}
	return audio, nil
}

// ListVoices delegates to the wrapped provider without health tracking;
// a catalogue fetch failing is not a conversation-disrupting event.
func (p *TTSProxy) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	p.mu.RLock()
	provider := p.provider
	p.mu.RUnlock()
	return provider.ListVoices(ctx)
}

// CloneVoice delegates to the wrapped provider.
func (p *TTSProxy) CloneVoice(ctx context.Context, samples [][]byte) (*types.VoiceProfile, error) {
	p.mu.RLock()
	provider := p.provider
	p.mu.RUnlock()
	return provider.CloneVoice(ctx, samples)
}

// ReplaceProvider hot-swaps the wrapped provider.
func (p *TTSProxy) ReplaceProvider(newProvider tts.Provider) {
	slog.Info("hot-swapping tts provider")
	p.mu.Lock()
	p.provider = newProvider
	p.mu.Unlock()
}

// AttemptReconnect rebuilds the provider via the configured factory and
// hot-swaps it in on success. Implements [supervisor.Reconnectable].
func (p *TTSProxy) AttemptReconnect(ctx context.Context) (bool, error) {
	if p.factory == nil {
		return false, fmt.Errorf("tts provider proxy has no reconnect factory configured")
	}
	newProvider, err := p.factory(ctx)
	if err != nil {
		return false, err
	}
	p.ReplaceProvider(newProvider)
	return true, nil
}
