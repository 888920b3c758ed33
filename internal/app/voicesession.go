package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Harsha2sai/Maya-One/internal/governance"
	"github.com/Harsha2sai/Maya-One/internal/guardrails"
	"github.com/Harsha2sai/Maya-One/internal/orchestrator"
	"github.com/Harsha2sai/Maya-One/internal/session"
	"github.com/Harsha2sai/Maya-One/internal/telemetry"
	"github.com/Harsha2sai/Maya-One/internal/transport"
	"github.com/Harsha2sai/Maya-One/pkg/audio"
	"github.com/Harsha2sai/Maya-One/pkg/memory"
	"github.com/Harsha2sai/Maya-One/pkg/provider/llm"
	"github.com/Harsha2sai/Maya-One/pkg/provider/stt"
	"github.com/Harsha2sai/Maya-One/pkg/provider/tts"
	"github.com/Harsha2sai/Maya-One/pkg/provider/vad"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// outputSampleRate is the PCM rate the mixer feeds back to the voice
// connection's output stream. Discord's own layer resamples/encodes to
// Opus on the way out; see pkg/audio/discord.
const outputSampleRate = 48000

// sttSampleRate is the rate STT providers expect; pumpParticipant
// downmixes/resamples each input frame (Discord delivers 48kHz Opus-decoded
// PCM) to mono at this rate before VAD and STT see it.
const sttSampleRate = 16000

// vadFrameMs is the frame size VAD sessions are configured for.
const vadFrameMs = 20

// voiceSessionConfig bundles everything a [VoiceSession] needs to drive one
// voice-channel connection. It exists so [VoiceSession] itself stays a thin
// per-connection object while the shared, long-lived collaborators
// (router, providers, guardrails) are constructed once by [App].
type voiceSessionConfig struct {
	reconnector   *session.Reconnector
	vadEngine     vad.Engine
	sttProvider   stt.Provider
	ttsProvider   tts.Provider
	llmProvider   llm.Provider
	mixerOutput   func(output func([]byte)) audio.Mixer
	router        *orchestrator.Router
	guard         *guardrails.Session
	monitor       *telemetry.Monitor
	memGuard      *session.MemoryGuard
	roleFor       func(userID string) governance.UserRole
	voice         types.VoiceProfile
	sessionID     string
	roomTransport transport.RoomTransport
}

// VoiceSession is the concrete [audiosession.Session] implementation: it
// owns one live voice-channel connection, fans out per-participant
// VAD→STT pipelines, routes finished utterances through the orchestrator,
// and speaks responses back through a priority mixer. Grounded on the
// teacher's per-NPC session-manager loop, collapsed to the single
// always-on assistant persona this system serves.
type VoiceSession struct {
	cfg  voiceSessionConfig
	conn audio.Connection
	mix  audio.Mixer

	cancelParticipants map[string]context.CancelFunc
}

func newVoiceSession(cfg voiceSessionConfig) *VoiceSession {
	return &VoiceSession{
		cfg:                cfg,
		cancelParticipants: make(map[string]context.CancelFunc),
	}
}

// Start connects to the voice channel and blocks until ctx is cancelled; it
// returns early only when the initial connect fails. The reconnector's
// Monitor runs in the background and a connection it cannot restore does
// not end Start. It satisfies [audiosession.Session].
func (vs *VoiceSession) Start(ctx context.Context) error {
	conn, err := vs.cfg.reconnector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("voice session: connect: %w", err)
	}
	vs.conn = conn
	defer conn.Disconnect()

	go vs.cfg.reconnector.Monitor(ctx)

	out := conn.OutputStream()
	vs.mix = vs.cfg.mixerOutput(func(chunk []byte) {
		select {
		case out <- audio.AudioFrame{Data: chunk, SampleRate: outputSampleRate, Channels: 1, Timestamp: 0}:
		case <-ctx.Done():
		default:
			slog.Warn("voice session: output stream full, dropping audio chunk")
		}
	})

	vs.cfg.router.SetSession(vs)
	vs.cfg.router.SetSpeaker(vs)

	conn.OnParticipantChange(func(ev audio.Event) {
		switch ev.Type {
		case audio.EventJoin:
			vs.attachParticipant(ctx, ev.UserID)
		case audio.EventLeave:
			vs.detachParticipant(ev.UserID)
		}
	})

	for userID := range conn.InputStreams() {
		vs.attachParticipant(ctx, userID)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (vs *VoiceSession) attachParticipant(ctx context.Context, userID string) {
	streams := vs.conn.InputStreams()
	frames, ok := streams[userID]
	if !ok {
		return
	}

	pctx, cancel := context.WithCancel(ctx)
	vs.cancelParticipants[userID] = cancel
	go vs.pumpParticipant(pctx, userID, frames)
}

func (vs *VoiceSession) detachParticipant(userID string) {
	if cancel, ok := vs.cancelParticipants[userID]; ok {
		cancel()
		delete(vs.cancelParticipants, userID)
	}
}

// pumpParticipant runs one participant's VAD→STT pipeline: raw frames are
// gated through VAD so that silence never reaches the STT session, and
// finals are handed off to handleUtterance.
func (vs *VoiceSession) pumpParticipant(ctx context.Context, userID string, frames <-chan audio.AudioFrame) {
	vadSession, err := vs.cfg.vadEngine.NewSession(vad.Config{
		SampleRate:       sttSampleRate,
		FrameSizeMs:      vadFrameMs,
		SpeechThreshold:  0.5,
		SilenceThreshold: 0.35,
	})
	if err != nil {
		slog.Error("voice session: vad session failed", "user", userID, "error", err)
		return
	}
	defer vadSession.Close()

	sttSession, err := vs.cfg.sttProvider.StartStream(ctx, stt.StreamConfig{
		SampleRate: sttSampleRate,
		Channels:   1,
	})
	if err != nil {
		slog.Error("voice session: stt stream failed", "user", userID, "error", err)
		return
	}
	defer sttSession.Close()

	go vs.drainFinals(ctx, userID, sttSession.Finals())

	conv := audio.FormatConverter{Target: audio.Format{SampleRate: sttSampleRate, Channels: 1}}
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			frame = conv.Convert(frame)
			ev, err := vadSession.ProcessFrame(frame.Data)
			if err != nil {
				continue
			}
			if ev.Type == vad.VADSpeechStart || ev.Type == vad.VADSpeechContinue {
				if err := sttSession.SendAudio(frame.Data); err != nil {
					slog.Warn("voice session: send audio failed", "user", userID, "error", err)
				}
			}
		}
	}
}

func (vs *VoiceSession) drainFinals(ctx context.Context, userID string, finals <-chan types.Transcript) {
	for {
		select {
		case <-ctx.Done():
			return
		case tr, ok := <-finals:
			if !ok {
				return
			}
			if tr.Text == "" {
				continue
			}
			vs.handleUtterance(ctx, userID, tr.Text)
		}
	}
}

// handleUtterance drives one complete turn: guardrail accounting, routing,
// optional LLM completion, memory persistence, and speech output. Every
// turn publishes its user_message/tool_execution/assistant_final chat
// events to the room transport (if configured) alongside speaking the
// reply, so a connected UI sees the same turn the voice channel hears.
func (vs *VoiceSession) handleUtterance(ctx context.Context, userID, text string) {
	if vs.cfg.guard != nil {
		if tripped, reason := vs.cfg.guard.Tripped(); tripped {
			slog.Warn("voice session: guardrail already tripped, dropping turn", "reason", reason)
			return
		}
		if err := vs.cfg.guard.RecordTurn(); err != nil {
			_ = vs.Speak(ctx, "I need to pause for a moment. Let's continue this another time.")
			return
		}
	}

	if vs.cfg.monitor != nil {
		vs.cfg.monitor.StartRequest()
	}

	turnID := uuid.NewString()
	vs.publishChatEvent(ctx, transport.NewUserMessageEvent(turnID, text))

	if vs.cfg.memGuard != nil {
		_ = vs.cfg.memGuard.WriteEntry(ctx, vs.cfg.sessionID, memory.TranscriptEntry{
			SpeakerID: userID,
			Text:      text,
			Timestamp: time.Now(),
		})
	}

	role := governance.RoleGuest
	if vs.cfg.roleFor != nil {
		role = vs.cfg.roleFor(userID)
	}

	result := vs.cfg.router.Route(ctx, text, role, userID)

	if result.Handled && result.ToolExecuted != "" && result.Err == "" {
		vs.publishChatEvent(ctx, transport.NewToolExecutionEvent(turnID, result.ToolExecuted, transport.ToolStarted))
		vs.publishChatEvent(ctx, transport.NewToolExecutionEvent(turnID, result.ToolExecuted, transport.ToolFinished))
	}

	var finalText string
	var turnErr error
	streamed := false

	switch {
	case result.NeedsLLM:
		completion, err := vs.streamReply(ctx, turnID, text, result.Response)
		if err != nil {
			turnErr = err
			finalText = "I'm having trouble thinking that through right now."
		} else {
			finalText = completion
			streamed = true
		}
	case result.Response != "":
		finalText = result.Response
		if result.Err != "" {
			turnErr = fmt.Errorf("%s", result.Err)
		}
	default:
		finalText = "I'm not sure how to help with that."
	}

	if vs.cfg.guard != nil {
		_ = vs.cfg.guard.RecordTurnResult(turnErr)
	}
	if vs.cfg.monitor != nil {
		vs.cfg.monitor.EndRequest("", "", "", 0)
	}

	if vs.cfg.memGuard != nil && finalText != "" {
		_ = vs.cfg.memGuard.WriteEntry(ctx, vs.cfg.sessionID, memory.TranscriptEntry{
			SpeakerID: "assistant",
			Text:      finalText,
			IsNPC:     true,
			Timestamp: time.Now(),
		})
	}

	// streamReply already spoke and published its own assistant_delta/
	// assistant_final events as the completion streamed in; only the
	// non-streamed branches (follow-ups, denials, fallbacks) need it here.
	if !streamed && finalText != "" {
		vs.publishChatEvent(ctx, transport.NewAssistantFinalEvent(turnID, finalText))
		_ = vs.Speak(ctx, finalText)
	}
}

// publishChatEvent sends ev to the room transport if one is configured,
// logging (not failing the turn) on a publish error.
func (vs *VoiceSession) publishChatEvent(ctx context.Context, ev transport.ChatEvent) {
	if vs.cfg.roomTransport == nil {
		return
	}
	if err := vs.cfg.roomTransport.PublishChatEvent(ctx, ev); err != nil {
		slog.Warn("voice session: publish chat event failed", "type", ev.Type, "error", err)
	}
}

// streamReply asks the LLM for a reply, optionally grounded in
// toolOrKnowledge context surfaced by the router (a tool result or
// knowledge-base excerpt), and speaks it as it streams in: each chunk is
// forwarded to the room transport as an assistant_delta event and fed to
// the TTS provider incrementally instead of buffering the whole
// completion before anything is heard or published.
func (vs *VoiceSession) streamReply(ctx context.Context, turnID, userText, toolOrKnowledge string) (string, error) {
	messages := make([]types.Message, 0, 2)
	if toolOrKnowledge != "" {
		messages = append(messages, types.Message{Role: "system", Content: toolOrKnowledge})
	}
	messages = append(messages, types.Message{Role: "user", Content: userText})

	chunks, err := vs.cfg.llmProvider.StreamCompletion(ctx, llm.CompletionRequest{Messages: messages})
	if err != nil {
		return "", err
	}

	var textCh chan string
	if vs.mix != nil {
		textCh = make(chan string, 16)
		audioCh, err := vs.cfg.ttsProvider.SynthesizeStream(ctx, textCh, vs.cfg.voice)
		if err != nil {
			return "", fmt.Errorf("voice session: synthesize: %w", err)
		}
		vs.mix.Enqueue(&audio.AudioSegment{
			NPCID:      "assistant",
			Audio:      audioCh,
			SampleRate: outputSampleRate,
			Channels:   1,
			Priority:   1,
		}, 1)
	}

	var out []byte
	seq := 0
	for chunk := range chunks {
		if chunk.Text == "" {
			continue
		}
		out = append(out, chunk.Text...)
		vs.publishChatEvent(ctx, transport.NewAssistantDeltaEvent(turnID, chunk.Text, seq))
		seq++
		if textCh != nil {
			select {
			case textCh <- chunk.Text:
			case <-ctx.Done():
				close(textCh)
				return string(out), ctx.Err()
			}
		}
	}
	if textCh != nil {
		close(textCh)
	}

	if len(out) == 0 {
		return "", fmt.Errorf("voice session: empty completion")
	}

	final := string(out)
	vs.publishChatEvent(ctx, transport.NewAssistantFinalEvent(turnID, final))
	return final, nil
}

// Speak implements [orchestrator.Speaker]: it synthesizes text and enqueues
// the resulting audio onto the priority mixer at normal conversational
// priority.
func (vs *VoiceSession) Speak(ctx context.Context, text string) error {
	if text == "" || vs.mix == nil {
		return nil
	}

	textCh := make(chan string, 1)
	textCh <- text
	close(textCh)

	audioCh, err := vs.cfg.ttsProvider.SynthesizeStream(ctx, textCh, vs.cfg.voice)
	if err != nil {
		return fmt.Errorf("voice session: synthesize: %w", err)
	}

	segment := &audio.AudioSegment{
		NPCID:      "assistant",
		Audio:      audioCh,
		SampleRate: outputSampleRate,
		Channels:   1,
		Priority:   1,
	}
	vs.mix.Enqueue(segment, segment.Priority)
	if vs.cfg.monitor != nil {
		vs.cfg.monitor.RecordAssistantUtterance(vs.cfg.sessionID)
	}
	return nil
}
