// Package discordroom implements [transport.RoomTransport] over a Discord
// guild: chat_events and system.events are published as JSON code blocks in
// a designated text channel, and inbound messages on that channel become
// DataMessage events on the "chat" topic. Discord voice channels stand in
// for "the media room" (see [github.com/Harsha2sai/Maya-One/pkg/audio/discord]
// for the paired voice transport); Discord has no native transcription
// concept of its own, so OnTranscription callbacks are only ever invoked by
// an explicit [Transport.EmitTranscription] call from whatever component
// produces finals (the audio session's STT proxy). Grounded on the teacher's
// internal/discord.Bot construction style (discordgo.Session lifecycle,
// session.AddHandler registration).
package discordroom

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Harsha2sai/Maya-One/internal/transport"
)

// Config holds the Discord-specific configuration for a Transport.
type Config struct {
	// Token is the Discord bot token (e.g. "Bot MTIz...").
	Token string

	// GuildID is the target guild.
	GuildID string

	// ChatChannelID is the text channel used to carry chat_events and
	// system.events JSON payloads, and to receive inbound chat messages.
	ChatChannelID string
}

// Transport implements [transport.RoomTransport] over a Discord text
// channel. Safe for concurrent use.
type Transport struct {
	session *discordgo.Session
	cfg     Config

	mu              sync.RWMutex
	onTranscription func(transport.TranscriptionEvent)
	onDataMessage   func(transport.DataMessage)
}

var _ transport.RoomTransport = (*Transport)(nil)

// New creates a Transport, connects to Discord, and starts listening for
// inbound messages on cfg.ChatChannelID.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discordroom: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discordroom: open session: %w", err)
	}

	t := &Transport{session: session, cfg: cfg}
	session.AddHandler(t.handleMessageCreate)
	return t, nil
}

// NewWithSession wraps an already-open session (e.g. one shared with the
// voice-channel bot layer) instead of opening a new gateway connection.
func NewWithSession(session *discordgo.Session, cfg Config) *Transport {
	t := &Transport{session: session, cfg: cfg}
	session.AddHandler(t.handleMessageCreate)
	return t
}

func (t *Transport) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author != nil && m.Author.ID == s.State.User.ID {
		return
	}
	if m.ChannelID != t.cfg.ChatChannelID {
		return
	}

	t.mu.RLock()
	cb := t.onDataMessage
	t.mu.RUnlock()
	if cb == nil {
		return
	}
	cb(transport.DataMessage{
		Topic:    "chat",
		Payload:  []byte(m.Content),
		SenderID: m.Author.ID,
	})
}

// PublishChatEvent sends ev as a JSON code block to the chat channel.
func (t *Transport) PublishChatEvent(ctx context.Context, ev transport.ChatEvent) error {
	return t.publishJSON(ctx, ev)
}

// PublishSystemEvent sends ev as a JSON code block to the chat channel.
func (t *Transport) PublishSystemEvent(ctx context.Context, ev transport.SystemEvent) error {
	return t.publishJSON(ctx, ev)
}

func (t *Transport) publishJSON(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("discordroom: marshal event: %w", err)
	}
	_, err = t.session.ChannelMessageSend(t.cfg.ChatChannelID, "```json\n"+string(body)+"\n```")
	if err != nil {
		return fmt.Errorf("discordroom: send message: %w", err)
	}
	return nil
}

// OnTranscription registers cb. Discord supplies no transcription events of
// its own; callers that decode STT finals elsewhere should invoke
// [Transport.EmitTranscription] to surface them through this same hook.
func (t *Transport) OnTranscription(cb func(transport.TranscriptionEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTranscription = cb
}

// EmitTranscription delivers ev to the currently registered OnTranscription
// callback, if any.
func (t *Transport) EmitTranscription(ev transport.TranscriptionEvent) {
	t.mu.RLock()
	cb := t.onTranscription
	t.mu.RUnlock()
	if cb != nil {
		cb(ev)
	}
}

// OnDataMessage registers cb to receive inbound chat-channel messages.
func (t *Transport) OnDataMessage(cb func(transport.DataMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDataMessage = cb
}

// Close closes the underlying Discord session.
func (t *Transport) Close() error {
	if err := t.session.Close(); err != nil {
		slog.Error("discordroom: close session", "error", err)
		return err
	}
	return nil
}
