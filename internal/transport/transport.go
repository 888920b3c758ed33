// Package transport defines the media-room boundary: the typed events this
// system publishes toward a conversation's room (chat_events, system.events)
// and the inbound events it consumes from one (finalized transcriptions,
// data-channel messages on the "chat"/"lk.chat" and "system.commands"
// topics). Grounded on the original system's room-event contract (the
// provider-agnostic LiveKit data-channel protocol implied by
// core/orchestrator.py's event handlers) and shaped in the teacher's own
// style of narrow platform-entry interfaces (pkg/audio.Platform/Connection).
// internal/transport/discordroom is the one concrete adapter, standing
// Discord voice channels in for "the media room."
package transport

import (
	"context"
	"encoding/json"
	"time"
)

// ChatEventType names the four chat_events shapes this system publishes.
type ChatEventType string

const (
	ChatEventUserMessage    ChatEventType = "user_message"
	ChatEventAssistantDelta ChatEventType = "assistant_delta"
	ChatEventAssistantFinal ChatEventType = "assistant_final"
	ChatEventToolExecution  ChatEventType = "tool_execution"
)

// ToolExecutionStatus is the status field of a tool_execution chat event.
type ToolExecutionStatus string

const (
	ToolStarted  ToolExecutionStatus = "started"
	ToolFinished ToolExecutionStatus = "finished"
)

// ChatEvent is the single wire shape backing all four chat_events payloads;
// fields irrelevant to a given Type are omitted from the JSON encoding.
type ChatEvent struct {
	Type      ChatEventType `json:"type"`
	TurnID    string        `json:"turn_id"`
	Content   string        `json:"content,omitempty"`
	Seq       int           `json:"seq,omitempty"`
	Tool      string        `json:"tool,omitempty"`
	Status    string        `json:"status,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewUserMessageEvent builds a user_message chat event.
func NewUserMessageEvent(turnID, content string) ChatEvent {
	return ChatEvent{Type: ChatEventUserMessage, TurnID: turnID, Content: content, Timestamp: time.Now()}
}

// NewAssistantDeltaEvent builds an assistant_delta chat event for the seq'th
// chunk of turnID's response.
func NewAssistantDeltaEvent(turnID, content string, seq int) ChatEvent {
	return ChatEvent{Type: ChatEventAssistantDelta, TurnID: turnID, Content: content, Seq: seq, Timestamp: time.Now()}
}

// NewAssistantFinalEvent builds an assistant_final chat event.
func NewAssistantFinalEvent(turnID, content string) ChatEvent {
	return ChatEvent{Type: ChatEventAssistantFinal, TurnID: turnID, Content: content, Timestamp: time.Now()}
}

// NewToolExecutionEvent builds a tool_execution chat event.
func NewToolExecutionEvent(turnID, tool string, status ToolExecutionStatus) ChatEvent {
	return ChatEvent{Type: ChatEventToolExecution, TurnID: turnID, Tool: tool, Status: string(status), Timestamp: time.Now()}
}

// SystemEvent is the "EVENT" envelope published on the system.events topic.
type SystemEvent struct {
	Type     string          `json:"type"`
	Source   string          `json:"source"`
	Category string          `json:"category"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// NewSystemEvent builds a SystemEvent with the fixed "agent" source this
// system always publishes as.
func NewSystemEvent(category string, payload any) (SystemEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return SystemEvent{}, err
	}
	return SystemEvent{Type: "EVENT", Source: "agent", Category: category, Payload: raw}, nil
}

// SystemCommand is the inbound "COMMAND" envelope received on the
// system.commands topic.
type SystemCommand struct {
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Recognised system command actions.
const (
	ActionPing         = "ping"
	ActionUpdateConfig = "update_config"
	ActionRunTask      = "run_task"
)

// TranscriptionEvent is an inbound finalized (or interim) transcription from
// the room. Only finals from the local participant open a new turn; callers
// filter on IsFinal and ParticipantID themselves.
type TranscriptionEvent struct {
	ParticipantID string
	IsFinal       bool
	Text          string
}

// DataMessage is an inbound payload received on a named data topic (e.g.
// "chat", "lk.chat", "system.commands").
type DataMessage struct {
	Topic    string
	Payload  []byte
	SenderID string
}

// RoomTransport is the narrow boundary between the turn-routing core and
// whatever platform hosts the conversation's "room": it accepts published
// chat/system events and delivers inbound transcription and data-channel
// events via registered callbacks. Implementations must be safe for
// concurrent use; callbacks are invoked on an internal goroutine and must
// not block.
type RoomTransport interface {
	// PublishChatEvent sends ev to every participant in the room.
	PublishChatEvent(ctx context.Context, ev ChatEvent) error

	// PublishSystemEvent sends ev on the system.events topic.
	PublishSystemEvent(ctx context.Context, ev SystemEvent) error

	// OnTranscription registers cb to receive every transcription event the
	// room reports. Only one callback may be registered at a time;
	// subsequent calls replace the previous registration.
	OnTranscription(cb func(TranscriptionEvent))

	// OnDataMessage registers cb to receive every inbound data-channel
	// message regardless of topic; cb is expected to filter by
	// DataMessage.Topic itself.
	OnDataMessage(cb func(DataMessage))

	// Close tears down the transport's connection to the room.
	Close() error
}

// CommandDispatcher decodes inbound system.commands envelopes and publishes
// the matching acknowledgement or error event, per the fixed action set
// (ping, update_config, run_task). Grounded on the original command-envelope
// handling implied by core/orchestrator.py's data-message routing.
type CommandDispatcher struct {
	transport    RoomTransport
	updateConfig func(payload json.RawMessage) error
	runTask      func(payload json.RawMessage) error
}

// NewCommandDispatcher creates a CommandDispatcher publishing acknowledgements
// through transport. updateConfig and runTask may be nil, in which case the
// corresponding action always succeeds trivially.
func NewCommandDispatcher(transport RoomTransport, updateConfig, runTask func(payload json.RawMessage) error) *CommandDispatcher {
	return &CommandDispatcher{transport: transport, updateConfig: updateConfig, runTask: runTask}
}

// Dispatch decodes raw as a SystemCommand and publishes the matching
// acknowledgement or ERROR event for unrecognised actions.
func (d *CommandDispatcher) Dispatch(ctx context.Context, raw []byte) error {
	var cmd SystemCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return d.publishError(ctx, "invalid command envelope: "+err.Error())
	}

	switch cmd.Action {
	case ActionPing:
		ev, err := transportEvent("PONG", cmd.Payload)
		if err != nil {
			return err
		}
		return d.transport.PublishSystemEvent(ctx, ev)

	case ActionUpdateConfig:
		if d.updateConfig != nil {
			if err := d.updateConfig(cmd.Payload); err != nil {
				return d.publishError(ctx, "update_config failed: "+err.Error())
			}
		}
		ev, err := transportEvent("CONFIG_UPDATED", cmd.Payload)
		if err != nil {
			return err
		}
		return d.transport.PublishSystemEvent(ctx, ev)

	case ActionRunTask:
		if d.runTask != nil {
			if err := d.runTask(cmd.Payload); err != nil {
				return d.publishError(ctx, "run_task failed: "+err.Error())
			}
		}
		ev, err := transportEvent("TASK_STARTED", cmd.Payload)
		if err != nil {
			return err
		}
		return d.transport.PublishSystemEvent(ctx, ev)

	default:
		return d.publishError(ctx, "unrecognised action: "+cmd.Action)
	}
}

func (d *CommandDispatcher) publishError(ctx context.Context, message string) error {
	ev, err := NewSystemEvent("ERROR", map[string]string{"message": message})
	if err != nil {
		return err
	}
	return d.transport.PublishSystemEvent(ctx, ev)
}

// transportEvent wraps an already-decoded payload into a SystemEvent of the
// given category without double-encoding it.
func transportEvent(category string, payload json.RawMessage) (SystemEvent, error) {
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	return SystemEvent{Type: "EVENT", Source: "agent", Category: category, Payload: payload}, nil
}
