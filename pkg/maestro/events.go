package maestro

import (
	"encoding/json"
	"fmt"
)

// EventKind tags the discriminated union of inbound protocol events.
type EventKind string

const (
	EventSession            EventKind = "session"
	EventToken              EventKind = "token"
	EventThinking           EventKind = "thinking"
	EventToolCall           EventKind = "tool_call"
	EventResponse           EventKind = "response"
	EventError              EventKind = "error"
	EventRecordingCancelled EventKind = "recording_cancelled"
	EventUnknown            EventKind = "unknown"
)

// Event is one decoded inbound frame. SessionID returns the session
// identifier carried on the frame, or "" when absent.
type Event interface {
	Kind() EventKind
	SessionID() string
}

type eventBase struct {
	kind    EventKind
	session string
}

func (e eventBase) Kind() EventKind   { return e.kind }
func (e eventBase) SessionID() string { return e.session }

// SessionEvent only announces or refreshes the session identifier.
type SessionEvent struct {
	eventBase
}

// TokenEvent carries one incremental chunk of streamed reply text.
type TokenEvent struct {
	eventBase
	Content string
}

// ThinkingEvent carries a fragment of the assistant's reasoning side channel.
type ThinkingEvent struct {
	eventBase
	Content string
}

// ToolCallEvent directs the client to instantiate a practice widget.
type ToolCallEvent struct {
	eventBase
	ToolName  string
	ToolID    string
	Arguments map[string]interface{}
	Message   string
}

// ResponseEvent terminates the assistant turn, optionally with media.
type ResponseEvent struct {
	eventBase
	Message     string
	AudioFileID string
	NotationURL string
}

// ErrorEvent terminates the assistant turn with an error message.
type ErrorEvent struct {
	eventBase
	Message string
}

// RecordingCancelledEvent removes the addressed recording widget.
type RecordingCancelledEvent struct {
	eventBase
	RecordingID string
	Message     string
}

// UnknownEvent preserves unrecognized frame types instead of dropping them;
// frames with message text are still rendered.
type UnknownEvent struct {
	eventBase
	Type    string
	Message string
}

// serverFrame is the raw JSON shape of every inbound frame.
type serverFrame struct {
	Type        string                 `json:"type"`
	Message     string                 `json:"message,omitempty"`
	Content     string                 `json:"content,omitempty"`
	SessionID   string                 `json:"session_id,omitempty"`
	ToolName    string                 `json:"tool_name,omitempty"`
	ToolID      string                 `json:"tool_id,omitempty"`
	Arguments   map[string]interface{} `json:"arguments,omitempty"`
	AudioFileID string                 `json:"audio_file_id,omitempty"`
	NotationURL string                 `json:"notation_url,omitempty"`
	RecordingID string                 `json:"recording_id,omitempty"`
}

// DecodeEvent parses one inbound frame into its typed event. Malformed
// JSON and frames without a type are decode errors; unrecognized types
// and frames missing variant-required fields degrade to UnknownEvent.
func DecodeEvent(data []byte) (Event, error) {
	var f serverFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, NewDecodeError(fmt.Sprintf("malformed frame: %v", err))
	}
	if f.Type == "" {
		return nil, NewDecodeError("frame missing type field")
	}

	base := eventBase{kind: EventKind(f.Type), session: f.SessionID}

	switch EventKind(f.Type) {
	case EventSession:
		return &SessionEvent{eventBase: base}, nil
	case EventToken:
		return &TokenEvent{eventBase: base, Content: f.Content}, nil
	case EventThinking:
		return &ThinkingEvent{eventBase: base, Content: f.Content}, nil
	case EventToolCall:
		if f.ToolName == "" {
			// A tool call without a tool name cannot be dispatched;
			// fall back to rendering whatever text it carries.
			return &UnknownEvent{eventBase: eventBase{kind: EventUnknown, session: f.SessionID}, Type: f.Type, Message: f.Message}, nil
		}
		return &ToolCallEvent{
			eventBase: base,
			ToolName:  f.ToolName,
			ToolID:    f.ToolID,
			Arguments: f.Arguments,
			Message:   f.Message,
		}, nil
	case EventResponse:
		return &ResponseEvent{
			eventBase:   base,
			Message:     f.Message,
			AudioFileID: f.AudioFileID,
			NotationURL: f.NotationURL,
		}, nil
	case EventError:
		return &ErrorEvent{eventBase: base, Message: f.Message}, nil
	case EventRecordingCancelled:
		return &RecordingCancelledEvent{eventBase: base, RecordingID: f.RecordingID, Message: f.Message}, nil
	default:
		return &UnknownEvent{eventBase: eventBase{kind: EventUnknown, session: f.SessionID}, Type: f.Type, Message: f.Message}, nil
	}
}

// Outbound frames

// MessageFrame is one user chat turn.
type MessageFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream"`
}

func NewMessageFrame(text, sessionID string, stream bool) *MessageFrame {
	return &MessageFrame{Type: "message", Message: text, SessionID: sessionID, Stream: stream}
}

// AudioReadyFrame announces an uploaded recording's audio asset.
type AudioReadyFrame struct {
	Type        string `json:"type"`
	AudioFileID string `json:"audio_file_id"`
	RecordingID string `json:"recording_id"`
	SessionID   string `json:"session_id,omitempty"`
}

func NewAudioReadyFrame(audioFileID, recordingID, sessionID string) *AudioReadyFrame {
	return &AudioReadyFrame{Type: "audio_ready", AudioFileID: audioFileID, RecordingID: recordingID, SessionID: sessionID}
}

// CancelRecordingFrame aborts a pending recording on the server side.
type CancelRecordingFrame struct {
	Type        string `json:"type"`
	RecordingID string `json:"recording_id"`
}

func NewCancelRecordingFrame(recordingID string) *CancelRecordingFrame {
	return &CancelRecordingFrame{Type: "cancel_recording", RecordingID: recordingID}
}
