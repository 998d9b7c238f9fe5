package maestro

// ConnectionState enum
type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
	Reconnecting ConnectionState = "reconnecting"
	ErrorState   ConnectionState = "error"
)

// WidgetState enum for the periodic practice widgets
type WidgetState string

const (
	Stopped WidgetState = "stopped"
	Playing WidgetState = "playing"
	Paused  WidgetState = "paused"
)

// RecordingState enum
type RecordingState string

const (
	IdleRecording      RecordingState = "idle"
	Recording          RecordingState = "recording"
	UploadingRecording RecordingState = "uploading"
	CompletedRecording RecordingState = "completed"
	ErrorRecording     RecordingState = "error"
)

// WidgetKind identifies the concrete widget behind a registry entry.
type WidgetKind string

const (
	KindMetronome        WidgetKind = "metronome"
	KindTempoTrainer     WidgetKind = "tempo_trainer"
	KindChordProgression WidgetKind = "chord_progression"
	KindTuner            WidgetKind = "tuner"
	KindEarTrainer       WidgetKind = "ear_trainer"
	KindPracticeTimer    WidgetKind = "practice_timer"
	KindRecorder         WidgetKind = "recorder"
)

// Widget is the minimal contract every live practice widget satisfies.
// Stop must be idempotent: stopping an already-stopped widget is a no-op.
type Widget interface {
	ID() string
	Kind() WidgetKind
	Stop()
}

// ReplyMedia carries trailing media references attached to a terminal
// response or error event.
type ReplyMedia struct {
	AudioFileID string
	NotationURL string
}

// Handler types
type EventHandler func(Event)
type ConnectionHandler func(ConnectionState)
type ErrorHandler func(*ClientError)
