package maestro

import (
	"github.com/google/uuid"
)

// Tool names the server may issue in tool_call events.
const (
	ToolRequestAudioRecording  = "request_audio_recording"
	ToolCreateMetronome        = "create_metronome"
	ToolCreateTuner            = "create_tuner"
	ToolCreateChordProgression = "create_chord_progression"
	ToolCreateTempoTrainer     = "create_tempo_trainer"
	ToolCreateEarTrainer       = "create_ear_trainer"
	ToolCreatePracticeTimer    = "create_practice_timer"
)

// Dispatcher turns tool_call events into live widgets. Widgets that
// emit protocol frames themselves (the recorder) receive the bound
// session so their sends ride the same connection.
type Dispatcher struct {
	registry *Registry
	audioCfg *AudioConfig
	uploader Uploader
	session  *SessionContext
	logger   *Logger
}

func NewDispatcher(registry *Registry, audioCfg *AudioConfig, uploader Uploader) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}
	if audioCfg == nil {
		audioCfg = NewAudioConfig()
	}
	return &Dispatcher{
		registry: registry,
		audioCfg: audioCfg,
		uploader: uploader,
		logger:   GetGlobalLogger().WithComponent("dispatch"),
	}
}

// Bind attaches the session used by widgets that send frames.
func (d *Dispatcher) Bind(session *SessionContext) {
	d.session = session
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch creates the widget a tool_call asks for. Unrecognized tools
// are logged and ignored so older clients survive newer servers.
func (d *Dispatcher) Dispatch(ev *ToolCallEvent) Widget {
	id := ev.ToolID
	if id == "" {
		id = uuid.NewString()
	}
	args := ev.Arguments

	var widget Widget
	switch ev.ToolName {
	case ToolRequestAudioRecording:
		widget = NewRecorder(id, RecorderConfig{
			Prompt:      stringArg(args, "prompt", "Please record audio"),
			MaxDuration: floatArg(args, "max_duration", 60.0),
		}, d.audioCfg, d.session, d.uploader)

	case ToolCreateMetronome:
		widget = NewMetronome(id, MetronomeConfig{
			BPM:           floatArg(args, "bpm", 120),
			TimeSignature: stringArg(args, "time_signature", "4/4"),
		}, nil)

	case ToolCreateTuner:
		widget = NewTuner(id, TunerConfig{
			ReferenceFrequency: floatArg(args, "reference_frequency", 440),
			Note:               stringArg(args, "note", ""),
			Octave:             intArg(args, "octave", 0),
		}, d.audioCfg)

	case ToolCreateChordProgression:
		widget = NewChordProgression(id, ChordProgressionConfig{
			Chords:        stringListArg(args, "chords"),
			Tempo:         floatArg(args, "tempo", 120),
			TimeSignature: stringArg(args, "time_signature", "4/4"),
			ChordsPerBar:  intArg(args, "chords_per_bar", 1),
			Instrument:    stringArg(args, "instrument", "piano"),
		}, nil)

	case ToolCreateTempoTrainer:
		widget = NewTempoTrainer(id, TempoTrainerConfig{
			StartBPM:        floatArg(args, "start_bpm", 60),
			EndBPM:          floatArg(args, "end_bpm", 120),
			DurationMinutes: floatArg(args, "duration_minutes", 5),
			TimeSignature:   stringArg(args, "time_signature", "4/4"),
			RampType:        stringArg(args, "ramp_type", "linear"),
		}, nil)

	case ToolCreateEarTrainer:
		widget = NewEarTrainer(id, EarTrainerConfig{
			Mode:       stringArg(args, "mode", "intervals"),
			Difficulty: stringArg(args, "difficulty", "medium"),
			RootNote:   stringArg(args, "root_note", "C"),
		}, nil)

	case ToolCreatePracticeTimer:
		widget = NewPracticeTimer(id, PracticeTimerConfig{
			DurationMinutes:      floatArg(args, "duration_minutes", 0),
			Goal:                 stringArg(args, "goal", ""),
			BreakIntervalMinutes: floatArg(args, "break_interval_minutes", 0),
		})

	default:
		d.logger.Warnf("ignoring unknown tool %q", ev.ToolName)
		return nil
	}

	d.registry.Create(widget)
	d.logger.Infof("created %s widget %s", widget.Kind(), id)
	return widget
}

// CancelRecording stops and removes the addressed recording widget.
func (d *Dispatcher) CancelRecording(recordingID string) bool {
	return d.registry.Remove(recordingID)
}

// StopAll tears down every live widget; used on page-level shutdown.
func (d *Dispatcher) StopAll() {
	d.registry.StopAll()
}

// Tool arguments arrive as an open JSON map, so numbers are float64 and
// anything may be missing. These coercions fall back to the default on
// absent or mistyped values.

func floatArg(args map[string]interface{}, key string, def float64) float64 {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

func stringArg(args map[string]interface{}, key string, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func stringListArg(args map[string]interface{}, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
