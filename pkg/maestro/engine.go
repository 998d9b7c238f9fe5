package maestro

import (
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Waveform selects the oscillator shape for synthesized tones.
type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Triangle Waveform = "triangle"
	Sawtooth Waveform = "sawtooth"
)

const (
	// Accent frequencies for downbeats vs. other beats.
	DownbeatFreq = 800.0
	BeatFreq     = 600.0

	// Envelope decays exponentially from the start gain to this floor.
	gainFloor = 0.01
)

// ToneSynth produces audible pulses. AudioEngine is the portaudio
// implementation; tests substitute a silent fake.
type ToneSynth interface {
	// Open prepares the output device. Called lazily on first playback;
	// reopening after Close is allowed.
	Open() error
	PlayTone(freq float64, wave Waveform, gain, duration float64) error
	// PlayChord starts one voice per frequency; the mixer sums them.
	PlayChord(freqs []float64, wave Waveform, gain, duration float64) error
	// Close releases the output device. Safe on an unopened engine.
	Close() error
}

// voice is one running oscillator with its own gain envelope. The voice
// releases itself at the tone's natural end; nothing outlives its
// scheduled stop instant.
type voice struct {
	freq     float64
	wave     Waveform
	gain     float64
	duration float64
	phase    float64
	t        float64
}

func (v *voice) sample(dt float64) (float32, bool) {
	if v.t >= v.duration {
		return 0, false
	}
	env := v.gain * math.Pow(gainFloor/v.gain, v.t/v.duration)

	var s float64
	switch v.wave {
	case Square:
		if math.Mod(v.phase, 1.0) < 0.5 {
			s = 1
		} else {
			s = -1
		}
	case Triangle:
		s = 4*math.Abs(math.Mod(v.phase, 1.0)-0.5) - 1
	case Sawtooth:
		s = 2*math.Mod(v.phase, 1.0) - 1
	default:
		s = math.Sin(2 * math.Pi * v.phase)
	}

	v.phase += v.freq * dt
	v.t += dt
	return float32(env * s), true
}

// AudioEngine mixes simultaneous tone voices into one lazily opened
// portaudio output stream. Each widget instance owns its own engine.
type AudioEngine struct {
	cfg    *AudioConfig
	mu     sync.Mutex // lifecycle
	stream *portaudio.Stream
	opened bool

	voicesMu sync.Mutex // held by the render callback
	voices   []*voice
}

func NewAudioEngine(cfg *AudioConfig) *AudioEngine {
	if cfg == nil {
		cfg = NewAudioConfig()
	}
	return &AudioEngine{cfg: cfg}
}

func (e *AudioEngine) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opened {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return WrapError(err, ErrCodeAudioDevice)
	}

	stream, err := portaudio.OpenDefaultStream(0, e.cfg.Channels, float64(e.cfg.SampleRate), e.cfg.BufferSize, e.render)
	if err != nil {
		portaudio.Terminate()
		return WrapError(err, ErrCodeAudioDevice)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return WrapError(err, ErrCodeAudioDevice)
	}

	e.stream = stream
	e.opened = true
	return nil
}

func (e *AudioEngine) render(out []float32) {
	e.voicesMu.Lock()
	defer e.voicesMu.Unlock()

	dt := 1.0 / float64(e.cfg.SampleRate)
	frames := len(out) / e.cfg.Channels

	for i := range out {
		out[i] = 0
	}
	alive := e.voices[:0]
	for _, v := range e.voices {
		live := true
		for f := 0; f < frames && live; f++ {
			var s float32
			s, live = v.sample(dt)
			for ch := 0; ch < e.cfg.Channels; ch++ {
				out[f*e.cfg.Channels+ch] += s
			}
		}
		if live {
			alive = append(alive, v)
		}
	}
	e.voices = alive
}

func (e *AudioEngine) PlayTone(freq float64, wave Waveform, gain, duration float64) error {
	if err := e.Open(); err != nil {
		return err
	}
	if gain <= gainFloor {
		return NewAudioError("tone gain must exceed the envelope floor")
	}
	if duration <= 0 {
		return NewAudioError("tone duration must be positive")
	}

	e.voicesMu.Lock()
	e.voices = append(e.voices, &voice{freq: freq, wave: wave, gain: gain, duration: duration})
	e.voicesMu.Unlock()
	return nil
}

func (e *AudioEngine) PlayChord(freqs []float64, wave Waveform, gain, duration float64) error {
	for _, f := range freqs {
		if err := e.PlayTone(f, wave, gain, duration); err != nil {
			return err
		}
	}
	return nil
}

func (e *AudioEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.opened {
		return nil
	}
	e.opened = false

	e.voicesMu.Lock()
	e.voices = nil
	e.voicesMu.Unlock()

	var firstErr error
	if err := e.stream.Stop(); err != nil {
		firstErr = WrapError(err, ErrCodeAudioDevice)
	}
	if err := e.stream.Close(); err != nil && firstErr == nil {
		firstErr = WrapError(err, ErrCodeAudioDevice)
	}
	e.stream = nil
	portaudio.Terminate()
	return firstErr
}
