package maestro

import (
	"sync"
	"time"
)

// ChordProgressionConfig is the immutable creation configuration.
type ChordProgressionConfig struct {
	Chords        []string
	Tempo         float64
	TimeSignature string
	ChordsPerBar  int
	Instrument    string // "none" keeps the scheduling contract but skips synthesis
}

// ChordDuration returns the seconds each chord sounds for:
// (beats_per_bar / beat_unit) * (60 / tempo) / chords_per_bar.
func (c ChordProgressionConfig) ChordDuration() float64 {
	beats, unit := ParseTimeSignature(c.TimeSignature)
	bar := float64(beats) / float64(unit) * (60.0 / c.Tempo)
	return bar / float64(c.ChordsPerBar)
}

// ChordProgression cycles through a chord list at the configured tempo,
// sounding each chord as a summed set of tone voices.
type ChordProgression struct {
	id  string
	cfg ChordProgressionConfig

	synth ToneSynth

	mu       sync.Mutex
	state    WidgetState
	schedule *Schedule
	index    int
	onChord  func(index int, symbol string)
}

func NewChordProgression(id string, cfg ChordProgressionConfig, synth ToneSynth) *ChordProgression {
	if cfg.Tempo <= 0 {
		cfg.Tempo = 120
	}
	if cfg.ChordsPerBar < 1 {
		cfg.ChordsPerBar = 1
	}
	if cfg.Instrument == "" {
		cfg.Instrument = "piano"
	}
	if synth == nil {
		synth = NewAudioEngine(nil)
	}
	return &ChordProgression{id: id, cfg: cfg, synth: synth, state: Stopped}
}

func (p *ChordProgression) ID() string       { return p.id }
func (p *ChordProgression) Kind() WidgetKind { return KindChordProgression }

func (p *ChordProgression) OnChord(fn func(index int, symbol string)) {
	p.mu.Lock()
	p.onChord = fn
	p.mu.Unlock()
}

func (p *ChordProgression) State() WidgetState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Index reports the position of the chord currently sounding.
func (p *ChordProgression) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Play starts (or resumes) cycling. No-op if already playing.
func (p *ChordProgression) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Playing {
		return nil
	}
	if len(p.cfg.Chords) == 0 {
		return NewWidgetError("chord progression has no chords")
	}
	if p.audible() {
		if err := p.synth.Open(); err != nil {
			return err
		}
	}
	period := time.Duration(p.cfg.ChordDuration() * float64(time.Second))
	p.schedule = StartSchedule(ConstantRate(period), p.tick)
	p.state = Playing

	// Sound the current chord immediately rather than a full period late.
	go p.sound(p.index)
	return nil
}

func (p *ChordProgression) audible() bool {
	return p.cfg.Instrument != "none"
}

func (p *ChordProgression) tick(int) {
	p.mu.Lock()
	if p.state != Playing {
		p.mu.Unlock()
		return
	}
	p.index = (p.index + 1) % len(p.cfg.Chords)
	next := p.index
	p.mu.Unlock()

	p.sound(next)
}

func (p *ChordProgression) sound(index int) {
	symbol := p.cfg.Chords[index]

	p.mu.Lock()
	onChord := p.onChord
	p.mu.Unlock()
	if onChord != nil {
		onChord(index, symbol)
	}

	if !p.audible() {
		return
	}
	freqs, err := ChordFrequencies(symbol, 4)
	if err != nil {
		GetGlobalLogger().WithComponent("chord_progression").WithError(err).Warnf("skipping chord %q", symbol)
		return
	}
	duration := p.cfg.ChordDuration() * 0.9
	if err := p.synth.PlayChord(freqs, instrumentWaveform(p.cfg.Instrument), 0.3, duration); err != nil {
		GetGlobalLogger().WithComponent("chord_progression").WithError(err).Warn("chord playback failed")
	}
}

func instrumentWaveform(instrument string) Waveform {
	switch instrument {
	case "organ":
		return Square
	case "guitar":
		return Sawtooth
	case "piano":
		return Triangle
	default:
		return Sine
	}
}

// Pause cancels the schedule but retains the chord position.
func (p *ChordProgression) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing {
		return
	}
	p.schedule.Cancel()
	p.schedule = nil
	p.state = Paused
}

// Stop cancels the schedule, rewinds to the first chord and releases the
// audio engine. Stopping twice is safe.
func (p *ChordProgression) Stop() {
	p.mu.Lock()
	if p.state == Stopped {
		p.mu.Unlock()
		return
	}
	if p.schedule != nil {
		p.schedule.Cancel()
		p.schedule = nil
	}
	p.index = 0
	p.state = Stopped
	p.mu.Unlock()

	if err := p.synth.Close(); err != nil {
		GetGlobalLogger().WithComponent("chord_progression").WithError(err).Warn("audio release failed")
	}
}
