package maestro

import "sync"

// MetronomeConfig is the immutable creation configuration.
type MetronomeConfig struct {
	BPM           float64
	TimeSignature string
}

// Metronome clicks at a fixed tempo, accenting the downbeat of each bar.
type Metronome struct {
	id          string
	cfg         MetronomeConfig
	beatsPerBar int

	synth     ToneSynth
	ownsSynth bool

	mu       sync.Mutex
	state    WidgetState
	schedule *Schedule
	beat     int
	onBeat   func(beat int)
}

// NewMetronome creates a stopped metronome. A nil synth gets a dedicated
// audio engine, opened lazily on first playback; the tempo trainer passes
// its own synth so the embedded metronome shares the parent's output.
func NewMetronome(id string, cfg MetronomeConfig, synth ToneSynth) *Metronome {
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}
	beats, _ := ParseTimeSignature(cfg.TimeSignature)
	owns := synth == nil
	if owns {
		synth = NewAudioEngine(nil)
	}
	return &Metronome{
		id:          id,
		cfg:         cfg,
		beatsPerBar: beats,
		synth:       synth,
		ownsSynth:   owns,
		state:       Stopped,
	}
}

func (m *Metronome) ID() string       { return m.id }
func (m *Metronome) Kind() WidgetKind { return KindMetronome }

// OnBeat installs a per-beat view callback.
func (m *Metronome) OnBeat(fn func(beat int)) {
	m.mu.Lock()
	m.onBeat = fn
	m.mu.Unlock()
}

func (m *Metronome) State() WidgetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Metronome) BPM() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.BPM
}

// Play starts (or resumes) the click schedule. No-op if already playing.
func (m *Metronome) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Playing {
		return nil
	}
	if err := m.synth.Open(); err != nil {
		return err
	}
	m.arm()
	m.state = Playing
	return nil
}

// arm starts the beat schedule at the configured tempo. Caller holds mu.
func (m *Metronome) arm() {
	m.schedule = StartSchedule(ConstantRate(BeatPeriod(m.cfg.BPM)), m.tick)
}

func (m *Metronome) tick(int) {
	m.mu.Lock()
	if m.state != Playing {
		m.mu.Unlock()
		return
	}
	beat := m.beat
	m.beat++
	onBeat := m.onBeat
	m.mu.Unlock()

	freq := BeatFreq
	if beat%m.beatsPerBar == 0 {
		freq = DownbeatFreq
	}
	if err := m.synth.PlayTone(freq, Sine, 0.5, 0.1); err != nil {
		GetGlobalLogger().WithComponent("metronome").WithError(err).Warn("click playback failed")
	}
	if onBeat != nil {
		onBeat(beat)
	}
}

// Pause cancels the schedule but keeps the beat position for resume.
func (m *Metronome) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Playing {
		return
	}
	m.schedule.Cancel()
	m.schedule = nil
	m.state = Paused
}

// Stop cancels the schedule, resets the beat position and releases the
// owned audio engine. Stopping twice is safe.
func (m *Metronome) Stop() {
	m.mu.Lock()
	if m.state == Stopped {
		m.mu.Unlock()
		return
	}
	if m.schedule != nil {
		m.schedule.Cancel()
		m.schedule = nil
	}
	m.beat = 0
	m.state = Stopped
	owns := m.ownsSynth
	m.mu.Unlock()

	if owns {
		if err := m.synth.Close(); err != nil {
			GetGlobalLogger().WithComponent("metronome").WithError(err).Warn("audio release failed")
		}
	}
}

// SetBPM retunes a playing metronome by tearing down and rebuilding the
// beat schedule; the beat position is preserved.
func (m *Metronome) SetBPM(bpm float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bpm <= 0 {
		return
	}
	m.cfg.BPM = bpm
	if m.state == Playing {
		m.schedule.Cancel()
		m.arm()
	}
}
