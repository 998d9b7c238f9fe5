package maestro

import "sync"

// TunerConfig is the immutable creation configuration. When Note is set,
// the reference frequency is derived from it; otherwise
// ReferenceFrequency is used directly (default A4 = 440 Hz).
type TunerConfig struct {
	ReferenceFrequency float64
	Note               string
	Octave             int
}

// Tuner displays the cents deviation of live pitch readings against a
// reference frequency. Out-of-range readings never reach it, so the last
// displayed value survives noisy frames.
type Tuner struct {
	id        string
	reference float64
	detector  *PitchDetector

	mu        sync.Mutex
	state     WidgetState
	lastFreq  float64
	lastCents float64
	onReading func(freq, cents float64)
}

func NewTuner(id string, cfg TunerConfig, audioCfg *AudioConfig) *Tuner {
	reference := cfg.ReferenceFrequency
	if cfg.Note != "" {
		octave := cfg.Octave
		if octave == 0 {
			octave = 4
		}
		if f, err := NoteFrequency(cfg.Note, octave); err == nil {
			reference = f
		}
	}
	if reference <= 0 {
		reference = 440
	}
	return &Tuner{
		id:        id,
		reference: reference,
		detector:  NewPitchDetector(audioCfg),
		state:     Stopped,
	}
}

func (t *Tuner) ID() string       { return t.id }
func (t *Tuner) Kind() WidgetKind { return KindTuner }

func (t *Tuner) Reference() float64 { return t.reference }

func (t *Tuner) OnReading(fn func(freq, cents float64)) {
	t.mu.Lock()
	t.onReading = fn
	t.mu.Unlock()
}

func (t *Tuner) State() WidgetState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reading returns the last accepted frequency and its cents offset.
func (t *Tuner) Reading() (freq, cents float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFreq, t.lastCents
}

// Play opens the capture device and begins live analysis. A microphone
// failure leaves the tuner stopped and is surfaced to the caller.
func (t *Tuner) Play() error {
	t.mu.Lock()
	if t.state == Playing {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if err := t.detector.Start(t.apply); err != nil {
		return err
	}

	t.mu.Lock()
	t.state = Playing
	t.mu.Unlock()
	return nil
}

// apply records one accepted reading. The detector only forwards
// in-range estimates.
func (t *Tuner) apply(freq float64) {
	t.mu.Lock()
	t.lastFreq = freq
	t.lastCents = CentsOffset(freq, t.reference)
	cents := t.lastCents
	onReading := t.onReading
	t.mu.Unlock()

	if onReading != nil {
		onReading(freq, cents)
	}
}

// Stop releases the capture device. Stopping twice is safe.
func (t *Tuner) Stop() {
	t.mu.Lock()
	if t.state == Stopped {
		t.mu.Unlock()
		return
	}
	t.state = Stopped
	t.mu.Unlock()

	if err := t.detector.Stop(); err != nil {
		GetGlobalLogger().WithComponent("tuner").WithError(err).Warn("capture release failed")
	}
}
