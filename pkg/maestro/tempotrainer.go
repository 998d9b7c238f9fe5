package maestro

import (
	"math"
	"sync"
	"time"
)

const (
	// Recomputed bpm must drift this far from the scheduled bpm before
	// the beat schedule is torn down and rebuilt. Avoids audible stutter
	// from over-rescheduling and drift from under-rescheduling.
	rampTolerance = 0.5

	rampPollInterval = 100 * time.Millisecond
)

// TempoTrainerConfig is the immutable creation configuration.
type TempoTrainerConfig struct {
	StartBPM        float64
	EndBPM          float64
	DurationMinutes float64
	TimeSignature   string
	RampType        string // "linear" or "exponential"
}

// TempoTrainer ramps an embedded metronome from StartBPM to EndBPM over
// the configured duration. The active tempo is always recomputed from
// elapsed wall-clock time, never accumulated.
type TempoTrainer struct {
	id  string
	cfg TempoTrainerConfig

	engine    ToneSynth
	metronome *Metronome

	mu           sync.Mutex
	state        WidgetState
	poll         *Schedule
	startedAt    time.Time
	pausedSoFar  time.Duration
	scheduledBPM float64
	onProgress   func(bpm, progress float64)
	onComplete   func()
}

func NewTempoTrainer(id string, cfg TempoTrainerConfig, synth ToneSynth) *TempoTrainer {
	if cfg.StartBPM <= 0 {
		cfg.StartBPM = 60
	}
	if cfg.EndBPM <= 0 {
		cfg.EndBPM = 120
	}
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = 5
	}
	if cfg.RampType == "" {
		cfg.RampType = "linear"
	}
	if synth == nil {
		synth = NewAudioEngine(nil)
	}
	// The embedded metronome shares the trainer's output by construction.
	m := NewMetronome(id+":metronome", MetronomeConfig{BPM: cfg.StartBPM, TimeSignature: cfg.TimeSignature}, synth)
	return &TempoTrainer{
		id:        id,
		cfg:       cfg,
		engine:    synth,
		metronome: m,
		state:     Stopped,
	}
}

func (t *TempoTrainer) ID() string       { return t.id }
func (t *TempoTrainer) Kind() WidgetKind { return KindTempoTrainer }

func (t *TempoTrainer) OnProgress(fn func(bpm, progress float64)) {
	t.mu.Lock()
	t.onProgress = fn
	t.mu.Unlock()
}

func (t *TempoTrainer) OnComplete(fn func()) {
	t.mu.Lock()
	t.onComplete = fn
	t.mu.Unlock()
}

func (t *TempoTrainer) State() WidgetState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress reports ramp completion in [0,1] from elapsed wall clock.
func (t *TempoTrainer) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progressLocked()
}

func (t *TempoTrainer) progressLocked() float64 {
	if t.state != Playing {
		return math.Min(1, t.pausedSoFar.Minutes()/t.cfg.DurationMinutes)
	}
	elapsed := t.pausedSoFar + time.Since(t.startedAt)
	return math.Min(1, elapsed.Minutes()/t.cfg.DurationMinutes)
}

// CurrentBPM reports the instantaneous tempo implied by the ramp.
func (t *TempoTrainer) CurrentBPM() float64 {
	return RampBPM(t.cfg.RampType, t.cfg.StartBPM, t.cfg.EndBPM, t.Progress())
}

// Play starts or resumes the ramp. No-op if already playing.
func (t *TempoTrainer) Play() error {
	t.mu.Lock()
	if t.state == Playing {
		t.mu.Unlock()
		return nil
	}
	t.startedAt = time.Now()
	t.state = Playing
	t.scheduledBPM = RampBPM(t.cfg.RampType, t.cfg.StartBPM, t.cfg.EndBPM, t.progressLocked())
	bpm := t.scheduledBPM
	t.mu.Unlock()

	t.metronome.SetBPM(bpm)
	if err := t.metronome.Play(); err != nil {
		t.mu.Lock()
		t.state = Stopped
		t.mu.Unlock()
		return err
	}

	t.mu.Lock()
	t.poll = StartSchedule(ConstantRate(rampPollInterval), t.pollTick)
	t.mu.Unlock()
	return nil
}

// pollTick re-evaluates the ramp against elapsed time and reschedules the
// beat only when the recomputed bpm drifts past the tolerance.
func (t *TempoTrainer) pollTick(int) {
	t.mu.Lock()
	if t.state != Playing {
		t.mu.Unlock()
		return
	}
	progress := t.progressLocked()
	bpm := RampBPM(t.cfg.RampType, t.cfg.StartBPM, t.cfg.EndBPM, progress)
	reschedule := math.Abs(bpm-t.scheduledBPM) > rampTolerance
	if reschedule {
		t.scheduledBPM = bpm
	}
	done := progress >= 1
	onProgress := t.onProgress
	onComplete := t.onComplete
	t.mu.Unlock()

	if done {
		t.Stop()
		if onComplete != nil {
			onComplete()
		}
		return
	}
	if reschedule {
		t.metronome.SetBPM(bpm)
	}
	if onProgress != nil {
		onProgress(bpm, progress)
	}
}

// Pause freezes ramp progress and the embedded metronome.
func (t *TempoTrainer) Pause() {
	t.mu.Lock()
	if t.state != Playing {
		t.mu.Unlock()
		return
	}
	t.pausedSoFar += time.Since(t.startedAt)
	t.state = Paused
	if t.poll != nil {
		t.poll.Cancel()
		t.poll = nil
	}
	t.mu.Unlock()

	t.metronome.Pause()
}

// Stop halts the ramp, resets progress and releases the shared audio
// engine. Stopping twice is safe.
func (t *TempoTrainer) Stop() {
	t.mu.Lock()
	if t.state == Stopped {
		t.mu.Unlock()
		return
	}
	if t.poll != nil {
		t.poll.Cancel()
		t.poll = nil
	}
	t.pausedSoFar = 0
	t.state = Stopped
	t.mu.Unlock()

	t.metronome.Stop()
	if err := t.engine.Close(); err != nil {
		GetGlobalLogger().WithComponent("tempo_trainer").WithError(err).Warn("audio release failed")
	}
}
