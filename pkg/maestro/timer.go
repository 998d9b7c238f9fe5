package maestro

import (
	"sync"
	"time"
)

// PracticeTimerConfig is the immutable creation configuration. Zero
// values suppress the corresponding feature: no duration means an
// open-ended session, no break interval means no reminders.
type PracticeTimerConfig struct {
	DurationMinutes      float64
	Goal                 string
	BreakIntervalMinutes float64
}

// PracticeTimer tracks elapsed practice time, optionally ending the
// session at a target duration and firing periodic break reminders.
type PracticeTimer struct {
	id  string
	cfg PracticeTimerConfig

	mu            sync.Mutex
	state         WidgetState
	schedule      *Schedule
	breakSchedule *Schedule
	baseElapsed   time.Duration
	startedAt     time.Time
	onTick        func(elapsed time.Duration)
	onBreak       func(reminder int)
	onComplete    func()
}

func NewPracticeTimer(id string, cfg PracticeTimerConfig) *PracticeTimer {
	return &PracticeTimer{id: id, cfg: cfg, state: Stopped}
}

func (t *PracticeTimer) ID() string       { return t.id }
func (t *PracticeTimer) Kind() WidgetKind { return KindPracticeTimer }

func (t *PracticeTimer) Goal() string { return t.cfg.Goal }

func (t *PracticeTimer) OnTick(fn func(elapsed time.Duration)) {
	t.mu.Lock()
	t.onTick = fn
	t.mu.Unlock()
}

func (t *PracticeTimer) OnBreak(fn func(reminder int)) {
	t.mu.Lock()
	t.onBreak = fn
	t.mu.Unlock()
}

func (t *PracticeTimer) OnComplete(fn func()) {
	t.mu.Lock()
	t.onComplete = fn
	t.mu.Unlock()
}

func (t *PracticeTimer) State() WidgetState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Elapsed reports total practice time including time before a pause.
func (t *PracticeTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *PracticeTimer) elapsedLocked() time.Duration {
	if t.state != Playing {
		return t.baseElapsed
	}
	return t.baseElapsed + time.Since(t.startedAt)
}

// Play starts or resumes the timer. No-op if already playing.
func (t *PracticeTimer) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Playing {
		return nil
	}
	t.startedAt = time.Now()
	t.state = Playing
	t.schedule = StartSchedule(ConstantRate(time.Second), t.tick)
	if t.cfg.BreakIntervalMinutes > 0 {
		interval := time.Duration(t.cfg.BreakIntervalMinutes * float64(time.Minute))
		t.breakSchedule = StartSchedule(ConstantRate(interval), t.breakTick)
	}
	return nil
}

func (t *PracticeTimer) tick(int) {
	t.mu.Lock()
	if t.state != Playing {
		t.mu.Unlock()
		return
	}
	elapsed := t.elapsedLocked()
	done := t.cfg.DurationMinutes > 0 && elapsed.Minutes() >= t.cfg.DurationMinutes
	onTick := t.onTick
	onComplete := t.onComplete
	t.mu.Unlock()

	if onTick != nil {
		onTick(elapsed)
	}
	if done {
		t.Stop()
		if onComplete != nil {
			onComplete()
		}
	}
}

func (t *PracticeTimer) breakTick(n int) {
	t.mu.Lock()
	onBreak := t.onBreak
	running := t.state == Playing
	t.mu.Unlock()

	if running && onBreak != nil {
		onBreak(n + 1)
	}
}

// Pause captures elapsed time as the new base and cancels both schedules.
func (t *PracticeTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Playing {
		return
	}
	t.baseElapsed += time.Since(t.startedAt)
	t.state = Paused
	t.cancelLocked()
}

// Stop cancels both schedules and resets elapsed time. Stopping twice is
// safe.
func (t *PracticeTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Stopped {
		return
	}
	t.cancelLocked()
	t.baseElapsed = 0
	t.state = Stopped
}

func (t *PracticeTimer) cancelLocked() {
	if t.schedule != nil {
		t.schedule.Cancel()
		t.schedule = nil
	}
	if t.breakSchedule != nil {
		t.breakSchedule.Cancel()
		t.breakSchedule = nil
	}
}
