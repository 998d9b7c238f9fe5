package maestro

import (
	"math"
	"sync"
	"time"
)

// RateFunc returns the instantaneous tick period for the given elapsed
// time since the schedule was armed. It is re-evaluated before every tick
// so ramps see current wall-clock progress.
type RateFunc func(elapsed time.Duration) time.Duration

// ConstantRate returns a RateFunc with a fixed period.
func ConstantRate(period time.Duration) RateFunc {
	return func(time.Duration) time.Duration { return period }
}

// BeatPeriod converts beats per minute to the interval between beats.
func BeatPeriod(bpm float64) time.Duration {
	return time.Duration(60.0 / bpm * float64(time.Second))
}

// Schedule is a handle on a running periodic callback. Cancel is
// idempotent; a tick already in flight may still complete its body.
type Schedule struct {
	done chan struct{}
	once sync.Once
}

// StartSchedule arms a periodic schedule. onTick runs synchronously with
// a strictly increasing tick index before the next tick is armed.
func StartSchedule(rate RateFunc, onTick func(tick int)) *Schedule {
	s := &Schedule{done: make(chan struct{})}
	go func() {
		start := time.Now()
		timer := time.NewTimer(rate(0))
		defer timer.Stop()
		for tick := 0; ; tick++ {
			select {
			case <-s.done:
				return
			case <-timer.C:
			}
			select {
			case <-s.done:
				return
			default:
			}
			onTick(tick)
			timer.Reset(rate(time.Since(start)))
		}
	}()
	return s
}

// Cancel stops future ticks. Safe to call more than once.
func (s *Schedule) Cancel() {
	s.once.Do(func() { close(s.done) })
}

// RampBPM computes the instantaneous tempo of a ramp. Progress outside
// [0,1] is clamped; derived from wall clock each call, never accumulated.
func RampBPM(rampType string, startBPM, endBPM, progress float64) float64 {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	switch rampType {
	case "exponential":
		return startBPM * math.Pow(endBPM/startBPM, progress)
	default: // linear
		return startBPM + (endBPM-startBPM)*progress
	}
}
