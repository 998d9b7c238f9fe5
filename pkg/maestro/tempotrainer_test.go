package maestro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempoTrainerDefaults(t *testing.T) {
	tt := NewTempoTrainer("tt", TempoTrainerConfig{}, &fakeSynth{})
	assert.Equal(t, 60.0, tt.cfg.StartBPM)
	assert.Equal(t, 120.0, tt.cfg.EndBPM)
	assert.Equal(t, 5.0, tt.cfg.DurationMinutes)
	assert.Equal(t, "linear", tt.cfg.RampType)
}

func TestTempoTrainerStartsAtStartBPM(t *testing.T) {
	tt := NewTempoTrainer("tt", TempoTrainerConfig{StartBPM: 60, EndBPM: 120}, &fakeSynth{})
	assert.InDelta(t, 60.0, tt.CurrentBPM(), 1e-9)
	assert.Equal(t, 0.0, tt.Progress())
}

func TestTempoTrainerEmbeddedMetronomeSharesSynth(t *testing.T) {
	synth := &fakeSynth{}
	tt := NewTempoTrainer("tt", TempoTrainerConfig{}, synth)
	assert.Same(t, ToneSynth(synth), tt.metronome.synth)
	assert.False(t, tt.metronome.ownsSynth)
}

func TestTempoTrainerLifecycle(t *testing.T) {
	synth := &fakeSynth{}
	tt := NewTempoTrainer("tt", TempoTrainerConfig{
		StartBPM: 60, EndBPM: 120, DurationMinutes: 5,
	}, synth)

	require.NoError(t, tt.Play())
	assert.Equal(t, Playing, tt.State())
	assert.Equal(t, Playing, tt.metronome.State())
	assert.InDelta(t, 60.0, tt.metronome.BPM(), rampTolerance)

	tt.Pause()
	assert.Equal(t, Paused, tt.State())
	assert.Equal(t, Paused, tt.metronome.State())

	require.NoError(t, tt.Play())
	tt.Stop()
	assert.Equal(t, Stopped, tt.State())
	assert.Equal(t, Stopped, tt.metronome.State())
	assert.Equal(t, 0.0, tt.Progress())
	assert.GreaterOrEqual(t, synth.closes, 1)

	tt.Stop() // safe
}

func TestTempoTrainerCompletesRamp(t *testing.T) {
	synth := &fakeSynth{}
	// A ramp shorter than one poll interval completes on the first poll.
	tt := NewTempoTrainer("tt", TempoTrainerConfig{
		StartBPM: 60, EndBPM: 120, DurationMinutes: 0.0001,
	}, synth)

	done := make(chan struct{})
	tt.OnComplete(func() { close(done) })

	require.NoError(t, tt.Play())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ramp never completed")
	}

	assert.Equal(t, Stopped, tt.State())
}

func TestTempoTrainerProgressCapped(t *testing.T) {
	tt := NewTempoTrainer("tt", TempoTrainerConfig{DurationMinutes: 0.0001}, &fakeSynth{})
	tt.pausedSoFar = time.Hour
	assert.Equal(t, 1.0, tt.Progress())
	assert.InDelta(t, tt.cfg.EndBPM, tt.CurrentBPM(), 1e-9)
}
