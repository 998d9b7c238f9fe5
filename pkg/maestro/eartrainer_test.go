package maestro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionSetSizes(t *testing.T) {
	tests := []struct {
		mode       string
		difficulty string
		size       int
	}{
		{"intervals", "easy", 4},
		{"intervals", "medium", 11},
		{"intervals", "hard", 14},
		{"chords", "easy", 4},
		{"chords", "medium", 11},
		{"chords", "hard", 14},
		{"intervals", "nightmare", 11}, // unknown difficulty falls back to medium
	}

	for _, tt := range tests {
		set := QuestionSet(tt.mode, tt.difficulty)
		assert.Len(t, set, tt.size, "%s/%s", tt.mode, tt.difficulty)
	}
}

func TestQuestionSetEasyIntervalsFixed(t *testing.T) {
	set := QuestionSet("intervals", "easy")
	assert.ElementsMatch(t, []string{"Major 3rd", "Perfect 4th", "Perfect 5th", "Octave"}, set)
}

func TestEarTrainerNextDrawsFromSet(t *testing.T) {
	et := NewEarTrainer("et", EarTrainerConfig{Mode: "intervals", Difficulty: "easy"}, &fakeSynth{})
	defer et.Stop()

	for i := 0; i < 20; i++ {
		require.NoError(t, et.Next())
		assert.Contains(t, et.Options(), et.pending)
	}
}

func TestEarTrainerScoring(t *testing.T) {
	synth := &fakeSynth{}
	et := NewEarTrainer("et", EarTrainerConfig{Mode: "intervals", Difficulty: "easy"}, synth)
	defer et.Stop()

	require.NoError(t, et.Next())
	answer := et.pending

	correct, err := et.Submit(answer)
	require.NoError(t, err)
	assert.True(t, correct)

	gotCorrect, total := et.Score()
	assert.Equal(t, 1, gotCorrect)
	assert.Equal(t, 1, total)
}

func TestEarTrainerWrongAnswer(t *testing.T) {
	et := NewEarTrainer("et", EarTrainerConfig{Mode: "intervals", Difficulty: "easy"}, &fakeSynth{})
	defer et.Stop()

	require.NoError(t, et.Next())
	correct, err := et.Submit("definitely not an interval")
	require.NoError(t, err)
	assert.False(t, correct)

	gotCorrect, total := et.Score()
	assert.Equal(t, 0, gotCorrect)
	assert.Equal(t, 1, total)
}

func TestEarTrainerRejectsDoubleSubmit(t *testing.T) {
	et := NewEarTrainer("et", EarTrainerConfig{Difficulty: "easy"}, &fakeSynth{})
	defer et.Stop()

	require.NoError(t, et.Next())
	answer := et.pending

	_, err := et.Submit(answer)
	require.NoError(t, err)

	// A second submission before Next has no effect on the score.
	_, err = et.Submit(answer)
	require.Error(t, err)

	correct, total := et.Score()
	assert.Equal(t, 1, correct)
	assert.Equal(t, 1, total)
}

func TestEarTrainerSubmitWithoutQuestion(t *testing.T) {
	et := NewEarTrainer("et", EarTrainerConfig{}, &fakeSynth{})

	_, err := et.Submit("Octave")
	require.Error(t, err)

	err = et.Replay()
	require.Error(t, err)
}

func TestEarTrainerChordModePlaysChord(t *testing.T) {
	synth := &fakeSynth{}
	et := NewEarTrainer("et", EarTrainerConfig{Mode: "chords", Difficulty: "easy"}, synth)
	defer et.Stop()

	require.NoError(t, et.Next())
	require.Equal(t, 1, synth.chordCount())
	// Every easy chord quality is at least a triad.
	assert.GreaterOrEqual(t, len(synth.chords[0].freqs), 3)
}

func TestEarTrainerIntervalModePlaysRootFirst(t *testing.T) {
	synth := &fakeSynth{}
	et := NewEarTrainer("et", EarTrainerConfig{Mode: "intervals", Difficulty: "easy", RootNote: "A"}, synth)
	defer et.Stop()

	require.NoError(t, et.Next())
	// The root sounds immediately; the upper note follows later.
	freqs := synth.toneFreqs()
	require.NotEmpty(t, freqs)
	assert.InDelta(t, 440.0, freqs[0], 1e-6)
}

func TestEarTrainerStopClearsQuestion(t *testing.T) {
	et := NewEarTrainer("et", EarTrainerConfig{Difficulty: "easy"}, &fakeSynth{})
	require.NoError(t, et.Next())

	et.Stop()
	assert.Equal(t, Stopped, et.State())
	assert.Empty(t, et.pending)
	et.Stop() // safe

	_, err := et.Submit("Octave")
	require.Error(t, err)
}

func TestEarTrainerDefaults(t *testing.T) {
	et := NewEarTrainer("et", EarTrainerConfig{}, &fakeSynth{})
	assert.Equal(t, "intervals", et.cfg.Mode)
	assert.Equal(t, "medium", et.cfg.Difficulty)
	assert.Equal(t, "C", et.cfg.RootNote)
	assert.Equal(t, 4, et.cfg.Octave)
}
