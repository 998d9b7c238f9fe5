package maestro

import (
	"math/rand"
	"sync"
	"time"
)

// EarTrainerConfig is the immutable creation configuration.
type EarTrainerConfig struct {
	Mode       string // "intervals" or "chords"
	Difficulty string // "easy", "medium", "hard"
	RootNote   string
	Octave     int
}

// Interval labels by semitone distance from the root. Hard questions
// extend past the octave.
var intervalSemitones = map[string]int{
	"Minor 2nd":   1,
	"Major 2nd":   2,
	"Minor 3rd":   3,
	"Major 3rd":   4,
	"Perfect 4th": 5,
	"Tritone":     6,
	"Perfect 5th": 7,
	"Minor 6th":   8,
	"Major 6th":   9,
	"Minor 7th":   10,
	"Major 7th":   11,
	"Octave":      12,
	"Minor 9th":   13,
	"Major 9th":   14,
}

var intervalSets = map[string][]string{
	"easy": {"Major 3rd", "Perfect 4th", "Perfect 5th", "Octave"},
	"medium": {
		"Major 3rd", "Perfect 4th", "Perfect 5th", "Octave",
		"Minor 2nd", "Major 2nd", "Minor 3rd", "Tritone",
		"Minor 6th", "Major 6th", "Minor 7th",
	},
	"hard": {
		"Major 3rd", "Perfect 4th", "Perfect 5th", "Octave",
		"Minor 2nd", "Major 2nd", "Minor 3rd", "Tritone",
		"Minor 6th", "Major 6th", "Minor 7th",
		"Major 7th", "Minor 9th", "Major 9th",
	},
}

// Chord labels with their voicings as semitones from the root.
var chordQualitySemitones = map[string][]int{
	"Major":           {0, 4, 7},
	"Minor":           {0, 3, 7},
	"Diminished":      {0, 3, 6},
	"Augmented":       {0, 4, 8},
	"Major 7th":       {0, 4, 7, 11},
	"Minor 7th":       {0, 3, 7, 10},
	"Dominant 7th":    {0, 4, 7, 10},
	"Suspended 2nd":   {0, 2, 7},
	"Suspended 4th":   {0, 5, 7},
	"Major 6th":       {0, 4, 7, 9},
	"Minor 6th":       {0, 3, 7, 9},
	"Half-Diminished": {0, 3, 6, 10},
	"Diminished 7th":  {0, 3, 6, 9},
	"Added 9th":       {0, 4, 7, 14},
}

var chordSets = map[string][]string{
	"easy": {"Major", "Minor", "Diminished", "Augmented"},
	"medium": {
		"Major", "Minor", "Diminished", "Augmented",
		"Major 7th", "Minor 7th", "Dominant 7th",
		"Suspended 2nd", "Suspended 4th", "Major 6th", "Minor 6th",
	},
	"hard": {
		"Major", "Minor", "Diminished", "Augmented",
		"Major 7th", "Minor 7th", "Dominant 7th",
		"Suspended 2nd", "Suspended 4th", "Major 6th", "Minor 6th",
		"Half-Diminished", "Diminished 7th", "Added 9th",
	},
}

// QuestionSet returns the answer labels in scope for a mode/difficulty.
func QuestionSet(mode, difficulty string) []string {
	var sets map[string][]string
	if mode == "chords" {
		sets = chordSets
	} else {
		sets = intervalSets
	}
	set, ok := sets[difficulty]
	if !ok {
		set = sets["medium"]
	}
	out := make([]string, len(set))
	copy(out, set)
	return out
}

// EarTrainer plays randomized interval or chord questions and scores
// submitted answers against the drawn label.
type EarTrainer struct {
	id  string
	cfg EarTrainerConfig

	synth ToneSynth
	rng   *rand.Rand

	mu       sync.Mutex
	state    WidgetState
	pending  string
	answered bool
	correct  int
	total    int
	onReveal func(correct bool, answer string)
}

func NewEarTrainer(id string, cfg EarTrainerConfig, synth ToneSynth) *EarTrainer {
	if cfg.Mode == "" {
		cfg.Mode = "intervals"
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = "medium"
	}
	if cfg.RootNote == "" {
		cfg.RootNote = "C"
	}
	if cfg.Octave == 0 {
		cfg.Octave = 4
	}
	if synth == nil {
		synth = NewAudioEngine(nil)
	}
	return &EarTrainer{
		id:    id,
		cfg:   cfg,
		synth: synth,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		state: Stopped,
	}
}

func (e *EarTrainer) ID() string       { return e.id }
func (e *EarTrainer) Kind() WidgetKind { return KindEarTrainer }

// OnReveal installs a view callback fired once per scored answer with
// the correct label.
func (e *EarTrainer) OnReveal(fn func(correct bool, answer string)) {
	e.mu.Lock()
	e.onReveal = fn
	e.mu.Unlock()
}

// Options returns the answer labels the current configuration draws from.
func (e *EarTrainer) Options() []string {
	return QuestionSet(e.cfg.Mode, e.cfg.Difficulty)
}

// Next clears any revealed answer, draws a fresh question uniformly at
// random from the difficulty-scoped set and plays its audio.
func (e *EarTrainer) Next() error {
	options := e.Options()

	e.mu.Lock()
	e.pending = options[e.rng.Intn(len(options))]
	e.answered = false
	e.state = Playing
	label := e.pending
	e.mu.Unlock()

	return e.play(label)
}

// Replay sounds the current question again without redrawing.
func (e *EarTrainer) Replay() error {
	e.mu.Lock()
	label := e.pending
	e.mu.Unlock()

	if label == "" {
		return NewWidgetError("no question to replay")
	}
	return e.play(label)
}

func (e *EarTrainer) play(label string) error {
	root, err := NoteFrequency(e.cfg.RootNote, e.cfg.Octave)
	if err != nil {
		return err
	}
	if err := e.synth.Open(); err != nil {
		return err
	}

	if e.cfg.Mode == "chords" {
		semis := chordQualitySemitones[label]
		freqs := make([]float64, len(semis))
		for i, s := range semis {
			freqs[i] = TransposeFrequency(root, s)
		}
		return e.synth.PlayChord(freqs, Sine, 0.4, 1.2)
	}

	// Intervals are played melodically: root first, then the upper note.
	if err := e.synth.PlayTone(root, Sine, 0.4, 0.6); err != nil {
		return err
	}
	upper := TransposeFrequency(root, intervalSemitones[label])
	time.AfterFunc(700*time.Millisecond, func() {
		if err := e.synth.PlayTone(upper, Sine, 0.4, 0.6); err != nil {
			GetGlobalLogger().WithComponent("ear_trainer").WithError(err).Warn("interval playback failed")
		}
	})
	return nil
}

// Submit scores an answer against the pending question. Repeat
// submissions before Next are rejected.
func (e *EarTrainer) Submit(label string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == "" {
		return false, NewWidgetError("no active question")
	}
	if e.answered {
		return false, NewWidgetError("question already answered")
	}

	correct := label == e.pending
	e.answered = true
	e.total++
	if correct {
		e.correct++
	}
	if e.onReveal != nil {
		go e.onReveal(correct, e.pending)
	}
	return correct, nil
}

// Score returns correct answers and questions asked so far.
func (e *EarTrainer) Score() (correct, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.correct, e.total
}

func (e *EarTrainer) State() WidgetState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop clears the pending question and releases the audio engine.
// Stopping twice is safe.
func (e *EarTrainer) Stop() {
	e.mu.Lock()
	if e.state == Stopped {
		e.mu.Unlock()
		return
	}
	e.pending = ""
	e.answered = false
	e.state = Stopped
	e.mu.Unlock()

	if err := e.synth.Close(); err != nil {
		GetGlobalLogger().WithComponent("ear_trainer").WithError(err).Warn("audio release failed")
	}
}
