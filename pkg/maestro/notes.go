package maestro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Semitone offsets from C for the natural notes.
var noteOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Chord qualities as semitone intervals from the root, keyed by the
// symbol suffix ("" is major).
var chordIntervals = map[string][]int{
	"":     {0, 4, 7},
	"m":    {0, 3, 7},
	"dim":  {0, 3, 6},
	"aug":  {0, 4, 8},
	"7":    {0, 4, 7, 10},
	"maj7": {0, 4, 7, 11},
	"m7":   {0, 3, 7, 10},
	"m7b5": {0, 3, 6, 10},
	"dim7": {0, 3, 6, 9},
	"6":    {0, 4, 7, 9},
	"m6":   {0, 3, 7, 9},
	"sus2": {0, 2, 7},
	"sus4": {0, 5, 7},
	"add9": {0, 4, 7, 14},
}

// parseNote splits a note name like "C", "F#" or "Bb" into its semitone
// offset from C.
func parseNote(name string) (int, error) {
	if name == "" {
		return 0, NewWidgetError("empty note name")
	}
	letter := name[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	semitone, ok := noteOffsets[letter]
	if !ok {
		return 0, NewWidgetError(fmt.Sprintf("unknown note %q", name))
	}
	for _, accidental := range name[1:] {
		switch accidental {
		case '#':
			semitone++
		case 'b':
			semitone--
		default:
			return 0, NewWidgetError(fmt.Sprintf("unknown accidental in %q", name))
		}
	}
	return ((semitone % 12) + 12) % 12, nil
}

// NoteFrequency returns the 12-TET frequency of a note at the given
// octave, tuned to A4 = 440 Hz.
func NoteFrequency(note string, octave int) (float64, error) {
	semitone, err := parseNote(note)
	if err != nil {
		return 0, err
	}
	midi := (octave+1)*12 + semitone
	return 440.0 * math.Pow(2, float64(midi-69)/12.0), nil
}

// TransposeFrequency shifts a frequency by a number of semitones.
func TransposeFrequency(base float64, semitones int) float64 {
	return base * math.Pow(2, float64(semitones)/12.0)
}

// ChordFrequencies expands a chord symbol like "Am7" or "Fmaj7" into the
// frequencies of its voices at the given octave.
func ChordFrequencies(symbol string, octave int) ([]float64, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, NewWidgetError("empty chord symbol")
	}

	rootLen := 1
	if len(symbol) > 1 && (symbol[1] == '#' || symbol[1] == 'b') {
		rootLen = 2
	}
	root, quality := symbol[:rootLen], symbol[rootLen:]

	intervals, ok := chordIntervals[quality]
	if !ok {
		// Unrecognized quality degrades to a major triad on the root.
		intervals = chordIntervals[""]
	}

	base, err := NoteFrequency(root, octave)
	if err != nil {
		return nil, err
	}
	freqs := make([]float64, len(intervals))
	for i, semis := range intervals {
		freqs[i] = TransposeFrequency(base, semis)
	}
	return freqs, nil
}

// CentsOffset converts a reading to its deviation from a reference
// frequency in cents.
func CentsOffset(freq, reference float64) float64 {
	return 1200 * math.Log2(freq/reference)
}

// ParseTimeSignature splits "3/4" into beats per bar and beat unit.
// Malformed input falls back to common time.
func ParseTimeSignature(s string) (beats, unit int) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 4, 4
	}
	b, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	u, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || b < 1 || u < 1 {
		return 4, 4
	}
	return b, u
}
