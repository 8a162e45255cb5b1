package tuning

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownNote is returned for note names that are not in scientific pitch
// notation.
var ErrUnknownNote = errors.New("unknown note name")

// ReferenceA4 is the concert pitch all note names are derived from.
const ReferenceA4 = 440.0

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Flats map onto the sharp spelling of the same semitone
var flatNames = map[string]string{
	"DB": "C#",
	"EB": "D#",
	"GB": "F#",
	"AB": "G#",
	"BB": "A#",
}

// NoteFrequency converts a name such as "E2", "C#3" or "Bb1" to its equal
// temperament frequency.
func NoteFrequency(name string) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(name))

	// Split at the first digit or minus sign, the octave
	split := strings.IndexFunc(s, func(r rune) bool {
		return (r >= '0' && r <= '9') || r == '-'
	})
	if split <= 0 {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownNote)
	}

	base, octaveText := s[:split], s[split:]
	if sharp, ok := flatNames[base]; ok {
		base = sharp
	}

	semitone := -1
	for i, n := range noteNames {
		if n == base {
			semitone = i
			break
		}
	}
	if semitone < 0 {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownNote)
	}

	octave, err := strconv.Atoi(octaveText)
	if err != nil || octave < -1 || octave > 9 {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownNote)
	}

	midi := (octave+1)*12 + semitone
	return ReferenceA4 * math.Pow(2, float64(midi-69)/12), nil
}

// NearestNote returns the chromatic note closest to frequency (e.g. "A4") and
// the deviation from it in cents.
func NearestNote(frequency float64) (string, float64) {
	if !(frequency > 0) {
		return "--", 0
	}

	// A4 = 440Hz, calculate semitones from A4
	semitones := 12 * math.Log2(frequency/ReferenceA4)
	rounded := math.Round(semitones)
	cents := 100 * (semitones - rounded)

	// A4 is 9 semitones above C4
	noteIndex := int(math.Mod(rounded+9, 12))
	if noteIndex < 0 {
		noteIndex += 12
	}
	octave := 4 + int(math.Floor((rounded+9)/12))

	return fmt.Sprintf("%s%d", noteNames[noteIndex], octave), cents
}
