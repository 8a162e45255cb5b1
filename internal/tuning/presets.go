package tuning

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultPreset is used whenever a key does not name a known tuning.
const DefaultPreset = "standard"

// Standard is the standard six string guitar tuning.
var Standard = MustNew(DefaultPreset,
	Pitch{Name: "E2", Frequency: 82.41},
	Pitch{Name: "A2", Frequency: 110.00},
	Pitch{Name: "D3", Frequency: 146.83},
	Pitch{Name: "G3", Frequency: 196.00},
	Pitch{Name: "B3", Frequency: 246.94},
	Pitch{Name: "E4", Frequency: 329.63},
)

var presets = map[string]*Tuning{
	DefaultPreset:    Standard,
	"drop-d":         mustNotes("drop-d", "D2", "A2", "D3", "G3", "B3", "E4"),
	"half-step-down": mustNotes("half-step-down", "D#2", "G#2", "C#3", "F#3", "A#3", "D#4"),
	"open-g":         mustNotes("open-g", "D2", "G2", "D3", "G3", "B3", "D4"),
	"open-d":         mustNotes("open-d", "D2", "A2", "D3", "F#3", "A3", "D4"),
	"dadgad":         mustNotes("dadgad", "D2", "A2", "D3", "G3", "A3", "D4"),
	"bass":           mustNotes("bass", "E1", "A1", "D2", "G2"),
	"ukulele":        mustNotes("ukulele", "G4", "C4", "E4", "A4"),
	"violin":         mustNotes("violin", "G3", "D4", "A4", "E5"),
}

// Presets returns the keys of all built-in tunings, sorted.
func Presets() []string {
	keys := make([]string, 0, len(presets))
	for k := range presets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup resolves a preset key, case-insensitively. Unknown keys fall back to
// the standard tuning; ok reports whether the key was known.
func Lookup(key string) (t *Tuning, ok bool) {
	t, ok = presets[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Standard, false
	}
	return t, true
}

// Parse builds a user-defined tuning from a comma separated list. Entries are
// note names ("E2") or explicit "Name=Hz" pairs ("E2=82.5").
func Parse(name, list string) (*Tuning, error) {
	var pitches []Pitch
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		if label, hz, found := strings.Cut(field, "="); found {
			freq, err := strconv.ParseFloat(strings.TrimSpace(hz), 64)
			if err != nil {
				return nil, fmt.Errorf("tuning %q: pitch %q: %w", name, field, err)
			}
			pitches = append(pitches, Pitch{Name: strings.TrimSpace(label), Frequency: freq})
			continue
		}

		freq, err := NoteFrequency(field)
		if err != nil {
			return nil, fmt.Errorf("tuning %q: %w", name, err)
		}
		pitches = append(pitches, Pitch{Name: field, Frequency: freq})
	}

	return New(name, pitches...)
}

func mustNotes(name string, notes ...string) *Tuning {
	t, err := Parse(name, strings.Join(notes, ","))
	if err != nil {
		panic(err)
	}
	return t
}
