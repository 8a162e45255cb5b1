// Package tuning holds the target pitches an instrument is tuned against and
// matches detected frequencies to them.
package tuning

import (
	"errors"
	"fmt"
	"math"
)

// Errors
var (
	ErrEmptyTuning      = errors.New("tuning has no pitches")
	ErrInvalidFrequency = errors.New("pitch frequency must be positive and finite")
)

// Pitch is a single target note, e.g. the low E string of a guitar.
type Pitch struct {
	Name      string  // e.g., "E2"
	Frequency float64 // Frequency in Hz
}

// Tuning is a named, ordered set of target pitches. It is immutable once
// built; switching tunings means replacing the whole value.
type Tuning struct {
	name    string
	pitches []Pitch
}

// New creates a tuning from the given pitches, in string order.
func New(name string, pitches ...Pitch) (*Tuning, error) {
	if len(pitches) == 0 {
		return nil, fmt.Errorf("tuning %q: %w", name, ErrEmptyTuning)
	}

	owned := make([]Pitch, len(pitches))
	for i, p := range pitches {
		if p.Frequency <= 0 || math.IsInf(p.Frequency, 0) || math.IsNaN(p.Frequency) {
			return nil, fmt.Errorf("tuning %q: pitch %q (%v Hz): %w", name, p.Name, p.Frequency, ErrInvalidFrequency)
		}
		owned[i] = p
	}

	return &Tuning{name: name, pitches: owned}, nil
}

// MustNew is like New but panics on error. Used for built-in presets.
func MustNew(name string, pitches ...Pitch) *Tuning {
	t, err := New(name, pitches...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the tuning name.
func (t *Tuning) Name() string {
	return t.name
}

// Len returns the number of pitches.
func (t *Tuning) Len() int {
	return len(t.pitches)
}

// Pitch returns the pitch at index i.
func (t *Tuning) Pitch(i int) Pitch {
	return t.pitches[i]
}

// Pitches returns a copy of the pitches in order.
func (t *Tuning) Pitches() []Pitch {
	out := make([]Pitch, len(t.pitches))
	copy(out, t.pitches)
	return out
}

// ClosestPitchIndex returns the index of the pitch nearest to frequency in
// cents. Ties go to the lowest index. Non-positive or NaN frequencies map to 0.
func (t *Tuning) ClosestPitchIndex(frequency float64) int {
	if len(t.pitches) == 0 {
		panic("tuning: ClosestPitchIndex on empty tuning")
	}
	if !(frequency > 0) {
		return 0
	}

	best := 0
	bestDist := math.Inf(1)
	for i, p := range t.pitches {
		dist := math.Abs(Cents(frequency, p.Frequency))
		// Strict comparison keeps the first of equal distances
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	return best
}

// String implements fmt.Stringer, e.g. "standard [E2 A2 D3 G3 B3 E4]".
func (t *Tuning) String() string {
	names := make([]string, len(t.pitches))
	for i, p := range t.pitches {
		names[i] = p.Name
	}
	return fmt.Sprintf("%s %v", t.name, names)
}

// Cents returns the interval from ref to frequency in cents.
// 1200 cents = one octave.
func Cents(frequency, ref float64) float64 {
	return 1200 * math.Log2(frequency/ref)
}
