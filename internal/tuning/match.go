package tuning

import "math"

// GoodMatchCents is the largest deviation, exclusive, still reported as in tune.
const GoodMatchCents = 5.0

// Match is the outcome of comparing one frequency to a tuning.
type Match struct {
	Index int     // Index into the tuning's pitches
	Cents float64 // Signed deviation from that pitch
	Good  bool    // |Cents| < GoodMatchCents
}

// IsGood reports whether a deviation counts as in tune.
func IsGood(cents float64) bool {
	return math.Abs(cents) < GoodMatchCents
}

// MatchFrequency finds the nearest pitch of t to frequency.
//
// When no pitch was detected (frequency is 0 or not finite) the previous index
// is kept if it still fits t, otherwise 0, and the match is never good.
func MatchFrequency(frequency float64, t *Tuning, prevIndex int) Match {
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		idx := prevIndex
		if idx < 0 || idx >= t.Len() {
			idx = 0
		}
		return Match{Index: idx}
	}

	idx := t.ClosestPitchIndex(frequency)
	cents := Cents(frequency, t.pitches[idx].Frequency)

	return Match{
		Index: idx,
		Cents: cents,
		Good:  IsGood(cents),
	}
}
