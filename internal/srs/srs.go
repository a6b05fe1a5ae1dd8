// Package srs implements the spaced-repetition scheduler, derived from
// the SuperMemo 2 family of algorithms.
package srs

import "time"

const (
	// MinEasyFactor is the floor below which the easy factor never drops.
	MinEasyFactor = 1.3

	// MaxDifficulty bounds the per-card difficulty rating.
	MaxDifficulty = 5

	// MaxDeferral caps how far a review can be pushed into the future,
	// in seconds past the moment of calculation.
	MaxDeferral = 172800

	secondsPerDay = 86400
)

// Result is the updated review state for a card.
type Result struct {
	Difficulty         int
	Repetition         int
	NextRepetitionDate int64 // epoch seconds
	EasyFactor         float64
}

// Review adjusts a card's difficulty from a binary correct/incorrect
// signal and computes the next review timestamp.
//
// Inputs outside the documented domain are clamped rather than
// rejected; clamping is part of the contract, not an error path. The
// returned timestamp never exceeds now + MaxDeferral, and the returned
// easy factor never drops below MinEasyFactor.
func Review(repetition, difficulty int, easyFactor float64, correct bool, now time.Time) Result {
	difficulty = clampDifficulty(difficulty)
	if easyFactor < MinEasyFactor {
		easyFactor = MinEasyFactor
	}
	if repetition < 0 {
		repetition = 0
	}

	if correct {
		if difficulty < MaxDifficulty {
			difficulty++
		}
	} else {
		if difficulty > 0 {
			difficulty--
		}
	}

	intervalSeconds, repetition, easyFactor := memorization(repetition, difficulty, easyFactor)

	next := now.Unix() + intervalSeconds
	// The ceiling applies after the addition, not before.
	if ceiling := now.Unix() + MaxDeferral; next > ceiling {
		next = ceiling
	}

	return Result{
		Difficulty:         difficulty,
		Repetition:         repetition + 1,
		NextRepetitionDate: next,
		EasyFactor:         easyFactor,
	}
}

// memorization returns the interval in seconds until the next review,
// along with the possibly-adjusted repetition count and easy factor.
func memorization(repetition, difficulty int, easyFactor float64) (int64, int, float64) {
	if difficulty < 3 {
		return 60, repetition, easyFactor
	}
	if difficulty == 3 {
		return 1800, repetition, easyFactor
	}

	repetition, easyFactor = recalculateEasyFactor(repetition, difficulty, easyFactor)
	days := interval(repetition, difficulty, easyFactor)

	// Clamp in float64 before converting: a converted overflow would
	// land the review date in the past instead of at the cap.
	seconds := secondsPerDay * days
	if seconds > MaxDeferral {
		seconds = MaxDeferral
	}
	return int64(seconds), repetition, easyFactor
}

// recalculateEasyFactor derives the new easy factor from the difficulty
// rating. The repetition reset below is unreachable from Review (the
// caller only gets here with difficulty > 3) but is kept as observed in
// the source algorithm.
func recalculateEasyFactor(repetition, difficulty int, old float64) (int, float64) {
	if difficulty < 2 {
		repetition = 1
	}

	ef := old - 0.8 + float64(difficulty)*(0.28-0.02*float64(difficulty))
	if ef < MinEasyFactor {
		ef = MinEasyFactor
	}
	return repetition, ef
}

const maxIntervalDays = float64(MaxDeferral) / secondsPerDay

// interval computes the inter-repetition interval in days. Growth stops
// once the interval clears the deferral cap: past that point the exact
// value is irrelevant and the compounding overflows float64 at high
// repetition counts.
func interval(repetition, difficulty int, easyFactor float64) float64 {
	if repetition < 3 {
		return float64(difficulty) / 2
	}
	days := float64(difficulty)
	for r := 3; r < repetition; r++ {
		days *= easyFactor
		if days > maxIntervalDays {
			break
		}
	}
	return days
}

func clampDifficulty(d int) int {
	if d < 0 {
		return 0
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}
