/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math"

	"github.com/Seednode/pricebox/sets"
)

const (
	// MaxBaseScore is awarded for an exact guess before the difficulty multiplier.
	MaxBaseScore = 1000

	// zeroPriceDenominator stands in for a price of zero when computing the
	// relative error, so a free item still has a scoreable error.
	zeroPriceDenominator = 0.01
)

// Multiplier scales the base score by how hard the item is to price.
// Unknown difficulties score as easy.
func Multiplier(d sets.Difficulty) float64 {
	switch d {
	case sets.Medium:
		return 1.5
	case sets.Hard:
		return 2.0
	case sets.Cruel:
		return 3.0
	default:
		return 1.0
	}
}

// RelativeError is |guess-actual| / actual, with zero prices replaced by a
// small positive denominator.
func RelativeError(guess, actual float64) float64 {
	denom := math.Abs(actual)
	if denom == 0 {
		denom = zeroPriceDenominator
	}
	return math.Abs(guess-actual) / denom
}

// baseScore maps a relative error onto 0..1000 points. Bands:
//
//	e == 0          1000
//	0    < e < 0.05 1000 - 4000e
//	0.05 <= e < 0.2  800 - 3000e
//	0.2  <= e < 0.5  500 -  800e
//	0.5  <= e        100 / (e + 0.1)
func baseScore(e float64) float64 {
	switch {
	case e == 0:
		return MaxBaseScore
	case e < 0.05:
		return 1000 - e*4000
	case e < 0.20:
		return 800 - e*3000
	case e < 0.50:
		return 500 - e*800
	default:
		return max(0, 100/(e+0.1))
	}
}

// Score returns the points a guess earns against the actual price. It never
// returns a negative number and never fails.
func Score(guess, actual float64, d sets.Difficulty) int {
	e := RelativeError(guess, actual)
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0
	}

	// Truncate before the multiplier: 150 against 100 at medium scores 249, not 250.
	base := math.Trunc(baseScore(e))

	return int(base * Multiplier(d))
}
