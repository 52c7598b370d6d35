package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Seednode/pricebox/sets"
)

var difficulties = []sets.Difficulty{sets.Easy, sets.Medium, sets.Hard, sets.Cruel, "unknown"}

func TestScoreExactMatch(t *testing.T) {
	for _, d := range difficulties {
		t.Run(string(d), func(t *testing.T) {
			for _, price := range []float64{0.5, 1, 19.99, 100, 2500} {
				assert.Equal(t, int(MaxBaseScore*Multiplier(d)), Score(price, price, d))
			}
		})
	}
}

func TestScoreMultipliers(t *testing.T) {
	assert.Equal(t, 1000, Score(100, 100, sets.Easy))
	assert.Equal(t, 1500, Score(100, 100, sets.Medium))
	assert.Equal(t, 2000, Score(100, 100, sets.Hard))
	assert.Equal(t, 3000, Score(100, 100, sets.Cruel))
	assert.Equal(t, 1000, Score(100, 100, "nightmare"))
}

func TestScoreHalfOffMedium(t *testing.T) {
	assert.Equal(t, 249, Score(150, 100, sets.Medium))
	assert.Equal(t, 249, Score(50, 100, sets.Medium))
}

func TestScoreZeroPrice(t *testing.T) {
	assert.Equal(t, 1000, Score(0, 0, sets.Easy))

	for _, g := range []float64{0.001, 0.01, 1, 1e9} {
		got := Score(g, 0, sets.Cruel)
		assert.GreaterOrEqual(t, got, 0)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	for _, d := range difficulties {
		for _, actual := range []float64{0.01, 1, 100, 1e6} {
			for _, g := range []float64{0, actual / 3, actual * 2, actual * 100, 1e12, math.Inf(1)} {
				assert.GreaterOrEqual(t, Score(g, actual, d), 0, "guess %v actual %v", g, actual)
			}
		}
	}
}

// Scores must not grow as the error grows within each band of the curve.
func TestScoreNonIncreasingWithinBands(t *testing.T) {
	bands := [][2]float64{
		{0.001, 0.049},
		{0.05, 0.199},
		{0.20, 0.499},
		{0.50, 25},
	}
	const actual = 200.0

	for _, band := range bands {
		prev := math.MaxInt
		step := (band[1] - band[0]) / 200
		for e := band[0]; e <= band[1]; e += step {
			got := Score(actual*(1+e), actual, sets.Hard)
			assert.LessOrEqual(t, got, prev, "e=%v", e)
			prev = got
		}
	}
}

func TestBaseScoreBands(t *testing.T) {
	assert.InDelta(t, 1000, baseScore(0), 1e-9)
	assert.InDelta(t, 920, baseScore(0.02), 1e-9)
	assert.InDelta(t, 500, baseScore(0.1), 1e-9)
	assert.InDelta(t, 260, baseScore(0.3), 1e-9)
	assert.InDelta(t, 100.0/1.1, baseScore(1), 1e-9)
}
