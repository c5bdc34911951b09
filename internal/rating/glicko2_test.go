package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate1v1EvenPlayers(t *testing.T) {
	w, l := Update1v1(Default(), Default())

	assert.Greater(t, w.Rating, DefaultRating)
	assert.Less(t, l.Rating, DefaultRating)
	assert.InDelta(t, w.Rating-DefaultRating, DefaultRating-l.Rating, 0.001)
	assert.Less(t, w.Deviation, DefaultDeviation)
	assert.Less(t, l.Deviation, DefaultDeviation)
}

func TestUpsetMovesMoreThanExpectedWin(t *testing.T) {
	strong := Rating{Rating: 1900, Deviation: 80, Volatility: DefaultVolatility}
	weak := Rating{Rating: 1400, Deviation: 80, Volatility: DefaultVolatility}

	expectedW, _ := Update1v1(strong, weak)
	upsetW, _ := Update1v1(weak, strong)

	assert.Greater(t, upsetW.Rating-weak.Rating, expectedW.Rating-strong.Rating)
}

// Worked example from Glickman's Glicko-2 paper, reduced to its first game:
// a 1500/200 player beating a 1400/30 opponent.
func TestSingleGameAgainstKnownOpponent(t *testing.T) {
	player := Rating{Rating: 1500, Deviation: 200, Volatility: DefaultVolatility}
	opp := Rating{Rating: 1400, Deviation: 30, Volatility: DefaultVolatility}

	w, _ := Update1v1(player, opp)
	assert.InDelta(t, 1563.6, w.Rating, 1.0)
	assert.InDelta(t, 175.4, w.Deviation, 1.0)
	assert.InDelta(t, DefaultVolatility, w.Volatility, 0.001)
}
