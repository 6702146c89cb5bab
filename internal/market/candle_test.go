package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowAccessors(t *testing.T) {
	w := Window{
		{OpenTime: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{OpenTime: 2, Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
	}
	last, ok := w.Last()
	assert.True(t, ok)
	assert.Equal(t, int64(2), last.OpenTime)
	assert.Equal(t, []float64{1.5, 2.5}, w.Closes())
	assert.Equal(t, []float64{2, 3}, w.Highs())
	assert.Equal(t, []float64{0.5, 1}, w.Lows())
	assert.Equal(t, []float64{10, 20}, w.Volumes())

	_, ok = Window{}.Last()
	assert.False(t, ok)
}

func TestSignalSide(t *testing.T) {
	side, ok := SignalBuy.Side()
	assert.True(t, ok)
	assert.Equal(t, SideBuy, side)
	assert.Equal(t, SideSell, side.Opposite())

	_, ok = SignalHold.Side()
	assert.False(t, ok)

	parsed, err := ParseSide("short")
	assert.NoError(t, err)
	assert.Equal(t, SideSell, parsed)
	_, err = ParseSide("flat")
	assert.Error(t, err)
}
