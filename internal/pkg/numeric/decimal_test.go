package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 30.0, Round(100*15*0.02, 6))
	assert.Equal(t, 0.123, Round(0.12345, 3))
	assert.Equal(t, 2.0, Round(1.5, 0))
	assert.Equal(t, 12.0, Round(12.4, -1))
	assert.Equal(t, 0.0, Round(math.NaN(), 2))
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "99.50000", Fixed(99.5, 5))
	assert.Equal(t, "3", Fixed(3.2, 0))
}

func TestArithmetic(t *testing.T) {
	assert.Equal(t, 20.0, Mul(Sub(110, 100), 2))
	assert.Equal(t, 0.3, Add(0.1, 0.2))
	assert.Equal(t, 50.0, Div(5, 0.1))
	assert.Equal(t, 0.0, Div(5, 0))
}
