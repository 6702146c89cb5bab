package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errDown = errors.New("down")

func fakeClock(b *Breaker) *time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return &now
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	b := New("notify", 2, time.Minute)
	now := fakeClock(b)
	var seen []State
	b.OnChange(func(_ string, _, to State) { seen = append(seen, to) })

	fail := func() error { return errDown }
	assert.ErrorIs(t, b.Do(fail), errDown)
	assert.Equal(t, Closed, b.State())
	assert.ErrorIs(t, b.Do(fail), errDown)
	assert.Equal(t, Open, b.State())

	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrOpen)

	*now = now.Add(2 * time.Minute)
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, []State{Open, HalfOpen, Closed}, seen)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New("x", 0, time.Second)
	now := fakeClock(b)
	b.OnChange(func(string, State, State) {})

	assert.Error(t, b.Do(func() error { return errDown }))
	assert.Equal(t, Open, b.State())

	*now = now.Add(2 * time.Second)
	assert.Error(t, b.Do(func() error {
		assert.Equal(t, HalfOpen, b.State())
		// a second caller is rejected while the probe runs
		assert.ErrorIs(t, b.Do(func() error { return nil }), ErrOpen)
		return errDown
	}))
	assert.Equal(t, Open, b.State())
	assert.Equal(t, "open", b.State().String())
	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrOpen)
}

func TestSuccessResetsStreak(t *testing.T) {
	b := New("x", 2, time.Minute)
	fakeClock(b)
	b.OnChange(func(string, State, State) {})

	assert.Error(t, b.Do(func() error { return errDown }))
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Error(t, b.Do(func() error { return errDown }))
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, "unknown", State(9).String())
}
