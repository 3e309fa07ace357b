package jitter

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base, max := 100*time.Millisecond, time.Second

	assert.Equal(t, 100*time.Millisecond, Backoff(base, max, 0))
	assert.Equal(t, 200*time.Millisecond, Backoff(base, max, 1))
	assert.Equal(t, 800*time.Millisecond, Backoff(base, max, 3))
	assert.Equal(t, time.Second, Backoff(base, max, 4))
	assert.Equal(t, time.Second, Backoff(base, max, 50))
}

func TestDurationStaysInRange(t *testing.T) {
	d := time.Second
	for i := 0; i < 100; i++ {
		got := Duration(d, DefaultJitter)
		assert.GreaterOrEqual(t, got, d)
		assert.LessOrEqual(t, got, d+d/2)
	}
}

func TestDurationWithRandIsDeterministic(t *testing.T) {
	a := DurationWithRand(time.Second, 0.5, rand.New(rand.NewPCG(1, 2)))
	b := DurationWithRand(time.Second, 0.5, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, a, b)
}
