package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(10, 1) // 10 capacity, 1 token/sec

	for i := 0; i < 10; i++ {
		assert.True(t, tb.Allow())
	}

	assert.False(t, tb.Allow())
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(10, 10)

	for i := 0; i < 10; i++ {
		tb.Allow()
	}
	assert.False(t, tb.Allow())

	time.Sleep(200 * time.Millisecond) // ~2 tokens

	assert.True(t, tb.Allow())
}

func TestTokenBucketNoLimit(t *testing.T) {
	tb := NewTokenBucket(0, 0)

	for i := 0; i < 100; i++ {
		assert.True(t, tb.Allow())
	}
}

func TestLimiterPerKey(t *testing.T) {
	limiter := NewLimiter(3, 0.001)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"))
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other clients have their own bucket
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.Len())
}

func TestLimiterDisabled(t *testing.T) {
	limiter := NewLimiter(0, 0)
	assert.False(t, limiter.Enabled())

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow("client"))
	}
	assert.Equal(t, 0, limiter.Len())
}

func TestLimiterSweep(t *testing.T) {
	limiter := NewLimiter(5, 1)
	limiter.Allow("a")
	limiter.Allow("b")

	assert.Equal(t, 0, limiter.Sweep(time.Hour))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, limiter.Sweep(10*time.Millisecond))
	assert.Equal(t, 0, limiter.Len())
}
