package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Config for exponential backoff
type Config struct {
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     float64       `yaml:"jitter"` // 0.0 to 1.0
}

// DefaultConfig returns the backoff used while waiting on a locked store
func DefaultConfig() Config {
	return Config{
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Calculate computes the delay before the given attempt; attempt 0 never waits.
// Formula: min(base * multiplier^(attempt-1), maxDelay) ± jitter
func Calculate(cfg Config, attempt uint32) time.Duration {
	if attempt == 0 {
		return 0
	}

	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter > 0 {
		jitterRange := delay * cfg.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}
