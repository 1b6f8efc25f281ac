package processor

import (
	"time"
)

// Config controls the processor's intervals and batch size.
type Config struct {
	// TickInterval paces the batch processing loop.
	TickInterval time.Duration
	// SweepInterval paces the expired-job cleanup sweep.
	SweepInterval time.Duration
	// BatchSize caps pending jobs claimed per tick; it is also the worst-case
	// number of concurrently in-flight provider calls, since overlapping
	// ticks are skipped rather than queued.
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		TickInterval:  10 * time.Second,
		SweepInterval: 5 * time.Minute,
		BatchSize:     5,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = defaults.TickInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaults.SweepInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}
