package job

import "time"

// Config controls the scheduled daily aggregation loop.
type Config struct {
	// PollInterval is how often the worker wakes up to check for
	// unaggregated dates. The run itself is idempotent, so polling
	// more often than once per day is safe.
	PollInterval time.Duration
	// CatchUpDays is how many days back the worker scans for missed
	// dates on each tick, yesterday included.
	CatchUpDays int
}

func DefaultConfig() Config {
	return Config{
		PollInterval: time.Hour,
		CatchUpDays:  3,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}

	if c.CatchUpDays <= 0 {
		c.CatchUpDays = defaults.CatchUpDays
	}
	return c
}
