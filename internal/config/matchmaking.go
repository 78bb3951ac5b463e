package config

import "time"

const (
	// Search
	DefaultPollInterval    = 2 * time.Second
	DefaultWaitTimeout     = 5 * time.Minute
	DefaultStaleWaitingAge = 5 * time.Minute
	DefaultSweepInterval   = time.Minute

	// Call
	DefaultCallDurationLimit = 3 * time.Minute

	// Cleanup uses its own deadline so it still runs after the request context is gone.
	DefaultCleanupTimeout = 5 * time.Second
)

// Matchmaking holds the timings of the search and call lifecycle.
type Matchmaking struct {
	PollInterval      time.Duration
	WaitTimeout       time.Duration
	StaleWaitingAge   time.Duration
	SweepInterval     time.Duration
	CallDurationLimit time.Duration
	CleanupTimeout    time.Duration
}

// DefaultMatchmaking returns the production timings.
func DefaultMatchmaking() Matchmaking {
	return Matchmaking{
		PollInterval:      DefaultPollInterval,
		WaitTimeout:       DefaultWaitTimeout,
		StaleWaitingAge:   DefaultStaleWaitingAge,
		SweepInterval:     DefaultSweepInterval,
		CallDurationLimit: DefaultCallDurationLimit,
		CleanupTimeout:    DefaultCleanupTimeout,
	}
}

// WithDefaults fills zero fields with the production timings.
func (m Matchmaking) WithDefaults() Matchmaking {
	d := DefaultMatchmaking()
	if m.PollInterval <= 0 {
		m.PollInterval = d.PollInterval
	}
	if m.WaitTimeout <= 0 {
		m.WaitTimeout = d.WaitTimeout
	}
	if m.StaleWaitingAge <= 0 {
		m.StaleWaitingAge = d.StaleWaitingAge
	}
	if m.SweepInterval <= 0 {
		m.SweepInterval = d.SweepInterval
	}
	if m.CallDurationLimit <= 0 {
		m.CallDurationLimit = d.CallDurationLimit
	}
	if m.CleanupTimeout <= 0 {
		m.CleanupTimeout = d.CleanupTimeout
	}
	return m
}
