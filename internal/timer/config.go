package timer

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when a duration or session count is not usable.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrUnknownPhase is returned when an operation names a phase that does not exist.
var ErrUnknownPhase = errors.New("unknown phase")

// Config holds the tunable durations of the timer.
type Config struct {
	WorkMinutes             int
	ShortBreakMinutes       int
	LongBreakMinutes        int
	SessionsBeforeLongBreak int
}

// DefaultConfig returns the classic 25/5/15 schedule with a long break every 4 sessions.
func DefaultConfig() Config {
	return Config{
		WorkMinutes:             25,
		ShortBreakMinutes:       5,
		LongBreakMinutes:        15,
		SessionsBeforeLongBreak: 4,
	}
}

// Validate rejects any non-positive field.
func (c Config) Validate() error {
	for _, p := range Phases {
		if c.Minutes(p) <= 0 {
			return fmt.Errorf("%w: %s duration must be positive, got %d", ErrInvalidConfiguration, p, c.Minutes(p))
		}
	}
	if c.SessionsBeforeLongBreak <= 0 {
		return fmt.Errorf("%w: sessions before long break must be positive, got %d", ErrInvalidConfiguration, c.SessionsBeforeLongBreak)
	}
	return nil
}

// Minutes returns the configured length of p in minutes, or 0 for an unknown phase.
func (c Config) Minutes(p Phase) int {
	switch p {
	case PhaseWork:
		return c.WorkMinutes
	case PhaseShortBreak:
		return c.ShortBreakMinutes
	case PhaseLongBreak:
		return c.LongBreakMinutes
	}
	return 0
}

// Seconds returns the configured length of p in seconds.
func (c Config) Seconds(p Phase) int {
	return c.Minutes(p) * 60
}

func (c *Config) setMinutes(p Phase, minutes int) {
	switch p {
	case PhaseWork:
		c.WorkMinutes = minutes
	case PhaseShortBreak:
		c.ShortBreakMinutes = minutes
	case PhaseLongBreak:
		c.LongBreakMinutes = minutes
	}
}
