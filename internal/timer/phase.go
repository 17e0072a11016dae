package timer

import (
	"fmt"
	"strings"
)

// Phase is the countdown category the timer is currently in.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// Phases lists every phase in display order.
var Phases = [...]Phase{PhaseWork, PhaseShortBreak, PhaseLongBreak}

// Valid reports whether p is one of the three known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

// IsBreak reports whether p is a short or long break.
func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

// Label returns the human-readable name used in tabs and status lines.
func (p Phase) Label() string {
	switch p {
	case PhaseWork:
		return "Work"
	case PhaseShortBreak:
		return "Short Break"
	case PhaseLongBreak:
		return "Long Break"
	}
	return string(p)
}

// ParsePhase converts user input into a Phase.
// Accepts the canonical values plus "short", "long", "shortBreak" and "longBreak".
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "work", "focus":
		return PhaseWork, nil
	case "short_break", "short", "shortbreak", "short-break":
		return PhaseShortBreak, nil
	case "long_break", "long", "longbreak", "long-break":
		return PhaseLongBreak, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}
