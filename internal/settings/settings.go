// Package settings holds the slider bounds for user-editable timer settings
// and applies validated changes to a timer.Machine.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fakeyudi/tomato/internal/timer"
)

// Field names one editable setting.
type Field string

const (
	FieldWork       Field = "work"
	FieldShortBreak Field = "short_break"
	FieldLongBreak  Field = "long_break"
	FieldSessions   Field = "sessions"
)

// Fields lists every field in the order the settings panel shows them.
var Fields = [...]Field{FieldWork, FieldShortBreak, FieldLongBreak, FieldSessions}

// Bounds describes the slider for a field.
type Bounds struct {
	Min, Max, Step int
	Unit           string
}

var bounds = map[Field]Bounds{
	FieldWork:       {Min: 5, Max: 60, Step: 5, Unit: "min"},
	FieldShortBreak: {Min: 1, Max: 15, Step: 1, Unit: "min"},
	FieldLongBreak:  {Min: 10, Max: 30, Step: 5, Unit: "min"},
	FieldSessions:   {Min: 2, Max: 6, Step: 1, Unit: "sessions"},
}

// BoundsFor returns the slider bounds of f.
func BoundsFor(f Field) (Bounds, bool) {
	b, ok := bounds[f]
	return b, ok
}

// Label is the text shown next to the field in the settings panel.
func (f Field) Label() string {
	switch f {
	case FieldWork:
		return "Work"
	case FieldShortBreak:
		return "Short break"
	case FieldLongBreak:
		return "Long break"
	case FieldSessions:
		return "Sessions before long break"
	}
	return string(f)
}

// Phase returns the timer phase a duration field controls.
// The sessions field has no phase.
func (f Field) Phase() (timer.Phase, bool) {
	switch f {
	case FieldWork:
		return timer.PhaseWork, true
	case FieldShortBreak:
		return timer.PhaseShortBreak, true
	case FieldLongBreak:
		return timer.PhaseLongBreak, true
	}
	return "", false
}

// ParseField converts a user-supplied name into a Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "work", "work_minutes":
		return FieldWork, nil
	case "short_break", "short", "shortbreak", "short_break_minutes":
		return FieldShortBreak, nil
	case "long_break", "long", "longbreak", "long_break_minutes":
		return FieldLongBreak, nil
	case "sessions", "sessions_before_long_break":
		return FieldSessions, nil
	}
	return "", fmt.Errorf("unknown setting %q (valid: work, short_break, long_break, sessions)", s)
}

// Validate checks value against the slider range and step of f.
func Validate(f Field, value int) error {
	b, ok := bounds[f]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", timer.ErrInvalidConfiguration, f)
	}
	if value < b.Min || value > b.Max {
		return fmt.Errorf("%w: %s must be between %d and %d %s, got %d",
			timer.ErrInvalidConfiguration, f, b.Min, b.Max, b.Unit, value)
	}
	if (value-b.Min)%b.Step != 0 {
		return fmt.Errorf("%w: %s must move in steps of %d, got %d",
			timer.ErrInvalidConfiguration, f, b.Step, value)
	}
	return nil
}

// Value reads the current value of f from cfg.
func Value(cfg timer.Config, f Field) int {
	if p, ok := f.Phase(); ok {
		return cfg.Minutes(p)
	}
	if f == FieldSessions {
		return cfg.SessionsBeforeLongBreak
	}
	return 0
}

// Apply validates value and hands it to the machine.
func Apply(m *timer.Machine, f Field, value int) error {
	if err := Validate(f, value); err != nil {
		return err
	}
	if p, ok := f.Phase(); ok {
		return m.SetDuration(p, value)
	}
	return m.SetSessionsBeforeLongBreak(value)
}

// ApplyConfig applies every field of cfg through Apply. Rejected fields are
// skipped and their errors joined; accepted fields still take effect.
func ApplyConfig(m *timer.Machine, cfg timer.Config) error {
	var errs []error
	for _, f := range Fields {
		if err := Apply(m, f, Value(cfg, f)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Step moves value by delta slider steps, clamped to the range of f.
// Values off the step grid snap to the nearest grid point first.
func Step(f Field, value, delta int) int {
	b, ok := bounds[f]
	if !ok {
		return value
	}
	idx := (value - b.Min + b.Step/2) / b.Step
	if value < b.Min {
		idx = 0
	}
	v := b.Min + (idx+delta)*b.Step
	if v < b.Min {
		v = b.Min
	}
	if v > b.Max {
		v = b.Max
	}
	return v
}
