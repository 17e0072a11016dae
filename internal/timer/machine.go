// Package timer implements the Pomodoro state machine: a work/short-break/
// long-break cycle counted down one second per tick.
//
// A Machine is not safe for concurrent use. It is meant to be owned by a
// single event loop (the Bubble Tea program or a Driver) that serialises
// ticks and user actions.
package timer

import (
	"fmt"

	"go.uber.org/zap"
)

// State is the mutable part of the timer observed by displays.
type State struct {
	Phase             Phase
	SecondsRemaining  int
	Running           bool
	CompletedSessions int
}

// Completion describes a finished phase. It is handed to the Notifier.
type Completion struct {
	From              Phase
	To                Phase
	CompletedSessions int
}

// Notifier is told about every phase completion, exactly once per completion.
// Errors are logged and otherwise ignored.
type Notifier interface {
	Notify(c Completion) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(c Completion) error

func (f NotifierFunc) Notify(c Completion) error { return f(c) }

// Snapshot is a read-only view of the machine for rendering.
type Snapshot struct {
	State    State
	Config   Config
	Progress float64
}

// Option configures a Machine.
type Option func(*Machine)

// WithNotifier sets the sink that receives phase completions.
func WithNotifier(n Notifier) Option {
	return func(m *Machine) { m.notifier = n }
}

// WithLogger sets the logger used for transitions and swallowed notification errors.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// Machine is the Pomodoro state machine.
type Machine struct {
	cfg      Config
	state    State
	notifier Notifier
	logger   *zap.Logger
}

// New returns a paused machine at the start of a work phase.
func New(cfg Config, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{
		cfg:    cfg,
		logger: zap.NewNop(),
		state: State{
			Phase:            PhaseWork,
			SecondsRemaining: cfg.Seconds(PhaseWork),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

// Config returns a copy of the current configuration.
func (m *Machine) Config() Config { return m.cfg }

// Snapshot returns state, config and progress in one value.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{State: m.state, Config: m.cfg, Progress: m.ProgressFraction()}
}

// Toggle flips between running and paused.
func (m *Machine) Toggle() {
	m.state.Running = !m.state.Running
}

// Start marks the machine as running.
func (m *Machine) Start() { m.state.Running = true }

// Pause marks the machine as paused.
func (m *Machine) Pause() { m.state.Running = false }

// Tick advances the countdown by one second. It does nothing while paused.
// The tick that reaches zero completes the phase in the same call, and the
// machine keeps running in the next phase. A countdown already at zero also
// completes instead of going negative. Tick reports whether a phase completed.
func (m *Machine) Tick() bool {
	if !m.state.Running {
		return false
	}
	if m.state.SecondsRemaining > 0 {
		m.state.SecondsRemaining--
		if m.state.SecondsRemaining > 0 {
			return false
		}
	}
	m.completePhase()
	return true
}

// completePhase applies the transition policy. Only Tick calls it.
func (m *Machine) completePhase() {
	from := m.state.Phase
	next := PhaseWork
	if from == PhaseWork {
		m.state.CompletedSessions++
		if m.state.CompletedSessions%m.cfg.SessionsBeforeLongBreak == 0 {
			next = PhaseLongBreak
		} else {
			next = PhaseShortBreak
		}
	}
	m.state.Phase = next
	m.state.SecondsRemaining = m.cfg.Seconds(next)

	m.logger.Debug("phase complete",
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.Int("sessions", m.state.CompletedSessions))

	if m.notifier == nil {
		return
	}
	c := Completion{From: from, To: next, CompletedSessions: m.state.CompletedSessions}
	if err := m.notifier.Notify(c); err != nil {
		m.logger.Warn("notification failed", zap.Error(err))
	}
}

// Reset pauses and rewinds the current phase to its full duration.
func (m *Machine) Reset() {
	m.state.Running = false
	m.state.SecondsRemaining = m.cfg.Seconds(m.state.Phase)
}

// SwitchMode pauses and jumps to the start of p, discarding progress in the
// current phase. The session count is left alone.
func (m *Machine) SwitchMode(p Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, p)
	}
	m.state.Running = false
	m.state.Phase = p
	m.state.SecondsRemaining = m.cfg.Seconds(p)
	return nil
}

// SetDuration changes the length of p. If p is the active phase and the value
// actually changed, the countdown restarts at the new length whether or not the
// timer is running. Non-positive values are rejected and leave the machine untouched.
func (m *Machine) SetDuration(p Phase, minutes int) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, p)
	}
	if minutes <= 0 {
		return fmt.Errorf("%w: %s duration must be positive, got %d", ErrInvalidConfiguration, p, minutes)
	}
	if m.cfg.Minutes(p) == minutes {
		return nil
	}
	m.cfg.setMinutes(p, minutes)
	if p == m.state.Phase {
		m.state.SecondsRemaining = m.cfg.Seconds(p)
	}
	return nil
}

// SetSessionsBeforeLongBreak changes how many work sessions earn a long break.
// The countdown is not affected.
func (m *Machine) SetSessionsBeforeLongBreak(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: sessions before long break must be positive, got %d", ErrInvalidConfiguration, n)
	}
	m.cfg.SessionsBeforeLongBreak = n
	return nil
}

// ProgressFraction returns how much of the current phase has elapsed, in [0, 1].
func (m *Machine) ProgressFraction() float64 {
	total := m.cfg.Seconds(m.state.Phase)
	if total <= 0 {
		return 0
	}
	f := 1 - float64(m.state.SecondsRemaining)/float64(total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FormatClock renders seconds as zero-padded MM:SS. Minutes are not wrapped at 60.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
