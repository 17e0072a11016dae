package timer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrDriverStopped is returned by Do once the driver's Run loop has exited.
var ErrDriverStopped = errors.New("timer driver stopped")

// Ticker is the subset of time.Ticker the driver needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers. Tests substitute a fake to deliver ticks by hand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// RealClock is a Clock backed by time.NewTicker.
type RealClock struct{}

func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type command struct {
	fn   func(*Machine) error
	done chan error
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClock replaces the wall clock.
func WithClock(c Clock) DriverOption {
	return func(d *Driver) { d.clock = c }
}

// WithInterval sets the tick period. Defaults to one second.
func WithInterval(interval time.Duration) DriverOption {
	return func(d *Driver) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithObserver registers a callback invoked on the loop goroutine after every
// tick and every command.
func WithObserver(fn func(Snapshot)) DriverOption {
	return func(d *Driver) { d.observer = fn }
}

// WithDriverLogger sets the driver's logger.
func WithDriverLogger(l *zap.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// Driver owns a Machine and feeds it ticks and user commands from a single
// goroutine. A ticker exists only while the machine is running.
type Driver struct {
	machine  *Machine
	clock    Clock
	interval time.Duration
	observer func(Snapshot)
	logger   *zap.Logger
	commands chan command
	stopped  chan struct{}
}

// NewDriver wraps m. The machine must not be touched directly once Run starts.
func NewDriver(m *Machine, opts ...DriverOption) *Driver {
	d := &Driver{
		machine:  m,
		clock:    RealClock{},
		interval: time.Second,
		logger:   zap.NewNop(),
		commands: make(chan command),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do runs fn on the driver's loop and returns its error. It blocks until fn
// has been applied and the ticker matches the new running state, ctx is
// cancelled, or the driver has stopped.
func (d *Driver) Do(ctx context.Context, fn func(*Machine) error) error {
	c := command{fn: fn, done: make(chan error, 1)}
	select {
	case d.commands <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrDriverStopped
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes ticks and commands until ctx is cancelled. Any live ticker is
// stopped before Run returns.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.stopped)

	var ticker Ticker
	var tickC <-chan time.Time
	syncTicker := func() {
		running := d.machine.State().Running
		switch {
		case running && ticker == nil:
			ticker = d.clock.NewTicker(d.interval)
			tickC = ticker.C()
			d.logger.Debug("ticker armed", zap.Duration("interval", d.interval))
		case !running && ticker != nil:
			ticker.Stop()
			ticker, tickC = nil, nil
			d.logger.Debug("ticker stopped")
		}
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	syncTicker()
	d.publish()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-tickC:
			d.machine.Tick()
			d.publish()

		case c := <-d.commands:
			err := c.fn(d.machine)
			syncTicker()
			d.publish()
			c.done <- err
		}
	}
}

func (d *Driver) publish() {
	if d.observer != nil {
		d.observer(d.machine.Snapshot())
	}
}
