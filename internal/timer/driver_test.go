package timer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fakeyudi/tomato/internal/timer"
)

// TestMain ensures the driver never leaves a goroutine behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// fakeClock hands out unbuffered tickers, so a send only succeeds when the
// driver loop is actually selecting on that ticker.
type fakeClock struct {
	created chan *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{created: make(chan *fakeTicker, 16)}
}

func (f *fakeClock) NewTicker(time.Duration) timer.Ticker {
	t := &fakeTicker{c: make(chan time.Time)}
	f.created <- t
	return t
}

func (f *fakeClock) nextTicker(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-f.created:
		return tk
	case <-time.After(time.Second):
		t.Fatal("driver did not create a ticker")
		return nil
	}
}

func (f *fakeClock) assertNoTicker(t *testing.T) {
	t.Helper()
	select {
	case <-f.created:
		t.Fatal("unexpected ticker created")
	default:
	}
}

func deliver(t *testing.T, tk *fakeTicker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case tk.c <- time.Now():
		case <-time.After(time.Second):
			t.Fatalf("tick %d was not consumed", i)
		}
	}
}

func assertNotConsumed(t *testing.T, tk *fakeTicker) {
	t.Helper()
	select {
	case tk.c <- time.Now():
		t.Fatal("tick delivered to a stopped ticker")
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	driver *timer.Driver
	clock  *fakeClock
	cancel context.CancelFunc
	done   chan error
}

func startDriver(t *testing.T, cfg timer.Config, opts ...timer.DriverOption) *harness {
	t.Helper()
	m := newMachine(t, cfg)
	clock := newFakeClock()
	d := timer.NewDriver(m, append([]timer.DriverOption{timer.WithClock(clock)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{driver: d, clock: clock, cancel: cancel, done: make(chan error, 1)}
	go func() { h.done <- d.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
	h.done <- nil // allow stop to be called twice
}

func (h *harness) state(t *testing.T) timer.State {
	t.Helper()
	var st timer.State
	err := h.driver.Do(context.Background(), func(m *timer.Machine) error {
		st = m.State()
		return nil
	})
	require.NoError(t, err)
	return st
}

func (h *harness) do(t *testing.T, fn func(*timer.Machine)) {
	t.Helper()
	require.NoError(t, h.driver.Do(context.Background(), func(m *timer.Machine) error {
		fn(m)
		return nil
	}))
}

func TestDriverNoTickerWhilePaused(t *testing.T) {
	h := startDriver(t, timer.DefaultConfig())

	st := h.state(t)
	assert.False(t, st.Running)
	h.clock.assertNoTicker(t)
}

func TestDriverTicksWhileRunning(t *testing.T) {
	h := startDriver(t, timer.DefaultConfig())

	h.do(t, (*timer.Machine).Start)
	tk := h.clock.nextTicker(t)
	deliver(t, tk, 10)

	st := h.state(t)
	assert.Equal(t, 1490, st.SecondsRemaining)
	assert.True(t, st.Running)
}

func TestDriverPauseStopsTicker(t *testing.T) {
	h := startDriver(t, timer.DefaultConfig())

	h.do(t, (*timer.Machine).Toggle)
	tk := h.clock.nextTicker(t)
	deliver(t, tk, 3)

	h.do(t, (*timer.Machine).Toggle)
	assert.True(t, tk.isStopped())
	assertNotConsumed(t, tk)
	assert.Equal(t, 1497, h.state(t).SecondsRemaining)

	// Resuming arms a fresh ticker; the old one stays dead.
	h.do(t, (*timer.Machine).Toggle)
	tk2 := h.clock.nextTicker(t)
	deliver(t, tk2, 2)
	assert.Equal(t, 1495, h.state(t).SecondsRemaining)
	assertNotConsumed(t, tk)
}

func TestDriverResetAndSwitchStopTicker(t *testing.T) {
	h := startDriver(t, timer.DefaultConfig())

	h.do(t, (*timer.Machine).Start)
	tk := h.clock.nextTicker(t)
	deliver(t, tk, 5)

	h.do(t, (*timer.Machine).Reset)
	assert.True(t, tk.isStopped())
	assert.Equal(t, 1500, h.state(t).SecondsRemaining)

	h.do(t, (*timer.Machine).Start)
	tk2 := h.clock.nextTicker(t)
	h.do(t, func(m *timer.Machine) { _ = m.SwitchMode(timer.PhaseLongBreak) })
	assert.True(t, tk2.isStopped())
	st := h.state(t)
	assert.Equal(t, timer.PhaseLongBreak, st.Phase)
	assert.Equal(t, 900, st.SecondsRemaining)
}

func TestDriverKeepsRunningAcrossTransition(t *testing.T) {
	h := startDriver(t, timer.Config{
		WorkMinutes:             1,
		ShortBreakMinutes:       1,
		LongBreakMinutes:        1,
		SessionsBeforeLongBreak: 4,
	})

	h.do(t, (*timer.Machine).Start)
	tk := h.clock.nextTicker(t)
	deliver(t, tk, 60)

	st := h.state(t)
	assert.Equal(t, timer.PhaseShortBreak, st.Phase)
	assert.Equal(t, 60, st.SecondsRemaining)
	assert.Equal(t, 1, st.CompletedSessions)
	assert.False(t, tk.isStopped(), "transition must not re-arm or stop the ticker")
	h.clock.assertNoTicker(t)
}

func TestDriverDoReturnsCommandError(t *testing.T) {
	h := startDriver(t, timer.DefaultConfig())

	err := h.driver.Do(context.Background(), func(m *timer.Machine) error {
		return m.SetDuration(timer.PhaseWork, 0)
	})
	assert.ErrorIs(t, err, timer.ErrInvalidConfiguration)
}

func TestDriverObserverSeesEveryTick(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	h := startDriver(t, timer.DefaultConfig(), timer.WithObserver(func(s timer.Snapshot) {
		mu.Lock()
		seen = append(seen, s.State.SecondsRemaining)
		mu.Unlock()
	}))

	h.do(t, (*timer.Machine).Start)
	tk := h.clock.nextTicker(t)
	deliver(t, tk, 2)
	h.state(t)

	mu.Lock()
	defer mu.Unlock()
	// initial publish, Start, two ticks, the state query
	assert.Equal(t, []int{1500, 1500, 1499, 1498, 1498}, seen)
}

func TestDriverTeardownStopsTickerAndRejectsCommands(t *testing.T) {
	h := startDriver(t, timer.DefaultConfig())

	h.do(t, (*timer.Machine).Start)
	tk := h.clock.nextTicker(t)
	h.stop()

	assert.True(t, tk.isStopped())
	assertNotConsumed(t, tk)

	err := h.driver.Do(context.Background(), func(*timer.Machine) error { return nil })
	assert.True(t, errors.Is(err, timer.ErrDriverStopped))
}

func TestDriverDoHonoursContext(t *testing.T) {
	m := newMachine(t, timer.DefaultConfig())
	d := timer.NewDriver(m) // never started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Do(ctx, func(*timer.Machine) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDriverWithRealClock(t *testing.T) {
	m := newMachine(t, timer.DefaultConfig())
	ticked := make(chan struct{}, 1)
	d := timer.NewDriver(m, timer.WithInterval(5*time.Millisecond), timer.WithObserver(func(s timer.Snapshot) {
		if s.State.SecondsRemaining < 1500 {
			select {
			case ticked <- struct{}{}:
			default:
			}
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.Do(ctx, func(m *timer.Machine) error { m.Start(); return nil }))
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("real clock never ticked")
	}
	cancel()
	require.NoError(t, <-done)
}
