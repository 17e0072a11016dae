// Package notify provides the audible alert played when a timer phase ends.
// Every sink is fire-and-forget from the timer's point of view: errors are
// reported to the caller, which logs and drops them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fakeyudi/tomato/internal/timer"
)

// Silent ignores every completion.
type Silent struct{}

func (Silent) Notify(timer.Completion) error { return nil }

// Bell rings the terminal bell by writing BEL to W.
type Bell struct {
	W io.Writer
}

func (b Bell) Notify(timer.Completion) error {
	if b.W == nil {
		return errors.New("bell: no output")
	}
	_, err := io.WriteString(b.W, "\a")
	return err
}

// Runner executes an external program. This abstraction allows mocking in tests.
type Runner func(ctx context.Context, name string, args ...string) error

// defaultRunner runs the program as a real subprocess.
func defaultRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return err
}

// Command plays a sound by running a user-configured command line such as
// "paplay /usr/share/sounds/freedesktop/stereo/complete.oga".
type Command struct {
	Line    string
	Timeout time.Duration
	Runner  Runner // if nil, uses a real subprocess
}

func (c Command) Notify(timer.Completion) error {
	fields := strings.Fields(c.Line)
	if len(fields) == 0 {
		return errors.New("sound command is empty")
	}
	runner := c.Runner
	if runner == nil {
		runner = defaultRunner
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := runner(ctx, fields[0], fields[1:]...); err != nil {
		return fmt.Errorf("sound command %q: %w", fields[0], err)
	}
	return nil
}

// Multi notifies every sink in order and joins their errors.
type Multi []timer.Notifier

func (m Multi) Notify(c timer.Completion) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async runs a slow sink in the background so the event loop never waits on it.
// Failures are logged. Close waits for in-flight notifications.
type Async struct {
	Sink   timer.Notifier
	Logger *zap.Logger

	wg sync.WaitGroup
}

func (a *Async) Notify(c timer.Completion) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Sink.Notify(c); err != nil && a.Logger != nil {
			a.Logger.Warn("background notification failed",
				zap.String("phase", string(c.From)),
				zap.Error(err))
		}
	}()
	return nil
}

// Close blocks until every started notification has finished.
func (a *Async) Close() error {
	a.wg.Wait()
	return nil
}

// Build assembles the sink used by the CLI: nothing when sound is disabled,
// otherwise the terminal bell plus the optional background sound command.
// The returned closer waits for background sounds and is never nil.
func Build(enabled bool, soundCommand string, w io.Writer, logger *zap.Logger) (timer.Notifier, io.Closer) {
	if !enabled {
		return Silent{}, io.NopCloser(nil)
	}
	sinks := Multi{Bell{W: w}}
	if strings.TrimSpace(soundCommand) == "" {
		return sinks, io.NopCloser(nil)
	}
	async := &Async{Sink: Command{Line: soundCommand}, Logger: logger}
	return append(sinks, async), async
}
