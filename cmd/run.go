package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/tomato/internal/config"
	"github.com/fakeyudi/tomato/internal/notify"
	"github.com/fakeyudi/tomato/internal/settings"
	"github.com/fakeyudi/tomato/internal/timer"
	"github.com/fakeyudi/tomato/internal/tui"
)

// runOptions holds the run flags. Zero durations mean "use the config value".
type runOptions struct {
	plain    bool
	work     int
	short    int
	long     int
	sessions int
	phase    string
	noSound  bool
	watch    bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the timer",
	Long: `Start the timer in the interactive UI.

When stdin is not a terminal, or with --plain, the timer starts immediately
and prints one line each time the phase changes. Stop it with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTimer(cmd, runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runOpts.plain, "plain", false, "print phase changes instead of the interactive UI")
	f.IntVar(&runOpts.work, "work", 0, "work minutes (5-60, step 5)")
	f.IntVar(&runOpts.short, "short", 0, "short break minutes (1-15)")
	f.IntVar(&runOpts.long, "long", 0, "long break minutes (10-30, step 5)")
	f.IntVar(&runOpts.sessions, "sessions", 0, "work sessions before a long break (2-6)")
	f.StringVar(&runOpts.phase, "phase", "", "phase to start in: work, short_break or long_break")
	f.BoolVar(&runOpts.noSound, "no-sound", false, "disable completion alerts")
	f.BoolVar(&runOpts.watch, "watch", false, "apply changes to the global config file while running")
	rootCmd.AddCommand(runCmd)
}

// apply overlays the flag values on c. Each override is checked against the
// settings bounds.
func (o runOptions) apply(c config.Config) (config.Config, error) {
	overrides := []struct {
		flag  string
		field settings.Field
		value int
	}{
		{"work", settings.FieldWork, o.work},
		{"short", settings.FieldShortBreak, o.short},
		{"long", settings.FieldLongBreak, o.long},
		{"sessions", settings.FieldSessions, o.sessions},
	}
	for _, ov := range overrides {
		if ov.value == 0 {
			continue
		}
		if err := settings.Validate(ov.field, ov.value); err != nil {
			return c, fmt.Errorf("--%s: %w", ov.flag, err)
		}
		c.Set(ov.field, ov.value)
	}
	if o.noSound {
		off := false
		c.Sound = &off
	}
	return c, nil
}

func runTimer(cmd *cobra.Command, opts runOptions) error {
	c, err := opts.apply(GetConfig())
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	notifier, closer := notify.Build(c.SoundEnabled(), c.SoundCommand, cmd.ErrOrStderr(), logger)
	defer closer.Close()

	machine, err := timer.New(c.TimerConfig(), timer.WithNotifier(notifier), timer.WithLogger(logger))
	if err != nil {
		return err
	}
	if opts.phase != "" {
		p, err := timer.ParsePhase(opts.phase)
		if err != nil {
			return fmt.Errorf("--phase: %w", err)
		}
		if err := machine.SwitchMode(p); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var watch watchFunc
	if opts.watch {
		watch = globalWatcher(opts)
	}

	interactive := !opts.plain && term.IsTerminal(os.Stdin.Fd())
	logger.Info("timer starting",
		zap.Bool("interactive", interactive),
		zap.String("phase", string(machine.State().Phase)),
		zap.Bool("watch", opts.watch),
	)
	if interactive {
		return runInteractive(ctx, machine, watch)
	}
	return runPlain(ctx, cmd.OutOrStdout(), machine, watch)
}

// watchFunc blocks until ctx is done, calling onChange with every reloaded
// timer configuration.
type watchFunc func(ctx context.Context, onChange func(timer.Config)) error

// globalWatcher watches the global config file. Reloaded values are merged
// with the project file and the run flags, so flags keep winning.
func globalWatcher(opts runOptions) watchFunc {
	return func(ctx context.Context, onChange func(timer.Config)) error {
		path, err := config.GlobalPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		load := func() (config.Config, error) {
			merged, err := config.LoadMerged()
			if err != nil {
				return config.Config{}, err
			}
			return opts.apply(merged)
		}
		return config.Watch(ctx, path, load, func(c config.Config) {
			onChange(c.TimerConfig())
		}, logger)
	}
}

func runInteractive(ctx context.Context, machine *timer.Machine, watch watchFunc) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	var reloads chan timer.Config
	if watch != nil {
		reloads = make(chan timer.Config, 1)
		g.Go(func() error {
			return watch(ctx, func(c timer.Config) {
				select {
				case reloads <- c:
				case <-ctx.Done():
				}
			})
		})
	}
	g.Go(func() error {
		// Quitting the UI stops the watcher too.
		defer cancel()
		err := tui.Run(ctx, machine, reloads)
		if errors.Is(err, tea.ErrProgramKilled) && parent.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// runPlain drives machine on a ticker and writes a status line whenever the
// phase or session count changes. It returns nil once ctx is cancelled.
func runPlain(ctx context.Context, w io.Writer, machine *timer.Machine, watch watchFunc, opts ...timer.DriverOption) error {
	var last timer.State
	first := true
	observer := func(s timer.Snapshot) {
		st := s.State
		if first || st.Phase != last.Phase || st.CompletedSessions != last.CompletedSessions {
			fmt.Fprintln(w, statusLine(st))
		}
		first = false
		last = st
	}

	opts = append([]timer.DriverOption{
		timer.WithObserver(observer),
		timer.WithDriverLogger(logger),
	}, opts...)
	driver := timer.NewDriver(machine, opts...)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return driver.Run(ctx) })
	g.Go(func() error {
		return driver.Do(ctx, func(m *timer.Machine) error {
			m.Start()
			return nil
		})
	})
	if watch != nil {
		g.Go(func() error {
			return watch(ctx, func(c timer.Config) {
				err := driver.Do(ctx, func(m *timer.Machine) error {
					return settings.ApplyConfig(m, c)
				})
				if err != nil && ctx.Err() == nil {
					logger.Warn("reloaded settings rejected", zap.Error(err))
				}
			})
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, timer.ErrDriverStopped) {
		return nil
	}
	return err
}

// statusLine formats a state as "MM:SS phase session N".
func statusLine(st timer.State) string {
	return fmt.Sprintf("%s %s session %d", timer.FormatClock(st.SecondsRemaining), st.Phase, st.CompletedSessions+1)
}
