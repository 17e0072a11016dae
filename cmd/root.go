package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/tomato/internal/config"
	"github.com/fakeyudi/tomato/internal/logging"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is replaced by the configured logger in PersistentPreRunE.
var logger = logging.Nop()

var (
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:          "tomato",
	Short:        "A Pomodoro timer for the terminal",
	Long:         "tomato alternates focused work sessions with short breaks, and takes a long break after every few sessions.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)

		// Flags win over both files.
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logFile != "" {
			cfg.LogFile = logFile
		}

		// A broken log setting must not lock the user out of "settings set".
		l, err := logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: logging disabled: %v\n", err)
			l = logging.Nop()
		}
		logger = l
		logger.Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.Int("work_minutes", cfg.WorkMinutes),
			zap.Int("short_break_minutes", cfg.ShortBreakMinutes),
			zap.Int("long_break_minutes", cfg.LongBreakMinutes),
			zap.Int("sessions_before_long_break", cfg.SessionsBeforeLongBreak),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	// Bare "tomato" starts the timer with default run flags.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTimer(cmd, runOpts)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path, or \"stderr\" (default $XDG_STATE_HOME/tomato/tomato.log)")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}
