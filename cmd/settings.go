package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/tomato/internal/config"
	"github.com/fakeyudi/tomato/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective timer settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		out := cmd.OutOrStdout()
		tc := c.TimerConfig()
		for _, f := range settings.Fields {
			b, _ := settings.BoundsFor(f)
			fmt.Fprintf(out, "%-28s %3d %s\n", f.Label(), settings.Value(tc, f), b.Unit)
		}
		sound := "on"
		if !c.SoundEnabled() {
			sound = "off"
		}
		fmt.Fprintf(out, "%-28s %s\n", "Sound", sound)
		if c.SoundCommand != "" {
			fmt.Fprintf(out, "%-28s %s\n", "Sound command", c.SoundCommand)
		}
		if path, err := config.GlobalPath(); err == nil {
			fmt.Fprintf(out, "\nGlobal file: %s\n", path)
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Save a timer setting to the global config file",
	Long: `Save a timer setting to the global config file.

Fields and their ranges:
  work         5-60 minutes, step 5
  short_break  1-15 minutes
  long_break   10-30 minutes, step 5
  sessions     2-6 work sessions before a long break`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := settings.ParseField(args[0])
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q: must be a whole number", args[1])
		}
		if err := settings.Validate(field, value); err != nil {
			return err
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		global.Set(field, value)
		if err := config.SaveGlobal(*global); err != nil {
			return err
		}
		logger.Info("setting saved", zap.String("field", string(field)), zap.Int("value", value))

		b, _ := settings.BoundsFor(field)
		fmt.Fprintf(cmd.OutOrStdout(), "%s set to %d %s\n", field.Label(), value, b.Unit)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
