package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/tomato/internal/settings"
	"github.com/fakeyudi/tomato/internal/timer"
)

// ProjectFile is the per-directory override file.
const ProjectFile = ".tomato.json"

// Config holds all configurable tomato settings.
type Config struct {
	WorkMinutes             int    `json:"work_minutes,omitempty" yaml:"work_minutes,omitempty"`
	ShortBreakMinutes       int    `json:"short_break_minutes,omitempty" yaml:"short_break_minutes,omitempty"`
	LongBreakMinutes        int    `json:"long_break_minutes,omitempty" yaml:"long_break_minutes,omitempty"`
	SessionsBeforeLongBreak int    `json:"sessions_before_long_break,omitempty" yaml:"sessions_before_long_break,omitempty"`
	Sound                   *bool  `json:"sound,omitempty" yaml:"sound,omitempty"`               // nil means on
	SoundCommand            string `json:"sound_command,omitempty" yaml:"sound_command,omitempty"` // e.g. "paplay ding.oga"
	LogLevel                string `json:"log_level,omitempty" yaml:"log_level,omitempty"`         // debug | info | warn | error
	LogFile                 string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	t := timer.DefaultConfig()
	on := true
	return Config{
		WorkMinutes:             t.WorkMinutes,
		ShortBreakMinutes:       t.ShortBreakMinutes,
		LongBreakMinutes:        t.LongBreakMinutes,
		SessionsBeforeLongBreak: t.SessionsBeforeLongBreak,
		Sound:                   &on,
		LogLevel:                "info",
	}
}

// SoundEnabled reports whether completion alerts should be played.
func (c Config) SoundEnabled() bool {
	return c.Sound == nil || *c.Sound
}

// TimerConfig converts the durations to the timer's configuration.
func (c Config) TimerConfig() timer.Config {
	return timer.Config{
		WorkMinutes:             c.WorkMinutes,
		ShortBreakMinutes:       c.ShortBreakMinutes,
		LongBreakMinutes:        c.LongBreakMinutes,
		SessionsBeforeLongBreak: c.SessionsBeforeLongBreak,
	}
}

// Validate checks every duration against the settings slider bounds.
func (c Config) Validate() error {
	tc := c.TimerConfig()
	for _, f := range settings.Fields {
		if err := settings.Validate(f, settings.Value(tc, f)); err != nil {
			return err
		}
	}
	return nil
}

// Set stores value in the field named by f.
func (c *Config) Set(f settings.Field, value int) {
	switch f {
	case settings.FieldWork:
		c.WorkMinutes = value
	case settings.FieldShortBreak:
		c.ShortBreakMinutes = value
	case settings.FieldLongBreak:
		c.LongBreakMinutes = value
	case settings.FieldSessions:
		c.SessionsBeforeLongBreak = value
	}
}

// GlobalPath returns $XDG_CONFIG_HOME/tomato/config.yaml or ~/.config/tomato/config.yaml.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tomato", "config.yaml"), nil
}

// LoadGlobal reads the global YAML config.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path, true)
}

// LoadProject reads .tomato.json in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return LoadFile(ProjectFile, false)
}

// LoadFile reads and parses a config file at path. YAML is used for .yaml and
// .yml files, JSON for everything else.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func LoadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// SaveGlobal writes cfg to the global YAML file atomically via a temp file + os.Rename.
func SaveGlobal(cfg Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	return saveFile(path, cfg)
}

func saveFile(path string, cfg Config) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	overlay(&result, global)
	overlay(&result, project)
	return result
}

func overlay(dst *Config, src *Config) {
	if src == nil {
		return
	}
	if src.WorkMinutes != 0 {
		dst.WorkMinutes = src.WorkMinutes
	}
	if src.ShortBreakMinutes != 0 {
		dst.ShortBreakMinutes = src.ShortBreakMinutes
	}
	if src.LongBreakMinutes != 0 {
		dst.LongBreakMinutes = src.LongBreakMinutes
	}
	if src.SessionsBeforeLongBreak != 0 {
		dst.SessionsBeforeLongBreak = src.SessionsBeforeLongBreak
	}
	if src.Sound != nil {
		v := *src.Sound
		dst.Sound = &v
	}
	if src.SoundCommand != "" {
		dst.SoundCommand = src.SoundCommand
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
