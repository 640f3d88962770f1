// Package config loads the courtroom config file.
//
// The file is line oriented: "name value", where the value is the rest of the
// line. Lines starting with # are comments. A "[name]" header starts a
// section; options below it belong to that section until the next header.
// The [timers] section is parsed strictly into TimerConfig; every other key is
// kept as a string and checked against DefaultSchema, with problems reported
// as warnings.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultRoundSeconds   = 300
	DefaultVerdictSeconds = 60

	// TimersSection is the section holding countdown lengths.
	TimersSection = "timers"
)

type Config struct {
	Global map[string]string
	// Commands holds per-section options, keyed by section name.
	Commands map[string]map[string]string
	Timers   TimerConfig
	// Warnings collects the non-fatal problems found while loading.
	Warnings []string
}

// TimerConfig holds the countdown lengths in whole seconds.
type TimerConfig struct {
	RoundSeconds   int `json:"round" default:"300"`
	VerdictSeconds int `json:"verdict" default:"60"`
}

// Set assigns a [timers] option from its textual value. Lengths must be
// whole seconds, at least one.
func (tc *TimerConfig) Set(name, value string) error {
	var field *int
	switch name {
	case "round":
		field = &tc.RoundSeconds
	case "verdict":
		field = &tc.VerdictSeconds
	default:
		return fmt.Errorf("unknown timer option: %s", name)
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer value %q: %w", value, err)
	}
	if seconds < 1 {
		return fmt.Errorf("%s must be at least 1 second: %d", name, seconds)
	}
	*field = seconds
	return nil
}

func NewConfig() *Config {
	return &Config{
		Global:   make(map[string]string),
		Commands: make(map[string]map[string]string),
		Timers:   TimerConfig{RoundSeconds: DefaultRoundSeconds, VerdictSeconds: DefaultVerdictSeconds},
	}
}

// Load reads the file named by GetConfigPath. A missing file yields an
// empty config.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load for an explicit path. Symlinks are rejected; only the
// final path component is checked.
func LoadFromPath(path string) (*Config, error) {
	fi, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		return NewConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	case fi.Mode()&os.ModeSymlink != 0:
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses a config file. Only read failures and bad [timers]
// values are errors.
func LoadFromReader(r io.Reader) (*Config, error) {
	c := NewConfig()
	var section string

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if name, ok := sectionHeader(line); ok {
			section = name
			if section != TimersSection && c.Commands[section] == nil {
				c.Commands[section] = make(map[string]string)
			}
			continue
		}

		name, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		switch section {
		case "":
			c.Global[name] = value
		case TimersSection:
			if err := c.Timers.Set(name, value); err != nil {
				return nil, fmt.Errorf("line %d: invalid timer option %q: %w", n, name, err)
			}
		default:
			c.Commands[section][name] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range ValidateConfig(c, DefaultSchema()) {
		c.addWarning("%s", issue)
	}
	return c, nil
}

func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// parseBool accepts true/false, 1/0, yes/no and on/off, ignoring case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}

func (c *Config) GetGlobalOption(name string) (string, bool) {
	v, ok := c.Global[name]
	return v, ok
}

// GetCommandOption looks name up in the command's section, falling back to
// the global value.
func (c *Config) GetCommandOption(command, name string) (string, bool) {
	if v, ok := c.Commands[command][name]; ok {
		return v, true
	}
	return c.GetGlobalOption(name)
}

func (c *Config) SetGlobalOption(name, value string) {
	c.Global[name] = value
}

func (c *Config) SetCommandOption(command, name, value string) {
	if c.Commands[command] == nil {
		c.Commands[command] = make(map[string]string)
	}
	c.Commands[command][name] = value
}

func (c *Config) GetWarnings() []string { return c.Warnings }

func (c *Config) HasWarnings() bool { return len(c.Warnings) != 0 }
