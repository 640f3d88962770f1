package config

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType names the kind of value an option accepts.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration"
	// TypeEnum accepts one of ConfigOption.Values.
	TypeEnum OptionType = "enum"
)

// ConfigOption describes one recognised key of the config file.
type ConfigOption struct {
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is "" for a global option.
	Section string
	// EnvVar, when set, overrides the file value for global options.
	EnvVar string
	Values []string
}

// Validate reports whether value is acceptable for the option.
func (o *ConfigOption) Validate(value string) error {
	if o.Type == TypeEnum {
		if slices.Contains(o.Values, value) {
			return nil
		}
		return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Values, "|"), value)
	}
	return validateType(o.Type, value)
}

func (o *ConfigOption) notes() []string {
	var notes []string
	if o.Type != "" && o.Type != TypeString && o.Type != TypeEnum {
		notes = append(notes, "type: "+string(o.Type))
	}
	if len(o.Values) != 0 {
		notes = append(notes, "values: "+strings.Join(o.Values, "|"))
	}
	if o.Default != "" {
		notes = append(notes, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		notes = append(notes, "env: "+o.EnvVar)
	}
	return notes
}

func validateType(t OptionType, value string) error {
	var err error
	switch t {
	case "", TypeString:
	case TypeBool:
		_, err = parseBool(value)
	case TypeInt:
		_, err = strconv.Atoi(value)
	case TypeDuration:
		_, err = time.ParseDuration(value)
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	if err != nil {
		return fmt.Errorf("expected %s, got %q", t, value)
	}
	return nil
}

type optionRef struct{ section, key string }

// ConfigSchema is the set of options the application understands, in
// registration order.
type ConfigSchema struct {
	order []optionRef
	index map[optionRef]*ConfigOption
}

func NewSchema() *ConfigSchema {
	return &ConfigSchema{index: make(map[optionRef]*ConfigOption)}
}

// Register adds opt, replacing any earlier option with the same section and
// key while keeping its position.
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := optionRef{opt.Section, opt.Key}
	if _, ok := s.index[ref]; !ok {
		s.order = append(s.order, ref)
	}
	s.index[ref] = &opt
}

func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the option registered under section ("" for global) and
// key, or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	return s.index[optionRef{section, key}]
}

// find is Lookup with the global fallback that command sections allow.
func (s *ConfigSchema) find(section, key string) *ConfigOption {
	if opt := s.Lookup(section, key); opt != nil {
		return opt
	}
	return s.Lookup("", key)
}

// IsKnown reports whether key may appear in section. Global keys are
// accepted in every section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.find(section, key) != nil
}

func (s *ConfigSchema) options(section string) []ConfigOption {
	var out []ConfigOption
	for _, ref := range s.order {
		if ref.section == section {
			out = append(out, *s.index[ref])
		}
	}
	return out
}

func (s *ConfigSchema) GlobalOptions() []ConfigOption { return s.options("") }

func (s *ConfigSchema) SectionOptions(section string) []ConfigOption { return s.options(section) }

// Sections lists the named sections, sorted.
func (s *ConfigSchema) Sections() []string {
	var out []string
	for _, ref := range s.order {
		if ref.section != "" && !slices.Contains(out, ref.section) {
			out = append(out, ref.section)
		}
	}
	slices.Sort(out)
	return out
}

// SplitKey maps a user-facing key onto a section and option. Global keys
// contain dots themselves, so they win; otherwise "timers.round" names the
// round option of [timers]. ok is false when nothing matches.
func (s *ConfigSchema) SplitKey(key string) (section, name string, ok bool) {
	if s.Lookup("", key) != nil {
		return "", key, true
	}
	section, name, found := strings.Cut(key, ".")
	if !found || s.Lookup(section, name) == nil {
		return "", "", false
	}
	return section, name, true
}

// Resolve returns the effective value of a global key. The option's
// environment variable wins when it is set, even to "", then the config
// file, then the registered default.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if v, ok := c.GetGlobalOption(key); ok {
		return v
	}
	if opt == nil {
		return ""
	}
	return opt.Default
}

// ResolveInt is Resolve parsed as an integer. Unparseable values fall back to
// the registered default.
func (s *ConfigSchema) ResolveInt(c *Config, key string) int {
	if i, err := strconv.Atoi(s.Resolve(c, key)); err == nil {
		return i
	}
	if opt := s.Lookup("", key); opt != nil {
		i, _ := strconv.Atoi(opt.Default)
		return i
	}
	return 0
}

// ResolveBool is Resolve parsed as a boolean, false when unparseable.
func (s *ConfigSchema) ResolveBool(c *Config, key string) bool {
	b, _ := parseBool(s.Resolve(c, key))
	return b
}

// SectionValue returns the value of key in section as the config holds it,
// or the registered default. [timers] is read from c.Timers.
func (s *ConfigSchema) SectionValue(c *Config, section, key string) string {
	if section == TimersSection {
		switch key {
		case "round":
			return strconv.Itoa(c.Timers.RoundSeconds)
		case "verdict":
			return strconv.Itoa(c.Timers.VerdictSeconds)
		}
	}
	if v, ok := c.GetCommandOption(section, key); ok {
		return v
	}
	if opt := s.find(section, key); opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig lists the problems found in c, sorted. Unknown keys and
// values that do not fit the declared type are reported.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	report := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	for key, value := range c.Global {
		switch opt := s.Lookup("", key); {
		case opt == nil:
			report("unknown global option: %q (value: %q)", key, value)
		case opt.Validate(value) != nil:
			report("global option %q: %v", key, opt.Validate(value))
		}
	}
	for section, values := range c.Commands {
		for key, value := range values {
			switch opt := s.find(section, key); {
			case opt == nil:
				report("unknown option for command %q: %q (value: %q)", section, key, value)
			case opt.Validate(value) != nil:
				report("option %q in [%s]: %v", key, section, opt.Validate(value))
			}
		}
	}

	slices.Sort(issues)
	return issues
}

// GetString returns the global value of key, or "".
func (c *Config) GetString(key string) string {
	v, _ := c.GetGlobalOption(key)
	return v
}

// FormatHelp renders every registered option, globals first and then one
// block per section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	block := func(title string, opts []ConfigOption) {
		if len(opts) == 0 {
			return
		}
		if b.Len() != 0 {
			b.WriteByte('\n')
		}
		b.WriteString(title + ":\n")
		for _, o := range opts {
			line := fmt.Sprintf("  %-35s %s", o.Key, o.Description)
			if notes := o.notes(); len(notes) != 0 {
				line += " (" + strings.Join(notes, ", ") + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	block("Global Options", s.GlobalOptions())
	for _, sec := range s.Sections() {
		block("["+sec+"] Options", s.SectionOptions(sec))
	}
	return b.String()
}

// DefaultSchema returns the schema declaring every known courtroom option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultOptions())
	return s
}

func defaultOptions() []ConfigOption {
	opts := []ConfigOption{
		{Key: "session.id", Description: "Override session ID", EnvVar: "COURTROOM_SESSION_ID"},
		{Key: "storage.backend", Type: TypeEnum, Values: []string{"fs", "memory"}, Default: "fs", Description: "Transcript storage backend", EnvVar: "COURTROOM_STORAGE"},
		{Key: "scenario.file", Description: "Scenario YAML file (built-in scenario when empty)", EnvVar: "COURTROOM_SCENARIO"},

		{Key: "backend.offline", Type: TypeBool, Default: "false", Description: "Use canned replies instead of the chat API", EnvVar: "COURTROOM_OFFLINE"},
		{Key: "backend.queue-size", Type: TypeInt, Default: "8", Description: "Pending requests allowed per persona"},
		{Key: "backend.close-timeout", Type: TypeDuration, Default: "5s", Description: "Time allowed for pending transcript writes on exit"},

		{Key: "log.file", Description: "Log file path (JSON output)", EnvVar: "COURTROOM_LOG_FILE"},
		{Key: "log.level", Type: TypeEnum, Values: []string{"debug", "info", "warn", "error"}, Default: "info", Description: "Log level", EnvVar: "COURTROOM_LOG_LEVEL"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
		{Key: "log.buffer-size", Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},

		// [timers] is parsed into TimerConfig; these entries document it.
		{Section: TimersSection, Key: "round", Type: TypeInt, Default: strconv.Itoa(DefaultRoundSeconds), Description: "Interrogation round length in seconds"},
		{Section: TimersSection, Key: "verdict", Type: TypeInt, Default: strconv.Itoa(DefaultVerdictSeconds), Description: "Verdict window length in seconds"},

		{Section: "transcripts", Key: "format", Type: TypeEnum, Values: []string{"text", "json"}, Default: "text", Description: "Output format of 'transcripts show'"},
		{Section: "play", Key: "show-log", Type: TypeBool, Default: "false", Description: "Show the log panel on start"},
	}
	for i := range opts {
		opts[i].Type = cmp.Or(opts[i].Type, TypeString)
	}
	return opts
}
