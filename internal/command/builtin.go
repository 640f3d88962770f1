package command

import (
	"flag"
	"fmt"
	"io"
	"os"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joeycumines/courtroom/internal/config"
	"github.com/joeycumines/courtroom/internal/storage"
)

const tagline = "courtroom - question the witnesses, then rule before the clock runs out"

// HelpCommand lists the registered commands, or describes one of them.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand("help", "Display help information for commands", "help [command]"),
		registry:    registry,
	}
}

func (c *HelpCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		c.overview(stdout)
		return nil
	}
	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\nDescription: %s\nUsage: %s\n", cmd.Name(), cmd.Description(), cmd.Usage())
	var flags strings.Builder
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(&flags)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if flags.Len() != 0 {
		_, _ = fmt.Fprintf(stdout, "\nFlags:\n%s", flags.String())
	}
	return nil
}

func (c *HelpCommand) overview(stdout io.Writer) {
	_, _ = fmt.Fprintf(stdout, "%s\n\nUsage: courtroom <command> [options] [args...]\n\nAvailable commands:\n", tagline)
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, name := range c.registry.List() {
		cmd, _ := c.registry.Get(name)
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(stdout, "\nUse 'courtroom help <command>' for more information about a specific command (includes flags).")
}

// VersionCommand prints the build version.
type VersionCommand struct {
	*BaseCommand
	version string
}

func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand("version", "Display version information", "version"),
		version:     version,
	}
}

func (c *VersionCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "courtroom version %s\n", c.version)
	return nil
}

const configUsage = `Configuration management:
  config <key>          - Get configuration value (section.key for sections)
  config <key> <value>  - Set configuration value
  config --global       - Show global configuration
  config --all          - Show all configuration
  config validate       - Validate configuration
  config schema         - Show configuration schema
`

// ConfigCommand reads and writes the config file. Writes update both the
// loaded Config and the file.
type ConfigCommand struct {
	*BaseCommand
	config *config.Config
	// configPath overrides config.GetConfigPath for writes.
	configPath string
	showGlobal bool
	showAll    bool
}

func NewConfigCommand(cfg *config.Config, configPath ...string) *ConfigCommand {
	c := &ConfigCommand{
		BaseCommand: NewBaseCommand("config", "Manage configuration settings", "config [options] [key] [value]"),
		config:      cfg,
	}
	if len(configPath) != 0 {
		c.configPath = configPath[0]
	}
	return c
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showGlobal, "global", false, "Show only global configuration")
	fs.BoolVar(&c.showAll, "all", false, "Show all configuration (global, timers and command-specific)")
}

func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		switch {
		case c.showAll:
			c.printAll(stdout)
		case c.showGlobal:
			printOptions(stdout, "Global configuration:", "  ", c.config.Global)
		default:
			_, _ = fmt.Fprint(stdout, configUsage)
		}
		return nil
	}

	switch args[0] {
	case "validate":
		return c.executeValidate(stdout)
	case "schema":
		_, _ = fmt.Fprint(stdout, config.DefaultSchema().FormatHelp())
		return nil
	}

	switch len(args) {
	case 1:
		c.get(args[0], stdout)
		return nil
	case 2:
		return c.set(args[0], args[1], stdout, stderr)
	}
	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

// get prints a value. Global keys resolve env, then config, then default;
// "section.key" reads that section.
func (c *ConfigCommand) get(key string, stdout io.Writer) {
	schema := config.DefaultSchema()
	section, name, known := schema.SplitKey(key)
	var value string
	switch {
	case known && section != "":
		value = schema.SectionValue(c.config, section, name)
	default:
		value = schema.Resolve(c.config, key)
		if _, set := c.config.GetGlobalOption(key); value == "" && !set {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
			return
		}
	}
	_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, value)
}

// set updates the loaded config and writes the change to the config file.
// Unknown keys are stored as global options with a warning.
func (c *ConfigCommand) set(key, value string, stdout, stderr io.Writer) error {
	section, name, known := config.DefaultSchema().SplitKey(key)
	switch {
	case !known:
		_, _ = fmt.Fprintf(stderr, "Warning: unknown configuration key %q\n", key)
		section, name = "", key
		c.config.SetGlobalOption(key, value)
	case section == config.TimersSection:
		if err := c.config.Timers.Set(name, value); err != nil {
			_, _ = fmt.Fprintf(stderr, "Invalid value for %s: %v\n", key, err)
			return err
		}
	case section == "":
		c.config.SetGlobalOption(name, value)
	default:
		c.config.SetCommandOption(section, name, value)
	}

	path := c.configPath
	if path == "" {
		// best effort; skip the disk write if the path is unknown
		path, _ = config.GetConfigPath()
	}
	if path != "" {
		if err := config.SetOptionInFile(path, section, name, value); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: failed to persist config to disk: %v\n", err)
		}
	}

	_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
	return nil
}

func (c *ConfigCommand) printAll(w io.Writer) {
	printOptions(w, "Global configuration:", "  ", c.config.Global)
	printOptions(w, "\nTimers:", "  ", map[string]string{
		"round":   strconv.Itoa(c.config.Timers.RoundSeconds),
		"verdict": strconv.Itoa(c.config.Timers.VerdictSeconds),
	})
	_, _ = fmt.Fprintln(w, "\nCommand-specific configuration:")
	for _, section := range slices.Sorted(maps.Keys(c.config.Commands)) {
		printOptions(w, "  ["+section+"]", "    ", c.config.Commands[section])
	}
}

func printOptions(w io.Writer, title, indent string, options map[string]string) {
	_, _ = fmt.Fprintln(w, title)
	for _, key := range slices.Sorted(maps.Keys(options)) {
		_, _ = fmt.Fprintf(w, "%s%s: %s\n", indent, key, options[key])
	}
}

// executeValidate validates the current config against the schema.
func (c *ConfigCommand) executeValidate(stdout io.Writer) error {
	issues := config.ValidateConfig(c.config, config.DefaultSchema())
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return nil
}

// InitCommand writes a starter config file listing every option at its
// default.
type InitCommand struct {
	*BaseCommand
	force bool
}

func NewInitCommand() *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand("init", "Write a starter configuration file", "init [options]"),
	}
}

func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Force initialization even if config already exists")
}

// starterConfig renders s as a config file. Options without a default are
// written commented out.
func starterConfig(s *config.ConfigSchema) string {
	var b strings.Builder
	b.WriteString("# courtroom configuration file\n")
	b.WriteString("# Format: optionName remainingLineIsTheValue\n")
	b.WriteString("# See 'courtroom config schema' for the accepted values.\n")
	write := func(opts []config.ConfigOption) {
		for _, o := range opts {
			fmt.Fprintf(&b, "\n# %s\n", o.Description)
			if o.Default == "" {
				fmt.Fprintf(&b, "# %s\n", o.Key)
			} else {
				fmt.Fprintf(&b, "%s %s\n", o.Key, o.Default)
			}
		}
	}
	write(s.GlobalOptions())
	for _, section := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s]\n", section)
		write(s.SectionOptions(section))
	}
	return b.String()
}

func (c *InitCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !c.force {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\n", configPath)
		_, _ = fmt.Fprintln(stdout, "Use --force to overwrite existing configuration")
		return nil
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := storage.AtomicWriteFile(configPath, []byte(starterConfig(config.DefaultSchema())), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	written, err := config.LoadFromPath(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: Failed to load created config: %v\n", err)
	} else {
		_, _ = fmt.Fprintf(stdout, "Round timer: %ds, verdict timer: %ds\n",
			written.Timers.RoundSeconds, written.Timers.VerdictSeconds)
	}

	_, _ = fmt.Fprintf(stdout, "Initialized courtroom configuration at: %s\n", configPath)
	return nil
}
