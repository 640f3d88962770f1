package command

import (
	"fmt"
	"io"
	"maps"
	"slices"
)

// Registry maps command names to commands and dispatches a command line.
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmds, replacing any command of the same name.
func (r *Registry) Register(cmds ...Command) {
	for _, cmd := range cmds {
		r.commands[cmd.Name()] = cmd
	}
}

func (r *Registry) Get(name string) (Command, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("command not found: %s", name)
	}
	return cmd, nil
}

// List returns the command names, sorted.
func (r *Registry) List() []string {
	return slices.Sorted(maps.Keys(r.commands))
}

// Run executes the command named by args[0] with the rest of args. An empty
// command line, -h and --help all run "help".
func (r *Registry) Run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		args = []string{"help"}
	}
	cmd, err := r.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		_, _ = fmt.Fprintln(stderr, "Use 'courtroom help' to see available commands.")
		return err
	}

	fs := newFlagSet(cmd.Name(), cmd.Usage(), cmd.Description(), stderr)
	cmd.SetupFlags(fs)
	if done, err := parseFlags(fs, args[1:]); done {
		return err
	}
	return cmd.Execute(fs.Args(), stdout, stderr)
}
