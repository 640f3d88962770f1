// Package command implements the courtroom subcommands.
package command

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Command is one subcommand of the courtroom binary.
type Command interface {
	Name() string
	Description() string
	Usage() string
	// SetupFlags registers the command's flags. Execute receives the
	// arguments left after parsing.
	SetupFlags(fs *flag.FlagSet)
	Execute(args []string, stdout, stderr io.Writer) error
}

// BaseCommand carries the descriptive half of Command, for embedding.
type BaseCommand struct {
	name, description, usage string
}

func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{name: name, description: description, usage: usage}
}

func (c *BaseCommand) Name() string        { return c.name }
func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

// SetupFlags registers nothing.
func (c *BaseCommand) SetupFlags(*flag.FlagSet) {}

// newFlagSet returns a ContinueOnError FlagSet that writes its usage to
// stderr on -h or a bad flag. The parse error itself is left to the caller.
func newFlagSet(name, usage, description string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: %s\n", usage)
		if description != "" {
			_, _ = fmt.Fprintf(stderr, "\n%s\n", description)
		}
		var n int
		fs.VisitAll(func(*flag.Flag) { n++ })
		if n == 0 {
			return
		}
		_, _ = fmt.Fprintln(stderr, "\nOptions:")
		fs.SetOutput(stderr)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}
	return fs
}

// parseFlags parses args into fs. done is true when the caller should
// return err straight away; a help request is done with a nil error.
func parseFlags(fs *flag.FlagSet, args []string) (done bool, err error) {
	switch err := fs.Parse(args); {
	case err == nil:
		return false, nil
	case errors.Is(err, flag.ErrHelp):
		return true, nil
	default:
		return true, err
	}
}

// confirm asks a y/N question on stdout and reads the answer from in.
func confirm(in io.Reader, stdout io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(stdout, "%s (y/N): ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

var errUnexpectedArgs = errors.New("unexpected arguments")

// noArgs rejects positional arguments for commands that take none.
func noArgs(args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return nil
	}
	_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
	return errUnexpectedArgs
}
