// Command courtroom runs the interrogation game and manages its transcripts.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/courtroom/internal/command"
	"github.com/joeycumines/courtroom/internal/config"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		// an unreadable config falls back to defaults
		cfg = config.NewConfig()
	}
	for _, w := range cfg.GetWarnings() {
		_, _ = fmt.Fprintf(stderr, "Warning: %s\n", w)
	}

	r := command.NewRegistry()
	r.Register(
		command.NewHelpCommand(r),
		command.NewVersionCommand(version),
		command.NewConfigCommand(cfg),
		command.NewInitCommand(),
		command.NewPlayCommand(cfg),
		command.NewTranscriptsCommand(cfg),
	)
	return r.Run(args, stdout, stderr)
}
