package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeycumines/courtroom/internal/config"
	"github.com/joeycumines/courtroom/internal/game"
	"github.com/joeycumines/courtroom/internal/session"
	"github.com/joeycumines/courtroom/internal/storage"
	"github.com/joeycumines/courtroom/internal/transcript"
)

// TranscriptsCommand inspects and manages persisted transcripts.
type TranscriptsCommand struct {
	*BaseCommand
	cfg   *config.Config
	stdin io.Reader
}

// NewTranscriptsCommand creates the transcripts command.
func NewTranscriptsCommand(cfg *config.Config) *TranscriptsCommand {
	return &TranscriptsCommand{
		BaseCommand: NewBaseCommand(
			"transcripts",
			"Inspect, export or clear saved conversations",
			"transcripts [list|show|export|clear]",
		),
		cfg:   cfg,
		stdin: os.Stdin,
	}
}

type lineRecord struct {
	Speaker transcript.Speaker `json:"speaker"`
	Text    string             `json:"text"`
}

type transcriptRecord struct {
	Session string       `json:"session"`
	Persona string       `json:"persona"`
	Name    string       `json:"name,omitempty"`
	Lines   []lineRecord `json:"lines"`
}

// Execute dispatches to the subcommand; no subcommand lists sessions.
func (c *TranscriptsCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return c.list(stdout)
	}
	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "list":
		fs := newFlagSet("transcripts-list", c.Name()+" list", "", stderr)
		if done, err := parseFlags(fs, rest); done {
			return err
		}
		return c.list(stdout)

	case "show":
		fs := newFlagSet("transcripts-show", c.Name()+" show [options] [persona...]", "", stderr)
		sessionID := fs.String("session", "", "Session ID (defaults to this terminal's session)")
		format := fs.String("format", c.defaultFormat(), "Output format: text|json")
		if done, err := parseFlags(fs, rest); done {
			return err
		}
		id, err := c.resolveSession(*sessionID)
		if err != nil {
			return err
		}
		return c.show(stdout, id, *format, fs.Args())

	case "export":
		fs := newFlagSet("transcripts-export", c.Name()+" export [options] DIR", "", stderr)
		sessionID := fs.String("session", "", "Session ID (defaults to this terminal's session)")
		if done, err := parseFlags(fs, rest); done {
			return err
		}
		if fs.NArg() != 1 {
			fs.Usage()
			return fmt.Errorf("export requires exactly one directory")
		}
		id, err := c.resolveSession(*sessionID)
		if err != nil {
			return err
		}
		return c.export(stdout, id, fs.Arg(0))

	case "clear":
		fs := newFlagSet("transcripts-clear", c.Name()+" clear [options]", "", stderr)
		sessionID := fs.String("session", "", "Session ID (defaults to this terminal's session)")
		yes := fs.Bool("y", false, "Assume yes to confirmation prompts")
		if done, err := parseFlags(fs, rest); done {
			return err
		}
		id, err := c.resolveSession(*sessionID)
		if err != nil {
			return err
		}
		if !*yes {
			ok, err := confirm(c.stdin, stdout, fmt.Sprintf("Delete every transcript of session %s?", id))
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(stdout, "aborted")
				return nil
			}
		}
		return c.clear(stdout, id)
	}

	_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n", sub)
	_, _ = fmt.Fprintf(stderr, "Usage: %s\n", c.Usage())
	return fmt.Errorf("unknown subcommand: %s", sub)
}

func (c *TranscriptsCommand) conf() *config.Config {
	if c.cfg == nil {
		return config.NewConfig()
	}
	return c.cfg
}

func (c *TranscriptsCommand) defaultFormat() string {
	if v, ok := c.conf().GetCommandOption("transcripts", "format"); ok && v != "" {
		return v
	}
	return "text"
}

func (c *TranscriptsCommand) resolveSession(explicit string) (string, error) {
	if explicit == "" {
		explicit = config.DefaultSchema().Resolve(c.conf(), "session.id")
	}
	id, _, err := session.GetSessionID(explicit)
	if err != nil {
		return "", fmt.Errorf("failed to resolve session id: %w", err)
	}
	return id, nil
}

// scenario supplies persona names and speaker labels for decoding.
func (c *TranscriptsCommand) scenario() (*game.Scenario, error) {
	path := config.DefaultSchema().Resolve(c.conf(), "scenario.file")
	if path == "" {
		return game.DefaultScenario(), nil
	}
	return game.LoadScenario(path)
}

func (c *TranscriptsCommand) list(w io.Writer) error {
	ids, err := storage.ListSessionIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		_, _ = fmt.Fprintln(w, "No transcripts found")
		return nil
	}
	for _, id := range ids {
		personas, err := storage.ListPersonas(id)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%d persona(s)\t%s\n", id, len(personas), strings.Join(personas, ","))
	}
	return nil
}

func (c *TranscriptsCommand) load(id string, only []string) ([]transcriptRecord, error) {
	sc, err := c.scenario()
	if err != nil {
		return nil, err
	}
	personas := only
	if len(personas) == 0 {
		if personas, err = storage.ListPersonas(id); err != nil {
			return nil, err
		}
	}
	records := make([]transcriptRecord, 0, len(personas))
	for _, name := range personas {
		data, err := storage.ReadTranscriptFile(id, name)
		if err != nil {
			return nil, err
		}
		rec := transcriptRecord{Session: id, Persona: name, Lines: []lineRecord{}}
		var labels transcript.Labels
		if p, ok := sc.Persona(game.PersonaID(name)); ok {
			rec.Name = p.Name
			labels = p.Labels
		}
		for _, line := range transcript.Parse(data, labels) {
			rec.Lines = append(rec.Lines, lineRecord{Speaker: line.Speaker, Text: line.Text})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *TranscriptsCommand) show(w io.Writer, id, format string, personas []string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format: %q", format)
	}
	records, err := c.load(id, personas)
	if err != nil {
		return err
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintf(w, "No transcripts for session %s\n", id)
		return nil
	}
	for i, rec := range records {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprint(w, renderTranscript(rec))
	}
	return nil
}

func renderTranscript(rec transcriptRecord) string {
	var b strings.Builder
	title := rec.Persona
	if rec.Name != "" {
		title = rec.Name + " (" + rec.Persona + ")"
	}
	fmt.Fprintf(&b, "== %s ==\n", title)
	if len(rec.Lines) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, l := range rec.Lines {
		speaker := "You"
		if l.Speaker != transcript.User {
			speaker = rec.Persona
			if rec.Name != "" {
				speaker = rec.Name
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, l.Text)
	}
	return b.String()
}

func (c *TranscriptsCommand) export(w io.Writer, id, dir string) error {
	records, err := c.load(id, nil)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintf(w, "No transcripts for session %s\n", id)
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	for _, rec := range records {
		path := filepath.Join(dir, rec.Persona+".txt")
		if err := storage.AtomicWriteFile(path, []byte(renderTranscript(rec)), 0644); err != nil {
			return fmt.Errorf("failed to export %s: %w", rec.Persona, err)
		}
		_, _ = fmt.Fprintf(w, "Wrote %s (%d lines)\n", path, len(rec.Lines))
	}
	return nil
}

// clear deletes the session's transcripts through the file system backend,
// so it fails while a game holds the session.
func (c *TranscriptsCommand) clear(w io.Writer, id string) error {
	b, err := storage.NewFileSystemBackend(id)
	if err != nil {
		return fmt.Errorf("session %s is unavailable (is a game running?): %w", id, err)
	}
	defer b.Close()
	if err := b.DeleteTranscripts(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Cleared transcripts of session %s\n", id)
	return nil
}
