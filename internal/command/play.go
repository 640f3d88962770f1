package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/joeycumines/courtroom/internal/backend"
	"github.com/joeycumines/courtroom/internal/config"
	"github.com/joeycumines/courtroom/internal/game"
	"github.com/joeycumines/courtroom/internal/logging"
	"github.com/joeycumines/courtroom/internal/loop"
	"github.com/joeycumines/courtroom/internal/session"
	"github.com/joeycumines/courtroom/internal/storage"
	"github.com/joeycumines/courtroom/internal/transcript"
	"github.com/joeycumines/courtroom/internal/tui"
)

// PlayCommand runs the game in the terminal.
type PlayCommand struct {
	*BaseCommand
	cfg *config.Config

	session     string
	storageName string
	scenario    string
	offline     bool
	round       int
	verdict     int
	showLog     bool
	logFile     string
	logLevel    string

	isTerminal func() bool
	loadOpenAI func() (backend.OpenAIConfig, error)
}

// NewPlayCommand creates the play command.
func NewPlayCommand(cfg *config.Config) *PlayCommand {
	return &PlayCommand{
		BaseCommand: NewBaseCommand(
			"play",
			"Question the witnesses and deliver a verdict",
			"play [options]",
		),
		cfg: cfg,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
		loadOpenAI: backend.LoadOpenAIConfig,
	}
}

// SetupFlags configures the flags for the play command.
func (c *PlayCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.session, "session", "", "Session ID for transcript persistence (overrides auto-discovery)")
	fs.StringVar(&c.storageName, "storage", "", "Transcript storage backend: "+strings.Join(storage.BackendNames(), "|"))
	fs.StringVar(&c.scenario, "scenario", "", "Scenario YAML file (built-in scenario when empty)")
	fs.BoolVar(&c.offline, "offline", false, "Use canned replies instead of the chat API")
	fs.IntVar(&c.round, "round", 0, "Round length in seconds (default from [timers] round)")
	fs.IntVar(&c.verdict, "verdict", 0, "Verdict window in seconds (default from [timers] verdict)")
	fs.BoolVar(&c.showLog, "show-log", false, "Show the log panel on start")
	fs.StringVar(&c.logFile, "log-file", "", "Write JSON logs to this file")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug|info|warn|error")
}

type playOptions struct {
	session      string
	storage      string
	scenario     string
	offline      bool
	round        int
	verdict      int
	showLog      bool
	queueSize    int
	closeTimeout time.Duration
}

func (c *PlayCommand) resolveOptions() (playOptions, error) {
	cfg := c.cfg
	if cfg == nil {
		cfg = config.NewConfig()
	}
	schema := config.DefaultSchema()

	opts := playOptions{
		session:   c.session,
		storage:   c.storageName,
		scenario:  c.scenario,
		offline:   c.offline || schema.ResolveBool(cfg, "backend.offline"),
		round:     c.round,
		verdict:   c.verdict,
		showLog:   c.showLog,
		queueSize: schema.ResolveInt(cfg, "backend.queue-size"),
	}
	if opts.session == "" {
		opts.session = schema.Resolve(cfg, "session.id")
	}
	if opts.storage == "" {
		opts.storage = schema.Resolve(cfg, "storage.backend")
	}
	if _, ok := storage.BackendRegistry[opts.storage]; !ok {
		return opts, fmt.Errorf("unknown storage backend %q (want one of %s)", opts.storage, strings.Join(storage.BackendNames(), ", "))
	}
	if opts.scenario == "" {
		opts.scenario = schema.Resolve(cfg, "scenario.file")
	}
	if opts.round == 0 {
		opts.round = cfg.Timers.RoundSeconds
	}
	if opts.verdict == 0 {
		opts.verdict = cfg.Timers.VerdictSeconds
	}
	if opts.round < 1 || opts.verdict < 1 {
		return opts, fmt.Errorf("timers must be at least 1 second (round=%d, verdict=%d)", opts.round, opts.verdict)
	}
	if !opts.showLog {
		if v, ok := cfg.GetCommandOption("play", "show-log"); ok {
			opts.showLog, _ = strconv.ParseBool(v)
		}
	}

	timeout, err := time.ParseDuration(schema.Resolve(cfg, "backend.close-timeout"))
	if err != nil {
		return opts, fmt.Errorf("invalid backend.close-timeout: %w", err)
	}
	opts.closeTimeout = timeout
	return opts, nil
}

// playRuntime is everything a play session needs, wired but not yet
// started.
type playRuntime struct {
	logger       *logging.Logger
	prevLogger   *slog.Logger
	loop         *loop.EventLoop
	dispatcher   *backend.Dispatcher
	storage      storage.Backend
	store        *transcript.Store
	game         *game.Game
	model        tui.Model
	closeTimeout time.Duration

	// send is set by connect before the game starts.
	send func(tea.Msg)
}

// setup wires the game. Notices that must reach the player before the
// screen is taken over go to stderr.
func (c *PlayCommand) setup(stderr io.Writer) (_ *playRuntime, err error) {
	opts, err := c.resolveOptions()
	if err != nil {
		return nil, err
	}

	rt := &playRuntime{closeTimeout: opts.closeTimeout, prevLogger: slog.Default()}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	rt.logger, err = setupLogging(c.logFile, c.logLevel, c.cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(rt.logger.Logger)
	logger := rt.logger.Logger

	scenario := game.DefaultScenario()
	if opts.scenario != "" {
		if scenario, err = game.LoadScenario(opts.scenario); err != nil {
			return nil, err
		}
	}

	id, source, err := session.GetSessionID(opts.session)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session id: %w", err)
	}
	logger.Info("session resolved", "session", id, "source", source, "storage", opts.storage)
	if source == session.SourceUUID && opts.storage == "fs" {
		_, _ = fmt.Fprintln(stderr, "Note: no stable session id was found; transcripts will not resume. Use --session to pick one.")
	}

	rt.storage, err = storage.GetBackend(opts.storage, id)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript storage: %w", err)
	}

	chat, err := c.chatBackend(opts.offline, logger, stderr)
	if err != nil {
		return nil, err
	}

	rt.loop = loop.NewEventLoop()
	rt.loop.Start()
	rt.dispatcher = backend.NewDispatcher(chat, rt.loop.Post,
		backend.WithQueueSize(opts.queueSize),
		backend.WithLogger(logger))

	storeOpts := []transcript.Option{transcript.WithLogger(logger)}
	for _, p := range scenario.Personas {
		storeOpts = append(storeOpts, transcript.WithLabels(string(p.ID), p.Labels))
	}
	rt.store = transcript.New(rt.storage, storeOpts...)

	bridge := tui.NewBridge(func(msg tea.Msg) {
		if rt.send != nil {
			rt.send(msg)
		}
	})
	rt.game, err = game.New(game.Options{
		Scenario:       scenario,
		Store:          rt.store,
		Dispatcher:     rt.dispatcher,
		Loop:           rt.loop,
		Listener:       bridge,
		RoundSeconds:   opts.round,
		VerdictSeconds: opts.verdict,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	bridge.Attach(rt.game)

	g := rt.game
	rt.model = tui.New(tui.Config{
		Scenario:       scenario,
		RoundSeconds:   opts.round,
		VerdictSeconds: opts.verdict,
		Dispatch: func(fn func(*game.Game)) bool {
			return rt.loop.Post(func() { fn(g) })
		},
		Logs:    rt.logger.Ring,
		ShowLog: opts.showLog,
		Logger:  logger,
	})
	return rt, nil
}

func (c *PlayCommand) chatBackend(offline bool, logger *slog.Logger, stderr io.Writer) (backend.ChatBackend, error) {
	if offline {
		logger.Info("using offline replies")
		return backend.NewOffline(), nil
	}
	oc, err := c.loadOpenAI()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(oc.APIKey) == "" {
		logger.Warn("OPENAI_API_KEY not set, using offline replies")
		_, _ = fmt.Fprintln(stderr, "Note: OPENAI_API_KEY is not set; personas will give canned replies.")
		return backend.NewOffline(), nil
	}
	return backend.NewOpenAI(oc)
}

// connect routes game signals to send and queues the game start. send may
// block until the program runs, so the start is posted rather than awaited.
func (rt *playRuntime) connect(send func(tea.Msg), onStartErr func(error)) error {
	if !rt.loop.Post(func() {
		rt.send = send
		if err := rt.game.Start(); err != nil {
			rt.logger.Error("failed to start game", "error", err)
			onStartErr(err)
		}
	}) {
		return loop.ErrNotRunning
	}
	return nil
}

// Close stops the loop, then waits (bounded) for pending transcript writes
// before releasing storage and the log file.
func (rt *playRuntime) Close() error {
	var errs []error
	if rt.loop != nil {
		rt.loop.Stop()
	}
	if rt.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), rt.closeTimeout)
		if err := rt.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pending requests abandoned: %w", err))
		}
		cancel()
	}
	if rt.storage != nil {
		if err := rt.storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.logger != nil {
		if len(errs) > 0 {
			rt.logger.Warn("shutdown incomplete", "error", errors.Join(errs...))
		}
		slog.SetDefault(rt.prevLogger)
		if err := rt.logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Execute runs the game until the player quits.
func (c *PlayCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	if !c.isTerminal() {
		return errors.New("play needs an interactive terminal")
	}

	rt, err := c.setup(stderr)
	if err != nil {
		return err
	}

	p := tea.NewProgram(rt.model, tea.WithAltScreen())
	startErr := make(chan error, 1)
	if err := rt.connect(p.Send, func(err error) {
		startErr <- err
		go p.Quit()
	}); err != nil {
		_ = rt.Close()
		return err
	}

	_, runErr := p.Run()
	closeErr := rt.Close()
	select {
	case err := <-startErr:
		runErr = errors.Join(runErr, err)
	default:
	}
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: %v\n", closeErr)
	}
	return nil
}
