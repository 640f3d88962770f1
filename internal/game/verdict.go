package game

import (
	"log/slog"
	"strings"

	"github.com/joeycumines/courtroom/internal/countdown"
)

// Verdict is the player's ruling on the defendant.
type Verdict string

const (
	Guilty    Verdict = "Guilty"
	NotGuilty Verdict = "Not Guilty"
)

// Outcome is the result label of a session.
type Outcome string

const (
	Win  Outcome = "win"
	Lose Outcome = "lose"
)

func (o Outcome) String() string {
	if o == Win {
		return "You Won!"
	}
	return "You Lost!"
}

const (
	// DefaultVerdictSeconds is the verdict window.
	DefaultVerdictSeconds = 60

	NoVerdictMessage     = "No verdict selected!"
	FeedbackErrorMessage = "Error getting feedback."
	FeedbackPending      = "..."

	placeholderVerdict   = "{playerVerdict}"
	placeholderRationale = "{playerRationale}"
)

// Controls is a snapshot of the verdict screen.
type Controls struct {
	Selected  Verdict
	Rationale string
	AutoLoss  bool
	Remaining int

	GuiltyEnabled    bool
	NotGuiltyEnabled bool
	RationaleEnabled bool
	SubmitEnabled    bool

	Submitted bool
	Outcome   Outcome
	Feedback  string
}

// Scorer sends the rendered feedback prompt to the backend. done must be
// called on the event loop. A returned error means done will not be called.
type Scorer func(prompt string, done func(reply string, err error)) error

// VerdictHooks receive the flow's signals. Any hook may be nil.
type VerdictHooks struct {
	Tick     func(remaining int)
	Controls func(Controls)
	// Concluded fires once, when the inputs freeze.
	Concluded func(Outcome)
	// Ended fires once, when the feedback text is final.
	Ended func(outcome Outcome, feedback string)
}

// VerdictConfig configures a VerdictFlow.
type VerdictConfig struct {
	Timer    *countdown.Timer
	Seconds  int
	Template string
	Score    Scorer
	Hooks    VerdictHooks
	Logger   *slog.Logger
}

// VerdictFlow is the timed verdict sub-session. All methods must be called
// on the event loop goroutine.
type VerdictFlow struct {
	cfg VerdictConfig

	begun     bool
	autoLoss  bool
	selected  Verdict
	rationale string
	submitted bool
	ended     bool
	outcome   Outcome
	feedback  string
}

// NewVerdictFlow creates a flow that has not begun.
func NewVerdictFlow(cfg VerdictConfig) *VerdictFlow {
	if cfg.Seconds <= 0 {
		cfg.Seconds = DefaultVerdictSeconds
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VerdictFlow{cfg: cfg}
}

// Begin starts the verdict countdown. autoLoss forces a losing outcome
// whatever the player selects. Only the first call has an effect.
func (f *VerdictFlow) Begin(autoLoss bool) {
	if f.begun {
		return
	}
	f.begun = true
	f.autoLoss = autoLoss
	f.cfg.Timer.Start(f.cfg.Seconds, f.tick, f.expire)
	f.emit()
}

func (f *VerdictFlow) tick(remaining int) {
	if f.cfg.Hooks.Tick != nil {
		f.cfg.Hooks.Tick(remaining)
	}
}

// Selectable reports whether selecting v would change anything.
func (f *VerdictFlow) Selectable(v Verdict) bool {
	return f.begun && !f.submitted && f.selected != v
}

// Select records v. Selecting the current verdict is a no-op.
func (f *VerdictFlow) Select(v Verdict) {
	if v != Guilty && v != NotGuilty {
		f.cfg.Logger.Debug("ignoring unknown verdict", "verdict", v)
		return
	}
	if !f.Selectable(v) {
		return
	}
	f.selected = v
	f.emit()
}

// SetRationale replaces the rationale text.
func (f *VerdictFlow) SetRationale(text string) {
	if !f.begun || f.submitted || f.rationale == text {
		return
	}
	f.rationale = text
	f.emit()
}

// CanSubmit reports whether an explicit submit would be accepted with a
// verdict: one is selected and the rationale is not blank.
func (f *VerdictFlow) CanSubmit() bool {
	return f.begun && !f.submitted && f.selected != "" && strings.TrimSpace(f.rationale) != ""
}

// Submit handles an explicit submit. With no verdict selected the session is
// lost without a scoring request. With a verdict but a blank rationale the
// submit is ignored. It reports whether the flow concluded.
func (f *VerdictFlow) Submit() bool {
	if !f.begun || f.submitted {
		return false
	}
	if f.selected == "" {
		f.concludeWithoutVerdict()
		return true
	}
	if !f.CanSubmit() {
		f.cfg.Logger.Debug("ignoring submit with blank rationale")
		return false
	}
	f.conclude()
	return true
}

func (f *VerdictFlow) expire() {
	if f.submitted {
		return
	}
	if f.selected == "" {
		f.concludeWithoutVerdict()
		return
	}
	// whatever rationale is present is submitted, even a blank one
	f.conclude()
}

func (f *VerdictFlow) freeze(outcome Outcome, feedback string) {
	f.submitted = true
	f.cfg.Timer.Stop()
	f.outcome = outcome
	f.feedback = feedback
	f.emit()
	if f.cfg.Hooks.Concluded != nil {
		f.cfg.Hooks.Concluded(outcome)
	}
}

func (f *VerdictFlow) concludeWithoutVerdict() {
	f.freeze(Lose, NoVerdictMessage)
	f.finish()
}

func (f *VerdictFlow) conclude() {
	outcome := Lose
	if f.selected == Guilty && !f.autoLoss {
		outcome = Win
	}
	f.freeze(outcome, FeedbackPending)

	err := f.cfg.Score(f.Prompt(), func(reply string, err error) {
		if f.ended {
			return
		}
		if err != nil {
			f.cfg.Logger.Warn("verdict feedback failed", "error", err)
			reply = FeedbackErrorMessage
		}
		f.feedback = reply
		f.emit()
		f.finish()
	})
	if err != nil {
		f.cfg.Logger.Warn("verdict feedback not sent", "error", err)
		f.feedback = FeedbackErrorMessage
		f.emit()
		f.finish()
	}
}

func (f *VerdictFlow) finish() {
	f.ended = true
	if f.cfg.Hooks.Ended != nil {
		f.cfg.Hooks.Ended(f.outcome, f.feedback)
	}
}

// Prompt renders the feedback template with the current selection.
func (f *VerdictFlow) Prompt() string {
	return strings.NewReplacer(
		placeholderVerdict, string(f.selected),
		placeholderRationale, strings.TrimSpace(f.rationale),
	).Replace(f.cfg.Template)
}

// Stop abandons the flow, stopping its countdown without concluding.
func (f *VerdictFlow) Stop() {
	f.cfg.Timer.Stop()
	f.ended = true
}

// Ended reports whether the feedback text is final.
func (f *VerdictFlow) Ended() bool { return f.ended }

// Snapshot returns the current controls.
func (f *VerdictFlow) Snapshot() Controls {
	open := f.begun && !f.submitted
	return Controls{
		Selected:         f.selected,
		Rationale:        f.rationale,
		AutoLoss:         f.autoLoss,
		Remaining:        f.cfg.Timer.Remaining(),
		GuiltyEnabled:    open && f.selected != Guilty,
		NotGuiltyEnabled: open && f.selected != NotGuilty,
		RationaleEnabled: open,
		SubmitEnabled:    f.CanSubmit(),
		Submitted:        f.submitted,
		Outcome:          f.outcome,
		Feedback:         f.feedback,
	}
}

func (f *VerdictFlow) emit() {
	if f.cfg.Hooks.Controls != nil {
		f.cfg.Hooks.Controls(f.Snapshot())
	}
}
