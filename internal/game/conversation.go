package game

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joeycumines/courtroom/internal/backend"
	"github.com/joeycumines/courtroom/internal/chatctx"
	"github.com/joeycumines/courtroom/internal/transcript"
)

// Submitter queues work off the event loop. *backend.Dispatcher implements
// it.
type Submitter interface {
	Do(key string, job backend.Job) error
	Complete(key string, req backend.Request) error
}

// ConversationHooks receive a conversation's signals. Any hook may be nil.
type ConversationHooks struct {
	Line  func(id PersonaID, line transcript.Line)
	Error func(id PersonaID, text string)
	Busy  func(id PersonaID, busy bool)
}

// Conversation is the chat with one persona for the lifetime of a session.
// All methods must be called on the event loop goroutine.
type Conversation struct {
	persona *Persona
	session *Session
	store   *transcript.Store
	agg     *chatctx.Aggregator
	disp    Submitter
	hooks   ConversationHooks
	logger  *slog.Logger

	active   bool
	focus    *Clue
	inflight int
}

func newConversation(p *Persona, s *Session, store *transcript.Store, agg *chatctx.Aggregator, disp Submitter, hooks ConversationHooks, logger *slog.Logger) *Conversation {
	return &Conversation{
		persona: p,
		session: s,
		store:   store,
		agg:     agg,
		disp:    disp,
		hooks:   hooks,
		logger:  logger.With("persona", p.ID),
	}
}

// Persona returns the persona being questioned.
func (c *Conversation) Persona() *Persona { return c.persona }

// Active reports whether the conversation is on screen.
func (c *Conversation) Active() bool { return c.active }

// Busy reports whether a reply is outstanding.
func (c *Conversation) Busy() bool { return c.inflight > 0 }

// Focus returns the clue being viewed, if any.
func (c *Conversation) Focus() *Clue { return c.focus }

// Open shows the conversation. The first visit of a session asks the persona
// to introduce itself, unless a transcript from an earlier run exists.
func (c *Conversation) Open() {
	c.active = true
	id := string(c.persona.ID)
	if !c.session.Introductions.TryConsume(id) || c.store.Len(id) > 0 {
		return
	}
	if c.persona.IntroPrompt == "" {
		c.introFallback()
		return
	}
	msgs := append(c.history(), backend.Message{Role: c.persona.IntroRole, Content: c.persona.IntroPrompt})
	c.request(msgs, nil, c.appendReply, func(err error) {
		c.logger.Warn("introduction failed, using fallback", "error", err)
		c.introFallback()
	})
}

func (c *Conversation) introFallback() {
	if c.persona.IntroFallback != "" {
		c.appendReply(c.persona.IntroFallback)
	}
}

// Close hides the conversation. Outstanding replies are discarded on
// arrival; they are not cancelled.
func (c *Conversation) Close() {
	c.active = false
	c.focus = nil
}

// Send records the player's message and asks the persona for a reply. Blank
// messages are ignored. It reports whether the message was recorded.
func (c *Conversation) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || !c.active {
		return false
	}
	id := string(c.persona.ID)

	history := c.history()
	gen := c.store.Record(id, transcript.User, text)
	c.line(transcript.Line{Speaker: transcript.User, Text: text})

	content := text
	if c.persona.FocusContext {
		title, body := "", ""
		if c.focus != nil {
			title, body = c.focus.Title, c.focus.Body
		}
		content = chatctx.WithFocus(content, title, body)
	}
	content = c.agg.Enhance(content, id)

	msgs := append(history, backend.Message{Role: backend.RoleUser, Content: content})
	persisted := false
	persist := func(context.Context) {
		persisted = true
		c.persistNow(gen, transcript.User, text)
	}
	c.request(msgs, persist, c.appendReply, func(err error) {
		if !persisted {
			c.persistNow(gen, transcript.User, text)
		}
		c.fail(err)
	})
	return true
}

// Inspect puts a clue in focus. The first inspection of each clue in a
// session triggers its scripted reply or nudge. An empty id clears the
// focus.
func (c *Conversation) Inspect(clueID string) bool {
	if !c.active {
		return false
	}
	if clueID == "" {
		c.focus = nil
		return true
	}
	clue, ok := c.persona.Clue(clueID)
	if !ok {
		c.logger.Debug("unknown clue", "clue", clueID)
		return false
	}
	c.focus = clue
	if !c.session.Clues.TryConsume(string(c.persona.ID) + "/" + clue.ID) {
		return true
	}
	if clue.Reply != "" {
		c.appendReply(strings.ReplaceAll(clue.Reply, "{title}", clue.Title))
	}
	if clue.Nudge != "" {
		msgs := append(c.history(), backend.Message{Role: backend.RoleSystem, Content: clue.Nudge})
		c.request(msgs, nil, c.appendReply, c.fail)
	}
	return true
}

// history is the system prompt followed by the transcript so far.
func (c *Conversation) history() []backend.Message {
	lines := c.store.Read(string(c.persona.ID))
	msgs := make([]backend.Message, 0, len(lines)+2)
	if c.persona.SystemPrompt != "" {
		prompt := strings.ReplaceAll(c.persona.SystemPrompt, "{role}", c.session.Role(c.persona.ID))
		msgs = append(msgs, backend.Message{Role: backend.RoleSystem, Content: prompt})
	}
	for _, l := range lines {
		role := backend.RoleAssistant
		if l.Speaker == transcript.User {
			role = backend.RoleUser
		}
		msgs = append(msgs, backend.Message{Role: role, Content: l.Text})
	}
	return msgs
}

func (c *Conversation) request(msgs []backend.Message, before func(context.Context), onReply func(string), onErr func(error)) {
	c.setInflight(c.inflight + 1)
	err := c.disp.Complete(string(c.persona.ID), backend.Request{
		Messages: msgs,
		Model:    c.persona.Model,
		Before:   before,
		Done: func(m backend.Message, err error) {
			c.setInflight(c.inflight - 1)
			if !c.active {
				c.logger.Debug("discarding reply for closed conversation")
				return
			}
			if err != nil {
				onErr(err)
				return
			}
			onReply(m.Content)
		},
	})
	if err != nil {
		c.setInflight(c.inflight - 1)
		onErr(err)
	}
}

// appendReply records a persona line in memory and queues the write behind
// any earlier writes for the same persona.
func (c *Conversation) appendReply(text string) {
	id := string(c.persona.ID)
	gen := c.store.Record(id, transcript.Assistant, text)
	c.line(transcript.Line{Speaker: transcript.Assistant, Text: text})
	err := c.disp.Do(id, func(context.Context) { c.persistNow(gen, transcript.Assistant, text) })
	if err != nil {
		c.logger.Debug("writing transcript inline", "reason", err)
		c.persistNow(gen, transcript.Assistant, text)
	}
}

func (c *Conversation) persistNow(gen transcript.Generation, speaker transcript.Speaker, text string) {
	if err := c.store.Persist(gen, string(c.persona.ID), speaker, text); err != nil {
		c.logger.Warn("transcript write failed", "error", err)
	}
}

func (c *Conversation) fail(err error) {
	c.logger.Warn("backend request failed", "error", err)
	if c.hooks.Error != nil {
		c.hooks.Error(c.persona.ID, ErrorText(err))
	}
}

func (c *Conversation) line(l transcript.Line) {
	if c.hooks.Line != nil {
		c.hooks.Line(c.persona.ID, l)
	}
}

func (c *Conversation) setInflight(n int) {
	was := c.inflight > 0
	c.inflight = max(n, 0)
	if now := c.inflight > 0; now != was && c.hooks.Busy != nil {
		c.hooks.Busy(c.persona.ID, now)
	}
}

// ErrorText is the in-conversation message shown for a failed request.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, backend.ErrEmptyResponse):
		return "[error] AI returned an empty message."
	case errors.Is(err, backend.ErrQueueFull):
		return "[error] Still working on your earlier messages. Try again in a moment."
	case errors.Is(err, context.DeadlineExceeded):
		return "[error] The reply took too long."
	default:
		return "[error] Could not get a reply."
	}
}
