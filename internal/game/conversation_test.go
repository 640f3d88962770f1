package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/joeycumines/courtroom/internal/backend"
	"github.com/joeycumines/courtroom/internal/chatctx"
	"github.com/joeycumines/courtroom/internal/loop"
	"github.com/joeycumines/courtroom/internal/testutil"
	"github.com/joeycumines/courtroom/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type convRig struct {
	t       *testing.T
	m       *loop.Manual
	sc      *Scenario
	store   *transcript.Store
	disp    *backend.Dispatcher
	session *Session
	agg     *chatctx.Aggregator

	mu       sync.Mutex
	requests [][]backend.Message
	reply    func([]backend.Message) (string, error)

	lines []transcript.Line
	errs  []string
	busy  []bool
}

func newConvRig(t *testing.T) *convRig {
	t.Helper()
	r := &convRig{t: t, m: loop.NewManual(), sc: DefaultScenario(), store: transcript.New(nil)}
	r.disp = backend.NewDispatcher(backend.Func(func(_ context.Context, msgs []backend.Message, _ backend.ModelConfig) (backend.Message, error) {
		r.mu.Lock()
		r.requests = append(r.requests, msgs)
		reply := r.reply
		r.mu.Unlock()
		text, err := "ok", error(nil)
		if reply != nil {
			text, err = reply(msgs)
		}
		return backend.Message{Role: backend.RoleAssistant, Content: text}, err
	}), r.m.Post)
	t.Cleanup(func() { _ = r.disp.Close(context.Background()) })

	s, err := NewSession(r.sc, rand.New(rand.NewPCG(1, 2)), 0)
	require.NoError(t, err)
	r.session = s

	roster := make([]chatctx.Participant, 0, len(r.sc.Personas))
	for _, p := range r.sc.Personas {
		roster = append(roster, chatctx.Participant{ID: string(p.ID), Name: p.Name})
	}
	r.agg = chatctx.New(r.store, roster)
	return r
}

func (r *convRig) setReply(fn func([]backend.Message) (string, error)) {
	r.mu.Lock()
	r.reply = fn
	r.mu.Unlock()
}

func (r *convRig) conv(id PersonaID) *Conversation {
	p, ok := r.sc.Persona(id)
	require.True(r.t, ok)
	return newConversation(p, r.session, r.store, r.agg, r.disp, ConversationHooks{
		Line:  func(_ PersonaID, l transcript.Line) { r.lines = append(r.lines, l) },
		Error: func(_ PersonaID, text string) { r.errs = append(r.errs, text) },
		Busy:  func(_ PersonaID, b bool) { r.busy = append(r.busy, b) },
	}, slog.Default())
}

func (r *convRig) requestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *convRig) lastRequest() []backend.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(r.t, r.requests)
	return r.requests[len(r.requests)-1]
}

func (r *convRig) waitLen(id PersonaID, n int) {
	r.t.Helper()
	testutil.DrainUntil(r.t, r.m, func() bool { return r.store.Len(string(id)) >= n })
}

func TestConversation_IntroductionOnFirstVisit(t *testing.T) {
	r := newConvRig(t)
	c := r.conv("kalani")
	c.Open()
	r.waitLen("kalani", 1)

	msgs := r.lastRequest()
	require.Len(t, msgs, 2)
	assert.Equal(t, backend.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, r.session.Role("kalani"))
	assert.NotContains(t, msgs[0].Content, "{role}")
	p, _ := r.sc.Persona("kalani")
	assert.Equal(t, backend.Message{Role: backend.RoleSystem, Content: p.IntroPrompt}, msgs[1])
	assert.Equal(t, []transcript.Line{{Speaker: transcript.Assistant, Text: "ok"}}, r.store.Read("kalani"))

	c.Close()
	c.Open()
	r.m.Drain()
	assert.Equal(t, 1, r.requestCount(), "introduction is once per session")
}

func TestConversation_IntroRoleUser(t *testing.T) {
	r := newConvRig(t)
	r.conv("gregor").Open()
	r.waitLen("gregor", 1)
	msgs := r.lastRequest()
	assert.Equal(t, backend.RoleUser, msgs[len(msgs)-1].Role)
}

func TestConversation_NoIntroductionForExistingTranscript(t *testing.T) {
	r := newConvRig(t)
	r.store.Record("gregor", transcript.User, "hello again")
	r.conv("gregor").Open()
	r.m.Drain()
	assert.Equal(t, 0, r.requestCount())
	assert.Equal(t, 1, r.store.Len("gregor"))
}

func TestConversation_IntroductionFallback(t *testing.T) {
	r := newConvRig(t)
	r.setReply(func([]backend.Message) (string, error) { return "", errors.New("no network") })
	r.conv("gregor").Open()
	r.waitLen("gregor", 1)

	p, _ := r.sc.Persona("gregor")
	assert.Equal(t, p.IntroFallback, r.store.Read("gregor")[0].Text)
	assert.Empty(t, r.errs)
}

func TestConversation_SendEnrichesWithOtherTranscripts(t *testing.T) {
	r := newConvRig(t)
	r.store.Record("gregor", transcript.User, "hi")
	r.store.Record("gregor", transcript.Assistant, "Welcome to my studio!")
	r.store.Record("kalani", transcript.Assistant, "I am Logo Novo.")

	c := r.conv("kalani")
	c.Open()
	require.True(t, c.Send("  did you copy it?  "))

	// recorded before the backend answers
	require.Equal(t, transcript.Line{Speaker: transcript.User, Text: "did you copy it?"}, r.store.Read("kalani")[1])
	require.Equal(t, []transcript.Line{{Speaker: transcript.User, Text: "did you copy it?"}}, r.lines)

	r.waitLen("kalani", 3)
	msgs := r.lastRequest()
	require.Len(t, msgs, 3)
	assert.Equal(t, backend.RoleSystem, msgs[0].Role)
	assert.Equal(t, backend.Message{Role: backend.RoleAssistant, Content: "I am Logo Novo."}, msgs[1])
	assert.Equal(t, backend.RoleUser, msgs[2].Role)
	assert.True(t, strings.HasPrefix(msgs[2].Content, "did you copy it?\n\n[CONVERSATION HISTORY REFERENCE"))
	assert.Contains(t, msgs[2].Content, "--- CONVERSATION WITH RENTBRAND PICOSSO ---\n"+
		"USER (to Rentbrand Picosso): hi\n"+
		"Rentbrand Picosso (reply): Welcome to my studio!\n"+
		"--- END OF RENTBRAND PICOSSO CONVERSATION ---")
	assert.NotContains(t, msgs[2].Content, "CONVERSATION WITH LOGO NOVO")
	assert.NotContains(t, msgs[2].Content, "[CONTEXT:", "only focus-aware personas get a focus note")

	assert.Equal(t, transcript.Line{Speaker: transcript.Assistant, Text: "ok"}, r.store.Read("kalani")[2])
	assert.Equal(t, []bool{true, false}, r.busy)
}

func TestConversation_SendIgnored(t *testing.T) {
	r := newConvRig(t)
	r.store.Record("kalani", transcript.Assistant, "hi")
	c := r.conv("kalani")
	assert.False(t, c.Send("not open yet"))
	c.Open()
	assert.False(t, c.Send(" \t "))
	assert.Equal(t, 1, r.store.Len("kalani"))
	assert.Equal(t, 0, r.requestCount())
}

func TestConversation_BackendErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		reply func([]backend.Message) (string, error)
		want  string
	}{
		{"failure", func([]backend.Message) (string, error) { return "", errors.New("401") }, "[error] Could not get a reply."},
		{"empty", func([]backend.Message) (string, error) { return "", nil }, "[error] AI returned an empty message."},
		{"timeout", func([]backend.Message) (string, error) { return "", fmt.Errorf("call: %w", context.DeadlineExceeded) }, "[error] The reply took too long."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := newConvRig(t)
			r.store.Record("k2", transcript.Assistant, "Hello.")
			r.setReply(tc.reply)
			c := r.conv("k2")
			c.Open()
			c.Send("what happened?")
			testutil.DrainUntil(t, r.m, func() bool { return len(r.errs) > 0 })
			assert.Equal(t, []string{tc.want}, r.errs)
			// the player's line stays; the error is not persisted
			assert.Equal(t, []transcript.Line{
				{Speaker: transcript.Assistant, Text: "Hello."},
				{Speaker: transcript.User, Text: "what happened?"},
			}, r.store.Read("k2"))
		})
	}
}

func TestConversation_ReplyAfterCloseDiscarded(t *testing.T) {
	r := newConvRig(t)
	r.store.Record("kalani", transcript.Assistant, "hi")
	release := make(chan struct{})
	r.setReply(func([]backend.Message) (string, error) {
		<-release
		return "too late", nil
	})
	c := r.conv("kalani")
	c.Open()
	c.Send("are you there?")
	c.Close()
	close(release)
	testutil.DrainUntil(t, r.m, func() bool { return !c.Busy() })
	assert.Equal(t, 2, r.store.Len("kalani"))
	assert.Len(t, r.lines, 1)
}

func TestConversation_FocusNoteAndScriptedClueReply(t *testing.T) {
	r := newConvRig(t)
	r.store.Record("k2", transcript.Assistant, "Hello.")
	c := r.conv("k2")
	c.Open()

	require.True(t, c.Inspect("ai-config"))
	assert.Equal(t, "ai_config.xml", c.Focus().Title)
	require.Equal(t, 2, r.store.Len("k2"))
	assert.Equal(t, "You've clicked on the file 'ai_config.xml'. This is part of the defendant AI's archived data. "+
		"What would you like to know about this file or its contents?", r.store.Read("k2")[1].Text)
	assert.Equal(t, 0, r.requestCount(), "scripted replies need no backend call")

	require.True(t, c.Inspect("ai-config"))
	assert.Equal(t, 2, r.store.Len("k2"), "scripted reply is once per clue")

	c.Send("what is this?")
	r.waitLen("k2", 4)
	last := r.lastRequest()
	assert.Contains(t, last[len(last)-1].Content, "[CONTEXT: User is currently viewing file 'ai_config.xml' which contains: <config>")

	require.True(t, c.Inspect(""))
	assert.Nil(t, c.Focus())
	c.Send("and now?")
	r.waitLen("k2", 6)
	last = r.lastRequest()
	assert.Contains(t, last[len(last)-1].Content, "[CONTEXT: User is not currently viewing any specific file]")
}

func TestConversation_ClueNudge(t *testing.T) {
	r := newConvRig(t)
	r.store.Record("kalani", transcript.Assistant, "hi")
	r.setReply(func([]backend.Message) (string, error) {
		return "You've found the website I was on! That's where I found the logo.", nil
	})
	c := r.conv("kalani")
	c.Open()
	require.True(t, c.Inspect("website"))
	r.waitLen("kalani", 2)

	msgs := r.lastRequest()
	p, _ := r.sc.Persona("kalani")
	clue, _ := p.Clue("website")
	assert.Equal(t, backend.Message{Role: backend.RoleSystem, Content: clue.Nudge}, msgs[len(msgs)-1])
	assert.False(t, r.store.HasUserLine("kalani"), "nudges do not count as questioning")

	c.Inspect("website")
	r.m.Drain()
	assert.Equal(t, 1, r.requestCount())

	assert.False(t, c.Inspect("no-such-clue"))
}

func TestErrorText_QueueFull(t *testing.T) {
	assert.Equal(t, "[error] Still working on your earlier messages. Try again in a moment.", ErrorText(backend.ErrQueueFull))
	assert.Equal(t, "[error] AI returned an empty message.", ErrorText(&backend.Error{Op: "complete", Err: backend.ErrEmptyResponse}))
}
