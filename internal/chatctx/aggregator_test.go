package chatctx

import (
	"strings"
	"testing"

	"github.com/joeycumines/courtroom/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roster = []Participant{
	{ID: "kalani", Name: "Logo Nova"},
	{ID: "gregor", Name: "Rentbrand Picosso"},
	{ID: "k2", Name: "K2"},
}

func newStore(t *testing.T) *transcript.Store {
	t.Helper()
	return transcript.New(nil)
}

func TestBuildReferenceBlock_Empty(t *testing.T) {
	s := newStore(t)
	a := New(s, roster)
	assert.Equal(t, "", a.BuildReferenceBlock("kalani"))

	// only the excluded persona has a transcript
	require.NoError(t, s.Append("kalani", transcript.User, "hi"))
	assert.Equal(t, "", a.BuildReferenceBlock("kalani"))
}

func TestBuildReferenceBlock_Exact(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("gregor", transcript.User, "Where were you?"))
	require.NoError(t, s.Append("gregor", transcript.Assistant, "At the gallery."))
	require.NoError(t, s.Append("k2", transcript.User, "Show me the logs"))
	require.NoError(t, s.Append("k2", transcript.Assistant, "line one\nline two"))

	got := New(s, roster).BuildReferenceBlock("kalani")

	want := "--- CONVERSATION WITH RENTBRAND PICOSSO ---\n" +
		"USER (to Rentbrand Picosso): Where were you?\n" +
		"Rentbrand Picosso (reply): At the gallery.\n" +
		"--- END OF RENTBRAND PICOSSO CONVERSATION ---\n\n" +
		"--- CONVERSATION WITH K2 ---\n" +
		"USER (to K2): Show me the logs\n" +
		"K2 (reply): line one\n    line two\n" +
		"--- END OF K2 CONVERSATION ---\n\n"
	assert.Equal(t, want, got)
}

func TestBuildReferenceBlock_DeterministicAndExcludes(t *testing.T) {
	s := newStore(t)
	for _, p := range roster {
		require.NoError(t, s.Append(p.ID, transcript.User, "hello "+p.Name))
	}
	a := New(s, roster)

	for _, p := range roster {
		block := a.BuildReferenceBlock(p.ID)
		assert.NotContains(t, block, "CONVERSATION WITH "+strings.ToUpper(p.Name)+" ---")
		assert.Equal(t, block, a.BuildReferenceBlock(p.ID))
		assert.Equal(t, 2, strings.Count(block, "--- END OF "))
	}

	// roster order, not insertion order
	block := a.BuildReferenceBlock("none")
	assert.Less(t, strings.Index(block, "LOGO NOVA"), strings.Index(block, "RENTBRAND PICOSSO"))
	assert.Less(t, strings.Index(block, "RENTBRAND PICOSSO"), strings.Index(block, "WITH K2"))
}

func TestEnhance(t *testing.T) {
	s := newStore(t)
	a := New(s, roster)

	assert.Equal(t, "question", a.Enhance("question", "k2"))

	require.NoError(t, s.Append("kalani", transcript.User, "I saw the logo"))
	got := a.Enhance("question", "k2")
	assert.True(t, strings.HasPrefix(got, "question\n\n[CONVERSATION HISTORY REFERENCE: "))
	assert.Contains(t, got, "USER (to Logo Nova): I saw the logo\n")
	assert.True(t, strings.HasSuffix(got, "answering about a specific one.]"))
}
