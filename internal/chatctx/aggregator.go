// Package chatctx builds the cross-conversation reference text that lets
// each persona know what the player told the others.
package chatctx

import (
	"strings"

	"github.com/joeycumines/courtroom/internal/transcript"
)

// Participant is a persona as seen by the aggregator.
type Participant struct {
	ID   string
	Name string
}

// Reader is the read side of a transcript store.
type Reader interface {
	Read(persona string) []transcript.Line
}

// Aggregator renders other personas' transcripts into a delimited block.
// Output depends only on the transcripts and the roster order.
type Aggregator struct {
	store  Reader
	roster []Participant
}

// New creates an aggregator over roster, which fixes the section order.
func New(store Reader, roster []Participant) *Aggregator {
	return &Aggregator{store: store, roster: append([]Participant(nil), roster...)}
}

// BuildReferenceBlock renders every participant other than exclude that has
// a non-empty transcript. It returns "" when there is nothing to render.
func (a *Aggregator) BuildReferenceBlock(exclude string) string {
	var b strings.Builder
	for _, p := range a.roster {
		if p.ID == exclude {
			continue
		}
		lines := a.store.Read(p.ID)
		if len(lines) == 0 {
			continue
		}
		writeSection(&b, p.Name, lines)
	}
	return b.String()
}

func writeSection(b *strings.Builder, name string, lines []transcript.Line) {
	upper := strings.ToUpper(name)
	b.WriteString("--- CONVERSATION WITH " + upper + " ---\n")
	for _, l := range lines {
		if l.Speaker == transcript.User {
			b.WriteString("USER (to " + name + "): ")
		} else {
			b.WriteString(name + " (reply): ")
		}
		b.WriteString(indentContinuation(l.Text))
		b.WriteByte('\n')
	}
	b.WriteString("--- END OF " + upper + " CONVERSATION ---\n\n")
}

// indentContinuation indents every line after the first by four spaces, so a
// multi-line utterance cannot be mistaken for a new tagged line.
func indentContinuation(text string) string {
	return strings.ReplaceAll(text, "\n", "\n    ")
}

const (
	referenceHeader = "[CONVERSATION HISTORY REFERENCE: The user has spoken to other participants. " +
		"When asked 'what did I say to [PARTICIPANT]', find the exact conversation section with that " +
		"participant and look for messages starting with 'USER (to PARTICIPANT):'. Do NOT confuse " +
		"different participants' conversations. Each is clearly separated.\n\n"
	referenceFooter = "IMPORTANT: If asked about what the user said to a specific participant, ONLY " +
		"look in that participant's conversation section. Do not reference other participants when " +
		"answering about a specific one.]"
)

// Enhance appends the reference block for exclude to content. Content is
// returned unchanged when the block is empty.
func (a *Aggregator) Enhance(content, exclude string) string {
	block := a.BuildReferenceBlock(exclude)
	if block == "" {
		return content
	}
	return content + "\n\n" + referenceHeader + block + referenceFooter
}
