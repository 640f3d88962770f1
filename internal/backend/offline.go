package backend

import (
	"context"
	"hash/fnv"
	"strings"
)

// Offline answers from a fixed phrasebook, so the game is playable without
// network access. The reply depends only on the last message.
type Offline struct {
	Replies []string
}

// DefaultOfflineReplies is the phrasebook used by NewOffline.
var DefaultOfflineReplies = []string{
	"I have already told you everything I remember.",
	"That is an interesting question. Why do you ask?",
	"I would rather not speculate about that.",
	"You should ask the others what they saw.",
	"The records will show I did nothing wrong.",
	"I remember it differently, but go on.",
}

// NewOffline creates an offline backend with the default phrasebook.
func NewOffline() *Offline {
	return &Offline{Replies: DefaultOfflineReplies}
}

// Complete implements ChatBackend.
func (o *Offline) Complete(ctx context.Context, messages []Message, _ ModelConfig) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, &Error{Op: "offline completion", Err: err}
	}
	if len(o.Replies) == 0 || len(messages) == 0 {
		return Message{}, &Error{Op: "offline completion", Err: ErrEmptyResponse}
	}
	// ignore appended reference blocks so replies stay stable as the game
	// progresses
	last, _, _ := strings.Cut(messages[len(messages)-1].Content, "\n\n[")
	h := fnv.New32a()
	_, _ = h.Write([]byte(last))
	return Message{Role: RoleAssistant, Content: o.Replies[h.Sum32()%uint32(len(o.Replies))]}, nil
}
