// Package backend defines the conversational text-completion contract the
// game talks to, and the queue that keeps those calls off the event loop.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role
	Content string
}

// ModelConfig is passed through to the backend unchanged.
type ModelConfig struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"topP"`
	N           int     `yaml:"n"`
}

// ChatBackend completes a conversation with one message.
type ChatBackend interface {
	Complete(ctx context.Context, messages []Message, cfg ModelConfig) (Message, error)
}

// Func adapts a function to ChatBackend.
type Func func(ctx context.Context, messages []Message, cfg ModelConfig) (Message, error)

// Complete implements ChatBackend.
func (f Func) Complete(ctx context.Context, messages []Message, cfg ModelConfig) (Message, error) {
	return f(ctx, messages, cfg)
}

// ErrEmptyResponse is returned when the backend replies with no content.
var ErrEmptyResponse = errors.New("AI returned an empty message")

// Error reports a failed backend call.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("backend %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
