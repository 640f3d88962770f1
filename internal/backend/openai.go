package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig is read from the environment.
type OpenAIConfig struct {
	APIKey  string        `env:"OPENAI_API_KEY"`
	BaseURL string        `env:"OPENAI_BASE_URL"`
	Timeout time.Duration `env:"COURTROOM_BACKEND_TIMEOUT" envDefault:"60s"`
	Retries int           `env:"COURTROOM_BACKEND_RETRIES" envDefault:"2"`
}

// OpenAI is a ChatBackend over the OpenAI chat completions API.
type OpenAI struct {
	client  openai.Client
	timeout time.Duration
}

// NewOpenAI creates the adapter. An API key is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(max(cfg.Retries, 0)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		timeout: cfg.Timeout,
	}, nil
}

// Complete implements ChatBackend.
func (o *OpenAI) Complete(ctx context.Context, messages []Message, cfg ModelConfig) (Message, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.client.Chat.Completions.New(ctx, chatParams(messages, cfg))
	if err != nil {
		return Message{}, &Error{Op: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Message{}, &Error{Op: "chat completion", Err: ErrEmptyResponse}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return Message{}, &Error{Op: "chat completion", Err: ErrEmptyResponse}
	}
	return Message{Role: RoleAssistant, Content: content}, nil
}

func chatParams(messages []Message, cfg ModelConfig) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(cfg.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxTokens))
	}
	if cfg.Temperature > 0 {
		params.Temperature = openai.Float(cfg.Temperature)
	}
	if cfg.TopP > 0 {
		params.TopP = openai.Float(cfg.TopP)
	}
	if cfg.N > 0 {
		params.N = openai.Int(int64(cfg.N))
	}
	return params
}
