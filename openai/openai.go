package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/vasilisp/chatgraph"
	"github.com/vasilisp/chatgraph/internal/util"
	"github.com/vasilisp/chatgraph/pkg/slicev"
)

// Provider selects an OpenAI-compatible chat completions service.
type Provider string

const (
	OpenAI Provider = "openai"
	Groq   Provider = "groq"
)

const (
	GroqBaseURL = "https://api.groq.com/openai/v1"

	// Llama3_70B is the Groq-hosted model used by default.
	Llama3_70B = "llama3-70b-8192"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrNoChoices       = errors.New("completion has no choices")
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case OpenAI, Groq:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

func (p Provider) DefaultModel() string {
	switch p {
	case Groq:
		return Llama3_70B
	default:
		return string(openai.ChatModelGPT4oMini)
	}
}

// BaseURL returns the provider endpoint, or "" for the client default.
func (p Provider) BaseURL() string {
	if p == Groq {
		return GroqBaseURL
	}
	return ""
}

// KeyEnv names the environment variable conventionally holding the key.
func (p Provider) KeyEnv() string {
	if p == Groq {
		return "GROQ_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// Config is everything a Model needs. Empty Model and BaseURL fall back to
// the provider defaults.
type Config struct {
	Provider     Provider
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
}

// Model is a chatgraph.TurnProcessor backed by a chat completions endpoint.
// Requests are never retried.
type Model struct {
	client       *openai.Client
	modelID      openai.ChatModel
	systemPrompt string
}

// NewModel builds a Model from cfg. Extra options are applied after the
// ones derived from cfg.
func NewModel(cfg Config, opts ...option.RequestOption) (*Model, error) {
	if _, err := ParseProvider(string(cfg.Provider)); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, cfg.Provider)
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = cfg.Provider.DefaultModel()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.Provider.BaseURL()
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	client := openai.NewClient(clientOpts...)

	return &Model{
		client:       &client,
		modelID:      openai.ChatModel(modelID),
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

func (m *Model) ID() string {
	return string(m.modelID)
}

func toParams(systemPrompt string, history slicev.RO[chatgraph.Message]) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, history.Len()+1)

	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range history.All() {
		switch msg.Role {
		case chatgraph.System:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case chatgraph.Assistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	return messages
}

// Respond sends the whole history and returns the first choice as an
// assistant message. Errors from the service are returned as is.
func (m *Model) Respond(ctx context.Context, history slicev.RO[chatgraph.Message]) (chatgraph.Message, error) {
	response, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    m.modelID,
		Messages: toParams(m.systemPrompt, history),
	})
	if err != nil {
		return chatgraph.Message{}, err
	}

	if len(response.Choices) == 0 {
		return chatgraph.Message{}, ErrNoChoices
	}

	util.Log.Printf("%s: %d prompt tokens, %d completion tokens",
		m.modelID, response.Usage.PromptTokens, response.Usage.CompletionTokens)

	return chatgraph.AssistantMessage(response.Choices[0].Message.Content), nil
}
