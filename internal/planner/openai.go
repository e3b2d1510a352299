package planner

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAIKeyEnv  = "OPENAI_API_KEY"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	defaultOllamaModel   = "llama3.2"
)

// ChatProvider speaks the OpenAI chat completions protocol. It serves both
// OpenAI and Ollama through its OpenAI-compatible endpoint.
type ChatProvider struct {
	name   string
	model  string
	hasKey bool
	probe  bool
	client *openai.Client
}

// NewOpenAI creates an OpenAI provider. A missing API key makes the
// provider unavailable rather than failing construction.
func NewOpenAI(name string, cfg ProviderConfig, httpClient *http.Client) (*ChatProvider, error) {
	key := resolveAPIKey(cfg, defaultOpenAIKeyEnv)
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	clientCfg := openai.DefaultConfig(key)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	return &ChatProvider{
		name:   name,
		model:  model,
		hasKey: key != "",
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// NewOllama creates a provider for a local Ollama server. Availability is
// probed by listing models.
func NewOllama(name string, cfg ProviderConfig, httpClient *http.Client) (*ChatProvider, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOllamaModel
	}
	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = defaultOllamaBaseURL
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	return &ChatProvider{
		name:   name,
		model:  model,
		hasKey: true,
		probe:  true,
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// Name returns the configured provider name.
func (p *ChatProvider) Name() string { return p.name }

// Model returns the model used for completions.
func (p *ChatProvider) Model() string { return p.model }

// Available reports whether the provider can be called.
func (p *ChatProvider) Available(ctx context.Context) bool {
	if !p.hasKey {
		return false
	}
	if !p.probe {
		return true
	}
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Generate sends one chat completion request.
func (p *ChatProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no choices", p.name)
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%s chat completion: empty content", p.name)
	}
	return out, nil
}
