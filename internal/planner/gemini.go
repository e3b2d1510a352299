package planner

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel  = "gemini-2.5-flash"
	defaultGeminiKeyEnv = "GEMINI_API_KEY"
)

// GeminiProvider calls the Gemini API. The client is created lazily so a
// missing key only makes the provider unavailable.
type GeminiProvider struct {
	name       string
	model      string
	key        string
	baseURL    string
	httpClient *http.Client
	client     *genai.Client
}

// NewGemini creates a Gemini provider.
func NewGemini(name string, cfg ProviderConfig, httpClient *http.Client) (*GeminiProvider, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		name:       name,
		model:      model,
		key:        resolveAPIKey(cfg, defaultGeminiKeyEnv),
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		httpClient: httpClient,
	}, nil
}

// Name returns the configured provider name.
func (p *GeminiProvider) Name() string { return p.name }

// Model returns the model used for completions.
func (p *GeminiProvider) Model() string { return p.model }

// Available reports whether an API key is configured.
func (p *GeminiProvider) Available(context.Context) bool { return p.key != "" }

func (p *GeminiProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	if p.client != nil {
		return p.client, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     p.key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

// Generate requests a JSON completion.
func (p *GeminiProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("%s generate content: %w", p.name, err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", fmt.Errorf("%s generate content: empty response", p.name)
	}
	return out, nil
}
