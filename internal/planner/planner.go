// Package planner talks to language-model backends that turn an instruction
// plus screen context into a structured action plan.
package planner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	// ErrNoProvider is returned when no configured provider matches.
	ErrNoProvider = errors.New("no llm provider configured")
	// ErrUnavailable is returned when no configured provider is usable.
	ErrUnavailable = errors.New("no llm provider available")
)

// Provider types.
const (
	TypeOllama = "ollama"
	TypeOpenAI = "openai"
	TypeGemini = "gemini"
)

// Priority is the fallback order used when the requested provider is not
// usable.
var Priority = []string{TypeOllama, TypeOpenAI, TypeGemini}

const defaultTimeout = 60 * time.Second

// Provider generates a completion for a prompt and system prompt.
type Provider interface {
	Name() string
	Model() string
	Available(ctx context.Context) bool
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// ProviderConfig configures one provider.
type ProviderConfig struct {
	Type      string `mapstructure:"type"        yaml:"type"                  json:"type"`
	Model     string `mapstructure:"model"       yaml:"model"                 json:"model"`
	BaseURL   string `mapstructure:"base_url"    yaml:"base_url,omitempty"    json:"base_url,omitempty"`
	APIKey    string `mapstructure:"api_key"     yaml:"api_key,omitempty"     json:"-"`
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
}

// NewProvider builds the provider for cfg.Type.
func NewProvider(name string, cfg ProviderConfig, httpClient *http.Client) (Provider, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		typ = strings.ToLower(name)
	}
	switch typ {
	case TypeOpenAI:
		return NewOpenAI(name, cfg, httpClient)
	case TypeOllama:
		return NewOllama(name, cfg, httpClient)
	case TypeGemini:
		return NewGemini(name, cfg, httpClient)
	default:
		return nil, fmt.Errorf("provider %q: unsupported type %q", name, cfg.Type)
	}
}

func resolveAPIKey(cfg ProviderConfig, defaultEnv string) string {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key
	}
	env := strings.TrimSpace(cfg.APIKeyEnv)
	if env == "" {
		env = defaultEnv
	}
	return strings.TrimSpace(os.Getenv(env))
}
