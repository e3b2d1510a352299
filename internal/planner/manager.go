package planner

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configures the manager.
type Config struct {
	DefaultProvider string                    `mapstructure:"default_provider" yaml:"default_provider" json:"default_provider"`
	Timeout         time.Duration             `mapstructure:"timeout"          yaml:"timeout"          json:"timeout"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"        yaml:"providers"        json:"providers"`
}

// Request is one planning call.
type Request struct {
	Prompt string
	System string
	// Provider selects a provider by name; empty means the default.
	Provider string
}

// Response carries the completion and who produced it.
type Response struct {
	Text     string
	Provider string
	Model    string
}

// Status describes one configured provider.
type Status struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Available bool   `json:"available"`
	Default   bool   `json:"default"`
}

// Manager selects a provider per call and falls back to the best available
// one in Priority order.
type Manager struct {
	providers   map[string]Provider
	defaultName string
	timeout     time.Duration
}

// NewManager builds providers from cfg.
func NewManager(cfg Config, httpClient *http.Client) (*Manager, error) {
	providers := make([]Provider, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		p, err := NewProvider(name, pc, httpClient)
		if err != nil {
			return nil, fmt.Errorf("init provider: %w", err)
		}
		providers = append(providers, p)
	}
	return NewManagerWith(cfg.DefaultProvider, cfg.Timeout, providers...), nil
}

// NewManagerWith wraps already constructed providers.
func NewManagerWith(defaultName string, timeout time.Duration, providers ...Provider) *Manager {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	m := &Manager{
		providers:   make(map[string]Provider, len(providers)),
		defaultName: defaultName,
		timeout:     timeout,
	}
	for _, p := range providers {
		m.providers[p.Name()] = p
	}
	return m
}

// Generate runs one completion under the manager timeout.
func (m *Manager) Generate(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	p, err := m.pick(ctx, req.Provider)
	if err != nil {
		return Response{}, err
	}
	start := time.Now()
	text, err := p.Generate(ctx, req.Prompt, req.System)
	log.Debug().
		Str("provider", p.Name()).
		Str("model", p.Model()).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("planner: generate")
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text, Provider: p.Name(), Model: p.Model()}, nil
}

func (m *Manager) pick(ctx context.Context, name string) (Provider, error) {
	if len(m.providers) == 0 {
		return nil, ErrNoProvider
	}
	if name == "" {
		name = m.defaultName
	}
	if p, ok := m.providers[name]; ok && p.Available(ctx) {
		return p, nil
	}
	best, ok := m.best(ctx, name)
	if !ok {
		return nil, fmt.Errorf("%w: requested %q", ErrUnavailable, name)
	}
	log.Info().Str("requested", name).Str("using", best.Name()).Msg("planner: falling back to available provider")
	return best, nil
}

// best returns the first available provider in Priority order, then any
// other available provider by name, skipping exclude.
func (m *Manager) best(ctx context.Context, exclude string) (Provider, bool) {
	for _, name := range m.order() {
		if name == exclude {
			continue
		}
		if p := m.providers[name]; p.Available(ctx) {
			return p, true
		}
	}
	return nil, false
}

func (m *Manager) order() []string {
	names := make([]string, 0, len(m.providers))
	for _, name := range Priority {
		if _, ok := m.providers[name]; ok {
			names = append(names, name)
		}
	}
	rest := make([]string, 0, len(m.providers))
	for name := range m.providers {
		if !slices.Contains(names, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Available reports whether any provider can be used.
func (m *Manager) Available(ctx context.Context) bool {
	_, err := m.pick(ctx, "")
	return err == nil
}

// Statuses lists the configured providers in fallback order.
func (m *Manager) Statuses(ctx context.Context) []Status {
	out := make([]Status, 0, len(m.providers))
	for _, name := range m.order() {
		p := m.providers[name]
		out = append(out, Status{
			Name:      name,
			Model:     p.Model(),
			Available: p.Available(ctx),
			Default:   name == m.defaultName,
		})
	}
	return out
}
