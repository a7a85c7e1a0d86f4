package tactic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Client owns one long-lived SDK client per provider and builds adapters that
// share them. SDK clients are created on first use.
type Client struct {
	cfg Config

	mu        sync.Mutex
	openai    OpenAIClient      // lazily init
	local     OpenAIClient      // lazily init
	google    GoogleModels      // lazily init
	anthropic AnthropicMessages // lazily init
}

// New creates a Client with the given config.
// If DetectEnv is true, it pulls missing credentials from environment variables.
func New(cfg Config) *Client {
	cfg = cfg.fromEnv()
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{cfg: cfg}
}

// WithOpenAIClient installs a prebuilt OpenAI client (or a test double).
func (c *Client) WithOpenAIClient(oc OpenAIClient) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openai = oc
	return c
}

// WithLocalClient installs a prebuilt client for the OpenAI-compatible local server.
func (c *Client) WithLocalClient(oc OpenAIClient) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = oc
	return c
}

// WithGoogleModels installs a prebuilt genai model service.
func (c *Client) WithGoogleModels(gm GoogleModels) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.google = gm
	return c
}

// WithAnthropicMessages installs a prebuilt Anthropic message service.
func (c *Client) WithAnthropicMessages(am AnthropicMessages) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anthropic = am
	return c
}

// Adapter builds the Generator a profile describes. Unknown model families
// fail here with ErrUnsupportedModel, before any network call.
func (c *Client) Adapter(ctx context.Context, p ModelProfile) (Generator, error) {
	p = p.withDefaults()
	fam, err := resolveFamily(p.Model, p.Family)
	if err != nil {
		return nil, err
	}
	if p.Provider == "" {
		r, _ := fam.rules()
		p.Provider = r.provider
	}
	if p.Mode == "" {
		p.Mode = defaultMode(p.Provider)
	}

	switch p.Mode {
	case ModeStructured:
		b, err := c.structuredBackend(ctx, p.Provider)
		if err != nil {
			return nil, err
		}
		a, err := NewStructuredAdapter(p, b, c.cfg.Logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	case ModeText:
		b, err := c.textBackend(ctx, p.Provider)
		if err != nil {
			return nil, err
		}
		a, err := NewTextAdapter(p, b, c.cfg.Logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("tactic: unknown mode %q for %s", p.Mode, p.Name)
	}
}

func defaultMode(p Provider) Mode {
	switch p {
	case ProviderOpenAI, ProviderGoogle:
		return ModeStructured
	default:
		return ModeText
	}
}

func (c *Client) structuredBackend(ctx context.Context, p Provider) (StructuredBackend, error) {
	switch p {
	case ProviderOpenAI:
		oc, err := c.ensureOpenAI()
		if err != nil {
			return nil, err
		}
		return NewOpenAIChatBackend(oc), nil
	case ProviderGoogle:
		gm, err := c.ensureGoogle(ctx)
		if err != nil {
			return nil, err
		}
		return NewGoogleBackend(gm), nil
	default:
		return nil, fmt.Errorf("tactic: provider %q does not support structured output", p)
	}
}

func (c *Client) textBackend(ctx context.Context, p Provider) (TextBackend, error) {
	switch p {
	case ProviderOpenAI:
		oc, err := c.ensureOpenAI()
		if err != nil {
			return nil, err
		}
		return NewOpenAIChatBackend(oc), nil
	case ProviderLocal:
		oc, err := c.ensureLocal()
		if err != nil {
			return nil, err
		}
		return NewOpenAICompletionsBackend(oc), nil
	case ProviderGoogle:
		gm, err := c.ensureGoogle(ctx)
		if err != nil {
			return nil, err
		}
		return NewGoogleBackend(gm), nil
	case ProviderAnthropic:
		am, err := c.ensureAnthropic()
		if err != nil {
			return nil, err
		}
		return NewAnthropicBackend(am), nil
	default:
		return nil, fmt.Errorf("tactic: unsupported provider %q", p)
	}
}

func (c *Client) ensureOpenAI() (OpenAIClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openai == nil {
		oc, err := newOpenAIClient(c.cfg)
		if err != nil {
			return nil, err
		}
		c.openai = oc
	}
	return c.openai, nil
}

func (c *Client) ensureLocal() (OpenAIClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local == nil {
		oc, err := newLocalClient(c.cfg)
		if err != nil {
			return nil, err
		}
		c.local = oc
	}
	return c.local, nil
}

func (c *Client) ensureGoogle(ctx context.Context) (GoogleModels, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.google == nil {
		gm, err := newGoogleModels(ctx, c.cfg)
		if err != nil {
			return nil, err
		}
		c.google = gm
	}
	return c.google, nil
}

func (c *Client) ensureAnthropic() (AnthropicMessages, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.anthropic == nil {
		am, err := newAnthropicMessages(c.cfg)
		if err != nil {
			return nil, err
		}
		c.anthropic = am
	}
	return c.anthropic, nil
}
