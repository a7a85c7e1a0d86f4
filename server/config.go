package server

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/oraraka-deko/leantac/tactic"
)

// Config is the daemon configuration file.
type Config struct {
	Listen         string        `yaml:"listen" validate:"required"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	Concurrency    int           `yaml:"concurrency" validate:"gte=0,lte=64"`

	Providers ProvidersConfig `yaml:"providers"`
	Cache     CacheConfig     `yaml:"cache"`
	Retry     RetryConfig     `yaml:"retry"`

	Models []ModelConfig `yaml:"models" validate:"required,min=1,unique=Name,dive"`
}

// ProvidersConfig holds endpoint overrides. Secrets come from the environment.
type ProvidersConfig struct {
	OpenAIBaseURL  string `yaml:"openai_base_url" validate:"omitempty,url"`
	OpenAIAPIType  string `yaml:"openai_api_type" validate:"omitempty,oneof=openai azure"`
	GoogleBackend  string `yaml:"google_backend" validate:"omitempty,oneof=auto gemini vertex"`
	GoogleProject  string `yaml:"google_project"`
	GoogleLocation string `yaml:"google_location"`
	LocalBaseURL   string `yaml:"local_base_url" validate:"omitempty,url"`
	AnthropicURL   string `yaml:"anthropic_base_url" validate:"omitempty,url"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl" validate:"gte=0"`
	MaxEntries int           `yaml:"max_entries" validate:"gte=0"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"gte=0,lte=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" validate:"gte=0"`
}

// ModelConfig is one served model.
type ModelConfig struct {
	Name     string `yaml:"name" validate:"required"`
	Model    string `yaml:"model" validate:"required"`
	Family   string `yaml:"family" validate:"omitempty,oneof=internlm kimina gpt-fenced gpt-plain claude gemini"`
	Provider string `yaml:"provider" validate:"omitempty,oneof=openai google anthropic local"`
	Mode     string `yaml:"mode" validate:"omitempty,oneof=structured text"`

	MaxOutputTokens int `yaml:"max_output_tokens" validate:"gte=0"`
	TokenFloor      int `yaml:"token_floor" validate:"gte=0"`
	MaxSuggestions  int `yaml:"max_suggestions" validate:"gte=0,lte=5"`
	MaxAttempts     int `yaml:"max_attempts" validate:"gte=0,lte=10"`

	ReasoningEffort string   `yaml:"reasoning_effort" validate:"omitempty,oneof=minimal low medium high"`
	Temperature     *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	TopP            *float64 `yaml:"top_p" validate:"omitempty,gt=0,lte=1"`

	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	EnforcePrefix     bool          `yaml:"enforce_prefix"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
}

var validate = validator.New()

// DefaultConfig serves gpt-5-mini and gpt-5-nano in structured mode.
func DefaultConfig() Config {
	gpt5 := func(name string) ModelConfig {
		return ModelConfig{
			Name:            name,
			Model:           name,
			Provider:        string(tactic.ProviderOpenAI),
			Mode:            string(tactic.ModeStructured),
			MaxOutputTokens: 1024,
			MaxSuggestions:  tactic.MaxSuggestions,
			ReasoningEffort: "medium",
			Timeout:         45 * time.Second,
		}
	}
	return Config{
		Listen:         ":23337",
		RequestTimeout: 2 * time.Minute,
		Concurrency:    4,
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        10 * time.Minute,
			MaxEntries: 4096,
		},
		Retry: RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
		},
		Models: []ModelConfig{gpt5("gpt-5-mini"), gpt5("gpt-5-nano")},
	}
}

// LoadConfig reads a YAML file over the defaults. Environment references such
// as ${LOCAL_LLM_BASE_URL} are expanded before parsing. An empty path returns
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and that every model maps to a known family.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, m := range c.Models {
		var err error
		if m.Family != "" {
			_, err = tactic.ParseFamily(m.Family)
		} else {
			_, err = tactic.FamilyOf(m.Model)
		}
		if err != nil {
			return fmt.Errorf("invalid config: model %q: %w", m.Name, err)
		}
	}
	return nil
}

// ClientConfig maps provider settings onto the tactic client. Credentials
// are read from the environment.
func (c Config) ClientConfig() tactic.Config {
	p := c.Providers
	cfg := tactic.Config{
		OpenAIBaseURL:    p.OpenAIBaseURL,
		OpenAIAPIType:    p.OpenAIAPIType,
		GoogleProject:    p.GoogleProject,
		GoogleLocation:   p.GoogleLocation,
		LocalBaseURL:     p.LocalBaseURL,
		AnthropicBaseURL: p.AnthropicURL,
		DetectEnv:        true,
	}
	switch p.GoogleBackend {
	case "gemini":
		cfg.GoogleBackend = tactic.GoogleBackendGemini
	case "vertex":
		cfg.GoogleBackend = tactic.GoogleBackendVertex
	}
	return cfg
}

// Profiles converts the model entries into adapter profiles.
func (c Config) Profiles() []tactic.ModelProfile {
	out := make([]tactic.ModelProfile, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, tactic.ModelProfile{
			Name:              m.Name,
			Model:             m.Model,
			Family:            m.Family,
			Provider:          tactic.Provider(m.Provider),
			Mode:              tactic.Mode(m.Mode),
			MaxOutputTokens:   m.MaxOutputTokens,
			TokenFloor:        m.TokenFloor,
			MaxSuggestions:    m.MaxSuggestions,
			MaxAttempts:       m.MaxAttempts,
			ReasoningEffort:   m.ReasoningEffort,
			Temperature:       m.Temperature,
			TopP:              m.TopP,
			Timeout:           m.Timeout,
			EnforcePrefix:     m.EnforcePrefix,
			RequestsPerMinute: m.RequestsPerMinute,
		})
	}
	return out
}

// TacticRetry returns the registry retry policy.
func (c Config) TacticRetry() tactic.RetryConfig {
	rc := tactic.DefaultRetryConfig
	if c.Retry.MaxAttempts > 0 {
		rc.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.InitialBackoff > 0 {
		rc.InitialBackoff = c.Retry.InitialBackoff
	}
	if c.Retry.MaxBackoff > 0 {
		rc.MaxBackoff = c.Retry.MaxBackoff
	}
	return rc
}

// SuggestionCache returns the suggestion cache, or nil when caching is disabled.
func (c Config) SuggestionCache() *tactic.SuggestionCache {
	if !c.Cache.Enabled {
		return nil
	}
	return tactic.NewSuggestionCache(c.Cache.TTL, c.Cache.MaxEntries)
}
