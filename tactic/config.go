package tactic

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config contains client-wide configuration: secrets and HTTP knobs.
// Model choice lives in ModelProfile, not here.
type Config struct {
	// OpenAI configuration.
	OpenAIAPIKey     string // falls back to env OPENAI_API_KEY if empty and DetectEnv is true
	OpenAIBaseURL    string // optional; supports custom or Azure endpoint
	OpenAIOrgID      string // optional; also supports env OPENAI_ORG_ID
	OpenAIAPIType    string // "openai" (default) or "azure"
	OpenAIAPIVersion string // required for Azure

	// Google/GenAI configuration.
	GoogleAPIKey   string // falls back to env GOOGLE_API_KEY if empty and DetectEnv is true
	GoogleProject  string // required for Vertex AI
	GoogleLocation string // required for Vertex AI
	GoogleBaseURL  string // optional custom endpoint
	GoogleBackend  GoogleBackendKind

	// Anthropic configuration.
	AnthropicAPIKey  string // falls back to env ANTHROPIC_API_KEY, then ANTHROPIC_KEY
	AnthropicBaseURL string

	// OpenAI-compatible server for local models.
	LocalBaseURL string // falls back to env LOCAL_LLM_BASE_URL
	LocalAPIKey  string

	// Shared client options.
	HTTPClient *http.Client
	Timeout    time.Duration // applied to a default HTTP client when HTTPClient is nil

	// Logger receives adapter diagnostics; slog.Default() when nil.
	Logger *slog.Logger

	// Auto-detection.
	DetectEnv bool // when true, pull missing values from environment
}

func (cfg Config) fromEnv() Config {
	if !cfg.DetectEnv {
		return cfg
	}
	setIfEmpty(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.OpenAIOrgID, "OPENAI_ORG_ID")
	setIfEmpty(&cfg.GoogleAPIKey, "GOOGLE_API_KEY")
	setIfEmpty(&cfg.GoogleProject, "GOOGLE_CLOUD_PROJECT")
	setIfEmpty(&cfg.GoogleLocation, "GOOGLE_CLOUD_LOCATION")
	setIfEmpty(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setIfEmpty(&cfg.AnthropicAPIKey, "ANTHROPIC_KEY")
	setIfEmpty(&cfg.LocalBaseURL, "LOCAL_LLM_BASE_URL")
	return cfg
}

func setIfEmpty(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// httpClient returns nil when the SDK defaults should be used.
func (cfg Config) httpClient() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	if cfg.Timeout > 0 {
		return &http.Client{Timeout: cfg.Timeout}
	}
	return nil
}
