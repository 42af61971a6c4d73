package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides. A double underscore
// separates nested keys: VACHAT_STORE__TOP_K -> store.top_k.
const EnvPrefix = "VACHAT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (VACHAT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// ZeroFields replaces default maps and slices instead of merging into them,
	// so a file that lists its own providers does not inherit the defaults.
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
			ZeroFields:       true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validKinds is the set of recognized provider kinds.
var validKinds = map[ProviderKind]bool{
	KindPrimaryChat:    true,
	KindCompatibleChat: true,
	KindAltChat:        true,
	KindGenericHTTP:    true,
	KindOllama:         true,
	KindGemini:         true,
}

var validEmbeddingProviders = map[EmbeddingProvider]bool{
	EmbeddingOpenAI: true,
	EmbeddingOllama: true,
	EmbeddingGemini: true,
}

var validBackends = map[StoreBackend]bool{
	BackendChromem:  true,
	BackendPgvector: true,
}

// MaxSlots is the number of providers a single turn can be compared across.
const MaxSlots = 2

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for label, p := range c.Providers {
		if err := p.validate(label); err != nil {
			return err
		}
	}

	if err := c.ValidateSlots(c.DefaultSlots); err != nil {
		return fmt.Errorf("default_slots: %w", err)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout_seconds must be non-negative")
	}

	if !validEmbeddingProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider %q: must be one of openai, ollama, gemini", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.Embedding.BatchSize < 0 {
		return fmt.Errorf("embedding batch_size must be non-negative")
	}

	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend %q: must be one of chromem, pgvector", c.Store.Backend)
	}
	if c.Store.Backend == BackendChromem && c.Store.Dir == "" {
		return fmt.Errorf("store dir is required for the chromem backend")
	}
	if c.Store.Backend == BackendPgvector && c.Store.PostgresDSNEnv == "" {
		return fmt.Errorf("store postgres_dsn_env is required for the pgvector backend")
	}
	if c.Store.ChunkSize <= 0 {
		return fmt.Errorf("store chunk_size must be positive")
	}
	if c.Store.TopK <= 0 {
		return fmt.Errorf("store top_k must be positive")
	}

	if c.Policy.Moderation && c.Policy.ModerationModel == "" {
		return fmt.Errorf("policy moderation_model is required when moderation is enabled")
	}

	if c.Server.Port < 0 {
		return fmt.Errorf("server port must be non-negative")
	}

	return nil
}

func (p ProviderConfig) validate(label string) error {
	if label == "" || strings.Contains(label, ".") {
		return fmt.Errorf("invalid provider label %q: must be non-empty and contain no dots", label)
	}
	if !validKinds[p.Kind] {
		return fmt.Errorf("provider %s: invalid kind %q", label, p.Kind)
	}
	if p.Model == "" {
		return fmt.Errorf("provider %s: model is required", label)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("provider %s: temperature must be between 0 and 2", label)
	}
	if (p.Kind == KindGenericHTTP || p.Kind == KindCompatibleChat) && p.Endpoint == "" {
		return fmt.Errorf("provider %s: endpoint is required for kind %s", label, p.Kind)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("provider %s: max_tokens must be non-negative", label)
	}
	if p.RPM < 0 {
		return fmt.Errorf("provider %s: rpm must be non-negative", label)
	}
	return nil
}

// ValidateSlots checks that slots names one or two configured providers.
func (c *Config) ValidateSlots(slots []string) error {
	if len(slots) == 0 {
		return fmt.Errorf("at least one provider slot is required")
	}
	if len(slots) > MaxSlots {
		return fmt.Errorf("at most %d provider slots can be compared, got %d", MaxSlots, len(slots))
	}
	for _, s := range slots {
		if _, ok := c.Providers[s]; !ok {
			return fmt.Errorf("unknown provider %q", s)
		}
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider kind.
func APIKeyEnvVar(kind ProviderKind) string {
	switch kind {
	case KindPrimaryChat:
		return "OPENAI_API_KEY"
	case KindAltChat:
		return "ANTHROPIC_API_KEY"
	case KindGemini:
		return "GOOGLE_API_KEY"
	case KindGenericHTTP:
		return "AZURE_OPENAI_API_KEY"
	case KindCompatibleChat:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// OllamaHostEnv names the variable that points ollama slots at a
// non-default server when no endpoint is configured.
const OllamaHostEnv = "OLLAMA_HOST"

// ResolveEndpoint returns the configured endpoint, falling back to
// OllamaHostEnv for ollama slots. getenv is usually os.Getenv.
func (p ProviderConfig) ResolveEndpoint(getenv func(string) string) string {
	if p.Endpoint != "" || p.Kind != KindOllama {
		return p.Endpoint
	}
	return getenv(OllamaHostEnv)
}

// KeyEnv returns the environment variable holding this provider's credential.
func (p ProviderConfig) KeyEnv() string {
	if p.APIKeyEnv != "" {
		return p.APIKeyEnv
	}
	return APIKeyEnvVar(p.Kind)
}
