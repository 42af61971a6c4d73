package llm

import (
	"fmt"
	"net/http"
)

// Options carries the per-slot settings a provider is built from.
type Options struct {
	Model    string
	APIKey   string
	Endpoint string
	RPM      int

	// HTTPClient overrides the transport for direct-HTTP adapters.
	HTTPClient *http.Client
}

// New creates the adapter for kind. Each kind maps to exactly one adapter.
func New(kind Kind, opts Options) (Provider, error) {
	var p Provider
	switch kind {
	case KindPrimaryChat:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%s: API key is not set", kind)
		}
		p = newChatCompletionsProvider("openai", opts.APIKey, opts.Model, opts.Endpoint, opts.HTTPClient)

	case KindCompatibleChat:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("%s: endpoint is required", kind)
		}
		p = NewCompatibleProvider(opts.APIKey, opts.Model, opts.Endpoint, opts.HTTPClient)

	case KindAltChat:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%s: API key is not set", kind)
		}
		p = NewAnthropicProvider(opts.APIKey, opts.Model, opts.Endpoint, opts.HTTPClient)

	case KindGenericHTTP:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("%s: endpoint is required", kind)
		}
		p = NewGenericHTTPProvider(opts.APIKey, opts.Model, opts.Endpoint, opts.HTTPClient)

	case KindOllama:
		p = NewOllamaProvider(opts.Endpoint, opts.Model, opts.HTTPClient)

	case KindGemini:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%s: API key is not set", kind)
		}
		p = NewGeminiProvider(opts.APIKey, opts.Model, opts.Endpoint, opts.HTTPClient)

	default:
		return nil, fmt.Errorf("unsupported provider kind: %q", kind)
	}

	if opts.RPM > 0 {
		p = NewRateLimitedProvider(p, opts.RPM)
	}
	return p, nil
}
