package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// DefaultPath is the config file the CLI reads when --config is not given.
const DefaultPath = ".vachat.yml"

// modelPresets maps a provider kind to a suggested model.
var modelPresets = map[ProviderKind]string{
	KindPrimaryChat:    "gpt-4",
	KindAltChat:        "claude-3-sonnet-20240229",
	KindCompatibleChat: "meta-llama/llama-3.1-70b-instruct",
	KindGenericHTTP:    "gpt-4",
	KindOllama:         "llama3.1",
	KindGemini:         "gemini-1.5-pro",
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to vachat! Let's configure the assistant.")
	fmt.Println()

	cfg := DefaultConfig()
	cfg.Providers = map[string]ProviderConfig{}

	// 1. Providers. The first one becomes the default slot.
	for {
		label, p, err := promptProvider(len(cfg.Providers) == 0)
		if err != nil {
			return nil, err
		}
		cfg.Providers[label] = p
		if len(cfg.DefaultSlots) == 0 || len(cfg.Providers) == 1 {
			cfg.DefaultSlots = []string{label}
		}

		more := promptui.Prompt{Label: "Add another provider for side-by-side comparison", IsConfirm: true}
		if _, err := more.Run(); err != nil {
			break
		}
	}

	// 2. Embeddings.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{string(EmbeddingOpenAI), string(EmbeddingOllama), string(EmbeddingGemini)},
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}
	cfg.Embedding.Provider = EmbeddingProvider(embedStr)
	switch cfg.Embedding.Provider {
	case EmbeddingOllama:
		cfg.Embedding.Model = "nomic-embed-text"
		cfg.Embedding.APIKeyEnv = ""
	case EmbeddingGemini:
		cfg.Embedding.Model = "text-embedding-004"
		cfg.Embedding.APIKeyEnv = "GOOGLE_API_KEY"
	}

	// 3. Store backend.
	backendPrompt := promptui.Select{
		Label: "Select vector store backend",
		Items: []string{string(BackendChromem), string(BackendPgvector)},
	}
	_, backendStr, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	cfg.Store.Backend = StoreBackend(backendStr)

	// 4. Content files.
	contentPrompt := promptui.Prompt{
		Label:   "Crawled content files (comma-separated globs)",
		Default: strings.Join(cfg.Store.ContentFiles, ","),
	}
	contentStr, err := contentPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("content files: %w", err)
	}
	cfg.Store.ContentFiles = splitAndTrim(contentStr)

	// 5. Retrieval depth.
	topKPrompt := promptui.Prompt{
		Label:    "Chunks retrieved per question",
		Default:  strconv.Itoa(cfg.Store.TopK),
		Validate: positiveInt,
	}
	topKStr, err := topKPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("top_k: %w", err)
	}
	cfg.Store.TopK, _ = strconv.Atoi(topKStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API keys.
	for label, p := range cfg.Providers {
		if envVar := p.KeyEnv(); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before using provider %s.\n", envVar, label)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func promptProvider(first bool) (string, ProviderConfig, error) {
	kinds := []string{
		string(KindPrimaryChat),
		string(KindAltChat),
		string(KindCompatibleChat),
		string(KindGenericHTTP),
		string(KindOllama),
		string(KindGemini),
	}
	label := "Select provider kind"
	if first {
		label = "Select the default provider kind"
	}
	kindPrompt := promptui.Select{Label: label, Items: kinds}
	_, kindStr, err := kindPrompt.Run()
	if err != nil {
		return "", ProviderConfig{}, fmt.Errorf("provider selection: %w", err)
	}
	kind := ProviderKind(kindStr)

	modelPrompt := promptui.Prompt{Label: "Model", Default: modelPresets[kind]}
	model, err := modelPrompt.Run()
	if err != nil {
		return "", ProviderConfig{}, fmt.Errorf("model: %w", err)
	}

	p := ProviderConfig{
		Kind:        kind,
		Model:       model,
		Temperature: 0.7,
		APIKeyEnv:   APIKeyEnvVar(kind),
	}
	if kind == KindAltChat {
		p.MaxTokens = 1000
	}

	if kind == KindGenericHTTP || kind == KindCompatibleChat {
		endpointPrompt := promptui.Prompt{
			Label:    "Endpoint URL",
			Validate: nonEmpty,
		}
		if p.Endpoint, err = endpointPrompt.Run(); err != nil {
			return "", ProviderConfig{}, fmt.Errorf("endpoint: %w", err)
		}
	}

	labelPrompt := promptui.Prompt{
		Label:   "Slot label",
		Default: strings.ReplaceAll(model, ".", "-"),
		Validate: func(s string) error {
			if s == "" || strings.Contains(s, ".") {
				return fmt.Errorf("label must be non-empty and contain no dots")
			}
			return nil
		},
	}
	slot, err := labelPrompt.Run()
	if err != nil {
		return "", ProviderConfig{}, fmt.Errorf("label: %w", err)
	}
	return slot, p, nil
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
