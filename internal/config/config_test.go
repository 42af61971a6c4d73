package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.DefaultSlots) != 1 || cfg.DefaultSlots[0] != "gpt-4" {
		t.Errorf("expected default slot gpt-4, got %v", cfg.DefaultSlots)
	}
	if cfg.Store.ChunkSize != 60 {
		t.Errorf("expected default chunk_size 60, got %d", cfg.Store.ChunkSize)
	}
	if cfg.Store.TopK != 8 {
		t.Errorf("expected default top_k 8, got %d", cfg.Store.TopK)
	}
	if cfg.Providers["claude-3-sonnet"].MaxTokens != 1000 {
		t.Errorf("expected alt-chat max_tokens 1000, got %d", cfg.Providers["claude-3-sonnet"].MaxTokens)
	}
	if !cfg.Policy.FailOpen {
		t.Error("expected moderation to fail open by default")
	}
}

func TestDefaultConfigMetricsNotShared(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Evaluation.Metrics[0] = "changed"
	if DefaultMetrics[0] != "relevancy" {
		t.Errorf("DefaultConfig shares its metrics slice with DefaultMetrics")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.vachat.yml")

	original := DefaultConfig()
	original.Providers = map[string]ProviderConfig{
		"azure": {Kind: KindGenericHTTP, Model: "gpt-4", Endpoint: "https://example.test/chat", Temperature: 0.2},
		"local": {Kind: KindOllama, Model: "llama3.1", Temperature: 0.7},
	}
	original.DefaultSlots = []string{"azure", "local"}
	original.Store.ChunkSize = 120
	original.Evaluation.Metrics = []string{"relevancy", "faithfulness"}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Providers) != 2 {
		t.Fatalf("providers: got %d, want 2 (defaults must not be merged in)", len(loaded.Providers))
	}
	if loaded.Providers["azure"].Endpoint != "https://example.test/chat" {
		t.Errorf("endpoint: got %q", loaded.Providers["azure"].Endpoint)
	}
	if loaded.Providers["azure"].Temperature != 0.2 {
		t.Errorf("temperature: got %f, want 0.2", loaded.Providers["azure"].Temperature)
	}
	if len(loaded.DefaultSlots) != 2 || loaded.DefaultSlots[1] != "local" {
		t.Errorf("default_slots: got %v", loaded.DefaultSlots)
	}
	if loaded.Store.ChunkSize != 120 {
		t.Errorf("chunk_size: got %d, want 120", loaded.Store.ChunkSize)
	}
	if len(loaded.Evaluation.Metrics) != 2 {
		t.Errorf("metrics: got %v, want 2 entries", loaded.Evaluation.Metrics)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("round-tripped config should be valid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Store.Collection != "va_docs" {
		t.Errorf("expected default collection, got %q", cfg.Store.Collection)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yml")
	if err := os.WriteFile(path, []byte("store:\n  top_k: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.TopK != 3 {
		t.Errorf("top_k: got %d, want 3", cfg.Store.TopK)
	}
	if cfg.Store.ChunkSize != 60 {
		t.Errorf("chunk_size should keep its default, got %d", cfg.Store.ChunkSize)
	}
	if _, ok := cfg.Providers["gpt-4"]; !ok {
		t.Error("default providers should survive when the file does not list any")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("VACHAT_STORE__TOP_K", "4")
	t.Setenv("VACHAT_POLICY__FAIL_OPEN", "false")
	t.Setenv("VACHAT_SYSTEM_PROMPT", "custom prompt")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Store.TopK != 4 {
		t.Errorf("env override failed: top_k got %d, want 4", loaded.Store.TopK)
	}
	if loaded.Policy.FailOpen {
		t.Error("env override failed: fail_open should be false")
	}
	if loaded.SystemPrompt != "custom prompt" {
		t.Errorf("env override failed: system_prompt got %q", loaded.SystemPrompt)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"VACHAT_STORE__TOP_K", "store.top_k"},
		{"VACHAT_SYSTEM_PROMPT", "system_prompt"},
		{"VACHAT_SERVER__PORT", "server.port"},
	}
	for _, tt := range tests {
		if got := envKey(tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no providers", func(c *Config) { c.Providers = nil }},
		{"invalid kind", func(c *Config) {
			c.Providers["gpt-4"] = ProviderConfig{Kind: "telepathy", Model: "x"}
		}},
		{"empty model", func(c *Config) {
			c.Providers["gpt-4"] = ProviderConfig{Kind: KindPrimaryChat}
		}},
		{"dotted label", func(c *Config) {
			c.Providers["gpt.4"] = ProviderConfig{Kind: KindPrimaryChat, Model: "gpt-4"}
		}},
		{"generic-http without endpoint", func(c *Config) {
			c.Providers["azure"] = ProviderConfig{Kind: KindGenericHTTP, Model: "gpt-4"}
		}},
		{"temperature out of range", func(c *Config) {
			c.Providers["gpt-4"] = ProviderConfig{Kind: KindPrimaryChat, Model: "gpt-4", Temperature: 3}
		}},
		{"no default slots", func(c *Config) { c.DefaultSlots = nil }},
		{"too many slots", func(c *Config) {
			c.Providers["third"] = ProviderConfig{Kind: KindOllama, Model: "llama3.1"}
			c.DefaultSlots = []string{"gpt-4", "claude-3-sonnet", "third"}
		}},
		{"unknown slot", func(c *Config) { c.DefaultSlots = []string{"missing"} }},
		{"invalid embedding provider", func(c *Config) { c.Embedding.Provider = "bert" }},
		{"invalid backend", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"zero chunk size", func(c *Config) { c.Store.ChunkSize = 0 }},
		{"zero top_k", func(c *Config) { c.Store.TopK = 0 }},
		{"pgvector without dsn env", func(c *Config) {
			c.Store.Backend = BackendPgvector
			c.Store.PostgresDSNEnv = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidateSlots(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateSlots([]string{"gpt-4", "claude-3-sonnet"}); err != nil {
		t.Errorf("two configured slots should be valid: %v", err)
	}
	if err := cfg.ValidateSlots([]string{"gpt-4", "nope"}); err == nil {
		t.Error("expected error for unknown slot")
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		kind ProviderKind
		want string
	}{
		{KindAltChat, "ANTHROPIC_API_KEY"},
		{KindPrimaryChat, "OPENAI_API_KEY"},
		{KindGemini, "GOOGLE_API_KEY"},
		{KindOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.kind)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestResolveEndpoint(t *testing.T) {
	env := map[string]string{OllamaHostEnv: "http://gpu-box:11434"}
	getenv := func(k string) string { return env[k] }

	tests := []struct {
		name string
		p    ProviderConfig
		want string
	}{
		{"ollama from env", ProviderConfig{Kind: KindOllama}, "http://gpu-box:11434"},
		{"ollama explicit wins", ProviderConfig{Kind: KindOllama, Endpoint: "http://local:11434"}, "http://local:11434"},
		{"other kinds ignore env", ProviderConfig{Kind: KindPrimaryChat}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.ResolveEndpoint(getenv); got != tt.want {
				t.Errorf("ResolveEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyEnvPrefersExplicit(t *testing.T) {
	p := ProviderConfig{Kind: KindPrimaryChat, APIKeyEnv: "MY_KEY"}
	if p.KeyEnv() != "MY_KEY" {
		t.Errorf("KeyEnv() = %q, want MY_KEY", p.KeyEnv())
	}
	p.APIKeyEnv = ""
	if p.KeyEnv() != "OPENAI_API_KEY" {
		t.Errorf("KeyEnv() = %q, want OPENAI_API_KEY", p.KeyEnv())
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"content/*.json", []string{"content/*.json"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
