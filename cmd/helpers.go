package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ziadkadry99/vachat/internal/assistant"
	"github.com/ziadkadry99/vachat/internal/audit"
	"github.com/ziadkadry99/vachat/internal/config"
	"github.com/ziadkadry99/vachat/internal/db"
	"github.com/ziadkadry99/vachat/internal/embeddings"
	"github.com/ziadkadry99/vachat/internal/evaluation"
	"github.com/ziadkadry99/vachat/internal/llm"
	"github.com/ziadkadry99/vachat/internal/policy"
	"github.com/ziadkadry99/vachat/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `vachat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates the configured embeddings.Embedder.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	e := cfg.Embedding
	apiKey := ""
	if e.APIKeyEnv != "" {
		apiKey = os.Getenv(e.APIKeyEnv)
	}

	switch e.Provider {
	case config.EmbeddingOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for OpenAI embeddings", e.APIKeyEnv)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(e.Model), e.BaseURL, e.BatchSize, e.Dimensions), nil
	case config.EmbeddingOllama:
		dims := e.Dimensions
		if dims == 0 {
			dims = 768
		}
		return embeddings.NewOllamaEmbedder(e.Model, dims, e.BaseURL, e.BatchSize), nil
	case config.EmbeddingGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for Gemini embeddings", e.APIKeyEnv)
		}
		return embeddings.NewGeminiEmbedder(apiKey, embeddings.GeminiModel(e.Model), e.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", e.Provider)
	}
}

// openDocumentStore builds the configured vector backend, loads any persisted
// index and wraps it in a DocumentStore.
func openDocumentStore(ctx context.Context, cfg *config.Config, opts ...vectordb.Option) (*vectordb.DocumentStore, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	var store vectordb.VectorStore
	switch cfg.Store.Backend {
	case config.BackendPgvector:
		dsn := os.Getenv(cfg.Store.PostgresDSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("%s environment variable is required for the pgvector backend", cfg.Store.PostgresDSNEnv)
		}
		store, err = vectordb.NewPgvectorStore(ctx, dsn, cfg.Store.Collection)
	default:
		store, err = vectordb.NewChromemStore(cfg.Store.Dir, cfg.Store.Collection, embedder)
	}
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	if err := store.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("loading vector store: %w", err)
	}

	opts = append([]vectordb.Option{vectordb.WithBatchSize(cfg.Embedding.BatchSize)}, opts...)
	return vectordb.NewDocumentStore(store, embedder, cfg.Store.ChunkSize, opts...), nil
}

// openDatabase opens the SQLite database under the server data dir.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	path := filepath.Join(cfg.Server.DataDir, "vachat.db")
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return database, nil
}

// createGateFromConfig builds the policy gate. sink may be nil.
func createGateFromConfig(cfg *config.Config, sink policy.EventSink) (*policy.Gate, error) {
	p := cfg.Policy
	opts := []policy.Option{
		policy.WithFailOpen(p.FailOpen),
		policy.WithOutputCheck(p.CheckOutput, p.SuppressFlaggedOutput),
		policy.WithHistoryModeration(p.ModerateHistory),
		policy.WithCrisisKeywords(p.CrisisKeywords),
		policy.WithMedicalKeywords(p.MedicalKeywords),
	}
	if sink != nil {
		opts = append(opts, policy.WithEventSink(sink))
	}

	if p.Moderation {
		apiKey := os.Getenv(p.ModerationAPIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for moderation (set policy.moderation: false to disable)", p.ModerationAPIKeyEnv)
		}
		opts = append(opts, policy.WithModerator(policy.NewOpenAIModerator(apiKey, p.ModerationModel, "")))
	}
	return policy.NewGate(opts...), nil
}

// createSlotsFromConfig builds a provider for every configured slot. A slot
// whose credential is missing is skipped with a warning unless it is one of
// required.
func createSlotsFromConfig(cfg *config.Config, required []string) ([]assistant.Slot, error) {
	need := make(map[string]bool, len(required))
	for _, l := range required {
		need[l] = true
	}

	var slots []assistant.Slot
	for label, p := range cfg.Providers {
		apiKey := ""
		if env := p.KeyEnv(); env != "" {
			apiKey = os.Getenv(env)
		}
		provider, err := llm.New(llm.Kind(p.Kind), llm.Options{
			Model:    p.Model,
			APIKey:   apiKey,
			Endpoint: p.ResolveEndpoint(os.Getenv),
			RPM:      p.RPM,
		})
		if err != nil {
			if need[label] {
				return nil, fmt.Errorf("provider %s: %w (set %s)", label, err, p.KeyEnv())
			}
			fmt.Fprintf(os.Stderr, "Warning: provider %s unavailable: %v\n", label, err)
			continue
		}
		slots = append(slots, assistant.Slot{
			Label:       label,
			Kind:        llm.Kind(p.Kind),
			Model:       p.Model,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Provider:    provider,
		})
	}
	return slots, nil
}

// createEngineFromConfig wires the orchestrator. selected are the slots the
// caller will use; empty means the configured defaults.
func createEngineFromConfig(cfg *config.Config, docs assistant.Retriever, gate assistant.Gate, selected []string) (*assistant.Engine, error) {
	if len(selected) == 0 {
		selected = cfg.DefaultSlots
	}
	if err := cfg.ValidateSlots(selected); err != nil {
		return nil, err
	}

	slots, err := createSlotsFromConfig(cfg, selected)
	if err != nil {
		return nil, err
	}

	opts := []assistant.Option{
		assistant.WithDefaultSlots(selected),
		assistant.WithTopK(cfg.Store.TopK),
		assistant.WithTimeout(time.Duration(cfg.RequestTimeout) * time.Second),
	}
	if cfg.SystemPrompt != "" {
		opts = append(opts, assistant.WithSystemPrompt(cfg.SystemPrompt))
	}
	return assistant.NewEngine(docs, gate, slots, opts...)
}

// createHarnessFromConfig builds the evaluation harness with room for slots
// answers per log row.
func createHarnessFromConfig(cfg *config.Config, slots int, opts ...evaluation.HarnessOption) (*evaluation.Harness, error) {
	ev := cfg.Evaluation
	if ev.ScorerEndpoint == "" {
		return nil, fmt.Errorf("evaluation.scorer_endpoint is not configured")
	}
	apiKey := ""
	if ev.ScorerAPIKeyEnv != "" {
		apiKey = os.Getenv(ev.ScorerAPIKeyEnv)
	}
	scorer := evaluation.NewHTTPScorer(ev.ScorerEndpoint, apiKey, ev.Metrics, nil)
	return evaluation.NewHarness(scorer, evaluation.NewCSVLog(ev.LogFile, ev.Metrics, slots), opts...), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// assistantDeps are the long-lived pieces a turn needs.
type assistantDeps struct {
	docs   *vectordb.DocumentStore
	db     *db.DB
	audit  *audit.Store
	gate   *policy.Gate
	engine *assistant.Engine
}

func (d *assistantDeps) Close() {
	if d.docs != nil {
		d.docs.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// setupAssistant opens the store and database and wires the gate and
// engine for slots (empty means the configured defaults). Policy events are
// written to the audit log.
func setupAssistant(ctx context.Context, cfg *config.Config, slots []string) (*assistantDeps, error) {
	deps := &assistantDeps{}

	docs, err := openDocumentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.docs = docs

	database, err := openDatabase(cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.db = database
	deps.audit = audit.NewStore(database)

	deps.gate, err = createGateFromConfig(cfg, deps.audit)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.engine, err = createEngineFromConfig(cfg, docs, deps.gate, slots)
	if err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}
