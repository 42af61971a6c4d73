package config

// DefaultMetrics are the evaluation metrics requested from the scoring service.
var DefaultMetrics = []string{
	"relevancy",
	"faithfulness",
	"contextual_precision",
	"contextual_recall",
	"contextual_relevancy",
	"conversation_completeness",
}

// defaultProviders mirrors the models the assistant was first compared on.
func defaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"gpt-4": {
			Kind:        KindPrimaryChat,
			Model:       "gpt-4",
			Temperature: 0.7,
			APIKeyEnv:   "OPENAI_API_KEY",
		},
		"claude-3-sonnet": {
			Kind:        KindAltChat,
			Model:       "claude-3-sonnet-20240229",
			Temperature: 0.7,
			MaxTokens:   1000,
			APIKeyEnv:   "ANTHROPIC_API_KEY",
		},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers:      defaultProviders(),
		DefaultSlots:   []string{"gpt-4"},
		RequestTimeout: 60,
		Embedding: EmbeddingConfig{
			Provider:  EmbeddingOpenAI,
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 100,
		},
		Store: StoreConfig{
			Backend:        BackendChromem,
			Dir:            "data/vectordb",
			Collection:     "va_docs",
			PostgresDSNEnv: "POSTGRES_DSN",
			ContentFiles:   []string{"va_content.json"},
			ChunkSize:      60,
			TopK:           8,
			MinContentLen:  100,
		},
		Policy: PolicyConfig{
			Moderation:            true,
			ModerationModel:       "omni-moderation-latest",
			ModerationAPIKeyEnv:   "OPENAI_API_KEY",
			FailOpen:              true,
			CheckOutput:           true,
			SuppressFlaggedOutput: true,
			ModerateHistory:       true,
		},
		Conversation: ConversationConfig{
			LogFile: "chat_history.json",
		},
		Evaluation: EvaluationConfig{
			LogFile: "chat_eval_log.csv",
			Metrics: append([]string(nil), DefaultMetrics...),
		},
		Server: ServerConfig{
			Port:    8080,
			DataDir: "data",
		},
	}
}
