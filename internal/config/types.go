package config

// ProviderKind identifies which adapter implementation serves a provider slot.
// The set is closed; llm.New maps every kind to exactly one adapter.
type ProviderKind string

const (
	KindPrimaryChat    ProviderKind = "primary-chat"
	KindCompatibleChat ProviderKind = "compatible-chat"
	KindAltChat        ProviderKind = "alt-chat"
	KindGenericHTTP    ProviderKind = "generic-http"
	KindOllama         ProviderKind = "ollama"
	KindGemini         ProviderKind = "gemini"
)

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

const (
	EmbeddingOpenAI EmbeddingProvider = "openai"
	EmbeddingOllama EmbeddingProvider = "ollama"
	EmbeddingGemini EmbeddingProvider = "gemini"
)

// StoreBackend identifies a vector store implementation.
type StoreBackend string

const (
	BackendChromem  StoreBackend = "chromem"
	BackendPgvector StoreBackend = "pgvector"
)

// Config is the top-level vachat configuration, corresponding to .vachat.yml.
type Config struct {
	Providers      map[string]ProviderConfig `yaml:"providers" koanf:"providers"`
	DefaultSlots   []string                  `yaml:"default_slots" koanf:"default_slots"`
	SystemPrompt   string                    `yaml:"system_prompt,omitempty" koanf:"system_prompt"`
	RequestTimeout int                       `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
	Embedding      EmbeddingConfig           `yaml:"embedding" koanf:"embedding"`
	Store          StoreConfig               `yaml:"store" koanf:"store"`
	Policy         PolicyConfig              `yaml:"policy" koanf:"policy"`
	Conversation   ConversationConfig        `yaml:"conversation" koanf:"conversation"`
	Evaluation     EvaluationConfig          `yaml:"evaluation" koanf:"evaluation"`
	Server         ServerConfig              `yaml:"server" koanf:"server"`
}

// ProviderConfig describes one model slot. Labels (the map keys in
// Config.Providers) must not contain dots.
type ProviderConfig struct {
	Kind        ProviderKind `yaml:"kind" koanf:"kind"`
	Model       string       `yaml:"model" koanf:"model"`
	Temperature float64      `yaml:"temperature" koanf:"temperature"`
	MaxTokens   int          `yaml:"max_tokens,omitempty" koanf:"max_tokens"`
	Endpoint    string       `yaml:"endpoint,omitempty" koanf:"endpoint"`
	APIKeyEnv   string       `yaml:"api_key_env,omitempty" koanf:"api_key_env"`
	RPM         int          `yaml:"rpm,omitempty" koanf:"rpm"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider   EmbeddingProvider `yaml:"provider" koanf:"provider"`
	Model      string            `yaml:"model" koanf:"model"`
	Dimensions int               `yaml:"dimensions,omitempty" koanf:"dimensions"`
	BaseURL    string            `yaml:"base_url,omitempty" koanf:"base_url"`
	APIKeyEnv  string            `yaml:"api_key_env,omitempty" koanf:"api_key_env"`
	BatchSize  int               `yaml:"batch_size" koanf:"batch_size"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	Backend        StoreBackend `yaml:"backend" koanf:"backend"`
	Dir            string       `yaml:"dir" koanf:"dir"`
	Collection     string       `yaml:"collection" koanf:"collection"`
	PostgresDSNEnv string       `yaml:"postgres_dsn_env,omitempty" koanf:"postgres_dsn_env"`
	ContentFiles   []string     `yaml:"content_files" koanf:"content_files"`
	ChunkSize      int          `yaml:"chunk_size" koanf:"chunk_size"` // words per chunk
	TopK           int          `yaml:"top_k" koanf:"top_k"`
	MinContentLen  int          `yaml:"min_content_length" koanf:"min_content_length"`
}

// PolicyConfig configures the safety gate.
type PolicyConfig struct {
	Moderation            bool     `yaml:"moderation" koanf:"moderation"`
	ModerationModel       string   `yaml:"moderation_model" koanf:"moderation_model"`
	ModerationAPIKeyEnv   string   `yaml:"moderation_api_key_env,omitempty" koanf:"moderation_api_key_env"`
	FailOpen              bool     `yaml:"fail_open" koanf:"fail_open"`
	CheckOutput           bool     `yaml:"check_output" koanf:"check_output"`
	SuppressFlaggedOutput bool     `yaml:"suppress_flagged_output" koanf:"suppress_flagged_output"`
	ModerateHistory       bool     `yaml:"moderate_history" koanf:"moderate_history"`
	CrisisKeywords        []string `yaml:"crisis_keywords,omitempty" koanf:"crisis_keywords"`
	MedicalKeywords       []string `yaml:"medical_keywords,omitempty" koanf:"medical_keywords"`
}

// ConversationConfig configures the CLI transcript.
type ConversationConfig struct {
	LogFile string `yaml:"log_file" koanf:"log_file"`
}

// EvaluationConfig configures the evaluation harness.
type EvaluationConfig struct {
	LogFile           string   `yaml:"log_file" koanf:"log_file"`
	ScorerEndpoint    string   `yaml:"scorer_endpoint,omitempty" koanf:"scorer_endpoint"`
	ScorerAPIKeyEnv   string   `yaml:"scorer_api_key_env,omitempty" koanf:"scorer_api_key_env"`
	Metrics           []string `yaml:"metrics" koanf:"metrics"`
	RecordLiveAnswers bool     `yaml:"record_live_answers" koanf:"record_live_answers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port" koanf:"port"`
	DataDir  string `yaml:"data_dir" koanf:"data_dir"`
	AllowAll bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
