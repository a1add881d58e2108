package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8000"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns       int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns       int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	MigrationsSource string `envconfig:"MIGRATIONS_SOURCE" default:"file://migrations"`

	DataDir      string `envconfig:"DATA_DIR" default:"data"`
	ChunkSize    int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int    `envconfig:"CHUNK_OVERLAP" default:"200"`

	// Ingestion batching against the embedding provider's rate limits
	BatchSize        int           `envconfig:"BATCH_SIZE" default:"5"`
	BatchMaxAttempts int           `envconfig:"BATCH_MAX_ATTEMPTS" default:"3"`
	BatchBackoffBase time.Duration `envconfig:"BATCH_BACKOFF_BASE" default:"60s"`
	BatchDelay       time.Duration `envconfig:"BATCH_DELAY" default:"5s"`

	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3AccessKey       string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey       string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket          string `envconfig:"S3_BUCKET" default:"contest-materials"`
	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3DocumentsPrefix string `envconfig:"S3_DOCUMENTS_PREFIX" default:"documents/"`

	LLMProvider         string  `envconfig:"LLM_PROVIDER" default:"gemini"`
	GoogleAPIKey        string  `envconfig:"GOOGLE_API_KEY"`
	GeminiModel         string  `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	GeminiEmbedModel    string  `envconfig:"GEMINI_EMBEDDING_MODEL" default:"text-embedding-004"`
	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel         string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIEmbedModel    string  `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	Temperature         float32 `envconfig:"TEMPERATURE" default:"0.7"`
	RetrievalK          int     `envconfig:"RETRIEVAL_K" default:"10"`

	OrbitBackendURL string `envconfig:"ORBIT_BACKEND_URL" default:"http://localhost:4000/api"`
	AdminToken      string `envconfig:"ADMIN_TOKEN"`

	// Weekly schedule
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"60s"`
	ScheduleSubjects []string      `envconfig:"SCHEDULE_SUBJECTS" default:"Physics,Chemistry,Mathematics"`
	ScheduleTopic    string        `envconfig:"SCHEDULE_TOPIC" default:"General Revision"`
	QuestionCount    int           `envconfig:"QUESTION_COUNT" default:"5"`
	JobPollInterval  time.Duration `envconfig:"JOB_POLL_INTERVAL" default:"5s"`
	JobTimeout       time.Duration `envconfig:"JOB_TIMEOUT" default:"30m"`

	TriggerToken string `envconfig:"TRIGGER_TOKEN"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CONTESTGEN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects combinations the ingestion and generation paths cannot run with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid config: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid config: BATCH_SIZE must be positive")
	}
	if c.BatchMaxAttempts <= 0 {
		return fmt.Errorf("invalid config: BATCH_MAX_ATTEMPTS must be positive")
	}
	switch strings.ToLower(c.LLMProvider) {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GoogleAPIKey != ""
}

func (c *Config) HasAdminToken() bool {
	return c.AdminToken != ""
}

// Provider returns the normalized LLM provider name.
func (c *Config) Provider() string {
	return strings.ToLower(c.LLMProvider)
}
