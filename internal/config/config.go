package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Storage      StorageConfig
	Index        IndexConfig
	Realtime     RealtimeConfig
	Conversation ConversationConfig
	Ai           AIConfig
	Tracing      TracingConfig
}

type AppConfig struct {
	Port                string
	Environment         string
	LogFilePath         string
	RealtimeLogFilePath string
	CorsAllowedOrigins  string
	NatsURL             string
	RedisURL            string
	UploadRatePerMinute int
	BodyLimitBytes      int
}

type DatabaseConfig struct {
	Connection      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type StorageConfig struct {
	UploadDir         string
	ExtractedTextDir  string
	VectorStoreDir    string
	ExtractionTopic   string
	ExtractionWorkers int
}

type IndexConfig struct {
	Backend      string // "file" or "pgvector"
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	CacheTTL     time.Duration
}

type RealtimeConfig struct {
	MaxMessages int
	Window      time.Duration
}

type ConversationConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	MaxEntries    int
	MaxTurns      int
	PromptHistory int
}

type AIConfig struct {
	OllamaBaseURL  string
	EmbeddingModel string
	LLMProvider    string
	LLMModel       string
	LLMBaseURL     string
	LLMAPIKey      string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                getEnv("APP_PORT", "3000"),
			Environment:         getEnv("GO_ENV", "development"),
			LogFilePath:         getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogFilePath: getEnv("REALTIME_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:             getEnv("NATS_URL", ""),
			RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadRatePerMinute: getEnvAsInt("UPLOAD_RATE_PER_MINUTE", 20),
			BodyLimitBytes:      getEnvAsInt("BODY_LIMIT_BYTES", 50*1024*1024),
		},
		Database: DatabaseConfig{
			Connection:      getEnv("DB_CONNECTION_STRING", ""),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 15),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Storage: StorageConfig{
			UploadDir:         getEnv("UPLOAD_DIR", "storage/uploads"),
			ExtractedTextDir:  getEnv("EXTRACTED_TEXT_DIR", "storage/extracted"),
			VectorStoreDir:    getEnv("VECTORSTORE_DIR", "storage/vectorstore"),
			ExtractionTopic:   getEnv("EXTRACTION_TOPIC_NAME", "EXTRACT_DOCUMENT"),
			ExtractionWorkers: getEnvAsInt("EXTRACTION_WORKERS", 4),
		},
		Index: IndexConfig{
			Backend:      getEnv("INDEX_BACKEND", "file"),
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
			TopK:         getEnvAsInt("RETRIEVAL_TOP_K", 3),
			CacheTTL:     getEnvAsDuration("INDEX_CACHE_TTL", 30*time.Minute),
		},
		Realtime: RealtimeConfig{
			MaxMessages: getEnvAsInt("RATE_LIMIT_MAX_MESSAGES", 30),
			Window:      getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		},
		Conversation: ConversationConfig{
			Backend:       getEnv("CONVERSATION_BACKEND", "memory"),
			TTL:           getEnvAsDuration("CONVERSATION_TTL", time.Hour),
			MaxEntries:    getEnvAsInt("CONVERSATION_MAX_ENTRIES", 10000),
			MaxTurns:      getEnvAsInt("CONVERSATION_MAX_TURNS", 10),
			PromptHistory: getEnvAsInt("CONVERSATION_PROMPT_HISTORY", 3),
		},
		Ai: AIConfig{
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "pdf-qa-backend"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsFloat clamps to [0,1]; it only backs ratios.
func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	value, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return fallback
	}
	return max(0, min(1, value))
}

// getEnvAsDuration accepts Go duration strings ("90s", "1h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
