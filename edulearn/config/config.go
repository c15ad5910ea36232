package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	JWTSecret string
	LogDir    string

	// Backend selects the document store: memory, postgres, redis or supabase.
	Backend string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string
	DBMaxConns int

	SupabaseURL       string
	SupabaseKey       string
	SupabaseTable     string
	SupabaseSeedTable string

	RedisURL string

	NATSURL    string
	NATSStream string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	// Generator selects the response generator: simulated, ollama or openai.
	Generator      string
	SimulatedDelay time.Duration
	OllamaURL      string
	OllamaModel    string
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string

	WriteTimeout    time.Duration
	RegistryIdleTTL time.Duration
}

func LoadConfig() Config {
	// a missing .env is fine; the environment wins anyway
	_ = godotenv.Load()

	return Config{
		Port:      getEnv("PORT", "8000"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		LogDir:    getEnv("LOG_DIR", "./logs"),

		Backend: getEnv("DOCUMENT_STORE", "memory"),

		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", "edulearn"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBMaxConns: getEnvAsInt("DB_MAX_CONNS", 10),

		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseKey:       getEnv("SUPABASE_KEY", ""),
		SupabaseTable:     getEnv("SUPABASE_TABLE", "chat_sessions"),
		SupabaseSeedTable: getEnv("SUPABASE_SEED_TABLE", "chat_seed_claims"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		NATSURL:    getEnv("NATS_URL", ""),
		NATSStream: getEnv("NATS_STREAM", "CHAT_EVENTS"),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "chat-exports"),
		MinIOUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),

		Generator:      getEnv("RESPONSE_GENERATOR", "simulated"),
		SimulatedDelay: getEnvAsDuration("SIMULATED_DELAY", 1500*time.Millisecond),
		OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434/api"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "gpt-oss:120b-cloud"),
		OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 10*time.Second),
		RegistryIdleTTL: time.Duration(getEnvAsInt("REGISTRY_IDLE_MINUTES", 30)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
