package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config carries everything the pipeline needs from the environment. A .env
// file in the working directory is honored if present.
type Config struct {
	DatabaseURL string

	LLMProvider string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string

	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int

	OllamaHost string

	TopK             int
	MaxContextTokens int

	EmbedTimeout    time.Duration
	QueryTimeout    time.Duration
	GenerateTimeout time.Duration

	ListenAddr string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/legalrag?sslmode=disable"),

		LLMProvider: getEnv("LLM_PROVIDER", ProviderOpenAI),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMModel:    getEnv("LLM_MODEL", "meta-llama/Llama-3.3-70B-Instruct"),

		EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", ProviderOpenAI),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "BAAI/bge-m3"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1024),

		OllamaHost: getEnv("OLLAMA_HOST", "http://localhost:11434"),

		TopK:             getEnvInt("RETRIEVAL_TOP_K", 5),
		MaxContextTokens: getEnvInt("MAX_CONTEXT_TOKENS", 0),

		EmbedTimeout:    getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
		QueryTimeout:    getEnvDuration("QUERY_TIMEOUT", 10*time.Second),
		GenerateTimeout: getEnvDuration("GENERATE_TIMEOUT", 120*time.Second),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
