package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries every externally tunable setting. It is built once at
// process entry and handed to each component's constructor; no package
// reads ambient environment state after startup.
type Config struct {
	// Generation model.
	Provider    string // groq|openai|ollama|anthropic|gemini|dummy
	Model       string
	Temperature float32
	MaxTokens   int

	// Credentials / endpoints per provider.
	GroqAPIKey      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaHost      string

	// Embeddings.
	EmbedProvider string // openai|ollama|fastembed|dummy
	EmbedModel    string

	// Knowledge index.
	VectorDBPath  string
	VectorBackend string // local|qdrant|postgres|mongo

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	PostgresURL      string
	MongoURI         string
	MongoDatabase    string
	MongoCollection  string

	// Conversation memory.
	MemoryPath string
	MaxHistory int

	// Document sources.
	PDFPath  string
	CSVPath  string
	URLsFile string

	// Retrieval fan-out.
	RetrieverK int

	// Optional response cache; empty disables it.
	ResponseCachePath string
}

// Load reads the environment (honoring a .env file when present) and
// validates that the selected generation provider has its credential.
// A missing credential is a startup failure, not something to limp past.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Provider:    envOr("MEDIRAG_PROVIDER", "groq"),
		Model:       envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		Temperature: envFloat("MODEL_TEMPERATURE", 0.3),
		MaxTokens:   envInt("MODEL_MAX_TOKENS", 1024),

		GroqAPIKey:      os.Getenv("GROQ_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OllamaHost:      envOr("OLLAMA_HOST", "http://localhost:11434"),

		EmbedProvider: envOr("EMBEDDING_PROVIDER", "dummy"),
		EmbedModel:    envOr("EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),

		VectorDBPath:  envOr("VECTOR_DB_PATH", "vector_db"),
		VectorBackend: envOr("VECTOR_DB_BACKEND", "local"),

		QdrantURL:        envOr("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "medirag_documents"),
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDatabase:    envOr("MONGO_DATABASE", "medirag"),
		MongoCollection:  envOr("MONGO_COLLECTION", "documents"),

		MemoryPath: envOr("MEMORY_PATH", "memory/users"),
		MaxHistory: envInt("MAX_CONVERSATION_HISTORY", 10),

		PDFPath:  envOr("DATA_PDF_PATH", "data/pdfs"),
		CSVPath:  envOr("DATA_CSV_PATH", "data/csvs"),
		URLsFile: envOr("URLS_FILE_PATH", "data/urls.txt"),

		RetrieverK: envInt("RETRIEVER_K", 5),

		ResponseCachePath: os.Getenv("RESPONSE_CACHE_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected providers can actually be constructed.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "groq":
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY not set; it is required for provider %q", c.Provider)
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY not set; it is required for provider %q", c.Provider)
		}
	case "anthropic", "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY not set; it is required for provider %q", c.Provider)
		}
	case "gemini", "google":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY not set; it is required for provider %q", c.Provider)
		}
	case "ollama", "dummy":
		// Local providers need no credential.
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}

	if c.EmbedProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY not set; it is required for embedding provider %q", c.EmbedProvider)
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = 10
	}
	if c.RetrieverK <= 0 {
		c.RetrieverK = 5
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float32) float32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
