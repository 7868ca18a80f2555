package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port    int
	Host    string
	Env     string // "development" or "production"
	Version string

	LogLevel    string
	CORSOrigins []string

	// Uploaded audio lands here; treated as scratch space
	UploadDir      string
	MaxUploadBytes int64
	FFmpegPath     string

	// Knowledge base (empty path means the embedded corpus)
	KnowledgeBasePath string
	RetrievalTopK     int
	RetrievalMinScore float64

	// LLM (any OpenAI-compatible endpoint)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GenerateTimeout time.Duration
	EvaluateTimeout time.Duration
	ExplainTimeout  time.Duration

	// Speech recognition
	ASRAPIKey    string
	ASRSecretKey string
	ASRTokenURL  string
	ASRURL       string
	ASRDevPID    int
	ASRTimeout   time.Duration
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = Load()
	})
	return cfg
}

// Load reads configuration from environment variables.
// Unlike Get it always re-reads the environment.
func Load() *Config {
	return &Config{
		// Server
		Port:    getEnvInt("PORT", 8000),
		Host:    getEnv("HOST", "0.0.0.0"),
		Env:     getEnv("ENV", "development"),
		Version: getEnv("APP_VERSION", "0.1.0"),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		// Uploads
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),

		// Knowledge base
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", ""),
		RetrievalTopK:     getEnvInt("RETRIEVAL_TOP_K", 3),
		RetrievalMinScore: getEnvFloat("RETRIEVAL_MIN_SCORE", 0.3),

		// OpenAI-compatible LLM
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		GenerateTimeout: getEnvDuration("LLM_GENERATE_TIMEOUT", 15*time.Second),
		EvaluateTimeout: getEnvDuration("LLM_EVALUATE_TIMEOUT", 30*time.Second),
		ExplainTimeout:  getEnvDuration("LLM_EXPLAIN_TIMEOUT", 25*time.Second),

		// ASR
		ASRAPIKey:    getEnv("ASR_API_KEY", ""),
		ASRSecretKey: getEnv("ASR_SECRET_KEY", ""),
		ASRTokenURL:  getEnv("ASR_TOKEN_URL", "https://aip.baidubce.com/oauth/2.0/token"),
		ASRURL:       getEnv("ASR_URL", "https://vop.baidu.com/server_api"),
		ASRDevPID:    getEnvInt("ASR_DEV_PID", 1537),
		ASRTimeout:   getEnvDuration("ASR_TIMEOUT", 15*time.Second),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or plain seconds ("15")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
