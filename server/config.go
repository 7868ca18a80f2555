package server

import (
	"time"

	"github.com/xiaoyuanzhu-com/couplet-server/audio"
	"github.com/xiaoyuanzhu-com/couplet-server/couplet"
	"github.com/xiaoyuanzhu-com/couplet-server/vendors"
)

// Config holds server configuration
type Config struct {
	// Server infrastructure
	Port    int
	Host    string
	Env     string // "development" or "production"
	Version string

	CORSOrigins []string

	// Uploads
	UploadDir      string
	MaxUploadBytes int64
	FFmpegPath     string

	// Knowledge base
	KnowledgeBasePath string
	RetrievalTopK     int
	RetrievalMinScore float64

	// External services
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GenerateTimeout time.Duration
	EvaluateTimeout time.Duration
	ExplainTimeout  time.Duration

	ASRAPIKey    string
	ASRSecretKey string
	ASRTokenURL  string
	ASRURL       string
	ASRDevPID    int
	ASRTimeout   time.Duration
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToLLMConfig converts server config to LLM gateway config
func (c *Config) ToLLMConfig() vendors.LLMConfig {
	return vendors.LLMConfig{
		APIKey:  c.OpenAIAPIKey,
		BaseURL: c.OpenAIBaseURL,
		Model:   c.OpenAIModel,
	}
}

// ToASRConfig converts server config to speech recognition config
func (c *Config) ToASRConfig() vendors.ASRConfig {
	return vendors.ASRConfig{
		APIKey:    c.ASRAPIKey,
		SecretKey: c.ASRSecretKey,
		TokenURL:  c.ASRTokenURL,
		URL:       c.ASRURL,
		DevPID:    c.ASRDevPID,
		Timeout:   c.ASRTimeout,
	}
}

// ToCoupletConfig converts server config to couplet service config
func (c *Config) ToCoupletConfig() couplet.Config {
	return couplet.Config{
		TopK:            c.RetrievalTopK,
		MinScore:        c.RetrievalMinScore,
		GenerateTimeout: c.GenerateTimeout,
		EvaluateTimeout: c.EvaluateTimeout,
		ExplainTimeout:  c.ExplainTimeout,
	}
}

// ToAudioConfig converts server config to transcoder config
func (c *Config) ToAudioConfig() audio.Config {
	return audio.Config{FFmpegPath: c.FFmpegPath}
}
