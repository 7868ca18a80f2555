package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/couplet-server/api"
	"github.com/xiaoyuanzhu-com/couplet-server/audio"
	"github.com/xiaoyuanzhu-com/couplet-server/couplet"
	"github.com/xiaoyuanzhu-com/couplet-server/knowledge"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/metrics"
	"github.com/xiaoyuanzhu-com/couplet-server/vendors"
)

// Server owns and coordinates all application components
type Server struct {
	cfg *Config

	// Components (owned by server, read-only after New)
	knowledge  *knowledge.Base
	llm        *vendors.OpenAIClient
	asr        *vendors.ASRClient
	transcoder *audio.Transcoder
	couplets   *couplet.Service

	// HTTP
	router *gin.Engine
	http   *http.Server
}

// New creates a new server with all components initialized
func New(cfg *Config) (*Server, error) {
	s := &Server{cfg: cfg}

	// 1. Load knowledge base
	log.Info().Msg("loading knowledge base")
	kb, err := knowledge.Open(cfg.KnowledgeBasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	s.knowledge = kb
	metrics.KnowledgeBaseEntries.Set(float64(kb.Len()))

	// 2. Vendor gateways (nil when not configured; calls then fail as transport errors)
	s.llm = vendors.NewOpenAIClient(cfg.ToLLMConfig())
	s.asr = vendors.NewASRClient(cfg.ToASRConfig())

	// 3. Audio transcoder
	s.transcoder = audio.NewTranscoder(cfg.ToAudioConfig())

	// 4. Couplet service
	s.couplets = couplet.NewService(s.llm, s.knowledge, cfg.ToCoupletConfig())

	// 5. Upload directory
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	// 6. Setup HTTP router
	s.setupRouter()

	log.Info().Msg("server initialized successfully")
	return s, nil
}

// setupRouter creates and configures the Gin router
func (s *Server) setupRouter() {
	// Set Gin mode
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	s.router = gin.New()

	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger())
	s.router.Use(metrics.GinMiddleware())
	s.router.Use(s.corsMiddleware())

	// Security headers (production only)
	if !s.cfg.IsDevelopment() {
		s.router.Use(s.securityHeadersMiddleware())
	}

	// Gzip compression (promhttp negotiates its own encoding)
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/metrics",
	})))

	// Trust proxy headers
	s.router.SetTrustedProxies(nil)

	// Ignore .well-known requests
	s.router.GET("/.well-known/*path", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	s.router.GET("/metrics", metrics.Handler())

	api.SetupRoutes(s.router, api.NewHandlers(api.Deps{
		Transcoder:     s.transcoder,
		Transcriber:    s.asr,
		Couplets:       s.couplets,
		UploadDir:      s.cfg.UploadDir,
		MaxUploadBytes: s.cfg.MaxUploadBytes,
		Version:        s.cfg.Version,
	}))
}

// corsMiddleware allows the configured front-end origins, with credentials
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowedOrigins := make(map[string]bool, len(s.cfg.CORSOrigins))
	allowAny := false
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			allowAny = true
		}
		allowedOrigins[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && (allowAny || allowedOrigins[origin]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// securityHeadersMiddleware adds security headers for production
func (s *Server) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// HSTS - enforce HTTPS for 1 year, include subdomains
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Clickjacking protection
		c.Header("X-Frame-Options", "SAMEORIGIN")

		// Referrer policy - don't leak full URLs to other origins
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Permissions policy - disable unnecessary features
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// Start starts the HTTP server (blocks)
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:     fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:  s.router,
		ErrorLog: log.StdErrorLogger(), // Route Go's internal HTTP errors through zerolog
	}

	log.Info().
		Str("addr", s.http.Addr).
		Str("env", s.cfg.Env).
		Str("version", s.cfg.Version).
		Int("knowledgeEntries", s.knowledge.Len()).
		Msg("HTTP server starting")

	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
			return err
		}
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

// Component accessors
func (s *Server) Router() *gin.Engine        { return s.router }
func (s *Server) Knowledge() *knowledge.Base { return s.knowledge }
