package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaoyuanzhu-com/couplet-server/config"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"github.com/xiaoyuanzhu-com/couplet-server/server"
)

func main() {
	cfg := config.Get()

	srv, err := server.New(serverConfig(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	// Start server
	go func() {
		printNetworkAddresses(cfg.Port)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// In-flight LLM calls can take up to their timeout; wait a bit longer than the longest
	ctx, cancel := context.WithTimeout(context.Background(), cfg.EvaluateTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}

// serverConfig converts environment config into the server's config
func serverConfig(cfg *config.Config) *server.Config {
	return &server.Config{
		Port:    cfg.Port,
		Host:    cfg.Host,
		Env:     cfg.Env,
		Version: cfg.Version,

		CORSOrigins: cfg.CORSOrigins,

		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		FFmpegPath:     cfg.FFmpegPath,

		KnowledgeBasePath: cfg.KnowledgeBasePath,
		RetrievalTopK:     cfg.RetrievalTopK,
		RetrievalMinScore: cfg.RetrievalMinScore,

		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,

		GenerateTimeout: cfg.GenerateTimeout,
		EvaluateTimeout: cfg.EvaluateTimeout,
		ExplainTimeout:  cfg.ExplainTimeout,

		ASRAPIKey:    cfg.ASRAPIKey,
		ASRSecretKey: cfg.ASRSecretKey,
		ASRTokenURL:  cfg.ASRTokenURL,
		ASRURL:       cfg.ASRURL,
		ASRDevPID:    cfg.ASRDevPID,
		ASRTimeout:   cfg.ASRTimeout,
	}
}

func printNetworkAddresses(port int) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ip4 := ipnet.IP.To4(); ip4 != nil {
					log.Info().Str("url", fmt.Sprintf("http://%s:%d", ip4.String(), port)).Msg("network")
				}
			}
		}
	}
}
