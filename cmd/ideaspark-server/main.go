package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ideaspark/internal/config"
	"ideaspark/internal/llm"
	"ideaspark/internal/logging"
	"ideaspark/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	var (
		configPath string
		addr       string
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&addr, "addr", "", "Listen address override")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if strings.TrimSpace(addr) != "" {
		cfg.Server.Addr = strings.TrimSpace(addr)
	}
	logger := logging.Setup(cfg.Log.Level, os.Stderr)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newService(cfg, os.Getenv, llm.DefaultTokenizer(), logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("service failed")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown failed: %v\n", err)
		os.Exit(1)
	}
}

// newService wires the model client, Reddit client and catalog. Credentials
// found in the environment are applied up front; configure-api may replace
// them later.
func newService(cfg config.Config, getenv func(string) string, tok *llm.Tokenizer, logger zerolog.Logger) *service.Server {
	model := llm.New(llm.Config{
		BaseURL: cfg.Server.OpenAIBaseURL,
		APIKey:  getenv("OPENAI_API_KEY"),
		Model:   cfg.Server.Model,
	})

	reddit := service.NewRedditHTTP(time.Duration(cfg.Server.RedditTimeoutMS) * time.Millisecond)
	if id, secret := getenv("REDDIT_CLIENT_ID"), getenv("REDDIT_CLIENT_SECRET"); id != "" && secret != "" {
		reddit.SetCredentials(service.RedditCredentials{
			ClientID:     id,
			ClientSecret: secret,
			UserAgent:    getenv("REDDIT_USER_AGENT"),
		})
	}

	catalog := service.LoadCatalog(cfg.MetadataPath(), logger)
	logger.Info().
		Str("model", model.Model()).
		Bool("openai_configured", model.Configured()).
		Bool("reddit_configured", reddit.Configured()).
		Str("metadata", cfg.MetadataPath()).
		Msg("service configured")

	return service.New(catalog, reddit, model,
		service.WithTokenizer(tok, cfg.Server.MaxContentTokens),
		service.WithLogger(logger),
	)
}
