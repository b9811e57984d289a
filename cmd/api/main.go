package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kfashion/internal/http/handlers"
	httpapi "kfashion/internal/http/httpapi"
	"kfashion/internal/imagegen"
	"kfashion/internal/infra"
	"kfashion/internal/infra/geoip"
	"kfashion/internal/studio"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; generation requests will fail with a configuration error")
	}
	gen, err := imagegen.NewGeminiClient(ctx, imagegen.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gemini client")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	sessions := studio.NewManager(gen, &logger, cfg.SessionIdleTimeout)
	sessions.StartJanitor(ctx, time.Minute)

	app := handlers.NewApp(sessions, logger, cfg.MaxUploadBytes, cfg.CORSOrigins)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.LookupFunc(),
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("model", gen.Model()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
