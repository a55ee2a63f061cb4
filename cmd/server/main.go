// Command server starts the interview-prep AI HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/preppal/interview-prep-ai/internal/adapter/ai/gemini"
	"github.com/preppal/interview-prep-ai/internal/adapter/ai/openrouter"
	rediscache "github.com/preppal/interview-prep-ai/internal/adapter/cache/redis"
	httpserver "github.com/preppal/interview-prep-ai/internal/adapter/httpserver"
	"github.com/preppal/interview-prep-ai/internal/adapter/observability"
	"github.com/preppal/interview-prep-ai/internal/app"
	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
	"github.com/preppal/interview-prep-ai/internal/usecase"
)

func main() {
	// .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	// Optional Redis-backed explanation cache.
	var cache domain.ExplanationCache
	var redisCheck func(context.Context) error
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		c := rediscache.New(rdb, cfg.ExplanationCacheTTL)
		cache = c
		redisCheck = c.Ping
		slog.Info("explanation cache enabled", slog.String("addr", cfg.RedisAddr))
	} else {
		slog.Info("explanation cache disabled (REDIS_ADDR not set)")
	}

	// Providers
	chat := openrouter.New(cfg)
	gem := gemini.New(cfg)

	// Application services
	genSvc := usecase.NewGenerateService(cfg, chat, gem, cache, nil)
	evalSvc := usecase.NewEvaluateService(cfg, chat)
	voiceSvc := usecase.NewVoiceService(gem, evalSvc)
	resumeSvc := usecase.NewResumeService(cfg, chat, gem)

	srv := httpserver.NewServer(cfg, genSvc, voiceSvc, resumeSvc, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
