package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"example.com/codepad/internal/api"
	"example.com/codepad/internal/auth"
	"example.com/codepad/internal/config"
	"example.com/codepad/internal/domain"
	"example.com/codepad/internal/events"
	"example.com/codepad/internal/persistence/postgres"
	httptransport "example.com/codepad/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := setupLogger(cfg.LogLevel)
	log.Logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	publisher := events.NewPublisher(cfg.KafkaBrokers, logger)
	defer publisher.Close()

	tracker := domain.NewTracker(store, publisherOrNil(publisher))
	accounts := domain.NewAccounts(store, cfg.SessionTTL)
	library := domain.NewLibrary(store)

	handler := api.NewHandler(tracker, accounts, library, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httptransport.StaticHandler(cfg.StaticDir))

	sessions := auth.SessionResolverFunc(func(ctx context.Context, token string) (string, error) {
		session, err := accounts.Authenticate(ctx, token)
		if err != nil {
			return "", err
		}
		return session.UserID, nil
	})

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		sessions,
		func(r *http.Request) bool {
			switch r.URL.Path {
			case "/healthz", "/metrics", "/api/auth/register", "/api/auth/login":
				return true
			}
			// Everything outside /api is the static editor front end.
			return !isAPIPath(r.URL.Path)
		},
	)

	limiter := httptransport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, limiter.Wrap(authMiddleware.Wrap(requestLog(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("codepad listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// publisherOrNil avoids storing a typed nil in the ActivityPublisher
// interface when publishing is disabled.
func publisherOrNil(p *events.Publisher) domain.ActivityPublisher {
	if p == nil {
		return nil
	}
	return p
}

// setupLogger configures zerolog from the configured level.
func setupLogger(level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch level {
	case "debug":
		lvl = zerolog.DebugLevel
	case "info":
		lvl = zerolog.InfoLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
