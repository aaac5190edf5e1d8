package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"tradeflow/internal/app"
	"tradeflow/internal/auth"
	"tradeflow/internal/backend"
	"tradeflow/internal/cli"
	"tradeflow/internal/config"
	apphttp "tradeflow/internal/http"
	"tradeflow/internal/log"
	"tradeflow/internal/narrator"
	"tradeflow/internal/prefs"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx := context.Background()

	beCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, beCfg)
	if err != nil {
		logger.Error("Failed to initialize journal backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer be.Close()

	prefStore, pingPrefs, closePrefs := newPrefsStore(cfg)
	defer closePrefs()

	coach, err := narrator.New(narrator.Config{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIAPIKey,
		Model:    cfg.AIModel,
		Language: cfg.AILanguage,
	})
	if err != nil {
		logger.Error("Failed to initialize AI coach", log.FieldError, err)
		os.Exit(1)
	}
	if coach == nil {
		logger.Warn("AI_API_KEY not set, analyses will report the coach as unavailable")
	}

	var authOpts []auth.ManagerOption
	authOpts = append(authOpts, auth.WithSecureCookies(cfg.SecureCookies))
	if cfg.LoginEnabled() {
		provider, err := auth.NewGoogleProvider(cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, cfg.OAuthRedirectURL)
		if err != nil {
			logger.Error("Failed to initialize Google sign-in", log.FieldError, err)
			os.Exit(1)
		}
		authOpts = append(authOpts, auth.WithProvider(provider))
	}
	sessions, err := auth.NewManager([]byte(cfg.SessionSecret), cfg.SessionTTL, auth.NewHub(), authOpts...)
	if err != nil {
		logger.Error("Failed to initialize sessions", log.FieldError, err)
		os.Exit(1)
	}

	registry := app.NewRegistry(cfg.MaxSessions, cfg.SessionIdleTTL, app.Options{
		Store:    be.Store,
		Narrator: coach,
	})

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Sessions: sessions,
		Registry: registry,
		Prefs:    prefs.NewService(prefStore, cfg.PrefsTTL),
		Logger:   logger,
		Ready: func(ctx context.Context) error {
			if be.Ping != nil {
				if err := be.Ping(ctx); err != nil {
					return err
				}
			}
			return pingPrefs(ctx)
		},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting tradeflow server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sign_in", cfg.LoginEnabled(),
		"prefs_backend", cfg.PrefsBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

func newPrefsStore(cfg *config.Config) (prefs.Store, func(context.Context) error, func()) {
	if cfg.PrefsBackend != "redis" {
		return prefs.NewMemoryStore(), func(context.Context) error { return nil }, func() {}
	}
	rs := prefs.NewRedisStore(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return rs, rs.Ping, func() { _ = rs.Close() }
}
