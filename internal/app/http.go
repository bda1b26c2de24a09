package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/manageq/internal/assistant"
	"github.com/adanyl0v/manageq/internal/config"
	"github.com/adanyl0v/manageq/internal/delivery/http/v1"
	"github.com/adanyl0v/manageq/internal/metrics"
	"github.com/adanyl0v/manageq/internal/ratelimit"
	"github.com/adanyl0v/manageq/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP
	m := metrics.New()
	v1Handler := mustNewV1Handler(m)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(m.Middleware())
	router.Use(v1Handler.HandleRequestLog)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	v1.RegisterRoutes(router.Group("/api"), v1Handler)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func mustNewV1Handler(m *metrics.Metrics) v1.Handler {
	cfg := config.Global()
	jwtCfg := cfg.JWT

	policy, err := assistant.PolicyByName(cfg.Chat.ResponsePolicy)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to select chat response policy")
		panic(err)
	}
	globalLogger.Info().
		Str("policy", policy.Name()).
		Msg("selected chat response policy")

	taskService := services.NewCachedTaskService(
		componentLogger("task_cache"),
		services.NewTaskService(componentLogger("tasks"), globalPostgresPool),
		globalRedisClient,
		cfg.Redis.TaskCacheTTL,
		m,
	)

	return v1.New(componentLogger("http"), v1.Deps{
		Auth: services.NewAuthService(
			componentLogger("auth"),
			globalPostgresPool,
			jwtCfg.Issuer,
			[]byte(jwtCfg.SigningKey),
			jwtCfg.AccessTokenTTL,
			jwtCfg.RefreshTokenTTL,
		),
		Sessions: services.NewSessionService(componentLogger("sessions"), globalPostgresPool),
		Users:    services.NewUserService(componentLogger("users"), globalPostgresPool),
		Tasks:    taskService,
		Chat: services.NewChatService(
			componentLogger("chat"),
			globalPostgresPool,
			taskService,
			policy,
		),
		Limiter: ratelimit.New(globalRedisClient, cfg.RateLimit.ChatRate, cfg.RateLimit.ChatBurst),
		Metrics: m,
		HealthChecks: map[string]v1.HealthCheck{
			"postgres": globalPostgresPool.Ping,
			"redis": func(ctx context.Context) error {
				return globalRedisClient.Ping(ctx).Err()
			},
		},
	})
}
