package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/manageq/internal/metrics"
	"github.com/adanyl0v/manageq/internal/ratelimit"
	"github.com/adanyl0v/manageq/internal/services"
)

type Handler interface {
	HandleLogin(c *gin.Context)
	HandleRefresh(c *gin.Context)
	HandleRegister(c *gin.Context)
	HandleLogout(c *gin.Context)
	HandleProfile(c *gin.Context)

	HandleAuthMiddleware(c *gin.Context)
	HandleRequestLog(c *gin.Context)
	HandleChatRateLimit(c *gin.Context)

	HandleGetTasks(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleGetTaskStats(c *gin.Context)

	HandleGetChat(c *gin.Context)
	HandleSendChat(c *gin.Context)

	HandleHealth(c *gin.Context)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of the handler. Limiter, Metrics and
// HealthChecks are optional.
type Deps struct {
	Auth     services.AuthService
	Sessions services.SessionService
	Users    services.UserService
	Tasks    services.TaskService
	Chat     services.ChatService

	Limiter      RateLimiter
	Metrics      *metrics.Metrics
	HealthChecks map[string]HealthCheck
}

type handlerImpl struct {
	logger   zerolog.Logger
	auth     services.AuthService
	sessions services.SessionService
	users    services.UserService
	tasks    services.TaskService
	chat     services.ChatService
	limiter  RateLimiter
	metrics  *metrics.Metrics
	checks   map[string]HealthCheck
}

func New(logger zerolog.Logger, deps Deps) Handler {
	return &handlerImpl{
		logger:   logger,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		users:    deps.Users,
		tasks:    deps.Tasks,
		chat:     deps.Chat,
		limiter:  deps.Limiter,
		metrics:  deps.Metrics,
		checks:   deps.HealthChecks,
	}
}

// RegisterRoutes mounts the API on router. Everything except auth entry
// points and health requires a bearer access token.
func RegisterRoutes(router gin.IRouter, h Handler) {
	router.GET("/health", h.HandleHealth)

	authRouter := router.Group("/auth")
	authRouter.POST("/login", h.HandleLogin)
	authRouter.POST("/refresh", h.HandleRefresh)
	authRouter.POST("/register", h.HandleRegister)
	authRouter.POST("/logout", h.HandleAuthMiddleware, h.HandleLogout)
	authRouter.GET("/profile", h.HandleAuthMiddleware, h.HandleProfile)

	tasksRouter := router.Group("/tasks", h.HandleAuthMiddleware)
	tasksRouter.GET("", h.HandleGetTasks)
	tasksRouter.POST("", h.HandleCreateTask)
	tasksRouter.GET("/stats", h.HandleGetTaskStats)
	tasksRouter.PUT("/:id", h.HandleUpdateTask)
	tasksRouter.DELETE("/:id", h.HandleDeleteTask)

	chatRouter := router.Group("/chat", h.HandleAuthMiddleware)
	chatRouter.GET("", h.HandleGetChat)
	chatRouter.POST("", h.HandleChatRateLimit, h.HandleSendChat)
}
