package v1

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/manageq/internal/services"
)

const (
	userIDCtxKey    = "user_id"
	sessionIDCtxKey = "session_id"
)

// HandleAuthMiddleware resolves the bearer access token to its session
// and stores the owner's user ID in the context. Expired tokens are
// rejected; clients renew them through the refresh endpoint.
func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Error().Msg("authorization header required")
		abort(c, newUnauthorizedError("No token, authorization denied"))
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix || parts[1] == "" {
		h.logger.Error().Msg("invalid authorization header")
		abort(c, newUnauthorizedError("Token is not valid"))
		return
	}

	claims, err := h.auth.ParseJWTToken(parts[1])
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse token")
		if errors.Is(err, jwt.ErrTokenExpired) {
			abort(c, newUnauthorizedError("Token expired"))
			return
		}
		abort(c, newUnauthorizedError("Token is not valid"))
		return
	}

	session, err := h.sessions.GetSessionByID(c, claims.Subject)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			h.logger.Warn().
				Str("session_id", claims.Subject).
				Msg("session not found")
			abort(c, newUnauthorizedError("Token is not valid"))
			return
		}

		h.logger.Error().
			Err(err).
			Msg("failed to fetch session")
		abort(c, newServerError(err))
		return
	}

	if session.Expired(time.Now()) {
		h.logger.Warn().
			Str("session_id", session.ID).
			Msg("session expired")
		abort(c, newUnauthorizedError("Token expired"))
		return
	}

	fingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newServerError(err))
		return
	}

	if fingerprint != session.Fingerprint {
		h.logger.Error().
			Str("session_id", session.ID).
			Msg("fingerprint mismatch")
		abort(c, newUnauthorizedError("Token is not valid"))
		return
	}

	c.Set(userIDCtxKey, session.UserID)
	c.Set(sessionIDCtxKey, session.ID)
	c.Next()
}

func (h *handlerImpl) HandleRequestLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	event := h.logger.Info()
	switch {
	case status >= http.StatusInternalServerError:
		event = h.logger.Error()
	case status >= http.StatusBadRequest:
		event = h.logger.Warn()
	}

	event.
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Str("client_ip", c.ClientIP()).
		Int("size", c.Writer.Size()).
		Msg("handled request")
}

// HandleChatRateLimit must run after HandleAuthMiddleware, the bucket is
// keyed by user. Limiter failures let the request through.
func (h *handlerImpl) HandleChatRateLimit(c *gin.Context) {
	if h.limiter == nil {
		c.Next()
		return
	}

	userID, _ := getStringFromContext(c, userIDCtxKey)
	result, err := h.limiter.Allow(c, "chat:"+userID)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("rate limiter unavailable")
		c.Next()
		return
	}

	if !result.Allowed {
		h.logger.Warn().
			Str("user_id", userID).
			Dur("retry_after", result.RetryAfter).
			Msg("chat rate limited")
		h.metrics.ObserveRateLimited(c.FullPath())

		retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
		abort(c, newAPIError(http.StatusTooManyRequests, msgTooManyRequests))
		return
	}
	c.Next()
}
