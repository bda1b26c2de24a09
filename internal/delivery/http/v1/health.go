package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

func (h *handlerImpl) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, healthCheckTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.checks {
		err := check(ctx)
		if err != nil {
			h.logger.Error().
				Err(err).
				Str("dependency", name).
				Msg("health check failed")
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
