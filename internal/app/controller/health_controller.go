package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	database Pinger
}

func NewHealthController(database Pinger) *HealthController {
	return &HealthController{database: database}
}

// Health reports whether the API can reach its database
// GET /health
func (ctrl *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := ctrl.database.PingContext(ctx); err != nil {
		middleware.GetLoggerFromContext(c).Error("Health check failed", err, nil)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "ok",
	})
}
