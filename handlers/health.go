package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"biz_flow_app_go/db"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports whether the database answers. Used by load balancer health checks.
func HealthHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		log.Printf("[ERROR] Health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
