package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/infrastructure/storage/postgres"
)

const readinessTimeout = 2 * time.Second

// HealthCheck is one dependency probed by the readiness endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	version string
	db      *postgres.Pool
	checks  []HealthCheck
}

// NewHealthHandler creates a health handler. A non-nil db is probed by Ready
// and reported by Info.
func NewHealthHandler(version string, db *postgres.Pool, checks ...HealthCheck) *HealthHandler {
	if db != nil {
		checks = append([]HealthCheck{{Name: "postgres", Check: db.Ping}}, checks...)
	}
	return &HealthHandler{version: version, db: db, checks: checks}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready: 503 until every dependency answers.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			results[chk.Name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "healthy"
	}

	body := gin.H{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "error"
	}
	c.JSON(status, body)
}

// Info handles GET /health/info.
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "bakehouse",
		"version": h.version,
	}
	if h.db != nil {
		body["database"] = h.db.Stats()
	}
	c.JSON(http.StatusOK, body)
}
