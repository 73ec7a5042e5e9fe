package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/iban-manager/internal/errs"
	"github.com/deppfellow/iban-manager/internal/middleware"
	"github.com/deppfellow/iban-manager/internal/response"
	"github.com/deppfellow/iban-manager/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	healthMessage = "IBAN Manager API is running"

	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthHandler reports whether the service and its dependencies are reachable.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// HealthStatus is the data of the health response.
type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Checks      map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

// CheckHealth answers 200 while the database responds and 503 otherwise.
// The database is probed on every call whatever the configured check list.
// Redis is probed when configured and listed, but never makes the service
// unhealthy because the rate limiter works without it.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	status := HealthStatus{
		Status:      statusHealthy,
		Timestamp:   time.Now().UTC(),
		Environment: h.server.Config.Primary.Env,
		Checks:      make(map[string]CheckResult),
	}

	ctx := c.Request().Context()

	dbCheck := h.probe(ctx, &logger, "database", h.server.DB.Ping)
	status.Checks["database"] = dbCheck
	if dbCheck.Status != statusHealthy {
		status.Status = statusUnhealthy
	}

	if h.server.Redis != nil && h.server.Config.Observability.HasCheck("redis") {
		status.Checks["redis"] = h.probe(ctx, &logger, "redis", func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		})
	}

	if status.Status != statusHealthy {
		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordFailure("overall", map[string]interface{}{
			"total_duration_ms": time.Since(start).Milliseconds(),
		})

		failure := response.Failure(errs.NewServiceUnavailableError("Database unavailable"))
		failure.Data = status
		return c.JSON(http.StatusServiceUnavailable, failure)
	}

	logger.Debug().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	return response.JSON(c, http.StatusOK, status, healthMessage)
}

func (h *HealthHandler) probe(
	ctx context.Context,
	logger *zerolog.Logger,
	name string,
	ping func(context.Context) error,
) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.server.Config.Observability.HealthChecks.Timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	elapsed := time.Since(start)

	if err != nil {
		logger.Error().
			Err(err).
			Str("check", name).
			Dur("response_time", elapsed).
			Msg("health check dependency failed")

		h.recordFailure(name, map[string]interface{}{
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})

		return CheckResult{
			Status:       statusUnhealthy,
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return CheckResult{
		Status:       statusHealthy,
		ResponseTime: elapsed.String(),
	}
}

// recordFailure sends a HealthCheckError custom event to New Relic.
func (h *HealthHandler) recordFailure(checkType string, attrs map[string]interface{}) {
	app := h.server.LoggerService.GetApplication()
	if app == nil {
		return
	}

	attrs["check_type"] = checkType
	attrs["operation"] = "health_check"
	attrs["error_type"] = checkType + "_unhealthy"
	app.RecordCustomEvent("HealthCheckError", attrs)
}
