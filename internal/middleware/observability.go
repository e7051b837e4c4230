package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/rawrecordscount/internal/export"
	"github.com/noah-isme/rawrecordscount/internal/observability"
)

// ReportPathPrefix marks the routes covered by the report metrics.
const ReportPathPrefix = "/report"

// Observability attaches Prometheus metrics and structured latency/error logging for report
// endpoints.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		if !strings.HasPrefix(c.Path(), ReportPathPrefix) {
			return err
		}

		status := c.Response().StatusCode()
		if err != nil {
			// The fiber error handler has not written the response yet.
			status = fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}
		format := string(export.ParseFormat(c.Query("out")))
		statusLabel := strconv.Itoa(status)

		observability.ReportRequests().WithLabelValues(format, statusLabel).Inc()
		observability.ReportLatency().WithLabelValues(format).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.ReportErrors().WithLabelValues(format, statusLabel).Inc()
		}

		requestLogger := logger.With().
			Str("correlation_id", GetCorrelationID(c)).
			Str("route", routeTemplate(c)).
			Str("format", format).
			Int("status", status).
			Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
			Str("latency_bucket", latencyBucket(duration)).
			Logger()

		switch {
		case status >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg("report request failed")
		case status >= fiber.StatusBadRequest:
			requestLogger.Warn().Msg("report request completed with client error")
		default:
			requestLogger.Info().Msg("report request completed")
		}

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}

func latencyBucket(duration time.Duration) string {
	switch {
	case duration <= 50*time.Millisecond:
		return "<=50ms"
	case duration <= 250*time.Millisecond:
		return "<=250ms"
	case duration <= time.Second:
		return "<=1s"
	case duration <= 5*time.Second:
		return "<=5s"
	default:
		return ">5s"
	}
}
