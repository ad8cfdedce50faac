package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/travel-planner-api/logger"
	"github.com/LovationAdmin/travel-planner-api/services"
)

// statusFor maps a service error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var invalid *services.InvalidArgumentError
	var upstream *services.UpstreamError

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrPlanNotFound):
		return http.StatusNotFound, "Plan not found"
	case errors.Is(err, services.ErrPlanExists):
		return http.StatusConflict, "Plan id already in use"
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests, "Upstream rate limit reached, try again later"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "Failed to reach " + upstream.Service
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Planning took too long"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes {"error": ...} and reports server-side failures.
func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Int("status", status).Msg("request failed")
		sentry.CaptureException(err)
	}
	c.JSON(status, gin.H{"error": msg})
}
