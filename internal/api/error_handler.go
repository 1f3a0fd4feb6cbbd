package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Details
// is populated only for rejected transitions, where the client needs the
// allowed next statuses to recover.
type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type transitionDetails struct {
	CurrentStatus   string   `json:"current_status"`
	AttemptedStatus string   `json:"attempted_status"`
	AllowedStatuses []string `json:"allowed_statuses"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	// Rejected transitions carry the allowed next statuses.
	var te *domain.TransitionError
	if errors.As(err, &te) {
		allowed := make([]string, 0, len(te.Allowed))
		for _, s := range te.Allowed {
			allowed = append(allowed, string(s))
		}
		return http.StatusUnprocessableEntity, errorResponse{
			Error: "invalid status transition",
			Details: transitionDetails{
				CurrentStatus:   string(te.From),
				AttemptedStatus: string(te.Attempted),
				AllowedStatuses: allowed,
			},
		}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, errorResponse{Error: "tracking session not found"}
	case errors.Is(err, domain.ErrSessionInactive):
		return http.StatusConflict, errorResponse{Error: "tracking session is no longer active"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrInvalidCoordinates):
		return http.StatusBadRequest, errorResponse{Error: "coordinates out of range"}
	case errors.Is(err, domain.ErrOutsideServiceArea):
		return http.StatusUnprocessableEntity, errorResponse{Error: "location outside service area"}
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, errorResponse{Error: "unknown tracking status"}
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable, errorResponse{Error: "session busy, retry shortly"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
