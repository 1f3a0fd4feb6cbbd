package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

func render(t *testing.T, err error) (int, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/tracking/TRK-1/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	return rec.Code, body
}

func TestErrorHandler_DomainErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"session not found", domain.ErrSessionNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("update location: %w", domain.ErrSessionNotFound), http.StatusNotFound},
		{"session inactive", domain.ErrSessionInactive, http.StatusConflict},
		{"invalid coordinates", domain.ErrInvalidCoordinates, http.StatusBadRequest},
		{"outside service area", domain.ErrOutsideServiceArea, http.StatusUnprocessableEntity},
		{"invalid status", domain.ErrInvalidStatus, http.StatusBadRequest},
		{"lock timeout", domain.ErrLockTimeout, http.StatusServiceUnavailable},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"unexpected", errors.New("mongo: socket closed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := render(t, tc.err)
			if code != tc.code {
				t.Errorf("code = %d, want %d", code, tc.code)
			}
			if body.Error == "" {
				t.Error("error message should never be empty")
			}
		})
	}
}

func TestErrorHandler_UnexpectedErrorIsNotLeaked(t *testing.T) {
	_, body := render(t, errors.New("dial tcp 10.0.0.5:27017: connection refused"))
	if body.Error != "internal server error" {
		t.Errorf("internal details leaked: %q", body.Error)
	}
}

func TestErrorHandler_TransitionErrorCarriesAllowedStatuses(t *testing.T) {
	err := fmt.Errorf("update status: %w",
		domain.NewTransitionError(domain.StatusArrived, domain.StatusOnTheWay))

	code, body := render(t, err)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", code)
	}

	details, ok := body.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected transition details, got %T", body.Details)
	}
	if details["current_status"] != "arrived" || details["attempted_status"] != "on_the_way" {
		t.Fatalf("unexpected details: %+v", details)
	}
	allowed, ok := details["allowed_statuses"].([]any)
	if !ok || len(allowed) == 0 {
		t.Fatalf("allowed_statuses missing: %+v", details)
	}
	for _, s := range allowed {
		if s != "delivered" && s != "cancelled" {
			t.Errorf("unexpected allowed status %v from arrived", s)
		}
	}
}

func TestErrorHandler_EchoHTTPErrorPassthrough(t *testing.T) {
	code, body := render(t, echo.NewHTTPError(http.StatusNotFound, "route not found"))
	if code != http.StatusNotFound || body.Error != "route not found" {
		t.Fatalf("got %d %q", code, body.Error)
	}
}
