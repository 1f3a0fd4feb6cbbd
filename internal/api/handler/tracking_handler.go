package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/osmanaliaydemir/getir-tracking/internal/api/metrics"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

const defaultTrailLimit = 50

// LocationDispatcher is the interface the handler uses to enqueue batched
// location fixes.
type LocationDispatcher interface {
	Enqueue(in ports.LocationUpdateInput)
	EnqueueBatch(fixes []ports.LocationUpdateInput)
}

// TrackingHandler handles HTTP requests for tracking operations.
type TrackingHandler struct {
	service    ports.TrackingService
	dispatcher LocationDispatcher
}

func NewTrackingHandler(service ports.TrackingService, dispatcher LocationDispatcher) *TrackingHandler {
	return &TrackingHandler{service: service, dispatcher: dispatcher}
}

// Start handles POST /v1/tracking.
//
// @Summary      Start tracking an order
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      startTrackingRequest  true  "Order and destination"
// @Success      201   {object}  startTrackingResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tracking [post]
func (h *TrackingHandler) Start(c echo.Context) error {
	var req startTrackingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.service.StartTracking(c.Request().Context(), ports.StartTrackingInput{
		OrderID:   req.OrderID,
		CourierID: req.CourierID,
		Destination: ports.CoordinatesInput{
			Lat: req.Destination.Lat,
			Lng: req.Destination.Lng,
		},
	})
	if err != nil {
		return err
	}

	code := http.StatusCreated
	if result.AlreadyExisted {
		code = http.StatusOK
	} else {
		metrics.SessionsStartedTotal.Inc()
	}

	return c.JSON(code, startTrackingResponse{
		SessionID:      result.SessionID,
		OrderID:        req.OrderID,
		Status:         string(result.Status),
		CreatedAt:      result.CreatedAt.Format(timeFormat),
		AlreadyExisted: result.AlreadyExisted,
		Links: trackingLinks{
			Self:  "/v1/tracking/order/" + req.OrderID,
			Trail: "/v1/tracking/" + result.SessionID + "/trail",
		},
	})
}

// UpdateLocation handles POST /v1/tracking/:id/location — applies a single
// fix synchronously and returns the recomputed distance/ETA.
//
// @Summary      Report a courier location fix
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Session ID"
// @Param        body  body      locationUpdateRequest  true  "Location fix"
// @Success      200   {object}  locationUpdateResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/tracking/{id}/location [post]
func (h *TrackingHandler) UpdateLocation(c echo.Context) error {
	var req locationUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	in := toLocationInput(c.Param("id"), req)
	started := time.Now()
	result, err := h.service.UpdateLocation(c.Request().Context(), in)
	metrics.LocationUpdateDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.LocationErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		return err
	}

	source := string(in.Source)
	if source == "" {
		source = string(domain.SourceGPS)
	}
	metrics.LocationUpdatesTotal.WithLabelValues(source, "single").Inc()

	resp := locationUpdateResponse{
		DistanceRemainingKm: result.DistanceRemainingKm,
		ETAMinutesRemaining: result.ETAMinutesRemaining,
	}
	if !result.EstimatedArrivalAt.IsZero() {
		resp.EstimatedArrivalAt = result.EstimatedArrivalAt.Format(timeFormat)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateLocationBatch handles POST /v1/tracking/:id/location/batch — enqueues
// buffered fixes for asynchronous processing, returns 202.
//
// @Summary      Upload buffered location fixes
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Session ID"
// @Param        body  body      batchLocationRequest  true  "Buffered fixes, oldest first"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tracking/{id}/location/batch [post]
func (h *TrackingHandler) UpdateLocationBatch(c echo.Context) error {
	var req batchLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	sessionID := c.Param("id")
	inputs := make([]ports.LocationUpdateInput, 0, len(req.Fixes))
	for i, fix := range req.Fixes {
		if err := c.Validate(&fix); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("fix[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, toLocationInput(sessionID, fix))
	}

	h.dispatcher.EnqueueBatch(inputs)
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "fixes accepted",
		Count:   len(inputs),
	})
}

// UpdateStatus handles POST /v1/tracking/:id/status.
//
// @Summary      Apply a status transition
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Session ID"
// @Param        body  body      statusUpdateRequest  true  "New status"
// @Success      200   {object}  statusUpdateResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tracking/{id}/status [post]
func (h *TrackingHandler) UpdateStatus(c echo.Context) error {
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.service.UpdateStatus(c.Request().Context(), ports.StatusUpdateInput{
		SessionID: c.Param("id"),
		Status:    domain.TrackingStatus(req.Status),
		Message:   req.Message,
	})
	if err != nil {
		return err
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(result.Status)).Inc()

	return c.JSON(http.StatusOK, statusUpdateResponse{
		Status:    string(result.Status),
		Message:   req.Message,
		UpdatedAt: result.UpdatedAt.Format(timeFormat),
	})
}

// Stop handles DELETE /v1/tracking/:id.
func (h *TrackingHandler) Stop(c echo.Context) error {
	sessionID := c.Param("id")
	stopped, err := h.service.StopTracking(c.Request().Context(), sessionID)
	if err != nil {
		return err
	}
	if !stopped {
		return echo.NewHTTPError(http.StatusNotFound, "tracking session not found")
	}
	return c.JSON(http.StatusOK, stoppedResponse{SessionID: sessionID, Stopped: true})
}

// GetByOrder handles GET /v1/tracking/order/:order_id.
//
// @Summary      Get the tracking snapshot for an order
// @Tags         tracking
// @Produce      json
// @Security     BearerAuth
// @Param        order_id  path      string  true  "Order ID"
// @Success      200       {object}  sessionResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/tracking/order/{order_id} [get]
func (h *TrackingHandler) GetByOrder(c echo.Context) error {
	session, err := h.service.Snapshot(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Trail handles GET /v1/tracking/:id/trail?limit=N.
func (h *TrackingHandler) Trail(c echo.Context) error {
	sessionID := c.Param("id")
	limit := defaultTrailLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	records, err := h.service.Trail(c.Request().Context(), sessionID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTrailResponse(sessionID, records))
}

// Transitions handles GET /v1/tracking/:id/transitions — returns the statuses
// reachable from the session's current state, for driver app menus.
func (h *TrackingHandler) Transitions(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("id")

	session, err := h.service.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	available, err := h.service.AvailableTransitions(ctx, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTransitionsResponse(session.Status, available))
}

// ByCourier handles GET /v1/tracking/courier/:courier_id. Couriers may only
// list their own sessions; admins may list anyone's.
func (h *TrackingHandler) ByCourier(c echo.Context) error {
	courierID := c.Param("courier_id")
	role, actorID, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if role == domain.RoleCourier && actorID != courierID {
		return domain.ErrForbidden
	}

	sessions, err := h.service.SessionsByCourier(c.Request().Context(), courierID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionListResponse(sessions))
}

// Active handles GET /v1/admin/tracking/active.
func (h *TrackingHandler) Active(c echo.Context) error {
	sessions, err := h.service.ActiveSessions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionListResponse(sessions))
}

// Statistics handles GET /v1/admin/tracking/stats.
func (h *TrackingHandler) Statistics(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatisticsResponse(stats))
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, domain.ErrSessionInactive):
		return "session_inactive"
	case errors.Is(err, domain.ErrInvalidCoordinates):
		return "invalid_coordinates"
	case errors.Is(err, domain.ErrOutsideServiceArea):
		return "outside_service_area"
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "update_failed"
	}
}
