package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/osmanaliaydemir/getir-tracking/internal/api/handler"
	"github.com/osmanaliaydemir/getir-tracking/internal/api/middleware"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// RouterDeps carries everything the router needs. Mongo and Redis are used
// only by the readiness probe and may be nil.
type RouterDeps struct {
	Service    ports.TrackingService
	Dispatcher handler.LocationDispatcher
	Mongo      *mongo.Database
	Redis      *redis.Client
	JWTSecret  string
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Tracking API ---
	trackingHandler := handler.NewTrackingHandler(d.Service, d.Dispatcher)
	auth := middleware.Auth(d.JWTSecret)

	v1 := e.Group("/v1", auth)

	// Session lifecycle: the order service starts tracking, the courier app
	// reports positions and transitions.
	v1.POST("/tracking", trackingHandler.Start,
		middleware.RBAC(domain.RoleService, domain.RoleAdmin))
	v1.POST("/tracking/:id/location", trackingHandler.UpdateLocation,
		middleware.RBAC(domain.RoleCourier, domain.RoleService, domain.RoleAdmin))
	v1.POST("/tracking/:id/location/batch", trackingHandler.UpdateLocationBatch,
		middleware.RBAC(domain.RoleCourier, domain.RoleService, domain.RoleAdmin))
	v1.POST("/tracking/:id/status", trackingHandler.UpdateStatus,
		middleware.RBAC(domain.RoleCourier, domain.RoleService, domain.RoleAdmin))
	v1.DELETE("/tracking/:id", trackingHandler.Stop,
		middleware.RBAC(domain.RoleService, domain.RoleAdmin))

	// Read side.
	v1.GET("/tracking/order/:order_id", trackingHandler.GetByOrder)
	v1.GET("/tracking/:id/trail", trackingHandler.Trail)
	v1.GET("/tracking/:id/transitions", trackingHandler.Transitions,
		middleware.RBAC(domain.RoleCourier, domain.RoleService, domain.RoleAdmin))
	v1.GET("/tracking/courier/:courier_id", trackingHandler.ByCourier,
		middleware.RBAC(domain.RoleCourier, domain.RoleAdmin))

	// Admin dashboard.
	admin := v1.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	admin.GET("/tracking/active", trackingHandler.Active)
	admin.GET("/tracking/stats", trackingHandler.Statistics)

	// --- Live subscriptions ---
	wsHandler := handler.NewWSHandler(d.Service, d.Log)
	e.GET("/ws/tracking", wsHandler.Serve, auth)

	return e
}
