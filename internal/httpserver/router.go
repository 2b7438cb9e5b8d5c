package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	authmw "github.com/Skotchmaster/sweet_shop/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/sweet_shop/internal/middleware/logging"
	"github.com/Skotchmaster/sweet_shop/internal/middleware/metrics"
	"github.com/Skotchmaster/sweet_shop/internal/middleware/ratelimit"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
)

const bodyLimit = "10M"

type Deps struct {
	AuthHandler   *AuthHTTP
	SweetsHandler *SweetsHTTP
	AuthMW        *authmw.Middleware

	Logger      *slog.Logger
	APIPrefix   string
	CORSOrigins []string

	// Metrics and Gatherer are optional; /metrics is mounted only when both are set.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// RateLimit is optional.
	RateLimit echomw.RateLimiterStore
}

// New builds the echo instance with the full middleware stack and routes.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = NewValidator()

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e.Use(loggingmw.RequestLogger(logger))
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: corsOrigins(d.CORSOrigins),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit(bodyLimit))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, transport.Health{Status: "OK", Timestamp: time.Now().UTC()})
	})
	if d.Metrics != nil && d.Gatherer != nil {
		e.GET("/metrics", metrics.Handler(d.Gatherer))
	}

	api := e.Group(d.APIPrefix)
	if d.RateLimit != nil {
		api.Use(ratelimit.Middleware(d.RateLimit))
	}

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/me", d.AuthHandler.Me, d.AuthMW.RequireAuth)

	sweets := api.Group("/sweets")
	sweets.GET("", d.SweetsHandler.List, d.AuthMW.RequireAuth)
	sweets.GET("/search", d.SweetsHandler.Search, d.AuthMW.RequireAuth)
	sweets.GET("/:id", d.SweetsHandler.Get, d.AuthMW.RequireAuth)
	sweets.POST("/:id/purchase", d.SweetsHandler.Purchase, d.AuthMW.RequireAuth)

	admin := sweets.Group("", d.AuthMW.RequireAdmin)
	admin.POST("", d.SweetsHandler.Create)
	admin.PUT("/:id", d.SweetsHandler.Update)
	admin.DELETE("/:id", d.SweetsHandler.Delete)
	admin.POST("/:id/restock", d.SweetsHandler.Restock)
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
