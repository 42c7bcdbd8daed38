// Package http wires the query/mutation/subscription surface onto echo.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/auth"
	"chat-relay/observability"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	echo *echo.Echo
}

func NewServer(log *slog.Logger, tokens *auth.TokenManager,
	query *QueryHandler, mutation *MutationHandler, authHandler *AuthHandler,
	subscription *SubscriptionHandler, health *observability.HealthReporter,
	registry *prometheus.Registry) *Server {

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))

	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/register", authHandler.Register)

	api := e.Group("/api")
	api.GET("/users", query.ListUsers)
	api.GET("/rooms", query.ListRooms)
	api.GET("/rooms/:id/messages", query.MessagesByRoom)
	api.GET("/rooms/:id/search", query.SearchMessages)
	api.POST("/users", mutation.CreateUser)
	api.POST("/rooms", mutation.CreateRoom)
	api.POST("/messages", mutation.CreateMessage, auth.Middleware(tokens))

	e.GET("/ws/rooms/:id", subscription.Stream)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry,
		promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		snapshot, err := health.Snapshot()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "stats unavailable")
		}
		return c.JSON(http.StatusOK, snapshot)
	})

	return &Server{echo: e}
}

// Echo exposes the underlying router, mainly for httptest in package
// tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Info("Request handled",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds())
			return err
		}
	}
}
