// Package routes emulates the validation service for local runs and tests.
package routes

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/validation-portal/portal-client/internal/types"
	"github.com/validation-portal/portal-client/internal/validator"
)

// uploads above this are rejected before parsing
const maxBody = "64M"

func BuildEcho(logger *slog.Logger, s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	validate := validator.Create()
	e.Validator = &validate

	e.Pre(middleware.AddTrailingSlash())

	e.Use(
		otelecho.Middleware("mock-validator"),
		slogecho.NewWithConfig(logger, slogecho.Config{}),
		middleware.BodyLimit(maxBody),
	)

	e.GET("/health/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/token/", s.Token)
	e.POST("/token/refresh/", s.Refresh)

	authed := e.Group("", middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator:  s.validateToken,
		ErrorHandler: func(_ error, c echo.Context) error {
			return c.JSON(
				http.StatusUnauthorized,
				types.StringError("Authentication credentials were not provided."),
			)
		},
	}))

	authed.POST("/validate/", s.Validate)
	authed.GET("/reports/self/", s.ReportsSelf)
	authed.GET("/media/reports/:name/", s.Media)
	authed.DELETE("/delete-report/:id/", s.DeleteReport)
	authed.POST("/reset-cred/", s.ResetCredentials)

	return e
}
