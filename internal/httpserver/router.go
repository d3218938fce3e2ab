package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hotelworks/backoffice/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Auth        *middleware.BearerAuth
	Logger      *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(middleware.RequestLogger(d.Logger))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	auth := e.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)

	private := auth.Group("")
	private.Use(d.Auth.RequireAuth)
	private.POST("/logout", d.AuthHandler.Logout)
	private.GET("/profile", d.AuthHandler.Profile)
}
