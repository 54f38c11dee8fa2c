// Package router registers the HTTP routes of the API on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/welllog/welllog-api/internal/handler"
	"github.com/welllog/welllog-api/internal/metrics"
	"github.com/welllog/welllog-api/internal/middleware"
)

// APIPrefix is the base path of every versioned endpoint.
const APIPrefix = "/api/v1"

// Guards bundles the middleware shared by the route groups. Throttle and
// Cache may be nil.
type Guards struct {
	Authenticate echo.MiddlewareFunc
	Throttle     echo.MiddlewareFunc
	Cache        echo.MiddlewareFunc
}

func (g Guards) throttle() echo.MiddlewareFunc { return orPass(g.Throttle) }
func (g Guards) cache() echo.MiddlewareFunc    { return orPass(g.Cache) }

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}

// Setup installs the validator and the middleware every request passes
// through. An empty origins list allows any origin.
func Setup(e *echo.Echo, origins []string) {
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(metrics.Instrument())
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the session endpoints. Register, login and refresh
// are open but throttled; the rest need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	open := e.Group(APIPrefix+"/auth", g.throttle())
	open.POST("/register", a.Register)
	open.POST("/login", a.Login)
	open.POST("/refresh", a.Refresh)

	e.POST(APIPrefix+"/auth/logout", a.Logout, g.Authenticate)
	e.POST(APIPrefix+"/auth/verify", a.Verify, g.Authenticate)

	me := e.Group(APIPrefix+"/users/me", g.Authenticate)
	me.GET("", a.Me)
	me.POST("/password", a.ChangePassword)
}
