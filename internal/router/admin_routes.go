package router

import (
	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/handler"
	"github.com/welllog/welllog-api/internal/middleware"
)

// RegisterAdmin registers user management and audit endpoints. Every route
// requires an admin access token.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, g Guards) {
	adm := e.Group(APIPrefix+"/admin", g.Authenticate, middleware.RequireAdmin())
	adm.GET("/users", a.ListUsers)
	adm.PATCH("/users/:id", a.UpdateUser)
	adm.POST("/users/:id/reset-password", a.ResetPassword)
	adm.GET("/audit-logs", a.AuditLogs)
}
