package router

import (
	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/handler"
	"github.com/welllog/welllog-api/internal/middleware"
)

// Resources groups the handlers of the owner-scoped endpoints.
type Resources struct {
	Projects    *handler.ProjectHandler
	Logs        *handler.WellLogHandler
	Predictions *handler.PredictionHandler
	Models      *handler.ModelHandler
}

// RegisterResources registers project, well log, prediction and model
// routes. All of them require authentication; ownership is checked by the
// handlers.
func RegisterResources(e *echo.Echo, r Resources, g Guards) {
	api := e.Group(APIPrefix, g.Authenticate)

	// ---- Projects ----
	api.GET("/projects", r.Projects.List)
	api.GET("/projects/my", r.Projects.Mine)
	api.POST("/projects", r.Projects.Create)
	api.GET("/projects/:id", r.Projects.Get)
	api.PUT("/projects/:id", r.Projects.Update)
	api.PATCH("/projects/:id/status", r.Projects.ChangeStatus)
	api.DELETE("/projects/:id", r.Projects.Delete)

	// ---- Well logs ----
	api.GET("/projects/:id/logs", r.Logs.ListByProject)
	api.POST("/projects/:id/logs", r.Logs.Create)
	api.GET("/logs/:id", r.Logs.Get)
	api.DELETE("/logs/:id", r.Logs.Delete)

	// ---- Predictions ----
	api.GET("/logs/:id/predictions", r.Predictions.ListByLog)
	api.POST("/predictions", r.Predictions.Create)
	api.GET("/predictions/:id", r.Predictions.Get)
	api.DELETE("/predictions/:id", r.Predictions.Delete)

	// ---- Models ----
	api.GET("/models", r.Models.List, g.cache())
	api.GET("/models/:id", r.Models.Get, g.cache())
	api.POST("/models", r.Models.Create, middleware.RequireAdmin())
	api.DELETE("/models/:id", r.Models.Delete, middleware.RequireAdmin())
}
