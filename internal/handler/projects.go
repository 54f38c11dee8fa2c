package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/model"
	"github.com/welllog/welllog-api/internal/repository"
)

// ProjectStore is the persistence the project endpoints need.
type ProjectStore interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id uint64) (*model.Project, error)
	List(ctx context.Context, f repository.ProjectFilter, offset, limit int) ([]*model.Project, int, error)
	Update(ctx context.Context, p *model.Project) error
	UpdateStatus(ctx context.Context, id uint64, status model.ProjectStatus) error
	Delete(ctx context.Context, id uint64) error
}

// ProjectHandler serves /projects.
type ProjectHandler struct {
	Projects ProjectStore
	Paging   Paging
}

func NewProjectHandler(p ProjectStore, paging Paging) *ProjectHandler {
	return &ProjectHandler{Projects: p, Paging: paging}
}

type projectReq struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Description  string   `json:"description" validate:"max=2000"`
	Location     string   `json:"location" validate:"max=200"`
	DepthFrom    *float64 `json:"depth_from" validate:"omitempty,gte=0"`
	DepthTo      *float64 `json:"depth_to" validate:"omitempty,gte=0"`
	WellDiameter *float64 `json:"well_diameter" validate:"omitempty,gt=0"`
}

func (r projectReq) check() error {
	if r.DepthFrom != nil && r.DepthTo != nil && *r.DepthTo < *r.DepthFrom {
		return badRequest("depth_to must not be less than depth_from")
	}
	return nil
}

type statusReq struct {
	Status model.ProjectStatus `json:"status" validate:"required,oneof=planning ongoing completed archived"`
}

// List returns every project to admins and the caller's own projects to
// everyone else. ?status= filters.
func (h *ProjectHandler) List(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	f := repository.ProjectFilter{Status: model.ProjectStatus(c.QueryParam("status"))}
	if f.Status != "" && !f.Status.Valid() {
		return respondError(c, badRequest("invalid status"))
	}
	if !p.IsAdmin() {
		f.OwnerID = p.SubjectID
	}
	return h.list(c, f)
}

// Mine lists the caller's projects regardless of role.
func (h *ProjectHandler) Mine(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.list(c, repository.ProjectFilter{OwnerID: p.SubjectID})
}

func (h *ProjectHandler) list(c echo.Context, f repository.ProjectFilter) error {
	offset, limit := h.Paging.page(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	items, total, err := h.Projects.List(ctx, f, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newPage(items, total, offset, limit))
}

// Create makes the caller the owner of a new project.
func (h *ProjectHandler) Create(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	var req projectReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := req.check(); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	proj := &model.Project{
		OwnerID: p.SubjectID, Name: req.Name, Description: req.Description, Location: req.Location,
		DepthFrom: req.DepthFrom, DepthTo: req.DepthTo, WellDiameter: req.WellDiameter,
		Status: model.ProjectPlanning,
	}
	if err := h.Projects.Create(ctx, proj); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, proj)
}

// load fetches the project named by :id and applies the ownership gate.
func (h *ProjectHandler) load(ctx context.Context, c echo.Context) (*model.Project, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	proj, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeOwner(c, proj.OwnerID); err != nil {
		return nil, err
	}
	return proj, nil
}

// Get returns one project to its owner or an admin.
func (h *ProjectHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	proj, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, proj)
}

// Update rewrites the editable fields of a project.
func (h *ProjectHandler) Update(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	proj, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	var req projectReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := req.check(); err != nil {
		return respondError(c, err)
	}
	proj.Name, proj.Description, proj.Location = req.Name, req.Description, req.Location
	proj.DepthFrom, proj.DepthTo, proj.WellDiameter = req.DepthFrom, req.DepthTo, req.WellDiameter
	if err := h.Projects.Update(ctx, proj); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, proj)
}

// ChangeStatus moves a project through its lifecycle.
func (h *ProjectHandler) ChangeStatus(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	proj, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := h.Projects.UpdateStatus(ctx, proj.ID, req.Status); err != nil {
		return respondError(c, err)
	}
	proj.Status = req.Status
	return c.JSON(http.StatusOK, proj)
}

// Delete removes a project with its logs and predictions.
func (h *ProjectHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	proj, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Projects.Delete(ctx, proj.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
