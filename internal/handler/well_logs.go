package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/model"
)

// WellLogStore is the persistence the well log endpoints need.
type WellLogStore interface {
	Create(ctx context.Context, l *model.WellLog) error
	GetByID(ctx context.Context, id uint64) (*model.WellLog, error)
	ListByProject(ctx context.Context, projectID uint64, offset, limit int) ([]*model.WellLog, int, error)
	Delete(ctx context.Context, id uint64) error
}

// ProjectReader loads the project that anchors ownership.
type ProjectReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Project, error)
}

// WellLogHandler serves well log metadata. Parsing the uploaded file is
// done elsewhere; this service records what the parser reports.
type WellLogHandler struct {
	Logs     WellLogStore
	Projects ProjectReader
	Paging   Paging
}

func NewWellLogHandler(l WellLogStore, p ProjectReader, paging Paging) *WellLogHandler {
	return &WellLogHandler{Logs: l, Projects: p, Paging: paging}
}

type wellLogReq struct {
	Filename    string   `json:"filename" validate:"required,max=255"`
	FileSize    int64    `json:"file_size" validate:"gte=0"`
	DepthFrom   *float64 `json:"depth_from"`
	DepthTo     *float64 `json:"depth_to"`
	SampleCount int      `json:"sample_count" validate:"gte=0"`
	Curves      []string `json:"curves" validate:"dive,required,max=32"`
}

// project loads the project named in the path and the caller allowed to
// act on it.
func (h *WellLogHandler) project(ctx context.Context, c echo.Context) (*model.Project, auth.Principal, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, auth.Principal{}, err
	}
	proj, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, auth.Principal{}, err
	}
	p, err := authorizeOwner(c, proj.OwnerID)
	if err != nil {
		return nil, auth.Principal{}, err
	}
	return proj, p, nil
}

// ListByProject pages through the logs of a project.
func (h *WellLogHandler) ListByProject(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	proj, _, err := h.project(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	offset, limit := h.Paging.page(c)
	items, total, err := h.Logs.ListByProject(ctx, proj.ID, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newPage(items, total, offset, limit))
}

// Create records a well log under a project owned by the caller.
func (h *WellLogHandler) Create(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	proj, p, err := h.project(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	var req wellLogReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.DepthFrom != nil && req.DepthTo != nil && *req.DepthTo < *req.DepthFrom {
		return respondError(c, badRequest("depth_to must not be less than depth_from"))
	}

	l := &model.WellLog{
		ProjectID: proj.ID, OwnerID: proj.OwnerID, Filename: req.Filename, FileSize: req.FileSize,
		DepthFrom: req.DepthFrom, DepthTo: req.DepthTo, SampleCount: req.SampleCount,
		Curves: req.Curves, UploadUserID: p.SubjectID, Status: model.LogProcessing,
	}
	if err := h.Logs.Create(ctx, l); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *WellLogHandler) load(ctx context.Context, c echo.Context) (*model.WellLog, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	l, err := h.Logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeOwner(c, l.OwnerID); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns one well log.
func (h *WellLogHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	l, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Delete removes a well log and its predictions.
func (h *WellLogHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	l, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Logs.Delete(ctx, l.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
