package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/model"
)

// ModelStore is the AI model catalog.
type ModelStore interface {
	List(ctx context.Context, activeOnly bool) ([]*model.AIModel, error)
	GetByID(ctx context.Context, id uint64) (*model.AIModel, error)
	Create(ctx context.Context, m *model.AIModel) error
	Delete(ctx context.Context, id uint64) error
}

// ModelHandler serves the catalog. Reads are open to any authenticated user;
// writes are admin-only and drop the cached catalog.
type ModelHandler struct {
	Models     ModelStore
	Invalidate func(ctx context.Context) error
}

func NewModelHandler(m ModelStore, invalidate func(ctx context.Context) error) *ModelHandler {
	return &ModelHandler{Models: m, Invalidate: invalidate}
}

type modelReq struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Version     string          `json:"version" validate:"required,max=50"`
	Description string          `json:"description" validate:"max=2000"`
	ModelType   string          `json:"model_type" validate:"required,max=50"`
	Accuracy    *float64        `json:"accuracy" validate:"omitempty,gte=0,lte=1"`
	Parameters  json.RawMessage `json:"parameters"`
	Active      *bool           `json:"active"`
}

// List returns the catalog. ?all=true includes retired models.
func (h *ModelHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Models.List(ctx, c.QueryParam("all") != "true")
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []*model.AIModel{}
	}
	return c.JSON(http.StatusOK, items)
}

// Get returns one catalog entry.
func (h *ModelHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Models.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Create registers a model; the caller is recorded as creator.
func (h *ModelHandler) Create(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	var req modelReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if len(req.Parameters) > 0 && !json.Valid(req.Parameters) {
		return respondError(c, badRequest("parameters must be valid JSON"))
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m := &model.AIModel{
		Name: req.Name, Version: req.Version, Desc: req.Description, ModelType: req.ModelType,
		Accuracy: req.Accuracy, Parameters: req.Parameters, CreatorID: p.SubjectID, Active: true,
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
	if err := h.Models.Create(ctx, m); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusCreated, m)
}

// Delete removes a model that no prediction references.
func (h *ModelHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Models.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *ModelHandler) invalidate(ctx context.Context) {
	if h.Invalidate == nil {
		return
	}
	if err := h.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("model cache invalidation failed")
	}
}
