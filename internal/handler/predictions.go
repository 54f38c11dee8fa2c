package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/model"
)

// PredictionStore is the persistence the prediction endpoints need.
type PredictionStore interface {
	Create(ctx context.Context, p *model.Prediction) error
	GetByID(ctx context.Context, id uint64) (*model.Prediction, error)
	ListByLog(ctx context.Context, logID uint64, offset, limit int) ([]*model.Prediction, error)
	Delete(ctx context.Context, id uint64) error
}

// WellLogReader loads the well log a prediction list hangs off.
type WellLogReader interface {
	GetByID(ctx context.Context, id uint64) (*model.WellLog, error)
}

// ModelReader resolves the model a prediction was made with.
type ModelReader interface {
	GetByID(ctx context.Context, id uint64) (*model.AIModel, error)
}

// PredictionHandler serves prediction results.
type PredictionHandler struct {
	Predictions PredictionStore
	Logs        WellLogReader
	Models      ModelReader
	Paging      Paging
}

func NewPredictionHandler(p PredictionStore, l WellLogReader, m ModelReader, paging Paging) *PredictionHandler {
	return &PredictionHandler{Predictions: p, Logs: l, Models: m, Paging: paging}
}

type predictionReq struct {
	LogID           uint64                 `json:"log_id" validate:"required"`
	ModelID         uint64                 `json:"model_id" validate:"required"`
	DepthFrom       *float64               `json:"depth_from"`
	DepthTo         *float64               `json:"depth_to"`
	Results         json.RawMessage        `json:"results"`
	Confidence      *float64               `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	ExecutionTimeMs int                    `json:"execution_time_ms" validate:"gte=0"`
	Status          model.PredictionStatus `json:"status" validate:"omitempty,oneof=success failed"`
	ErrorMessage    string                 `json:"error_message"`
}

// Create records a model run over a well log the caller owns.
func (h *PredictionHandler) Create(c echo.Context) error {
	var req predictionReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if len(req.Results) > 0 && !json.Valid(req.Results) {
		return respondError(c, badRequest("results must be valid JSON"))
	}
	if req.DepthFrom != nil && req.DepthTo != nil && *req.DepthFrom > *req.DepthTo {
		return respondError(c, badRequest("depth_from must not exceed depth_to"))
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Logs.GetByID(ctx, req.LogID)
	if err != nil {
		return respondError(c, err)
	}
	if _, err := authorizeOwner(c, l.OwnerID); err != nil {
		return respondError(c, err)
	}
	m, err := h.Models.GetByID(ctx, req.ModelID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !m.Active) {
		return respondError(c, badRequest("unknown or inactive model"))
	}
	if err != nil {
		return respondError(c, err)
	}

	p := &model.Prediction{
		LogID: l.ID, ModelID: m.ID, DepthFrom: req.DepthFrom, DepthTo: req.DepthTo,
		Results: req.Results, Confidence: req.Confidence, ExecutionTimeMs: req.ExecutionTimeMs,
		Status: req.Status, ErrorMessage: req.ErrorMessage,
	}
	if err := h.Predictions.Create(ctx, p); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListByLog returns the predictions made over a well log.
func (h *PredictionHandler) ListByLog(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Logs.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if _, err := authorizeOwner(c, l.OwnerID); err != nil {
		return respondError(c, err)
	}
	offset, limit := h.Paging.page(c)
	items, err := h.Predictions.ListByLog(ctx, l.ID, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []*model.Prediction{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *PredictionHandler) load(ctx context.Context, c echo.Context) (*model.Prediction, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.Predictions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeOwner(c, p.OwnerID); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns one prediction.
func (h *PredictionHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete removes a prediction.
func (h *PredictionHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Predictions.Delete(ctx, p.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
