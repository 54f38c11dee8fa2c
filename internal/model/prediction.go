package model

import (
	"encoding/json"
	"time"
)

// PredictionStatus is the outcome of a model run over a well log.
type PredictionStatus string

const (
	PredictionSuccess PredictionStatus = "success"
	PredictionFailed  PredictionStatus = "failed"
)

// Prediction is a row of the `predictions` table. OwnerID is resolved through
// well_logs -> projects.
type Prediction struct {
	ID              uint64           `json:"id"`
	LogID           uint64           `json:"log_id"`
	ModelID         uint64           `json:"model_id"`
	OwnerID         uint64           `json:"-"`
	DepthFrom       *float64         `json:"depth_from,omitempty"`
	DepthTo         *float64         `json:"depth_to,omitempty"`
	Results         json.RawMessage  `json:"results,omitempty"`
	Confidence      *float64         `json:"confidence,omitempty"`
	ExecutionTimeMs int              `json:"execution_time_ms"`
	Status          PredictionStatus `json:"status"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
