package model

import (
	"encoding/json"
	"time"
)

// AIModel is catalog metadata for a prediction model (`ai_models` table).
// The catalog is readable by every authenticated user; only admins edit it.
type AIModel struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	Version    string          `json:"version"`
	Desc       string          `json:"description,omitempty"`
	ModelType  string          `json:"model_type"`
	Accuracy   *float64        `json:"accuracy,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	CreatorID  uint64          `json:"creator_id"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
}
