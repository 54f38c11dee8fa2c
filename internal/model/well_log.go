package model

import "time"

// LogStatus is the processing state of an uploaded well log.
type LogStatus string

const (
	LogProcessing LogStatus = "processing"
	LogCompleted  LogStatus = "completed"
	LogFailed     LogStatus = "failed"
)

// WellLog describes a well log file attached to a project (`well_logs` table).
// OwnerID is not a column; repositories fill it from the parent project so the
// ownership gate can be applied without another query.
type WellLog struct {
	ID           uint64    `json:"id"`
	ProjectID    uint64    `json:"project_id"`
	OwnerID      uint64    `json:"-"`
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"file_size"`
	DepthFrom    *float64  `json:"depth_from,omitempty"`
	DepthTo      *float64  `json:"depth_to,omitempty"`
	SampleCount  int       `json:"sample_count"`
	Curves       []string  `json:"curves"`
	UploadUserID uint64    `json:"upload_user_id"`
	Status       LogStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
