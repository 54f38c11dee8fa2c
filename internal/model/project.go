package model

import "time"

// ProjectStatus tracks where a drilling project is in its lifecycle.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectOngoing   ProjectStatus = "ongoing"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectOngoing, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// Project is a row of the `projects` table. OwnerID is the anchor of every
// ownership decision: well logs and predictions inherit it.
type Project struct {
	ID           uint64        `json:"id"`
	OwnerID      uint64        `json:"owner_id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Location     string        `json:"location,omitempty"`
	DepthFrom    *float64      `json:"depth_from,omitempty"`
	DepthTo      *float64      `json:"depth_to,omitempty"`
	WellDiameter *float64      `json:"well_diameter,omitempty"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
