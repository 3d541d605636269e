package model

import (
	"time"

	"github.com/google/uuid"
)

// Render task status
type RenderStatus string

const (
	RenderStatusPending    RenderStatus = "pending"
	RenderStatusProcessing RenderStatus = "processing"
	RenderStatusComplete   RenderStatus = "complete"
	RenderStatusFailed     RenderStatus = "failed"
)

// RenderTask is one asynchronous render of a project. complete and failed are
// terminal; a retry creates a fresh task and the old one is kept for audit.
type RenderTask struct {
	ID           string       `gorm:"primaryKey;type:varchar(64)" json:"taskId"`
	ProjectID    string       `gorm:"index;type:varchar(64)" json:"projectId"`
	Status       RenderStatus `gorm:"type:varchar(16);index" json:"status"`
	Progress     int          `json:"progress"`
	OutputURL    *string      `json:"outputUrl,omitempty"`
	Error        *string      `json:"error,omitempty"`
	AddSubtitles bool         `json:"addSubtitles"`
	MusicURL     *string      `json:"musicUrl,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (RenderTask) TableName() string { return "render_tasks" }

// NewRenderTaskID returns a prefixed unique task id.
func NewRenderTaskID() string {
	return "task-" + uuid.New().String()
}

// InFlight reports whether the task still occupies the project's render slot.
func (t *RenderTask) InFlight() bool {
	return t.Status == RenderStatusPending || t.Status == RenderStatusProcessing
}

// Terminal reports whether the task reached a final state.
func (t *RenderTask) Terminal() bool {
	return t.Status == RenderStatusComplete || t.Status == RenderStatusFailed
}
