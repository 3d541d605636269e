package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Project status
type ProjectStatus string

const (
	ProjectStatusCreated         ProjectStatus = "created"
	ProjectStatusFootageSelected ProjectStatus = "footage_selected"
	ProjectStatusRendering       ProjectStatus = "rendering"
	ProjectStatusRendered        ProjectStatus = "rendered"
	ProjectStatusFailed          ProjectStatus = "failed"
)

// Project is the root entity of the video creation pipeline. AudioFilePath is
// immutable once set; VideoURL is non-nil only while Status is rendered.
type Project struct {
	ID            string        `gorm:"primaryKey;type:varchar(64)" json:"projectId"`
	Title         string        `gorm:"type:varchar(200)" json:"title"`
	Description   string        `json:"description,omitempty"`
	AudioFilePath string        `json:"audioFilePath"`
	TotalDuration float64       `json:"totalDuration"`
	Status        ProjectStatus `gorm:"type:varchar(32);index" json:"status"`
	RenderTaskID  *string       `gorm:"type:varchar(64)" json:"renderTaskId,omitempty"`
	VideoURL      *string       `json:"videoUrl,omitempty"`
	Sentences     []Sentence    `gorm:"foreignKey:ProjectID" json:"sentences,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

// NewProjectID returns a prefixed unique project id.
func NewProjectID() string {
	return "proj-" + uuid.New().String()
}

// Footage is the canonical footage schema. Provider-specific field variance
// (Pexels video_files, camel/snake duration keys) is resolved in
// internal/client and never leaks past it.
type Footage struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Tags      []string `json:"tags,omitempty"`
	Duration  float64  `json:"duration"`
	Score     float64  `json:"score"` // relevance in [0,1], descending rank order
	URL       string   `json:"url"`
}

func (f Footage) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *Footage) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return errors.New(fmt.Sprint("unsupported footage column type: ", value))
	}
}

// Sentence is one time-bounded unit of narration. IDs are deterministic per
// project (sent-<project>-<seq>) so overrides key off a stable reference even
// if text is edited later. DefaultFootage is the auto-assigned top candidate
// and may be nil when the search returned nothing; SelectedFootage is what the
// render consumes.
type Sentence struct {
	ID              string   `gorm:"primaryKey;type:varchar(128)" json:"sentenceId"`
	ProjectID       string   `gorm:"index;type:varchar(64)" json:"projectId"`
	Seq             int      `gorm:"index" json:"seq"`
	Text            string   `json:"text"`
	StartTime       float64  `json:"startTime"`
	EndTime         float64  `json:"endTime"`
	DefaultFootage  *Footage `gorm:"type:json" json:"defaultFootage,omitempty"`
	SelectedFootage *Footage `gorm:"type:json" json:"selectedFootage,omitempty"`
}

func (Sentence) TableName() string { return "sentences" }

// SentenceID builds the deterministic id for the seq-th sentence of a project.
func SentenceID(projectID string, seq int) string {
	return fmt.Sprintf("sent-%s-%d", projectID, seq)
}

// Duration returns the narration window length in seconds.
func (s *Sentence) Duration() float64 {
	d := s.EndTime - s.StartTime
	if d < 0 {
		return 0
	}
	return d
}

// HasFootage reports whether the sentence has a usable selection for render.
func (s *Sentence) HasFootage() bool {
	return s.SelectedFootage != nil && s.SelectedFootage.URL != ""
}
