package model

import "time"

// FootageChoice is one client override: point a sentence at a footage URL.
type FootageChoice struct {
	SentenceID string `json:"sentenceId" validate:"required"`
	FootageURL string `json:"footageUrl" validate:"required,url"`
}

// FootageChoicesRequest is the body of POST /api/projects/:projectId/footage.
// An empty batch is valid and means "accept all defaults".
type FootageChoicesRequest struct {
	Choices []FootageChoice `json:"choices" validate:"omitempty,dive"`
}

// MusicResponse returns the ranked recommendations attached to the project.
type MusicResponse struct {
	ProjectID string                `json:"projectId"`
	Tracks    []MusicRecommendation `json:"tracks"`
}

// RenderRequest is the body of POST /api/projects/:projectId/render.
type RenderRequest struct {
	MusicURL     *string `json:"musicUrl" validate:"omitempty,url"`
	AddSubtitles bool    `json:"addSubtitles"`
}

// RenderStartResponse acknowledges an accepted render submission.
type RenderStartResponse struct {
	TaskID    string       `json:"taskId"`
	ProjectID string       `json:"projectId"`
	Status    RenderStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// RenderStatusResponse is the pollable task snapshot.
type RenderStatusResponse struct {
	TaskID    string       `json:"taskId"`
	ProjectID string       `json:"projectId"`
	Status    RenderStatus `json:"status"`
	Progress  int          `json:"progress"`
	OutputURL *string      `json:"outputUrl,omitempty"`
	Error     *string      `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// RenderTaskListResponse is a project's render history, newest first.
// Terminal tasks are retained for audit, so past attempts show up here.
type RenderTaskListResponse struct {
	ProjectID string                 `json:"projectId"`
	Tasks     []RenderStatusResponse `json:"tasks"`
}

// UpdateProjectRequest updates mutable project metadata. The audio reference
// is immutable and deliberately absent here.
type UpdateProjectRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// ProjectSummary is the list-view shape of a project.
type ProjectSummary struct {
	ProjectID     string        `json:"projectId"`
	Title         string        `json:"title"`
	Status        ProjectStatus `json:"status"`
	TotalDuration float64       `json:"totalDuration"`
	SentenceCount int           `json:"sentenceCount"`
	VideoURL      *string       `json:"videoUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// FootageCandidatesResponse lists ranked candidates for one sentence.
type FootageCandidatesResponse struct {
	SentenceID string    `json:"sentenceId"`
	Candidates []Footage `json:"candidates"`
}
