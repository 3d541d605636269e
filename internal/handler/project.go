package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/internal/service"
	"github.com/voxreel/api/pkg/response"
)

const maxUploadSize = 50 * 1024 * 1024 // 50MB

// Audio content types accepted at the upload boundary. The transcript
// segmenter re-checks; this gate just fails fast before buffering the file.
var validAudioTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
	"audio/aac":   true,
	"audio/x-aac": true,
	"audio/ogg":   true,
	"audio/webm":  true,
}

type ProjectHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

func NewProjectHandler(svc *service.ProjectService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	title := c.FormValue("title")
	if title == "" {
		return response.ValidationError(c, "title is required", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "Audio file is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !validAudioTypes[contentType] {
		return response.Error(c, fiber.StatusUnsupportedMediaType,
			response.CodeUnsupportedAudio,
			"Invalid file type. Supported: WAV, MP3, M4A, AAC, OGG, WebM",
			map[string]interface{}{"contentType": contentType})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	project, err := h.service.CreateProject(c.Context(), title, file.Filename, f, contentType)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, project)
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	projects, err := h.service.ListProjects(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"projects": projects})
}

// Get handles GET /api/projects/:projectId
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	project, err := h.service.GetProject(c.Context(), projectID)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, project)
}

// Update handles PATCH /api/projects/:projectId
func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	var req model.UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	project, err := h.service.UpdateProject(c.Context(), projectID, &req)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, project)
}

// Delete handles DELETE /api/projects/:projectId
func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	if err := h.service.DeleteProject(c.Context(), projectID); err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}
	return response.NoContent(c)
}

// SubmitFootage handles POST /api/projects/:projectId/footage
func (h *ProjectHandler) SubmitFootage(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	var req model.FootageChoicesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	tracks, err := h.service.SubmitFootageChoices(c.Context(), projectID, req.Choices)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.MusicResponse{
		ProjectID: projectID,
		Tracks:    tracks,
	})
}

// Music handles GET /api/projects/:projectId/music
func (h *ProjectHandler) Music(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	tracks, err := h.service.MusicRecommendations(c.Context(), projectID)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.MusicResponse{
		ProjectID: projectID,
		Tracks:    tracks,
	})
}

// FootageCandidates handles GET /api/projects/:projectId/sentences/:sentenceId/footage
func (h *ProjectHandler) FootageCandidates(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	sentenceID := c.Params("sentenceId")
	if projectID == "" || sentenceID == "" {
		return response.ValidationError(c, "Project ID and sentence ID are required", nil)
	}

	candidates, err := h.service.SentenceCandidates(c.Context(), projectID, sentenceID)
	if err != nil {
		var unknown *model.UnknownSentenceError
		if errors.As(err, &unknown) {
			return response.NotFound(c, "Sentence not found")
		}
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.FootageCandidatesResponse{
		SentenceID: sentenceID,
		Candidates: candidates,
	})
}
