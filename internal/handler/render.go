package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/internal/service"
	"github.com/voxreel/api/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/projects/:projectId/render
func (h *RenderHandler) Start(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	var req model.RenderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	result, err := h.service.RequestRender(c.Context(), projectID, &req)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// ListTasks handles GET /api/projects/:projectId/render/tasks
func (h *RenderHandler) ListTasks(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	result, err := h.service.ListTasks(c.Context(), projectID)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Status handles GET /api/render/status/:taskId
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), taskID)
	if err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// ForceFail handles POST /api/admin/render/:taskId/force-fail
func (h *RenderHandler) ForceFail(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	if err := h.service.ForceFail(c.Context(), taskID); err != nil {
		if resp, ok := domainError(c, err); ok {
			return resp
		}
		return response.ServiceError(c, err.Error())
	}

	result, err := h.service.GetStatus(c.Context(), taskID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}
