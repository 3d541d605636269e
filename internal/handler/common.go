package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/pkg/response"
)

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errs := make(map[string]string)
		for _, e := range validationErrors {
			errs[e.Field()] = e.Tag()
		}
		return errs
	}
	return nil
}

// domainError maps store/service errors to response codes. Returns false when
// the error is not a known domain error so callers can fall through to a
// generic service error.
func domainError(c *fiber.Ctx, err error) (error, bool) {
	var (
		transcription *model.TranscriptionFailedError
		unknown       *model.UnknownSentenceError
		incomplete    *model.IncompleteFootageSelectionError
		inProgress    *model.RenderInProgressError
	)

	switch {
	case errors.Is(err, model.ErrProjectNotFound):
		return response.NotFound(c, "Project not found"), true
	case errors.Is(err, model.ErrTaskNotFound):
		return response.NotFound(c, "Render task not found"), true
	case errors.Is(err, model.ErrUnsupportedAudioFormat):
		return response.Error(c, fiber.StatusUnsupportedMediaType,
			response.CodeUnsupportedAudio, "Unsupported audio format", nil), true
	case errors.Is(err, model.ErrTaskNotStale):
		return response.Conflict(c, response.CodeTaskNotStale,
			"Render task has not exceeded the stale threshold", nil), true
	case errors.Is(err, model.ErrTaskTerminal):
		return response.Conflict(c, response.CodeTaskTerminal,
			"Render task is already in a terminal state", nil), true
	case errors.As(err, &transcription):
		return response.ProviderError(c, response.CodeTranscriptionFailed, transcription.Error()), true
	case errors.As(err, &unknown):
		return response.ValidationError(c, "Unknown sentence ids", map[string]interface{}{
			"sentenceIds": unknown.SentenceIDs,
		}), true
	case errors.As(err, &incomplete):
		return response.Conflict(c, response.CodeIncompleteSelection,
			"Some sentences have no selected footage", map[string]interface{}{
				"sentenceIds": incomplete.SentenceIDs,
			}), true
	case errors.As(err, &inProgress):
		return response.Conflict(c, response.CodeRenderInProgress,
			"A render is already in progress for this project", map[string]interface{}{
				"taskId": inProgress.TaskID,
			}), true
	}
	return nil, false
}
