package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/internal/render"
	"github.com/voxreel/api/internal/service"
	"github.com/voxreel/api/internal/websocket"
)

// RenderWorker processes render tasks from the queue. Failures are recorded
// on the durable task instead of retried: a retry is a new submission.
type RenderWorker struct {
	renderService *service.RenderService
	executor      render.Executor
	hub           *websocket.Hub
}

// NewRenderWorker creates a new render worker
func NewRenderWorker(renderService *service.RenderService, executor render.Executor, hub *websocket.Hub) *RenderWorker {
	return &RenderWorker{
		renderService: renderService,
		executor:      executor,
		hub:           hub,
	}
}

// ProcessTask handles one render task end to end
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.RenderTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal render payload: %w", err)
	}

	taskID := payload.TaskID
	log.Printf("Starting render task: %s", taskID)

	if err := w.renderService.MarkProcessing(ctx, taskID); err != nil {
		// A force-failed or otherwise terminal task must not render.
		log.Printf("Render task %s not in a runnable state: %v", taskID, err)
		return nil
	}
	w.hub.BroadcastProgress(taskID, 0, model.RenderStatusProcessing)

	spec, err := w.renderService.BuildSpec(ctx, taskID)
	if err != nil {
		w.failTask(ctx, taskID, "Failed to resolve render inputs: "+err.Error())
		return nil
	}

	outputURL, err := w.executor.Render(ctx, spec, func(progress int) {
		if err := w.renderService.UpdateProgress(ctx, taskID, progress); err != nil {
			log.Printf("Failed to update progress for task %s: %v", taskID, err)
		}
		w.hub.BroadcastProgress(taskID, progress, model.RenderStatusProcessing)
	})
	if err != nil {
		w.failTask(ctx, taskID, err.Error())
		return nil
	}

	if err := w.renderService.CompleteTask(ctx, taskID, outputURL); err != nil {
		w.failTask(ctx, taskID, "Failed to record render result")
		return nil
	}

	w.hub.BroadcastComplete(taskID, outputURL)
	log.Printf("Render task %s completed: %s", taskID, outputURL)
	return nil
}

func (w *RenderWorker) failTask(ctx context.Context, taskID, errMsg string) {
	if err := w.renderService.FailTask(ctx, taskID, errMsg); err != nil {
		log.Printf("Failed to mark task %s as failed: %v", taskID, err)
	}
	w.hub.BroadcastError(taskID, "RENDER_FAILED", errMsg)
}
