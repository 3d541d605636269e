package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/internal/render"
	"github.com/voxreel/api/internal/store"
)

const TaskTypeRender = "render:process"

// RenderTaskPayload is the asynq payload; the durable task row in the store
// is authoritative, the queue message only points at it.
type RenderTaskPayload struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
}

// TaskEnqueuer is the slice of asynq.Client the coordinator needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RenderService coordinates the render task lifecycle: submission to the
// background executor, status polling, and reconciliation of terminal worker
// results back into the project.
type RenderService struct {
	store      *store.Store
	enqueuer   TaskEnqueuer
	locks      *ProjectLocks
	staleAfter time.Duration
}

func NewRenderService(st *store.Store, enqueuer TaskEnqueuer, locks *ProjectLocks, staleAfter time.Duration) *RenderService {
	return &RenderService{
		store:      st,
		enqueuer:   enqueuer,
		locks:      locks,
		staleAfter: staleAfter,
	}
}

// RequestRender validates footage completeness against persisted state,
// creates the single allowed in-flight task, and enqueues the background
// render. Returns immediately; completion is observed via polling.
func (s *RenderService) RequestRender(ctx context.Context, projectID string, req *model.RenderRequest) (*model.RenderStartResponse, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for i := range project.Sentences {
		if !project.Sentences[i].HasFootage() {
			missing = append(missing, project.Sentences[i].ID)
		}
	}
	if len(project.Sentences) == 0 || len(missing) > 0 {
		return nil, &model.IncompleteFootageSelectionError{SentenceIDs: missing}
	}

	task := &model.RenderTask{
		ID:           model.NewRenderTaskID(),
		ProjectID:    projectID,
		Status:       model.RenderStatusPending,
		AddSubtitles: req.AddSubtitles,
		MusicURL:     req.MusicURL,
	}
	if err := s.store.CreateRenderTask(ctx, task); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(RenderTaskPayload{TaskID: task.ID, ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	_, err = s.enqueuer.Enqueue(asynq.NewTask(TaskTypeRender, payload),
		asynq.Queue("render"),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		// The task never reached the queue; record the failure so the
		// project's render slot frees up instead of wedging.
		if failErr := s.store.FailRenderTask(ctx, task.ID, "failed to enqueue render: "+err.Error()); failErr != nil {
			return nil, failErr
		}
		return nil, fmt.Errorf("failed to enqueue render task: %w", err)
	}

	fresh, err := s.store.GetRenderTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return &model.RenderStartResponse{
		TaskID:    fresh.ID,
		ProjectID: fresh.ProjectID,
		Status:    fresh.Status,
		CreatedAt: fresh.CreatedAt,
	}, nil
}

// GetStatus is the idempotent poll target.
func (s *RenderService) GetStatus(ctx context.Context, taskID string) (*model.RenderStatusResponse, error) {
	task, err := s.store.GetRenderTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &model.RenderStatusResponse{
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		Status:    task.Status,
		Progress:  task.Progress,
		OutputURL: task.OutputURL,
		Error:     task.Error,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}, nil
}

// ListTasks returns the project's full render history, newest first.
func (s *RenderService) ListTasks(ctx context.Context, projectID string) (*model.RenderTaskListResponse, error) {
	tasks, err := s.store.ListRenderTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]model.RenderStatusResponse, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		out = append(out, model.RenderStatusResponse{
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			Status:    task.Status,
			Progress:  task.Progress,
			OutputURL: task.OutputURL,
			Error:     task.Error,
			CreatedAt: task.CreatedAt,
			UpdatedAt: task.UpdatedAt,
		})
	}
	return &model.RenderTaskListResponse{ProjectID: projectID, Tasks: out}, nil
}

// BuildSpec resolves everything the executor needs for one task: audio
// reference, per-sentence footage URL and time window, optional music, and
// the subtitle flag. Called by the worker at processing time.
func (s *RenderService) BuildSpec(ctx context.Context, taskID string) (*render.Spec, error) {
	task, err := s.store.GetRenderTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}

	clips := make([]render.Clip, 0, len(project.Sentences))
	for i := range project.Sentences {
		sentence := &project.Sentences[i]
		if !sentence.HasFootage() {
			return nil, &model.IncompleteFootageSelectionError{SentenceIDs: []string{sentence.ID}}
		}
		clips = append(clips, render.Clip{
			SentenceID: sentence.ID,
			Text:       sentence.Text,
			Start:      sentence.StartTime,
			End:        sentence.EndTime,
			FootageURL: sentence.SelectedFootage.URL,
		})
	}

	return &render.Spec{
		TaskID:       task.ID,
		ProjectID:    project.ID,
		AudioRef:     project.AudioFilePath,
		MusicURL:     task.MusicURL,
		AddSubtitles: task.AddSubtitles,
		Clips:        clips,
	}, nil
}

// MarkProcessing records that a worker picked the task up.
func (s *RenderService) MarkProcessing(ctx context.Context, taskID string) error {
	return s.store.MarkTaskProcessing(ctx, taskID)
}

// UpdateProgress records worker progress for pollers.
func (s *RenderService) UpdateProgress(ctx context.Context, taskID string, progress int) error {
	return s.store.UpdateTaskProgress(ctx, taskID, progress)
}

// CompleteTask reconciles a successful render: terminal task state and the
// project's rendered status plus video URL change in one logical update.
func (s *RenderService) CompleteTask(ctx context.Context, taskID, outputURL string) error {
	task, err := s.store.GetRenderTask(ctx, taskID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(task.ProjectID)
	defer unlock()
	return s.store.CompleteRenderTask(ctx, taskID, outputURL)
}

// FailTask reconciles a failed render; the project stays re-renderable.
func (s *RenderService) FailTask(ctx context.Context, taskID, reason string) error {
	task, err := s.store.GetRenderTask(ctx, taskID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(task.ProjectID)
	defer unlock()
	return s.store.FailRenderTask(ctx, taskID, reason)
}

// ForceFail is the operator escape hatch for a wedged render slot; it only
// applies past the stale threshold.
func (s *RenderService) ForceFail(ctx context.Context, taskID string) error {
	task, err := s.store.GetRenderTask(ctx, taskID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(task.ProjectID)
	defer unlock()
	return s.store.ForceFailStale(ctx, taskID, s.staleAfter)
}
