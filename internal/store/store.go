package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/voxreel/api/internal/model"
)

// Store is the single durable source of truth for projects, sentences, music
// recommendations and render tasks. Multi-entity state transitions happen in
// one transaction here so a crash can never leave, say, a rendered project
// without a video URL.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateProject persists a freshly transcribed project together with its
// sentences. Nothing is written if any insert fails.
func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sentences").Create(project).Error; err != nil {
			return fmt.Errorf("failed to insert project: %w", err)
		}
		if len(project.Sentences) > 0 {
			if err := tx.Create(&project.Sentences).Error; err != nil {
				return fmt.Errorf("failed to insert sentences: %w", err)
			}
		}
		return nil
	})
}

// GetProject loads a project with its sentences in chronological order.
func (s *Store) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	var project model.Project
	err := s.db.WithContext(ctx).
		Preload("Sentences", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&project, "id = ?", projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// GetSentence loads one sentence, scoped to its owning project.
func (s *Store) GetSentence(ctx context.Context, projectID, sentenceID string) (*model.Sentence, error) {
	var sentence model.Sentence
	err := s.db.WithContext(ctx).
		First(&sentence, "id = ? AND project_id = ?", sentenceID, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.UnknownSentenceError{ProjectID: projectID, SentenceIDs: []string{sentenceID}}
		}
		return nil, err
	}
	return &sentence, nil
}

// ListProjects returns summaries of all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]model.ProjectSummary, error) {
	var projects []model.Project
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		ProjectID string
		N         int
	}
	var counts []countRow
	if err := s.db.WithContext(ctx).Model(&model.Sentence{}).
		Select("project_id, count(*) as n").
		Group("project_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	byProject := make(map[string]int, len(counts))
	for _, c := range counts {
		byProject[c.ProjectID] = c.N
	}

	summaries := make([]model.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, model.ProjectSummary{
			ProjectID:     p.ID,
			Title:         p.Title,
			Status:        p.Status,
			TotalDuration: p.TotalDuration,
			SentenceCount: byProject[p.ID],
			VideoURL:      p.VideoURL,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}
	return summaries, nil
}

// UpdateProjectMeta updates mutable metadata. The audio reference is never
// touched here.
func (s *Store) UpdateProjectMeta(ctx context.Context, projectID string, req *model.UpdateProjectRequest) (*model.Project, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrProjectNotFound
			}
			return err
		}
		updates := map[string]interface{}{"updated_at": time.Now()}
		if req.Title != nil {
			updates["title"] = *req.Title
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		return tx.Model(&project).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, projectID)
}

// DeleteProject removes a project and cascades to its sentences, music
// recommendations and render tasks.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Project{}, "id = ?", projectID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrProjectNotFound
		}
		if err := tx.Delete(&model.Sentence{}, "project_id = ?", projectID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.MusicRecommendation{}, "project_id = ?", projectID).Error; err != nil {
			return err
		}
		return tx.Delete(&model.RenderTask{}, "project_id = ?", projectID).Error
	})
}

// ApplyFootageChoices merges a batch of overrides into the project's
// sentences and moves it to footage_selected. The whole batch is validated
// before any write: one unknown sentence id rejects everything. Sentences not
// named in the batch keep their current selection. Resubmission after a
// completed render clears the stale video URL; resubmission while a render is
// in flight is rejected.
func (s *Store) ApplyFootageChoices(ctx context.Context, projectID string, choices []model.FootageChoice) (*model.Project, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrProjectNotFound
			}
			return err
		}
		if project.Status == model.ProjectStatusRendering {
			taskID := ""
			if project.RenderTaskID != nil {
				taskID = *project.RenderTaskID
			}
			return &model.RenderInProgressError{ProjectID: projectID, TaskID: taskID}
		}

		var sentences []model.Sentence
		if err := tx.Where("project_id = ?", projectID).Find(&sentences).Error; err != nil {
			return err
		}
		known := make(map[string]*model.Sentence, len(sentences))
		for i := range sentences {
			known[sentences[i].ID] = &sentences[i]
		}

		var unknown []string
		for _, c := range choices {
			if _, ok := known[c.SentenceID]; !ok {
				unknown = append(unknown, c.SentenceID)
			}
		}
		if len(unknown) > 0 {
			return &model.UnknownSentenceError{ProjectID: projectID, SentenceIDs: unknown}
		}

		for _, c := range choices {
			sentence := known[c.SentenceID]
			selected := &model.Footage{
				ID:       "footage-" + c.SentenceID + "-selected",
				Title:    "User-selected footage",
				Tags:     []string{"user-selected"},
				Duration: sentence.Duration(),
				Score:    1.0,
				URL:      c.FootageURL,
			}
			if err := tx.Model(&model.Sentence{}).
				Where("id = ?", c.SentenceID).
				Update("selected_footage", selected).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":     model.ProjectStatusFootageSelected,
			"updated_at": time.Now(),
		}
		if project.Status == model.ProjectStatusRendered {
			// Edits invalidate the previous output.
			updates["video_url"] = nil
			updates["render_task_id"] = nil
		}
		return tx.Model(&project).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, projectID)
}

// ReplaceMusic swaps the project's recommendation set atomically.
func (s *Store) ReplaceMusic(ctx context.Context, projectID string, tracks []model.MusicRecommendation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.MusicRecommendation{}, "project_id = ?", projectID).Error; err != nil {
			return err
		}
		if len(tracks) == 0 {
			return nil
		}
		return tx.Create(&tracks).Error
	})
}

// GetMusic returns the project's recommendations in rank order.
func (s *Store) GetMusic(ctx context.Context, projectID string) ([]model.MusicRecommendation, error) {
	var tracks []model.MusicRecommendation
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("`rank` ASC").
		Find(&tracks).Error
	return tracks, err
}

// CreateRenderTask inserts a pending task and moves the project to rendering
// in one transaction. The at-most-one-in-flight invariant is enforced here,
// against persisted state, never against client-declared status.
func (s *Store) CreateRenderTask(ctx context.Context, task *model.RenderTask) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.First(&project, "id = ?", task.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrProjectNotFound
			}
			return err
		}

		var inflight model.RenderTask
		err := tx.Where("project_id = ? AND status IN ?",
			task.ProjectID,
			[]model.RenderStatus{model.RenderStatusPending, model.RenderStatusProcessing}).
			First(&inflight).Error
		if err == nil {
			return &model.RenderInProgressError{ProjectID: task.ProjectID, TaskID: inflight.ID}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return tx.Model(&project).Updates(map[string]interface{}{
			"status":         model.ProjectStatusRendering,
			"render_task_id": task.ID,
			"video_url":      nil,
			"updated_at":     time.Now(),
		}).Error
	})
}

// GetRenderTask loads one task by id.
func (s *Store) GetRenderTask(ctx context.Context, taskID string) (*model.RenderTask, error) {
	var task model.RenderTask
	err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// ListRenderTasks returns every render task retained for a project, newest
// first. Terminal tasks are kept for audit, so the history can span many
// attempts.
func (s *Store) ListRenderTasks(ctx context.Context, projectID string) ([]model.RenderTask, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ?", projectID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrProjectNotFound
	}

	var tasks []model.RenderTask
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// MarkTaskProcessing transitions pending → processing when the worker picks
// the task up. A task already past pending (force-failed while queued,
// completed, failed) returns ErrTaskTerminal so the worker skips it instead
// of rendering a dead task.
func (s *Store) MarkTaskProcessing(ctx context.Context, taskID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.Status != model.RenderStatusPending {
			return model.ErrTaskTerminal
		}
		return tx.Model(task).Updates(map[string]interface{}{
			"status":     model.RenderStatusProcessing,
			"progress":   0,
			"updated_at": time.Now(),
		}).Error
	})
}

// UpdateTaskProgress records worker progress on an in-flight task.
func (s *Store) UpdateTaskProgress(ctx context.Context, taskID string, progress int) error {
	return s.db.WithContext(ctx).Model(&model.RenderTask{}).
		Where("id = ? AND status = ?", taskID, model.RenderStatusProcessing).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now(),
		}).Error
}

// CompleteRenderTask records the terminal success state. Task output and
// project video URL change together: a project is rendered iff it has a
// video URL.
func (s *Store) CompleteRenderTask(ctx context.Context, taskID, outputURL string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.Terminal() {
			return model.ErrTaskTerminal
		}
		if err := tx.Model(task).Updates(map[string]interface{}{
			"status":     model.RenderStatusComplete,
			"progress":   100,
			"output_url": outputURL,
			"error":      nil,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Project{}).
			Where("id = ?", task.ProjectID).
			Updates(map[string]interface{}{
				"status":     model.ProjectStatusRendered,
				"video_url":  outputURL,
				"updated_at": time.Now(),
			}).Error
	})
}

// FailRenderTask records the terminal failure state and leaves the project
// inspectable and re-renderable.
func (s *Store) FailRenderTask(ctx context.Context, taskID, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.Terminal() {
			return model.ErrTaskTerminal
		}
		if err := tx.Model(task).Updates(map[string]interface{}{
			"status":     model.RenderStatusFailed,
			"error":      reason,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Project{}).
			Where("id = ?", task.ProjectID).
			Updates(map[string]interface{}{
				"status":     model.ProjectStatusFailed,
				"video_url":  nil,
				"updated_at": time.Now(),
			}).Error
	})
}

// ForceFailStale is the operational escape hatch for a stuck render: it fails
// an in-flight task, but only one older than the given threshold, so the
// render slot frees up without racing a healthy worker.
func (s *Store) ForceFailStale(ctx context.Context, taskID string, olderThan time.Duration) error {
	task, err := s.GetRenderTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Terminal() {
		return model.ErrTaskTerminal
	}
	if time.Since(task.CreatedAt) < olderThan {
		return model.ErrTaskNotStale
	}
	return s.FailRenderTask(ctx, taskID, "force-failed by operator: task exceeded stale threshold")
}

func lockTask(tx *gorm.DB, taskID string) (*model.RenderTask, error) {
	var task model.RenderTask
	if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}
