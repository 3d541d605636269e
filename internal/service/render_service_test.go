package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voxreel/api/internal/client"
	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/internal/store"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func renderTestSetup(t *testing.T, enqueuer TaskEnqueuer) (*store.Store, *ProjectService, *RenderService, *model.Project) {
	t.Helper()

	st := newTestStore(t)
	locks := NewProjectLocks()
	ft := &fakeTranscriber{segments: []client.TranscriptSegment{
		{Text: "Sunrise over mountains", Start: 0, End: 3},
		{Text: "Rivers flow quietly", Start: 3, End: 6},
	}}
	fs := &fakeFootageSearcher{results: map[string][]model.Footage{
		"sunrise over mountains": {{ID: "f1", Score: 0.9, URL: "https://v/f1.mp4"}},
		"rivers flow quietly":    {{ID: "f2", Score: 0.8, URL: "https://v/f2.mp4"}},
	}}
	projectSvc := NewProjectService(st, NewTranscriptService(ft), NewFootageService(fs, nil),
		NewMusicService(&fakeMusicSearcher{}), nil, t.TempDir(), locks)
	renderSvc := NewRenderService(st, enqueuer, locks, 30*time.Minute)

	project, err := projectSvc.CreateProject(context.Background(), "My video", "narration.mp3",
		strings.NewReader("fake audio"), "audio/mpeg")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	return st, projectSvc, renderSvc, project
}

func TestRequestRender_EnqueuesAndMovesProjectToRendering(t *testing.T) {
	enq := &fakeEnqueuer{}
	st, _, renderSvc, project := renderTestSetup(t, enq)
	ctx := context.Background()

	result, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{AddSubtitles: true})
	if err != nil {
		t.Fatalf("RequestRender failed: %v", err)
	}
	if result.Status != model.RenderStatusPending {
		t.Errorf("expected pending, got %s", result.Status)
	}
	if len(enq.tasks) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(enq.tasks))
	}
	if enq.tasks[0].Type() != TaskTypeRender {
		t.Errorf("unexpected task type %s", enq.tasks[0].Type())
	}

	got, err := st.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Status != model.ProjectStatusRendering {
		t.Errorf("expected rendering, got %s", got.Status)
	}
	if got.RenderTaskID == nil || *got.RenderTaskID != result.TaskID {
		t.Error("project should point at the in-flight task")
	}
}

func TestRequestRender_IncompleteSelectionCreatesNoTask(t *testing.T) {
	// The footage provider has nothing for the second sentence, so it ends up
	// with no default and no selection.
	st := newTestStore(t)
	locks := NewProjectLocks()
	ft := &fakeTranscriber{segments: []client.TranscriptSegment{
		{Text: "Sunrise over mountains", Start: 0, End: 3},
		{Text: "Rivers flow quietly", Start: 3, End: 6},
	}}
	fs := &fakeFootageSearcher{results: map[string][]model.Footage{
		"sunrise over mountains": {{ID: "f1", Score: 0.9, URL: "https://v/f1.mp4"}},
	}}
	projectSvc := NewProjectService(st, NewTranscriptService(ft), NewFootageService(fs, nil),
		NewMusicService(&fakeMusicSearcher{}), nil, t.TempDir(), locks)
	enq := &fakeEnqueuer{}
	renderSvc := NewRenderService(st, enq, locks, 30*time.Minute)
	ctx := context.Background()

	project, err := projectSvc.CreateProject(ctx, "My video", "narration.mp3",
		strings.NewReader("fake audio"), "audio/mpeg")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	missingID := project.Sentences[1].ID

	_, err = renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{})
	var incomplete *model.IncompleteFootageSelectionError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteFootageSelectionError, got %v", err)
	}
	if len(incomplete.SentenceIDs) != 1 || incomplete.SentenceIDs[0] != missingID {
		t.Errorf("error should name %s, got %v", missingID, incomplete.SentenceIDs)
	}
	if len(enq.tasks) != 0 {
		t.Error("no task should be enqueued for incomplete selection")
	}

	got, _ := st.GetProject(ctx, project.ID)
	if got.Status == model.ProjectStatusRendering {
		t.Error("project must not enter rendering on a rejected request")
	}
}

func TestRequestRender_SecondSubmissionRejected(t *testing.T) {
	enq := &fakeEnqueuer{}
	_, _, renderSvc, project := renderTestSetup(t, enq)
	ctx := context.Background()

	first, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{})
	if err != nil {
		t.Fatalf("first RequestRender failed: %v", err)
	}

	_, err = renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{})
	var inProgress *model.RenderInProgressError
	if !errors.As(err, &inProgress) {
		t.Fatalf("expected RenderInProgressError, got %v", err)
	}
	if inProgress.TaskID != first.TaskID {
		t.Errorf("error should name task %s, got %s", first.TaskID, inProgress.TaskID)
	}
	if len(enq.tasks) != 1 {
		t.Errorf("second submission must not enqueue, got %d tasks", len(enq.tasks))
	}

	// The original task keeps working: polling still sees it.
	status, err := renderSvc.GetStatus(ctx, first.TaskID)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Status != model.RenderStatusPending {
		t.Errorf("expected pending, got %s", status.Status)
	}
}

func TestRequestRender_AllowedAfterFailure(t *testing.T) {
	enq := &fakeEnqueuer{}
	_, _, renderSvc, project := renderTestSetup(t, enq)
	ctx := context.Background()

	first, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{})
	if err != nil {
		t.Fatalf("first RequestRender failed: %v", err)
	}
	if err := renderSvc.FailTask(ctx, first.TaskID, "ffmpeg exploded"); err != nil {
		t.Fatalf("FailTask failed: %v", err)
	}

	second, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{})
	if err != nil {
		t.Fatalf("retry after failure should be allowed: %v", err)
	}
	if second.TaskID == first.TaskID {
		t.Error("retry must create a new task")
	}
}

func TestRequestRender_EnqueueFailureFreesSlot(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("redis down")}
	st, _, renderSvc, project := renderTestSetup(t, enq)
	ctx := context.Background()

	if _, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{}); err == nil {
		t.Fatal("expected enqueue failure to surface")
	}

	got, _ := st.GetProject(ctx, project.ID)
	if got.Status == model.ProjectStatusRendering {
		t.Error("slot must be freed when the task never reached the queue")
	}

	// A later attempt with a healthy queue succeeds.
	enq.err = nil
	if _, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{}); err != nil {
		t.Fatalf("retry after enqueue failure should be allowed: %v", err)
	}
}

func TestBuildSpec(t *testing.T) {
	enq := &fakeEnqueuer{}
	_, _, renderSvc, project := renderTestSetup(t, enq)
	ctx := context.Background()

	musicURL := "https://m/calm.mp3"
	result, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{
		MusicURL:     &musicURL,
		AddSubtitles: true,
	})
	if err != nil {
		t.Fatalf("RequestRender failed: %v", err)
	}

	spec, err := renderSvc.BuildSpec(ctx, result.TaskID)
	if err != nil {
		t.Fatalf("BuildSpec failed: %v", err)
	}
	if spec.ProjectID != project.ID || spec.TaskID != result.TaskID {
		t.Error("spec identity mismatch")
	}
	if !spec.AddSubtitles {
		t.Error("subtitle flag lost")
	}
	if spec.MusicURL == nil || *spec.MusicURL != musicURL {
		t.Error("music url lost")
	}
	if len(spec.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(spec.Clips))
	}
	if spec.Clips[0].FootageURL != "https://v/f1.mp4" {
		t.Errorf("clip 0 has wrong footage: %s", spec.Clips[0].FootageURL)
	}
	if spec.Clips[0].Start != 0 || spec.Clips[0].End != 3 {
		t.Errorf("clip 0 window mismatch: [%.1f, %.1f]", spec.Clips[0].Start, spec.Clips[0].End)
	}
}

func TestForceFail_RespectsStaleThreshold(t *testing.T) {
	enq := &fakeEnqueuer{}
	_, _, renderSvc, project := renderTestSetup(t, enq)
	ctx := context.Background()

	result, err := renderSvc.RequestRender(ctx, project.ID, &model.RenderRequest{})
	if err != nil {
		t.Fatalf("RequestRender failed: %v", err)
	}

	if err := renderSvc.ForceFail(ctx, result.TaskID); !errors.Is(err, model.ErrTaskNotStale) {
		t.Fatalf("fresh task must be protected, got %v", err)
	}
}
