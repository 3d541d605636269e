package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voxreel/api/internal/client"
	"github.com/voxreel/api/internal/handler"
	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/internal/service"
	"github.com/voxreel/api/internal/store"
)

// testApp holds all components needed for handler tests
type testApp struct {
	app      *fiber.App
	store    *store.Store
	enqueuer *captureEnqueuer
	renderer *service.RenderService
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader, contentType string) ([]client.TranscriptSegment, error) {
	return []client.TranscriptSegment{
		{Text: "Morning light spreads across the valley", Start: 0, End: 4},
		{Text: "Birds gather near the river", Start: 4, End: 7.5},
	}, nil
}

type stubFootageSearcher struct{}

func (stubFootageSearcher) Search(ctx context.Context, query string) ([]model.Footage, error) {
	return []model.Footage{
		{ID: "stub-1", Title: "Stub footage", Score: 1.0, Duration: 10, URL: "https://videos.example.com/stub-1.mp4"},
		{ID: "stub-2", Title: "Alternate", Score: 0.5, Duration: 8, URL: "https://videos.example.com/stub-2.mp4"},
	}, nil
}

type stubMusicSearcher struct{}

func (stubMusicSearcher) SearchTracks(ctx context.Context, query string) ([]model.MusicRecommendation, error) {
	return []model.MusicRecommendation{
		{Title: "Stub Theme", Artist: "Test Orchestra", URL: "https://music.example.com/theme.mp3", Duration: 120},
	}, nil
}

type emptyFootageSearcher struct{}

func (emptyFootageSearcher) Search(ctx context.Context, query string) ([]model.Footage, error) {
	return nil, nil
}

// setupApp creates a Fiber app wired like main.go but with stub providers, an
// in-process queue capture, and a throwaway sqlite database.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWith(t, stubFootageSearcher{})
}

// setupAppNoFootage is setupApp with a footage provider that never finds
// candidates, leaving sentences without selections.
func setupAppNoFootage(t *testing.T) *testApp {
	t.Helper()
	return setupAppWith(t, emptyFootageSearcher{})
}

func setupAppWith(t *testing.T, searcher service.FootageSearcher) *testApp {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "e2e.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	st := store.New(db)

	validate := validator.New()
	locks := service.NewProjectLocks()
	enq := &captureEnqueuer{}

	projectService := service.NewProjectService(
		st,
		service.NewTranscriptService(stubTranscriber{}),
		service.NewFootageService(searcher, nil),
		service.NewMusicService(stubMusicSearcher{}),
		nil,
		t.TempDir(),
		locks,
	)
	renderService := service.NewRenderService(st, enq, locks, 30*time.Minute)

	projectHandler := handler.NewProjectHandler(projectService, validate)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	api := app.Group("/api")
	projects := api.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Get("/", projectHandler.List)
	projects.Get("/:projectId", projectHandler.Get)
	projects.Patch("/:projectId", projectHandler.Update)
	projects.Delete("/:projectId", projectHandler.Delete)
	projects.Post("/:projectId/footage", projectHandler.SubmitFootage)
	projects.Get("/:projectId/music", projectHandler.Music)
	projects.Get("/:projectId/sentences/:sentenceId/footage", projectHandler.FootageCandidates)
	projects.Post("/:projectId/render", renderHandler.Start)
	projects.Get("/:projectId/render/tasks", renderHandler.ListTasks)

	renderRoutes := api.Group("/render")
	renderRoutes.Get("/status/:taskId", renderHandler.Status)

	admin := api.Group("/admin")
	admin.Post("/render/:taskId/force-fail", renderHandler.ForceFail)

	return &testApp{app: app, store: st, enqueuer: enq, renderer: renderService}
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return app.Test(req, -1)
}

// doUpload performs a multipart project-creation request.
func doUpload(t *testing.T, app *fiber.App, title, filename, contentType string) (*http.Response, error) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("title", title); err != nil {
		t.Fatalf("failed to write title field: %v", err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create file part: %v", err)
	}
	if _, err := part.Write([]byte("fake audio bytes")); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "/api/projects/", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return app.Test(req, -1)
}

// createProject uploads a project and returns its parsed response.
func createProject(t *testing.T, ta *testApp) map[string]interface{} {
	t.Helper()
	resp, err := doUpload(t, ta.app, "Test project", "narration.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	return parseJSON(t, resp)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
