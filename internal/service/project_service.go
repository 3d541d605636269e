package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/voxreel/api/internal/client"
	"github.com/voxreel/api/internal/model"
	"github.com/voxreel/api/internal/store"
)

// ProjectService is the orchestrator of the project state machine
// (created → footage_selected → rendering → rendered|failed). It is the only
// component that moves a project between states; everything else goes through
// it. All transitions for one project are serialized by ProjectLocks.
type ProjectService struct {
	store       *store.Store
	transcripts *TranscriptService
	footage     *FootageService
	music       *MusicService
	storage     client.StorageClient // nil → local disk
	uploadDir   string
	locks       *ProjectLocks
}

func NewProjectService(
	st *store.Store,
	transcripts *TranscriptService,
	footage *FootageService,
	music *MusicService,
	storage client.StorageClient,
	uploadDir string,
	locks *ProjectLocks,
) *ProjectService {
	return &ProjectService{
		store:       st,
		transcripts: transcripts,
		footage:     footage,
		music:       music,
		storage:     storage,
		uploadDir:   uploadDir,
		locks:       locks,
	}
}

// CreateProject runs the synchronous head of the pipeline: store the audio,
// transcribe it into sentences, pre-populate default footage, and persist the
// whole project atomically. Nothing is persisted if transcription fails.
func (s *ProjectService) CreateProject(ctx context.Context, title, filename string, audio io.Reader, contentType string) (*model.Project, error) {
	projectID := model.NewProjectID()

	// The audio is consumed twice (transcription, storage); buffer it once.
	audioBytes, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	sentences, err := s.transcripts.Segment(ctx, projectID, filename, bytes.NewReader(audioBytes), contentType)
	if err != nil {
		return nil, err
	}

	audioRef, err := s.storeAudio(ctx, projectID, filename, audioBytes, contentType)
	if err != nil {
		return nil, err
	}

	totalDuration := 0.0
	for i := range sentences {
		totalDuration += sentences[i].Duration()

		candidates, err := s.footage.FindCandidates(ctx, sentences[i].Text)
		if err != nil {
			// Footage search failure degrades to "no default" instead of
			// aborting project creation.
			log.Printf("footage search failed for sentence %s: %v", sentences[i].ID, err)
			continue
		}
		if len(candidates) > 0 {
			top := candidates[0]
			sentences[i].DefaultFootage = &top
			selected := top
			sentences[i].SelectedFootage = &selected
		}
	}

	project := &model.Project{
		ID:            projectID,
		Title:         title,
		AudioFilePath: audioRef,
		TotalDuration: totalDuration,
		Status:        model.ProjectStatusCreated,
		Sentences:     sentences,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject returns the full project snapshot.
func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	return s.store.GetProject(ctx, projectID)
}

// ListProjects returns summaries of all projects.
func (s *ProjectService) ListProjects(ctx context.Context) ([]model.ProjectSummary, error) {
	return s.store.ListProjects(ctx)
}

// UpdateProject changes mutable metadata only.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID string, req *model.UpdateProjectRequest) (*model.Project, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()
	return s.store.UpdateProjectMeta(ctx, projectID, req)
}

// DeleteProject removes the project and everything it owns, including the
// stored audio. Asset cleanup is best-effort; the database row removal is
// authoritative.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID string) error {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}

	if s.storage != nil {
		if err := s.storage.Delete(ctx, audioKey(projectID, project.AudioFilePath)); err != nil {
			log.Printf("failed to delete stored audio for %s: %v", projectID, err)
		}
	} else if project.AudioFilePath != "" {
		if err := os.Remove(project.AudioFilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to delete local audio for %s: %v", projectID, err)
		}
	}
	return nil
}

// SubmitFootageChoices applies an override batch (merge semantics, empty
// batch accepted) and recomputes music recommendations. The batch is
// all-or-nothing; recommendations always contain at least one track.
func (s *ProjectService) SubmitFootageChoices(ctx context.Context, projectID string, choices []model.FootageChoice) ([]model.MusicRecommendation, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	project, err := s.store.ApplyFootageChoices(ctx, projectID, choices)
	if err != nil {
		return nil, err
	}

	tracks := s.music.Recommend(ctx, project)
	if err := s.store.ReplaceMusic(ctx, projectID, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// SentenceCandidates returns ranked footage candidates for one sentence so a
// client can pick an override.
func (s *ProjectService) SentenceCandidates(ctx context.Context, projectID, sentenceID string) ([]model.Footage, error) {
	sentence, err := s.store.GetSentence(ctx, projectID, sentenceID)
	if err != nil {
		return nil, err
	}
	return s.footage.FindCandidates(ctx, sentence.Text)
}

// MusicRecommendations returns the project's stored recommendation set.
func (s *ProjectService) MusicRecommendations(ctx context.Context, projectID string) ([]model.MusicRecommendation, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.GetMusic(ctx, projectID)
}

func (s *ProjectService) storeAudio(ctx context.Context, projectID, filename string, audio []byte, contentType string) (string, error) {
	if s.storage != nil {
		key := fmt.Sprintf("audio/%s/%s", projectID, filepath.Base(filename))
		url, err := s.storage.Upload(ctx, key, bytes.NewReader(audio), contentType)
		if err != nil {
			return "", fmt.Errorf("failed to upload audio: %w", err)
		}
		return url, nil
	}

	dir := filepath.Join(s.uploadDir, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().Unix(), filepath.Base(filename)))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	return path, nil
}

func audioKey(projectID, audioRef string) string {
	return fmt.Sprintf("audio/%s/%s", projectID, filepath.Base(audioRef))
}
