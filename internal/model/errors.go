package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned across the store/service boundary. Handlers map
// these to response codes instead of comparing error strings.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("render task not found")
	ErrTaskTerminal    = errors.New("render task already in a terminal state")
	ErrTaskNotStale    = errors.New("render task is not older than the stale threshold")

	// ErrUnsupportedAudioFormat is returned before anything is persisted when
	// the uploaded file cannot be decoded by the transcription provider.
	ErrUnsupportedAudioFormat = errors.New("unsupported audio format")
)

// TranscriptionFailedError carries the provider's raw message for diagnostics.
// A project is never created when transcription fails.
type TranscriptionFailedError struct {
	Reason string
}

func (e *TranscriptionFailedError) Error() string {
	return "transcription failed: " + e.Reason
}

// UnknownSentenceError rejects a whole footage-choice batch: no partial
// application when any referenced sentence does not belong to the project.
type UnknownSentenceError struct {
	ProjectID   string
	SentenceIDs []string
}

func (e *UnknownSentenceError) Error() string {
	return fmt.Sprintf("project %s has no sentences %s",
		e.ProjectID, strings.Join(e.SentenceIDs, ", "))
}

// IncompleteFootageSelectionError names every sentence still missing a
// selection when a render is requested.
type IncompleteFootageSelectionError struct {
	SentenceIDs []string
}

func (e *IncompleteFootageSelectionError) Error() string {
	return "sentences without selected footage: " + strings.Join(e.SentenceIDs, ", ")
}

// RenderInProgressError names the task currently holding the project's single
// render slot.
type RenderInProgressError struct {
	ProjectID string
	TaskID    string
}

func (e *RenderInProgressError) Error() string {
	return fmt.Sprintf("render %s already in progress for project %s", e.TaskID, e.ProjectID)
}
