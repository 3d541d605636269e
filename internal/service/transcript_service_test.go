package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/voxreel/api/internal/client"
	"github.com/voxreel/api/internal/model"
)

type fakeTranscriber struct {
	segments []client.TranscriptSegment
	err      error
	called   bool
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader, contentType string) ([]client.TranscriptSegment, error) {
	f.called = true
	return f.segments, f.err
}

func TestSegment_UnsupportedFormatRejectedBeforeProvider(t *testing.T) {
	ft := &fakeTranscriber{}
	svc := NewTranscriptService(ft)

	_, err := svc.Segment(context.Background(), "proj-1", "clip.txt", strings.NewReader("x"), "text/plain")
	if !errors.Is(err, model.ErrUnsupportedAudioFormat) {
		t.Fatalf("expected ErrUnsupportedAudioFormat, got %v", err)
	}
	if ft.called {
		t.Error("provider must not be called for unsupported formats")
	}
}

func TestSegment_ContentTypeParametersIgnored(t *testing.T) {
	ft := &fakeTranscriber{segments: []client.TranscriptSegment{
		{Text: "hello world", Start: 0, End: 2},
	}}
	svc := NewTranscriptService(ft)

	sentences, err := svc.Segment(context.Background(), "proj-1", "clip.mp3", strings.NewReader("x"), "audio/mpeg; charset=binary")
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(sentences))
	}
}

func TestSegment_NormalizesProviderSegments(t *testing.T) {
	ft := &fakeTranscriber{segments: []client.TranscriptSegment{
		{Text: "  ", Start: 0, End: 1},             // blank, dropped
		{Text: "third", Start: 5.5, End: 7},        // out of order
		{Text: "first", Start: -0.5, End: 2},       // negative start clamped
		{Text: "second", Start: 1.5, End: 5.5},     // overlaps first, start clamped
		{Text: "degenerate", Start: 3, End: 3},     // zero-length, dropped
	}}
	svc := NewTranscriptService(ft)

	sentences, err := svc.Segment(context.Background(), "proj-1", "clip.mp3", strings.NewReader("x"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(sentences))
	}

	texts := []string{"first", "second", "third"}
	prevEnd := 0.0
	for i, sent := range sentences {
		if sent.Text != texts[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, texts[i], sent.Text)
		}
		if sent.Seq != i {
			t.Errorf("sentence %d: expected seq %d, got %d", i, i, sent.Seq)
		}
		if sent.ID != model.SentenceID("proj-1", i) {
			t.Errorf("sentence %d: unexpected id %s", i, sent.ID)
		}
		if sent.StartTime < prevEnd {
			t.Errorf("sentence %d overlaps previous: start %.2f < prev end %.2f", i, sent.StartTime, prevEnd)
		}
		if sent.StartTime < 0 || sent.EndTime <= sent.StartTime {
			t.Errorf("sentence %d has invalid window [%.2f, %.2f]", i, sent.StartTime, sent.EndTime)
		}
		prevEnd = sent.EndTime
	}
}

func TestSegment_EmptyTranscriptFails(t *testing.T) {
	ft := &fakeTranscriber{segments: []client.TranscriptSegment{
		{Text: "   ", Start: 0, End: 1},
	}}
	svc := NewTranscriptService(ft)

	_, err := svc.Segment(context.Background(), "proj-1", "clip.mp3", strings.NewReader("x"), "audio/mpeg")
	var failed *model.TranscriptionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TranscriptionFailedError, got %v", err)
	}
}

func TestSegment_ProviderErrorPropagates(t *testing.T) {
	ft := &fakeTranscriber{err: &model.TranscriptionFailedError{Reason: "provider down"}}
	svc := NewTranscriptService(ft)

	_, err := svc.Segment(context.Background(), "proj-1", "clip.mp3", strings.NewReader("x"), "audio/mpeg")
	var failed *model.TranscriptionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TranscriptionFailedError, got %v", err)
	}
}
