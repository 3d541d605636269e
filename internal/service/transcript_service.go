package service

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/voxreel/api/internal/client"
	"github.com/voxreel/api/internal/model"
)

// Transcriber is the transcription provider contract.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader, contentType string) ([]client.TranscriptSegment, error)
}

// Audio content types the transcription provider can decode.
var supportedAudioTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
	"audio/aac":   true,
	"audio/x-aac": true,
	"audio/ogg":   true,
	"audio/webm":  true,
}

// TranscriptService wraps the transcription provider and normalizes its raw
// segments into ordered sentences with stable ids.
type TranscriptService struct {
	transcriber Transcriber
}

func NewTranscriptService(transcriber Transcriber) *TranscriptService {
	return &TranscriptService{transcriber: transcriber}
}

// Segment transcribes the audio and returns the project's sentences in
// chronological order. Guarantees on success: the sequence is non-empty,
// every window satisfies 0 <= start < end, windows never overlap, and ids
// are the deterministic sent-<project>-<seq> form.
func (s *TranscriptService) Segment(ctx context.Context, projectID, filename string, audio io.Reader, contentType string) ([]model.Sentence, error) {
	if !supportedAudioTypes[normalizeContentType(contentType)] {
		return nil, model.ErrUnsupportedAudioFormat
	}

	segments, err := s.transcriber.Transcribe(ctx, filename, audio, contentType)
	if err != nil {
		return nil, err
	}

	sentences := normalizeSegments(projectID, segments)
	if len(sentences) == 0 {
		return nil, &model.TranscriptionFailedError{Reason: "provider returned no usable segments"}
	}
	return sentences, nil
}

func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// normalizeSegments turns raw provider segments into clean sentences:
// empty text and degenerate windows are dropped, starts are clamped to the
// previous end so windows never overlap, and seq/id are assigned in final
// chronological order.
func normalizeSegments(projectID string, segments []client.TranscriptSegment) []model.Sentence {
	ordered := make([]client.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		if seg.Start < 0 {
			seg.Start = 0
		}
		if seg.End <= seg.Start {
			continue
		}
		ordered = append(ordered, seg)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	sentences := make([]model.Sentence, 0, len(ordered))
	prevEnd := 0.0
	for _, seg := range ordered {
		if seg.Start < prevEnd {
			seg.Start = prevEnd
		}
		if seg.End <= seg.Start {
			continue
		}
		seq := len(sentences)
		sentences = append(sentences, model.Sentence{
			ID:        model.SentenceID(projectID, seq),
			ProjectID: projectID,
			Seq:       seq,
			Text:      seg.Text,
			StartTime: seg.Start,
			EndTime:   seg.End,
		})
		prevEnd = seg.End
	}
	return sentences
}
