package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxreel/api/internal/config"
)

func pexelsTestClient(t *testing.T, handler http.HandlerFunc) *PexelsClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPexelsClient(&config.PexelsConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		PerPage: 5,
	})
}

func TestPexelsSearch_ResolvesFieldVariance(t *testing.T) {
	// Two videos using the alternate field spellings the provider mixes:
	// duration vs durationSeconds, image vs thumbnail, alt vs user.name.
	body := `{
		"videos": [
			{
				"id": 101,
				"alt": "Ocean at dawn",
				"image": "https://img/101.jpg",
				"duration": 12,
				"video_files": [
					{"link": "https://v/101-4k.mp4", "width": 3840, "height": 2160},
					{"link": "https://v/101-hd.mp4", "width": 1920, "height": 1080},
					{"link": "https://v/101-sd.mp4", "width": 640, "height": 360}
				]
			},
			{
				"id": 102,
				"user": {"name": "Jamie"},
				"thumbnail": "https://img/102.jpg",
				"durationSeconds": 8,
				"video_files": [
					{"link": "https://v/102-sd.mp4", "width": 1280, "height": 720}
				]
			}
		]
	}`
	c := pexelsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if got := r.URL.Query().Get("query"); got != "ocean dawn" {
			t.Errorf("unexpected query: %s", got)
		}
		w.Write([]byte(body))
	})

	candidates, err := c.Search(context.Background(), "ocean dawn")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.ID != "pexels-101" || first.Title != "Ocean at dawn" {
		t.Errorf("unexpected first candidate: %+v", first)
	}
	if first.URL != "https://v/101-hd.mp4" {
		t.Errorf("expected the largest rendition within Full HD, got %s", first.URL)
	}
	if first.Duration != 12 || first.Thumbnail != "https://img/101.jpg" {
		t.Errorf("field variance not resolved: %+v", first)
	}

	second := candidates[1]
	if second.Title != "Jamie" || second.Duration != 8 || second.Thumbnail != "https://img/102.jpg" {
		t.Errorf("alternate spellings not resolved: %+v", second)
	}

	if !(first.Score > second.Score) {
		t.Errorf("scores must strictly descend: %.2f vs %.2f", first.Score, second.Score)
	}
	for _, cand := range candidates {
		if cand.Score < 0 || cand.Score > 1 {
			t.Errorf("score out of range: %.2f", cand.Score)
		}
	}
}

func TestPexelsSearch_ZeroResults(t *testing.T) {
	c := pexelsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"videos": []}`))
	})

	candidates, err := c.Search(context.Background(), "nothing matches this")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestPexelsSearch_SkipsVideosWithoutPlayableFile(t *testing.T) {
	body := `{
		"videos": [
			{"id": 1, "alt": "broken", "video_files": []},
			{"id": 2, "alt": "ok", "duration": 5, "video_files": [{"link": "https://v/2.mp4", "width": 1920, "height": 1080}]}
		]
	}`
	c := pexelsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	candidates, err := c.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "pexels-2" {
		t.Fatalf("expected only the playable video, got %+v", candidates)
	}
}

func TestPexelsSearch_APIError(t *testing.T) {
	c := pexelsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	})

	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestPickVideoFile_FallbackWhenAllTooLarge(t *testing.T) {
	body := `{
		"videos": [
			{"id": 3, "alt": "huge", "duration": 5, "video_files": [
				{"link": "https://v/3-4k.mp4", "width": 3840, "height": 2160}
			]}
		]
	}`
	c := pexelsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	candidates, err := c.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].URL != "https://v/3-4k.mp4" {
		t.Fatalf("expected fallback to the first link, got %+v", candidates)
	}
}
