package service

import (
	"context"
	"log"
	"strings"

	"github.com/voxreel/api/internal/model"
)

// MusicSearcher is the music provider contract.
type MusicSearcher interface {
	SearchTracks(ctx context.Context, query string) ([]model.MusicRecommendation, error)
}

// MusicService wraps the music provider. Absence of recommendations is never
// a hard failure: if the provider errors or returns nothing, the built-in
// fallback track is substituted so the caller always gets at least one
// choice.
type MusicService struct {
	searcher MusicSearcher
}

func NewMusicService(searcher MusicSearcher) *MusicService {
	return &MusicService{searcher: searcher}
}

// Recommend returns ranked candidates for a project whose footage choices are
// final. Never returns an empty list.
func (s *MusicService) Recommend(ctx context.Context, project *model.Project) []model.MusicRecommendation {
	tracks, err := s.searcher.SearchTracks(ctx, musicQuery(project))
	if err != nil {
		log.Printf("music provider error for project %s, using fallback: %v", project.ID, err)
		return []model.MusicRecommendation{model.FallbackTrack(project.ID)}
	}
	if len(tracks) == 0 {
		return []model.MusicRecommendation{model.FallbackTrack(project.ID)}
	}

	for i := range tracks {
		tracks[i].ProjectID = project.ID
		tracks[i].Rank = i
		if tracks[i].ID == "" {
			tracks[i].ID = model.NewMusicID()
		}
	}
	return tracks
}

// musicQuery derives a search phrase from the narration content.
func musicQuery(project *model.Project) string {
	keywords := make([]string, 0, 4)
	seen := make(map[string]bool)
	for _, sentence := range project.Sentences {
		for _, w := range strings.Fields(searchQuery(sentence.Text)) {
			if !seen[w] {
				seen[w] = true
				keywords = append(keywords, w)
			}
			if len(keywords) == 4 {
				break
			}
		}
		if len(keywords) == 4 {
			break
		}
	}
	if len(keywords) == 0 {
		return "ambient background music"
	}
	return strings.Join(keywords, " ") + " background music"
}
