package model

import "github.com/google/uuid"

// MusicRecommendation is one ranked background-music candidate attached to a
// project after footage selection.
type MusicRecommendation struct {
	ID        string  `gorm:"primaryKey;type:varchar(64)" json:"musicId"`
	ProjectID string  `gorm:"index;type:varchar(64)" json:"projectId"`
	Rank      int     `json:"rank"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Genre     string  `json:"genre,omitempty"`
	Mood      string  `json:"mood,omitempty"`
	URL       string  `json:"url"`
	Duration  float64 `json:"duration,omitempty"`
}

func (MusicRecommendation) TableName() string { return "music_recommendations" }

// NewMusicID returns a prefixed unique music recommendation id.
func NewMusicID() string {
	return "music-" + uuid.New().String()
}

// FallbackTrack is substituted whenever the music provider errors or returns
// an empty list, so a project never ends up with zero choices.
func FallbackTrack(projectID string) MusicRecommendation {
	return MusicRecommendation{
		ID:        NewMusicID(),
		ProjectID: projectID,
		Rank:      0,
		Title:     "Gentle Horizon",
		Artist:    "Voxreel Library",
		Genre:     "ambient",
		Mood:      "neutral",
		URL:       "/assets/music/gentle-horizon.mp3",
		Duration:  180,
	}
}
