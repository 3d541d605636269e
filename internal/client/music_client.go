package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/voxreel/api/internal/config"
	"github.com/voxreel/api/internal/model"
)

// MusicClient queries a Freesound-compatible API for background music tracks.
type MusicClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxTracks  int
}

// NewMusicClient creates a new music API client
func NewMusicClient(cfg *config.MusicConfig) *MusicClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	maxTracks := cfg.MaxTracks
	if maxTracks <= 0 {
		maxTracks = 5
	}
	return &MusicClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxTracks:  maxTracks,
	}
}

// SearchTracks returns up to maxTracks background-music candidates for a
// mood/keyword query. The caller owns the fallback policy; an empty result
// here is not an error.
func (c *MusicClient) SearchTracks(ctx context.Context, query string) ([]model.MusicRecommendation, error) {
	endpoint := fmt.Sprintf("%s/search/text/?query=%s&filter=duration:[60+TO+600]&fields=id,name,username,tags,duration,previews&page_size=%d",
		c.baseURL, url.QueryEscape(query), c.maxTracks)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("music API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	results := gjson.GetBytes(respBody, "results").Array()
	tracks := make([]model.MusicRecommendation, 0, len(results))
	for _, r := range results {
		trackURL := r.Get("previews.preview-hq-mp3").String()
		if trackURL == "" {
			trackURL = r.Get("previews.preview-lq-mp3").String()
		}
		if trackURL == "" {
			continue
		}
		duration := r.Get("duration").Float()
		if duration == 0 {
			duration = r.Get("duration_seconds").Float()
		}
		mood := ""
		if moods := r.Get("tags").Array(); len(moods) > 0 {
			mood = moods[0].String()
		}
		tracks = append(tracks, model.MusicRecommendation{
			ID:       "music-" + r.Get("id").String(),
			Title:    r.Get("name").String(),
			Artist:   r.Get("username").String(),
			Mood:     mood,
			URL:      trackURL,
			Duration: duration,
		})
		if len(tracks) >= c.maxTracks {
			break
		}
	}
	return tracks, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *MusicClient) IsConfigured() bool {
	return c.apiKey != ""
}
