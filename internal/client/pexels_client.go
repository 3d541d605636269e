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

// PexelsClient searches stock footage on the Pexels video API.
//
// The response is parsed with gjson because the payload nests several
// alternate field spellings (duration vs durationSeconds, image vs
// thumbnail); all of that variance is resolved here and the rest of the
// system only ever sees the canonical model.Footage shape.
type PexelsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	perPage    int
}

// NewPexelsClient creates a new Pexels API client
func NewPexelsClient(cfg *config.PexelsConfig) *PexelsClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 5
	}
	return &PexelsClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		perPage:    perPage,
	}
}

// Search returns ranked footage candidates for a query. Zero results is a
// valid outcome, not an error.
func (c *PexelsClient) Search(ctx context.Context, query string) ([]model.Footage, error) {
	endpoint := fmt.Sprintf("%s/search?query=%s&per_page=%d&orientation=landscape",
		c.baseURL, url.QueryEscape(query), c.perPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

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
		return nil, fmt.Errorf("pexels API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	videos := gjson.GetBytes(respBody, "videos").Array()
	candidates := make([]model.Footage, 0, len(videos))
	for i, video := range videos {
		fileURL := pickVideoFile(video)
		if fileURL == "" {
			continue
		}
		duration := video.Get("duration").Float()
		if duration == 0 {
			duration = video.Get("durationSeconds").Float()
		}
		thumbnail := video.Get("image").String()
		if thumbnail == "" {
			thumbnail = video.Get("thumbnail").String()
		}
		title := video.Get("alt").String()
		if title == "" {
			title = video.Get("user.name").String()
		}

		var tags []string
		for _, t := range video.Get("tags").Array() {
			tags = append(tags, t.String())
		}

		candidates = append(candidates, model.Footage{
			ID:        "pexels-" + video.Get("id").String(),
			Title:     title,
			Thumbnail: thumbnail,
			Tags:      tags,
			Duration:  duration,
			Score:     rankScore(i, len(videos)),
			URL:       fileURL,
		})
	}
	return candidates, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *PexelsClient) IsConfigured() bool {
	return c.apiKey != ""
}

// pickVideoFile chooses the largest rendition that stays within Full HD.
func pickVideoFile(video gjson.Result) string {
	files := video.Get("video_files").Array()

	best := ""
	bestArea := int64(-1)
	fallback := ""
	for _, f := range files {
		link := f.Get("link").String()
		if link == "" {
			continue
		}
		if fallback == "" {
			fallback = link
		}
		w := f.Get("width").Int()
		h := f.Get("height").Int()
		if w > 1920 {
			continue
		}
		if area := w * h; area > bestArea {
			bestArea = area
			best = link
		}
	}
	if best != "" {
		return best
	}
	return fallback
}

// rankScore maps a provider rank position to a relevance score in [0,1],
// strictly descending so the first candidate is always the default pick.
func rankScore(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(index)/float64(total)
}
