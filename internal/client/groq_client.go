package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/voxreel/api/internal/config"
	"github.com/voxreel/api/internal/model"
)

// GroqClient calls the Groq Whisper endpoint for audio transcription.
type GroqClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// TranscriptSegment is one raw time-stamped segment as the provider returns
// it, before normalization in the segmenter.
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// transcriptionResponse is the verbose_json shape of the Whisper endpoint.
type transcriptionResponse struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
}

type groqErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewGroqClient creates a new Groq API client
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &GroqClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.WhisperModel,
	}
}

// Transcribe uploads the audio and returns the provider's raw segments.
// A 4xx decode rejection maps to ErrUnsupportedAudioFormat; anything else
// surfaces as TranscriptionFailedError with the provider's message attached.
func (c *GroqClient) Transcribe(ctx context.Context, filename string, audio io.Reader, contentType string) ([]TranscriptSegment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.TranscriptionFailedError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TranscriptionFailedError{Reason: "failed to read response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		var groqErr groqErrorResponse
		_ = json.Unmarshal(respBody, &groqErr)
		msg := groqErr.Error.Message
		if msg == "" {
			msg = string(respBody)
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && looksLikeDecodeError(msg) {
			return nil, model.ErrUnsupportedAudioFormat
		}
		return nil, &model.TranscriptionFailedError{
			Reason: fmt.Sprintf("provider status %d: %s", resp.StatusCode, msg),
		}
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &model.TranscriptionFailedError{Reason: "failed to unmarshal response: " + err.Error()}
	}

	return result.Segments, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *GroqClient) IsConfigured() bool {
	return c.apiKey != ""
}

func looksLikeDecodeError(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "decode") ||
		strings.Contains(m, "file format") ||
		strings.Contains(m, "unsupported") ||
		strings.Contains(m, "invalid file")
}
