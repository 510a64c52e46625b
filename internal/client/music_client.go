package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/adforge/api/internal/config"
)

// MusicClient generates music beds via a Suno-style async API: one call
// starts a task, completion is polled.
type MusicClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type generateMusicRequest struct {
	Prompt           string  `json:"prompt"`
	DurationSeconds  float64 `json:"duration_seconds,omitempty"`
	MakeInstrumental bool    `json:"make_instrumental"`
}

type generateMusicResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type musicTaskResult struct {
	ID       string  `json:"id"`
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
	Status   string  `json:"status"`
}

func NewMusicClient(cfg *config.MusicConfig) *MusicClient {
	return &MusicClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *MusicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Synthesize implements Synthesizer for the music bed. It starts a
// generation task and polls until the vendor reports completion.
func (c *MusicClient) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	music, ok := req.(MusicSynthesis)
	if !ok {
		return nil, fmt.Errorf("music adapter received %T", req)
	}

	if !c.IsConfigured() {
		return mockMusicResult(music), nil
	}

	var started generateMusicResponse
	body := generateMusicRequest{
		Prompt:           music.Prompt,
		DurationSeconds:  music.DurationSeconds,
		MakeInstrumental: true,
	}
	if err := c.post(ctx, "/v1/music/generate", body, &started); err != nil {
		return nil, err
	}

	result, err := c.pollTask(ctx, started.TaskID, 5*time.Second, 10*time.Minute)
	if err != nil {
		return nil, err
	}

	return &SynthesisResult{
		URL:                     result.AudioURL,
		MeasuredDurationSeconds: result.Duration,
	}, nil
}

// pollTask polls a generation task until it completes, fails or maxWait
// elapses.
func (c *MusicClient) pollTask(ctx context.Context, taskID string, interval, maxWait time.Duration) (*musicTaskResult, error) {
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		var result musicTaskResult
		if err := c.get(ctx, fmt.Sprintf("/v1/music/status/%s", taskID), &result); err != nil {
			return nil, err
		}

		switch result.Status {
		case "completed", "success":
			return &result, nil
		case "failed", "error":
			return nil, fmt.Errorf("music generation failed for task %s", taskID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, fmt.Errorf("music generation timed out for task %s", taskID)
}

func (c *MusicClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(req, result)
}

func (c *MusicClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(req, result)
}

func (c *MusicClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Music API] %d %s %s — %s", resp.StatusCode, req.Method, req.URL.String(), string(respBody))
		return fmt.Errorf("music API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// mockMusicResult fabricates a deterministic bed for development. The mock
// honors the requested duration exactly; real vendors rarely do, which is
// why measured duration stays authoritative downstream.
func mockMusicResult(music MusicSynthesis) *SynthesisResult {
	dur := music.DurationSeconds
	if dur <= 0 {
		dur = 30
	}
	return &SynthesisResult{
		URL:                     mockAssetURL("music", music.Prompt),
		MeasuredDurationSeconds: dur,
	}
}
