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

// SfxClient generates sound effects via a sound-generation HTTP API.
type SfxClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type sfxRequest struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type sfxResponse struct {
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func NewSfxClient(cfg *config.SfxConfig) *SfxClient {
	return &SfxClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *SfxClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Synthesize implements Synthesizer for sound effects.
func (c *SfxClient) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	sfx, ok := req.(SfxSynthesis)
	if !ok {
		return nil, fmt.Errorf("sfx adapter received %T", req)
	}

	if !c.IsConfigured() {
		return mockSfxResult(sfx), nil
	}

	body := sfxRequest{
		Text:            sfx.Description,
		DurationSeconds: sfx.DurationSeconds,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sound-generation", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[SFX API] %d %s — %s", resp.StatusCode, httpReq.URL.String(), string(respBody))
		return nil, fmt.Errorf("sfx API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result sfxResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &SynthesisResult{
		URL:                     result.AudioURL,
		MeasuredDurationSeconds: result.DurationSeconds,
	}, nil
}

func mockSfxResult(sfx SfxSynthesis) *SynthesisResult {
	dur := sfx.DurationSeconds
	if dur <= 0 {
		dur = 2
	}
	return &SynthesisResult{
		URL:                     mockAssetURL("sfx", sfx.Description),
		MeasuredDurationSeconds: dur,
	}
}
