package client

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/adforge/api/internal/config"
)

// SpeechClient synthesizes spoken tracks via an ElevenLabs-style TTS API.
type SpeechClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type ttsRequest struct {
	Text         string `json:"text"`
	VoiceID      string `json:"voice_id"`
	Instructions string `json:"instructions,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type ttsResponse struct {
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func NewSpeechClient(cfg *config.SpeechConfig) *SpeechClient {
	return &SpeechClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *SpeechClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Synthesize implements Synthesizer for voice tracks.
func (c *SpeechClient) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	voice, ok := req.(VoiceSynthesis)
	if !ok {
		return nil, fmt.Errorf("speech adapter received %T", req)
	}

	if !c.IsConfigured() {
		return mockVoiceResult(voice), nil
	}

	body := ttsRequest{
		Text:         voice.Text,
		VoiceID:      voice.Speaker,
		Instructions: voice.Instructions,
		LanguageCode: voice.Language,
	}
	var result ttsResponse
	if err := c.post(ctx, "/v1/text-to-speech", body, &result); err != nil {
		return nil, err
	}

	return &SynthesisResult{
		URL:                     result.AudioURL,
		MeasuredDurationSeconds: result.DurationSeconds,
	}, nil
}

func (c *SpeechClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

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
		log.Printf("[TTS API] %d %s %s — %s", resp.StatusCode, req.Method, req.URL.String(), string(respBody))
		return fmt.Errorf("tts API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// mockVoiceResult fabricates a deterministic asset for development without
// an API key. Duration estimates spoken length at 2.5 words per second.
func mockVoiceResult(voice VoiceSynthesis) *SynthesisResult {
	words := len(strings.Fields(voice.Text))
	if words == 0 {
		words = 1
	}
	dur := float64(words) / 2.5
	return &SynthesisResult{
		URL:                     mockAssetURL("voice", voice.Text+voice.Speaker),
		MeasuredDurationSeconds: dur,
	}
}

// mockAssetURL derives a stable fake URL from the request content so that
// repeated mock runs produce identical assets.
func mockAssetURL(kind, seed string) string {
	sum := sha1.Sum([]byte(seed))
	return fmt.Sprintf("https://cdn.adforge.dev/mock/%s/%s.mp3", kind, hex.EncodeToString(sum[:8]))
}
