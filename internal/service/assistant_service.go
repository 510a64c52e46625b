package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adforge/api/internal/client"
	"github.com/adforge/api/internal/model"
)

// AssistantService derives revised draft content from a change request,
// implementing the engine's Assistant contract. It calls an LLM when one is
// configured and falls back to a deterministic local revision otherwise, so
// iterate always works in development.
type AssistantService struct {
	chatClient *client.ChatClient
}

func NewAssistantService(chatClient *client.ChatClient) *AssistantService {
	return &AssistantService{chatClient: chatClient}
}

// Revise produces new content for the stream from its current content and
// the user's change request. Audio refs in the returned content are
// reconciled by the engine, not here.
func (s *AssistantService) Revise(ctx context.Context, brief model.Brief, stream model.Stream, content model.Content, changeRequest string) (model.Content, error) {
	if s.chatClient == nil || !s.chatClient.IsConfigured() {
		return s.reviseLocal(stream, content, changeRequest), nil
	}

	current, err := json.Marshal(content)
	if err != nil {
		return model.Content{}, fmt.Errorf("failed to marshal content: %w", err)
	}

	response, err := s.chatClient.Complete(ctx, s.systemPrompt(stream), s.revisePrompt(brief, stream, string(current), changeRequest))
	if err != nil {
		return model.Content{}, fmt.Errorf("AI revision failed: %w", err)
	}

	revised, err := parseContentResponse(response)
	if err != nil {
		return model.Content{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return revised, nil
}

func (s *AssistantService) systemPrompt(stream model.Stream) string {
	role := map[model.Stream]string{
		model.StreamVoice: "an advertising copywriter and voice director",
		model.StreamMusic: "a music producer writing generation prompts for an AI music service",
		model.StreamSfx:   "a sound designer describing effects for an AI sound generator",
	}[stream]

	return fmt.Sprintf(`You are %s working on a short audio advertisement.
You revise structured ad content according to a client's change request.
Always output your response as valid JSON in the exact shape of the input content.
Keep track ids unchanged for tracks you revise; omit only tracks the change request removes.
Do not include any text outside the JSON structure.`, role)
}

func (s *AssistantService) revisePrompt(brief model.Brief, stream model.Stream, current, changeRequest string) string {
	return fmt.Sprintf(`The ad brief: %s
Format: %s, target length %.0f seconds, language: %s.

Current %s content as JSON:
%s

Change request from the client:
%s

Apply the change request and output the full revised content as JSON in the same shape.`,
		brief.ClientDescription, brief.Format, brief.DurationSeconds, brief.Language,
		stream, current, changeRequest)
}

// parseContentResponse tolerates the fenced code blocks chat models like to
// wrap JSON in.
func parseContentResponse(response string) (model.Content, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var content model.Content
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return model.Content{}, err
	}
	return content, nil
}

// reviseLocal is the development fallback: it folds the change request into
// each unit's generation inputs, which is enough to exercise invalidation
// and the full iterate flow without an API key.
func (s *AssistantService) reviseLocal(stream model.Stream, content model.Content, changeRequest string) model.Content {
	revised := content.Clone()
	switch stream {
	case model.StreamVoice:
		if revised.Voice != nil {
			for i := range revised.Voice.Tracks {
				revised.Voice.Tracks[i].Instructions = changeRequest
			}
		}
	case model.StreamMusic:
		if revised.Music != nil {
			revised.Music.Prompt = strings.TrimSpace(revised.Music.Prompt + ". " + changeRequest)
		}
	case model.StreamSfx:
		if revised.Sfx != nil {
			for i := range revised.Sfx.Tracks {
				revised.Sfx.Tracks[i].Description = strings.TrimSpace(revised.Sfx.Tracks[i].Description + ", " + changeRequest)
			}
		}
	}
	return revised
}
