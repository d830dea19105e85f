package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API through the official SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini chat client. Returns nil, nil if
// apiKey or model is empty (provider disabled).
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" || model == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

func (c *GeminiClient) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete sends the request as a Gemini generation call. System
// messages become the system instruction, the rest the conversation.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if c == nil {
		return nil, errors.New("gemini client is nil")
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, errors.New("no user or assistant messages in request")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.JSONOnly {
		config.ResponseMIMEType = "application/json"
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, Classify(err, ProviderGemini)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, Classify(fmt.Errorf("empty generation from model %s", c.model), ProviderGemini)
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	resp := &Response{
		Content:  sb.String(),
		Provider: ProviderGemini,
		Model:    c.model,
	}
	if result.UsageMetadata != nil {
		resp.Usage = Usage{
			PromptTokens:     int64(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int64(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}
