package inference

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiFactory loads hosted Gemini models. Overlay refs name tuned model
// variants, so each overlay needs its own handle; the handles deliberately
// do not implement OverlaySwitcher.
type GeminiFactory struct {
	apiKey string
}

// NewGeminiFactory creates a factory for the given API key.
func NewGeminiFactory(apiKey string) (*GeminiFactory, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &GeminiFactory{apiKey: apiKey}, nil
}

// Load creates a client bound to the model, or to the tuned variant when
// overlayRef is set.
func (f *GeminiFactory) Load(ctx context.Context, modelRef, overlayRef string, params map[string]string) (Handle, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(f.apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	name := modelRef
	if overlayRef != "" {
		name = overlayRef
	}
	model := client.GenerativeModel(name)
	model.ResponseMIMEType = "application/json"
	if t, ok := params["temperature"]; ok {
		if f64, err := strconv.ParseFloat(t, 32); err == nil {
			model.SetTemperature(float32(f64))
		}
	} else {
		model.SetTemperature(0.1)
	}

	return &geminiHandle{client: client, model: model, name: name}, nil
}

type geminiHandle struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

var (
	_ Handle   = (*geminiHandle)(nil)
	_ Unloader = (*geminiHandle)(nil)
)

// Generate produces a completion, stripping any markdown code fences the
// model wraps around JSON output.
func (h *geminiHandle) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := h.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", h.name, err)
	}
	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	return cleanJSONBlock(text), nil
}

// Unload closes the underlying client connection.
func (h *geminiHandle) Unload(ctx context.Context) error {
	return h.client.Close()
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
