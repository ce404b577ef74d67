package inference

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultKeepAlive keeps a loaded model resident between requests.
const DefaultKeepAlive = 30 * time.Minute

// OllamaFactory loads models from a local Ollama server. Overlay refs are
// Ollama model tags built from the base model plus a fine-tuned adapter, so
// switching an overlay is a cheap retarget instead of a full reload.
type OllamaFactory struct {
	client    *api.Client
	keepAlive time.Duration
}

// NewOllamaFactory creates a factory using the OLLAMA_HOST environment
// variable for the server URL (defaults to http://localhost:11434).
func NewOllamaFactory(keepAlive time.Duration) (*OllamaFactory, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &OllamaFactory{client: client, keepAlive: keepAlive}, nil
}

// Load warms the model on the server and returns a handle targeting it.
// When overlayRef is set, the overlay tag is warmed instead of the base.
func (f *OllamaFactory) Load(ctx context.Context, modelRef, overlayRef string, params map[string]string) (Handle, error) {
	h := &ollamaHandle{
		client:    f.client,
		baseRef:   modelRef,
		activeRef: modelRef,
		keepAlive: &api.Duration{Duration: f.keepAlive},
		options:   parseOptions(params),
	}
	target := modelRef
	if overlayRef != "" {
		target = overlayRef
		h.activeRef = overlayRef
	}
	if err := h.warm(ctx, target); err != nil {
		return nil, err
	}
	log.Printf("[inference] ollama model %s loaded", target)
	return h, nil
}

type ollamaHandle struct {
	client    *api.Client
	baseRef   string
	keepAlive *api.Duration
	options   map[string]any

	mu        sync.Mutex
	activeRef string
}

var (
	_ Handle          = (*ollamaHandle)(nil)
	_ OverlaySwitcher = (*ollamaHandle)(nil)
	_ Unloader        = (*ollamaHandle)(nil)
)

// warm loads the model into server memory with an empty prompt.
func (h *ollamaHandle) warm(ctx context.Context, ref string) error {
	req := &api.GenerateRequest{
		Model:     ref,
		KeepAlive: h.keepAlive,
	}
	err := h.client.Generate(ctx, req, func(api.GenerateResponse) error { return nil })
	if err != nil {
		return fmt.Errorf("load model %s: %w", ref, err)
	}
	return nil
}

// Generate runs the prompt against the currently active model tag and
// collects the streamed response into one string.
func (h *ollamaHandle) Generate(ctx context.Context, prompt string) (string, error) {
	h.mu.Lock()
	ref := h.activeRef
	h.mu.Unlock()

	req := &api.GenerateRequest{
		Model:     ref,
		Prompt:    prompt,
		KeepAlive: h.keepAlive,
		Options:   h.options,
	}
	var sb strings.Builder
	err := h.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", ref, err)
	}
	return sb.String(), nil
}

// SetOverlay warms the overlay tag and retargets the handle at it. The base
// stays resident on the server under its own keep-alive.
func (h *ollamaHandle) SetOverlay(ctx context.Context, ref string) error {
	if err := h.warm(ctx, ref); err != nil {
		return fmt.Errorf("switch overlay: %w", err)
	}
	h.mu.Lock()
	h.activeRef = ref
	h.mu.Unlock()
	return nil
}

// ClearOverlay retargets the handle back at the base model.
func (h *ollamaHandle) ClearOverlay(ctx context.Context) error {
	h.mu.Lock()
	h.activeRef = h.baseRef
	h.mu.Unlock()
	return nil
}

// Unload evicts the active model from server memory immediately.
func (h *ollamaHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	ref := h.activeRef
	h.mu.Unlock()

	req := &api.GenerateRequest{
		Model:     ref,
		KeepAlive: &api.Duration{Duration: 0},
	}
	err := h.client.Generate(ctx, req, func(api.GenerateResponse) error { return nil })
	if err != nil {
		return fmt.Errorf("unload model %s: %w", ref, err)
	}
	log.Printf("[inference] ollama model %s unloaded", ref)
	return nil
}

// parseOptions converts string params into the typed options Ollama
// expects, keeping unknown keys as strings.
func parseOptions(params map[string]string) map[string]any {
	if len(params) == 0 {
		return nil
	}
	opts := make(map[string]any, len(params))
	for k, v := range params {
		if i, err := strconv.Atoi(v); err == nil {
			opts[k] = i
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts[k] = f
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil {
			opts[k] = b
			continue
		}
		opts[k] = v
	}
	return opts
}
