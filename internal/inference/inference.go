// Package inference abstracts local and hosted model runners behind small
// capability interfaces so the slot manager can stay runner-agnostic.
package inference

import "context"

// Handle is a loaded model ready to generate text.
type Handle interface {
	// Generate produces a completion for the prompt. Implementations are
	// expected to return raw model output; callers do any JSON cleanup.
	Generate(ctx context.Context, prompt string) (string, error)
}

// OverlaySwitcher is implemented by handles whose underlying runner can
// swap a fine-tuned overlay in and out of an already loaded base model.
type OverlaySwitcher interface {
	// SetOverlay activates the overlay identified by ref on the base model.
	SetOverlay(ctx context.Context, ref string) error
	// ClearOverlay restores the plain base model.
	ClearOverlay(ctx context.Context) error
}

// Unloader is implemented by handles that can release the model's
// resources (GPU memory, server-side cache) on demand.
type Unloader interface {
	Unload(ctx context.Context) error
}

// Factory loads models. overlayRef may be empty for a plain base load.
type Factory interface {
	Load(ctx context.Context, modelRef, overlayRef string, params map[string]string) (Handle, error)
}
