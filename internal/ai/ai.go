// Package ai abstracts the generative model providers used by the
// deck analysis pipeline.
package ai

import "context"

// Generator produces model completions for analysis prompts.
type Generator interface {
	// Generate runs a text-only prompt and returns the raw model output.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateWithFile runs a prompt alongside inline binary content,
	// typically a PDF sent for visual inspection.
	GenerateWithFile(ctx context.Context, prompt string, data []byte, mimeType string) (string, error)
	// Close releases any resources held by the provider client.
	Close() error
}
