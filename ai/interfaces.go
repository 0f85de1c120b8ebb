package ai

import "context"

// Embedder generates vector embeddings from text for similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns core.ErrInvalidInput if the text exceeds the configured
	// maximum embedding input size, and core.ErrModelUnavailable on
	// transport or quota failures.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in input order.
	// Fails as a whole with the same taxonomy as EmbedText.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text completions for grounded answering.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate produces a completion for the given prompt.
	// The call has no side effects on the model side; repeating it is safe.
	// Returns core.ErrModelUnavailable on transport or quota failures.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider aggregates the model services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and Generator
// instances, ensuring they share configuration appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
