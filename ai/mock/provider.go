package mock

import "github.com/poiesic/corpusqa/ai"

// MockProvider aggregates mock AI services for testing.
type MockProvider struct {
	embedder  *MockEmbedder
	generator *MockGenerator
}

// NewMockProvider creates a provider backed by deterministic mocks.
// Returns ai.Provider since it's the primary entry point; use
// GetMockEmbedder/GetMockGenerator to reach the concrete types
// for assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		generator: NewMockGenerator("mock answer"),
	}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the mock generation service.
func (p *MockProvider) Generator() ai.Generator {
	return p.generator
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the concrete mock embedder for assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockGenerator returns the concrete mock generator for assertions.
func (p *MockProvider) GetMockGenerator() *MockGenerator {
	return p.generator
}
