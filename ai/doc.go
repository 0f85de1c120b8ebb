// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the model inference services used
// by corpusqa.
//
// This package defines interfaces for the two model operations the system
// needs: text embeddings and grounded text generation. The pipelines depend
// on these abstractions rather than on a concrete inference backend.
//
// # Interfaces
//
//   - Embedder: text -> fixed-dimension embedding vector
//   - Generator: prompt -> generated text
//   - Provider: aggregates both for convenient initialization and shutdown
//
// # Implementation Packages
//
//   - ai/openai: production implementation against OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles, no network
//
// # Failure Taxonomy
//
// Implementations classify failures with the core sentinels: oversized input
// is core.ErrInvalidInput (the caller must pre-chunk, input is never silently
// truncated), and transport, quota, or timeout failures are
// core.ErrModelUnavailable (retryable at the calling layer).
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, ...) return
// interface types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder, ...) return concrete types to enable behavior
// injection and call-count assertions.
package ai
