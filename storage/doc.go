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


// Package storage provides the storage abstraction layer for corpusqa.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline logic. It allows for different backends
// (PostgreSQL with pgvector, in-memory, etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Backend constructors return their concrete repository type, which
// implements the interfaces defined here; everything above the storage
// layer depends on the interfaces only:
//
//	repo, err := postgres.NewRepository(ctx, dsn, dim) // *postgres.Repository
//	var docs storage.DocumentRepository = repo
//	var fb storage.FeedbackRepository = repo
//
// Returning the concrete type keeps backend-specific operations such as
// schema management reachable without widening the shared interfaces.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - DocumentRepository: documents, their chunk embeddings, and vector search
//   - FeedbackRepository: append-only answer feedback
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and
// timeout support.
package storage
