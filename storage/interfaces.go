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


package storage

import (
	"context"

	"github.com/poiesic/corpusqa/core"
)

// SearchOptions controls vector similarity search behavior.
type SearchOptions struct {
	// Limit is the maximum number of hits to return. Must be positive.
	Limit int

	// MetadataFilter restricts hits to chunks whose metadata contains
	// every listed key with exactly the listed value. Nil means no filter.
	MetadataFilter map[string]string
}

// DocumentRepository provides operations for documents, their chunk
// embeddings, and vector similarity search.
type DocumentRepository interface {
	// UpsertDocument inserts a document keyed by URI or updates the
	// existing row in place. On update the original InsertedAt is kept
	// and UpdatedAt is refreshed. Returns the stored document with its
	// ID and timestamps populated.
	UpsertDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// ReplaceChunks atomically replaces all chunks for a document:
	// existing chunks are deleted and the given set inserted. Callers
	// wrap this together with UpsertDocument in WithTransaction so a
	// document is never visible with a mixed chunk set.
	// Returns ErrNotFound if the document doesn't exist.
	ReplaceChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) error

	// Search returns the chunks nearest to the query vector by cosine
	// distance, ordered ascending (closest first). Each hit carries its
	// parent document's URI and the chunk's stored distance.
	Search(ctx context.Context, vector []float32, opts SearchOptions) ([]*core.SearchHit, error)

	// GetDocument retrieves a document by URI.
	// Returns ErrNotFound if no document has that URI.
	GetDocument(ctx context.Context, uri string) (*core.Document, error)

	// GetDocumentChunks retrieves a document's chunks ordered by their
	// position in the original text.
	GetDocumentChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// DeleteDocument removes a document and all of its chunks.
	// Returns ErrNotFound if no document has that URI.
	DeleteDocument(ctx context.Context, uri string) error

	// ListDocuments returns all stored documents ordered by URI.
	// Chunk embeddings are not loaded.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn carries transaction state; repository
	// calls made with it run inside the same transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// FeedbackRepository provides append-only storage for answer feedback.
type FeedbackRepository interface {
	// AddFeedback appends a feedback record verbatim. Records are never
	// updated or deleted; repeated submissions accumulate.
	AddFeedback(ctx context.Context, fb *core.Feedback) (*core.Feedback, error)

	// ListFeedback returns feedback records, most recent first, up to limit.
	ListFeedback(ctx context.Context, limit int) ([]*core.Feedback, error)
}
