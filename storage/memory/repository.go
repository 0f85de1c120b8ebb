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


// Package memory implements the storage repositories in process memory
// with brute-force cosine search. It mirrors the PostgreSQL backend's
// semantics and is intended for tests and single-process local runs.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

// Repository implements storage.DocumentRepository and
// storage.FeedbackRepository with map-backed state.
type Repository struct {
	mu       sync.RWMutex
	dim      int
	nextID   core.ID
	docs     map[string]*core.Document // keyed by URI
	chunks   map[core.ID][]*core.Chunk // keyed by document ID
	feedback []*core.Feedback
	closed   bool
}

var (
	_ storage.DocumentRepository = (*Repository)(nil)
	_ storage.FeedbackRepository = (*Repository)(nil)
)

// NewRepository creates an empty in-memory repository expecting
// embeddings of the given dimension.
func NewRepository(dimensions int) (*Repository, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", storage.ErrInvalidQuery)
	}
	return &Repository{
		dim:    dimensions,
		nextID: 1,
		docs:   make(map[string]*core.Document),
		chunks: make(map[core.ID][]*core.Chunk),
	}, nil
}

// Close marks the repository closed. Subsequent operations fail with
// ErrStorageClosed.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Repository) checkOpen() error {
	if r.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// WithTransaction runs fn with the plain context. The in-memory backend
// has no real transactions; each repository call is individually atomic
// under the mutex, which is enough for single-process use.
func (r *Repository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// UpsertDocument inserts or replaces the document stored under its URI.
func (r *Repository) UpsertDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stored := *doc
	if existing, ok := r.docs[doc.URI]; ok {
		stored.Id = existing.Id
		stored.InsertedAt = existing.InsertedAt
	} else {
		stored.Id = r.nextID
		r.nextID++
		stored.InsertedAt = now
	}
	stored.UpdatedAt = now
	r.docs[doc.URI] = &stored

	result := stored
	return &result, nil
}

// ReplaceChunks swaps a document's chunk set atomically.
func (r *Repository) ReplaceChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return err
	}

	if r.findByID(documentID) == nil {
		return fmt.Errorf("document %d: %w", documentID, storage.ErrNotFound)
	}

	replacement := make([]*core.Chunk, 0, len(chunks))
	for i, chunk := range chunks {
		if err := core.ValidateChunk(chunk, r.dim); err != nil {
			return err
		}
		stored := *chunk
		stored.Id = r.nextID
		r.nextID++
		stored.DocumentId = documentID
		stored.Seq = i
		replacement = append(replacement, &stored)
	}
	r.chunks[documentID] = replacement
	return nil
}

func (r *Repository) findByID(id core.ID) *core.Document {
	for _, doc := range r.docs {
		if doc.Id == id {
			return doc
		}
	}
	return nil
}

// Search scans every chunk and returns the nearest by cosine distance.
func (r *Repository) Search(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]*core.SearchHit, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) != r.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store expects %d",
			core.ErrDimensionMismatch, len(vector), r.dim)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var hits []*core.SearchHit
	for _, doc := range r.docs {
		for _, chunk := range r.chunks[doc.Id] {
			if !matchesFilter(chunk.Metadata, opts.MetadataFilter) {
				continue
			}
			hits = append(hits, &core.SearchHit{
				DocumentId: doc.Id,
				DocURI:     doc.URI,
				ChunkText:  chunk.Text,
				Distance:   CosineDistance(vector, chunk.Embedding),
				Metadata:   chunk.Metadata,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].DocURI < hits[j].DocURI
	})
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func matchesFilter(meta, filter map[string]string) bool {
	for k, want := range filter {
		if meta[k] != want {
			return false
		}
	}
	return true
}

// GetDocument retrieves a document by URI.
func (r *Repository) GetDocument(ctx context.Context, uri string) (*core.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	doc, ok := r.docs[uri]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", uri, storage.ErrNotFound)
	}
	result := *doc
	return &result, nil
}

// GetDocumentChunks retrieves a document's chunks in sequence order.
func (r *Repository) GetDocumentChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	stored := r.chunks[documentID]
	chunks := make([]*core.Chunk, 0, len(stored))
	for _, chunk := range stored {
		c := *chunk
		chunks = append(chunks, &c)
	}
	return chunks, nil
}

// DeleteDocument removes a document and its chunks.
func (r *Repository) DeleteDocument(ctx context.Context, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return err
	}

	doc, ok := r.docs[uri]
	if !ok {
		return fmt.Errorf("document %q: %w", uri, storage.ErrNotFound)
	}
	delete(r.docs, uri)
	delete(r.chunks, doc.Id)
	return nil
}

// ListDocuments returns all documents ordered by URI.
func (r *Repository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	docs := make([]*core.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		d := *doc
		docs = append(docs, &d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs, nil
}

// AddFeedback appends a feedback record.
func (r *Repository) AddFeedback(ctx context.Context, fb *core.Feedback) (*core.Feedback, error) {
	if err := core.ValidateFeedback(fb); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	stored := *fb
	stored.Id = r.nextID
	r.nextID++
	stored.CreatedAt = time.Now().UTC()
	r.feedback = append(r.feedback, &stored)

	result := stored
	return &result, nil
}

// ListFeedback returns feedback records, most recent first.
func (r *Repository) ListFeedback(ctx context.Context, limit int) ([]*core.Feedback, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var records []*core.Feedback
	for i := len(r.feedback) - 1; i >= 0 && len(records) < limit; i-- {
		fb := *r.feedback[i]
		records = append(records, &fb)
	}
	return records, nil
}

// CosineDistance returns 1 minus the cosine similarity of two vectors,
// matching pgvector's <=> operator. Zero-magnitude vectors are treated
// as maximally distant.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
