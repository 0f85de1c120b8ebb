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


package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

// UpsertDocument inserts a document keyed by URI or updates the existing
// row in place, keeping the original inserted_at.
func (r *Repository) UpsertDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	meta := doc.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	stored := *doc
	err := r.db(ctx).QueryRow(ctx, `
		INSERT INTO docs (uri, content, preview, meta)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uri) DO UPDATE SET
			content    = EXCLUDED.content,
			preview    = EXCLUDED.preview,
			meta       = EXCLUDED.meta,
			updated_at = now()
		RETURNING id, inserted_at, updated_at`,
		doc.URI, doc.Content, doc.Preview, meta,
	).Scan(&stored.Id, &stored.InsertedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert document %q: %w", doc.URI, classifyError(err))
	}
	return &stored, nil
}

// ReplaceChunks deletes a document's chunks and inserts the given set in
// sequence order. Run inside WithTransaction together with
// UpsertDocument so readers never observe a partial chunk set.
func (r *Repository) ReplaceChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	db := r.db(ctx)

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM docs WHERE id = $1)`, documentID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check document %d: %w", documentID, classifyError(err))
	}
	if !exists {
		return fmt.Errorf("document %d: %w", documentID, storage.ErrNotFound)
	}

	if _, err := db.Exec(ctx,
		`DELETE FROM doc_chunks WHERE doc_id = $1`, documentID,
	); err != nil {
		return fmt.Errorf("delete chunks for document %d: %w", documentID, classifyError(err))
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		if err := core.ValidateChunk(chunk, r.dim); err != nil {
			return err
		}
		meta := chunk.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		batch.Queue(`
			INSERT INTO doc_chunks (doc_id, seq, chunk, embedding, meta)
			VALUES ($1, $2, $3, $4, $5)`,
			documentID, i, chunk.Text, pgvector.NewVector(chunk.Embedding), meta)
	}

	results := r.sendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert chunks for document %d: %w", documentID, classifyError(err))
		}
	}
	return classifyError(results.Close())
}

func (r *Repository) sendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx.SendBatch(ctx, batch)
	}
	return r.pool.SendBatch(ctx, batch)
}

// buildMetadataFilter renders a metadata equality filter as SQL
// predicates on the chunk's JSONB column. Keys are sorted so the
// generated SQL is deterministic. argOffset is the number of query
// arguments already placed before the filter's.
func buildMetadataFilter(filter map[string]string, argOffset int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		preds []string
		args  []any
	)
	for _, k := range keys {
		preds = append(preds, fmt.Sprintf("c.meta->>$%d = $%d", argOffset+len(args)+1, argOffset+len(args)+2))
		args = append(args, k, filter[k])
	}
	return " AND " + strings.Join(preds, " AND "), args
}

// Search returns the chunks nearest to the query vector by cosine
// distance, closest first.
func (r *Repository) Search(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]*core.SearchHit, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) != r.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store expects %d",
			core.ErrDimensionMismatch, len(vector), r.dim)
	}

	filterSQL, filterArgs := buildMetadataFilter(opts.MetadataFilter, 2)
	query := `
		SELECT c.doc_id, d.uri, c.chunk, c.embedding <=> $1 AS distance, c.meta
		FROM doc_chunks c
		JOIN docs d ON d.id = c.doc_id
		WHERE true` + filterSQL + `
		ORDER BY distance
		LIMIT $2`

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	args := append([]any{pgvector.NewVector(vector), opts.Limit}, filterArgs...)
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", classifyError(err))
	}
	defer rows.Close()

	var hits []*core.SearchHit
	for rows.Next() {
		hit := &core.SearchHit{}
		if err := rows.Scan(&hit.DocumentId, &hit.DocURI, &hit.ChunkText, &hit.Distance, &hit.Metadata); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity search: %w", classifyError(err))
	}
	return hits, nil
}

// GetDocument retrieves a document by URI.
func (r *Repository) GetDocument(ctx context.Context, uri string) (*core.Document, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	doc := &core.Document{}
	err := r.db(ctx).QueryRow(ctx, `
		SELECT id, uri, content, preview, meta, inserted_at, updated_at
		FROM docs WHERE uri = $1`, uri,
	).Scan(&doc.Id, &doc.URI, &doc.Content, &doc.Preview, &doc.Metadata, &doc.InsertedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", uri, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %q: %w", uri, classifyError(err))
	}
	return doc, nil
}

// GetDocumentChunks retrieves a document's chunks in sequence order.
func (r *Repository) GetDocumentChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	rows, err := r.db(ctx).Query(ctx, `
		SELECT id, doc_id, seq, chunk, embedding, meta
		FROM doc_chunks WHERE doc_id = $1
		ORDER BY seq`, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks for document %d: %w", documentID, classifyError(err))
	}
	defer rows.Close()

	var chunks []*core.Chunk
	for rows.Next() {
		chunk := &core.Chunk{}
		var embedding pgvector.Vector
		if err := rows.Scan(&chunk.Id, &chunk.DocumentId, &chunk.Seq, &chunk.Text, &embedding, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get chunks for document %d: %w", documentID, classifyError(err))
	}
	return chunks, nil
}

// DeleteDocument removes a document; its chunks cascade.
func (r *Repository) DeleteDocument(ctx context.Context, uri string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM docs WHERE uri = $1`, uri)
	if err != nil {
		return fmt.Errorf("delete document %q: %w", uri, classifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %q: %w", uri, storage.ErrNotFound)
	}
	return nil
}

// ListDocuments returns all documents ordered by URI, without chunks.
func (r *Repository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	rows, err := r.db(ctx).Query(ctx, `
		SELECT id, uri, content, preview, meta, inserted_at, updated_at
		FROM docs ORDER BY uri`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", classifyError(err))
	}
	defer rows.Close()

	var docs []*core.Document
	for rows.Next() {
		doc := &core.Document{}
		if err := rows.Scan(&doc.Id, &doc.URI, &doc.Content, &doc.Preview, &doc.Metadata, &doc.InsertedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", classifyError(err))
	}
	return docs, nil
}
