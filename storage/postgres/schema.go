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
	"fmt"
)

// ivfflatLists is the number of inverted lists for the ANN index.
// Tuned for corpora in the tens of thousands of chunks.
const ivfflatLists = 200

// schemaStatements returns the DDL for the corpus schema, in order.
// All statements are idempotent so ApplySchema can run on every start.
func schemaStatements(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS docs (
			id          BIGSERIAL PRIMARY KEY,
			uri         TEXT UNIQUE NOT NULL,
			content     TEXT NOT NULL,
			preview     TEXT NOT NULL DEFAULT '',
			meta        JSONB NOT NULL DEFAULT '{}'::jsonb,
			inserted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS doc_chunks (
			id        BIGSERIAL PRIMARY KEY,
			doc_id    BIGINT NOT NULL REFERENCES docs(id) ON DELETE CASCADE,
			seq       INT NOT NULL,
			chunk     TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			meta      JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS doc_chunks_doc_id_idx ON doc_chunks (doc_id)`,
		`CREATE INDEX IF NOT EXISTS doc_chunks_meta_idx ON doc_chunks USING gin (meta)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS doc_chunks_embedding_idx
			ON doc_chunks USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = %d)`, ivfflatLists),
		`CREATE TABLE IF NOT EXISTS feedback (
			id         BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			query      TEXT NOT NULL,
			answer     TEXT NOT NULL,
			rating     SMALLINT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
}

// ApplySchema creates the extension, tables, and indexes if they do not
// exist. Safe to call on every startup.
func (r *Repository) ApplySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(r.dim) {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	r.logger.Info("schema applied", "dimensions", r.dim)
	return nil
}
