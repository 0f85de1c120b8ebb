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


// Package ingestion turns source objects into searchable documents.
//
// The pipeline for one object is: fetch, extract plain text, normalize
// whitespace, chunk into overlapping windows, embed every chunk, then
// upsert the document and replace its chunk set in a single storage
// transaction. Ingestion is idempotent: re-delivering an unchanged
// object is a no-op detected by content fingerprint, and re-delivering
// a changed object fully replaces the previous version.
//
// Batch ingestion fans out over a worker pool with per-object isolation;
// one failed object never aborts the batch. The delivery consumer
// retries transient failures with exponential backoff and parks
// exhausted messages in a dead-letter store for inspection and requeue.
package ingestion
