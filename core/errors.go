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


package core

import "errors"

// Cross-cutting failure taxonomy. Components wrap these sentinels so
// callers can classify failures with errors.Is regardless of which
// layer produced them.
var (
	// ErrInvalidInput indicates a caller error: bad parameters or oversized
	// text. Not retryable; surfaced as a client error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable indicates a transient failure of the model
	// inference service (transport, quota, timeout). Retryable.
	ErrModelUnavailable = errors.New("model service unavailable")

	// ErrStoreUnavailable indicates a transient failure of the vector store.
	// Retryable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUnsupportedContentType indicates a source object whose content type
	// has no extractor. The object is skipped and recorded, never retried.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrDimensionMismatch indicates an embedding whose dimension does not
	// match the store's configured vector dimension. A configuration error;
	// vectors are never silently truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidRating indicates a feedback rating outside {-1, 0, 1}.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrEmptyQuestion indicates an ask request with no question text.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrEmptyURI indicates a document without a source URI.
	ErrEmptyURI = errors.New("document URI cannot be empty")
)

// IsTransient reports whether err is a transient dependency failure that
// a delivery layer may retry with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrStoreUnavailable)
}
