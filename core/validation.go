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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - URI must not be empty
//
// NOT validated:
//   - ID (0 is valid before the store assigns one)
//   - Content (an empty document is legal; ingestion skips it earlier)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidInput)
	}

	if doc.URI == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyURI)
	}

	return nil
}

// ValidateChunk validates a Chunk against the configured embedding dimension.
// A chunk whose embedding length differs from dim is a hard ingestion error.
func ValidateChunk(chunk *Chunk, dim int) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidInput)
	}

	if len(chunk.Embedding) != dim {
		return fmt.Errorf("%w: got %d, store configured for %d",
			ErrDimensionMismatch, len(chunk.Embedding), dim)
	}

	return nil
}

// ValidateRating validates that a Rating has one of the three legal values.
func ValidateRating(rating Rating) error {
	switch rating {
	case RatingNegative, RatingNeutral, RatingPositive:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrInvalidRating, rating)
}

// ValidateFeedback validates a Feedback record before it is appended.
// Only type/range checks; content is stored verbatim.
func ValidateFeedback(fb *Feedback) error {
	if fb == nil {
		return fmt.Errorf("%w: feedback is nil", ErrInvalidInput)
	}

	if err := ValidateRating(fb.Rating); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return nil
}
