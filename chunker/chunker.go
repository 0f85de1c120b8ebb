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


// Package chunker splits normalized document text into overlapping
// fixed-size character windows sized for embedding input limits.
package chunker

import (
	"errors"
	"regexp"
	"strings"
)

// Defaults for the character-window policy.
const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 150
)

var (
	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrOverlapTooLarge indicates an overlap greater than or equal to the
	// chunk size, which would make the window sequence non-advancing.
	ErrOverlapTooLarge = errors.New("overlap must be smaller than chunk size")
)

var whitespace = regexp.MustCompile(`\s+`)

// Chunker produces ordered, overlapping character windows over normalized
// text. Windows cover the entire input with no gaps. Chunker is stateless
// and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given window size and overlap, both in
// characters. Configuration errors are rejected here, never at chunk time.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= size {
		return nil, ErrOverlapTooLarge
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Step returns the distance between consecutive window starts.
func (c *Chunker) Step() int { return c.size - c.overlap }

// Normalize collapses all whitespace runs to single spaces and trims the
// ends. Chunk distances are only meaningful over normalized text, so
// ingestion normalizes exactly once before chunking.
func Normalize(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// Chunk splits normalized text into overlapping windows.
//
// Input shorter than one window yields exactly one chunk; empty input
// yields none. Consecutive windows overlap by the configured amount, so
// concatenating each window's first Step() characters (plus the final
// window's tail) reconstructs the input exactly.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	// Window over runes so multi-byte characters are never split.
	runes := []rune(text)
	step := c.size - c.overlap
	var out []string
	for i := 0; i < len(runes); i += step {
		end := i + c.size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
