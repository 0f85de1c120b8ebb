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


package answer

import "fmt"

// Retrieval and gating defaults. MinCoarseK widens the first retrieval
// pass beyond the caller's k so document voting has enough evidence.
const (
	DefaultK                = 6
	MinCoarseK              = 12
	DefaultDocContextChunks = 4
	MinDocContextChunks     = 2
	DefaultMaxCosineDist    = 0.65
	DefaultMinHits          = 1
	DefaultMaxContextChars  = 6000
)

// Config holds the retrieval and confidence-gate knobs.
type Config struct {
	// K is the number of hits the caller nominally asks for. The coarse
	// pass retrieves max(K, MinCoarseK).
	K int

	// DocContextChunks is how many of the selected document's chunks
	// feed generation, floored at MinDocContextChunks.
	DocContextChunks int

	// MaxCosineDist is the confidence gate: if the best retrieved
	// distance exceeds it, the pipeline abstains.
	MaxCosineDist float64

	// MinHits is the minimum number of selected-document hits required
	// to answer.
	MinHits int

	// MaxContextChars bounds the total characters of chunk text joined
	// into the generation prompt. Chunks past the budget are dropped,
	// never truncated mid-chunk.
	MaxContextChars int

	// MetadataFilter restricts retrieval to chunks carrying these exact
	// metadata values. Nil searches the whole corpus.
	MetadataFilter map[string]string
}

// DefaultConfig returns the default knobs.
func DefaultConfig() Config {
	return Config{
		K:                DefaultK,
		DocContextChunks: DefaultDocContextChunks,
		MaxCosineDist:    DefaultMaxCosineDist,
		MinHits:          DefaultMinHits,
		MaxContextChars:  DefaultMaxContextChars,
	}
}

// CoarseK returns the widened first-pass retrieval size.
func (c Config) CoarseK() int {
	if c.K > MinCoarseK {
		return c.K
	}
	return MinCoarseK
}

// ContextChunks returns the floored per-document context size.
func (c Config) ContextChunks() int {
	if c.DocContextChunks > MinDocContextChunks {
		return c.DocContextChunks
	}
	return MinDocContextChunks
}

// Validate checks the knobs for values that cannot work.
func (c Config) Validate() error {
	if c.K <= 0 {
		return fmt.Errorf("k must be positive, got %d", c.K)
	}
	if c.MaxCosineDist < 0 || c.MaxCosineDist > 2 {
		return fmt.Errorf("maxCosineDist must be within [0, 2], got %g", c.MaxCosineDist)
	}
	if c.MinHits <= 0 {
		return fmt.Errorf("minHits must be positive, got %d", c.MinHits)
	}
	if c.MaxContextChars <= 0 {
		return fmt.Errorf("maxContextChars must be positive, got %d", c.MaxContextChars)
	}
	return nil
}
