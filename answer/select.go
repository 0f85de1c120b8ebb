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

import (
	"sort"

	"github.com/poiesic/corpusqa/core"
)

// selection is the outcome of picking one document from the coarse hits.
type selection struct {
	DocURI   string
	Votes    int
	BestDist float64
	Hits     []*core.SearchHit // the document's hits, closest first, capped
}

// selectDocument picks the single document the answer will come from.
//
// Majority evidence wins: the document with the most coarse hits is
// selected, even when a lone chunk of another document sits closer.
// Ties fall back to the smaller minimum distance, then to the
// lexicographically smaller URI so the choice is deterministic.
//
// Returns nil when hits is empty.
func selectDocument(hits []*core.SearchHit, contextChunks int) *selection {
	if len(hits) == 0 {
		return nil
	}

	votes := make(map[string]int)
	minDist := make(map[string]float64)
	for _, h := range hits {
		votes[h.DocURI]++
		if d, ok := minDist[h.DocURI]; !ok || h.Distance < d {
			minDist[h.DocURI] = h.Distance
		}
	}

	var best string
	for uri := range votes {
		if best == "" {
			best = uri
			continue
		}
		switch {
		case votes[uri] > votes[best]:
			best = uri
		case votes[uri] == votes[best] && minDist[uri] < minDist[best]:
			best = uri
		case votes[uri] == votes[best] && minDist[uri] == minDist[best] && uri < best:
			best = uri
		}
	}

	var docHits []*core.SearchHit
	for _, h := range hits {
		if h.DocURI == best {
			docHits = append(docHits, h)
		}
	}
	sort.SliceStable(docHits, func(i, j int) bool {
		return docHits[i].Distance < docHits[j].Distance
	})
	if len(docHits) > contextChunks {
		docHits = docHits[:contextChunks]
	}

	return &selection{
		DocURI:   best,
		Votes:    votes[best],
		BestDist: minDist[best],
		Hits:     docHits,
	}
}
