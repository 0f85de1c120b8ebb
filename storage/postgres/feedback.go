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

	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

// AddFeedback appends a feedback record. Rows are never updated or
// deleted; repeated submissions accumulate.
func (r *Repository) AddFeedback(ctx context.Context, fb *core.Feedback) (*core.Feedback, error) {
	if err := core.ValidateFeedback(fb); err != nil {
		return nil, err
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	stored := *fb
	err := r.db(ctx).QueryRow(ctx, `
		INSERT INTO feedback (session_id, query, answer, rating, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		fb.SessionId, fb.Query, fb.Answer, int(fb.Rating), fb.Notes,
	).Scan(&stored.Id, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add feedback: %w", classifyError(err))
	}
	return &stored, nil
}

// ListFeedback returns feedback records, most recent first.
func (r *Repository) ListFeedback(ctx context.Context, limit int) ([]*core.Feedback, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	rows, err := r.db(ctx).Query(ctx, `
		SELECT id, session_id, query, answer, rating, notes, created_at
		FROM feedback ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", classifyError(err))
	}
	defer rows.Close()

	var records []*core.Feedback
	for rows.Next() {
		fb := &core.Feedback{}
		var rating int
		if err := rows.Scan(&fb.Id, &fb.SessionId, &fb.Query, &fb.Answer, &rating, &fb.Notes, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.Rating = core.Rating(rating)
		records = append(records, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list feedback: %w", classifyError(err))
	}
	return records, nil
}
