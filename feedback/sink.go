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


// Package feedback records human ratings of answers. Records are
// append-only: they are stored verbatim and never updated, so the log
// remains a faithful account of what users actually saw and said.
package feedback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

// ErrRepositoryRequired indicates a nil feedback repository.
var ErrRepositoryRequired = errors.New("feedback repository is required")

// Sink validates and appends feedback records.
type Sink struct {
	repo   storage.FeedbackRepository
	logger *slog.Logger
}

// NewSink creates a feedback sink over the repository.
func NewSink(repo storage.FeedbackRepository) (*Sink, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	return &Sink{
		repo:   repo,
		logger: slog.Default().With("component", "feedback"),
	}, nil
}

// Submit appends one feedback record. Only the rating is validated;
// query, answer, and notes are stored exactly as given. A missing
// session ID gets a generated one so related records can be grouped.
func (s *Sink) Submit(ctx context.Context, fb *core.Feedback) (*core.Feedback, error) {
	if err := core.ValidateFeedback(fb); err != nil {
		return nil, err
	}

	record := *fb
	if record.SessionId == "" {
		record.SessionId = uuid.NewString()
	}

	stored, err := s.repo.AddFeedback(ctx, &record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("feedback recorded", "session", stored.SessionId, "rating", int(stored.Rating))
	return stored, nil
}

// Recent returns the latest feedback records, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]*core.Feedback, error) {
	return s.repo.ListFeedback(ctx, limit)
}
