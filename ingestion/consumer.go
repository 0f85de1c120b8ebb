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


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage/badger"
)

const (
	defaultDeliveryAttempts = 3
	defaultDeliveryDelay    = time.Second
)

// Consumer processes ingest deliveries with bounded retries. A delivery
// that keeps failing transiently is parked in the dead-letter store
// instead of blocking the queue; non-transient failures park
// immediately since retrying cannot help.
type Consumer struct {
	pipeline    *Pipeline
	deadLetters *badger.DeadLetterStore
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// ConsumerOption customizes consumer construction.
type ConsumerOption func(*Consumer) error

// WithDeliveryRetry overrides the per-delivery retry policy.
func WithDeliveryRetry(maxAttempts int, baseDelay time.Duration) ConsumerOption {
	return func(c *Consumer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
		return nil
	}
}

// NewConsumer creates a delivery consumer over the pipeline and
// dead-letter store.
func NewConsumer(pipeline *Pipeline, deadLetters *badger.DeadLetterStore, opts ...ConsumerOption) (*Consumer, error) {
	c := &Consumer{
		pipeline:    pipeline,
		deadLetters: deadLetters,
		maxAttempts: defaultDeliveryAttempts,
		baseDelay:   defaultDeliveryDelay,
		logger:      slog.Default().With("component", "consumer"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Process handles one delivery. The returned Result is nil when the
// delivery was parked; the returned error reflects the final failure in
// that case so callers can log it. Context cancellation returns without
// parking so the delivery can be retried on the next run.
func (c *Consumer) Process(ctx context.Context, uri string) (*Result, error) {
	var (
		result   *Result
		finalErr error
	)
	attempts := 0

	retryErr := RetryWithBackoff(ctx, func() error {
		attempts++
		res, err := c.pipeline.IngestObject(ctx, uri)
		if err == nil {
			result = res
			finalErr = nil
			return nil
		}
		finalErr = err
		if core.IsTransient(err) {
			return err
		}
		// Retrying a permanent failure cannot help; stop the loop and
		// park below.
		return nil
	}, c.maxAttempts, c.baseDelay)

	if errors.Is(retryErr, context.Canceled) || errors.Is(retryErr, context.DeadlineExceeded) {
		return nil, retryErr
	}
	if finalErr == nil {
		return result, nil
	}

	id, parkErr := c.deadLetters.Park(&badger.ParkedMessage{
		URI:      uri,
		Reason:   finalErr.Error(),
		Attempts: attempts,
	})
	if parkErr != nil {
		c.logger.Error("failed to park delivery", "uri", uri, "err", parkErr)
		return nil, parkErr
	}
	c.logger.Warn("delivery parked", "uri", uri, "id", id, "attempts", attempts, "err", finalErr)
	return nil, finalErr
}

// Requeue reprocesses a parked delivery and removes it from the
// dead-letter store on success.
func (c *Consumer) Requeue(ctx context.Context, id string) (*Result, error) {
	msg, err := c.deadLetters.Get(id)
	if err != nil {
		return nil, err
	}

	result, err := c.pipeline.IngestObject(ctx, msg.URI)
	if err != nil {
		return nil, err
	}
	if err := c.deadLetters.Remove(id); err != nil {
		return nil, err
	}
	c.logger.Info("parked delivery requeued", "uri", msg.URI, "id", id)
	return result, nil
}
