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


// Package postgres implements the storage repositories on PostgreSQL
// with the pgvector extension. Chunk embeddings are stored in a
// vector(D) column and searched with the cosine distance operator
// through an ivfflat index.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/poiesic/corpusqa/storage"
)

// defaultQueryTimeout bounds every store call so a hung connection
// surfaces as a transient failure instead of blocking the caller.
const defaultQueryTimeout = 30 * time.Second

// Repository implements storage.DocumentRepository and
// storage.FeedbackRepository on a shared connection pool.
type Repository struct {
	pool         *pgxpool.Pool
	logger       *slog.Logger
	dim          int
	queryTimeout time.Duration
}

var (
	_ storage.DocumentRepository = (*Repository)(nil)
	_ storage.FeedbackRepository = (*Repository)(nil)
)

// NewRepository connects to PostgreSQL and returns a repository using
// embeddings of the given dimension. pgvector types are registered on
// every pooled connection.
func NewRepository(ctx context.Context, connString string, dimensions int) (*Repository, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", storage.ErrInvalidQuery)
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", classifyError(err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", classifyError(err))
	}

	return &Repository{
		pool:         pool,
		logger:       slog.Default().With("component", "postgres"),
		dim:          dimensions,
		queryTimeout: defaultQueryTimeout,
	}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// txKey marks a pgx transaction carried in a context.
type txKey struct{}

// querier is the subset of pgx operations shared by pools and
// transactions, so repository methods run unchanged inside either.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db returns the transaction bound to ctx, or the pool.
func (r *Repository) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

// opCtx derives the bounded child context for a single store call.
func (r *Repository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.queryTimeout)
}

// WithTransaction executes fn inside a database transaction. Repository
// calls made with the context passed to fn join the same transaction.
// Nested calls reuse the outer transaction.
func (r *Repository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, classifyError(err))
	}
	defer func() {
		// No-op once the transaction is committed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, classifyError(err))
	}
	return nil
}
