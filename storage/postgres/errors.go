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
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

// classifyError maps driver failures onto the shared taxonomy so
// callers can tell a store outage from a bad request. Timeouts,
// network failures, and the PostgreSQL connection (08), resource (53),
// and shutdown (57) SQLSTATE classes become core.ErrStoreUnavailable,
// which core.IsTransient treats as retryable. A unique violation
// becomes storage.ErrDuplicateKey. Everything else passes through.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.Message)
		}
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "53", "57":
				return fmt.Errorf("%w: %s", core.ErrStoreUnavailable, pgErr.Message)
			}
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	return err
}
