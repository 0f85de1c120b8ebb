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


package badger

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/poiesic/corpusqa/storage"
)

const deadLetterPrefix = "deadletter:"

// ParkedMessage is an ingest delivery that exhausted its attempts.
// Records are stored as JSON so operators can inspect them with any
// Badger tooling, not just the CLI.
type ParkedMessage struct {
	Id        string    `json:"id"`
	URI       string    `json:"uri"`
	Reason    string    `json:"reason"`
	Attempts  int       `json:"attempts"`
	ParkedAt  time.Time `json:"parked_at"`
	FirstSeen time.Time `json:"first_seen,omitempty"`
}

// DeadLetterStore persists parked ingest messages in BadgerDB.
type DeadLetterStore struct {
	backend *Backend
}

// NewDeadLetterStore creates a store on the given backend.
func NewDeadLetterStore(backend *Backend) *DeadLetterStore {
	return &DeadLetterStore{backend: backend}
}

func deadLetterKey(id string) []byte {
	return []byte(deadLetterPrefix + id)
}

// Park stores a failed delivery and returns its assigned ID.
// The original message is kept intact so it can be requeued later.
func (s *DeadLetterStore) Park(msg *ParkedMessage) (string, error) {
	if msg.URI == "" {
		return "", fmt.Errorf("%w: parked message needs a URI", storage.ErrInvalidQuery)
	}

	stored := *msg
	stored.Id = uuid.NewString()
	if stored.ParkedAt.IsZero() {
		stored.ParkedAt = time.Now().UTC()
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("marshal parked message: %w", err)
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(deadLetterKey(stored.Id), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", fmt.Errorf("park message for %q: %w", msg.URI, err)
	}
	return stored.Id, nil
}

// Get retrieves a parked message by ID.
// Returns storage.ErrNotFound if no such message exists.
func (s *DeadLetterStore) Get(id string) (*ParkedMessage, error) {
	var msg *ParkedMessage
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(deadLetterKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("parked message %q: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			msg = &ParkedMessage{}
			return json.Unmarshal(val, msg)
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns all parked messages, oldest first.
func (s *DeadLetterStore) List() ([]*ParkedMessage, error) {
	var msgs []*ParkedMessage
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(deadLetterPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				msg := &ParkedMessage{}
				if err := json.Unmarshal(val, msg); err != nil {
					return fmt.Errorf("unmarshal parked message: %w", err)
				}
				msgs = append(msgs, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].ParkedAt.Before(msgs[j].ParkedAt)
	})
	return msgs, nil
}

// Remove deletes a parked message, typically after a successful requeue.
// Returns storage.ErrNotFound if no such message exists.
func (s *DeadLetterStore) Remove(id string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(deadLetterKey(id)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("parked message %q: %w", id, storage.ErrNotFound)
		} else if err != nil {
			return err
		}
		if err := tx.Delete(deadLetterKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
