// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists proofs and the configurations that produced them.
//
// Records are kept as JSON in BadgerDB under "proof/<uuid>". Proofs are
// stored as skeletons (methods and case names only); systems are not
// serialisable in general and are re-derived with proof.CheckProof when a
// proof is loaded against a solver.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianProver/services/prover/proof"
	"github.com/AleutianAI/AleutianProver/services/prover/prover"
	pbadger "github.com/AleutianAI/AleutianProver/services/prover/storage/badger"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("proof record not found")

const keyPrefix = "proof/"

func recordKey(id uuid.UUID) []byte {
	return []byte(keyPrefix + id.String())
}

// Record is a persisted proof.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Status is the status of the proof when it was stored.
	Status proof.Status `json:"status"`

	// Config describes the automatic prover that generated the proof, if
	// any.
	Config *prover.AutoProverConfig `json:"config,omitempty"`

	// Proof is the proof skeleton.
	Proof *proof.Incremental `json:"proof"`
}

// Store reads and writes proof records.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *pbadger.DB
	logger *slog.Logger
	now    func() time.Time
}

// New creates a store on an open database. The store does not own db.
func New(db *pbadger.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithLogger sets the logger.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	s.logger = logger
	return s
}

// Put stores rec and returns its ID.
//
// Description:
//
//	A nil ID is replaced with a fresh random one and a zero CreatedAt with
//	the current time. Status is recomputed from the proof before it is
//	reduced to its skeleton, so the proof must be finite. Putting an
//	existing ID replaces the record.
//
// Inputs:
//   - ctx: Cancels the write.
//   - rec: The record. rec.Proof must not be nil.
//
// Outputs:
//   - uuid.UUID: The record ID.
//   - error: Non-nil if encoding or the write fails.
func (s *Store) Put(ctx context.Context, rec Record) (uuid.UUID, error) {
	if rec.Proof == nil {
		return uuid.Nil, errors.New("record has no proof")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.Status = proof.IncrementalStatus(rec.Proof)
	rec.Proof = proof.Skeleton(rec.Proof)

	data, err := json.Marshal(rec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("write record %s: %w", rec.ID, err)
	}

	s.logger.Debug("proof stored",
		slog.String("id", rec.ID.String()),
		slog.String("name", rec.Name),
		slog.String("status", rec.Status.String()),
		slog.Int("bytes", len(data)),
	)
	return rec.ID, nil
}

// Get loads the record with the given ID.
//
// Outputs:
//   - Record: The record; its proof carries no systems.
//   - error: Wraps ErrNotFound if there is no such record.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var rec Record
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return Record{}, fmt.Errorf("read record %s: %w", id, err)
	}
	return rec, nil
}

// List returns every record, oldest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var records []Record
	err := s.db.ScanPrefix(ctx, []byte(keyPrefix), func(key, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes the record with the given ID.
//
// Outputs:
//   - error: Wraps ErrNotFound if there is no such record.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		key := recordKey(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	s.logger.Debug("proof deleted", slog.String("id", id.String()))
	return nil
}

// Replay re-derives the systems of a stored proof by replaying it against
// sys with solver s. Cases the stored proof does not cover are left as
// Sorry("unhandled case").
func Replay(s proof.Solver, sys proof.System, rec Record) *proof.Incremental {
	out, _ := prover.CheckAndExtend(prover.Fail())(s, 0, sys, rec.Proof)
	return out
}
