// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store. It is safe for
// concurrent use.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]*Snapshot
	nextID    uint
	closed    bool
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		snapshots: make(map[string][]*Snapshot),
	}
}

// Save appends a snapshot.
func (s *InMemoryStore) Save(_ context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snapshot.TaskSid == "" {
		return fmt.Errorf("snapshot task sid cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	s.nextID++
	stored := *snapshot
	stored.ID = s.nextID
	s.snapshots[snapshot.TaskSid] = append(s.snapshots[snapshot.TaskSid], &stored)
	return nil
}

// Latest returns the most recently recorded snapshot for a task.
func (s *InMemoryStore) Latest(_ context.Context, taskSid string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	history := s.snapshots[taskSid]
	if len(history) == 0 {
		return nil, ErrNotFound
	}

	latest := *history[len(history)-1]
	return &latest, nil
}

// History returns all snapshots for a task in recording order.
func (s *InMemoryStore) History(_ context.Context, taskSid string) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	history := s.snapshots[taskSid]
	out := make([]*Snapshot, len(history))
	for i, snapshot := range history {
		copied := *snapshot
		out[i] = &copied
	}
	return out, nil
}

// Close marks the store as closed. Subsequent saves fail.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
