// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists immutable snapshots of reconciled task state.
// A snapshot is recorded after every successful reconciliation, giving
// callers a local, append-only record of how a task's server-authoritative
// fields evolved over the lifetime of a reservation.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no snapshot exists for a task.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is an immutable record of a task's reconciled state at one
// point in time.
type Snapshot struct {
	ID             uint      `gorm:"primarykey"`
	TaskSid        string    `gorm:"index"`
	ReservationSid string
	Status         string
	Attributes     string
	Priority       int
	Reason         string
	Age            int
	QueueSid       string
	WorkflowSid    string
	DateUpdated    time.Time
	RecordedAt     time.Time `gorm:"index"`
}

// Store persists task snapshots.
type Store interface {
	// Save appends a snapshot.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Latest returns the most recently recorded snapshot for a task.
	// Returns ErrNotFound if no snapshot exists.
	Latest(ctx context.Context, taskSid string) (*Snapshot, error)

	// History returns all snapshots for a task in recording order.
	History(ctx context.Context, taskSid string) ([]*Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
