// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package taskrouter

// TaskStatus represents the assignment status of a task.
type TaskStatus string

// Valid assignment statuses for a task.
const (
	TaskStatusReserved     TaskStatus = "reserved"
	TaskStatusAssigned     TaskStatus = "assigned"
	TaskStatusWrapping     TaskStatus = "wrapping"
	TaskStatusCompleted    TaskStatus = "completed"
	TaskStatusCanceled     TaskStatus = "canceled"
	TaskStatusTransferring TaskStatus = "transferring"
)

// Valid reports whether s is a known assignment status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusReserved, TaskStatusAssigned, TaskStatusWrapping,
		TaskStatusCompleted, TaskStatusCanceled, TaskStatusTransferring:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a terminal assignment status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCanceled
}

// TransferMode represents the handoff mode of a transfer.
type TransferMode string

// Valid transfer modes.
const (
	// TransferModeWarm keeps the caller connected during the handoff.
	TransferModeWarm TransferMode = "WARM"

	// TransferModeCold hands the task off immediately.
	TransferModeCold TransferMode = "COLD"
)

// Valid reports whether m is a known transfer mode.
func (m TransferMode) Valid() bool {
	return m == TransferModeWarm || m == TransferModeCold
}

// TransferStatus represents the state of a transfer leg.
type TransferStatus string

// Valid transfer statuses.
const (
	TransferStatusInitiated TransferStatus = "initiated"
	TransferStatusCanceled  TransferStatus = "canceled"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

// Valid reports whether s is a known transfer status.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferStatusInitiated, TransferStatusCanceled,
		TransferStatusCompleted, TransferStatusFailed:
		return true
	default:
		return false
	}
}
