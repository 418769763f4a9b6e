// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-taskrouter/taskrouter"
)

// Transfer represents one leg of the transfer sub-protocol: a task being
// moved from one worker or queue to another.
type Transfer struct {
	mu sync.RWMutex

	sid            string
	mode           taskrouter.TransferMode
	status         taskrouter.TransferStatus
	to             string
	transferType   string
	workerSid      string
	reservationSid string
	queueSid       string
	dateCreated    time.Time
	dateUpdated    time.Time
}

// newTransfer builds a Transfer from a validated descriptor.
func newTransfer(desc *taskrouter.TransferDescriptor) *Transfer {
	return &Transfer{
		sid:            desc.Sid,
		mode:           desc.Mode,
		status:         desc.Status,
		to:             desc.To,
		transferType:   desc.Type,
		workerSid:      desc.WorkerSid,
		reservationSid: desc.ReservationSid,
		queueSid:       desc.QueueSid,
		dateCreated:    desc.DateCreated,
		dateUpdated:    desc.DateUpdated,
	}
}

// Sid returns the transfer sid. Immutable after construction.
func (t *Transfer) Sid() string {
	return t.sid
}

// Mode returns the transfer mode.
func (t *Transfer) Mode() taskrouter.TransferMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// Status returns the transfer status.
func (t *Transfer) Status() taskrouter.TransferStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// To returns the identity of the other leg of the transfer.
func (t *Transfer) To() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.to
}

// Type returns the transfer type, distinguishing worker and queue
// transfers. Immutable after construction.
func (t *Transfer) Type() string {
	return t.transferType
}

// ReservationSid returns the sid of the reservation the transfer was
// initiated under. Immutable after construction.
func (t *Transfer) ReservationSid() string {
	return t.reservationSid
}

// QueueSid returns the sid of the queue the transfer targets. Immutable
// after construction.
func (t *Transfer) QueueSid() string {
	return t.queueSid
}

// DateCreated returns the time the transfer was created. Immutable after
// construction.
func (t *Transfer) DateCreated() time.Time {
	return t.dateCreated
}

// WorkerSid returns the sid of the worker that initiated the transfer.
func (t *Transfer) WorkerSid() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.workerSid
}

// DateUpdated returns the time the transfer was last updated.
func (t *Transfer) DateUpdated() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dateUpdated
}

// apply overwrites the transfer's mutable fields from desc.
func (t *Transfer) apply(desc *taskrouter.TransferDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = desc.Status
	t.mode = desc.Mode
	t.to = desc.To
	t.dateUpdated = desc.DateUpdated
}

// TransferUpdates carries the optional incoming and outgoing transfer
// sub-payloads of a reconciliation call. A nil slot leaves the
// corresponding transfer untouched.
type TransferUpdates struct {
	Incoming []byte
	Outgoing []byte
}

// empty reports whether the update carries no sub-payloads.
func (u *TransferUpdates) empty() bool {
	return u == nil || (len(u.Incoming) == 0 && len(u.Outgoing) == 0)
}

// parse validates both sub-payloads without touching any state. A nil
// slot parses to a nil descriptor.
func (u *TransferUpdates) parse() (incoming, outgoing *taskrouter.TransferDescriptor, err error) {
	if u.empty() {
		return nil, nil, nil
	}
	if len(u.Incoming) > 0 {
		incoming, err = taskrouter.ParseTransferDescriptor(u.Incoming)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(u.Outgoing) > 0 {
		outgoing, err = taskrouter.ParseTransferDescriptor(u.Outgoing)
		if err != nil {
			return nil, nil, err
		}
	}
	return incoming, outgoing, nil
}

// TransferSet owns the transfer sub-protocol state of one Task: at most one
// incoming and at most one outgoing transfer at any time. Events pertaining
// to a transfer are applied only if their sid matches a currently-held
// transfer; stale or cross-task events are logged and dropped.
type TransferSet struct {
	mu       sync.Mutex
	logger   *slog.Logger
	emit     func(Event)
	incoming *Transfer
	outgoing *Transfer
}

// newTransferSet creates a TransferSet that emits domain events through emit.
func newTransferSet(logger *slog.Logger, emit func(Event)) *TransferSet {
	return &TransferSet{
		logger: logger,
		emit:   emit,
	}
}

// Incoming returns the held incoming transfer, or nil.
func (ts *TransferSet) Incoming() *Transfer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.incoming
}

// Outgoing returns the held outgoing transfer, or nil.
func (ts *TransferSet) Outgoing() *Transfer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.outgoing
}

// ApplyOutgoing replaces the outgoing slot with a transfer built from desc
// and returns the new transfer. Called after a successful transfer command
// and when an event confirms an in-flight outgoing transfer.
func (ts *TransferSet) ApplyOutgoing(desc *taskrouter.TransferDescriptor) *Transfer {
	transfer := newTransfer(desc)
	ts.mu.Lock()
	ts.outgoing = transfer
	ts.mu.Unlock()
	return transfer
}

// merge replaces the slots that have pre-parsed descriptors. A nil
// descriptor leaves its slot untouched.
func (ts *TransferSet) merge(incoming, outgoing *taskrouter.TransferDescriptor) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if incoming != nil {
		ts.incoming = newTransfer(incoming)
	}
	if outgoing != nil {
		ts.outgoing = newTransfer(outgoing)
	}
}

// handleEvent applies a transfer-scoped push event. Events whose sid does
// not match a currently-held transfer are dropped with a diagnostic log
// entry; that is policy, not a failure. Only the initiated-classified path
// may replace the outgoing transfer from an event.
func (ts *TransferSet) handleEvent(eventType string, payload []byte) error {
	desc, err := taskrouter.ParseTransferDescriptor(payload)
	if err != nil {
		return &taskrouter.Error{
			Code:    taskrouter.ErrCodeInvalidArgument,
			Message: "malformed transfer event payload",
			Cause:   err,
		}
	}

	domainEvent := transferEvents[eventType]

	ts.mu.Lock()

	if eventType == wireTransferInitiated {
		if ts.outgoing == nil || ts.outgoing.Sid() != desc.Sid {
			ts.mu.Unlock()
			ts.logger.Debug("dropping transfer event for unknown sid",
				"event_type", eventType, "transfer_sid", desc.Sid)
			return nil
		}
		transfer := newTransfer(desc)
		ts.outgoing = transfer
		ts.mu.Unlock()

		ts.emit(Event{Type: domainEvent, Transfer: transfer})
		return nil
	}

	target := ts.match(desc.Sid)
	if target == nil {
		ts.mu.Unlock()
		ts.logger.Debug("dropping transfer event for unknown sid",
			"event_type", eventType, "transfer_sid", desc.Sid)
		return nil
	}
	ts.mu.Unlock()

	target.apply(desc)
	ts.emit(Event{Type: domainEvent, Transfer: target})
	return nil
}

// match returns the held transfer with the given sid, or nil. Caller holds
// the set lock.
func (ts *TransferSet) match(sid string) *Transfer {
	if ts.outgoing != nil && ts.outgoing.Sid() == sid {
		return ts.outgoing
	}
	if ts.incoming != nil && ts.incoming.Sid() == sid {
		return ts.incoming
	}
	return nil
}
