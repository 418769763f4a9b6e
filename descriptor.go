// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package taskrouter

import (
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// TaskDescriptor is a validated, typed projection of a raw task payload.
// It carries the fixed field set that reconciliation copies onto a live
// task entity.
type TaskDescriptor struct {
	Sid                   string         `json:"sid"`
	Status                TaskStatus     `json:"assignment_status"`
	Attributes            map[string]any `json:"-"`
	WorkflowSid           string         `json:"workflow_sid,omitzero"`
	WorkflowName          string         `json:"workflow_name,omitzero"`
	QueueSid              string         `json:"task_queue_sid,omitzero"`
	QueueName             string         `json:"task_queue_name,omitzero"`
	Priority              int            `json:"priority,omitzero"`
	Reason                string         `json:"reason,omitzero"`
	RoutingTarget         string         `json:"routing_target,omitzero"`
	Timeout               int            `json:"timeout,omitzero"`
	TaskChannelSid        string         `json:"task_channel_sid,omitzero"`
	TaskChannelUniqueName string         `json:"task_channel_unique_name,omitzero"`
	Age                   int            `json:"age,omitzero"`
	Addons                map[string]any `json:"-"`
	DateUpdated           time.Time      `json:"date_updated,omitzero"`
}

// taskWire mirrors TaskDescriptor on the wire. Attributes and add-ons may
// arrive either as a JSON object or as a JSON-encoded string, so they are
// decoded in a second pass.
type taskWire struct {
	TaskDescriptor
	RawAttributes jsontext.Value `json:"attributes,omitzero"`
	RawAddons     jsontext.Value `json:"addons,omitzero"`
}

// ParseTaskDescriptor parses raw into a validated TaskDescriptor.
func ParseTaskDescriptor(raw []byte) (*TaskDescriptor, error) {
	var wire taskWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding task payload: %w", err)
	}

	desc := wire.TaskDescriptor

	attrs, err := decodeObject(wire.RawAttributes)
	if err != nil {
		return nil, fmt.Errorf("decoding task attributes: %w", err)
	}
	desc.Attributes = attrs

	addons, err := decodeObject(wire.RawAddons)
	if err != nil {
		return nil, fmt.Errorf("decoding task add-ons: %w", err)
	}
	desc.Addons = addons

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Validate ensures the TaskDescriptor is valid.
func (d *TaskDescriptor) Validate() error {
	if d.Sid == "" {
		return fmt.Errorf("task descriptor sid cannot be empty")
	}
	if !d.Status.Valid() {
		return fmt.Errorf("invalid assignment status %q for task %s", d.Status, d.Sid)
	}
	return nil
}

// TransferDescriptor is a validated, typed projection of a raw transfer
// payload.
type TransferDescriptor struct {
	Sid            string         `json:"sid"`
	Mode           TransferMode   `json:"transfer_mode"`
	Status         TransferStatus `json:"transfer_status"`
	To             string         `json:"transfer_to,omitzero"`
	Type           string         `json:"transfer_type,omitzero"`
	WorkerSid      string         `json:"initiating_worker_sid,omitzero"`
	ReservationSid string         `json:"initiating_reservation_sid,omitzero"`
	QueueSid       string         `json:"initiating_queue_sid,omitzero"`
	DateCreated    time.Time      `json:"date_created,omitzero"`
	DateUpdated    time.Time      `json:"date_updated,omitzero"`
}

// ParseTransferDescriptor parses raw into a validated TransferDescriptor.
func ParseTransferDescriptor(raw []byte) (*TransferDescriptor, error) {
	var desc TransferDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("decoding transfer payload: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Validate ensures the TransferDescriptor is valid.
func (d *TransferDescriptor) Validate() error {
	if d.Sid == "" {
		return fmt.Errorf("transfer descriptor sid cannot be empty")
	}
	if !d.Mode.Valid() {
		return fmt.Errorf("invalid transfer mode %q for transfer %s", d.Mode, d.Sid)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("invalid transfer status %q for transfer %s", d.Status, d.Sid)
	}
	return nil
}

// decodeObject decodes a wire value that is either a JSON object or a
// JSON-encoded string holding an object. A zero value decodes to nil.
func decodeObject(raw jsontext.Value) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		raw = jsontext.Value(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
