// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/go-taskrouter/taskrouter"
	"github.com/go-taskrouter/taskrouter/store"
)

// Task owns one task's authoritative local state for the lifetime of a
// reservation. Command operations issue remote calls and reconcile local
// state from their responses; push notifications enter through Dispatch.
// Both paths mutate state under the task's own lock, so reconciliation is
// mutually exclusive but deliberately unordered: correctness rests on
// idempotent, wholesale-replace reconciliation, not sequencing.
type Task struct {
	requests RequestHandler
	routes   *RouteTable
	logger   *slog.Logger
	store    store.Store

	sid            string
	reservationSid string

	mu                    sync.Mutex
	attributes            map[string]any
	status                taskrouter.TaskStatus
	workflowSid           string
	workflowName          string
	queueSid              string
	queueName             string
	priority              int
	reason                string
	routingTarget         string
	timeout               int
	taskChannelSid        string
	taskChannelUniqueName string
	age                   int
	addons                map[string]any
	dateUpdated           time.Time

	transfers *TransferSet

	handlersMu sync.Mutex
	handlers   []Handler
}

// TaskConfig holds configuration for creating a Task.
type TaskConfig struct {
	// Requests executes the task's remote commands.
	Requests RequestHandler

	// Routes resolves resource paths for the task's workspace and worker.
	Routes *RouteTable

	// ReservationSid is the reservation context under which this task
	// instance was obtained. Immutable after construction.
	ReservationSid string

	// Descriptor is the initial server payload the task is built from.
	Descriptor *taskrouter.TaskDescriptor

	// Logger is used for diagnostics. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Store, if set, records an immutable snapshot of the task after every
	// successful reconciliation.
	Store store.Store
}

// NewTask creates a Task with the given configuration.
func NewTask(config TaskConfig) (*Task, error) {
	if config.Requests == nil {
		return nil, taskrouter.NewInvalidArgument("request handler cannot be nil")
	}
	if config.Routes == nil {
		return nil, taskrouter.NewInvalidArgument("route table cannot be nil")
	}
	if config.ReservationSid == "" {
		return nil, taskrouter.NewInvalidArgument("reservation sid cannot be empty")
	}
	if config.Descriptor == nil {
		return nil, taskrouter.NewInvalidArgument("task descriptor cannot be nil")
	}
	if err := config.Descriptor.Validate(); err != nil {
		return nil, taskrouter.NewInvalidArgument(err.Error())
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &Task{
		requests:       config.Requests,
		routes:         config.Routes,
		logger:         logger,
		store:          config.Store,
		sid:            config.Descriptor.Sid,
		reservationSid: config.ReservationSid,
	}
	t.transfers = newTransferSet(logger, t.emit)
	t.applyDescriptor(config.Descriptor)
	return t, nil
}

// Sid returns the task sid. Immutable after construction.
func (t *Task) Sid() string {
	return t.sid
}

// ReservationSid returns the reservation context the task was obtained
// under. Immutable after construction.
func (t *Task) ReservationSid() string {
	return t.reservationSid
}

// Status returns the task's assignment status.
func (t *Task) Status() taskrouter.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Attributes returns a copy of the task's attributes.
func (t *Task) Attributes() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.attributes)
}

// Priority returns the task's priority.
func (t *Task) Priority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

// Reason returns the task's completion or wrap-up reason.
func (t *Task) Reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Queue returns the task's queue sid and name.
func (t *Task) Queue() (sid, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queueSid, t.queueName
}

// Workflow returns the task's workflow sid and name.
func (t *Task) Workflow() (sid, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.workflowSid, t.workflowName
}

// RoutingTarget returns the sid of the worker or queue the task was
// routed toward.
func (t *Task) RoutingTarget() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.routingTarget
}

// Timeout returns the task's timeout in seconds.
func (t *Task) Timeout() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// TaskChannel returns the task's channel sid and unique name.
func (t *Task) TaskChannel() (sid, uniqueName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskChannelSid, t.taskChannelUniqueName
}

// Addons returns a copy of the task's add-on data.
func (t *Task) Addons() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.addons)
}

// Age returns the task's age in seconds as of the last reconciliation.
func (t *Task) Age() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.age
}

// DateUpdated returns the time the task was last updated at the server.
func (t *Task) DateUpdated() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dateUpdated
}

// Transfers returns the task's transfer set.
func (t *Task) Transfers() *TransferSet {
	return t.transfers
}

// Subscribe registers a handler for the task's domain events.
func (t *Task) Subscribe(handler Handler) {
	if handler == nil {
		return
	}
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// emit delivers an event to every subscribed handler. Transfer events
// arrive with the transfer set; the task reference is filled in here.
func (t *Task) emit(ev Event) {
	ev.Task = t

	t.handlersMu.Lock()
	handlers := make([]Handler, len(t.handlers))
	copy(handlers, t.handlers)
	t.handlersMu.Unlock()

	for _, handler := range handlers {
		handler(ev)
	}
}

// Complete marks the task as completed with the given reason.
func (t *Task) Complete(ctx context.Context, reason string) error {
	if reason == "" {
		return taskrouter.NewInvalidArgument("completion reason cannot be empty")
	}

	return t.command(ctx, RouteTaskInstance, []string{t.sid}, map[string]any{
		"AssignmentStatus": taskrouter.TaskStatusCompleted,
		"Reason":           reason,
	}, APIVersionV1)
}

// WrapUpOptions are the optional parameters for WrapUp.
type WrapUpOptions struct {
	// Reason, if non-empty, is recorded as the wrap-up reason.
	Reason string
}

// WrapUp moves the task into the wrapping status.
func (t *Task) WrapUp(ctx context.Context, opts *WrapUpOptions) error {
	params := map[string]any{
		"AssignmentStatus": taskrouter.TaskStatusWrapping,
	}
	if opts != nil && opts.Reason != "" {
		params["Reason"] = opts.Reason
	}

	return t.command(ctx, RouteTaskInstance, []string{t.sid}, params, APIVersionV1)
}

// SetAttributes replaces the task's attributes at the server. The replace
// is wholesale, not a merge.
func (t *Task) SetAttributes(ctx context.Context, attrs map[string]any) error {
	if attrs == nil {
		return taskrouter.NewInvalidArgument("attributes must be a structured object")
	}

	return t.command(ctx, RouteTaskInstance, []string{t.sid}, map[string]any{
		"Attributes": attrs,
	}, APIVersionV1)
}

// participantOptions is the recognized-option schema for UpdateParticipant.
var participantOptions = map[string]func(any) bool{
	"hold": func(v any) bool { _, ok := v.(bool); return ok },
}

// UpdateParticipant updates the customer leg of the conference tied to this
// task. Options are validated against the recognized-option schema; an
// unrecognized key or a wrongly-typed value fails with InvalidArgument
// before any request is sent.
func (t *Task) UpdateParticipant(ctx context.Context, options map[string]any) error {
	if len(options) == 0 {
		return taskrouter.NewInvalidArgument("participant options cannot be empty")
	}
	for key, value := range options {
		check, ok := participantOptions[key]
		if !ok {
			return taskrouter.NewInvalidArgument(fmt.Sprintf("unrecognized participant option %q", key))
		}
		if !check(value) {
			return taskrouter.NewInvalidArgument(fmt.Sprintf("invalid value for participant option %q", key))
		}
	}

	params := make(map[string]any, len(options))
	if hold, ok := options["hold"]; ok {
		params["Hold"] = hold
	}

	return t.command(ctx, RouteCustomerParticipant, []string{t.sid}, params, APIVersionV2)
}

// Kick removes a specific worker leg from the conference tied to this task.
func (t *Task) Kick(ctx context.Context, workerSid string) error {
	if workerSid == "" {
		return taskrouter.NewInvalidArgument("worker sid cannot be empty")
	}

	return t.command(ctx, RouteKickWorkerParticipant, []string{t.sid}, map[string]any{
		"TargetWorkerSid": workerSid,
	}, APIVersionV2)
}

// Hold holds or unholds a specific worker leg of the conference tied to
// this task.
func (t *Task) Hold(ctx context.Context, targetWorkerSid string, onHold bool) error {
	if targetWorkerSid == "" {
		return taskrouter.NewInvalidArgument("target worker sid cannot be empty")
	}

	return t.command(ctx, RouteHoldWorkerParticipant, []string{t.sid}, map[string]any{
		"TargetWorkerSid": targetWorkerSid,
		"Hold":            onHold,
	}, APIVersionV2)
}

// TransferOptions are the optional parameters for Transfer. Each field is
// included in the request only if present.
type TransferOptions struct {
	// Attributes replace the task attributes for the transferred task.
	Attributes map[string]any

	// Mode selects a warm or cold handoff.
	Mode taskrouter.TransferMode

	// Priority overrides the task priority for the transferred task.
	Priority *int
}

// Transfer initiates a transfer of the task to another worker or queue.
// On success the response describes the transfer, not the task, so it
// replaces the outgoing transfer directly instead of reconciling the task.
func (t *Task) Transfer(ctx context.Context, to string, opts *TransferOptions) error {
	if to == "" {
		return taskrouter.NewInvalidArgument("transfer target cannot be empty")
	}

	params := map[string]any{
		"ReservationSid": t.reservationSid,
		"TaskSid":        t.sid,
		"To":             to,
	}
	if opts != nil {
		if opts.Attributes != nil {
			params["Attributes"] = opts.Attributes
		}
		if opts.Mode != "" {
			if !opts.Mode.Valid() {
				return taskrouter.NewInvalidArgument(fmt.Sprintf("invalid transfer mode %q", opts.Mode))
			}
			params["Mode"] = opts.Mode
		}
		if opts.Priority != nil {
			params["Priority"] = *opts.Priority
		}
	}

	path, err := t.routes.Resolve(RouteTaskTransferList, t.sid)
	if err != nil {
		return err
	}

	resp, err := t.requests.Post(ctx, path, params, APIVersionV2)
	if err != nil {
		return err
	}

	desc, err := taskrouter.ParseTransferDescriptor(resp)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to reconcile transfer response",
			"task_sid", t.sid, "error", err)
		return taskrouter.NewReconciliationFailed(t.sid, err)
	}

	t.transfers.ApplyOutgoing(desc)
	return nil
}

// command resolves the route, sends the request, and reconciles the task
// from the response. On failure local state is left exactly as it was.
func (t *Task) command(ctx context.Context, route string, args []string, params map[string]any, version APIVersion) error {
	path, err := t.routes.Resolve(route, args...)
	if err != nil {
		return err
	}

	resp, err := t.requests.Post(ctx, path, params, version)
	if err != nil {
		return err
	}

	if err := t.Reconcile(ctx, resp, nil); err != nil {
		return err
	}

	t.emit(Event{Type: EventUpdated})
	return nil
}

// Reconcile overwrites the task's fields wholesale from an authoritative
// server payload. Parse failure is a hard failure: the error is surfaced
// with the offending sid and prior state is left untouched. Everything is
// parsed before anything is applied, so a malformed transfer sub-payload
// cannot leave the task half-updated. Transfers are merged only if updates
// carries a sub-payload, so a task-only update leaves in-flight transfer
// state undisturbed.
func (t *Task) Reconcile(ctx context.Context, payload []byte, updates *TransferUpdates) error {
	desc, err := taskrouter.ParseTaskDescriptor(payload)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to reconcile task",
			"task_sid", t.sid, "error", err)
		return taskrouter.NewReconciliationFailed(t.sid, err)
	}
	if desc.Sid != t.sid {
		err := fmt.Errorf("payload sid %q does not match task sid %q", desc.Sid, t.sid)
		t.logger.ErrorContext(ctx, "failed to reconcile task",
			"task_sid", t.sid, "error", err)
		return taskrouter.NewReconciliationFailed(t.sid, err)
	}

	incoming, outgoing, err := updates.parse()
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to reconcile task",
			"task_sid", t.sid, "error", err)
		return taskrouter.NewReconciliationFailed(t.sid, err)
	}

	t.applyDescriptor(desc)
	t.transfers.merge(incoming, outgoing)

	t.record(ctx)
	return nil
}

// applyDescriptor copies the fixed update set onto the task. Every field is
// overwritten unconditionally with the descriptor's value.
func (t *Task) applyDescriptor(desc *taskrouter.TaskDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attributes = desc.Attributes
	t.status = desc.Status
	t.workflowSid = desc.WorkflowSid
	t.workflowName = desc.WorkflowName
	t.queueSid = desc.QueueSid
	t.queueName = desc.QueueName
	t.priority = desc.Priority
	t.reason = desc.Reason
	t.routingTarget = desc.RoutingTarget
	t.timeout = desc.Timeout
	t.taskChannelSid = desc.TaskChannelSid
	t.taskChannelUniqueName = desc.TaskChannelUniqueName
	t.age = desc.Age
	t.addons = desc.Addons
	t.dateUpdated = desc.DateUpdated
}

// record saves an immutable snapshot of the task when a store is
// configured. Snapshot failures are logged, never surfaced: snapshotting
// is auxiliary to reconciliation.
func (t *Task) record(ctx context.Context) {
	if t.store == nil {
		return
	}

	t.mu.Lock()
	snapshot := &store.Snapshot{
		TaskSid:        t.sid,
		ReservationSid: t.reservationSid,
		Status:         string(t.status),
		Priority:       t.priority,
		Reason:         t.reason,
		Age:            t.age,
		QueueSid:       t.queueSid,
		WorkflowSid:    t.workflowSid,
		DateUpdated:    t.dateUpdated,
		RecordedAt:     time.Now().UTC(),
	}
	if len(t.attributes) > 0 {
		if data, err := sonic.ConfigFastest.Marshal(t.attributes); err == nil {
			snapshot.Attributes = string(data)
		}
	}
	t.mu.Unlock()

	if err := t.store.Save(ctx, snapshot); err != nil {
		t.logger.WarnContext(ctx, "failed to record task snapshot",
			"task_sid", t.sid, "error", err)
	}
}

// Dispatch is the sole ingress point for push notifications. Transfer-
// classified events are routed through the transfer set's identity-checked
// merge; every other event reconciles the task's fields from the payload
// and emits the event type with the task as payload.
func (t *Task) Dispatch(ctx context.Context, eventType string, payload []byte) error {
	if eventType == "" {
		return taskrouter.NewInvalidArgument("event type cannot be empty")
	}
	if len(payload) == 0 {
		return taskrouter.NewInvalidArgument("event payload cannot be empty")
	}

	if isTransferEvent(eventType) {
		return t.transfers.handleEvent(eventType, payload)
	}

	desc, err := taskrouter.ParseTaskDescriptor(payload)
	if err != nil {
		return &taskrouter.Error{
			Code:    taskrouter.ErrCodeInvalidArgument,
			Message: "malformed event payload",
			Cause:   err,
		}
	}
	if desc.Sid != t.sid {
		t.logger.Debug("dropping task event for unknown sid",
			"event_type", eventType, "task_sid", desc.Sid)
		return nil
	}

	t.applyDescriptor(desc)
	t.record(ctx)

	t.emit(Event{Type: EventType(eventType)})
	return nil
}
