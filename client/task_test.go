// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-taskrouter/taskrouter"
)

const (
	testTaskSid        = "WT0123456789abcdef0123456789abcdef"
	testReservationSid = "WR0123456789abcdef0123456789abcdef"
	testTransferSid    = "TR0123456789abcdef0123456789abcdef"
)

// fakeRequests is a RequestHandler that records the last request and
// returns a canned response.
type fakeRequests struct {
	calls       int
	lastPath    string
	lastParams  map[string]any
	lastVersion APIVersion
	response    []byte
	err         error
}

func (f *fakeRequests) Post(_ context.Context, path string, params map[string]any, version APIVersion) ([]byte, error) {
	f.calls++
	f.lastPath = path
	f.lastParams = params
	f.lastVersion = version
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

// taskPayload builds a task payload for testTaskSid with the given status
// and extra top-level fields.
func taskPayload(status taskrouter.TaskStatus, extra string) []byte {
	payload := fmt.Sprintf(`{"sid": %q, "assignment_status": %q`, testTaskSid, status)
	if extra != "" {
		payload += ", " + extra
	}
	return []byte(payload + "}")
}

func transferPayload(sid string, status taskrouter.TransferStatus) []byte {
	return fmt.Appendf(nil, `{"sid": %q, "transfer_mode": "COLD", "transfer_status": %q, "transfer_to": "WKyyy"}`, sid, status)
}

func newTestTask(t *testing.T, requests *fakeRequests) *Task {
	t.Helper()

	desc, err := taskrouter.ParseTaskDescriptor(taskPayload(taskrouter.TaskStatusAssigned, `"priority": 5, "age": 10`))
	if err != nil {
		t.Fatalf("parsing initial descriptor: %v", err)
	}

	task, err := NewTask(TaskConfig{
		Requests:       requests,
		Routes:         NewRouteTable(testWorkspaceSid, testWorkerSid),
		ReservationSid: testReservationSid,
		Descriptor:     desc,
	})
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	return task
}

// collectEvents subscribes to task and returns a pointer to the growing
// event slice.
func collectEvents(task *Task) *[]Event {
	var events []Event
	task.Subscribe(func(ev Event) {
		events = append(events, ev)
	})
	return &events
}

func TestNewTaskValidation(t *testing.T) {
	requests := &fakeRequests{}
	routes := NewRouteTable(testWorkspaceSid, testWorkerSid)
	desc := &taskrouter.TaskDescriptor{Sid: testTaskSid, Status: taskrouter.TaskStatusAssigned}

	tests := []struct {
		name   string
		config TaskConfig
	}{
		{"nil requests", TaskConfig{Routes: routes, ReservationSid: testReservationSid, Descriptor: desc}},
		{"nil routes", TaskConfig{Requests: requests, ReservationSid: testReservationSid, Descriptor: desc}},
		{"empty reservation sid", TaskConfig{Requests: requests, Routes: routes, Descriptor: desc}},
		{"nil descriptor", TaskConfig{Requests: requests, Routes: routes, ReservationSid: testReservationSid}},
		{
			"invalid descriptor",
			TaskConfig{
				Requests: requests, Routes: routes, ReservationSid: testReservationSid,
				Descriptor: &taskrouter.TaskDescriptor{Sid: testTaskSid, Status: "sleeping"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTask(tt.config); !taskrouter.IsInvalidArgument(err) {
				t.Errorf("NewTask error = %v, want InvalidArgument", err)
			}
		})
	}
}

func TestTaskComplete(t *testing.T) {
	requests := &fakeRequests{
		response: taskPayload(taskrouter.TaskStatusCompleted, `"reason": "done"`),
	}
	task := newTestTask(t, requests)
	events := collectEvents(task)

	if err := task.Complete(context.Background(), "done"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	wantParams := map[string]any{
		"AssignmentStatus": taskrouter.TaskStatusCompleted,
		"Reason":           "done",
	}
	if diff := cmp.Diff(wantParams, requests.lastParams); diff != "" {
		t.Errorf("request params mismatch (-want +got):\n%s", diff)
	}
	if want := "Workspaces/" + testWorkspaceSid + "/Tasks/" + testTaskSid; requests.lastPath != want {
		t.Errorf("request path = %q, want %q", requests.lastPath, want)
	}
	if requests.lastVersion != APIVersionV1 {
		t.Errorf("request version = %q, want %q", requests.lastVersion, APIVersionV1)
	}

	if got := task.Status(); got != taskrouter.TaskStatusCompleted {
		t.Errorf("task status = %q, want %q", got, taskrouter.TaskStatusCompleted)
	}
	if got := task.Reason(); got != "done" {
		t.Errorf("task reason = %q, want %q", got, "done")
	}

	if len(*events) != 1 || (*events)[0].Type != EventUpdated {
		t.Errorf("events = %v, want one updated event", *events)
	}
}

func TestTaskCompleteEmptyReason(t *testing.T) {
	requests := &fakeRequests{}
	task := newTestTask(t, requests)

	if err := task.Complete(context.Background(), ""); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Complete error = %v, want InvalidArgument", err)
	}
	if requests.calls != 0 {
		t.Errorf("request was sent despite invalid argument")
	}
}

func TestTaskCompleteRemoteFailure(t *testing.T) {
	requests := &fakeRequests{
		err: taskrouter.NewRemoteCallFailed("request failed with status 500", nil),
	}
	task := newTestTask(t, requests)
	events := collectEvents(task)

	err := task.Complete(context.Background(), "done")
	if !taskrouter.IsRemoteCallFailed(err) {
		t.Fatalf("Complete error = %v, want RemoteCallFailed", err)
	}

	// Local state untouched on failure.
	if got := task.Status(); got != taskrouter.TaskStatusAssigned {
		t.Errorf("task status = %q, want %q", got, taskrouter.TaskStatusAssigned)
	}
	if len(*events) != 0 {
		t.Errorf("events emitted on failed command: %v", *events)
	}
}

func TestTaskWrapUp(t *testing.T) {
	requests := &fakeRequests{
		response: taskPayload(taskrouter.TaskStatusWrapping, `"reason": "callback scheduled"`),
	}
	task := newTestTask(t, requests)

	if err := task.WrapUp(context.Background(), &WrapUpOptions{Reason: "callback scheduled"}); err != nil {
		t.Fatalf("WrapUp failed: %v", err)
	}

	wantParams := map[string]any{
		"AssignmentStatus": taskrouter.TaskStatusWrapping,
		"Reason":           "callback scheduled",
	}
	if diff := cmp.Diff(wantParams, requests.lastParams); diff != "" {
		t.Errorf("request params mismatch (-want +got):\n%s", diff)
	}
	if got := task.Status(); got != taskrouter.TaskStatusWrapping {
		t.Errorf("task status = %q, want %q", got, taskrouter.TaskStatusWrapping)
	}
}

func TestTaskWrapUpNoReason(t *testing.T) {
	requests := &fakeRequests{
		response: taskPayload(taskrouter.TaskStatusWrapping, ""),
	}
	task := newTestTask(t, requests)

	if err := task.WrapUp(context.Background(), nil); err != nil {
		t.Fatalf("WrapUp failed: %v", err)
	}
	if _, ok := requests.lastParams["Reason"]; ok {
		t.Error("Reason should be omitted when not supplied")
	}
}

func TestTaskSetAttributes(t *testing.T) {
	requests := &fakeRequests{
		response: taskPayload(taskrouter.TaskStatusAssigned, `"attributes": {"foo": "bar"}`),
	}
	task := newTestTask(t, requests)

	attrs := map[string]any{"foo": "bar"}
	if err := task.SetAttributes(context.Background(), attrs); err != nil {
		t.Fatalf("SetAttributes failed: %v", err)
	}

	if diff := cmp.Diff(attrs, requests.lastParams["Attributes"]); diff != "" {
		t.Errorf("request attributes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(attrs, task.Attributes()); diff != "" {
		t.Errorf("task attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskSetAttributesNil(t *testing.T) {
	requests := &fakeRequests{}
	task := newTestTask(t, requests)

	if err := task.SetAttributes(context.Background(), nil); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("SetAttributes error = %v, want InvalidArgument", err)
	}
	if requests.calls != 0 {
		t.Errorf("request was sent despite invalid argument")
	}
}

func TestTaskUpdateParticipant(t *testing.T) {
	requests := &fakeRequests{
		response: taskPayload(taskrouter.TaskStatusAssigned, ""),
	}
	task := newTestTask(t, requests)

	if err := task.UpdateParticipant(context.Background(), map[string]any{"hold": true}); err != nil {
		t.Fatalf("UpdateParticipant failed: %v", err)
	}

	if hold, ok := requests.lastParams["Hold"].(bool); !ok || !hold {
		t.Errorf("request Hold = %v, want true", requests.lastParams["Hold"])
	}
	if want := "Workspaces/" + testWorkspaceSid + "/Tasks/" + testTaskSid + "/Participants/Customer"; requests.lastPath != want {
		t.Errorf("request path = %q, want %q", requests.lastPath, want)
	}
	if requests.lastVersion != APIVersionV2 {
		t.Errorf("request version = %q, want %q", requests.lastVersion, APIVersionV2)
	}
}

func TestTaskUpdateParticipantValidation(t *testing.T) {
	requests := &fakeRequests{}
	task := newTestTask(t, requests)

	tests := []struct {
		name    string
		options map[string]any
	}{
		{"nil options", nil},
		{"unrecognized key", map[string]any{"mute": true}},
		{"wrong value type", map[string]any{"hold": "yes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := task.UpdateParticipant(context.Background(), tt.options); !taskrouter.IsInvalidArgument(err) {
				t.Errorf("UpdateParticipant error = %v, want InvalidArgument", err)
			}
		})
	}
	if requests.calls != 0 {
		t.Errorf("request was sent despite invalid options")
	}
}

func TestTaskKick(t *testing.T) {
	requests := &fakeRequests{
		response: taskPayload(taskrouter.TaskStatusAssigned, ""),
	}
	task := newTestTask(t, requests)

	if err := task.Kick(context.Background(), "WKzzz"); err != nil {
		t.Fatalf("Kick failed: %v", err)
	}
	if got := requests.lastParams["TargetWorkerSid"]; got != "WKzzz" {
		t.Errorf("request TargetWorkerSid = %v, want WKzzz", got)
	}

	if err := task.Kick(context.Background(), ""); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Kick with empty sid error = %v, want InvalidArgument", err)
	}
}

func TestTaskHold(t *testing.T) {
	requests := &fakeRequests{
		response: taskPayload(taskrouter.TaskStatusAssigned, ""),
	}
	task := newTestTask(t, requests)

	if err := task.Hold(context.Background(), "WKzzz", true); err != nil {
		t.Fatalf("Hold failed: %v", err)
	}

	wantParams := map[string]any{"TargetWorkerSid": "WKzzz", "Hold": true}
	if diff := cmp.Diff(wantParams, requests.lastParams); diff != "" {
		t.Errorf("request params mismatch (-want +got):\n%s", diff)
	}

	if err := task.Hold(context.Background(), "", true); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Hold with empty sid error = %v, want InvalidArgument", err)
	}
}

func TestTaskTransfer(t *testing.T) {
	requests := &fakeRequests{
		response: transferPayload(testTransferSid, taskrouter.TransferStatusInitiated),
	}
	task := newTestTask(t, requests)

	err := task.Transfer(context.Background(), "WKyyy", &TransferOptions{Mode: taskrouter.TransferModeCold})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	wantParams := map[string]any{
		"ReservationSid": testReservationSid,
		"TaskSid":        testTaskSid,
		"To":             "WKyyy",
		"Mode":           taskrouter.TransferModeCold,
	}
	if diff := cmp.Diff(wantParams, requests.lastParams); diff != "" {
		t.Errorf("request params mismatch (-want +got):\n%s", diff)
	}
	if _, ok := requests.lastParams["Attributes"]; ok {
		t.Error("Attributes should be omitted when not supplied")
	}
	if _, ok := requests.lastParams["Priority"]; ok {
		t.Error("Priority should be omitted when not supplied")
	}

	outgoing := task.Transfers().Outgoing()
	if outgoing == nil {
		t.Fatal("outgoing transfer not set after Transfer")
	}
	if outgoing.Sid() != testTransferSid {
		t.Errorf("outgoing sid = %q, want %q", outgoing.Sid(), testTransferSid)
	}

	// The response describes the transfer, not the task: task fields are
	// untouched.
	if got := task.Status(); got != taskrouter.TaskStatusAssigned {
		t.Errorf("task status = %q, want %q", got, taskrouter.TaskStatusAssigned)
	}
}

func TestTaskTransferValidation(t *testing.T) {
	requests := &fakeRequests{}
	task := newTestTask(t, requests)

	if err := task.Transfer(context.Background(), "", nil); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Transfer with empty target error = %v, want InvalidArgument", err)
	}
	if err := task.Transfer(context.Background(), "WKyyy", &TransferOptions{Mode: "TEPID"}); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Transfer with bad mode error = %v, want InvalidArgument", err)
	}
	if requests.calls != 0 {
		t.Errorf("request was sent despite invalid arguments")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})
	payload := taskPayload(taskrouter.TaskStatusWrapping, `"priority": 20, "age": 100, "reason": "follow up"`)

	if err := task.Reconcile(context.Background(), payload, nil); err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}
	first := taskState(task)

	if err := task.Reconcile(context.Background(), payload, nil); err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	second := taskState(task)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reconciliation is not idempotent (-first +second):\n%s", diff)
	}
}

func TestReconcileParseFailure(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})
	before := taskState(task)

	err := task.Reconcile(context.Background(), []byte(`{"sid": "`+testTaskSid+`", "assignment_status": "sleeping"}`), nil)
	if !taskrouter.IsReconciliationFailed(err) {
		t.Fatalf("Reconcile error = %v, want ReconciliationFailed", err)
	}

	if diff := cmp.Diff(before, taskState(task)); diff != "" {
		t.Errorf("state changed despite failed reconciliation (-before +after):\n%s", diff)
	}
}

func TestReconcileSidMismatch(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})

	err := task.Reconcile(context.Background(), []byte(`{"sid": "WTother", "assignment_status": "assigned"}`), nil)
	if !taskrouter.IsReconciliationFailed(err) {
		t.Errorf("Reconcile error = %v, want ReconciliationFailed", err)
	}
}

func TestReconcileWithTransferUpdates(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})

	updates := &TransferUpdates{
		Outgoing: transferPayload(testTransferSid, taskrouter.TransferStatusInitiated),
		Incoming: transferPayload("TRincoming", taskrouter.TransferStatusInitiated),
	}
	payload := taskPayload(taskrouter.TaskStatusTransferring, "")

	if err := task.Reconcile(context.Background(), payload, updates); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if outgoing := task.Transfers().Outgoing(); outgoing == nil || outgoing.Sid() != testTransferSid {
		t.Errorf("outgoing transfer not merged")
	}
	if incoming := task.Transfers().Incoming(); incoming == nil || incoming.Sid() != "TRincoming" {
		t.Errorf("incoming transfer not merged")
	}

	// A task-only update leaves in-flight transfer state undisturbed.
	if err := task.Reconcile(context.Background(), taskPayload(taskrouter.TaskStatusAssigned, ""), nil); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outgoing := task.Transfers().Outgoing(); outgoing == nil || outgoing.Sid() != testTransferSid {
		t.Errorf("task-only reconciliation clobbered transfer state")
	}
}

func TestTaskAccessorsReflectReconciledFields(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})

	payload := taskPayload(taskrouter.TaskStatusAssigned,
		`"routing_target": "WQtarget", "timeout": 120, `+
			`"task_channel_sid": "TCvoice", "task_channel_unique_name": "voice", `+
			`"addons": {"crm": "linked"}`)
	if err := task.Reconcile(context.Background(), payload, nil); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := task.RoutingTarget(); got != "WQtarget" {
		t.Errorf("RoutingTarget() = %q, want %q", got, "WQtarget")
	}
	if got := task.Timeout(); got != 120 {
		t.Errorf("Timeout() = %d, want 120", got)
	}
	if sid, name := task.TaskChannel(); sid != "TCvoice" || name != "voice" {
		t.Errorf("TaskChannel() = (%q, %q), want (%q, %q)", sid, name, "TCvoice", "voice")
	}
	if diff := cmp.Diff(map[string]any{"crm": "linked"}, task.Addons()); diff != "" {
		t.Errorf("Addons() mismatch (-want +got):\n%s", diff)
	}

	// Addons returns a copy, not the live map.
	task.Addons()["crm"] = "mutated"
	if got := task.Addons()["crm"]; got != "linked" {
		t.Errorf("Addons() shares memory with the task: crm = %v", got)
	}
}

func TestReconcileMalformedTransferUpdates(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})
	events := collectEvents(task)
	before := taskState(task)

	// A valid task payload with a malformed transfer sub-payload must not
	// partially apply: the task keeps its last-known-good state.
	updates := &TransferUpdates{
		Outgoing: []byte(`{"transfer_mode": "TEPID"}`),
	}
	err := task.Reconcile(context.Background(), taskPayload(taskrouter.TaskStatusWrapping, ""), updates)
	if !taskrouter.IsReconciliationFailed(err) {
		t.Fatalf("Reconcile error = %v, want ReconciliationFailed", err)
	}

	if diff := cmp.Diff(before, taskState(task)); diff != "" {
		t.Errorf("task state changed despite failed reconciliation (-before +after):\n%s", diff)
	}
	if outgoing := task.Transfers().Outgoing(); outgoing != nil {
		t.Errorf("outgoing transfer created from malformed sub-payload: %v", outgoing.Sid())
	}
	if len(*events) != 0 {
		t.Errorf("events emitted despite failed reconciliation: %d", len(*events))
	}

	// The same holds with the slots swapped.
	updates = &TransferUpdates{
		Incoming: []byte(`{"transfer_mode": "TEPID"}`),
		Outgoing: transferPayload(testTransferSid, taskrouter.TransferStatusInitiated),
	}
	err = task.Reconcile(context.Background(), taskPayload(taskrouter.TaskStatusWrapping, ""), updates)
	if !taskrouter.IsReconciliationFailed(err) {
		t.Fatalf("Reconcile error = %v, want ReconciliationFailed", err)
	}
	if diff := cmp.Diff(before, taskState(task)); diff != "" {
		t.Errorf("task state changed despite failed reconciliation (-before +after):\n%s", diff)
	}
	if outgoing := task.Transfers().Outgoing(); outgoing != nil {
		t.Errorf("outgoing transfer merged despite malformed incoming sub-payload: %v", outgoing.Sid())
	}
}

func TestDispatchTaskEvent(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})
	events := collectEvents(task)

	payload := taskPayload(taskrouter.TaskStatusCanceled, `"reason": "no agents available"`)
	if err := task.Dispatch(context.Background(), "canceled", payload); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if got := task.Status(); got != taskrouter.TaskStatusCanceled {
		t.Errorf("task status = %q, want %q", got, taskrouter.TaskStatusCanceled)
	}
	if len(*events) != 1 {
		t.Fatalf("got %d events, want 1", len(*events))
	}
	if ev := (*events)[0]; ev.Type != EventCanceled || ev.Task != task {
		t.Errorf("event = %+v, want canceled event carrying the task", ev)
	}
}

func TestDispatchValidation(t *testing.T) {
	task := newTestTask(t, &fakeRequests{})

	if err := task.Dispatch(context.Background(), "", []byte(`{}`)); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Dispatch with empty type error = %v, want InvalidArgument", err)
	}
	if err := task.Dispatch(context.Background(), "updated", nil); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Dispatch with empty payload error = %v, want InvalidArgument", err)
	}
	if err := task.Dispatch(context.Background(), "updated", []byte(`not json`)); !taskrouter.IsInvalidArgument(err) {
		t.Errorf("Dispatch with malformed payload error = %v, want InvalidArgument", err)
	}
}

// Reconciling task fields from a command response and applying an
// unrelated transfer event must commute.
func TestReconcileAndTransferEventCommute(t *testing.T) {
	run := func(t *testing.T, eventFirst bool) map[string]any {
		requests := &fakeRequests{
			response: transferPayload(testTransferSid, taskrouter.TransferStatusInitiated),
		}
		task := newTestTask(t, requests)
		if err := task.Transfer(context.Background(), "WKyyy", nil); err != nil {
			t.Fatalf("Transfer failed: %v", err)
		}

		taskUpdate := taskPayload(taskrouter.TaskStatusWrapping, `"priority": 30`)
		transferEvent := transferPayload(testTransferSid, taskrouter.TransferStatusCompleted)

		if eventFirst {
			if err := task.Dispatch(context.Background(), wireTransferCompleted, transferEvent); err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
			if err := task.Reconcile(context.Background(), taskUpdate, nil); err != nil {
				t.Fatalf("Reconcile failed: %v", err)
			}
		} else {
			if err := task.Reconcile(context.Background(), taskUpdate, nil); err != nil {
				t.Fatalf("Reconcile failed: %v", err)
			}
			if err := task.Dispatch(context.Background(), wireTransferCompleted, transferEvent); err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
		}

		state := taskState(task)
		state["outgoingStatus"] = task.Transfers().Outgoing().Status()
		return state
	}

	eventFirst := run(t, true)
	reconcileFirst := run(t, false)

	if diff := cmp.Diff(eventFirst, reconcileFirst); diff != "" {
		t.Errorf("final state depends on ordering (-eventFirst +reconcileFirst):\n%s", diff)
	}
}

// taskState captures the task's reconciled field state for comparison.
func taskState(task *Task) map[string]any {
	queueSid, queueName := task.Queue()
	workflowSid, workflowName := task.Workflow()
	channelSid, channelName := task.TaskChannel()
	return map[string]any{
		"status":        task.Status(),
		"attributes":    task.Attributes(),
		"priority":      task.Priority(),
		"reason":        task.Reason(),
		"age":           task.Age(),
		"queueSid":      queueSid,
		"queueName":     queueName,
		"workflowSid":   workflowSid,
		"workflowName":  workflowName,
		"routingTarget": task.RoutingTarget(),
		"timeout":       task.Timeout(),
		"channelSid":    channelSid,
		"channelName":   channelName,
		"addons":        task.Addons(),
		"dateUpdated":   task.DateUpdated(),
	}
}
