// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"strings"

	"github.com/go-taskrouter/taskrouter"
)

// Registered route names.
const (
	RouteActivities              = "activitiesList"
	RouteWorkerInstance          = "workerInstance"
	RouteWorkerList              = "workerList"
	RouteReservationInstance     = "reservationInstance"
	RouteReservationList         = "reservationList"
	RouteTaskList                = "taskList"
	RouteTaskInstance            = "taskInstance"
	RouteTaskTransferList        = "taskTransferList"
	RouteTaskTransferInstance    = "taskTransferInstance"
	RouteTaskReservationInstance = "taskReservationInstance"
	RouteTaskQueueList           = "taskQueueList"
	RouteWorkerChannels          = "workerChannels"
	RouteCustomerParticipant     = "customerParticipantInstance"
	RouteWorkerParticipant       = "workerParticipantInstance"
	RouteHoldWorkerParticipant   = "holdWorkerParticipantInstance"
	RouteKickWorkerParticipant   = "kickWorkerParticipant"
)

// placeholder marks a positional argument slot in a route template.
const placeholder = "{}"

// RouteTable maps symbolic route names to resource paths scoped to one
// workspace and one worker. Resolution is a pure function of the route name
// and its positional arguments; no escaping or encoding is performed here.
type RouteTable struct {
	workspaceSid string
	workerSid    string
	routes       map[string]string
}

// NewRouteTable creates a RouteTable scoped to the given workspace and
// worker sids.
func NewRouteTable(workspaceSid, workerSid string) *RouteTable {
	ws := "Workspaces/" + workspaceSid
	wk := ws + "/Workers/" + workerSid

	return &RouteTable{
		workspaceSid: workspaceSid,
		workerSid:    workerSid,
		routes: map[string]string{
			RouteActivities:              ws + "/Activities",
			RouteWorkerInstance:          wk,
			RouteWorkerList:              ws + "/Workers",
			RouteReservationInstance:     wk + "/Reservations/" + placeholder,
			RouteReservationList:         wk + "/Reservations",
			RouteTaskList:                ws + "/Tasks",
			RouteTaskInstance:            ws + "/Tasks/" + placeholder,
			RouteTaskTransferList:        ws + "/Tasks/" + placeholder + "/Transfers",
			RouteTaskTransferInstance:    ws + "/Tasks/" + placeholder + "/Transfers/" + placeholder,
			RouteTaskReservationInstance: ws + "/Tasks/" + placeholder + "/Reservations/" + placeholder,
			RouteTaskQueueList:           ws + "/TaskQueues",
			RouteWorkerChannels:          wk + "/Channels",
			RouteCustomerParticipant:     ws + "/Tasks/" + placeholder + "/Participants/Customer",
			RouteWorkerParticipant:       ws + "/Tasks/" + placeholder + "/Participants/Worker",
			RouteHoldWorkerParticipant:   ws + "/Tasks/" + placeholder + "/Participants/Worker/Hold",
			RouteKickWorkerParticipant:   ws + "/Tasks/" + placeholder + "/Participants/Worker/Kick",
		},
	}
}

// WorkspaceSid returns the workspace sid the table is scoped to.
func (rt *RouteTable) WorkspaceSid() string {
	return rt.workspaceSid
}

// WorkerSid returns the worker sid the table is scoped to.
func (rt *RouteTable) WorkerSid() string {
	return rt.workerSid
}

// Names returns all registered route names.
func (rt *RouteTable) Names() []string {
	names := make([]string, 0, len(rt.routes))
	for name := range rt.routes {
		names = append(names, name)
	}
	return names
}

// Placeholders returns the number of positional arguments the named route
// requires, or an UnknownRoute error if the route is not registered.
func (rt *RouteTable) Placeholders(name string) (int, error) {
	template, ok := rt.routes[name]
	if !ok {
		return 0, taskrouter.NewUnknownRoute(name)
	}
	return strings.Count(template, placeholder), nil
}

// Resolve maps a route name and positional arguments to a fully-resolved
// resource path. Substitution is strictly left-to-right, one placeholder
// consumed per argument. It fails with UnknownRoute if name is not
// registered and with ArgumentCountMismatch if the number of supplied
// arguments does not exactly equal the number of placeholders.
func (rt *RouteTable) Resolve(name string, args ...string) (string, error) {
	template, ok := rt.routes[name]
	if !ok {
		return "", taskrouter.NewUnknownRoute(name)
	}

	want := strings.Count(template, placeholder)
	if len(args) != want {
		return "", taskrouter.NewArgumentCountMismatch(name, want, len(args))
	}

	path := template
	for _, arg := range args {
		if arg == "" {
			return "", taskrouter.NewInvalidArgument(fmt.Sprintf("empty argument for route %q", name))
		}
		path = strings.Replace(path, placeholder, arg, 1)
	}
	return path, nil
}
