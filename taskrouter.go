// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskrouter provides the client-side entity model for a
// task-routing service. It defines the typed descriptors that normalize
// raw server payloads, the status and transfer enumerations shared by
// every package, and the error taxonomy used across the module.
//
// The live Task entity, its remote command operations and the
// event-driven synchronization engine live in the client package.
package taskrouter

// Version is the version of the taskrouter module.
const Version = "0.1.0"

// DefaultBaseURL is the default REST endpoint for the routing service.
const DefaultBaseURL = "https://taskrouter.local/api"
