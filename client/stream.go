// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-taskrouter/taskrouter"
)

// DispatchFunc receives push notifications read off the event channel.
// Task.Dispatch satisfies this signature.
type DispatchFunc func(ctx context.Context, eventType string, payload []byte) error

// eventFrame is the wire envelope of a push notification.
type eventFrame struct {
	EventType string         `json:"event_type"`
	Payload   jsontext.Value `json:"payload"`
}

// EventStream consumes push notifications from the routing service event
// channel over a websocket and forwards them to a dispatch function.
// Reconnection is left to the caller; a stream reads until its connection
// fails or the context is canceled.
type EventStream struct {
	url      string
	logger   *slog.Logger
	dispatch DispatchFunc
	conn     *websocket.Conn
}

// NewEventStream creates an EventStream for the given websocket URL.
func NewEventStream(url string, dispatch DispatchFunc, logger *slog.Logger) (*EventStream, error) {
	if url == "" {
		return nil, taskrouter.NewInvalidArgument("event stream URL cannot be empty")
	}
	if dispatch == nil {
		return nil, taskrouter.NewInvalidArgument("dispatch function cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &EventStream{
		url:      url,
		logger:   logger,
		dispatch: dispatch,
	}, nil
}

// Connect dials the event channel.
func (s *EventStream) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dialing event channel: %w", err)
	}
	s.conn = conn
	return nil
}

// Run reads frames until the connection fails or ctx is canceled. Dispatch
// failures are logged and the stream keeps reading; a single bad event must
// not stall the channel.
func (s *EventStream) Run(ctx context.Context) error {
	if s.conn == nil {
		return fmt.Errorf("event stream is not connected")
	}

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("reading event frame: %w", err)
		}

		var frame eventFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.WarnContext(ctx, "discarding malformed event frame", "error", err)
			continue
		}

		if err := s.dispatch(ctx, frame.EventType, frame.Payload); err != nil {
			s.logger.WarnContext(ctx, "event dispatch failed",
				"event_type", frame.EventType, "error", err)
		}
	}
}

// Close closes the underlying connection.
func (s *EventStream) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
