// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

// Package client implements the client-side entity model for the
// task-routing service: the live Task entity, its remote command
// operations, the transfer sub-protocol, and the event-driven
// synchronization engine that reconciles local state against command
// responses and push notifications.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-taskrouter/taskrouter"
)

// APIVersion labels a command request with the routing service API
// generation it targets.
type APIVersion string

// Supported API versions.
const (
	// APIVersionV1 is the legacy API generation.
	APIVersionV1 APIVersion = "v1"

	// APIVersionV2 is the current API generation.
	APIVersionV2 APIVersion = "v2"
)

const defaultTimeout = 30 * time.Second

// RequestHandler executes command requests against the routing service.
// Implementations must not retry; retry policy belongs to the transport.
type RequestHandler interface {
	// Post sends a form-encoded POST to the resource path under the given
	// API version and returns the raw response body.
	Post(ctx context.Context, path string, params map[string]any, version APIVersion) ([]byte, error)
}

// TokenSource supplies a capability token for outbound requests.
type TokenSource interface {
	// Token returns a token valid at the given time.
	Token(now time.Time) (string, error)
}

// Client is the default RequestHandler. It speaks form-encoded HTTP to the
// routing service REST API and attaches a capability token to every request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *slog.Logger
	tracer     trace.Tracer
	userAgent  string
}

var _ RequestHandler = (*Client)(nil)

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, taskrouter.NewInvalidArgument("base URL cannot be empty")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     slog.Default(),
		tracer:     otel.GetTracerProvider().Tracer("github.com/go-taskrouter/taskrouter"),
		userAgent:  "go-taskrouter/client " + taskrouter.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Post sends a form-encoded POST to path under the given API version.
// Transport and server failures are returned as RemoteCallFailed.
func (c *Client) Post(ctx context.Context, path string, params map[string]any, version APIVersion) ([]byte, error) {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "taskrouter.client.Post",
		trace.WithAttributes(
			attribute.String("taskrouter.path", path),
			attribute.String("taskrouter.api_version", string(version)),
			attribute.String("taskrouter.request_id", requestID),
		))
	defer span.End()

	form, err := encodeForm(params)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/" + string(version) + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, taskrouter.NewRemoteCallFailed("creating request", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)

	if c.tokens != nil {
		token, err := c.tokens.Token(time.Now())
		if err != nil {
			return nil, taskrouter.NewRemoteCallFailed("minting capability token", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.DebugContext(ctx, "sending command request",
		"path", path, "api_version", version, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "command request failed",
			"path", path, "request_id", requestID, "error", err)
		return nil, taskrouter.NewRemoteCallFailed("sending request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, taskrouter.NewRemoteCallFailed("reading response body", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.ErrorContext(ctx, "command request rejected",
			"path", path, "request_id", requestID, "status", resp.StatusCode)
		return nil, taskrouter.NewRemoteCallFailed(
			fmt.Sprintf("request failed with status %d", resp.StatusCode), nil)
	}

	return body, nil
}

// encodeForm flattens params into form values. Structured values are
// serialized to JSON strings; scalar values are stringified.
func encodeForm(params map[string]any) (url.Values, error) {
	form := make(url.Values, len(params))
	for key, value := range params {
		switch v := value.(type) {
		case string:
			form.Set(key, v)
		case bool:
			form.Set(key, strconv.FormatBool(v))
		case int:
			form.Set(key, strconv.Itoa(v))
		case taskrouter.TaskStatus:
			form.Set(key, string(v))
		case taskrouter.TransferMode:
			form.Set(key, string(v))
		default:
			data, err := sonic.ConfigFastest.Marshal(v)
			if err != nil {
				return nil, taskrouter.NewInvalidArgument(
					fmt.Sprintf("unencodable form parameter %q: %v", key, err))
			}
			form.Set(key, string(data))
		}
	}
	return form, nil
}
