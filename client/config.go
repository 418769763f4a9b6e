// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-taskrouter/taskrouter"
)

// Config holds the settings needed to build a client for one worker
// session.
type Config struct {
	// AccountSid identifies the account the credentials belong to.
	AccountSid string `yaml:"account_sid"`

	// AuthToken is the shared secret capability tokens are signed with.
	AuthToken string `yaml:"auth_token"`

	// WorkspaceSid is the routing workspace.
	WorkspaceSid string `yaml:"workspace_sid"`

	// WorkerSid is the worker instance.
	WorkerSid string `yaml:"worker_sid"`

	// BaseURL is the REST endpoint. Defaults to taskrouter.DefaultBaseURL.
	BaseURL string `yaml:"base_url"`

	// EventsURL is the websocket endpoint push notifications arrive on.
	EventsURL string `yaml:"events_url"`

	// TokenTTL is the capability token lifetime. Defaults to auth.DefaultTTL.
	TokenTTL time.Duration `yaml:"-"`
}

// yamlConfig mirrors Config with TokenTTL as a duration string, which is
// how it appears on disk.
type yamlConfig struct {
	Config   `yaml:",inline"`
	TokenTTL string `yaml:"token_ttl"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config := raw.Config
	if raw.TokenTTL != "" {
		ttl, err := time.ParseDuration(raw.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("parsing config token ttl: %w", err)
		}
		config.TokenTTL = ttl
	}

	if config.BaseURL == "" {
		config.BaseURL = taskrouter.DefaultBaseURL
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures the Config is valid.
func (c *Config) Validate() error {
	if c.AccountSid == "" {
		return fmt.Errorf("config account sid cannot be empty")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("config auth token cannot be empty")
	}
	if c.WorkspaceSid == "" {
		return fmt.Errorf("config workspace sid cannot be empty")
	}
	if c.WorkerSid == "" {
		return fmt.Errorf("config worker sid cannot be empty")
	}
	return nil
}

// Routes returns a RouteTable scoped to the configured workspace and worker.
func (c *Config) Routes() *RouteTable {
	return NewRouteTable(c.WorkspaceSid, c.WorkerSid)
}
