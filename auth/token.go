// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides worker capability tokens for the taskrouter client.
// A capability token is a short-lived HS256 JWT minted from account
// credentials that grants a worker session access to its workspace-scoped
// resources. The HTTP command sender attaches one to every request.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the default lifetime of a capability token.
const DefaultTTL = 15 * time.Minute

// Capability mints worker capability tokens from account credentials.
type Capability struct {
	// AccountSid identifies the account the credentials belong to.
	AccountSid string

	// SigningKey is the shared secret used to sign tokens.
	SigningKey string

	// WorkspaceSid is the routing workspace the token grants access to.
	WorkspaceSid string

	// WorkerSid is the worker instance the token grants access to.
	WorkerSid string

	// TTL is the token lifetime. If zero, DefaultTTL is used.
	TTL time.Duration
}

// Validate ensures the Capability is valid.
func (c *Capability) Validate() error {
	if c.AccountSid == "" {
		return fmt.Errorf("capability account sid cannot be empty")
	}
	if c.SigningKey == "" {
		return fmt.Errorf("capability signing key cannot be empty")
	}
	if c.WorkspaceSid == "" {
		return fmt.Errorf("capability workspace sid cannot be empty")
	}
	if c.WorkerSid == "" {
		return fmt.Errorf("capability worker sid cannot be empty")
	}
	return nil
}

// Claims are the JWT claims carried by a capability token.
type Claims struct {
	WorkspaceSid string `json:"workspace_sid"`
	WorkerSid    string `json:"worker_sid"`
	jwt.RegisteredClaims
}

// Token mints a signed capability token valid from now.
func (c *Capability) Token(now time.Time) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	ttl := c.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	claims := Claims{
		WorkspaceSid: c.WorkspaceSid,
		WorkerSid:    c.WorkerSid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.AccountSid,
			Subject:   c.WorkerSid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.SigningKey))
	if err != nil {
		return "", fmt.Errorf("signing capability token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a capability token signed with key.
func Verify(tokenString, key string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, fmt.Errorf("verifying capability token: %w", err)
	}
	return &claims, nil
}
