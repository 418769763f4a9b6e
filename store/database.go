// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DatabaseStore is a database implementation of Store using GORM.
type DatabaseStore struct {
	db        *gorm.DB
	tableName string
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStoreConfig holds configuration for DatabaseStore.
type DatabaseStoreConfig struct {
	DB        *gorm.DB
	TableName string // Optional, defaults to "task_snapshots"
	Migrate   bool   // Whether to create the table if it doesn't exist
}

// NewDatabaseStore creates a new DatabaseStore.
func NewDatabaseStore(config DatabaseStoreConfig) (*DatabaseStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	tableName := config.TableName
	if tableName == "" {
		tableName = "task_snapshots"
	}

	s := &DatabaseStore{
		db:        config.DB,
		tableName: tableName,
	}

	if config.Migrate {
		if err := config.DB.Table(tableName).AutoMigrate(&Snapshot{}); err != nil {
			return nil, fmt.Errorf("migrating snapshot table: %w", err)
		}
	}

	return s, nil
}

// Save appends a snapshot.
func (s *DatabaseStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snapshot.TaskSid == "" {
		return fmt.Errorf("snapshot task sid cannot be empty")
	}

	if err := s.table(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("saving snapshot for task %s: %w", snapshot.TaskSid, err)
	}
	return nil
}

// Latest returns the most recently recorded snapshot for a task.
func (s *DatabaseStore) Latest(ctx context.Context, taskSid string) (*Snapshot, error) {
	var snapshot Snapshot
	err := s.table(ctx).
		Where("task_sid = ?", taskSid).
		Order("recorded_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading latest snapshot for task %s: %w", taskSid, err)
	}
	return &snapshot, nil
}

// History returns all snapshots for a task in recording order.
func (s *DatabaseStore) History(ctx context.Context, taskSid string) ([]*Snapshot, error) {
	var snapshots []*Snapshot
	err := s.table(ctx).
		Where("task_sid = ?", taskSid).
		Order("recorded_at ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("loading snapshot history for task %s: %w", taskSid, err)
	}
	return snapshots, nil
}

// Close is a no-op; the caller owns the database connection.
func (s *DatabaseStore) Close() error {
	return nil
}

// table scopes a query to the configured table with the given context.
func (s *DatabaseStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}
