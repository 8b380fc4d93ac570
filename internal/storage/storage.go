// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"regexp"
)

// Backend is a synchronous keyed string store.
type Backend interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent; err reports read failures only.
	Get(key string) (value string, ok bool, err error)

	// Set replaces the value stored under key.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys lists stored keys in ascending order.
	Keys() ([]string, error)

	// Close releases resources held by the backend.
	Close() error
}

// Kind selects a backend implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

// Options configures Open.
type Options struct {
	Kind Kind
	// Path is the directory for KindFile or the database file for KindSQLite.
	Path string
}

// Open constructs the backend described by opts.
func Open(opts Options) (Backend, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemoryBackend(), nil
	case KindFile:
		return NewFileBackend(opts.Path)
	case KindSQLite:
		return NewSQLiteBackend(opts.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
	}
}

// keyPattern keeps keys safe to use as file names.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidateKey returns ErrInvalidKey for keys that are empty, too long or
// contain characters outside [A-Za-z0-9_.-].
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return &StorageError{Message: ErrInvalidKey.Message, Key: key}
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidKey is returned for keys that fail ValidateKey.
// Use errors.Is(err, ErrInvalidKey) to check for this error.
var ErrInvalidKey = &StorageError{Message: "invalid storage key"}

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = &StorageError{Message: "storage backend closed"}

// StorageError represents a storage-related error.
type StorageError struct {
	Message string
	Key     string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %q", e.Message, e.Key)
	}
	return e.Message
}

// Is matches storage errors by message so keyed variants compare equal to
// the sentinels.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
