package storage

import (
	"context"
	"errors"
	"fmt"
)

// KV is the medium a Store persists its collections in. Values are opaque
// bytes and every Set replaces the whole value.
type KV interface {
	// Get returns the value for key; ok is false when the key was never set.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

var ErrInvalidKey = errors.New("invalid key")

// PersistenceError reports a failed read or write of the backing medium.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
