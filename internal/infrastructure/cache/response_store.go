// Package cache stores replayable responses for requests that carry an
// Idempotency-Key header.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is a stored response. A pending record marks a request that is
// still being processed.
type Record struct {
	Pending     bool   `msgpack:"p"`
	Fingerprint string `msgpack:"f"`
	Status      int    `msgpack:"s,omitempty"`
	ContentType string `msgpack:"c,omitempty"`
	Body        []byte `msgpack:"b,omitempty"`
}

// ResponseStore persists idempotent responses for a limited time
type ResponseStore interface {
	// Reserve stores rec only if key is absent and reports whether it did.
	Reserve(ctx context.Context, key string, rec Record, ttl time.Duration) (bool, error)
	// Get returns the record for key, or nil when absent or expired.
	Get(ctx context.Context, key string) (*Record, error)
	// Put overwrites the record for key.
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
	// Release forgets key so the request can be retried.
	Release(ctx context.Context, key string) error
	Close() error
}

func encodeRecord(rec Record) ([]byte, error) {
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}
