package run

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/pkg/redisx"
)

// RedisPendingQueue stores pending records as JSON entries of a Redis list
type RedisPendingQueue struct {
	client *redisx.Client
	key    string
}

// NewRedisPendingQueue creates a Redis-backed pending queue under key
func NewRedisPendingQueue(client *redisx.Client, key string) *RedisPendingQueue {
	return &RedisPendingQueue{client: client, key: key}
}

// Append pushes the record onto the tail of the list. RPUSH is atomic, so
// concurrent writers cannot lose each other's records.
func (q *RedisPendingQueue) Append(ctx context.Context, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return shared.WrapDomainError(err, shared.ErrCodeQueueFailed, "failed to serialize run record")
	}

	if _, err := q.client.RPushWithLogging(ctx, q.key, string(data)); err != nil {
		return shared.WrapDomainError(err, shared.ErrCodeQueueFailed, "failed to append run record")
	}
	return nil
}

// List returns every pending record in append order
func (q *RedisPendingQueue) List(ctx context.Context) ([]Record, error) {
	items, err := q.client.LRangeWithLogging(ctx, q.key, 0, -1)
	if err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeQueueFailed, "failed to read pending runs")
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		var record Record
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to deserialize pending run %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}
