package run

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/danghamo/twieo/internal/domain/shared"
)

// FilePendingQueue keeps pending records as a JSON array in a single file,
// the same shape the mobile client stored under its pendingRuns key.
type FilePendingQueue struct {
	path string
	mu   sync.Mutex
}

// NewFilePendingQueue creates a file-backed pending queue
func NewFilePendingQueue(path string) *FilePendingQueue {
	return &FilePendingQueue{path: path}
}

// Append reads the list, appends and writes it back atomically
func (q *FilePendingQueue) Append(_ context.Context, record Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.read()
	if err != nil {
		return shared.WrapDomainError(err, shared.ErrCodeQueueFailed, "failed to read pending runs")
	}

	records = append(records, record)
	if err := q.write(records); err != nil {
		return shared.WrapDomainError(err, shared.ErrCodeQueueFailed, "failed to write pending runs")
	}
	return nil
}

// List returns every pending record in append order
func (q *FilePendingQueue) List(_ context.Context) ([]Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.read()
	if err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeQueueFailed, "failed to read pending runs")
	}
	return records, nil
}

func (q *FilePendingQueue) read() ([]Record, error) {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (q *FilePendingQueue) write(records []Record) error {
	if dir := filepath.Dir(q.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}

// MemoryPendingQueue keeps records in process memory. It suits hosts with no
// durable storage and tests.
type MemoryPendingQueue struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryPendingQueue creates an empty in-memory queue
func NewMemoryPendingQueue() *MemoryPendingQueue {
	return &MemoryPendingQueue{}
}

// Append stores the record
func (q *MemoryPendingQueue) Append(_ context.Context, record Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, record)
	return nil
}

// List returns a copy of the stored records
func (q *MemoryPendingQueue) List(_ context.Context) ([]Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Record, len(q.records))
	copy(out, q.records)
	return out, nil
}
