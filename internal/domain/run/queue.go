package run

import "context"

// PendingQueue is the append-only spool for records that could not be
// submitted. Implementations must never drop an appended record.
type PendingQueue interface {
	Append(ctx context.Context, record Record) error
	List(ctx context.Context) ([]Record, error)
}
