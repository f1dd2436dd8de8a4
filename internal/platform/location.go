// Package platform holds the host capabilities the tracker depends on:
// a location stream and a speech output.
package platform

import (
	"context"
	"sync"
	"time"

	"github.com/danghamo/twieo/internal/domain/run"
)

// WatchOptions bounds the cadence of a location subscription
type WatchOptions struct {
	HighAccuracy     bool
	Interval         time.Duration
	MinDisplacementM float64
}

// DefaultWatchOptions asks for high accuracy fixes at most once a second or
// every 5 metres
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy:     true,
		Interval:         time.Second,
		MinDisplacementM: 5,
	}
}

// Subscription delivers samples until closed. After Close returns no further
// sample is delivered. C may be closed by the provider when the stream ends.
type Subscription interface {
	C() <-chan run.GeoSample
	Close()
}

// LocationProvider is the host location capability
type LocationProvider interface {
	// RequestPermission reports whether location access is granted
	RequestPermission(ctx context.Context) (bool, error)
	// CurrentPosition is a one-shot fix
	CurrentPosition(ctx context.Context) (run.GeoSample, error)
	Subscribe(ctx context.Context, opts WatchOptions) (Subscription, error)
}

// chanSubscription is the common Subscription implementation. The producer
// selects on done when sending so Close can interrupt it.
type chanSubscription struct {
	ch     chan run.GeoSample
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func newChanSubscription() *chanSubscription {
	return &chanSubscription{
		ch:     make(chan run.GeoSample),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (s *chanSubscription) C() <-chan run.GeoSample {
	return s.ch
}

// deliver blocks until the sample is taken or the subscription is closed
func (s *chanSubscription) deliver(ctx context.Context, sample run.GeoSample) bool {
	select {
	case s.ch <- sample:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close stops the producer and waits for it to exit
func (s *chanSubscription) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.exited
}
