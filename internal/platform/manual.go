package platform

import (
	"context"
	"sync"

	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
)

// ManualProvider forwards fixes pushed by the host, e.g. from a bridge to a
// device SDK. Only the most recent subscription receives samples.
type ManualProvider struct {
	mu       sync.Mutex
	granted  bool
	position *run.GeoSample
	active   *manualSubscription
}

type manualSubscription struct {
	*chanSubscription
	ctx context.Context
}

// NewManualProvider creates a provider that grants permission
func NewManualProvider() *ManualProvider {
	return &ManualProvider{granted: true}
}

// SetPermission sets the answer to RequestPermission
func (p *ManualProvider) SetPermission(granted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.granted = granted
}

// SetCurrentPosition sets the one-shot fix
func (p *ManualProvider) SetCurrentPosition(sample run.GeoSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = &sample
}

// RequestPermission returns the configured answer
func (p *ManualProvider) RequestPermission(_ context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted, nil
}

// CurrentPosition returns the configured fix
func (p *ManualProvider) CurrentPosition(_ context.Context) (run.GeoSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.position == nil {
		return run.GeoSample{}, shared.ErrNotFound("current position")
	}
	return *p.position, nil
}

// Subscribe replaces any previous subscription
func (p *ManualProvider) Subscribe(ctx context.Context, _ WatchOptions) (Subscription, error) {
	sub := &manualSubscription{chanSubscription: newChanSubscription(), ctx: ctx}
	// no producer goroutine; Push delivers inline
	close(sub.exited)

	p.mu.Lock()
	p.active = sub
	p.mu.Unlock()
	return sub, nil
}

// Subscribed reports whether a live subscription exists
func (p *ManualProvider) Subscribed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return false
	}
	select {
	case <-p.active.done:
		return false
	default:
		return true
	}
}

// Push blocks until the live subscription takes the sample. It returns false
// when nobody is subscribed or the subscription closes first.
func (p *ManualProvider) Push(sample run.GeoSample) bool {
	p.mu.Lock()
	sub := p.active
	p.mu.Unlock()

	if sub == nil {
		return false
	}
	select {
	case <-sub.done:
		return false
	default:
	}
	return sub.deliver(sub.ctx, sample)
}
