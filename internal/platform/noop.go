package platform

import (
	"context"

	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
)

// NoopProvider stands in on hosts without a location capability. Permission
// is granted and the stream never delivers, so a session still times itself.
type NoopProvider struct{}

// RequestPermission always grants
func (NoopProvider) RequestPermission(_ context.Context) (bool, error) {
	return true, nil
}

// CurrentPosition has nothing to report
func (NoopProvider) CurrentPosition(_ context.Context) (run.GeoSample, error) {
	return run.GeoSample{}, shared.ErrNotFound("current position")
}

// Subscribe returns a stream that stays silent until closed
func (NoopProvider) Subscribe(ctx context.Context, _ WatchOptions) (Subscription, error) {
	sub := newChanSubscription()
	go func() {
		defer close(sub.exited)
		select {
		case <-sub.done:
		case <-ctx.Done():
		}
	}()
	return sub, nil
}

// NoopSink discards speech
type NoopSink struct{}

// Speak does nothing
func (NoopSink) Speak(_, _ string) {}
