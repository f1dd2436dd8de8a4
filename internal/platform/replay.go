package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danghamo/twieo/internal/domain/geo"
	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/pkg/logger"
)

// ReplayProvider plays back a recorded track, paced by the watch interval
// and filtered by the minimum displacement the way a device would be.
// A new subscription continues where the previous one stopped.
type ReplayProvider struct {
	samples []run.GeoSample
	granted bool
	speedup float64
	logger  *logger.Logger

	mu       sync.Mutex
	next     int
	finished chan struct{}
	once     sync.Once
}

// ReplayOption configures a ReplayProvider
type ReplayOption func(*ReplayProvider)

// WithPermission sets the answer to RequestPermission
func WithPermission(granted bool) ReplayOption {
	return func(p *ReplayProvider) { p.granted = granted }
}

// WithSpeedup divides the watch interval; values <= 0 are ignored
func WithSpeedup(factor float64) ReplayOption {
	return func(p *ReplayProvider) {
		if factor > 0 {
			p.speedup = factor
		}
	}
}

// WithLogger attaches a logger
func WithLogger(log *logger.Logger) ReplayOption {
	return func(p *ReplayProvider) { p.logger = log }
}

// NewReplayProvider creates a provider over a copy of samples
func NewReplayProvider(samples []run.GeoSample, opts ...ReplayOption) *ReplayProvider {
	cp := make([]run.GeoSample, len(samples))
	copy(cp, samples)

	p := &ReplayProvider{
		samples:  cp,
		granted:  true,
		speedup:  1,
		logger:   logger.NewNop(),
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("replay-provider")
	return p
}

// RequestPermission returns the configured answer
func (p *ReplayProvider) RequestPermission(_ context.Context) (bool, error) {
	return p.granted, nil
}

// CurrentPosition returns the first sample of the track
func (p *ReplayProvider) CurrentPosition(_ context.Context) (run.GeoSample, error) {
	if len(p.samples) == 0 {
		return run.GeoSample{}, shared.ErrNotFound("current position")
	}
	return p.samples[0], nil
}

// Finished is closed once the whole track has been delivered
func (p *ReplayProvider) Finished() <-chan struct{} {
	return p.finished
}

// Subscribe resumes playback. The channel is closed when the track is
// exhausted.
func (p *ReplayProvider) Subscribe(ctx context.Context, opts WatchOptions) (Subscription, error) {
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval) * rate.Limit(p.speedup)
	}
	limiter := rate.NewLimiter(limit, 1)

	sub := newChanSubscription()
	go p.play(ctx, sub, limiter, opts.MinDisplacementM)
	return sub, nil
}

func (p *ReplayProvider) play(ctx context.Context, sub *chanSubscription, limiter *rate.Limiter, minDisplacementM float64) {
	defer close(sub.exited)

	delivered := 0
	defer func() {
		p.logger.Debug("Replay paused or finished", zap.Int("delivered", delivered), zap.Int("total", len(p.samples)))
	}()

	var last run.GeoSample
	hasLast := false

	for {
		sample, ok := p.peek()
		if !ok {
			break
		}

		if hasLast && geo.Distance(last.Coordinate(), sample.Coordinate())*1000 < minDisplacementM {
			p.advance()
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		select {
		case <-sub.done:
			return
		default:
		}

		if !sub.deliver(ctx, sample) {
			return
		}
		p.advance()
		delivered++
		last = sample
		hasLast = true
	}

	p.once.Do(func() { close(p.finished) })

	// end of track: close the channel, then hold until the consumer closes
	close(sub.ch)
	select {
	case <-sub.done:
	case <-ctx.Done():
	}
}

func (p *ReplayProvider) peek() (run.GeoSample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next >= len(p.samples) {
		return run.GeoSample{}, false
	}
	return p.samples[p.next], true
}

func (p *ReplayProvider) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
}

// LoadTrack decodes a JSON array of {latitude, longitude, timestamp}
// samples. Invalid coordinates are rejected.
func LoadTrack(r io.Reader) ([]run.GeoSample, error) {
	var samples []run.GeoSample
	if err := json.NewDecoder(r).Decode(&samples); err != nil {
		return nil, fmt.Errorf("failed to decode track: %w", err)
	}
	for i, s := range samples {
		if !s.Coordinate().Valid() {
			return nil, shared.NewDomainErrorf(shared.ErrCodeInvalidInput, "track sample %d is not a valid coordinate", i)
		}
	}
	return samples, nil
}
