// Package service hosts the run session orchestrator and the persistence
// boundary it hands finished runs to.
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/twieo/internal/cqrs"
	"github.com/danghamo/twieo/internal/domain/guidance"
	"github.com/danghamo/twieo/internal/domain/route"
	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/internal/platform"
	"github.com/danghamo/twieo/pkg/logger"
)

// Ticker is the part of time.Ticker the session uses
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates the elapsed-time ticker for an active period
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// TrackerConfig holds the tunables of a session
type TrackerConfig struct {
	CaloriesPerKm   float64
	TickInterval    time.Duration
	Watch           platform.WatchOptions
	Guidance        guidance.Config
	GuidanceEnabled bool
}

// DefaultTrackerConfig returns the values the app ships with
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		CaloriesPerKm:   run.DefaultCaloriesPerKm,
		TickInterval:    time.Second,
		Watch:           platform.DefaultWatchOptions(),
		Guidance:        guidance.DefaultConfig(),
		GuidanceEnabled: true,
	}
}

// Dependencies are the host capabilities and collaborators. Nil location and
// speech fall back to no-ops; a nil route source keeps whatever SetRoute set.
type Dependencies struct {
	Location  platform.LocationProvider
	Speech    platform.SpeechSink
	Routes    route.Source
	Persister *Persister
	Publisher cqrs.EventPublisher
}

// TrackerOption customises a Tracker
type TrackerOption func(*Tracker)

// WithTickerFactory replaces the wall-clock ticker
func WithTickerFactory(f TickerFactory) TrackerOption {
	return func(t *Tracker) { t.newTicker = f }
}

// WithClock replaces the clock used for record dates and event timestamps
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// StopResult is what a confirmed stop produced
type StopResult struct {
	Record  run.Record
	Outcome Outcome
}

// Confirmed is a confirmation callback that always agrees
func Confirmed() bool { return true }

// activePeriod owns the producers of one Running stretch
type activePeriod struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	sub    platform.Subscription
	ticker Ticker
}

func (p *activePeriod) shutdown() {
	p.cancel()
	<-p.done
	p.ticker.Stop()
	p.sub.Close()
}

// Tracker is the run session state machine. Transitions are serialised;
// samples and ticks are applied by one event loop per active period.
// Stats subscribers are called outside the lock but must not call
// Pause, Resume or Stop from inside the callback.
type Tracker struct {
	cfg       TrackerConfig
	location  platform.LocationProvider
	speech    platform.SpeechSink
	routes    route.Source
	persister *Persister
	publisher cqrs.EventPublisher
	newTicker TickerFactory
	now       func() time.Time
	logger    *logger.Logger

	// transitions holds for the whole of Start, Pause, Resume and Stop
	transitions sync.Mutex

	mu            sync.Mutex
	state         run.State
	sessionID     string
	acc           *run.Accumulator
	engine        *guidance.Engine
	generation    uint64
	period        *activePeriod
	lastPublished run.Stats
	subscribers   map[int]func(run.Stats)
	nextSubID     int
}

// NewTracker creates an idle session
func NewTracker(cfg TrackerConfig, deps Dependencies, logger *logger.Logger, opts ...TrackerOption) *Tracker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if deps.Location == nil {
		deps.Location = platform.NoopProvider{}
	}
	if deps.Speech == nil {
		deps.Speech = platform.NoopSink{}
	}
	if deps.Publisher == nil {
		deps.Publisher = cqrs.NoopPublisher{}
	}
	if deps.Persister == nil {
		deps.Persister = NewPersister(nil, nil, nil, deps.Publisher, logger)
	}

	t := &Tracker{
		cfg:         cfg,
		location:    deps.Location,
		speech:      deps.Speech,
		routes:      deps.Routes,
		persister:   deps.Persister,
		publisher:   deps.Publisher,
		newTicker:   newTimeTicker,
		now:         time.Now,
		logger:      logger.WithComponent("run-tracker"),
		state:       run.StateIdle,
		acc:         run.NewAccumulator(cfg.CaloriesPerKm),
		engine:      guidance.NewEngine(cfg.Guidance),
		subscribers: make(map[int]func(run.Stats)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current lifecycle state
func (t *Tracker) State() run.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stats returns the current stats snapshot
func (t *Tracker) Stats() run.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acc.Stats()
}

// Path returns the coordinates recorded so far
func (t *Tracker) Path() []shared.Coordinate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acc.Path()
}

// SessionID is empty while idle
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Cursor returns the guidance progress
func (t *Tracker) Cursor() guidance.Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Cursor()
}

// SetRoute replaces the planned route and rewinds the waypoint cursor
func (t *Tracker) SetRoute(points []route.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engine.SetRoute(points)
}

// Subscribe registers fn for every stats change and calls it once with the
// current stats. The returned func unregisters it.
func (t *Tracker) Subscribe(fn func(run.Stats)) func() {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = fn
	current := t.acc.Stats()
	t.mu.Unlock()

	fn(current)

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subscribers, id)
	}
}

// Start begins a new session from Idle
func (t *Tracker) Start(ctx context.Context) error {
	t.transitions.Lock()
	defer t.transitions.Unlock()

	if _, err := t.State().Next(run.ActionStart); err != nil {
		return err
	}

	granted, err := t.location.RequestPermission(ctx)
	if err != nil {
		t.logger.Warn("Location permission request failed", zap.Error(err))
		return shared.WrapDomainError(err, shared.ErrCodePermissionDenied, "location permission request failed")
	}
	if !granted {
		t.logger.Info("Location permission denied")
		return shared.ErrPermissionDenied("location")
	}

	var points []route.Point
	hasRoute := false
	if t.routes != nil {
		points, err = t.routes.Route(ctx)
		if err != nil {
			// guidance degrades to kilometer callouts only
			t.logger.Warn("Failed to load route", zap.Error(err))
			points = nil
		}
		hasRoute = true
	}

	seed, seedErr := t.location.CurrentPosition(ctx)

	period, err := t.openPeriod(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.acc.Reset()
	if hasRoute {
		t.engine.SetRoute(points)
	}
	t.engine.Reset()
	if seedErr == nil {
		t.acc.Seed(seed.Coordinate())
	}
	t.sessionID = shared.NewID().String()
	t.lastPublished = run.Stats{}
	t.state = run.StateRunning
	gen := t.activate(period)
	sessionID := t.sessionID
	routePoints := len(t.engine.Route())
	intro := t.engine.Intro()
	subs := t.subscriberSnapshot()
	t.mu.Unlock()

	go t.loop(period, gen)

	t.logger.Info("Run started",
		zap.String("session_id", sessionID),
		zap.Int("route_points", routePoints),
		zap.Bool("seeded", seedErr == nil),
	)

	notify(subs, run.Stats{})
	t.announce(ctx, sessionID, intro)
	t.publish(ctx, &cqrs.RunStartedEvent{
		SessionID:   sessionID,
		Locale:      intro.Locale,
		RoutePoints: routePoints,
		Timestamp:   t.now(),
		EventID:     shared.NewID().String(),
	})
	return nil
}

// Pause freezes the session. When it returns no sample or tick can change
// the stats until Resume.
func (t *Tracker) Pause(ctx context.Context) error {
	t.transitions.Lock()
	defer t.transitions.Unlock()

	t.mu.Lock()
	next, err := t.state.Next(run.ActionPause)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.state = next
	period := t.deactivate()
	stats := t.acc.Stats()
	sessionID := t.sessionID
	t.mu.Unlock()

	if period != nil {
		period.shutdown()
	}

	t.logger.Info("Run paused", zap.String("session_id", sessionID), zap.Int("elapsed_s", stats.ElapsedSeconds))
	t.publish(ctx, &cqrs.RunPausedEvent{
		SessionID: sessionID,
		Stats:     stats,
		Timestamp: t.now(),
		EventID:   shared.NewID().String(),
	})
	return nil
}

// Resume reactivates ingest and the timer without resetting anything
func (t *Tracker) Resume(ctx context.Context) error {
	t.transitions.Lock()
	defer t.transitions.Unlock()

	if _, err := t.State().Next(run.ActionResume); err != nil {
		return err
	}

	period, err := t.openPeriod(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.state = run.StateRunning
	gen := t.activate(period)
	stats := t.acc.Stats()
	sessionID := t.sessionID
	t.mu.Unlock()

	go t.loop(period, gen)

	t.logger.Info("Run resumed", zap.String("session_id", sessionID))
	t.publish(ctx, &cqrs.RunResumedEvent{
		SessionID: sessionID,
		Stats:     stats,
		Timestamp: t.now(),
		EventID:   shared.NewID().String(),
	})
	return nil
}

// Stop ends the session after confirm agrees. A declined confirmation
// returns STOP_CANCELLED and changes nothing. On confirmation the record is
// persisted and the session returns to Idle even when persistence fails;
// the record is always part of the result.
func (t *Tracker) Stop(ctx context.Context, confirm func() bool) (StopResult, error) {
	t.transitions.Lock()
	defer t.transitions.Unlock()

	if confirm == nil {
		return StopResult{}, shared.ErrInvalidInput("stop requires a confirmation callback")
	}
	if _, err := t.State().Next(run.ActionStop); err != nil {
		return StopResult{}, err
	}
	if !confirm() {
		return StopResult{}, shared.NewDomainError(shared.ErrCodeStopCancelled, "stop cancelled")
	}

	t.mu.Lock()
	t.state = run.StateStopped
	period := t.deactivate()
	t.mu.Unlock()

	if period != nil {
		period.shutdown()
	}

	t.mu.Lock()
	stats := t.acc.Stats()
	record := run.NewRecord(stats, t.acc.Path(), t.now())
	sessionID := t.sessionID
	finish := t.engine.Finish()
	t.mu.Unlock()

	t.logger.Info("Run stopped",
		zap.String("session_id", sessionID),
		zap.Float64("distance_km", stats.DistanceKm),
		zap.Int("elapsed_s", stats.ElapsedSeconds),
		zap.Int("path_points", len(record.Path)),
	)
	t.publish(ctx, &cqrs.RunStoppedEvent{
		SessionID: sessionID,
		Stats:     stats,
		Timestamp: t.now(),
		EventID:   shared.NewID().String(),
	})
	t.announce(ctx, sessionID, finish)

	outcome, err := t.persister.Persist(ctx, sessionID, record)

	t.mu.Lock()
	t.acc.Reset()
	t.engine.Reset()
	t.lastPublished = run.Stats{}
	t.sessionID = ""
	t.state = run.StateIdle
	subs := t.subscriberSnapshot()
	t.mu.Unlock()

	notify(subs, run.Stats{})

	return StopResult{Record: record, Outcome: outcome}, err
}

// Ingest applies one sample. It is a no-op unless Running.
func (t *Tracker) Ingest(ctx context.Context, sample run.GeoSample) {
	t.handleSample(ctx, t.currentGeneration(), sample)
}

// Tick advances elapsed time by one second. It is a no-op unless Running.
func (t *Tracker) Tick(ctx context.Context) {
	t.handleTick(ctx, t.currentGeneration())
}

func (t *Tracker) currentGeneration() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// openPeriod subscribes to location and arms the ticker. The context is
// detached from ctx's cancellation; the period ends on Pause or Stop.
func (t *Tracker) openPeriod(ctx context.Context) (*activePeriod, error) {
	periodCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	sub, err := t.location.Subscribe(periodCtx, t.cfg.Watch)
	if err != nil {
		cancel()
		t.logger.Error("Failed to subscribe to location", zap.Error(err))
		return nil, shared.WrapDomainError(err, shared.ErrCodePermissionDenied, "location stream unavailable")
	}

	return &activePeriod{
		ctx:    periodCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		sub:    sub,
		ticker: t.newTicker(t.cfg.TickInterval),
	}, nil
}

// activate installs period and returns its generation; mu must be held
func (t *Tracker) activate(period *activePeriod) uint64 {
	t.generation++
	t.period = period
	return t.generation
}

// deactivate invalidates in-flight callbacks and detaches the period;
// mu must be held
func (t *Tracker) deactivate() *activePeriod {
	t.generation++
	period := t.period
	t.period = nil
	return period
}

func (t *Tracker) loop(period *activePeriod, gen uint64) {
	defer close(period.done)

	ctx := context.Background()
	samples := period.sub.C()
	for {
		select {
		case <-period.ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				// stream ended; keep timing
				samples = nil
				continue
			}
			t.handleSample(ctx, gen, sample)
		case <-period.ticker.C():
			t.handleTick(ctx, gen)
		}
	}
}

func (t *Tracker) handleSample(ctx context.Context, gen uint64, sample run.GeoSample) {
	if !sample.Coordinate().Valid() {
		t.logger.Debug("Dropping invalid location fix",
			zap.Float64("latitude", sample.Latitude),
			zap.Float64("longitude", sample.Longitude),
		)
		return
	}

	t.mu.Lock()
	if gen != t.generation || !t.state.Active() {
		t.mu.Unlock()
		return
	}

	t.acc.AddSample(sample)
	stats := t.acc.Stats()

	var announcements []guidance.Announcement
	if t.cfg.GuidanceEnabled {
		announcements = t.engine.Evaluate(stats.DistanceKm, stats.PaceMinPerKm, sample.Coordinate())
	}

	prev := t.lastPublished
	t.lastPublished = stats
	sessionID := t.sessionID
	subs := t.subscriberSnapshot()
	t.mu.Unlock()

	notify(subs, stats)
	t.publishStats(ctx, sessionID, prev, stats)
	for _, a := range announcements {
		t.announce(ctx, sessionID, a)
	}
}

func (t *Tracker) handleTick(ctx context.Context, gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.state.Active() {
		t.mu.Unlock()
		return
	}

	t.acc.Tick()
	stats := t.acc.Stats()
	prev := t.lastPublished
	t.lastPublished = stats
	sessionID := t.sessionID
	subs := t.subscriberSnapshot()
	t.mu.Unlock()

	notify(subs, stats)
	t.publishStats(ctx, sessionID, prev, stats)
}

// subscriberSnapshot copies the callbacks; mu must be held
func (t *Tracker) subscriberSnapshot() []func(run.Stats) {
	out := make([]func(run.Stats), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(run.Stats), stats run.Stats) {
	for _, fn := range subs {
		fn(stats)
	}
}

func (t *Tracker) announce(ctx context.Context, sessionID string, a guidance.Announcement) {
	if !t.cfg.GuidanceEnabled {
		return
	}
	t.speech.Speak(a.Text, a.Locale)
	t.publish(ctx, &cqrs.AnnouncementEvent{
		SessionID:    sessionID,
		Announcement: a,
		Timestamp:    t.now(),
		EventID:      shared.NewID().String(),
	})
}

func (t *Tracker) publishStats(ctx context.Context, sessionID string, prev, next run.Stats) {
	changes, err := cqrs.StatsChanges(prev, next)
	if err != nil {
		t.logger.Debug("Failed to diff stats", zap.Error(err))
		changes = nil
	}
	t.publish(ctx, &cqrs.RunStatsUpdatedEvent{
		SessionID: sessionID,
		Stats:     next,
		Changes:   changes,
		Timestamp: t.now(),
		EventID:   shared.NewID().String(),
	})
}

func (t *Tracker) publish(ctx context.Context, event any) {
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Warn("Failed to publish session event", zap.Error(err))
	}
}
