package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/danghamo/twieo/internal/api"
	"github.com/danghamo/twieo/internal/api/jsonrpcx"
	"github.com/danghamo/twieo/internal/app/service"
	"github.com/danghamo/twieo/internal/cqrs"
	cqrshandlers "github.com/danghamo/twieo/internal/cqrs/handlers"
	"github.com/danghamo/twieo/internal/domain/guidance"
	"github.com/danghamo/twieo/internal/domain/route"
	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/platform"
	"github.com/danghamo/twieo/pkg/config"
	"github.com/danghamo/twieo/pkg/logger"
	"github.com/danghamo/twieo/pkg/redisx"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search paths)")
	trackPath := flag.String("track", "", "JSON track file to replay")
	speedup := flag.Float64("speedup", 1, "replay speed multiplier")
	courseKm := flag.Float64("course-km", 0, "request a generated course of this length before starting")
	preference := flag.String("preference", string(route.PreferenceNone), "course preference: none, scenic or quiet")
	listPending := flag.Bool("pending", false, "print the pending queue and exit")
	flag.Parse()

	// Initialize configuration and logger
	cfg, log, err := config.Initialize(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Ensure logger is flushed on exit
	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, closeQueue, err := newPendingQueue(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize pending queue", zap.Error(err))
	}
	defer closeQueue()

	if *listPending {
		if err := printPending(ctx, queue); err != nil {
			log.Fatal("Failed to list pending runs", zap.Error(err))
		}
		return
	}

	if *trackPath == "" {
		fmt.Fprintln(os.Stderr, "runsim: -track is required")
		flag.Usage()
		os.Exit(2)
	}

	samples, err := loadTrack(*trackPath)
	if err != nil {
		log.Fatal("Failed to load track", zap.String("path", *trackPath), zap.Error(err))
	}

	log.Info("Starting run simulation",
		zap.String("track", *trackPath),
		zap.Int("samples", len(samples)),
		zap.Float64("speedup", *speedup),
		zap.String("queue_backend", cfg.Queue.Backend),
		zap.String("events_backend", cfg.Events.Backend),
	)

	bus, closeBus, err := newEventBus(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize event bus", zap.Error(err))
	}
	defer closeBus()

	display := cqrshandlers.NewDisplayEventHandler(jsonrpcx.NewStreamWriter(os.Stdout), log)
	if err := bus.AddHandlers(display.EventHandlers()...); err != nil {
		log.Fatal("Failed to register event handlers", zap.Error(err))
	}

	go func() {
		if err := bus.Run(ctx); err != nil {
			log.Error("Event router stopped", zap.Error(err))
		}
	}()
	<-bus.Running()

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log)

	var routes route.Source
	if *courseKm > 0 && len(samples) > 0 {
		routes = route.NewCourseSource(client, route.CourseRequest{
			Lat:        samples[0].Latitude,
			Lon:        samples[0].Longitude,
			DistanceKm: *courseKm,
			Preference: route.Preference(*preference),
		}, 0)
	}

	provider := platform.NewReplayProvider(samples,
		platform.WithSpeedup(*speedup),
		platform.WithLogger(log),
	)

	trackerCfg := service.TrackerConfig{
		CaloriesPerKm: cfg.Tracker.CaloriesPerKm,
		TickInterval:  scaled(cfg.Tracker.TimerInterval, *speedup),
		Watch: platform.WatchOptions{
			HighAccuracy:     cfg.Tracker.HighAccuracy,
			Interval:         cfg.Tracker.SampleInterval,
			MinDisplacementM: cfg.Tracker.MinDisplacementM,
		},
		Guidance: guidance.Config{
			WaypointRadiusKm: cfg.Guidance.WaypointRadiusKm,
			TurnAngleDeg:     cfg.Guidance.TurnAngleDeg,
			Locale:           cfg.Guidance.Locale,
		},
		GuidanceEnabled: cfg.Guidance.Enabled,
	}

	persister := service.NewPersister(client, queue, service.StaticToken(cfg.API.Token), bus, log)
	tracker := service.NewTracker(trackerCfg, service.Dependencies{
		Location:  provider,
		Speech:    platform.NewLogSink(log),
		Routes:    routes,
		Persister: persister,
		Publisher: bus,
	}, log)

	if err := tracker.Start(ctx); err != nil {
		log.Fatal("Failed to start run", zap.Error(err))
	}

	// Wait for the track to end or an interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-provider.Finished():
		log.Info("Track finished")
	case <-quit:
		log.Info("Interrupted, stopping run...")
	}

	result, err := tracker.Stop(ctx, service.Confirmed)
	if err != nil {
		log.Error("Run could not be persisted",
			zap.String("run_id", result.Record.ID),
			zap.Error(err),
		)
		os.Exit(1)
	}

	log.Info("Run complete",
		zap.String("run_id", result.Record.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.Float64("distance_km", result.Record.DistanceKm),
		zap.Int("duration_s", result.Record.DurationSeconds),
		zap.Float64("pace_min_per_km", result.Record.PaceMinPerKm),
		zap.Int("calories", result.Record.Calories),
	)
}

func newPendingQueue(cfg *config.Config, log *logger.Logger) (run.PendingQueue, func(), error) {
	switch cfg.Queue.Backend {
	case "redis":
		client, err := redisx.NewClient(cfg.Queue.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return run.NewRedisPendingQueue(client, cfg.Queue.Key), func() { _ = client.Close() }, nil
	default:
		return run.NewFilePendingQueue(cfg.Queue.FilePath), func() {}, nil
	}
}

func newEventBus(cfg *config.Config, log *logger.Logger) (*cqrs.Bus, func(), error) {
	busCfg := cqrs.BusConfig{
		TopicPrefix:   cfg.Events.TopicPrefix,
		ConsumerGroup: cfg.Events.ConsumerGroup,
	}

	if cfg.Events.Backend == cqrs.BackendRedisStream {
		client, err := redisx.NewClient(cfg.Events.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		bus, err := cqrs.NewRedisStreamBus(busCfg, client.Client, log)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return bus, func() {
			_ = bus.Close()
			_ = client.Close()
		}, nil
	}

	bus, err := cqrs.NewGoChannelBus(busCfg, log)
	if err != nil {
		return nil, nil, err
	}
	return bus, func() { _ = bus.Close() }, nil
}

func loadTrack(path string) ([]run.GeoSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return platform.LoadTrack(f)
}

func printPending(ctx context.Context, queue run.PendingQueue) error {
	records, err := queue.List(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
