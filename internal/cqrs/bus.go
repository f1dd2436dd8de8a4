// Package cqrs publishes run session events over a watermill event bus and
// hosts the processors that consume them.
package cqrs

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danghamo/twieo/pkg/logger"
)

// Event bus backends
const (
	BackendGoChannel   = "gochannel"
	BackendRedisStream = "redisstream"
)

// EventPublisher is what the tracker needs from the bus
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(_ context.Context, _ any) error {
	return nil
}

// BusConfig names topics and consumer groups
type BusConfig struct {
	TopicPrefix   string
	ConsumerGroup string
}

func (c BusConfig) topic(eventName string) string {
	prefix := c.TopicPrefix
	if prefix == "" {
		prefix = "run-events"
	}
	return fmt.Sprintf("%s.%s", prefix, eventName)
}

// Bus bundles the event bus with its processor and router
type Bus struct {
	eventBus  *cqrs.EventBus
	processor *cqrs.EventProcessor
	router    *message.Router
	publisher message.Publisher
	closers   []func() error
	logger    *logger.Logger
}

// NewGoChannelBus creates an in-process bus
func NewGoChannelBus(cfg BusConfig, log *logger.Logger) (*Bus, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	wmLogger := NewLoggerAdapter(log.WithComponent("watermill"))

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)

	bus, err := newBus(cfg, pubSub, func(cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
		return pubSub, nil
	}, wmLogger, log)
	if err != nil {
		_ = pubSub.Close()
		return nil, err
	}
	bus.closers = append(bus.closers, pubSub.Close)
	return bus, nil
}

// NewRedisStreamBus creates a bus over Redis streams. Each handler gets its
// own consumer group so every handler sees every event.
func NewRedisStreamBus(cfg BusConfig, client redis.UniversalClient, log *logger.Logger) (*Bus, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	wmLogger := NewLoggerAdapter(log.WithComponent("watermill"))

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		wmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = "twieo"
	}

	var subscribers []message.Subscriber
	subscriberConstructor := func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        client,
				ConsumerGroup: fmt.Sprintf("%s.%s", group, params.HandlerName),
			},
			wmLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create subscriber: %w", err)
		}
		subscribers = append(subscribers, subscriber)
		return subscriber, nil
	}

	bus, err := newBus(cfg, publisher, subscriberConstructor, wmLogger, log)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	bus.closers = append(bus.closers, publisher.Close, func() error {
		for _, s := range subscribers {
			if err := s.Close(); err != nil {
				return err
			}
		}
		return nil
	})
	return bus, nil
}

func newBus(
	cfg BusConfig,
	publisher message.Publisher,
	subscriberConstructor cqrs.EventProcessorSubscriberConstructorFn,
	wmLogger watermill.LoggerAdapter,
	log *logger.Logger,
) (*Bus, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 5 * time.Second,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	marshaler := cqrs.JSONMarshaler{GenerateName: cqrs.StructName}

	eventBus, err := cqrs.NewEventBusWithConfig(
		publisher,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return cfg.topic(params.EventName), nil
			},
			Marshaler: marshaler,
			Logger:    wmLogger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	processor, err := cqrs.NewEventProcessorWithConfig(
		router,
		cqrs.EventProcessorConfig{
			GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
				return cfg.topic(params.EventName), nil
			},
			SubscriberConstructor: subscriberConstructor,
			Marshaler:             marshaler,
			Logger:                wmLogger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event processor: %w", err)
	}

	return &Bus{
		eventBus:  eventBus,
		processor: processor,
		router:    router,
		publisher: publisher,
		logger:    log.WithComponent("event-bus"),
	}, nil
}

// Publish sends an event to its topic
func (b *Bus) Publish(ctx context.Context, event any) error {
	if err := b.eventBus.Publish(ctx, event); err != nil {
		b.logger.Warn("Failed to publish event",
			zap.String("event", cqrs.StructName(event)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// AddHandlers registers event handlers; call before Run
func (b *Bus) AddHandlers(handlers ...cqrs.EventHandler) error {
	return b.processor.AddHandlers(handlers...)
}

// Run starts the router and blocks until ctx is done or Close is called
func (b *Bus) Run(ctx context.Context) error {
	b.logger.Info("Starting event router")
	return b.router.Run(ctx)
}

// Running is closed once the router has started its handlers
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close stops the router and the underlying pub/sub
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return fmt.Errorf("failed to close router: %w", err)
	}
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil {
			return err
		}
	}
	b.logger.Info("Event bus closed")
	return nil
}
