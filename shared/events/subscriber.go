package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Handler func(ctx context.Context, event Event) error

// ErrMalformedMessage marks a stream entry that can never be decoded.
var ErrMalformedMessage = errors.New("malformed ledger event")

// Subscriber consumes a stream through a consumer group. A message is acked
// only once its handler succeeds; failed messages stay pending and are
// retried from this consumer's pending list, or claimed by another consumer
// once idle for ClaimIdle. Malformed entries are acked and dropped.
type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	claimIdle     time.Duration
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	ClaimIdle     time.Duration
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.ClaimIdle == 0 {
		config.ClaimIdle = time.Minute
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		claimIdle:     config.ClaimIdle,
	}
}

// Start blocks until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("Subscriber started: stream=%s, group=%s, consumer=%s", s.stream, s.group, s.consumer)

	retry := time.NewTicker(s.claimIdle)
	defer retry.Stop()

	// Leftovers from a previous run of this consumer come first.
	s.retryPending(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Subscriber stopping: %s", s.stream)
			return ctx.Err()
		case <-retry.C:
			s.retryPending(ctx)
			s.claimStale(ctx)
		default:
			if err := s.readNew(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Error reading messages: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *Subscriber) readNew(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		s.handleBatch(ctx, stream.Messages)
	}
	return nil
}

// retryPending re-runs messages delivered to this consumer but never acked.
func (s *Subscriber) retryPending(ctx context.Context) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, "0"},
		Count:    s.batchSize,
	}).Result()
	if err != nil && err != redis.Nil {
		if ctx.Err() == nil {
			log.Printf("Failed to read pending messages: %v", err)
		}
		return
	}
	for _, stream := range streams {
		s.handleBatch(ctx, stream.Messages)
	}
}

// claimStale takes over messages another consumer left pending too long.
func (s *Subscriber) claimStale(ctx context.Context) {
	messages, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.stream,
		Group:    s.group,
		Consumer: s.consumer,
		MinIdle:  s.claimIdle,
		Start:    "0-0",
		Count:    s.batchSize,
	}).Result()
	if err != nil && err != redis.Nil {
		if ctx.Err() == nil {
			log.Printf("Failed to claim stale messages: %v", err)
		}
		return
	}
	if len(messages) > 0 {
		log.Printf("Claimed %d stale messages on %s", len(messages), s.stream)
	}
	s.handleBatch(ctx, messages)
}

func (s *Subscriber) handleBatch(ctx context.Context, messages []redis.XMessage) {
	for _, message := range messages {
		err := s.processMessage(ctx, message)
		switch {
		case errors.Is(err, ErrMalformedMessage):
			log.Printf("Dropping message %s: %v", message.ID, err)
		case err != nil:
			log.Printf("Failed to process message %s: %v", message.ID, err)
			continue
		}

		if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
			log.Printf("Failed to ACK message %s: %v", message.ID, err)
		}
	}
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	event, err := ParseMessage(message)
	if err != nil {
		return err
	}
	return s.handler(ctx, event)
}

// ParseMessage decodes the envelope stored in a stream entry.
func ParseMessage(message redis.XMessage) (Event, error) {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return Event{}, fmt.Errorf("%w: entry %s has no event field", ErrMalformedMessage, message.ID)
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return event, nil
}
