package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one entry read from the notification stream.
type Message struct {
	ID    string // Redis message ID ("1702000000000-0")
	Event NotificationEvent
}

// Consumer reads notification events from a stream via a consumer group.
type Consumer interface {
	// EnsureGroup creates the consumer group (and stream) if missing.
	// Call once at worker startup.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read blocks up to block waiting for new messages, returning at
	// most count of them. A nil slice with nil error means timeout.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending returns messages delivered to this consumer but never
	// acknowledged (crash recovery).
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	// Ack removes messages from the consumer's pending list.
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error
}

// RedisConsumer implements Consumer using Redis Streams.
type RedisConsumer struct {
	client *redis.Client
}

func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	// "0" starts the group at the beginning of the stream; MKSTREAM
	// creates the stream if it does not exist yet.
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			// Group already exists.
			return nil
		}
		return fmt.Errorf("create consumer group %s/%s: %w", stream, group, err)
	}
	log.Printf("[Consumer] Created group: stream=%s group=%s", stream, group)
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	// ">" asks for messages never delivered to any consumer in the group.
	return c.readGroup(ctx, stream, group, consumer, ">", count, block)
}

func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	// "0" asks for this consumer's own pending (delivered, unacked) messages.
	return c.readGroup(ctx, stream, group, consumer, "0", count, 0)
}

func (c *RedisConsumer) readGroup(ctx context.Context, stream, group, consumer, id string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, id},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		// Timeout, no messages.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s/%s: %w", stream, group, err)
	}

	var messages []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			event, err := ParseNotificationEvent(m.Values)
			if err != nil {
				// Malformed message: log, ack it away, keep going.
				log.Printf("[Consumer] Skipping malformed msgID=%s: %v", m.ID, err)
				if ackErr := c.Ack(ctx, stream, group, m.ID); ackErr != nil {
					log.Printf("[Consumer] ACK malformed msgID=%s failed: %v", m.ID, ackErr)
				}
				continue
			}
			messages = append(messages, Message{ID: m.ID, Event: event})
		}
	}
	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack %s/%s: %w", stream, group, err)
	}
	return nil
}
