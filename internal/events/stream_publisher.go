package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StreamPublisher appends events to a Redis stream under the "event" field.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

// NewStreamPublisher returns nil when stream is empty, which disables publishing.
func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	if client == nil || stream == "" {
		return nil
	}
	return &StreamPublisher{client: client, stream: stream}
}

// Publish writes event with XADD and returns the assigned entry id.
func (p *StreamPublisher) Publish(ctx context.Context, event Event) (string, error) {
	if p == nil {
		return "", nil
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":  string(event.Type),
			"event": eventJSON,
		},
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish event: %w", err)
	}
	return id, nil
}
