package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
	redisclient "github.com/zatekoja/stayaudit/internal/infrastructure/clients/redis"
)

// RedisPublisher implements RecommendationPublisher using Redis Pub/Sub
type RedisPublisher struct {
	client  *redisclient.Client
	channel string
}

// NewRedisPublisher creates a publisher on channel
func NewRedisPublisher(client *redisclient.Client, channel string) providers.RecommendationPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends the event as JSON to the configured channel
func (p *RedisPublisher) Publish(ctx context.Context, event *providers.RecommendationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := p.client.Client().Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", p.channel).Str("event_id", event.ID).Int64("receivers", receivers).Msg("Published recommendation")
	return nil
}
