package queue

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubPublisher implements Publisher for Google Cloud Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubPublisher creates a Pub/Sub client and verifies the topic
// exists. Authentication uses Application Default Credentials.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("queue: create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("pubsub client close failed after exists check", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("queue: check topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("pubsub client close failed after exists check", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("queue: topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSubPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish sends the key to the topic. The send is asynchronous: the
// client batches and retries in the background, so this never blocks
// the crawl on Pub/Sub latency.
func (p *PubSubPublisher) Publish(ctx context.Context, key string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{Data: []byte(key)})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			p.logger.Warn("pubsub publish failed", zap.String("key", key), zap.Error(err))
		}
	}()
	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("queue: close pubsub client: %w", err)
	}
	return nil
}
