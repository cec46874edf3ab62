package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/infrastructure/logger"
)

// AttemptPublisher publishes attempt events to a Pub/Sub topic. A nil
// client disables publishing; attempts are still recorded in the database.
type AttemptPublisher struct {
	client    *pubsub.Client
	topicName string
}

func NewAttemptPublisher(client *pubsub.Client, topicName string) *AttemptPublisher {
	return &AttemptPublisher{
		client:    client,
		topicName: topicName,
	}
}

func NewPubSubClient(ctx context.Context, projectID string) *pubsub.Client {
	if projectID == "" {
		return nil
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without attempt events")
		return nil
	}
	return client
}

type attemptEvent struct {
	LicenseID      *int64    `json:"license_id,omitempty"`
	FacebookPageID string    `json:"facebook_page_id"`
	Status         string    `json:"status"`
	ErrorCode      *string   `json:"error_code,omitempty"`
	MediaID        *string   `json:"media_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PublishAttempt sends the attempt event. Failures are logged and dropped
// so a broker outage never affects the publish response.
func (p *AttemptPublisher) PublishAttempt(ctx context.Context, attempt *model.PostAttempt) {
	if p == nil || p.client == nil || attempt == nil {
		return
	}
	payload, err := json.Marshal(attemptEvent{
		LicenseID:      attempt.LicenseID,
		FacebookPageID: attempt.FacebookPageID,
		Status:         attempt.Status,
		ErrorCode:      attempt.ErrorCode,
		MediaID:        attempt.MediaID,
		OccurredAt:     attempt.CreatedAt,
	})
	if err != nil {
		return
	}

	topic := p.client.Topic(p.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to check attempt topic")
		return
	}
	if !exists {
		if _, err := p.client.CreateTopic(ctx, p.topicName); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to create attempt topic")
			return
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to publish attempt event")
		return
	}
	logger.GetLogger().WithField("server ID", serverID).Debug("Attempt event published")
}
