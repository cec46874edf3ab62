package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/infrastructure/logger"
)

// NewServiceBus connects to an Azure Service Bus namespace with the ambient
// Azure credential. An empty namespace disables the integration.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, nil
	}
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, credential, nil)
}

// AttemptPublisher forwards attempt events to a Service Bus queue for
// deployments whose downstream consumers live on Azure. A nil client
// disables publishing.
type AttemptPublisher struct {
	client *azservicebus.Client
	queue  string
}

func NewAttemptPublisher(client *azservicebus.Client, queue string) *AttemptPublisher {
	return &AttemptPublisher{client: client, queue: queue}
}

type attemptEvent struct {
	LicenseID      *int64    `json:"license_id,omitempty"`
	FacebookPageID string    `json:"facebook_page_id"`
	Status         string    `json:"status"`
	ErrorCode      *string   `json:"error_code,omitempty"`
	MediaID        *string   `json:"media_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PublishAttempt sends the attempt event. Failures are logged and dropped.
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

	sender, err := p.client.NewSender(p.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to create Service Bus sender")
		return
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to close Service Bus sender")
		}
	}()

	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to send attempt event to Service Bus")
	}
}
