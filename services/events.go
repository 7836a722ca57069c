package services

import (
	"context"
	"encoding/json"
	"fmt"

	aws_pkg "github.com/hassan-nahid/school-of-music-server/aws"
	"github.com/hassan-nahid/school-of-music-server/models"
)

const EventEnrollmentSettled = "enrollment_settled"

// EventPublisher announces completed settlements to downstream consumers.
type EventPublisher interface {
	PublishEnrollmentSettled(ctx context.Context, evt *models.EnrollmentSettledEvent) error
}

type snsEventPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

// NewSNSEventPublisher returns a publisher for the topic, or nil when events are not configured.
func NewSNSEventPublisher(client aws_pkg.SNSPublisher, topicArn string) EventPublisher {
	if client == nil || topicArn == "" {
		return nil
	}
	return &snsEventPublisher{client: client, topicArn: topicArn}
}

func (p *snsEventPublisher) PublishEnrollmentSettled(ctx context.Context, evt *models.EnrollmentSettledEvent) error {
	evt.EventType = EventEnrollmentSettled
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, body, map[string]string{"event_type": EventEnrollmentSettled})
}
