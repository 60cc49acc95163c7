package application

import (
	"context"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/kafka"
	"go.uber.org/zap"
)

const eventSource = "service-ride-booking"

// EventPublisher writes CloudEvents to the bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// publishEvent wraps data in a CloudEvent keyed by subject and publishes it
// to the ride topic. Failures are logged, never returned.
func publishEvent(ctx context.Context, producer EventPublisher, logger *zap.Logger, eventType, subject string, data interface{}) {
	if producer == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = subject

	if err := producer.PublishEvent(context.WithoutCancel(ctx), ride.TopicRideEvents, cloudEvent); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", ride.TopicRideEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
