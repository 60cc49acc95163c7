package events

import (
	"context"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusUpdater applies ride status changes to loaded bookings.
type StatusUpdater interface {
	UpdateRideStatus(deviceID, rideID, status, message string, at time.Time) bool
}

// RideStatusConsumer listens to ride events and refreshes the result panel
// of the device that submitted the ride.
type RideStatusConsumer struct {
	consumer *kafka.Consumer
	updater  StatusUpdater
	logger   *zap.Logger
}

// NewRideStatusConsumer creates a new RideStatusConsumer.
func NewRideStatusConsumer(
	brokers []string,
	groupID string,
	updater StatusUpdater,
	logger *zap.Logger,
) *RideStatusConsumer {
	return &RideStatusConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, ride.TopicRideEvents, logger),
		updater:  updater,
		logger:   logger,
	}
}

// Start begins consuming ride events. This blocks until the context is cancelled.
func (c *RideStatusConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *RideStatusConsumer) Close() error {
	return c.consumer.Close()
}

func (c *RideStatusConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from ride topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch ce.Type {
	case ride.EventRideStatusChanged:
		return c.handleStatusChanged(ctx, ce)
	default:
		c.logger.Debug("ignoring unhandled ride event type",
			zap.String("type", ce.Type),
		)
		return nil
	}
}

func (c *RideStatusConsumer) handleStatusChanged(_ context.Context, ce kafka.CloudEvent) error {
	var evt ride.RideStatusChangedEvent
	if err := ce.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RideStatusChangedEvent data", zap.Error(err))
		return nil
	}
	if evt.DeviceID == "" || evt.RideID == "" {
		c.logger.Warn("ride status event without device or ride id", zap.String("id", ce.ID))
		return nil
	}

	at := evt.OccurredAt
	if at.IsZero() {
		at = ce.Time
	}
	if !c.updater.UpdateRideStatus(evt.DeviceID, evt.RideID, evt.Status, evt.Message, at) {
		c.logger.Debug("ride status not shown on any loaded booking",
			zap.String("device_id", evt.DeviceID),
			zap.String("ride_id", evt.RideID),
		)
		return nil
	}

	c.logger.Info("ride status updated",
		zap.String("device_id", evt.DeviceID),
		zap.String("ride_id", evt.RideID),
		zap.String("status", evt.Status),
	)
	return nil
}
