package ride

import "time"

// Event bus topic and event types.
const (
	TopicRideEvents = "ride.events"

	EventRideRequested     = "ride.requested"
	EventRideRequestFailed = "ride.request_failed"
	EventRideStatusChanged = "ride.status_changed"
	EventSessionExpired    = "session.expired"
	EventBookingReset      = "booking.reset"
)

// RideRequestedEvent is published after every submission attempt.
type RideRequestedEvent struct {
	DeviceID    string     `json:"device_id"`
	RideID      string     `json:"ride_id,omitempty"`
	Status      string     `json:"status,omitempty"`
	Success     bool       `json:"success"`
	Message     string     `json:"message,omitempty"`
	RegionID    int        `json:"region_id"`
	ServiceID   int        `json:"service_id"`
	Pickup      Location   `json:"pickup"`
	Dropoff     Location   `json:"dropoff"`
	StopCount   int        `json:"stop_count"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// RideStatusChangedEvent reports a status change of a submitted ride.
type RideStatusChangedEvent struct {
	DeviceID   string    `json:"device_id"`
	RideID     string    `json:"ride_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SessionExpiredEvent is published when a device's user session is cleared
// after a server-signalled expiry.
type SessionExpiredEvent struct {
	DeviceID   string    `json:"device_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingResetEvent is published when a device's booking is cleared.
type BookingResetEvent struct {
	DeviceID   string    `json:"device_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
