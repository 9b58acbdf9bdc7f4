// Package events delivers registry lifecycle events to external consumers
// such as the inspection job dispatcher. Delivery is best-effort: a failed
// webhook or publish is logged and never surfaces to the caller.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types dispatched by the registries.
const (
	FacilityRegistered      = "facility.registered"
	FacilityUpdated         = "facility.updated"
	TechnicianRegistered    = "technician.registered"
	TechnicianStatusChanged = "technician.status_changed"
	TechnicianRenewed       = "technician.renewed"
	AdminTransferred        = "admin.transferred"
)

// Event is one lifecycle notification.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      string            `json:"type"`
	Subject   string            `json:"subject"`
	Actor     string            `json:"actor"`
	Height    uint64            `json:"height"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// New builds an Event with a fresh id and the current UTC time.
func New(eventType, subject, actor string, height uint64, payload map[string]string) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Subject:   subject,
		Actor:     actor,
		Height:    height,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Dispatcher delivers events. Implementations must not block the caller on
// network I/O for longer than a publish round-trip.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event)
}

// Fanout sends every event to each of its dispatchers in order.
type Fanout []Dispatcher

// Dispatch implements Dispatcher.
func (f Fanout) Dispatch(ctx context.Context, e Event) {
	for _, d := range f {
		if d != nil {
			d.Dispatch(ctx, e)
		}
	}
}

// MetricsRecorder is an optional callback for recording delivery outcomes.
// sink names the transport ("webhook", "redis").
type MetricsRecorder func(sink string, success bool)
