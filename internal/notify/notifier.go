package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies a domain event worth telling someone about.
type EventType string

const (
	EventInviteCreated EventType = "invite.created"
	EventResidentAdded EventType = "resident.added"
)

// Event is a fire-and-forget notification. Delivery failures never roll back
// the transaction that produced the event.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	UnitID     uint           `json:"unitId"`
	Email      string         `json:"email,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Notifier delivers events to the outside world (email, SMS). Implementations
// must not block the caller for long and must swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(t EventType, unitID uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UnitID:     unitID,
		OccurredAt: time.Now(),
	}
}

// LogNotifier writes events to the log. It stands in for the real delivery
// collaborator, which is outside this service.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

// Notify logs the event and returns immediately.
func (n *LogNotifier) Notify(_ context.Context, event Event) {
	n.logger.Info("event dispatched",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Uint("unit_id", event.UnitID))
}
