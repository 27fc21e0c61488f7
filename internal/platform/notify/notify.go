package notify

import (
	"context"

	"github.com/Agastya221/society-gate-backend/pkg/events"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

// Notification is what the delivery side (push, socket, SMS) receives.
// Delivery itself lives outside this service; failures here are logged
// and never roll back the state change that triggered them.
type Notification struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	ReferenceID int64  `json:"reference_id,omitempty"`
}

type Notifier interface {
	NotifyPrincipal(ctx context.Context, principalID int64, n Notification)
	NotifyUnit(ctx context.Context, unitID int64, n Notification)
}

// BusNotifier hands notifications to the event bus; the out-of-process
// notify service fans them out to devices.
type BusNotifier struct {
	bus events.Publisher
}

func NewBusNotifier(bus events.Publisher) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (b *BusNotifier) NotifyPrincipal(ctx context.Context, principalID int64, n Notification) {
	evt := events.NotificationEvent{
		Kind:        n.Kind,
		PrincipalID: principalID,
		Title:       n.Title,
		Message:     n.Message,
		ReferenceID: n.ReferenceID,
	}
	if err := b.bus.Publish(ctx, events.NotifySend, evt); err != nil {
		logger.WarnContext(ctx, "Failed to publish notification",
			"principal_id", principalID, "kind", n.Kind, "error", err)
	}
}

func (b *BusNotifier) NotifyUnit(ctx context.Context, unitID int64, n Notification) {
	evt := events.NotificationEvent{
		Kind:        n.Kind,
		UnitID:      unitID,
		Title:       n.Title,
		Message:     n.Message,
		ReferenceID: n.ReferenceID,
	}
	if err := b.bus.Publish(ctx, events.NotifySend, evt); err != nil {
		logger.WarnContext(ctx, "Failed to publish notification",
			"unit_id", unitID, "kind", n.Kind, "error", err)
	}
}

// LogNotifier is the dev-mode sink: notifications land in the log.
type LogNotifier struct{}

func (LogNotifier) NotifyPrincipal(ctx context.Context, principalID int64, n Notification) {
	logger.InfoContext(ctx, "NOTIFY principal",
		"principal_id", principalID, "kind", n.Kind, "title", n.Title, "message", n.Message)
}

func (LogNotifier) NotifyUnit(ctx context.Context, unitID int64, n Notification) {
	logger.InfoContext(ctx, "NOTIFY unit",
		"unit_id", unitID, "kind", n.Kind, "title", n.Title, "message", n.Message)
}
