package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// Entry lifecycle
	EntryRequestCreated  = "entry.request.created"
	EntryRequestResolved = "entry.request.resolved"
	EntryApproved        = "entry.approved"
	EntryRejected        = "entry.rejected"
	EntryCheckedOut      = "entry.checked_out"
	AccessAutoApproved   = "access.auto_approved"

	// Credential lifecycle
	PreApprovalIssued    = "preapproval.issued"
	PreApprovalConsumed  = "preapproval.consumed"
	PreApprovalCancelled = "preapproval.cancelled"
	GatePassRequested    = "gatepass.requested"
	GatePassResolved     = "gatepass.resolved"
	GatePassUsed         = "gatepass.used"

	// Amenity bookings
	BookingProposed  = "booking.proposed"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"

	// Notification fan-out
	NotifySend = "notify.send"
)

// Event payloads
type EntryRequestCreatedEvent struct {
	RequestID   int64     `json:"request_id"`
	UnitID      int64     `json:"unit_id"`
	GuardID     int64     `json:"guard_id"`
	EntryType   string    `json:"entry_type"`
	VisitorName string    `json:"visitor_name"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type EntryRequestResolvedEvent struct {
	RequestID  int64     `json:"request_id"`
	UnitID     int64     `json:"unit_id"`
	GuardID    int64     `json:"guard_id"`
	Outcome    string    `json:"outcome"` // approved, rejected, expired
	EntryID    *int64    `json:"entry_id,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type EntryCheckedOutEvent struct {
	EntryID      int64     `json:"entry_id"`
	UnitID       int64     `json:"unit_id"`
	GuardID      int64     `json:"guard_id"`
	CheckOutTime time.Time `json:"check_out_time"`
}

type AutoApprovedEvent struct {
	EntryID     int64     `json:"entry_id"`
	UnitID      int64     `json:"unit_id"`
	ProviderTag string    `json:"provider_tag"`
	Reason      string    `json:"reason"`
	ApprovedAt  time.Time `json:"approved_at"`
}

type PreApprovalConsumedEvent struct {
	PreApprovalID int64     `json:"pre_approval_id"`
	EntryID       int64     `json:"entry_id"`
	UnitID        int64     `json:"unit_id"`
	GuardID       int64     `json:"guard_id"`
	UsedCount     int       `json:"used_count"`
	MaxUses       int       `json:"max_uses"`
	ConsumedAt    time.Time `json:"consumed_at"`
}

type GatePassUsedEvent struct {
	GatePassID int64     `json:"gate_pass_id"`
	UnitID     int64     `json:"unit_id"`
	GuardID    int64     `json:"guard_id"`
	Purpose    string    `json:"purpose"`
	UsedAt     time.Time `json:"used_at"`
}

type BookingProposedEvent struct {
	BookingID   int64     `json:"booking_id"`
	AmenityID   int64     `json:"amenity_id"`
	ResidentID  int64     `json:"resident_id"`
	BookingDate time.Time `json:"booking_date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
}

type BookingResolvedEvent struct {
	BookingID  int64     `json:"booking_id"`
	AmenityID  int64     `json:"amenity_id"`
	ResidentID int64     `json:"resident_id"`
	Outcome    string    `json:"outcome"` // confirmed, cancelled, completed
	Reason     string    `json:"reason,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type NotificationEvent struct {
	Kind        string `json:"kind"`
	PrincipalID int64  `json:"principal_id,omitempty"`
	UnitID      int64  `json:"unit_id,omitempty"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	ReferenceID int64  `json:"reference_id,omitempty"`
}
